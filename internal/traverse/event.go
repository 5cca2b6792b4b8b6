package traverse

import "roleinventory/internal/domain"

// Event 为遍历过程产出的事件，只有本包内定义的类型实现它。
type Event interface {
	event()
}

// ServerVisited 每台服务器恰好一次，且先于其下属事件。
type ServerVisited struct {
	Server domain.ServerNode
}

// ScopeVisited 表示作用域枚举成功。
type ScopeVisited struct {
	Scope domain.ScopeNode
}

type LeaseFound struct {
	Server  string
	ScopeID string
	Lease   domain.LeaseRecord
}

type ReservationFound struct {
	Server      string
	ScopeID     string
	Reservation domain.ReservationRecord
}

// OptionFound 的 ScopeID 为空表示服务器级选项。
type OptionFound struct {
	Server  string
	ScopeID string
	Option  domain.OptionRecord
}

type ExclusionFound struct {
	Server    string
	ScopeID   string
	Exclusion domain.ExclusionRecord
}

type ZoneVisited struct {
	Zone domain.ZoneRecord
}

type RecordFound struct {
	Server string
	Zone   string
	Record domain.ResourceRecord
}

// FailureOccurred 为就地恢复的失败，遍历继续处理兄弟节点。
type FailureOccurred struct {
	Failure domain.Failure
}

func (ServerVisited) event()    {}
func (ScopeVisited) event()     {}
func (LeaseFound) event()       {}
func (ReservationFound) event() {}
func (OptionFound) event()      {}
func (ExclusionFound) event()   {}
func (ZoneVisited) event()      {}
func (RecordFound) event()      {}
func (FailureOccurred) event()  {}
