package domain

import "fmt"

// FailureKind 为采集失败的分类。
type FailureKind string

const (
	FailureUnreachable   FailureKind = "Unreachable"
	FailureAccessDenied  FailureKind = "AccessDenied"
	FailureNotFound      FailureKind = "NotFound"
	FailureMalformedData FailureKind = "MalformedData"
)

// FailureKinds 为固定的展示顺序。
var FailureKinds = []FailureKind{
	FailureUnreachable,
	FailureAccessDenied,
	FailureNotFound,
	FailureMalformedData,
}

// Stage 标识失败发生在遍历的哪个环节。
type Stage string

const (
	StageServerOptions Stage = "server-options"
	StageScopes        Stage = "scopes"
	StageScopeRange    Stage = "scope-range"
	StageLeases        Stage = "leases"
	StageLeaseDecode   Stage = "lease-decode"
	StageReservations  Stage = "reservations"
	StageExclusions    Stage = "exclusions"
	StageOptions       Stage = "options"
	StageOptionDecode  Stage = "option-decode"
	StageZones         Stage = "zones"
	StageRecords       Stage = "records"
)

// Failure 为一次被就地恢复的采集失败。Scope 为空表示服务器级。
type Failure struct {
	Server  string      `json:"server"`
	Scope   string      `json:"scope,omitempty"`
	Stage   Stage       `json:"stage"`
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// Node 返回失败所在节点的 key。
func (f Failure) Node() string {
	return ScopeKey(f.Server, f.Scope)
}

func (f Failure) String() string {
	return fmt.Sprintf("%s [%s] %s: %s", f.Node(), f.Stage, f.Kind, f.Message)
}
