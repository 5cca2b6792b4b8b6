package traverse

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"roleinventory/internal/domain"
	"roleinventory/internal/role"
)

// ErrNoServers 表示发现结果与显式列表都为空。
var ErrNoServers = errors.New("没有可遍历的服务器")

// Engine 按 服务器 → 作用域 → 子集合 的固定顺序遍历，失败在所在节点就地记录。
type Engine struct {
	client   role.Client
	parallel int
	logger   *zap.Logger
}

// NewEngine 创建遍历引擎。parallel <= 1 时串行执行。
func NewEngine(client role.Client, parallel int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{client: client, parallel: parallel, logger: logger}
}

// Discover 确定本次遍历的服务器集合。explicit 非空时直接使用，否则按角色发现。
// 结果按名称（大小写不敏感）去重排序。发现失败或结果为空是整个运行唯一的硬错误。
func (e *Engine) Discover(ctx context.Context, roles []domain.Role, explicit []domain.ServerNode) ([]domain.ServerNode, error) {
	servers := explicit
	if len(servers) == 0 {
		for _, r := range roles {
			found, err := e.client.ListServers(ctx, r)
			if err != nil {
				return nil, fmt.Errorf("发现 %s 服务器失败: %w", r, err)
			}
			e.logger.Info("发现服务器", zap.String("role", string(r)), zap.Int("count", len(found)))
			servers = append(servers, found...)
		}
	}
	servers = Normalize(servers)
	if len(servers) == 0 {
		return nil, ErrNoServers
	}
	return servers, nil
}

// Normalize 去掉空名称，按 (名称, 角色) 大小写不敏感去重，并按同样的 key 排序。
func Normalize(servers []domain.ServerNode) []domain.ServerNode {
	seen := make(map[string]struct{}, len(servers))
	out := make([]domain.ServerNode, 0, len(servers))
	for _, s := range servers {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			continue
		}
		if s.Role == "" {
			s.Role = domain.RoleDHCP
		}
		if s.Reachability == "" {
			s.Reachability = domain.ReachabilityUnknown
		}
		k := string(s.Role) + "/" + s.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	slices.SortStableFunc(out, func(a, b domain.ServerNode) int {
		return cmp.Or(
			strings.Compare(a.Key(), b.Key()),
			strings.Compare(string(a.Role), string(b.Role)),
		)
	})
	return out
}

// Walk 返回惰性事件序列，只能遍历一次。提前停止消费会取消未完成的调用。
func (e *Engine) Walk(ctx context.Context, servers []domain.ServerNode) iter.Seq[Event] {
	if e.parallel > 1 && len(servers) > 1 {
		return e.walkParallel(ctx, servers)
	}
	return func(yield func(Event) bool) {
		em := &emitter{yield: yield}
		for _, srv := range servers {
			if em.stopped {
				return
			}
			if ctx.Err() != nil {
				e.skipServer(ctx, srv, em)
				continue
			}
			e.visitServer(ctx, srv, em)
		}
	}
}

// walkParallel 每台服务器由一个 worker 独占，事件先缓冲，再按服务器顺序回放，
// 因此输出与串行一致。运行上下文结束后，尚未开始的 worker 只记录中断失败。
func (e *Engine) walkParallel(ctx context.Context, servers []domain.ServerNode) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.parallel)
		buffers := make([][]Event, len(servers))
		done := make([]chan struct{}, len(servers))
		for i := range done {
			done[i] = make(chan struct{})
		}
		scheduled := make(chan struct{})
		go func() {
			defer close(scheduled)
			for i, srv := range servers {
				g.Go(func() error {
					defer close(done[i])
					em := &emitter{yield: func(ev Event) bool {
						buffers[i] = append(buffers[i], ev)
						return true
					}}
					if gctx.Err() != nil {
						e.skipServer(gctx, srv, em)
						return nil
					}
					e.visitServer(gctx, srv, em)
					return nil
				})
			}
		}()
		defer func() {
			cancel()
			<-scheduled
			_ = g.Wait()
		}()

		for i := range servers {
			<-done[i]
			for _, ev := range buffers[i] {
				if !yield(ev) {
					return
				}
			}
		}
	}
}

type emitter struct {
	yield   func(Event) bool
	stopped bool
}

func (em *emitter) emit(ev Event) bool {
	if em.stopped {
		return false
	}
	if !em.yield(ev) {
		em.stopped = true
	}
	return !em.stopped
}

// attempt 是唯一的失败处理组合子：调用成功时逐条发出事件，失败时记录一条 FailureOccurred。
// 返回调用是否成功。
func attempt[T any](e *Engine, em *emitter, at domain.Failure, items []T, err error, wrap func(T) Event) bool {
	if !e.check(em, at, err) {
		return false
	}
	for _, item := range items {
		if !em.emit(wrap(item)) {
			break
		}
	}
	return true
}

// check 把调用错误转换为 FailureOccurred，err 为 nil 时返回 true。
func (e *Engine) check(em *emitter, at domain.Failure, err error) bool {
	if err == nil {
		return true
	}
	at.Kind = role.KindOf(err)
	at.Message = err.Error()
	e.fail(em, at)
	return false
}

func (e *Engine) fail(em *emitter, f domain.Failure) {
	e.logger.Warn("采集失败",
		zap.String("server", f.Server),
		zap.String("scope", f.Scope),
		zap.String("stage", string(f.Stage)),
		zap.String("kind", string(f.Kind)),
		zap.String("message", f.Message))
	em.emit(FailureOccurred{Failure: f})
}

// skipServer 为运行上下文结束后未访问的服务器记录一次 Unreachable，
// 使每台服务器都出现在清单中。
func (e *Engine) skipServer(ctx context.Context, srv domain.ServerNode, em *emitter) {
	srv.Reachability = domain.ReachabilityUnreachable
	if !em.emit(ServerVisited{Server: srv}) {
		return
	}
	stage := domain.StageScopes
	if srv.Role == domain.RoleDNS {
		stage = domain.StageZones
	}
	e.interrupted(ctx, em, domain.Failure{Server: srv.Name, Stage: stage})
}

// interrupted 记录因运行上下文结束而未完成的环节。
func (e *Engine) interrupted(ctx context.Context, em *emitter, at domain.Failure) {
	at.Kind = domain.FailureUnreachable
	at.Message = "遍历中断: " + ctx.Err().Error()
	e.fail(em, at)
}

// skipScope 发出未访问的作用域，租约与保留记为中断，计数因此为 Unknown。
func (e *Engine) skipScope(ctx context.Context, server string, sc domain.ScopeNode, em *emitter) {
	sc.Server = server
	if !em.emit(ScopeVisited{Scope: sc}) {
		return
	}
	for _, stage := range []domain.Stage{domain.StageLeases, domain.StageReservations} {
		e.interrupted(ctx, em, domain.Failure{Server: server, Scope: sc.ScopeID, Stage: stage})
		if em.stopped {
			return
		}
	}
}

func (e *Engine) visitServer(ctx context.Context, srv domain.ServerNode, em *emitter) {
	switch srv.Role {
	case domain.RoleDNS:
		e.visitDNS(ctx, srv, em)
	default:
		e.visitDHCP(ctx, srv, em)
	}
}

func (e *Engine) visitDHCP(ctx context.Context, srv domain.ServerNode, em *emitter) {
	name := srv.Name
	scopes, scopesErr := e.client.ListScopes(ctx, name)
	options, optionsErr := e.client.ListServerOptions(ctx, name)
	srv.Reachability = reachability(scopesErr, optionsErr)
	if !em.emit(ServerVisited{Server: srv}) {
		return
	}

	e.emitOptions(em, name, "", domain.StageServerOptions, options, optionsErr)
	if em.stopped {
		return
	}
	if !e.check(em, domain.Failure{Server: name, Stage: domain.StageScopes}, scopesErr) {
		return
	}

	slices.SortStableFunc(scopes, func(a, b domain.ScopeNode) int {
		return domain.CompareScopeIDs(a.ScopeID, b.ScopeID)
	})
	for _, sc := range scopes {
		if em.stopped {
			return
		}
		if ctx.Err() != nil {
			e.skipScope(ctx, name, sc, em)
			continue
		}
		e.visitScope(ctx, name, sc, em)
	}
}

func (e *Engine) visitScope(ctx context.Context, server string, sc domain.ScopeNode, em *emitter) {
	sc.Server = server
	id := sc.ScopeID
	if !em.emit(ScopeVisited{Scope: sc}) {
		return
	}
	if err := sc.Range.Validate(); err != nil {
		e.fail(em, domain.Failure{
			Server:  server,
			Scope:   id,
			Stage:   domain.StageScopeRange,
			Kind:    domain.FailureMalformedData,
			Message: err.Error(),
		})
	}

	at := func(stage domain.Stage) domain.Failure {
		return domain.Failure{Server: server, Scope: id, Stage: stage}
	}

	leases, err := e.client.ListLeases(ctx, server, id)
	attempt(e, em, at(domain.StageLeases), leases, err, func(l domain.LeaseRecord) Event {
		return LeaseFound{Server: server, ScopeID: id, Lease: l}
	})
	if em.stopped {
		return
	}
	for _, l := range leases {
		raw, ok := l.Attrs[domain.AttrInvalidExpiry]
		if !ok {
			continue
		}
		e.fail(em, domain.Failure{
			Server:  server,
			Scope:   id,
			Stage:   domain.StageLeaseDecode,
			Kind:    domain.FailureMalformedData,
			Message: fmt.Sprintf("租约 %s 到期时间无效: %q", l.IPAddress, raw),
		})
		if em.stopped {
			return
		}
	}

	reservations, err := e.client.ListReservations(ctx, server, id)
	attempt(e, em, at(domain.StageReservations), reservations, err, func(r domain.ReservationRecord) Event {
		return ReservationFound{Server: server, ScopeID: id, Reservation: r}
	})
	if em.stopped {
		return
	}

	exclusions, err := e.client.ListExclusions(ctx, server, id)
	attempt(e, em, at(domain.StageExclusions), exclusions, err, func(x domain.ExclusionRecord) Event {
		return ExclusionFound{Server: server, ScopeID: id, Exclusion: x}
	})
	if em.stopped {
		return
	}

	options, err := e.client.ListOptions(ctx, server, id)
	e.emitOptions(em, server, id, domain.StageOptions, options, err)
}

// emitOptions 解码选项；解码失败的选项以原始值发出，并额外记录 MalformedData。
func (e *Engine) emitOptions(em *emitter, server, scopeID string, stage domain.Stage, raws []domain.RawOption, err error) {
	if !e.check(em, domain.Failure{Server: server, Scope: scopeID, Stage: stage}, err) {
		return
	}
	for _, raw := range raws {
		rec, decodeErr := domain.DecodeOption(raw)
		if !em.emit(OptionFound{Server: server, ScopeID: scopeID, Option: rec}) {
			return
		}
		if decodeErr != nil {
			e.fail(em, domain.Failure{
				Server:  server,
				Scope:   scopeID,
				Stage:   domain.StageOptionDecode,
				Kind:    domain.FailureMalformedData,
				Message: decodeErr.Error(),
			})
			if em.stopped {
				return
			}
		}
	}
}

func (e *Engine) visitDNS(ctx context.Context, srv domain.ServerNode, em *emitter) {
	name := srv.Name
	zones, err := e.client.ListZones(ctx, name)
	srv.Reachability = reachability(err)
	if !em.emit(ServerVisited{Server: srv}) {
		return
	}
	if !e.check(em, domain.Failure{Server: name, Stage: domain.StageZones}, err) {
		return
	}

	slices.SortStableFunc(zones, func(a, b domain.ZoneRecord) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	for _, z := range zones {
		if em.stopped {
			return
		}
		z.Server = name
		if !em.emit(ZoneVisited{Zone: z}) {
			return
		}
		if ctx.Err() != nil {
			e.interrupted(ctx, em, domain.Failure{Server: name, Scope: z.Name, Stage: domain.StageRecords})
			continue
		}
		records, err := e.client.ListRecords(ctx, name, z.Name)
		zone := z.Name
		attempt(e, em, domain.Failure{Server: name, Scope: zone, Stage: domain.StageRecords}, records, err, func(r domain.ResourceRecord) Event {
			return RecordFound{Server: name, Zone: zone, Record: r}
		})
	}
}

// reachability 只要有一个调用成功，或失败不是 Unreachable，就认为服务器可达。
func reachability(errs ...error) domain.Reachability {
	for _, err := range errs {
		if err == nil || role.KindOf(err) != domain.FailureUnreachable {
			return domain.ReachabilityReachable
		}
	}
	return domain.ReachabilityUnreachable
}
