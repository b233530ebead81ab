package fabric

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/meshfabric/fabric/wire"
)

// Dispatcher wires inbound messages from any Face through Tables:
// declarations mutate the resource tree and fan out to the faces the
// Hat says should see them, pushes and queries follow the cached
// routes computed from that same tree (spec.md §4.6/§4.7).
type Dispatcher struct {
	tables *Tables
	log    *slog.Logger
	admin  *AdminSpace

	nextRequestID atomic.Uint64

	queriesMu sync.Mutex
	queries   map[uint64]*Query // local queries awaiting downstream replies, keyed by our own query id
}

// NewDispatcher builds a Dispatcher bound to tables.
func NewDispatcher(tables *Tables) *Dispatcher {
	return &Dispatcher{
		tables:  tables,
		log:     tables.log.With("component", "dispatch"),
		admin:   NewAdminSpace(tables),
		queries: make(map[uint64]*Query),
	}
}

// resolveWire maps a wire.WireExpr back to a ResourceNode through the
// originating face's id tables (spec.md §3 compression scheme): Scope
// 0 means Suffix is already an absolute expression, otherwise Scope is
// a previously declared local/remote id the suffix extends.
func (d *Dispatcher) resolveWire(face *Face, we wire.WireExpr) (*ResourceNode, bool) {
	if we.Scope == 0 {
		n, ok := d.tables.Lookup(we.Suffix)
		return n, ok
	}
	// OnSender true: Scope indexes the id space the message's sender
	// (this face's remote peer) assigned, i.e. our "remote" table.
	// OnSender false: Scope indexes an id we ourselves assigned earlier
	// and the peer is merely echoing back, i.e. our "local" table.
	side := MappingSender
	if we.OnSender {
		side = MappingReceiver
	}
	base, ok := face.mapping.Resolve(side, we.Scope)
	if !ok {
		return nil, false
	}
	if we.Suffix == "" {
		return base, true
	}
	d.tables.mu.RLock()
	defer d.tables.mu.RUnlock()
	return d.tables.tree.Get(base, we.Suffix)
}

// HandleDeclare processes an inbound Declare message from face.
func (d *Dispatcher) HandleDeclare(face *Face, msg wire.Declare) {
	switch b := msg.Body.(type) {
	case wire.DeclareKeyExpr:
		expr := b.Expr
		var node *ResourceNode
		if b.Scope != 0 {
			base, ok := face.mapping.Resolve(MappingReceiver, b.Scope)
			if !ok {
				d.log.Warn("declare-keyexpr: unknown scope", "face_id", face.ID, "scope", b.Scope)
				return
			}
			var err error
			node, err = d.tables.Resolve(base.Expr() + "/" + b.Suffix)
			if err != nil {
				return
			}
		} else {
			var err error
			node, err = d.tables.Resolve(expr)
			if err != nil {
				d.log.Warn("declare-keyexpr: invalid", "face_id", face.ID, "expr", expr, "err", err)
				return
			}
		}
		_ = face.mapping.Declare(MappingReceiver, b.ID, node)

	case wire.UndeclareKeyExpr:
		face.mapping.Undeclare(MappingReceiver, b.ID)

	case wire.DeclareSubscriber:
		node, ok := d.resolveWire(face, b.KeyExpr)
		if !ok {
			return
		}
		d.tables.WithWriteLock(func(_ *ResourceTree) {
			ctx := node.Context()
			ctx.Session(face).SubInfo = &SubInfo{Pull: b.Pull}
			ctx.AddSubDeclarer(face.Role, b.ZID)
			d.tables.InvalidateRoutes(node.Expr())
		})
		d.broadcastDeclare(face, node, msg)

	case wire.UndeclareSubscriber:
		node, ok := d.resolveWire(face, b.KeyExpr)
		if !ok {
			return
		}
		d.tables.WithWriteLock(func(tree *ResourceTree) {
			ctx := node.Context()
			if sc, ok := ctx.sessions[face.ID]; ok {
				sc.SubInfo = nil
				ctx.DropSession(face.ID)
			}
			ctx.RemoveSubDeclarer(face.Role, b.ZID)
			d.tables.InvalidateRoutes(node.Expr())
			tree.Clean(node)
		})
		d.broadcastDeclare(face, node, msg)

	case wire.DeclareQueryable:
		node, ok := d.resolveWire(face, b.KeyExpr)
		if !ok {
			return
		}
		info := QueryableInfo{Complete: b.Complete, Distance: b.Distance}
		d.tables.WithWriteLock(func(_ *ResourceTree) {
			ctx := node.Context()
			ctx.Session(face).QblInfo = &info
			ctx.AddQblDeclarer(face.Role, b.ZID, info)
			d.tables.InvalidateRoutes(node.Expr())
		})
		d.broadcastDeclare(face, node, msg)

	case wire.UndeclareQueryable:
		node, ok := d.resolveWire(face, b.KeyExpr)
		if !ok {
			return
		}
		d.tables.WithWriteLock(func(tree *ResourceTree) {
			ctx := node.Context()
			if sc, ok := ctx.sessions[face.ID]; ok {
				sc.QblInfo = nil
				ctx.DropSession(face.ID)
			}
			ctx.RemoveQblDeclarer(face.Role, b.ZID)
			d.tables.InvalidateRoutes(node.Expr())
			tree.Clean(node)
		})
		d.broadcastDeclare(face, node, msg)

	case wire.DeclareToken, wire.UndeclareToken:
		d.handleLiveliness(face, msg, b)

	case wire.DeclareFinal:
		if msg.InterestID != nil {
			face.finalizeInterest(*msg.InterestID)
		}
	}
}

// broadcastDeclare re-sends msg to every face the hat's egress policy
// admits for node, other than the one it arrived from — declarations
// propagate through the network the same way data routes do (spec.md
// §4.4).
func (d *Dispatcher) broadcastDeclare(origin *Face, node *ResourceNode, msg wire.Declare) {
	d.tables.mu.RLock()
	route := d.tables.DataRouteFor(node, origin, localRouteIdx)
	targets := make([]*Face, 0, len(route.Routes))
	for _, e := range route.Routes {
		targets = append(targets, e.Face)
	}
	d.tables.mu.RUnlock()
	for _, f := range targets {
		f.SendDeclare(msg)
	}
}

// HandlePush routes an inbound data message to every matching
// subscriber across node's match-set, caching it instead for any that
// are in Pull mode (spec.md §4.6).
func (d *Dispatcher) HandlePush(face *Face, msg wire.Push) {
	node, ok := d.resolveWire(face, msg.KeyExpr)
	if !ok {
		d.log.Debug("push: unresolved key expr", "face_id", face.ID)
		return
	}

	d.tables.mu.RLock()
	route := d.tables.DataRouteFor(node, face, localRouteIdx)
	pullTargets := CollectPullTargets(node, face, d.tables.hat)
	d.tables.mu.RUnlock()

	for _, sc := range pullTargets {
		cachePulled(sc, msg)
	}

	for _, e := range route.Routes {
		out := msg
		out.KeyExpr = wire.WireExpr{Suffix: node.Expr()}
		e.Face.SendPush(out)
	}
}

// HandleInterest processes an inbound declare-interest from face: it
// records the interest on face unless Mode is InterestCurrent, and
// replays current matching state if Mode requests it (spec.md §4.3).
// A recorded interest is not sent later declaration changes.
func (d *Dispatcher) HandleInterest(face *Face, msg wire.Interest) {
	var ke *KeyExpr
	if msg.KeyExpr != nil {
		if parsed, err := ParseKeyExpr(msg.KeyExpr.Suffix); err == nil {
			ke = &parsed
		}
	}
	it := &Interest{ID: msg.ID, Face: face, KeyExpr: ke, Mode: msg.Mode, Options: msg.Options}

	if msg.Mode == wire.InterestFinal {
		face.finalizeInterest(msg.ID)
		return
	}
	if msg.Mode != wire.InterestCurrent {
		_ = face.DeclareInterest(it)
	}

	if msg.Mode == wire.InterestCurrent || msg.Mode == wire.InterestCurrentFuture {
		d.replayCurrent(face, it)
	}
}

// replayCurrent sends a Declare for every currently-live declaration
// the interest's options select, then a DeclareFinal to mark the
// current-state replay complete.
func (d *Dispatcher) replayCurrent(face *Face, it *Interest) {
	d.tables.mu.RLock()
	var matches []*ResourceNode
	expr := "**"
	if it.KeyExpr != nil {
		expr = it.KeyExpr.String()
	}
	matches = d.tables.tree.Matches(d.tables.tree.Root(), expr)
	d.tables.mu.RUnlock()

	for _, n := range matches {
		ctx := n.Context()
		if it.WantsSubscribers() {
			for role, set := range ctx.subDeclarers {
				for zid := range set {
					face.SendDeclare(wire.Declare{
						InterestID: &it.ID,
						Body:       wire.DeclareSubscriber{KeyExpr: wire.WireExpr{Suffix: n.Expr()}, ZID: [16]byte(zid), Distance: uint32(role)},
					})
				}
			}
		}
		if it.WantsQueryables() {
			for _, set := range ctx.qblDeclarers {
				for zid, info := range set {
					face.SendDeclare(wire.Declare{
						InterestID: &it.ID,
						Body:       wire.DeclareQueryable{KeyExpr: wire.WireExpr{Suffix: n.Expr()}, ZID: [16]byte(zid), Complete: info.Complete, Distance: info.Distance},
					})
				}
			}
		}
	}
	face.SendDeclare(wire.Declare{InterestID: &it.ID, Body: wire.DeclareFinal{}})
	it.Finalized = true
}

// HandleRequest processes an inbound query from face: it fans the
// request out to every matching queryable, bridges replies back
// through a Query's consolidation policy, and answers with
// ResponseFinal once every branch (and any admin-space answer) is
// done.
func (d *Dispatcher) HandleRequest(face *Face, msg wire.Request) {
	node, ok := d.resolveWire(face, msg.KeyExpr)
	if !ok {
		face.SendResponseFinal(wire.ResponseFinal{RID: msg.ID})
		return
	}
	ke, err := ParseKeyExpr(node.Expr())
	if err != nil {
		face.SendResponseFinal(wire.ResponseFinal{RID: msg.ID})
		return
	}

	target := resolveTargetPolicy(msg.Target)

	q := NewQuery(context.Background(), msg.ID, face, ke, msg.Target, msg.Body.Consolidation, msg.Budget, msg.Timeout,
		func(r wire.Response) {
			r.RID = msg.ID
			face.SendResponse(r)
		},
		func() { face.SendResponseFinal(wire.ResponseFinal{RID: msg.ID}) },
	)

	if d.admin.Answer(q) {
		return
	}

	d.tables.mu.RLock()
	route := d.tables.QueryRouteFor(node, face, target)
	d.tables.mu.RUnlock()

	if len(route.Routes) == 0 {
		q.Finalize()
		return
	}

	face.trackQuery(q)
	for _, e := range route.Routes {
		d.queriesMu.Lock()
		qid := d.nextRequestID.Add(1)
		d.queries[qid] = q
		d.queriesMu.Unlock()

		q.Fanout(e.Face.ID)
		out := msg
		out.ID = qid
		out.KeyExpr = wire.WireExpr{Suffix: e.Suffix}
		if !e.Face.SendRequest(out) {
			d.queriesMu.Lock()
			delete(d.queries, qid)
			d.queriesMu.Unlock()
			if q.BranchFinal(e.Face.ID) {
				face.untrackQuery(q.QID)
				q.Finalize()
			}
		}
	}
}

// HandleResponse routes a partial reply arriving on face back to the
// Query that originated the downstream request it answers.
func (d *Dispatcher) HandleResponse(face *Face, msg wire.Response) {
	d.queriesMu.Lock()
	q, ok := d.queries[msg.RID]
	d.queriesMu.Unlock()
	if !ok {
		return
	}
	q.AddReply(msg)
}

// HandleResponseFinal closes out one branch of a query; once every
// branch has reported final the Query is finalized and its bookkeeping
// reclaimed.
func (d *Dispatcher) HandleResponseFinal(face *Face, msg wire.ResponseFinal) {
	d.queriesMu.Lock()
	q, ok := d.queries[msg.RID]
	delete(d.queries, msg.RID)
	d.queriesMu.Unlock()
	if !ok {
		return
	}
	if q.BranchFinal(face.ID) {
		if q.Origin != nil {
			q.Origin.untrackQuery(q.QID)
		}
		q.Finalize()
	}
}

func resolveTargetPolicy(t wire.QueryTarget) queryTargetPolicy {
	switch v := t.(type) {
	case wire.TargetAll:
		return allPolicy{}
	case wire.TargetAllComplete:
		return allPolicy{completeOnly: true}
	case wire.TargetComplete:
		return completeNPolicy{n: v.N}
	default:
		return bestMatchingPolicy{}
	}
}
