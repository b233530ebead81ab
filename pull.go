package fabric

import "github.com/meshfabric/fabric/wire"

// cachePulled stores push as the pending value for a Pull-mode
// subscriber session, overwriting whatever was cached before (spec.md
// §4.6: only the most recent Put is kept between drains).
func cachePulled(sc *SessionContext, push wire.Push) {
	sc.pullMu.Lock()
	defer sc.pullMu.Unlock()
	v := push
	sc.LastValues = &v
}

// drainPulled takes and clears the cached value, returning (value,
// true) if one was pending or (zero, false) if the subscriber has
// nothing new since its last pull.
func drainPulled(sc *SessionContext) (wire.Push, bool) {
	sc.pullMu.Lock()
	defer sc.pullMu.Unlock()
	if sc.LastValues == nil {
		return wire.Push{}, false
	}
	v := *sc.LastValues
	sc.LastValues = nil
	return v, true
}

// Pull drains the cached value (if any) for face's Pull-mode
// subscription on node and delivers it via face's Primitives,
// returning false if nothing was pending.
func Pull(node *ResourceNode, face *Face) bool {
	ctx := node.Context()
	sc, ok := ctx.sessions[face.ID]
	if !ok || sc.SubInfo == nil || !sc.SubInfo.Pull {
		return false
	}
	push, ok := drainPulled(sc)
	if !ok {
		return false
	}
	push.KeyExpr = wire.WireExpr{Suffix: node.Expr()}
	return face.SendPush(push)
}
