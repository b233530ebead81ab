package fabric

import "github.com/meshfabric/fabric/wire"

// handleLiveliness processes an inbound DeclareToken/UndeclareToken
// (SPEC_FULL.md §4.9, supplemented from the original implementation's
// liveliness tokens): a token is a declarer like a subscriber, except
// it carries no data plane — its only effect is the session's
// TokenInfo flag and the same Declare fan-out as any other
// declaration. Interest replay does not report tokens, even for an
// interest with Options.Tokens set.
func (d *Dispatcher) handleLiveliness(face *Face, msg wire.Declare, body wire.DeclareBody) {
	switch b := body.(type) {
	case wire.DeclareToken:
		node, ok := d.resolveWire(face, b.KeyExpr)
		if !ok {
			return
		}
		d.tables.WithWriteLock(func(_ *ResourceTree) {
			ctx := node.Context()
			ctx.Session(face).TokenInfo = true
			d.tables.InvalidateRoutes(node.Expr())
		})
		d.broadcastDeclare(face, node, msg)

	case wire.UndeclareToken:
		node, ok := d.resolveWire(face, b.KeyExpr)
		if !ok {
			return
		}
		d.tables.WithWriteLock(func(tree *ResourceTree) {
			ctx := node.Context()
			if sc, ok := ctx.sessions[face.ID]; ok {
				sc.TokenInfo = false
				ctx.DropSession(face.ID)
			}
			d.tables.InvalidateRoutes(node.Expr())
			tree.Clean(node)
		})
		d.broadcastDeclare(face, node, msg)
	}
}

// LivelinessDeclarers returns the ZIDs of every face holding a live
// token on node itself; tokens on other nodes of node's match-set are
// not included. The admin space does not report tokens.
func LivelinessDeclarers(node *ResourceNode) []ZID {
	ctx := node.Context()
	var out []ZID
	for _, sc := range ctx.sessions {
		if sc.TokenInfo {
			out = append(out, sc.Face.ZID)
		}
	}
	return out
}
