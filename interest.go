package fabric

import "github.com/meshfabric/fabric/wire"

// Interest is the engine-side tracking record for a declare-interest
// subscription (spec.md §4.3), distinct from wire.Interest which is
// only the decoded wire shape. An Interest names a KeyExpr and the
// declaration kinds it covers. InterestCurrent and
// InterestCurrentFuture are answered with a replay of the current
// subscriber and queryable declarations ending in DeclareFinal. Unless
// Mode is InterestCurrent the Interest is then recorded on its face
// until a Final closes it; a recorded Interest is not sent later
// declaration changes.
type Interest struct {
	ID      uint64
	Face    *Face
	KeyExpr *KeyExpr // nil means "wildcard over everything this face can see"
	Mode    wire.InterestMode
	Options wire.InterestOptions

	// Finalized is set once the DeclareFinal ending this interest's
	// current-state replay has been sent. An InterestCurrent interest
	// is never recorded on the face, so nothing keeps it open.
	Finalized bool
}

// WantsSubscribers reports whether changes to subscriber declarations
// should be reported to this interest.
func (it *Interest) WantsSubscribers() bool { return it.Options.Subscribers }

// WantsQueryables reports whether changes to queryable declarations
// should be reported to this interest.
func (it *Interest) WantsQueryables() bool { return it.Options.Queryables }

// WantsTokens reports whether changes to liveliness tokens should be
// reported to this interest.
func (it *Interest) WantsTokens() bool { return it.Options.Tokens }

// matches reports whether node's expression falls under this
// interest's watched KeyExpr (nil KeyExpr matches everything).
func (it *Interest) matches(node *ResourceNode) bool {
	if it.KeyExpr == nil {
		return true
	}
	ke, err := ParseKeyExpr(node.Expr())
	if err != nil {
		return false
	}
	return Intersect(*it.KeyExpr, ke)
}
