package fabric

import (
	"log/slog"
	"strings"
	"weak"
)

// ResourceTree is the trie of interned key-expression prefixes
// (spec.md §4.2). All operations assume the caller already holds the
// owning Tables' write lock for mutating calls (GetOrInsert, Clean)
// and at least a read lock for Get/Matches/ReversePath, matching the
// concurrency model in spec.md §5.
type ResourceTree struct {
	root *ResourceNode
	log  *slog.Logger
}

// NewResourceTree creates an empty tree containing only the root
// node ("/"), matching I2's baseline invariant.
func NewResourceTree(log *slog.Logger) *ResourceTree {
	if log == nil {
		log = slog.Default()
	}
	return &ResourceTree{root: newResourceNode(nil, ""), log: log}
}

// Root returns the tree's root node.
func (t *ResourceTree) Root() *ResourceNode { return t.root }

func splitSuffix(suffix string) []string {
	suffix = strings.TrimPrefix(suffix, "/")
	if suffix == "" {
		return nil
	}
	return strings.Split(suffix, "/")
}

// anchor resolves the starting point for a prefix+suffix walk: an
// absolute suffix (leading "/") always re-anchors at the root,
// "following parent links when called against the wrong anchor" as
// spec.md §4.2 puts it; anything else descends from prefix.
func (t *ResourceTree) anchor(prefix *ResourceNode, suffix string) (*ResourceNode, string) {
	if prefix == nil || strings.HasPrefix(suffix, "/") {
		return t.root, strings.TrimPrefix(suffix, "/")
	}
	return prefix, suffix
}

// Get walks the trie by segments and returns the node for
// prefix∥suffix if it already exists.
func (t *ResourceTree) Get(prefix *ResourceNode, suffix string) (*ResourceNode, bool) {
	anchor, suffix := t.anchor(prefix, suffix)
	cur := anchor
	for _, seg := range splitSuffix(suffix) {
		cur = cur.childFor(seg)
		if cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// GetOrInsert walks the trie by segments, creating any missing
// intermediate nodes, and returns the node for prefix∥suffix. Newly
// created leaves are logged at debug level and have their match-set
// computed and mirrored into every existing node whose expression
// intersects theirs (spec.md §4.2's match-set maintenance invariant).
func (t *ResourceTree) GetOrInsert(prefix *ResourceNode, suffix string) *ResourceNode {
	anchor, suffix := t.anchor(prefix, suffix)
	cur := anchor
	created := false
	for _, seg := range splitSuffix(suffix) {
		next := cur.childFor(seg)
		if next == nil {
			next = newResourceNode(cur, seg)
			cur.setChild(seg, next)
			created = true
		}
		cur = next
	}
	if created {
		t.log.Debug("register-resource", "expr", cur.Expr())
		t.computeMatchSet(cur)
	}
	return cur
}

// computeMatchSet fills in's match-set by walking the whole tree for
// intersecting expressions, and extends every matching node's
// match-set symmetrically (the relation is stored on both endpoints).
func (t *ResourceTree) computeMatchSet(n *ResourceNode) {
	nExpr := mustParse(n.Expr())
	weakN := weak.Make(n)
	t.walk(t.root, func(other *ResourceNode) {
		if other == n || other == t.root {
			return
		}
		oExpr := mustParse(other.Expr())
		if !Intersect(nExpr, oExpr) {
			return
		}
		n.ctx.matches = append(n.ctx.matches, weak.Make(other))
		other.ctx.matches = append(other.ctx.matches, weakN)
	})
	// A node always matches itself.
	n.ctx.matches = append(n.ctx.matches, weakN)
}

// joinExpr concatenates an absolute node expression (always starting
// with "/") and a relative suffix (possibly empty, possibly itself
// containing wildcard segments) into one absolute expression string.
func joinExpr(base, suffix string) string {
	if suffix == "" {
		return base
	}
	if base == "/" {
		return "/" + suffix
	}
	return base + "/" + suffix
}

func mustParse(s string) KeyExpr {
	ke, err := ParseKeyExpr(s)
	if err != nil {
		// The tree only ever stores segments that passed
		// validateSegment on the way in, so a re-parse of a non-root
		// node's expression cannot fail. The root's expression ("/")
		// has no segments and does not parse; tree walks skip it.
		panic(err)
	}
	return ke
}

func (t *ResourceTree) walk(n *ResourceNode, fn func(*ResourceNode)) {
	fn(n)
	n.forEachChild(func(c *ResourceNode) { t.walk(c, fn) })
}

// Clean removes n from the tree if it carries no declarers, no live
// session, and has no children, then recurses upward to collapse any
// now-empty ancestor chain. It returns true if n itself was removed.
func (t *ResourceTree) Clean(n *ResourceNode) bool {
	if n == t.root || n == nil {
		return false
	}
	if n.hasChildren() || n.ctx.HasDeclarers() {
		return false
	}
	parent := n.Parent()
	if parent == nil {
		// Already detached.
		return true
	}
	parent.removeChild(n.segment)
	t.pruneMatchSet(n)
	t.Clean(parent)
	return true
}

// pruneMatchSet drops n's weak entry from every node it used to match
// with. Weak entries that have already expired are skipped lazily;
// this call is an optimization, not a correctness requirement, since
// a dead weak.Pointer is filtered out on read regardless.
func (t *ResourceTree) pruneMatchSet(n *ResourceNode) {
	for _, wp := range n.ctx.matches {
		other := wp.Value()
		if other == nil || other == n {
			continue
		}
		filtered := other.ctx.matches[:0]
		for _, owp := range other.ctx.matches {
			if owp.Value() != n {
				filtered = append(filtered, owp)
			}
		}
		other.ctx.matches = filtered
	}
	n.ctx.matches = nil
}

// Matches returns every live node whose expression intersects
// prefix∥suffix. When that exact node already exists in the tree, its
// precomputed match-set is reused (after filtering expired weak
// entries); otherwise the set is recomputed on the fly by walking the
// whole tree. Ordering is unspecified but stable within one call.
func (t *ResourceTree) Matches(prefix *ResourceNode, suffix string) []*ResourceNode {
	if n, ok := t.Get(prefix, suffix); ok {
		out := make([]*ResourceNode, 0, len(n.ctx.matches))
		for _, wp := range n.ctx.matches {
			if v := wp.Value(); v != nil {
				out = append(out, v)
			}
		}
		return out
	}

	anchor, suf := t.anchor(prefix, suffix)
	target := mustParse(joinExpr(anchor.Expr(), suf))
	var out []*ResourceNode
	t.walk(t.root, func(other *ResourceNode) {
		if other == t.root {
			return
		}
		oExpr := mustParse(other.Expr())
		if Intersect(target, oExpr) {
			out = append(out, other)
		}
	})
	return out
}

// ReversePath walks from root down the concrete (wildcard-free)
// prefix of prefix∥suffix and returns the deepest node already
// interned, used by callers picking the shortest wire-expr form for a
// face's mapping table.
func (t *ResourceTree) ReversePath(prefix *ResourceNode, suffix string) *ResourceNode {
	anchor, suf := t.anchor(prefix, suffix)
	cur := anchor
	for _, seg := range splitSuffix(suf) {
		if seg == "*" || seg == "**" {
			break
		}
		next := cur.childFor(seg)
		if next == nil {
			break
		}
		cur = next
	}
	return cur
}
