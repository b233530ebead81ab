package fabric

import (
	"sync"
	"sync/atomic"
	"weak"

	"github.com/meshfabric/fabric/wire"
)

// QueryableInfo carries the completeness and distance metadata
// attached to a queryable declaration, merged across replicas via
// MergeQueryableInfo (spec.md §4.5).
type QueryableInfo struct {
	Complete bool
	Distance uint32
}

// MergeQueryableInfo combines two QueryableInfo values for the same
// key expression declared by more than one reachable queryable:
// complete if either replica is complete, distance the minimum of the
// two.
func MergeQueryableInfo(a, b QueryableInfo) QueryableInfo {
	return QueryableInfo{
		Complete: a.Complete || b.Complete,
		Distance: min(a.Distance, b.Distance),
	}
}

// SessionContext is the per-(node,face) state: at most one exists for
// a given pair (spec.md §3 invariant). It is created on first mention
// of a face under a resource and destroyed once it holds no role.
type SessionContext struct {
	Face *Face

	LocalExprID  *uint64
	RemoteExprID *uint64

	SubInfo   *SubInfo
	QblInfo   *QueryableInfo
	TokenInfo bool

	// pullMu guards LastValues independently of the Tables lock, so a
	// pull drain never blocks route computation (spec.md §4.6).
	pullMu sync.Mutex
	// LastValues caches the most recent Put per key for a Pull-mode
	// subscriber; read/written only through pull.go's helpers.
	LastValues *wire.Push
}

// SubInfo carries a subscriber declaration's mode.
type SubInfo struct {
	Pull bool
}

// idle reports whether this SessionContext holds no role and can be
// dropped.
func (s *SessionContext) idle() bool {
	return s.SubInfo == nil && s.QblInfo == nil && !s.TokenInfo
}

// ResourceContext is the "Weight" carried by every ResourceNode: the
// per-face session table, the declarer sets partitioned by role, the
// precomputed match-set, and the route cache. It always exists (Go
// has no cheap Option<T>, so internal trie nodes simply carry a
// zero-valued ResourceContext rather than an absent one).
type ResourceContext struct {
	node *ResourceNode

	sessions map[uint64]*SessionContext // keyed by Face.ID

	subDeclarers map[FaceRole]map[ZID]struct{}
	qblDeclarers map[FaceRole]map[ZID]QueryableInfo

	// matches holds weak references to every node whose expression
	// intersects this node's expression; weak so a cleaned node drops
	// out of other nodes' match-sets without an explicit sweep.
	matches []weak.Pointer[ResourceNode]

	// routeCache caches compute_data_route/compute_query_route results
	// keyed by source-tree index (0 = locally originated); held behind
	// an atomic.Pointer so a recompute publishes a whole new map in one
	// swap and concurrent readers never see a partially updated cache
	// (same copy-on-write shape as the teacher's route-cache swap).
	routeCache atomic.Pointer[map[int]*DataRoute]
	// clientRoute is the single-face route used for Client hat nodes.
	clientRoute atomic.Pointer[DataRoute]
}

// cachedRoute returns the cached DataRoute for tree index idx, or nil
// if none is cached.
func (c *ResourceContext) cachedRoute(idx int) *DataRoute {
	m := c.routeCache.Load()
	if m == nil {
		return nil
	}
	return (*m)[idx]
}

// storeRoute publishes route for tree index idx by copy-on-write:
// it clones the current cache map, sets the one entry, and swaps the
// pointer, so concurrent readers of the old map are unaffected.
func (c *ResourceContext) storeRoute(idx int, route *DataRoute) {
	for {
		old := c.routeCache.Load()
		next := make(map[int]*DataRoute, len(derefRouteMap(old))+1)
		for k, v := range derefRouteMap(old) {
			next[k] = v
		}
		next[idx] = route
		if c.routeCache.CompareAndSwap(old, &next) {
			return
		}
	}
}

func derefRouteMap(m *map[int]*DataRoute) map[int]*DataRoute {
	if m == nil {
		return nil
	}
	return *m
}

// ClientRoute returns the cached single-face client route, if any.
func (c *ResourceContext) ClientRoute() *DataRoute { return c.clientRoute.Load() }

// SetClientRoute publishes a new client route.
func (c *ResourceContext) SetClientRoute(route *DataRoute) { c.clientRoute.Store(route) }

// Node returns the owning ResourceNode.
func (c *ResourceContext) Node() *ResourceNode { return c.node }

// Matches returns every live node whose expression intersects this
// node's, including the node itself, via the match-set ResourceTree
// maintains as resources are declared (spec.md §4.2). Route computation
// consults every one of these nodes' declarer sets, not just this
// node's own, so a subscriber/queryable declared on a broader
// intersecting expression (e.g. "a/**") is still reached by traffic on
// a narrower one (e.g. "a/b") and vice versa (spec.md §4.6 step 1).
func (c *ResourceContext) Matches() []*ResourceNode {
	out := make([]*ResourceNode, 0, len(c.matches))
	for _, wp := range c.matches {
		if v := wp.Value(); v != nil {
			out = append(out, v)
		}
	}
	return out
}

// Session returns (creating if necessary) the SessionContext for
// face, enforcing the "at most one per (node,face)" invariant.
func (c *ResourceContext) Session(f *Face) *SessionContext {
	if c.sessions == nil {
		c.sessions = make(map[uint64]*SessionContext)
	}
	sc, ok := c.sessions[f.ID]
	if !ok {
		sc = &SessionContext{Face: f}
		c.sessions[f.ID] = sc
	}
	return sc
}

// DropSession removes face's SessionContext if present and idle.
func (c *ResourceContext) DropSession(faceID uint64) {
	sc, ok := c.sessions[faceID]
	if !ok {
		return
	}
	if sc.idle() {
		delete(c.sessions, faceID)
	}
}

// AddSubDeclarer records that zid (seen through a face of the given
// role) declared a subscriber on this resource.
func (c *ResourceContext) AddSubDeclarer(role FaceRole, zid ZID) {
	if c.subDeclarers == nil {
		c.subDeclarers = make(map[FaceRole]map[ZID]struct{})
	}
	set, ok := c.subDeclarers[role]
	if !ok {
		set = make(map[ZID]struct{})
		c.subDeclarers[role] = set
	}
	set[zid] = struct{}{}
}

// RemoveSubDeclarer undoes AddSubDeclarer.
func (c *ResourceContext) RemoveSubDeclarer(role FaceRole, zid ZID) {
	if set, ok := c.subDeclarers[role]; ok {
		delete(set, zid)
	}
}

// SubDeclarers returns the declarer ZID set for role (nil if none).
func (c *ResourceContext) SubDeclarers(role FaceRole) map[ZID]struct{} {
	return c.subDeclarers[role]
}

// AddQblDeclarer records/merges a queryable declaration from zid.
func (c *ResourceContext) AddQblDeclarer(role FaceRole, zid ZID, info QueryableInfo) {
	if c.qblDeclarers == nil {
		c.qblDeclarers = make(map[FaceRole]map[ZID]QueryableInfo)
	}
	set, ok := c.qblDeclarers[role]
	if !ok {
		set = make(map[ZID]QueryableInfo)
		c.qblDeclarers[role] = set
	}
	if existing, ok := set[zid]; ok {
		info = MergeQueryableInfo(existing, info)
	}
	set[zid] = info
}

// RemoveQblDeclarer undoes AddQblDeclarer.
func (c *ResourceContext) RemoveQblDeclarer(role FaceRole, zid ZID) {
	if set, ok := c.qblDeclarers[role]; ok {
		delete(set, zid)
	}
}

// QblDeclarers returns the queryable declarer map for role.
func (c *ResourceContext) QblDeclarers(role FaceRole) map[ZID]QueryableInfo {
	return c.qblDeclarers[role]
}

// HasDeclarers reports whether this resource is still referenced by
// any subscriber/queryable declarer or holds a live session, i.e.
// whether Clean must keep it.
func (c *ResourceContext) HasDeclarers() bool {
	for _, set := range c.subDeclarers {
		if len(set) > 0 {
			return true
		}
	}
	for _, set := range c.qblDeclarers {
		if len(set) > 0 {
			return true
		}
	}
	for _, sc := range c.sessions {
		if !sc.idle() {
			return true
		}
	}
	return false
}

// invalidateRoutes drops every cached route for this resource; called
// whenever its declarer set changes or the owning network's trees are
// recomputed (spec.md §4.6).
func (c *ResourceContext) invalidateRoutes() {
	c.routeCache.Store(nil)
	c.clientRoute.Store(nil)
}
