package fabric

// txn.go holds the copy-on-write route-cache entry points: a reader on
// the hot path only ever takes Tables' read lock and an atomic load
// (ResourceContext.cachedRoute); recomputing and publishing a route
// never blocks a concurrent reader, mirroring the teacher's
// atomic.Pointer route-cache swap.

// localRouteIdx is the cache key for a push/declare route: 0 means
// "computed for a locally originated message", anything else is a
// link-state tree index (spec.md §4.4/§4.6).
const localRouteIdx = 0

// DataRouteFor returns the DataRoute for node at source index idx
// without srcFace's own entry. The cached route is computed with no
// origin face, computed and published first if the cache missed;
// srcFace is filtered out per call, so one cached route serves every
// origin. Callers must hold at least the Tables read lock.
func (t *Tables) DataRouteFor(node *ResourceNode, srcFace *Face, idx int) *DataRoute {
	ctx := node.Context()
	route := ctx.cachedRoute(idx)
	if route == nil {
		route = ComputeDataRoute(node, nil, t.hat)
		ctx.storeRoute(idx, route)
	}
	if srcFace == nil {
		return route
	}
	out := &DataRoute{Routes: make([]RouteEntry, 0, len(route.Routes))}
	for _, e := range route.Routes {
		if e.Face.ID != srcFace.ID {
			out.Routes = append(out.Routes, e)
		}
	}
	return out
}

// ClientRouteFor returns the cached single-face client route for node,
// computing and publishing it first if the cache missed.
func (t *Tables) ClientRouteFor(node *ResourceNode, srcFace *Face) *DataRoute {
	if r := node.Context().ClientRoute(); r != nil {
		return r
	}
	route := ComputeDataRoute(node, srcFace, t.hat)
	node.Context().SetClientRoute(route)
	return route
}

// QueryRouteFor computes the fan-out for a query reaching node; unlike
// data routes, query routes are not cached across calls because the
// QueryTarget policy varies per request.
func (t *Tables) QueryRouteFor(node *ResourceNode, srcFace *Face, target queryTargetPolicy) *DataRoute {
	return ComputeQueryRoute(node, srcFace, target, t.hat)
}

// InvalidateRoutes drops the cached routes for every node matching
// expr (spec.md §4.6: a declarer-set change invalidates routes for the
// resources it touches, not the whole tree). Callers must hold the
// write lock.
func (t *Tables) InvalidateRoutes(expr string) {
	for _, n := range t.tree.Matches(t.tree.Root(), expr) {
		n.Context().invalidateRoutes()
	}
}
