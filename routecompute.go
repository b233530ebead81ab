package fabric

// DataRoute is the precomputed fan-out list cached on a
// ResourceContext: for a given source (the local face, or a
// link-state tree index), the set of (face, wire expr id) pairs a
// Push/Request must be replicated to (spec.md §4.6). It is invalidated
// wholesale whenever the declarer set or the link-state trees change.
type DataRoute struct {
	Routes []RouteEntry
}

// RouteEntry is one outbound branch of a DataRoute.
type RouteEntry struct {
	Face    *Face
	LocalID uint64 // the face's local expr-id for the target resource, 0 if unmapped
	Suffix  string // suffix to send when the face has no exact mapping
	QblInfo *QueryableInfo
}

// ComputeDataRoute builds the fan-out set for a push/declare
// originating from srcFace (nil for locally originated) reaching
// node, honoring the routing policy of hat (spec.md §4.5): every
// non-Pull subscriber session on any node in node's match-set whose
// declarer role the hat's egress policy admits (spec.md §4.6 step 1:
// a subscriber declared on an intersecting-but-different expression,
// e.g. "a/**" for a push on "a/b", is consulted too, not only sessions
// on the exact node), excluding the originating face so messages never
// echo back, and deduped by face so a face matched through more than
// one intersecting node is only routed to once.
func ComputeDataRoute(node *ResourceNode, srcFace *Face, hat Hat) *DataRoute {
	route := &DataRoute{}
	seen := make(map[uint64]bool)
	for _, mn := range node.Context().Matches() {
		for faceID, sc := range mn.Context().sessions {
			if srcFace != nil && faceID == srcFace.ID {
				continue
			}
			if seen[faceID] {
				continue
			}
			if sc.SubInfo == nil || sc.SubInfo.Pull {
				continue
			}
			if !hat.AllowEgress(sc.Face, node) {
				continue
			}
			seen[faceID] = true
			localID, _ := sc.Face.mapping.LocalIDFor(node)
			route.Routes = append(route.Routes, RouteEntry{Face: sc.Face, LocalID: localID, Suffix: node.Expr()})
		}
	}
	return route
}

// CollectPullTargets returns the Pull-mode subscriber sessions across
// node's match-set that a push on node must cache its value into
// (spec.md §4.6): like ComputeDataRoute, a Pull subscriber declared on
// an intersecting-but-different expression is still a target, not only
// one declared on the exact pushed node. Excludes srcFace and sessions
// the hat's egress policy would not otherwise forward to, deduped by
// face.
func CollectPullTargets(node *ResourceNode, srcFace *Face, hat Hat) []*SessionContext {
	var out []*SessionContext
	seen := make(map[uint64]bool)
	for _, mn := range node.Context().Matches() {
		for faceID, sc := range mn.Context().sessions {
			if srcFace != nil && faceID == srcFace.ID {
				continue
			}
			if seen[faceID] {
				continue
			}
			if sc.SubInfo == nil || !sc.SubInfo.Pull {
				continue
			}
			if !hat.AllowEgress(sc.Face, node) {
				continue
			}
			seen[faceID] = true
			out = append(out, sc)
		}
	}
	return out
}

// ComputeQueryRoute builds the fan-out set for a query reaching node,
// applying target's selection policy (spec.md §4.7) over the
// queryable declarers visible across node's match-set (spec.md §4.6
// step 1: a queryable declared on "x/**" is consulted for a Request on
// "x/y" too): BestMatching keeps only the single nearest declarer,
// All/AllComplete widen to every declarer (AllComplete additionally
// requiring Complete==true), Complete(n) keeps the n lowest-distance
// complete declarers, ordered by ascending distance then ZID byte
// order on exact ties (Open Question decision, see DESIGN.md). Faces
// matched through more than one intersecting node are deduped.
func ComputeQueryRoute(node *ResourceNode, srcFace *Face, target queryTargetPolicy, hat Hat) *DataRoute {
	route := &DataRoute{}
	seen := make(map[uint64]bool)
	for _, mn := range node.Context().Matches() {
		for faceID, sc := range mn.Context().sessions {
			if srcFace != nil && faceID == srcFace.ID {
				continue
			}
			if seen[faceID] {
				continue
			}
			if sc.QblInfo == nil {
				continue
			}
			if !hat.AllowEgress(sc.Face, node) {
				continue
			}
			if !target.admits(*sc.QblInfo) {
				continue
			}
			seen[faceID] = true
			localID, _ := sc.Face.mapping.LocalIDFor(node)
			info := *sc.QblInfo
			route.Routes = append(route.Routes, RouteEntry{Face: sc.Face, LocalID: localID, Suffix: node.Expr(), QblInfo: &info})
		}
	}
	return target.narrow(route)
}

// queryTargetPolicy is the resolved, comparable form of wire.QueryTarget
// used at route-compute time.
type queryTargetPolicy interface {
	admits(QueryableInfo) bool
	narrow(*DataRoute) *DataRoute
}

type bestMatchingPolicy struct{}

func (bestMatchingPolicy) admits(QueryableInfo) bool { return true }

// narrow implements BestMatching as spec.md §4.6 defines it: the
// single nearest declarer, not every declarer tied for minimum
// distance. Ties are broken by ZID byte order (DESIGN.md Open
// Question decision) so every router presented with the same
// candidate set routes to the same one.
func (bestMatchingPolicy) narrow(r *DataRoute) *DataRoute {
	if len(r.Routes) == 0 {
		return r
	}
	sortRouteEntries(r.Routes)
	return &DataRoute{Routes: r.Routes[:1]}
}

type allPolicy struct{ completeOnly bool }

func (p allPolicy) admits(info QueryableInfo) bool { return !p.completeOnly || info.Complete }
func (allPolicy) narrow(r *DataRoute) *DataRoute    { return r }

type completeNPolicy struct{ n uint64 }

func (completeNPolicy) admits(info QueryableInfo) bool { return info.Complete }
func (p completeNPolicy) narrow(r *DataRoute) *DataRoute {
	sortRouteEntries(r.Routes)
	if uint64(len(r.Routes)) > p.n {
		r.Routes = r.Routes[:p.n]
	}
	return r
}

// sortRouteEntries orders entries by ascending distance, then by
// declarer ZID... route entries don't carry a ZID directly, so ties
// are broken by the face's ZID, matching the declarer identity that
// distance was computed against (DESIGN.md Open Question decision).
func sortRouteEntries(entries []RouteEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0; j-- {
			a, b := entries[j-1], entries[j]
			if less(a, b) {
				break
			}
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
}

func less(a, b RouteEntry) bool {
	if a.QblInfo.Distance != b.QblInfo.Distance {
		return a.QblInfo.Distance < b.QblInfo.Distance
	}
	return a.Face.ZID.Less(b.Face.ZID)
}
