package fabric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDataRouteExcludesOriginAndPullSubs(t *testing.T) {
	tree := NewResourceTree(nil)
	node := tree.GetOrInsert(nil, "a/b")

	origin := newTestFace(1)
	push := newTestFace(2)
	pull := newTestFace(3)

	node.Context().Session(origin).SubInfo = &SubInfo{}
	node.Context().Session(push).SubInfo = &SubInfo{}
	node.Context().Session(pull).SubInfo = &SubInfo{Pull: true}

	route := ComputeDataRoute(node, origin, permissiveHat{})
	require.Len(t, route.Routes, 1)
	assert.Equal(t, push.ID, route.Routes[0].Face.ID)
}

func TestComputeQueryRouteBestMatchingNarrowsToMinDistance(t *testing.T) {
	tree := NewResourceTree(nil)
	node := tree.GetOrInsert(nil, "a/b")

	near := newTestFace(1)
	far := newTestFace(2)
	node.Context().Session(near).QblInfo = &QueryableInfo{Distance: 1}
	node.Context().Session(far).QblInfo = &QueryableInfo{Distance: 5}

	route := ComputeQueryRoute(node, nil, bestMatchingPolicy{}, permissiveHat{})
	require.Len(t, route.Routes, 1)
	assert.Equal(t, near.ID, route.Routes[0].Face.ID)
}

func TestComputeQueryRouteAllCompleteRequiresComplete(t *testing.T) {
	tree := NewResourceTree(nil)
	node := tree.GetOrInsert(nil, "a/b")

	complete := newTestFace(1)
	partial := newTestFace(2)
	node.Context().Session(complete).QblInfo = &QueryableInfo{Distance: 1, Complete: true}
	node.Context().Session(partial).QblInfo = &QueryableInfo{Distance: 1, Complete: false}

	route := ComputeQueryRoute(node, nil, allPolicy{completeOnly: true}, permissiveHat{})
	require.Len(t, route.Routes, 1)
	assert.Equal(t, complete.ID, route.Routes[0].Face.ID)
}

func TestComputeQueryRouteCompleteNOrdersByDistanceThenZID(t *testing.T) {
	tree := NewResourceTree(nil)
	node := tree.GetOrInsert(nil, "a/b")

	a := newTestFace(1)
	b := newTestFace(2)
	c := newTestFace(3)
	node.Context().Session(a).QblInfo = &QueryableInfo{Distance: 2, Complete: true}
	node.Context().Session(b).QblInfo = &QueryableInfo{Distance: 1, Complete: true}
	node.Context().Session(c).QblInfo = &QueryableInfo{Distance: 3, Complete: true}

	route := ComputeQueryRoute(node, nil, completeNPolicy{n: 2}, permissiveHat{})
	require.Len(t, route.Routes, 2)
	assert.Equal(t, b.ID, route.Routes[0].Face.ID)
	assert.Equal(t, a.ID, route.Routes[1].Face.ID)
}

func TestComputeDataRouteHonorsHatEgressPolicy(t *testing.T) {
	tree := NewResourceTree(nil)
	node := tree.GetOrInsert(nil, "a/b")
	sub := newTestFace(1)
	node.Context().Session(sub).SubInfo = &SubInfo{}

	route := ComputeDataRoute(node, nil, denyAllHat{})
	assert.Empty(t, route.Routes)
}

// TestComputeDataRouteReachesSubscriberOnIntersectingNode covers the
// case a subscriber declared on a broader expression than the pushed
// resource: "a/**" must still receive a push on "a/b" because the two
// nodes share a match-set entry.
func TestComputeDataRouteReachesSubscriberOnIntersectingNode(t *testing.T) {
	tree := NewResourceTree(nil)
	wild := tree.GetOrInsert(nil, "a/**")
	concrete := tree.GetOrInsert(nil, "a/b")

	sub := newTestFace(1)
	wild.Context().Session(sub).SubInfo = &SubInfo{}

	route := ComputeDataRoute(concrete, nil, permissiveHat{})
	require.Len(t, route.Routes, 1)
	assert.Equal(t, sub.ID, route.Routes[0].Face.ID)
}

// TestComputeDataRouteDedupesFaceMatchedThroughMultipleNodes covers a
// face holding subscriber sessions on more than one node in the same
// match-set: it must only be routed to once.
func TestComputeDataRouteDedupesFaceMatchedThroughMultipleNodes(t *testing.T) {
	tree := NewResourceTree(nil)
	wild := tree.GetOrInsert(nil, "a/**")
	concrete := tree.GetOrInsert(nil, "a/b")

	sub := newTestFace(1)
	wild.Context().Session(sub).SubInfo = &SubInfo{}
	concrete.Context().Session(sub).SubInfo = &SubInfo{}

	route := ComputeDataRoute(concrete, nil, permissiveHat{})
	require.Len(t, route.Routes, 1)
	assert.Equal(t, sub.ID, route.Routes[0].Face.ID)
}

// TestCollectPullTargetsReachesPullSubscriberOnIntersectingNode mirrors
// the data-route fan-out test but for the pull-caching path.
func TestCollectPullTargetsReachesPullSubscriberOnIntersectingNode(t *testing.T) {
	tree := NewResourceTree(nil)
	wild := tree.GetOrInsert(nil, "a/**")
	concrete := tree.GetOrInsert(nil, "a/b")

	origin := newTestFace(1)
	pull := newTestFace(2)
	wild.Context().Session(pull).SubInfo = &SubInfo{Pull: true}

	targets := CollectPullTargets(concrete, origin, permissiveHat{})
	require.Len(t, targets, 1)
	assert.Equal(t, pull.ID, targets[0].Face.ID)
}

// TestComputeQueryRouteReachesQueryableOnIntersectingNode covers a
// queryable declared on "x/**" being consulted for a Request on "x/y".
func TestComputeQueryRouteReachesQueryableOnIntersectingNode(t *testing.T) {
	tree := NewResourceTree(nil)
	wild := tree.GetOrInsert(nil, "x/**")
	concrete := tree.GetOrInsert(nil, "x/y")

	qbl := newTestFace(1)
	wild.Context().Session(qbl).QblInfo = &QueryableInfo{Distance: 1}

	route := ComputeQueryRoute(concrete, nil, bestMatchingPolicy{}, permissiveHat{})
	require.Len(t, route.Routes, 1)
	assert.Equal(t, qbl.ID, route.Routes[0].Face.ID)
}

// TestBestMatchingNarrowsToSingleEntryOnExactTie covers two queryables
// declared at the same distance: BestMatching must keep only one,
// chosen deterministically by ZID order, not both.
func TestBestMatchingNarrowsToSingleEntryOnExactTie(t *testing.T) {
	tree := NewResourceTree(nil)
	node := tree.GetOrInsert(nil, "a/b")

	first := newTestFace(1)
	second := newTestFace(2)
	node.Context().Session(first).QblInfo = &QueryableInfo{Distance: 1}
	node.Context().Session(second).QblInfo = &QueryableInfo{Distance: 1}

	route := ComputeQueryRoute(node, nil, bestMatchingPolicy{}, permissiveHat{})
	require.Len(t, route.Routes, 1)
}

type denyAllHat struct{}

func (denyAllHat) Role() FaceRole                       { return FaceRolePeer }
func (denyAllHat) AllowEgress(*Face, *ResourceNode) bool { return false }
func (denyAllHat) NewFace(*Face)                         {}
func (denyAllHat) DropFace(*Face)                        {}
