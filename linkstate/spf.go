package linkstate

import "container/heap"

// Tree is a shortest-path tree rooted at one ZID, giving every
// reachable destination its distance and first-hop neighbor (spec.md
// §4.4: routes follow the SPF tree, not raw adjacency).
type Tree struct {
	Root     ZID
	Distance map[ZID]uint32
	NextHop  map[ZID]ZID // dst -> the neighbor of Root to forward through
}

// ComputeSPF runs Dijkstra from root over g's current snapshot,
// producing a Tree. Unreachable nodes are simply absent from Distance
// and NextHop.
func ComputeSPF(g *Graph, root ZID) *Tree {
	adj := g.Snapshot()
	t := &Tree{Root: root, Distance: map[ZID]uint32{root: 0}, NextHop: map[ZID]ZID{}}

	pq := &spfQueue{{zid: root, dist: 0}}
	heap.Init(pq)
	visited := map[ZID]bool{}

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(spfEntry)
		if visited[cur.zid] {
			continue
		}
		visited[cur.zid] = true

		node, ok := adj[cur.zid]
		if !ok {
			continue
		}
		for neighbor, cost := range node.Neighbors {
			nd := cur.dist + cost
			if existing, ok := t.Distance[neighbor]; ok && existing <= nd {
				continue
			}
			t.Distance[neighbor] = nd
			if cur.zid == root {
				t.NextHop[neighbor] = neighbor
			} else {
				t.NextHop[neighbor] = t.NextHop[cur.zid]
			}
			heap.Push(pq, spfEntry{zid: neighbor, dist: nd})
		}
	}
	return t
}

// Reaches reports whether dst is reachable from the tree's root.
func (t *Tree) Reaches(dst ZID) bool {
	_, ok := t.Distance[dst]
	return ok
}

type spfEntry struct {
	zid  ZID
	dist uint32
}

type spfQueue []spfEntry

func (q spfQueue) Len() int            { return len(q) }
func (q spfQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q spfQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *spfQueue) Push(x interface{}) { *q = append(*q, x.(spfEntry)) }
func (q *spfQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
