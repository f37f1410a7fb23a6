package depgraph

import (
	"container/heap"
)

// ComputeOrder returns every node id exactly once in an order where each
// dependency precedes its dependents. Among nodes that become ready at the
// same time, the one inserted first wins.
//
// When the graph contains a cycle, hasCycle is true and the order comes from
// the closing-edge heuristic described in the package documentation.
func (g *Graph) ComputeOrder() (order []string, hasCycle bool) {
	if sorted, ok := g.kahn(nil); ok {
		return g.idsOf(sorted), false
	}

	cycles, complete := g.simpleCycles(g.cycleLimit)
	if !complete {
		return g.IDs(), true
	}

	removed := make(map[edgeKey]struct{}, len(cycles))
	for _, c := range cycles {
		removed[edgeKey{from: c[len(c)-1], to: c[0]}] = struct{}{}
	}
	if sorted, ok := g.kahn(removed); ok {
		return g.idsOf(sorted), true
	}
	return g.IDs(), true
}

// kahn topologically sorts the graph minus the removed edges. It reports
// false when a cycle survives.
func (g *Graph) kahn(removed map[edgeKey]struct{}) ([]int, bool) {
	n := len(g.nodes)
	indegree := make([]int, n)
	for to, froms := range g.in {
		for _, from := range froms {
			if _, skip := removed[edgeKey{from, to}]; !skip {
				indegree[to]++
			}
		}
	}

	ready := &indexHeap{}
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			*ready = append(*ready, i)
		}
	}
	heap.Init(ready)

	sorted := make([]int, 0, n)
	for ready.Len() > 0 {
		v := heap.Pop(ready).(int)
		sorted = append(sorted, v)
		for _, w := range g.out[v] {
			if _, skip := removed[edgeKey{v, w}]; skip {
				continue
			}
			indegree[w]--
			if indegree[w] == 0 {
				heap.Push(ready, w)
			}
		}
	}
	return sorted, len(sorted) == n
}

// indexHeap is a min-heap of node indices.
type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *indexHeap) Push(x any) { *h = append(*h, x.(int)) }

func (h *indexHeap) Pop() any {
	old := *h
	v := old[len(old)-1]
	*h = old[:len(old)-1]
	return v
}
