package depgraph

// Statistics summarizes the graph for reporting.
type Statistics struct {
	NodeCount                       int  `json:"total_components"`
	EdgeCount                       int  `json:"total_dependencies"`
	HasCycle                        bool `json:"has_circular_dependencies"`
	StronglyConnectedComponentCount int  `json:"strongly_connected_components"`
}

// Statistics computes node and edge counts, whether any cycle exists, and the
// number of strongly connected components (singletons included).
func (g *Graph) Statistics() Statistics {
	sccs := g.stronglyConnected()
	hasCycle := false
	for _, comp := range sccs {
		if len(comp) > 1 {
			hasCycle = true
			break
		}
		v := comp[0]
		if _, self := g.edges[edgeKey{v, v}]; self {
			hasCycle = true
			break
		}
	}
	return Statistics{
		NodeCount:                       len(g.nodes),
		EdgeCount:                       len(g.edges),
		HasCycle:                        hasCycle,
		StronglyConnectedComponentCount: len(sccs),
	}
}

// stronglyConnected runs Tarjan's algorithm iteratively.
func (g *Graph) stronglyConnected() [][]int {
	n := len(g.nodes)
	const unvisited = -1

	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = unvisited
	}

	type frame struct {
		v    int
		next int
	}

	var (
		counter int
		stack   []int
		result  [][]int
	)

	for root := 0; root < n; root++ {
		if index[root] != unvisited {
			continue
		}
		work := []frame{{v: root}}
		index[root], low[root] = counter, counter
		counter++
		stack = append(stack, root)
		onStack[root] = true

		for len(work) > 0 {
			top := &work[len(work)-1]
			v := top.v
			if top.next < len(g.out[v]) {
				w := g.out[v][top.next]
				top.next++
				if index[w] == unvisited {
					index[w], low[w] = counter, counter
					counter++
					stack = append(stack, w)
					onStack[w] = true
					work = append(work, frame{v: w})
				} else if onStack[w] && index[w] < low[v] {
					low[v] = index[w]
				}
				continue
			}

			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := work[len(work)-1].v
				if low[v] < low[parent] {
					low[parent] = low[v]
				}
			}
			if low[v] == index[v] {
				var comp []int
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					comp = append(comp, w)
					if w == v {
						break
					}
				}
				result = append(result, comp)
			}
		}
	}
	return result
}
