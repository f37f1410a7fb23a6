package depgraph

// simpleCycles enumerates the elementary cycles of the graph with Johnson's
// algorithm. Each cycle is a node index sequence following edge direction,
// starting at its lowest index; the closing edge runs from the last element
// back to the first. complete is false when more than limit cycles exist.
func (g *Graph) simpleCycles(limit int) (cycles [][]int, complete bool) {
	n := len(g.nodes)
	blocked := make([]bool, n)
	blockedBy := make([]map[int]struct{}, n)
	for i := range blockedBy {
		blockedBy[i] = make(map[int]struct{})
	}

	var unblock func(v int)
	unblock = func(v int) {
		blocked[v] = false
		for w := range blockedBy[v] {
			delete(blockedBy[v], w)
			if blocked[w] {
				unblock(w)
			}
		}
	}

	var (
		stack    []int
		overflow bool
	)

	// circuit searches for cycles through start using only nodes with an
	// index of at least start, so each cycle is reported from its minimum.
	var circuit func(v, start int) bool
	circuit = func(v, start int) bool {
		found := false
		stack = append(stack, v)
		blocked[v] = true

		for _, w := range g.out[v] {
			if overflow {
				break
			}
			if w < start {
				continue
			}
			if w == start {
				if len(cycles) >= limit {
					overflow = true
					break
				}
				cycles = append(cycles, append([]int(nil), stack...))
				found = true
			} else if !blocked[w] {
				if circuit(w, start) {
					found = true
				}
			}
		}

		if found {
			unblock(v)
		} else {
			for _, w := range g.out[v] {
				if w >= start {
					blockedBy[w][v] = struct{}{}
				}
			}
		}
		stack = stack[:len(stack)-1]
		return found
	}

	for start := 0; start < n && !overflow; start++ {
		for i := start; i < n; i++ {
			blocked[i] = false
			clear(blockedBy[i])
		}
		circuit(start, start)
	}
	return cycles, !overflow
}

// Cycles returns every simple cycle as a node id sequence with the first id
// repeated at the end. The result is nil when the graph is acyclic or when
// enumeration exceeds the cycle limit.
func (g *Graph) Cycles() [][]string {
	cycles, complete := g.simpleCycles(g.cycleLimit)
	if !complete {
		return nil
	}
	out := make([][]string, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, g.closedPath(c))
	}
	return out
}

// CyclesContaining returns every simple cycle passing through id, rotated so
// that id comes first and closed by repeating id at the end.
func (g *Graph) CyclesContaining(id string) [][]string {
	target, ok := g.index[id]
	if !ok {
		return nil
	}
	cycles, complete := g.simpleCycles(g.cycleLimit)
	if !complete {
		return nil
	}

	var out [][]string
	for _, c := range cycles {
		pos := -1
		for k, v := range c {
			if v == target {
				pos = k
				break
			}
		}
		if pos < 0 {
			continue
		}
		rotated := append(append([]int(nil), c[pos:]...), c[:pos]...)
		out = append(out, g.closedPath(rotated))
	}
	return out
}

func (g *Graph) closedPath(c []int) []string {
	path := make([]string, 0, len(c)+1)
	for _, v := range c {
		path = append(path, g.nodes[v].ID)
	}
	return append(path, g.nodes[c[0]].ID)
}
