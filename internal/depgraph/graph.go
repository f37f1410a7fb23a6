package depgraph

import (
	"github.com/AEO3/sbom-compile-orderer/internal/component"
)

// DefaultCycleLimit bounds how many simple cycles are enumerated before the
// resolver gives up and falls back to insertion order.
const DefaultCycleLimit = 100000

// Option configures a Graph.
type Option func(*Graph)

// WithCycleLimit overrides DefaultCycleLimit. Values below 1 are ignored.
func WithCycleLimit(limit int) Option {
	return func(g *Graph) {
		if limit > 0 {
			g.cycleLimit = limit
		}
	}
}

// Graph is an arena-backed directed graph of components.
type Graph struct {
	index      map[string]int
	nodes      []component.Node
	out        [][]int // dependency -> dependents
	in         [][]int // dependent -> dependencies
	edges      map[edgeKey]struct{}
	cycleLimit int
}

type edgeKey struct {
	from, to int
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		index:      make(map[string]int),
		edges:      make(map[edgeKey]struct{}),
		cycleLimit: DefaultCycleLimit,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddNode inserts n, or replaces the attributes stored for n.ID while keeping
// its original insertion position.
func (g *Graph) AddNode(n component.Node) {
	if i, ok := g.index[n.ID]; ok {
		g.nodes[i] = n
		return
	}
	g.insert(n)
}

func (g *Graph) insert(n component.Node) int {
	i := len(g.nodes)
	g.index[n.ID] = i
	g.nodes = append(g.nodes, n)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return i
}

func (g *Graph) ensure(id string) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	return g.insert(component.Node{ID: id})
}

// AddEdge records that dependencyID must precede dependentID. Unknown ids are
// added as bare nodes. Repeated edges are ignored.
func (g *Graph) AddEdge(dependencyID, dependentID string) {
	from := g.ensure(dependencyID)
	to := g.ensure(dependentID)
	key := edgeKey{from, to}
	if _, dup := g.edges[key]; dup {
		return
	}
	g.edges[key] = struct{}{}
	g.out[from] = append(g.out[from], to)
	g.in[to] = append(g.in[to], from)
}

// BuildFromSource creates a graph from nodes and the dependency section of a
// source document. A dependency reference is resolved against node ids first
// and package URLs second; an edge is added only when both ends resolve.
func BuildFromSource(nodes []component.Node, deps []component.Dependency, opts ...Option) *Graph {
	g := New(opts...)
	alias := make(map[string]string, len(nodes))
	for _, n := range nodes {
		g.AddNode(n)
		if n.PackageURL != "" {
			if _, taken := alias[n.PackageURL]; !taken {
				alias[n.PackageURL] = n.ID
			}
		}
	}

	resolve := func(ref string) (string, bool) {
		if _, ok := g.index[ref]; ok {
			return ref, true
		}
		id, ok := alias[ref]
		return id, ok
	}

	for _, d := range deps {
		dependent, ok := resolve(d.Ref)
		if !ok {
			continue
		}
		for _, ref := range d.DependsOn {
			dependency, ok := resolve(ref)
			if !ok {
				continue
			}
			g.AddEdge(dependency, dependent)
		}
	}
	return g
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Node returns the node stored under id.
func (g *Graph) Node(id string) (component.Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return component.Node{}, false
	}
	return g.nodes[i], true
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []component.Node {
	out := make([]component.Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// IDs returns all node ids in insertion order.
func (g *Graph) IDs() []string {
	return g.idsOf(g.allIndices())
}

// Edges returns every edge, grouped by dependency in insertion order.
func (g *Graph) Edges() []component.Edge {
	out := make([]component.Edge, 0, len(g.edges))
	for from, tos := range g.out {
		for _, to := range tos {
			out = append(out, component.Edge{Dependency: g.nodes[from].ID, Dependent: g.nodes[to].ID})
		}
	}
	return out
}

// Dependencies returns the direct dependencies of id.
func (g *Graph) Dependencies(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.idsOf(g.in[i])
}

// Dependents returns the nodes that directly depend on id.
func (g *Graph) Dependents(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.idsOf(g.out[i])
}

// Ancestors returns every node that must precede id, in insertion order.
func (g *Graph) Ancestors(id string) []string {
	return g.closure(id, g.in)
}

// Descendants returns every node that transitively depends on id, in
// insertion order.
func (g *Graph) Descendants(id string) []string {
	return g.closure(id, g.out)
}

func (g *Graph) closure(id string, adj [][]int) []string {
	start, ok := g.index[id]
	if !ok {
		return nil
	}
	seen := make([]bool, len(g.nodes))
	stack := append([]int(nil), adj[start]...)
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[v] {
			continue
		}
		seen[v] = true
		stack = append(stack, adj[v]...)
	}
	// A node on a cycle through itself is its own ancestor; report only others.
	seen[start] = false

	var out []string
	for i, s := range seen {
		if s {
			out = append(out, g.nodes[i].ID)
		}
	}
	return out
}

func (g *Graph) allIndices() []int {
	idx := make([]int, len(g.nodes))
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func (g *Graph) idsOf(indices []int) []string {
	if len(indices) == 0 {
		return nil
	}
	out := make([]string, len(indices))
	for k, i := range indices {
		out[k] = g.nodes[i].ID
	}
	return out
}
