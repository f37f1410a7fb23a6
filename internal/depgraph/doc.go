// Package depgraph builds the component dependency graph and derives a
// deterministic build order from it.
//
// # Representation
//
// The graph is an arena: every node gets a dense index on first insertion,
// and edges are stored as index adjacency lists in both directions. The
// insertion index doubles as the tie-break key for ordering, so the order is
// reproducible for a fixed input and never depends on map iteration or on
// alphabetical sorting.
//
// Edges point from a dependency to its dependent. An edge (A, B) means "A
// must be built before B".
//
// # Ordering
//
// ComputeOrder runs Kahn's algorithm with a min-heap of ready node indices.
// When nodes are left over, the graph has a cycle and the resolver falls back
// to a heuristic:
//
//  1. Enumerate every simple cycle (Johnson's algorithm).
//  2. On a working copy, drop the closing edge of each cycle, i.e. the edge
//     from the cycle's last node back to its first.
//  3. Retry Kahn's algorithm on the reduced graph.
//
// If the retry still leaves nodes behind, or enumeration gives up because
// the cycle count passed the configured limit, every node is returned in
// insertion order. Cyclic input always reports hasCycle=true.
//
// The heuristic is best effort. With overlapping cycles, dropping closing
// edges is not guaranteed to yield a minimal feedback edge set, and callers
// must not read the resulting order as anything stronger than "complete and
// consistent with the edges that survived".
//
// # Concurrency
//
// A Graph is not safe for concurrent mutation. Construction and ordering are
// synchronous, in-memory operations.
package depgraph
