package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AEO3/sbom-compile-orderer/internal/component"
)

func node(id string) component.Node {
	return component.Node{ID: id, Name: id}
}

// indexOf returns the position of id in order, failing the test if absent.
func indexOf(t *testing.T, order []string, id string) int {
	t.Helper()
	for i, v := range order {
		if v == id {
			return i
		}
	}
	t.Fatalf("id %q not found in order %v", id, order)
	return -1
}

func TestAddNode_UpsertKeepsPosition(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode(node("a"))
	g.AddNode(node("b"))
	g.AddNode(component.Node{ID: "a", Name: "a", Version: "2.0"})

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []string{"a", "b"}, g.IDs())
	got, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, "2.0", got.Version)
}

func TestAddEdge(t *testing.T) {
	t.Parallel()

	t.Run("creates missing endpoints", func(t *testing.T) {
		t.Parallel()
		g := New()
		g.AddEdge("dep", "app")

		assert.Equal(t, []string{"dep", "app"}, g.IDs())
		assert.Equal(t, []string{"app"}, g.Dependents("dep"))
		assert.Equal(t, []string{"dep"}, g.Dependencies("app"))
	})

	t.Run("duplicate edges collapse", func(t *testing.T) {
		t.Parallel()
		g := New()
		g.AddEdge("a", "b")
		g.AddEdge("a", "b")
		assert.Equal(t, 1, g.EdgeCount())
	})

	t.Run("unknown id has no neighbours", func(t *testing.T) {
		t.Parallel()
		g := New()
		assert.Nil(t, g.Dependencies("nope"))
		assert.Nil(t, g.Dependents("nope"))
	})
}

func TestBuildFromSource(t *testing.T) {
	t.Parallel()

	nodes := []component.Node{
		{ID: "ref-a", PackageURL: "pkg:maven/g/a@1"},
		{ID: "ref-b", PackageURL: "pkg:maven/g/b@1"},
		{ID: "pkg:maven/g/c@1", PackageURL: "pkg:maven/g/c@1"},
	}
	deps := []component.Dependency{
		{Ref: "ref-b", DependsOn: []string{"ref-a", "missing"}},
		{Ref: "pkg:maven/g/c@1", DependsOn: []string{"pkg:maven/g/b@1"}},
		{Ref: "ghost", DependsOn: []string{"ref-a"}},
	}

	g := BuildFromSource(nodes, deps)

	assert.Equal(t, 3, g.Len(), "unresolved references must not create nodes")
	assert.ElementsMatch(t, []component.Edge{
		{Dependency: "ref-a", Dependent: "ref-b"},
		{Dependency: "ref-b", Dependent: "pkg:maven/g/c@1"},
	}, g.Edges())
}

func TestClosures(t *testing.T) {
	t.Parallel()

	// a -> b -> c, a -> d, e isolated
	g := New()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		g.AddNode(node(id))
	}
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("a", "d")

	assert.Equal(t, []string{"a", "b"}, g.Ancestors("c"))
	assert.Equal(t, []string{"b", "c", "d"}, g.Descendants("a"))
	assert.Empty(t, g.Ancestors("e"))
	assert.Nil(t, g.Descendants("missing"))

	t.Run("cycle members exclude the queried node", func(t *testing.T) {
		t.Parallel()
		cyc := New()
		cyc.AddEdge("x", "y")
		cyc.AddEdge("y", "x")
		assert.Equal(t, []string{"y"}, cyc.Ancestors("x"))
	})
}
