package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AEO3/sbom-compile-orderer/internal/component"
	"github.com/AEO3/sbom-compile-orderer/internal/depgraph"
)

func sampleGraph() *depgraph.Graph {
	nodes := []component.Node{
		{ID: "app", Group: "com.acme", Name: "app", Version: "2.0", PackageURL: "pkg:maven/com.acme/app@2.0", Kind: "application", Scope: "required"},
		{ID: "pkg:maven/org.example/lib@1.0", Group: "org.example", Name: "lib", Version: "1.0", PackageURL: "pkg:maven/org.example/lib@1.0", SourceURL: "https://github.com/example/lib"},
		{ID: "left-pad", Name: "left-pad", Version: "1.3.0"},
	}
	deps := []component.Dependency{
		{Ref: "app", DependsOn: []string{"pkg:maven/org.example/lib@1.0", "left-pad", "unresolved"}},
	}
	g := depgraph.BuildFromSource(nodes, deps)
	// A direct edge to an unknown id creates a placeholder node.
	g.AddEdge("ghost", "app")
	return g
}

func TestRows(t *testing.T) {
	t.Parallel()

	g := sampleGraph()
	order, _ := g.ComputeOrder()

	rows := Rows(order, g)

	require.Len(t, rows, 4)
	assert.Equal(t, Row{Order: 1, GroupID: "org.example:lib", Name: "lib", Version: "1.0", SourceURL: "https://github.com/example/lib"}, rows[0])
	assert.Equal(t, Row{Order: 2, GroupID: "left-pad", Name: "left-pad", Version: "1.3.0"}, rows[1])
	assert.Equal(t, Row{Order: 3, GroupID: "ghost"}, rows[2])
	assert.Equal(t, "com.acme:app", rows[3].GroupID)
}

func TestBaseFile_RoundTrip(t *testing.T) {
	t.Parallel()

	// Arrange
	g := sampleGraph()
	order, _ := g.ComputeOrder()
	rows := Rows(order, g)
	path := filepath.Join(t.TempDir(), BaseFileName)

	// Act
	require.NoError(t, WriteBaseFile(path, rows))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	back, err := ReadCSV(bytes.NewReader(raw))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, rows, back)
	assert.True(t, strings.HasPrefix(string(raw), "Order,Group ID,Package Name,Version/Tag,Source URL\n"))
}

func TestReadCSV_Malformed(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":        "",
		"short row":    "Order,Group ID,Package Name,Version/Tag,Source URL\n1,a,b\n",
		"bad order":    "Order,Group ID,Package Name,Version/Tag,Source URL\nx,a,b,c,d\n",
		"broken quote": "Order,Group ID\n\"1,a\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadCSV(strings.NewReader(input))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestTextRenderer(t *testing.T) {
	t.Parallel()

	g := sampleGraph()
	order, _ := g.ComputeOrder()
	stats := g.Statistics()

	t.Run("plain", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, TextRenderer{}.Render(&buf, Result{Order: order, Nodes: g, Statistics: &stats}))

		out := buf.String()
		assert.Contains(t, out, "Compilation Order")
		assert.Contains(t, out, "Total Components: 4")
		assert.Contains(t, out, "Total Dependencies: 3")
		assert.Contains(t, out, "1. org.example:lib:1.0\n")
		assert.Contains(t, out, "3. ghost\n")
		assert.NotContains(t, out, "WARNING")
		assert.NotContains(t, out, "PURL:")
	})

	t.Run("cycle warning and metadata", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		res := Result{Order: order, Nodes: g, HasCycle: true, Cycles: [][]string{{"a", "b", "a"}}, IncludeMetadata: true}
		require.NoError(t, TextRenderer{}.Render(&buf, res))

		out := buf.String()
		assert.Contains(t, out, "WARNING: Circular dependencies detected!")
		assert.Contains(t, out, "cycle: a -> b -> a")
		assert.Contains(t, out, "   PURL: pkg:maven/com.acme/app@2.0\n   Ref: app\n")
	})
}

func TestJSONRenderer(t *testing.T) {
	t.Parallel()

	g := sampleGraph()
	order, _ := g.ComputeOrder()
	stats := g.Statistics()

	decode := func(t *testing.T, res Result) map[string]any {
		t.Helper()
		var buf bytes.Buffer
		require.NoError(t, JSONRenderer{}.Render(&buf, res))
		var doc map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
		return doc
	}

	t.Run("compact entries drop empty fields", func(t *testing.T) {
		t.Parallel()
		doc := decode(t, Result{Order: order, Nodes: g, Statistics: &stats})

		assert.EqualValues(t, 4, doc["total_components"])
		assert.Equal(t, false, doc["has_circular_dependencies"])
		entries := doc["compilation_order"].([]any)
		assert.Equal(t, map[string]any{"ref": "left-pad", "name": "left-pad", "version": "1.3.0"}, entries[1])
		assert.Equal(t, map[string]any{"ref": "ghost"}, entries[2])
		assert.Contains(t, doc, "statistics")
		assert.NotContains(t, doc, "cycles")
	})

	t.Run("metadata keeps every field", func(t *testing.T) {
		t.Parallel()
		doc := decode(t, Result{Order: order, Nodes: g, IncludeMetadata: true, Cycles: [][]string{{"x", "x"}}})

		entries := doc["compilation_order"].([]any)
		first := entries[0].(map[string]any)
		assert.Contains(t, first, "scope")
		assert.Equal(t, "", first["scope"])
		assert.NotContains(t, doc, "statistics")
		assert.Equal(t, []any{[]any{"x", "x"}}, doc["cycles"])
	})
}

func TestNewRenderer(t *testing.T) {
	t.Parallel()

	for _, format := range []string{FormatText, FormatJSON, FormatCSV} {
		r, err := NewRenderer(format)
		require.NoError(t, err, format)
		assert.NotNil(t, r)
	}
	_, err := NewRenderer("yaml")
	assert.Error(t, err)

	var buf bytes.Buffer
	r, _ := NewRenderer(FormatCSV)
	require.NoError(t, r.Render(&buf, Result{Order: []string{"only"}}))
	assert.Equal(t, "Order,Group ID,Package Name,Version/Tag,Source URL\n1,only,,,\n", buf.String())
}
