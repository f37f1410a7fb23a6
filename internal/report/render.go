package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/AEO3/sbom-compile-orderer/internal/component"
	"github.com/AEO3/sbom-compile-orderer/internal/depgraph"
)

// Result is everything a renderer can show about one computed order.
type Result struct {
	Order           []string
	Nodes           NodeLookup
	HasCycle        bool
	Cycles          [][]string
	Statistics      *depgraph.Statistics
	IncludeMetadata bool
}

// Renderer writes a Result in one output format.
type Renderer interface {
	Render(w io.Writer, res Result) error
}

// Formats accepted by NewRenderer.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// NewRenderer returns the renderer for format.
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case FormatText, "":
		return TextRenderer{}, nil
	case FormatJSON:
		return JSONRenderer{}, nil
	case FormatCSV:
		return CSVRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

func lookup(res Result, id string) (component.Node, bool) {
	if res.Nodes == nil {
		return component.Node{}, false
	}
	return res.Nodes.Node(id)
}

// TextRenderer produces the human-readable listing.
type TextRenderer struct{}

func (TextRenderer) Render(w io.Writer, res Result) error {
	rule := strings.Repeat("=", 80)
	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "Compilation Order")
	fmt.Fprintln(&b, rule)

	if res.HasCycle {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "WARNING: Circular dependencies detected!")
		fmt.Fprintln(&b, "The order below may not be complete or may require manual intervention.")
		for _, c := range res.Cycles {
			fmt.Fprintf(&b, "  cycle: %s\n", strings.Join(c, " -> "))
		}
		fmt.Fprintln(&b)
	}
	if res.Statistics != nil {
		fmt.Fprintf(&b, "Total Components: %d\n", res.Statistics.NodeCount)
		fmt.Fprintf(&b, "Total Dependencies: %d\n", res.Statistics.EdgeCount)
		fmt.Fprintln(&b)
	}

	fmt.Fprintln(&b, "Order:")
	fmt.Fprintln(&b)
	for i, id := range res.Order {
		n, ok := lookup(res, id)
		if !ok || n.Name == "" {
			fmt.Fprintf(&b, "%d. %s\n", i+1, id)
			continue
		}
		fmt.Fprintf(&b, "%d. %s:%s:%s\n", i+1, n.Group, n.Name, n.Version)
		if res.IncludeMetadata {
			if n.PackageURL != "" {
				fmt.Fprintf(&b, "   PURL: %s\n", n.PackageURL)
			}
			if n.ID != n.PackageURL {
				fmt.Fprintf(&b, "   Ref: %s\n", n.ID)
			}
			fmt.Fprintln(&b)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// JSONRenderer produces the machine-readable document.
type JSONRenderer struct{}

type jsonComponent struct {
	Ref     string `json:"ref,omitempty"`
	Group   string `json:"group,omitempty"`
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	PURL    string `json:"purl,omitempty"`
	Type    string `json:"type,omitempty"`
	Scope   string `json:"scope,omitempty"`
}

type jsonMetadataComponent struct {
	Ref     string `json:"ref"`
	Group   string `json:"group"`
	Name    string `json:"name"`
	Version string `json:"version"`
	PURL    string `json:"purl"`
	Type    string `json:"type"`
	Scope   string `json:"scope"`
}

type jsonDocument struct {
	CompilationOrder []any                `json:"compilation_order"`
	TotalComponents  int                  `json:"total_components"`
	HasCycle         bool                 `json:"has_circular_dependencies"`
	Cycles           [][]string           `json:"cycles,omitempty"`
	Statistics       *depgraph.Statistics `json:"statistics,omitempty"`
}

func (JSONRenderer) Render(w io.Writer, res Result) error {
	doc := jsonDocument{
		CompilationOrder: make([]any, 0, len(res.Order)),
		TotalComponents:  len(res.Order),
		HasCycle:         res.HasCycle,
		Statistics:       res.Statistics,
	}
	if res.IncludeMetadata {
		doc.Cycles = res.Cycles
	}
	for _, id := range res.Order {
		n, ok := lookup(res, id)
		switch {
		case !ok:
			doc.CompilationOrder = append(doc.CompilationOrder, jsonComponent{Ref: id})
		case res.IncludeMetadata:
			doc.CompilationOrder = append(doc.CompilationOrder, jsonMetadataComponent(toJSON(n)))
		default:
			doc.CompilationOrder = append(doc.CompilationOrder, toJSON(n))
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}

func toJSON(n component.Node) jsonComponent {
	return jsonComponent{
		Ref:     n.ID,
		Group:   n.Group,
		Name:    n.Name,
		Version: n.Version,
		PURL:    n.PackageURL,
		Type:    n.Kind,
		Scope:   n.Scope,
	}
}

// CSVRenderer prints the base order CSV.
type CSVRenderer struct{}

func (CSVRenderer) Render(w io.Writer, res Result) error {
	rows := make([]Row, len(res.Order))
	for i, id := range res.Order {
		n, ok := lookup(res, id)
		if !ok {
			n = component.Node{ID: id}
		}
		rows[i] = RowFor(i+1, n)
	}
	return WriteCSV(w, rows)
}
