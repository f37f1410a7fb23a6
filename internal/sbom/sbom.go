// Package sbom decodes CycloneDX JSON documents into the component model.
package sbom

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/AEO3/sbom-compile-orderer/internal/component"
)

// ErrNotCycloneDX is returned for well-formed JSON whose bomFormat is not
// CycloneDX.
var ErrNotCycloneDX = errors.New("document is not a CycloneDX SBOM")

// Component defaults applied when the document omits them.
const (
	DefaultKind  = "library"
	DefaultScope = "required"
)

// Document is the decoded content of an SBOM. Nodes and Dependencies keep
// document order.
type Document struct {
	SpecVersion  string
	Nodes        []component.Node
	Dependencies []component.Dependency
}

// ParseFile reads and parses the SBOM at path.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read SBOM file %s: %w", path, err)
	}
	doc, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse SBOM file %s: %w", path, err)
	}
	return doc, nil
}

// header is read before the full decode so that foreign documents are
// rejected on their bomFormat alone.
type header struct {
	BOMFormat   string `json:"bomFormat"`
	SpecVersion string `json:"specVersion"`
}

// Parse decodes a CycloneDX JSON document. Only top-level components become
// nodes. Dependency entries without a ref are ignored.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read SBOM: %w", err)
	}
	var head header
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode SBOM JSON: %w", err)
	}
	if head.BOMFormat != cdx.BOMFormat {
		return nil, fmt.Errorf("%w: bomFormat is %q", ErrNotCycloneDX, head.BOMFormat)
	}

	var bom cdx.BOM
	if err := cdx.NewBOMDecoder(bytes.NewReader(data), cdx.BOMFileFormatJSON).Decode(&bom); err != nil {
		return nil, fmt.Errorf("decode CycloneDX JSON: %w", err)
	}

	doc := &Document{SpecVersion: head.SpecVersion}
	if bom.Components != nil {
		doc.Nodes = make([]component.Node, 0, len(*bom.Components))
		for _, c := range *bom.Components {
			doc.Nodes = append(doc.Nodes, component.NewNode(nodeSpec(c)))
		}
	}
	if bom.Dependencies != nil {
		for _, d := range *bom.Dependencies {
			if d.Ref == "" {
				continue
			}
			dep := component.Dependency{Ref: d.Ref}
			if d.Dependencies != nil {
				dep.DependsOn = append(dep.DependsOn, *d.Dependencies...)
			}
			doc.Dependencies = append(doc.Dependencies, dep)
		}
	}
	return doc, nil
}

func nodeSpec(c cdx.Component) component.NodeSpec {
	spec := component.NodeSpec{
		Ref:         c.BOMRef,
		PackageURL:  c.PackageURL,
		Group:       c.Group,
		Name:        c.Name,
		Version:     c.Version,
		Kind:        string(c.Type),
		Scope:       string(c.Scope),
		Description: c.Description,
		SourceURL:   sourceURL(c),
		Licenses:    licenses(c),
	}
	if spec.Kind == "" {
		spec.Kind = DefaultKind
	}
	if spec.Scope == "" {
		spec.Scope = DefaultScope
	}
	return spec
}

// sourceURL prefers the vcs external reference over the website.
func sourceURL(c cdx.Component) string {
	if c.ExternalReferences == nil {
		return ""
	}
	var website string
	for _, ref := range *c.ExternalReferences {
		switch ref.Type {
		case cdx.ERTypeVCS:
			if ref.URL != "" {
				return ref.URL
			}
		case cdx.ERTypeWebsite:
			if website == "" {
				website = ref.URL
			}
		}
	}
	return website
}

func licenses(c cdx.Component) []string {
	if c.Licenses == nil {
		return nil
	}
	var out []string
	for _, choice := range *c.Licenses {
		switch {
		case choice.Expression != "":
			out = append(out, strings.TrimSpace(choice.Expression))
		case choice.License != nil && choice.License.ID != "":
			out = append(out, choice.License.ID)
		case choice.License != nil && choice.License.Name != "":
			out = append(out, choice.License.Name)
		}
	}
	return out
}
