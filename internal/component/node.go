package component

import (
	"strings"

	packageurl "github.com/package-url/packageurl-go"
)

// Package types derived from the package-URL scheme that the fetch pipeline
// knows how to resolve.
const (
	TypeMaven = "maven"
	TypeNPM   = "npm"
)

// Node is one package coordinate in the dependency graph.
type Node struct {
	ID          string
	Group       string
	Name        string
	Version     string
	PackageURL  string
	PackageType string
	Kind        string
	Scope       string
	SourceURL   string
	Description string
	Licenses    []string
}

// NodeSpec carries the raw attributes of a component before an ID is chosen.
type NodeSpec struct {
	Ref         string
	PackageURL  string
	Group       string
	Name        string
	Version     string
	Kind        string
	Scope       string
	SourceURL   string
	Description string
	Licenses    []string
}

// NewNode builds a Node from spec. The ID is the explicit ref when present,
// then the package URL, then group:name:version.
func NewNode(spec NodeSpec) Node {
	return Node{
		ID:          chooseID(spec),
		Group:       spec.Group,
		Name:        spec.Name,
		Version:     spec.Version,
		PackageURL:  spec.PackageURL,
		PackageType: PackageTypeOf(spec.PackageURL),
		Kind:        spec.Kind,
		Scope:       spec.Scope,
		SourceURL:   spec.SourceURL,
		Description: spec.Description,
		Licenses:    spec.Licenses,
	}
}

func chooseID(spec NodeSpec) string {
	if ref := strings.TrimSpace(spec.Ref); ref != "" {
		return ref
	}
	if purl := strings.TrimSpace(spec.PackageURL); purl != "" {
		return purl
	}
	return Coordinate(spec.Group, spec.Name, spec.Version)
}

// Coordinate joins the non-empty parts of a group:name:version triple.
func Coordinate(group, name, version string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{group, name, version} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ":")
}

// PackageTypeOf returns the type segment of a package URL, or "" when the
// string is empty or does not parse.
func PackageTypeOf(purl string) string {
	if purl == "" {
		return ""
	}
	parsed, err := packageurl.FromString(purl)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Type)
}

// GroupName is the "group:name" label used by the order artifacts, or just
// the name when the node has no group.
func (n Node) GroupName() string {
	if n.Group == "" {
		return n.Name
	}
	return n.Group + ":" + n.Name
}

// HasCoordinates reports whether the node carries enough information to
// address a registry: a name and a version, plus a group for Maven.
func (n Node) HasCoordinates() bool {
	if n.Name == "" || n.Version == "" {
		return false
	}
	if n.PackageType == TypeMaven {
		return n.Group != ""
	}
	return true
}

// NPMName returns the registry name for an npm node. The group holds the
// scope for scoped packages, with or without the leading "@".
func (n Node) NPMName() string {
	if n.Group == "" {
		return n.Name
	}
	scope := n.Group
	if !strings.HasPrefix(scope, "@") {
		scope = "@" + scope
	}
	return scope + "/" + n.Name
}

// Edge is an ordered "Dependency must precede Dependent" pair of node IDs.
type Edge struct {
	Dependency string
	Dependent  string
}

// Dependency is one entry of a source document's dependency section: the
// component Ref depends on every ref in DependsOn.
type Dependency struct {
	Ref       string
	DependsOn []string
}
