package component

import (
	"encoding/json"
	"slices"
	"strings"
)

// Filter excludes nodes before the graph is built. Its normalized form is
// part of the build-cache fingerprint, so two filters that exclude the same
// things always fingerprint identically.
type Filter struct {
	ExcludedGroups       []string `json:"excluded_groups"`
	ExcludedKinds        []string `json:"excluded_kinds"`
	ExcludedPackageTypes []string `json:"excluded_package_types"`
}

// Normalize returns a copy with each list trimmed, deduplicated and sorted.
// Kinds and package types are lower-cased; group ids are case sensitive.
func (f Filter) Normalize() Filter {
	return Filter{
		ExcludedGroups:       normalizeList(f.ExcludedGroups, false),
		ExcludedKinds:        normalizeList(f.ExcludedKinds, true),
		ExcludedPackageTypes: normalizeList(f.ExcludedPackageTypes, true),
	}
}

func normalizeList(in []string, fold bool) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if fold {
			s = strings.ToLower(s)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Fingerprint serializes the normalized filter deterministically.
func (f Filter) Fingerprint() []byte {
	// A struct of string slices cannot fail to marshal.
	b, _ := json.Marshal(f.Normalize())
	return b
}

// IsZero reports whether the filter excludes nothing.
func (f Filter) IsZero() bool {
	return len(f.ExcludedGroups) == 0 && len(f.ExcludedKinds) == 0 && len(f.ExcludedPackageTypes) == 0
}

// Excludes reports whether n is dropped by the filter. Nodes without a group
// are never excluded by group.
func (f Filter) Excludes(n Node) bool {
	norm := f.Normalize()
	if n.Group != "" && slices.Contains(norm.ExcludedGroups, n.Group) {
		return true
	}
	if n.Kind != "" && slices.Contains(norm.ExcludedKinds, strings.ToLower(n.Kind)) {
		return true
	}
	if n.PackageType != "" && slices.Contains(norm.ExcludedPackageTypes, n.PackageType) {
		return true
	}
	return false
}

// Apply drops excluded nodes and the dependency entries declared by them.
// References from kept entries to dropped nodes are left in place; the graph
// builder discards unresolved references.
func (f Filter) Apply(nodes []Node, deps []Dependency) ([]Node, []Dependency, int) {
	if f.IsZero() {
		return nodes, deps, 0
	}
	kept := make([]Node, 0, len(nodes))
	dropped := make(map[string]struct{})
	for _, n := range nodes {
		if f.Excludes(n) {
			dropped[n.ID] = struct{}{}
			if n.PackageURL != "" {
				dropped[n.PackageURL] = struct{}{}
			}
			continue
		}
		kept = append(kept, n)
	}
	keptDeps := make([]Dependency, 0, len(deps))
	for _, d := range deps {
		if _, ok := dropped[d.Ref]; !ok {
			keptDeps = append(keptDeps, d)
		}
	}
	return kept, keptDeps, len(nodes) - len(kept)
}
