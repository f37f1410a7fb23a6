package fetch

import (
	"context"
	"net/url"
	"strings"

	"github.com/AEO3/sbom-compile-orderer/internal/component"
)

// Registry base URLs.
const (
	DefaultMavenPrimary  = "https://repo1.maven.org/maven2"
	DefaultMavenFallback = "https://mvnrepository.com/repos/central"
	DefaultNPMRegistry   = "https://registry.npmjs.org"
)

// TarballResolver looks up the published tarball URL of an npm package.
type TarballResolver interface {
	TarballURL(ctx context.Context, name, version string) (string, error)
}

// MavenPath is the repository-relative path of a Maven artifact:
// group/with/slashes/name/version/name-version.ext.
func MavenPath(node component.Node, kind Kind) string {
	return strings.Join([]string{
		strings.ReplaceAll(node.Group, ".", "/"),
		node.Name,
		node.Version,
		node.Name + "-" + node.Version + "." + kind.Extension(),
	}, "/")
}

// NPMFallbackURL is the conventional registry tarball location:
// base/name/-/basename-version.tgz, where basename drops any scope.
func NPMFallbackURL(base string, node component.Node) string {
	name := node.NPMName()
	basename := name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		basename = name[i+1:]
	}
	return strings.TrimRight(base, "/") + "/" + name + "/-/" + url.PathEscape(basename) + "-" + url.PathEscape(node.Version) + ".tgz"
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
