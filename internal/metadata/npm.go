package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/AEO3/sbom-compile-orderer/internal/component"
	"github.com/AEO3/sbom-compile-orderer/internal/ctxlog"
)

// DefaultNPMRegistryURL is the public npm registry.
const DefaultNPMRegistryURL = "https://registry.npmjs.org"

type packument struct {
	Homepage   string                `json:"homepage"`
	Repository json.RawMessage       `json:"repository"`
	License    json.RawMessage       `json:"license"`
	DistTags   map[string]string     `json:"dist-tags"`
	Versions   map[string]npmVersion `json:"versions"`
}

type npmVersion struct {
	Homepage   string          `json:"homepage"`
	Repository json.RawMessage `json:"repository"`
	License    json.RawMessage `json:"license"`
	Dist       struct {
		Tarball string `json:"tarball"`
	} `json:"dist"`
}

// NPM queries the npm registry. A nil cached packument records a package
// the registry does not know.
type NPM struct {
	client  JSONGetter
	baseURL string
	cache   *lru.Cache[string, *packument]
}

// NewNPM creates a client. An empty baseURL uses DefaultNPMRegistryURL and a
// size below 1 uses DefaultCacheSize.
func NewNPM(client JSONGetter, baseURL string, size int) (*NPM, error) {
	if baseURL == "" {
		baseURL = DefaultNPMRegistryURL
	}
	if size < 1 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *packument](size)
	if err != nil {
		return nil, fmt.Errorf("create npm metadata cache: %w", err)
	}
	return &NPM{client: client, baseURL: strings.TrimRight(baseURL, "/"), cache: cache}, nil
}

// Host returns the host name requests go to, for throttle configuration.
func (n *NPM) Host() string { return hostOf(n.baseURL) }

// PackageURL is the packument location of name; scoped names are escaped
// as one path segment.
func (n *NPM) PackageURL(name string) string {
	return n.baseURL + "/" + url.PathEscape(name)
}

func (n *NPM) packument(ctx context.Context, name string) (*packument, error) {
	if doc, ok := n.cache.Get(name); ok {
		return doc, nil
	}
	var doc packument
	status, err := n.client.GetJSON(ctx, n.PackageURL(name), &doc)
	if err != nil {
		return nil, fmt.Errorf("npm metadata for %s: %w", name, err)
	}
	if status != http.StatusOK {
		ctxlog.FromContext(ctx).Debug("Metadata: npm registry lookup failed.", "package", name, "status", status)
		if status == http.StatusNotFound {
			n.cache.Add(name, nil)
		}
		return nil, nil
	}
	n.cache.Add(name, &doc)
	return &doc, nil
}

// version picks the requested version, else the latest dist-tag.
func (p *packument) version(v string) (npmVersion, bool) {
	if ver, ok := p.Versions[v]; ok && v != "" {
		return ver, true
	}
	if latest := p.DistTags["latest"]; latest != "" {
		ver, ok := p.Versions[latest]
		return ver, ok
	}
	return npmVersion{}, false
}

// Lookup returns the homepage and license of an npm node. The homepage falls
// back to the repository URL.
func (n *NPM) Lookup(ctx context.Context, node component.Node) (Info, error) {
	name := node.NPMName()
	if name == "" {
		return Info{}, nil
	}
	doc, err := n.packument(ctx, name)
	if err != nil || doc == nil {
		return Info{}, err
	}
	ver, ok := doc.version(node.Version)
	if !ok {
		return Info{}, nil
	}

	info := Info{Homepage: ver.Homepage, License: licenseName(ver.License)}
	if info.Homepage == "" {
		info.Homepage = doc.Homepage
	}
	if info.Homepage == "" {
		info.Homepage = repositoryURL(ver.Repository)
	}
	if info.Homepage == "" {
		info.Homepage = repositoryURL(doc.Repository)
	}
	if info.License == "" {
		info.License = licenseName(doc.License)
	}
	info.Homepage = normalizeRepoURL(info.Homepage)
	return info, nil
}

// TarballURL returns dist.tarball of the exact version, or "" when the
// registry does not list it.
func (n *NPM) TarballURL(ctx context.Context, name, version string) (string, error) {
	doc, err := n.packument(ctx, name)
	if err != nil || doc == nil {
		return "", err
	}
	ver, ok := doc.Versions[version]
	if !ok {
		return "", nil
	}
	return ver.Dist.Tarball, nil
}

// licenseName accepts the string, object and legacy array forms.
func licenseName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		if obj.Type != "" {
			return strings.TrimSpace(obj.Type)
		}
		return strings.TrimSpace(obj.Name)
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		var names []string
		for _, item := range list {
			if name := licenseName(item); name != "" {
				names = append(names, name)
			}
		}
		return strings.Join(names, " OR ")
	}
	return ""
}

func repositoryURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		URL string `json:"url"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.URL
	}
	return ""
}
