package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/AEO3/sbom-compile-orderer/internal/component"
	"github.com/AEO3/sbom-compile-orderer/internal/ctxlog"
)

// DefaultMavenSearchURL is the Maven Central search endpoint.
const DefaultMavenSearchURL = "https://search.maven.org/solrsearch/select"

// mavenArtifactPage is where a coordinate's human-readable page lives.
const mavenArtifactPage = "https://mvnrepository.com/artifact"

type mavenSearchResponse struct {
	Response struct {
		NumFound int        `json:"numFound"`
		Docs     []mavenDoc `json:"docs"`
	} `json:"response"`
}

type mavenDoc struct {
	ID            string `json:"id"`
	Group         string `json:"g"`
	Artifact      string `json:"a"`
	Version       string `json:"v"`
	LatestVersion string `json:"latestVersion"`
}

// MavenCentral queries the Maven Central search API.
type MavenCentral struct {
	client  JSONGetter
	baseURL string
	cache   *lru.Cache[string, Info]
}

// NewMavenCentral creates a client. An empty baseURL uses
// DefaultMavenSearchURL and a size below 1 uses DefaultCacheSize.
func NewMavenCentral(client JSONGetter, baseURL string, size int) (*MavenCentral, error) {
	if baseURL == "" {
		baseURL = DefaultMavenSearchURL
	}
	if size < 1 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, Info](size)
	if err != nil {
		return nil, fmt.Errorf("create maven metadata cache: %w", err)
	}
	return &MavenCentral{client: client, baseURL: baseURL, cache: cache}, nil
}

// Host returns the host name requests go to, for throttle configuration.
func (m *MavenCentral) Host() string { return hostOf(m.baseURL) }

// Query is the search expression used for a node.
func Query(node component.Node) string {
	q := fmt.Sprintf(`g:"%s" AND a:"%s"`, node.Group, node.Name)
	if node.Version != "" {
		q += fmt.Sprintf(` AND v:"%s"`, node.Version)
	}
	return q
}

// Lookup returns the homepage of a Maven node. The search API carries no
// license data; License is left empty for the POM to fill.
func (m *MavenCentral) Lookup(ctx context.Context, node component.Node) (Info, error) {
	if node.Group == "" || node.Name == "" {
		return Info{}, nil
	}
	q := Query(node)
	if info, ok := m.cache.Get(q); ok {
		return info, nil
	}

	endpoint := m.baseURL + "?q=" + url.QueryEscape(q) + "&rows=1&wt=json"
	var resp mavenSearchResponse
	status, err := m.client.GetJSON(ctx, endpoint, &resp)
	if err != nil {
		return Info{}, fmt.Errorf("maven central search for %s: %w", node.ID, err)
	}
	if status != http.StatusOK {
		ctxlog.FromContext(ctx).Debug("Metadata: Maven Central search failed.", "node", node.ID, "status", status)
		return Info{}, nil
	}

	var info Info
	if len(resp.Response.Docs) > 0 {
		info.Homepage = artifactPage(resp.Response.Docs[0])
	}
	m.cache.Add(q, info)
	return info, nil
}

func artifactPage(doc mavenDoc) string {
	group, artifact, version := doc.Group, doc.Artifact, doc.Version
	if group == "" || artifact == "" {
		parts := strings.Split(doc.ID, ":")
		if len(parts) < 2 {
			return ""
		}
		group, artifact = parts[0], parts[1]
		if len(parts) > 2 {
			version = parts[2]
		}
	}
	page := mavenArtifactPage + "/" + group + "/" + artifact
	if version != "" {
		page += "/" + version
	}
	return page
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
