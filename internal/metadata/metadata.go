package metadata

import (
	"context"
	"strings"
	"time"
)

// DefaultInterval is the minimum spacing of requests to each metadata host.
const DefaultInterval = 100 * time.Millisecond

// DefaultCacheSize bounds the number of memoized queries per client.
const DefaultCacheSize = 4096

// JSONGetter fetches and decodes a JSON document. A non-200 status is
// returned with a nil error and v untouched.
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, v any) (int, error)
}

// Info is the descriptive metadata of one package version.
type Info struct {
	Homepage string
	License  string
}

// IsZero reports whether no field is set.
func (i Info) IsZero() bool { return i.Homepage == "" && i.License == "" }

// Merge fills empty fields of i from other.
func (i Info) Merge(other Info) Info {
	if i.Homepage == "" {
		i.Homepage = other.Homepage
	}
	if i.License == "" {
		i.License = other.License
	}
	return i
}

// normalizeRepoURL turns a git repository reference into a browsable URL.
func normalizeRepoURL(raw string) string {
	u := strings.TrimSpace(raw)
	u = strings.TrimPrefix(u, "git+")
	u = strings.TrimSuffix(u, ".git")
	if rest, ok := strings.CutPrefix(u, "git://"); ok {
		u = "https://" + rest
	}
	if rest, ok := strings.CutPrefix(u, "ssh://git@"); ok {
		u = "https://" + rest
	}
	return u
}
