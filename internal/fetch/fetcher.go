package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/AEO3/sbom-compile-orderer/internal/component"
	"github.com/AEO3/sbom-compile-orderer/internal/ctxlog"
	"github.com/AEO3/sbom-compile-orderer/internal/fsutil"
	"github.com/AEO3/sbom-compile-orderer/internal/httpclient"
)

// Getter issues a single HTTP GET.
type Getter interface {
	Get(ctx context.Context, url string) (*httpclient.Response, error)
}

// Sink receives every artifact freshly downloaded by a Fetcher.
type Sink interface {
	Store(ctx context.Context, rec Record, data []byte) error
}

// Config configures a Fetcher. Tool, Tarballs, Ledger and Mirror are
// optional.
type Config struct {
	CacheDir      string
	Client        Getter
	Tool          ExternalTool
	Tarballs      TarballResolver
	Ledger        *Ledger
	Mirror        Sink
	MavenPrimary  string
	MavenFallback string
	NPMRegistry   string
}

// Fetcher resolves artifacts through the attempt chain. It is safe for
// concurrent use.
type Fetcher struct {
	cfg    Config
	flight singleflight.Group

	mu   sync.Mutex
	done map[string]Record
}

// NewFetcher creates a Fetcher, filling empty registry URLs with defaults.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.MavenPrimary == "" {
		cfg.MavenPrimary = DefaultMavenPrimary
	}
	if cfg.MavenFallback == "" {
		cfg.MavenFallback = DefaultMavenFallback
	}
	if cfg.NPMRegistry == "" {
		cfg.NPMRegistry = DefaultNPMRegistry
	}
	return &Fetcher{cfg: cfg, done: make(map[string]Record)}
}

// Fetch returns the record for the kind artifact of node. Each cache key is
// resolved at most once per Fetcher; concurrent and later callers share
// that result.
func (f *Fetcher) Fetch(ctx context.Context, node component.Node, kind Kind) Record {
	key := CacheKey(node.ID, kind)
	if rec, ok := f.completed(key); ok {
		rec.NodeID = node.ID
		return rec
	}

	v, _, _ := f.flight.Do(key, func() (any, error) {
		if rec, ok := f.completed(key); ok {
			return rec, nil
		}
		rec := f.resolve(ctx, node, kind, key)
		f.mu.Lock()
		f.done[key] = rec
		f.mu.Unlock()
		return rec, nil
	})

	rec := v.(Record)
	rec.NodeID = node.ID
	return rec
}

func (f *Fetcher) completed(key string) (Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.done[key]
	return rec, ok
}

// step is the typed outcome of one link of the chain.
type step struct {
	status Status
	reason string
	url    string
	data   []byte
}

func (f *Fetcher) resolve(ctx context.Context, node component.Node, kind Kind, key string) Record {
	logger := ctxlog.FromContext(ctx).With("node", node.ID, "kind", kind.String())
	rec := Record{NodeID: node.ID, Kind: kind, CacheKey: key}

	if reason := unsupported(node, kind); reason != "" {
		rec.Status, rec.Reason = StatusSkipped, reason
		return f.finish(ctx, rec, nil)
	}

	rel := RelativePath(key, kind)
	abs := filepath.Join(f.cfg.CacheDir, filepath.FromSlash(rel))

	if fsutil.NonEmptyFile(abs) {
		rec.Status, rec.Path, rec.Reused = StatusSuccess, rel, true
		if prior, ok := f.cfg.Ledger.Get(key); ok && prior.OK() {
			rec.SourceURL = prior.SourceURL
		}
		attempts.WithLabelValues("cache", "hit").Inc()
		logger.Debug("Fetch: Served from local cache.", "path", rel)
		return f.finish(ctx, rec, nil)
	}
	attempts.WithLabelValues("cache", "miss").Inc()

	primary, fallback := f.locations(ctx, node, kind)

	if data, ok := f.tryTool(ctx, node, kind, abs); ok {
		rec.Status, rec.Path, rec.SourceURL = StatusSuccess, rel, primary
		logger.Info("Fetch: Resolved with external tool.", "path", rel)
		return f.finish(ctx, rec, data)
	}

	last := step{status: StatusError, reason: "no download location"}
	for _, link := range []struct{ name, url string }{{"primary", primary}, {"fallback", fallback}} {
		if link.url == "" {
			continue
		}
		last = f.tryURL(ctx, node, kind, link.name, link.url)
		if last.status == StatusAuthRequired {
			logger.Warn("Fetch: Authentication required.", "url", link.url)
			break
		}
		if last.status == StatusSuccess {
			if err := fsutil.WriteFileAtomic(abs, last.data, 0o644); err != nil {
				last = step{status: StatusError, reason: fmt.Sprintf("write cache file: %v", err), url: link.url}
				break
			}
			logger.Info("Fetch: Downloaded artifact.", "url", link.url, "bytes", len(last.data))
			break
		}
		logger.Debug("Fetch: Link failed.", "link", link.name, "url", link.url, "status", last.status.String(), "reason", last.reason)
	}

	rec.Status, rec.Reason, rec.SourceURL = last.status, last.reason, last.url
	if last.status == StatusSuccess {
		rec.Path, rec.Reason = rel, ""
	}
	return f.finish(ctx, rec, last.data)
}

// tryTool runs the external tool into abs and validates what it produced.
// Invalid output is removed.
func (f *Fetcher) tryTool(ctx context.Context, node component.Node, kind Kind, abs string) ([]byte, bool) {
	if f.cfg.Tool == nil || kind == KindTarball || !f.cfg.Tool.Available(ctx) {
		return nil, false
	}
	logger := ctxlog.FromContext(ctx)
	start := time.Now()
	defer func() { linkDuration.WithLabelValues("tool").Observe(time.Since(start).Seconds()) }()

	if err := f.cfg.Tool.Fetch(ctx, node, kind, abs); err != nil {
		outcome := "error"
		if errors.Is(err, ErrToolAuth) {
			outcome = "auth"
		}
		attempts.WithLabelValues("tool", outcome).Inc()
		logger.Debug("Fetch: External tool failed, falling back to HTTP.", "node", node.ID, "error", err)
		os.Remove(abs)
		return nil, false
	}

	data, err := os.ReadFile(abs)
	if err == nil && len(data) == 0 {
		err = errors.New("empty file")
	}
	if err == nil {
		err = kind.Validate(data, expectedName(node, kind))
	}
	if err == nil {
		attempts.WithLabelValues("tool", "success").Inc()
		return data, true
	}
	attempts.WithLabelValues("tool", "invalid").Inc()
	logger.Debug("Fetch: External tool produced no usable file.", "node", node.ID, "error", err)
	os.Remove(abs)
	return nil, false
}

// tryURL performs one GET and classifies the response.
func (f *Fetcher) tryURL(ctx context.Context, node component.Node, kind Kind, link, url string) step {
	start := time.Now()
	resp, err := f.cfg.Client.Get(ctx, url)
	linkDuration.WithLabelValues(link).Observe(time.Since(start).Seconds())

	var s step
	switch {
	case err != nil:
		s = step{status: StatusError, reason: err.Error()}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		s = step{status: StatusAuthRequired, reason: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusNotFound:
		s = step{status: StatusNotFound, reason: "HTTP 404"}
	case resp.StatusCode == http.StatusOK:
		if verr := kind.Validate(resp.Body, expectedName(node, kind)); verr != nil {
			s = step{status: StatusError, reason: verr.Error()}
		} else {
			s = step{status: StatusSuccess, data: resp.Body}
		}
	default:
		s = step{status: StatusError, reason: fmt.Sprintf("unexpected HTTP %d", resp.StatusCode)}
	}
	s.url = url
	attempts.WithLabelValues(link, s.status.String()).Inc()
	return s
}

func expectedName(node component.Node, kind Kind) string {
	if kind == KindManifest {
		return node.Name
	}
	return ""
}

// locations returns the primary and fallback URLs for the artifact.
func (f *Fetcher) locations(ctx context.Context, node component.Node, kind Kind) (string, string) {
	if kind != KindTarball {
		path := MavenPath(node, kind)
		return joinURL(f.cfg.MavenPrimary, path), joinURL(f.cfg.MavenFallback, path)
	}

	fallback := NPMFallbackURL(f.cfg.NPMRegistry, node)
	if f.cfg.Tarballs == nil {
		return fallback, ""
	}
	primary, err := f.cfg.Tarballs.TarballURL(ctx, node.NPMName(), node.Version)
	if err != nil || primary == "" {
		ctxlog.FromContext(ctx).Debug("Fetch: No published tarball URL, using conventional location.", "node", node.ID, "error", err)
		return fallback, ""
	}
	if primary == fallback {
		return primary, ""
	}
	return primary, fallback
}

// Supported reports whether kind can be fetched for node at all.
func Supported(node component.Node, kind Kind) bool {
	return unsupported(node, kind) == ""
}

func unsupported(node component.Node, kind Kind) string {
	switch kind {
	case KindManifest, KindPackage:
		if node.PackageType != component.TypeMaven {
			return fmt.Sprintf("%s artifacts need a maven package, got %q", kind, node.PackageType)
		}
	case KindTarball:
		if node.PackageType != component.TypeNPM {
			return fmt.Sprintf("tarballs need an npm package, got %q", node.PackageType)
		}
	default:
		return "unknown artifact kind"
	}
	if !node.HasCoordinates() {
		return "missing coordinates"
	}
	return ""
}

// finish records the outcome in the ledger, mirrors fresh downloads and
// updates metrics. Ledger and mirror failures are logged and ignored.
func (f *Fetcher) finish(ctx context.Context, rec Record, data []byte) Record {
	logger := ctxlog.FromContext(ctx)
	records.WithLabelValues(rec.Kind.String(), rec.Status.String()).Inc()

	if rec.Status != StatusSkipped {
		if err := f.cfg.Ledger.Put(rec); err != nil {
			logger.Warn("Fetch: Could not update ledger.", "key", rec.CacheKey, "error", err)
		}
	}
	if f.cfg.Mirror != nil && rec.OK() && len(data) > 0 {
		if err := f.cfg.Mirror.Store(ctx, rec, data); err != nil {
			logger.Warn("Fetch: Could not mirror artifact.", "key", rec.CacheKey, "error", err)
		}
	}
	return rec
}
