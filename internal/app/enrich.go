package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/AEO3/sbom-compile-orderer/internal/buildcache"
	"github.com/AEO3/sbom-compile-orderer/internal/component"
	"github.com/AEO3/sbom-compile-orderer/internal/ctxlog"
	"github.com/AEO3/sbom-compile-orderer/internal/enrich"
	"github.com/AEO3/sbom-compile-orderer/internal/fetch"
	"github.com/AEO3/sbom-compile-orderer/internal/httpclient"
	"github.com/AEO3/sbom-compile-orderer/internal/metadata"
)

// LedgerDirName is the ledger database directory inside the cache.
const LedgerDirName = "ledger"

// services are the network collaborators of the enrichment stage.
type services struct {
	client *httpclient.Client
	maven  *metadata.MavenCentral
	npm    *metadata.NPM
}

// enrichStage produces the enriched artifact according to the cache plan. It
// returns the digest to commit, or "" when the artifact is not final because
// downloads continue in the background.
func (a *App) enrichStage(ctx context.Context, store *buildcache.Store, now buildcache.State, nodes []component.Node) (string, error) {
	cfg := a.config
	logger := ctxlog.FromContext(ctx)
	path := cfg.path(enrich.FileName)

	now.Enriched, _ = buildcache.ContentHash(path)
	plan := store.DecideEnriched(now)

	var prior []enrich.Record
	if plan != buildcache.RegenerateEnriched {
		records, err := enrich.ReadFile(path)
		if err != nil {
			logger.Warn("Enrich: Prior artifact unreadable, regenerating.", "path", path, "error", err)
			plan = buildcache.RegenerateEnriched
		}
		prior = records
	}

	a.openLedger(ctx)
	reused, pending := enrich.Split(nodes, prior, cfg.CacheDir, cfg.Wants(), a.coverage())
	if plan == buildcache.ReuseEnriched {
		if len(pending) == 0 {
			logger.Info("Cache: Enriched plan decided.", "plan", plan.String())
			return now.Enriched, nil
		}
		plan = buildcache.IncrementalPatchEnriched
		logger.Info("Enrich: Cached artifacts changed since the last run.", "stale", len(pending))
	}
	logger.Info("Cache: Enriched plan decided.", "plan", plan.String(), "reused", len(reused), "pending", len(pending))

	svc, err := a.services(ctx)
	if err != nil {
		return "", err
	}

	records, detached := a.fetchAll(ctx, svc, pending)

	cfgBuilder := enrich.BuilderConfig{
		CacheDir:     cfg.CacheDir,
		Workers:      cfg.Workers,
		MavenPrimary: cfg.MavenPrimary,
	}
	if cfg.MetadataLookup {
		cfgBuilder.Maven = svc.maven
		cfgBuilder.NPM = svc.npm
	}
	out, err := enrich.NewBuilder(cfgBuilder).Build(ctx, nodes, records, reused)
	if err != nil {
		return "", fmt.Errorf("failed to build enriched records: %w", err)
	}
	if err := enrich.WriteFile(path, out); err != nil {
		return "", fmt.Errorf("failed to write enriched artifact: %w", err)
	}
	logger.Info("Report: Enriched artifact written.", "path", path, "rows", len(out))

	if detached {
		return "", nil
	}
	digest, ok := buildcache.ContentHash(path)
	if !ok {
		return "", fmt.Errorf("failed to hash enriched artifact %s", path)
	}
	return digest, nil
}

// openLedger opens the record ledger once. Without a ledger every run still
// works, only without download provenance and coverage checks.
func (a *App) openLedger(ctx context.Context) {
	if a.ledger != nil {
		return
	}
	logger := ctxlog.FromContext(ctx)
	ledger, err := fetch.OpenLedger(fetch.LedgerConfig{
		Path:   a.config.path(LedgerDirName),
		Logger: logger.With("component", "ledger"),
	})
	if err != nil {
		logger.Warn("Fetch: Ledger unavailable.", "error", err)
		return
	}
	a.ledger = ledger
	if known, err := ledger.All(); err == nil {
		logger.Debug("Fetch: Ledger opened.", "records", len(known))
	}
}

// coverage reports whether the ledger holds a record for every artifact the
// current selection wants for a node. Without a ledger every node counts as
// covered.
func (a *App) coverage() func(component.Node) bool {
	if a.ledger == nil {
		return nil
	}
	want := a.config.Wants()
	return func(n component.Node) bool {
		for _, t := range fetch.Tasks([]component.Node{n}, want) {
			if !fetch.Supported(t.Node, t.Kind) {
				continue
			}
			if _, ok := a.ledger.Get(fetch.CacheKey(t.Node.ID, t.Kind)); !ok {
				return false
			}
		}
		return true
	}
}

// services builds the shared client and registry clients. Every client
// shares one throttle so host intervals hold across workers.
func (a *App) services(ctx context.Context) (*services, error) {
	cfg := a.config
	throttle := httpclient.NewThrottle(0)
	client := httpclient.New(httpclient.Config{Timeout: cfg.FetchTimeout, Throttle: throttle})

	maven, err := metadata.NewMavenCentral(client, cfg.MetadataSearchURL, metadata.DefaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create Maven Central client: %w", err)
	}
	npm, err := metadata.NewNPM(client, cfg.NPMRegistry, metadata.DefaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create npm registry client: %w", err)
	}

	throttle.SetInterval(maven.Host(), metadata.DefaultInterval)
	throttle.SetInterval(npm.Host(), metadata.DefaultInterval)
	if u, err := url.Parse(cfg.MavenFallback); err == nil && u.Host != "" {
		throttle.SetInterval(u.Host, cfg.MirrorInterval)
	}
	ctxlog.FromContext(ctx).Debug("Fetch: Host throttle configured.",
		"metadata_interval", metadata.DefaultInterval, "fallback_interval", cfg.MirrorInterval)

	return &services{client: client, maven: maven, npm: npm}, nil
}

// fetchAll downloads the artifacts of nodes. When the wait elapses the pool
// keeps running in the background, the records gathered so far are
// returned with the missing ones marked as still running, and detached is
// true.
func (a *App) fetchAll(ctx context.Context, svc *services, nodes []component.Node) (records []fetch.Record, detached bool) {
	cfg := a.config
	logger := ctxlog.FromContext(ctx)

	tasks := fetch.Tasks(nodes, cfg.Wants())
	if len(tasks) == 0 {
		return nil, false
	}

	fcfg := fetch.Config{
		CacheDir:      cfg.CacheDir,
		Client:        svc.client,
		Tarballs:      svc.npm,
		Ledger:        a.ledger,
		MavenPrimary:  cfg.MavenPrimary,
		MavenFallback: cfg.MavenFallback,
		NPMRegistry:   cfg.NPMRegistry,
	}
	if cfg.UseExternalTool {
		fcfg.Tool = fetch.NewMavenTool(fetch.MavenToolConfig{
			RepositoryURL: cfg.MavenPrimary,
			Verbose:       cfg.LogLevel == "debug",
		})
	}
	if cfg.Mirror != nil {
		mirror, err := fetch.NewS3Mirror(*cfg.Mirror)
		if err != nil {
			logger.Warn("Fetch: Mirror disabled.", "error", err)
		} else {
			fcfg.Mirror = mirror
		}
	}

	logger.Info("Fetch: Downloading artifacts.", "tasks", len(tasks), "workers", cfg.Workers, "wait", cfg.Wait)
	handle := fetch.NewPool(fetch.NewFetcher(fcfg), cfg.Workers).Start(ctx, tasks)

	records, err := handle.Collect(cfg.Wait)
	if errors.Is(err, fetch.ErrDetached) {
		logger.Warn("Fetch: Wait elapsed, downloads continue in the background.", "done", handle.Len(), "total", handle.Total())
		a.background = handle
		return append(records, fetch.Pending(tasks, records)...), true
	}
	logger.Info("Fetch: Downloads finished.", "records", len(records))
	return records, false
}
