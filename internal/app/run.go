package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AEO3/sbom-compile-orderer/internal/buildcache"
	"github.com/AEO3/sbom-compile-orderer/internal/component"
	"github.com/AEO3/sbom-compile-orderer/internal/ctxlog"
	"github.com/AEO3/sbom-compile-orderer/internal/depgraph"
	"github.com/AEO3/sbom-compile-orderer/internal/report"
	"github.com/AEO3/sbom-compile-orderer/internal/sbom"
)

// Run executes one pass: parse, filter, order, refresh the cached artifacts
// and render the report.
func (a *App) Run(ctx context.Context) error {
	ctx = a.context(ctx)
	cfg := a.config
	logger := ctxlog.FromContext(ctx)
	logger.Info("App: Run started.", "sbom", cfg.SBOMPath, "cache_dir", cfg.CacheDir, "format", cfg.Format)

	a.startMonitoringServer(ctx, cfg.MetricsPort)
	defer a.stopMonitoringServer(ctx)

	doc, err := sbom.ParseFile(cfg.SBOMPath)
	if err != nil {
		return fmt.Errorf("failed to read SBOM: %w", err)
	}
	logger.Info("Parse: SBOM loaded.", "spec_version", doc.SpecVersion, "components", len(doc.Nodes), "dependencies", len(doc.Dependencies))

	nodes, deps, excluded := cfg.Filter.Apply(doc.Nodes, doc.Dependencies)
	if excluded > 0 {
		logger.Info("Filter: Components excluded.", "excluded", excluded, "kept", len(nodes))
	}

	graph := depgraph.BuildFromSource(nodes, deps)
	logger.Debug("Order: Computing build order.", "nodes", graph.Len(), "edges", graph.EdgeCount())
	order, hasCycle := graph.ComputeOrder()
	if hasCycle {
		logger.Warn("Order: Circular dependencies detected, order is best effort.")
	}

	store := buildcache.NewStore(cfg.CacheDir)
	now, err := a.baseStage(ctx, store, graph, order)
	if err != nil {
		return err
	}

	if cfg.Enrich() {
		digest, err := a.enrichStage(ctx, store, now, orderedNodes(graph, order))
		if err != nil {
			return err
		}
		now.Enriched = digest
	}

	if err := store.Commit(now); err != nil {
		return fmt.Errorf("failed to persist cache state: %w", err)
	}

	if err := a.render(ctx, graph, order, hasCycle); err != nil {
		return err
	}
	logger.Info("App: Run finished.", "components", len(order))
	return nil
}

// baseStage writes the base order artifact unless the cached copy is still
// valid, and returns the state to commit.
func (a *App) baseStage(ctx context.Context, store *buildcache.Store, graph *depgraph.Graph, order []string) (buildcache.State, error) {
	cfg := a.config
	logger := ctxlog.FromContext(ctx)
	basePath := cfg.path(report.BaseFileName)

	sourceDigest, ok := buildcache.ContentHash(cfg.SBOMPath)
	if !ok {
		return buildcache.State{}, fmt.Errorf("failed to hash SBOM %s", cfg.SBOMPath)
	}
	now := buildcache.State{Source: sourceDigest, Filters: cfg.Filter.Fingerprint()}
	now.BaseOrder, _ = buildcache.ContentHash(basePath)

	plan := store.Decide(now)
	logger.Info("Cache: Base order plan decided.", "plan", plan.String())
	if plan == buildcache.ReuseBase {
		return now, nil
	}

	if err := report.WriteBaseFile(basePath, report.Rows(order, graph)); err != nil {
		return buildcache.State{}, fmt.Errorf("failed to write base order: %w", err)
	}
	digest, ok := buildcache.ContentHash(basePath)
	if !ok {
		return buildcache.State{}, fmt.Errorf("failed to hash base order %s", basePath)
	}
	now.BaseOrder = digest
	logger.Info("Report: Base order written.", "path", basePath, "rows", len(order))
	return now, nil
}

// render writes the report to the output file or to the app's writer. The
// CSV format without an explicit output is satisfied by the base artifact.
func (a *App) render(ctx context.Context, graph *depgraph.Graph, order []string, hasCycle bool) error {
	cfg := a.config
	logger := ctxlog.FromContext(ctx)
	if cfg.Format == report.FormatCSV && cfg.Output == "" {
		logger.Info("Report: Order available.", "path", cfg.path(report.BaseFileName))
		return nil
	}

	renderer, err := report.NewRenderer(cfg.Format)
	if err != nil {
		return err
	}
	stats := graph.Statistics()
	res := report.Result{
		Order:           order,
		Nodes:           graph,
		HasCycle:        hasCycle,
		Statistics:      &stats,
		IncludeMetadata: cfg.IncludeMetadata,
	}
	if hasCycle {
		res.Cycles = graph.Cycles()
	}

	if cfg.Output == "" {
		return renderer.Render(a.outW, res)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(cfg.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := renderer.Render(f, res); err != nil {
		f.Close()
		return fmt.Errorf("failed to render report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	logger.Info("Report: Written.", "path", cfg.Output, "format", cfg.Format)
	return nil
}

func orderedNodes(graph *depgraph.Graph, order []string) []component.Node {
	out := make([]component.Node, 0, len(order))
	for _, id := range order {
		if n, ok := graph.Node(id); ok {
			out = append(out, n)
		}
	}
	return out
}
