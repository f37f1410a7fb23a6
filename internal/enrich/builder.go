package enrich

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/AEO3/sbom-compile-orderer/internal/component"
	"github.com/AEO3/sbom-compile-orderer/internal/ctxlog"
	"github.com/AEO3/sbom-compile-orderer/internal/fetch"
	"github.com/AEO3/sbom-compile-orderer/internal/metadata"
	"github.com/AEO3/sbom-compile-orderer/internal/report"
)

// DefaultLookupWorkers bounds concurrent registry lookups.
const DefaultLookupWorkers = 5

// MetadataSource looks up descriptive package data.
type MetadataSource interface {
	Lookup(ctx context.Context, node component.Node) (metadata.Info, error)
}

// BuilderConfig configures a Builder. Maven and NPM are optional; a nil
// source skips lookups for that ecosystem.
type BuilderConfig struct {
	CacheDir     string
	Maven        MetadataSource
	NPM          MetadataSource
	Workers      int
	MavenPrimary string
}

// Builder assembles enriched records from fetch results and registry
// metadata.
type Builder struct {
	cfg BuilderConfig
}

// NewBuilder creates a Builder, filling Workers and MavenPrimary defaults.
func NewBuilder(cfg BuilderConfig) *Builder {
	if cfg.Workers < 1 {
		cfg.Workers = DefaultLookupWorkers
	}
	if cfg.MavenPrimary == "" {
		cfg.MavenPrimary = fetch.DefaultMavenPrimary
	}
	return &Builder{cfg: cfg}
}

// Split partitions nodes into those whose prior record can be carried over
// and those that must be recomputed. A prior record is carried over when it
// is intact, or when it was skipped and want holds nothing fetchable for the
// node, and covered, when set, accepts the node.
func Split(nodes []component.Node, prior []Record, cacheDir string, want fetch.Wants, covered func(component.Node) bool) (map[string]Record, []component.Node) {
	byKey := make(map[string]Record, len(prior))
	for _, r := range prior {
		if _, dup := byKey[r.Key()]; !dup {
			byKey[r.Key()] = r
		}
	}

	reused := make(map[string]Record)
	var pending []component.Node
	for _, n := range nodes {
		key := report.RowFor(0, n).Key()
		r, ok := byKey[key]
		if ok && settled(r, n, cacheDir, want) && (covered == nil || covered(n)) {
			reused[key] = r
			continue
		}
		pending = append(pending, n)
	}
	return reused, pending
}

func settled(r Record, n component.Node, cacheDir string, want fetch.Wants) bool {
	if r.Intact(cacheDir) {
		return true
	}
	if r.Downloaded != DownloadedSkipped || len(r.Paths()) > 0 {
		return false
	}
	for _, t := range fetch.Tasks([]component.Node{n}, want) {
		if fetch.Supported(t.Node, t.Kind) {
			return false
		}
	}
	return true
}

// Build returns one record per node, in the given order. Nodes found in
// reused keep their prior enrichment with a refreshed order column; the
// others are assembled from records and registry lookups. Lookup failures
// are logged and leave the fields empty. The only error is ctx's.
func (b *Builder) Build(ctx context.Context, nodes []component.Node, records []fetch.Record, reused map[string]Record) ([]Record, error) {
	logger := ctxlog.FromContext(ctx)
	byNode := make(map[string][]fetch.Record)
	for _, r := range records {
		byNode[r.NodeID] = append(byNode[r.NodeID], r)
	}

	out := make([]Record, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)

	fresh := 0
	for i, n := range nodes {
		row := report.RowFor(i+1, n)
		if prior, ok := reused[row.Key()]; ok {
			prior.Row = row
			out[i] = prior
			continue
		}

		fresh++
		out[i] = b.assemble(row, n, byNode[n.ID])
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			info := b.lookup(gctx, n)
			info = info.Merge(b.manifestInfo(gctx, byNode[n.ID]))
			if info.License == "" && len(n.Licenses) > 0 {
				info.License = strings.Join(n.Licenses, ", ")
			}
			out[i].Homepage, out[i].License = info.Homepage, info.License
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Info("Enrich: Built enriched records.", "total", len(out), "recomputed", fresh, "reused", len(out)-fresh)
	return out, nil
}

// assemble fills the download columns of a record.
func (b *Builder) assemble(row report.Row, n component.Node, recs []fetch.Record) Record {
	rec := Record{Row: row, Downloaded: summarize(recs)}

	var locations []string
	for _, kind := range []fetch.Kind{fetch.KindManifest, fetch.KindPackage, fetch.KindTarball} {
		for _, r := range recs {
			if r.Kind != kind {
				continue
			}
			if r.OK() {
				locations = append(locations, "./"+r.Path)
			}
			if r.Status == fetch.StatusAuthRequired {
				rec.Auth = "AUTH"
			}
			url := r.SourceURL
			if url == "" && kind != fetch.KindTarball && n.PackageType == component.TypeMaven && n.HasCoordinates() {
				url = strings.TrimRight(b.cfg.MavenPrimary, "/") + "/" + fetch.MavenPath(n, kind)
			}
			if kind == fetch.KindManifest {
				rec.POMURL = url
			} else {
				rec.JARURL = url
			}
		}
	}
	rec.FileLocation = strings.Join(locations, locationSeparator)
	return rec
}

func summarize(recs []fetch.Record) Downloaded {
	if len(recs) == 0 {
		return ""
	}
	for _, r := range recs {
		if r.Status == fetch.StatusSkipped && r.Reason == fetch.StillRunning {
			return DownloadedSkipped
		}
	}
	auth, skipped := false, 0
	for _, r := range recs {
		switch r.Status {
		case fetch.StatusSuccess:
			return DownloadedYes
		case fetch.StatusAuthRequired:
			auth = true
		case fetch.StatusSkipped:
			skipped++
		}
	}
	switch {
	case auth:
		return DownloadedAuth
	case skipped == len(recs):
		return DownloadedSkipped
	}
	return DownloadedNo
}

func (b *Builder) lookup(ctx context.Context, n component.Node) metadata.Info {
	var src MetadataSource
	switch n.PackageType {
	case component.TypeMaven:
		src = b.cfg.Maven
	case component.TypeNPM:
		src = b.cfg.NPM
	}
	if src == nil {
		return metadata.Info{}
	}
	info, err := src.Lookup(ctx, n)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Enrich: Metadata lookup failed.", "node", n.ID, "error", err)
		return metadata.Info{}
	}
	return info
}

// manifestInfo reads homepage and license from a downloaded POM.
func (b *Builder) manifestInfo(ctx context.Context, recs []fetch.Record) metadata.Info {
	for _, r := range recs {
		if r.Kind != fetch.KindManifest || !r.OK() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(b.cfg.CacheDir, filepath.FromSlash(r.Path)))
		if err != nil {
			ctxlog.FromContext(ctx).Debug("Enrich: Could not read manifest.", "path", r.Path, "error", err)
			return metadata.Info{}
		}
		m, err := fetch.ParseManifest(data)
		if err != nil {
			return metadata.Info{}
		}
		info := metadata.Info{Homepage: m.SCMURL, License: strings.Join(m.Licenses, ", ")}
		if info.Homepage == "" {
			info.Homepage = m.URL
		}
		return info
	}
	return metadata.Info{}
}
