package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/AEO3/sbom-compile-orderer/internal/component"
	"github.com/AEO3/sbom-compile-orderer/internal/ctxlog"
	"github.com/AEO3/sbom-compile-orderer/internal/fsutil"
)

// ExternalTool fetches artifacts through a package manager installed on the
// host.
type ExternalTool interface {
	// Available reports whether the tool can be used. Implementations probe
	// at most once per process.
	Available(ctx context.Context) bool
	// Fetch writes the artifact of node to dest.
	Fetch(ctx context.Context, node component.Node, kind Kind, dest string) error
}

// ErrToolAuth means the tool's output suggests missing credentials.
var ErrToolAuth = errors.New("external tool reported an authentication problem")

var authIndicators = []string{"401", "403", "unauthorized", "authentication", "credentials"}

// CommandRunner runs a command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// MavenToolConfig configures MavenTool.
type MavenToolConfig struct {
	Binary        string
	RepositoryURL string
	LocalRepo     string
	Verbose       bool
	ProbeTimeout  time.Duration
	FetchTimeout  time.Duration
	Runner        CommandRunner
}

// MavenTool drives "mvn dependency:get".
type MavenTool struct {
	cfg       MavenToolConfig
	probeOnce sync.Once
	available bool
}

// NewMavenTool fills unset fields of cfg with defaults: mvn on PATH,
// ~/.m2/repository, a 10s probe and a 120s fetch timeout.
func NewMavenTool(cfg MavenToolConfig) *MavenTool {
	if cfg.Binary == "" {
		cfg.Binary = "mvn"
	}
	if cfg.RepositoryURL == "" {
		cfg.RepositoryURL = DefaultMavenPrimary
	}
	if cfg.LocalRepo == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.LocalRepo = filepath.Join(home, ".m2", "repository")
		}
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 120 * time.Second
	}
	if cfg.Runner == nil {
		cfg.Runner = execRunner
	}
	return &MavenTool{cfg: cfg}
}

// Available runs "mvn --version" once and caches the answer.
func (m *MavenTool) Available(ctx context.Context) bool {
	m.probeOnce.Do(func() {
		probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
		defer cancel()
		_, err := m.cfg.Runner(probeCtx, m.cfg.Binary, "--version")
		m.available = err == nil
		ctxlog.FromContext(ctx).Debug("Fetch: Probed external tool.", "tool", m.cfg.Binary, "available", m.available)
	})
	return m.available
}

// Fetch runs dependency:get for the node's coordinates with dest as the
// output file. When mvn succeeds without writing dest, the artifact is
// copied from the local Maven repository.
func (m *MavenTool) Fetch(ctx context.Context, node component.Node, kind Kind, dest string) error {
	if kind != KindManifest && kind != KindPackage {
		return fmt.Errorf("mvn cannot fetch %s artifacts", kind)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	coord := fmt.Sprintf("%s:%s:%s:%s", node.Group, node.Name, node.Version, kind.Extension())
	args := []string{
		"dependency:get",
		"-Dartifact=" + coord,
		"-Ddest=" + dest,
		"-Dtransitive=false",
		"-DremoteRepositories=central::default::" + m.cfg.RepositoryURL,
	}
	if !m.cfg.Verbose {
		args = append(args, "-q")
	}

	runCtx, cancel := context.WithTimeout(ctx, m.cfg.FetchTimeout)
	defer cancel()
	out, err := m.cfg.Runner(runCtx, m.cfg.Binary, args...)
	if err != nil {
		lower := strings.ToLower(string(out))
		for _, indicator := range authIndicators {
			if strings.Contains(lower, indicator) {
				return fmt.Errorf("%w: %s", ErrToolAuth, coord)
			}
		}
		return fmt.Errorf("mvn dependency:get %s: %w", coord, err)
	}

	if !fsutil.NonEmptyFile(dest) && m.cfg.LocalRepo != "" {
		local := filepath.Join(m.cfg.LocalRepo, filepath.FromSlash(MavenPath(node, kind)))
		if fsutil.NonEmptyFile(local) {
			if err := fsutil.CopyFile(local, dest); err != nil {
				return fmt.Errorf("copy from local repository: %w", err)
			}
		}
	}
	return nil
}
