package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AEO3/sbom-compile-orderer/internal/app"
	"github.com/AEO3/sbom-compile-orderer/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// flagValues receives the raw flag values before they are merged.
type flagValues struct {
	output          string
	format          string
	verbose         bool
	includeMetadata bool

	ignoreGroups        []string
	excludeKinds        []string
	excludePackageTypes []string

	poms        bool
	pullPackage bool
	mavenLookup bool
	noMvn       bool
	workers     int
	waitSeconds int
	cacheDir    string
	configPath  string
	logFormat   string
	logLevel    string
	metricsPort int
}

func newRootCommand(v *flagValues) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sbom-compile-order [flags] SBOM_FILE",
		Short: "Compute a build order from a CycloneDX SBOM.",
		Long: `sbom-compile-order reads a CycloneDX JSON SBOM and prints the order in which
its components have to be built, dependencies first. The order is cached as
cache/compile-order.csv; --poms, --pull-package and --maven-central-lookup
additionally maintain cache/enriched.csv with downloaded artifacts and
registry metadata.

Settings are read from sbom-order.hcl (or --config), then from .env and the
environment, then from flags.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	fs := cmd.Flags()
	fs.SortFlags = false
	fs.StringVarP(&v.output, "output", "o", "", "Output file path (default: cache/compile-order.csv for csv, stdout otherwise).")
	fs.StringVarP(&v.format, "format", "f", app.DefaultFormat, "Output format: text, json or csv.")
	fs.BoolVarP(&v.verbose, "verbose", "v", false, "Enable verbose output (same as --log-level debug).")
	fs.BoolVarP(&v.includeMetadata, "include-metadata", "i", false, "Include component metadata in the output.")

	fs.StringSliceVar(&v.ignoreGroups, "ignore-group-ids", nil, "Group IDs to exclude (repeatable or comma separated).")
	fs.StringSliceVar(&v.excludeKinds, "exclude-kinds", nil, "Component kinds to exclude, e.g. application.")
	fs.StringSliceVar(&v.excludePackageTypes, "exclude-package-types", nil, "Package URL types to exclude, e.g. npm.")

	fs.BoolVar(&v.poms, "poms", false, "Download POM files.")
	fs.BoolVar(&v.pullPackage, "pull-package", false, "Download packages (jars and npm tarballs).")
	fs.BoolVarP(&v.mavenLookup, "maven-central-lookup", "m", false, "Look up homepage and license in the registries.")
	fs.BoolVar(&v.noMvn, "no-mvn", false, "Never use the mvn command, download over HTTP only.")
	fs.IntVar(&v.workers, "workers", app.DefaultConfig().Workers, "Number of concurrent download workers.")
	fs.IntVar(&v.waitSeconds, "wait", 0, "Seconds to wait for downloads before continuing without them. 0 waits until done.")
	fs.StringVar(&v.cacheDir, "cache-dir", app.DefaultCacheDir, "Cache directory for artifacts, digests and logs.")
	fs.StringVar(&v.configPath, "config", "", "Project file (default: ./"+config.DefaultFileName+" when present).")

	fs.StringVar(&v.logFormat, "log-format", app.DefaultLogFormat, "Log output format. Options: 'text' or 'json'.")
	fs.StringVar(&v.logLevel, "log-level", app.DefaultLogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	fs.IntVar(&v.metricsPort, "metrics-port", 0, "Port for the /health and /metrics server. 0 is disabled.")
	return cmd
}

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating if the program should exit cleanly, or an ExitError.
// Values are merged as defaults, then the project file, then the
// environment, then every flag given explicitly.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	var (
		v       flagValues
		sbomArg []string
		ran     bool
	)
	if args == nil {
		args = []string{}
	}
	cmd := newRootCommand(&v)
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)
	cmd.RunE = func(_ *cobra.Command, positional []string) error {
		ran = true
		sbomArg = positional
		return nil
	}

	if err := cmd.Execute(); err != nil {
		return nil, false, usageError("%s", err.Error())
	}
	if !ran {
		return nil, true, nil
	}
	if len(sbomArg) == 0 {
		slog.Debug("No SBOM path provided, printing usage and exiting.")
		_ = cmd.Usage()
		return nil, true, nil
	}
	slog.Debug("Arguments parsed successfully.", "sbom", sbomArg[0])

	cfg := app.DefaultConfig()
	cfg.SBOMPath = sbomArg[0]

	changed := cmd.Flags().Changed
	configPath := config.DefaultFileName
	if changed("config") {
		configPath = v.configPath
	}
	file, err := config.Load(context.Background(), configPath, changed("config"))
	if err != nil {
		return nil, false, usageError("%v", err)
	}
	cfg.ConfigPath = configPath
	cfg.ApplyFile(file)

	if err := config.LoadEnv(); err != nil {
		return nil, false, usageError("failed to load .env: %v", err)
	}
	cfg.ApplyEnv(config.ReadEnv(nil))

	applyFlags(&cfg, &v, changed)

	valid, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, usageError("%v", err)
	}
	slog.Debug("CLI parser finished successfully.", "sbom", valid.SBOMPath, "format", valid.Format)
	return valid, false, nil
}

// applyFlags overlays the flags that were set on the command line.
func applyFlags(cfg *app.Config, v *flagValues, changed func(string) bool) {
	if changed("output") {
		cfg.Output = v.output
	}
	if changed("format") {
		cfg.Format = strings.ToLower(v.format)
	}
	if changed("include-metadata") {
		cfg.IncludeMetadata = v.includeMetadata
	}
	cfg.Filter.ExcludedGroups = append(cfg.Filter.ExcludedGroups, v.ignoreGroups...)
	cfg.Filter.ExcludedKinds = append(cfg.Filter.ExcludedKinds, v.excludeKinds...)
	cfg.Filter.ExcludedPackageTypes = append(cfg.Filter.ExcludedPackageTypes, v.excludePackageTypes...)

	if changed("poms") {
		cfg.Manifests = v.poms
	}
	if changed("pull-package") {
		cfg.Packages = v.pullPackage
	}
	if changed("maven-central-lookup") {
		cfg.MetadataLookup = v.mavenLookup
	}
	if changed("no-mvn") {
		cfg.UseExternalTool = !v.noMvn
	}
	if changed("workers") {
		cfg.Workers = v.workers
	}
	if changed("wait") {
		cfg.Wait = time.Duration(v.waitSeconds) * time.Second
	}
	if changed("cache-dir") {
		cfg.CacheDir = v.cacheDir
	}
	if changed("log-format") {
		cfg.LogFormat = strings.ToLower(v.logFormat)
	}
	if changed("log-level") {
		cfg.LogLevel = strings.ToLower(v.logLevel)
	}
	if v.verbose {
		cfg.LogLevel = "debug"
	}
	if changed("metrics-port") {
		cfg.MetricsPort = v.metricsPort
	}
}
