package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/AEO3/sbom-compile-orderer/internal/component"
	"github.com/AEO3/sbom-compile-orderer/internal/config"
	"github.com/AEO3/sbom-compile-orderer/internal/fetch"
	"github.com/AEO3/sbom-compile-orderer/internal/metadata"
	"github.com/AEO3/sbom-compile-orderer/internal/report"
)

// Defaults applied by DefaultConfig.
const (
	DefaultCacheDir  = "cache"
	DefaultFormat    = report.FormatCSV
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	SBOMPath        string
	ConfigPath      string // optional HCL project file
	Output          string
	Format          string
	IncludeMetadata bool

	LogFormat   string
	LogLevel    string
	MetricsPort int

	Filter component.Filter

	Manifests       bool
	Packages        bool
	MetadataLookup  bool
	UseExternalTool bool
	Workers         int
	Wait            time.Duration // zero waits until every fetch is done
	FetchTimeout    time.Duration
	CacheDir        string

	MavenPrimary      string
	MavenFallback     string
	MetadataSearchURL string
	NPMRegistry       string
	MirrorInterval    time.Duration
	Mirror            *fetch.S3MirrorConfig
}

// DefaultConfig returns the configuration used before any project file,
// environment or flag is applied.
func DefaultConfig() Config {
	return Config{
		Format:            DefaultFormat,
		LogFormat:         DefaultLogFormat,
		LogLevel:          DefaultLogLevel,
		UseExternalTool:   true,
		Workers:           fetch.DefaultWorkers,
		CacheDir:          DefaultCacheDir,
		MavenPrimary:      fetch.DefaultMavenPrimary,
		MavenFallback:     fetch.DefaultMavenFallback,
		MetadataSearchURL: metadata.DefaultMavenSearchURL,
		NPMRegistry:       metadata.DefaultNPMRegistryURL,
		MirrorInterval:    config.DefaultMirrorInterval,
	}
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	var errs []error
	if strings.TrimSpace(cfg.SBOMPath) == "" {
		errs = append(errs, errors.New("SBOMPath is a required configuration field and cannot be empty"))
	}
	if cfg.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers))
	}
	switch cfg.Format {
	case report.FormatText, report.FormatJSON, report.FormatCSV:
	default:
		errs = append(errs, fmt.Errorf("invalid format %q: must be 'text', 'json' or 'csv'", cfg.Format))
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel))
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat))
	}
	if cfg.Wait < 0 || cfg.FetchTimeout < 0 {
		errs = append(errs, errors.New("wait and fetch timeout must not be negative"))
	}
	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics port out of range: %d", cfg.MetricsPort))
	}
	if strings.TrimSpace(cfg.CacheDir) == "" {
		errs = append(errs, errors.New("cache directory cannot be empty"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyFile overlays every attribute set in f.
func (c *Config) ApplyFile(f *config.File) {
	if f == nil {
		return
	}
	setString(&c.CacheDir, f.CacheDir)
	setInt(&c.Workers, f.Workers)
	setString(&c.Format, f.Format)
	setString(&c.Output, f.Output)

	if fb := f.Filter; fb != nil {
		c.Filter.ExcludedGroups = append(c.Filter.ExcludedGroups, fb.ExcludeGroups...)
		c.Filter.ExcludedKinds = append(c.Filter.ExcludedKinds, fb.ExcludeKinds...)
		c.Filter.ExcludedPackageTypes = append(c.Filter.ExcludedPackageTypes, fb.ExcludePackageTypes...)
	}
	if fb := f.Fetch; fb != nil {
		setBool(&c.Manifests, fb.Manifests)
		setBool(&c.Packages, fb.Packages)
		setBool(&c.UseExternalTool, fb.UseExternalTool)
		setSeconds(&c.FetchTimeout, fb.TimeoutSeconds)
		setSeconds(&c.Wait, fb.WaitSeconds)
		setString(&c.MavenPrimary, fb.PrimaryBaseURL)
		setString(&c.MavenFallback, fb.FallbackBaseURL)
	}
	if m := f.Metadata; m != nil {
		setBool(&c.MetadataLookup, m.Enabled)
		setString(&c.MetadataSearchURL, m.SearchURL)
		setString(&c.NPMRegistry, m.NPMRegistryURL)
	}
	if m := f.Mirror; m != nil {
		c.Mirror = &fetch.S3MirrorConfig{
			Endpoint:  m.Endpoint,
			Bucket:    m.Bucket,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Region:    m.Region,
			Prefix:    m.Prefix,
			UseSSL:    m.UseSSL == nil || *m.UseSSL,
		}
	}
	if m := f.Metrics; m != nil {
		c.MetricsPort = m.Port
	}
}

// ApplyEnv overlays values read from the environment. Mirror credentials
// fill only what the project file left empty.
func (c *Config) ApplyEnv(env config.Env) {
	c.MirrorInterval = env.MirrorInterval
	if c.Mirror != nil {
		if c.Mirror.AccessKey == "" {
			c.Mirror.AccessKey = env.MirrorAccessKey
		}
		if c.Mirror.SecretKey == "" {
			c.Mirror.SecretKey = env.MirrorSecretKey
		}
	}
}

// Enrich reports whether any stage after the base order was requested.
func (c *Config) Enrich() bool {
	return c.Manifests || c.Packages || c.MetadataLookup
}

// Wants is the artifact selection passed to the fetch stage.
func (c *Config) Wants() fetch.Wants {
	return fetch.Wants{Manifests: c.Manifests, Packages: c.Packages}
}

func (c *Config) path(name string) string {
	return filepath.Join(c.CacheDir, name)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setSeconds(dst *time.Duration, v *int) {
	if v != nil {
		*dst = time.Duration(*v) * time.Second
	}
}
