package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/AEO3/sbom-compile-orderer/internal/ctxlog"
)

// DefaultFileName is the project file looked up in the working directory
// when no path is given.
const DefaultFileName = "sbom-order.hcl"

// ErrInvalid marks a project file that does not parse, decode or validate.
var ErrInvalid = errors.New("invalid project file")

// File is the decoded project file. Nil pointers are attributes the file did
// not set.
type File struct {
	CacheDir *string `hcl:"cache_dir,optional"`
	Workers  *int    `hcl:"workers,optional"`
	Format   *string `hcl:"format,optional"`
	Output   *string `hcl:"output,optional"`

	Filter   *FilterBlock   `hcl:"filter,block"`
	Fetch    *FetchBlock    `hcl:"fetch,block"`
	Metadata *MetadataBlock `hcl:"metadata,block"`
	Mirror   *MirrorBlock   `hcl:"mirror,block"`
	Metrics  *MetricsBlock  `hcl:"metrics,block"`
}

// FilterBlock lists what to drop from the SBOM before ordering.
type FilterBlock struct {
	ExcludeGroups       []string `hcl:"exclude_groups,optional"`
	ExcludeKinds        []string `hcl:"exclude_kinds,optional"`
	ExcludePackageTypes []string `hcl:"exclude_package_types,optional"`
}

// FetchBlock configures artifact downloads.
type FetchBlock struct {
	Manifests       *bool   `hcl:"manifests,optional"`
	Packages        *bool   `hcl:"packages,optional"`
	UseExternalTool *bool   `hcl:"use_external_tool,optional"`
	TimeoutSeconds  *int    `hcl:"timeout_seconds,optional"`
	WaitSeconds     *int    `hcl:"wait_seconds,optional"`
	PrimaryBaseURL  *string `hcl:"primary_base_url,optional"`
	FallbackBaseURL *string `hcl:"fallback_base_url,optional"`
}

// MetadataBlock toggles registry metadata lookups and points them at
// alternate registries.
type MetadataBlock struct {
	Enabled        *bool   `hcl:"enabled,optional"`
	SearchURL      *string `hcl:"search_url,optional"`
	NPMRegistryURL *string `hcl:"npm_registry_url,optional"`
}

// MirrorBlock configures the optional S3-compatible artifact mirror.
type MirrorBlock struct {
	Endpoint  string `hcl:"endpoint"`
	Bucket    string `hcl:"bucket"`
	AccessKey string `hcl:"access_key,optional"`
	SecretKey string `hcl:"secret_key,optional"`
	Region    string `hcl:"region,optional"`
	Prefix    string `hcl:"prefix,optional"`
	UseSSL    *bool  `hcl:"use_ssl,optional"`
}

// MetricsBlock configures the monitoring server.
type MetricsBlock struct {
	Port int `hcl:"port"`
}

// Load reads the project file at path. When required is false a missing
// file yields an empty File.
func Load(ctx context.Context, path string, required bool) (*File, error) {
	logger := ctxlog.FromContext(ctx)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			logger.Debug("Config: No project file found.", "path", path)
			return &File{}, nil
		}
		return nil, fmt.Errorf("project file %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrInvalid, path, diags)
	}

	var f File
	if diags := gohcl.DecodeBody(hclFile.Body, evalContext(), &f); diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to decode %s: %w", ErrInvalid, path, diags)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}

	logger.Debug("Config: Project file loaded.", "path", path)
	return &f, nil
}

// Validate checks value ranges that the HCL schema cannot express.
func (f *File) Validate() error {
	var errs []error
	if f.Workers != nil && *f.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", *f.Workers))
	}
	if f.Format != nil {
		switch *f.Format {
		case "text", "json", "csv":
		default:
			errs = append(errs, fmt.Errorf("format must be text, json or csv, got %q", *f.Format))
		}
	}
	if fb := f.Fetch; fb != nil {
		if fb.TimeoutSeconds != nil && *fb.TimeoutSeconds < 0 {
			errs = append(errs, errors.New("fetch.timeout_seconds must not be negative"))
		}
		if fb.WaitSeconds != nil && *fb.WaitSeconds < 0 {
			errs = append(errs, errors.New("fetch.wait_seconds must not be negative"))
		}
	}
	if m := f.Metrics; m != nil && (m.Port < 0 || m.Port > 65535) {
		errs = append(errs, fmt.Errorf("metrics.port out of range: %d", m.Port))
	}
	return errors.Join(errs...)
}
