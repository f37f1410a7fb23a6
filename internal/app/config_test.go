package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AEO3/sbom-compile-orderer/internal/config"
	"github.com/AEO3/sbom-compile-orderer/internal/metadata"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.SBOMPath = "bom.json"
	return cfg
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults with a path are valid", func(t *testing.T) {
		t.Parallel()
		cfg, err := NewConfig(validConfig())
		require.NoError(t, err)
		assert.Equal(t, "bom.json", cfg.SBOMPath)
		assert.Equal(t, DefaultFormat, cfg.Format)
		assert.Equal(t, DefaultCacheDir, cfg.CacheDir)
		assert.True(t, cfg.UseExternalTool)
	})

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing sbom path", func(c *Config) { c.SBOMPath = " " }, "SBOMPath"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"unknown format", func(c *Config) { c.Format = "yaml" }, "invalid format"},
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log-level"},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, "invalid log-format"},
		{"negative wait", func(c *Config) { c.Wait = -time.Second }, "must not be negative"},
		{"port out of range", func(c *Config) { c.MetricsPort = 70000 }, "metrics port"},
		{"empty cache dir", func(c *Config) { c.CacheDir = "" }, "cache directory"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(&cfg)

			_, err := NewConfig(cfg)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConfig_ApplyFile(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	str := func(s string) *string { return &s }
	num := func(n int) *int { return &n }
	flag := func(b bool) *bool { return &b }

	cfg := validConfig()
	cfg.Filter.ExcludedGroups = []string{"from.flags"}
	f := &config.File{
		CacheDir: str("build/cache"),
		Workers:  num(12),
		Filter:   &config.FilterBlock{ExcludeGroups: []string{"com.internal"}, ExcludeKinds: []string{"application"}},
		Fetch: &config.FetchBlock{
			Packages:        flag(true),
			UseExternalTool: flag(false),
			WaitSeconds:     num(30),
			FallbackBaseURL: str("https://mirror.example/maven2"),
		},
		Metadata: &config.MetadataBlock{Enabled: flag(true), SearchURL: str("https://search.example/select")},
		Mirror:   &config.MirrorBlock{Endpoint: "localhost:9000", Bucket: "artifacts", UseSSL: flag(false)},
		Metrics:  &config.MetricsBlock{Port: 9090},
	}

	// --- Act ---
	cfg.ApplyFile(f)
	cfg.ApplyEnv(config.Env{MirrorInterval: 2 * time.Second, MirrorAccessKey: "key", MirrorSecretKey: "secret"})

	// --- Assert ---
	assert.Equal(t, "build/cache", cfg.CacheDir)
	assert.Equal(t, 12, cfg.Workers)
	assert.Equal(t, DefaultFormat, cfg.Format, "unset attributes keep their value")
	assert.Equal(t, []string{"from.flags", "com.internal"}, cfg.Filter.ExcludedGroups)
	assert.Equal(t, []string{"application"}, cfg.Filter.ExcludedKinds)
	assert.True(t, cfg.Packages)
	assert.False(t, cfg.Manifests)
	assert.False(t, cfg.UseExternalTool)
	assert.Equal(t, 30*time.Second, cfg.Wait)
	assert.Equal(t, "https://mirror.example/maven2", cfg.MavenFallback)
	assert.True(t, cfg.MetadataLookup)
	assert.Equal(t, "https://search.example/select", cfg.MetadataSearchURL)
	assert.Equal(t, metadata.DefaultNPMRegistryURL, cfg.NPMRegistry)
	assert.True(t, cfg.Enrich())
	assert.Equal(t, 9090, cfg.MetricsPort)
	assert.Equal(t, 2*time.Second, cfg.MirrorInterval)

	require.NotNil(t, cfg.Mirror)
	assert.False(t, cfg.Mirror.UseSSL)
	assert.Equal(t, "key", cfg.Mirror.AccessKey)
	assert.Equal(t, "secret", cfg.Mirror.SecretKey)
}

func TestConfig_ApplyEnvKeepsFileCredentials(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.ApplyFile(&config.File{Mirror: &config.MirrorBlock{Endpoint: "e", Bucket: "b", AccessKey: "file"}})
	cfg.ApplyEnv(config.Env{MirrorAccessKey: "env", MirrorSecretKey: "env-secret"})

	assert.Equal(t, "file", cfg.Mirror.AccessKey)
	assert.Equal(t, "env-secret", cfg.Mirror.SecretKey)
	assert.True(t, cfg.Mirror.UseSSL, "TLS is on unless disabled")
	assert.Zero(t, cfg.MirrorInterval)
}
