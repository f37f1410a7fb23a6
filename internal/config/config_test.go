package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AEO3/sbom-compile-orderer/internal/ctxlog"
	"github.com/AEO3/sbom-compile-orderer/internal/testutil"
)

func testContext() context.Context {
	return ctxlog.Discard(context.Background())
}

func writeProject(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{DefaultFileName: content})
	return filepath.Join(dir, DefaultFileName)
}

func TestLoad(t *testing.T) {
	// --- Arrange ---
	t.Setenv("SBOM_TEST_SECRET", "s3cr3t")
	path := writeProject(t, `
cache_dir = "build/cache"
workers   = 8
format    = "json"

filter {
  exclude_groups = ["com.internal", "org.test"]
  exclude_kinds  = ["application"]
}

fetch {
  packages          = true
  wait_seconds      = 120
  primary_base_url  = "https://repo.example/maven2"
}

metadata {
  enabled          = false
  npm_registry_url = "https://npm.example"
}

mirror {
  endpoint   = "localhost:9000"
  bucket     = "artifacts"
  access_key = "minio"
  secret_key = env("SBOM_TEST_SECRET")
}

metrics {
  port = 9090
}
`)

	// --- Act ---
	f, err := Load(testContext(), path, true)

	// --- Assert ---
	require.NoError(t, err)
	require.NotNil(t, f.CacheDir)
	assert.Equal(t, "build/cache", *f.CacheDir)
	assert.Equal(t, 8, *f.Workers)
	assert.Equal(t, "json", *f.Format)
	assert.Nil(t, f.Output)

	require.NotNil(t, f.Filter)
	assert.Equal(t, []string{"com.internal", "org.test"}, f.Filter.ExcludeGroups)
	assert.Equal(t, []string{"application"}, f.Filter.ExcludeKinds)
	assert.Empty(t, f.Filter.ExcludePackageTypes)

	require.NotNil(t, f.Fetch)
	assert.True(t, *f.Fetch.Packages)
	assert.Nil(t, f.Fetch.Manifests)
	assert.Equal(t, 120, *f.Fetch.WaitSeconds)
	assert.Equal(t, "https://repo.example/maven2", *f.Fetch.PrimaryBaseURL)

	require.NotNil(t, f.Metadata)
	assert.False(t, *f.Metadata.Enabled)
	assert.Nil(t, f.Metadata.SearchURL)
	assert.Equal(t, "https://npm.example", *f.Metadata.NPMRegistryURL)

	require.NotNil(t, f.Mirror)
	assert.Equal(t, "s3cr3t", f.Mirror.SecretKey)
	assert.Nil(t, f.Mirror.UseSSL)

	require.NotNil(t, f.Metrics)
	assert.Equal(t, 9090, f.Metrics.Port)
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultFileName)

	t.Run("optional", func(t *testing.T) {
		t.Parallel()
		f, err := Load(testContext(), path, false)
		require.NoError(t, err)
		assert.Equal(t, &File{}, f)
	})

	t.Run("required", func(t *testing.T) {
		t.Parallel()
		_, err := Load(testContext(), path, true)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalid)
	})
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"syntax error":        `workers = `,
		"unknown attribute":   `colour = "blue"`,
		"wrong type":          `workers = "many"`,
		"zero workers":        `workers = 0`,
		"bad format":          `format = "yaml"`,
		"negative wait":       "fetch {\n  wait_seconds = -1\n}\n",
		"mirror needs bucket": "mirror {\n  endpoint = \"x\"\n}\n",
		"port out of range":   "metrics {\n  port = 70000\n}\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(testContext(), writeProject(t, content), true)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestReadEnv(t *testing.T) {
	t.Parallel()

	env := func(values map[string]string) func(string) string {
		return func(k string) string { return values[k] }
	}

	cases := []struct {
		name string
		raw  string
		want time.Duration
	}{
		{"unset", "", DefaultMirrorInterval},
		{"seconds", "2", 2 * time.Second},
		{"fraction", "0.25", 250 * time.Millisecond},
		{"zero disables", "0", 0},
		{"negative", "-1", DefaultMirrorInterval},
		{"garbage", "fast", DefaultMirrorInterval},
		{"not a number", "NaN", DefaultMirrorInterval},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ReadEnv(env(map[string]string{EnvRateLimitMirror: tc.raw}))
			assert.Equal(t, tc.want, got.MirrorInterval)
		})
	}

	got := ReadEnv(env(map[string]string{EnvMirrorAccessKey: "a", EnvMirrorSecretKey: "b"}))
	assert.Equal(t, "a", got.MirrorAccessKey)
	assert.Equal(t, "b", got.MirrorSecretKey)
}

func TestLoadEnv(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"test.env": "SBOM_TEST_FROM_FILE=file\nSBOM_TEST_PRESET=file\n",
	})
	t.Setenv("SBOM_TEST_PRESET", "process")
	t.Setenv("SBOM_TEST_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("SBOM_TEST_FROM_FILE"))

	// --- Act ---
	err := LoadEnv(filepath.Join(dir, "test.env"), filepath.Join(dir, "missing.env"))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "file", os.Getenv("SBOM_TEST_FROM_FILE"))
	assert.Equal(t, "process", os.Getenv("SBOM_TEST_PRESET"))
}
