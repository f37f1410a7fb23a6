package sbom

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AEO3/sbom-compile-orderer/internal/component"
	"github.com/AEO3/sbom-compile-orderer/internal/testutil"
)

const sampleBOM = `{
  "bomFormat": "CycloneDX",
  "specVersion": "1.5",
  "version": 1,
  "components": [
    {
      "bom-ref": "app",
      "type": "application",
      "group": "com.acme",
      "name": "app",
      "version": "2.0",
      "purl": "pkg:maven/com.acme/app@2.0",
      "externalReferences": [
        {"type": "website", "url": "https://acme.example"},
        {"type": "vcs", "url": "https://github.com/acme/app"}
      ]
    },
    {
      "bom-ref": "lib",
      "group": "org.example",
      "name": "lib",
      "version": "1.0",
      "purl": "pkg:maven/org.example/lib@1.0",
      "scope": "optional",
      "licenses": [{"license": {"id": "Apache-2.0"}}, {"expression": "MIT OR BSD-3-Clause"}],
      "externalReferences": [{"type": "website", "url": "https://lib.example"}]
    },
    {
      "name": "left-pad",
      "version": "1.3.0",
      "purl": "pkg:npm/left-pad@1.3.0"
    },
    {
      "group": "org.bare",
      "name": "bare",
      "version": "0.1"
    }
  ],
  "dependencies": [
    {"ref": "app", "dependsOn": ["lib", "pkg:npm/left-pad@1.3.0"]},
    {"ref": "lib"},
    {"dependsOn": ["ignored"]}
  ]
}`

func TestParse(t *testing.T) {
	t.Parallel()

	// Act
	doc, err := Parse(strings.NewReader(sampleBOM))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "1.5", doc.SpecVersion)
	require.Len(t, doc.Nodes, 4)

	var ids []string
	for _, n := range doc.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"app", "lib", "pkg:npm/left-pad@1.3.0", "org.bare:bare:0.1"}, ids)

	app := doc.Nodes[0]
	assert.Equal(t, "application", app.Kind)
	assert.Equal(t, DefaultScope, app.Scope)
	assert.Equal(t, component.TypeMaven, app.PackageType)
	assert.Equal(t, "https://github.com/acme/app", app.SourceURL)

	lib := doc.Nodes[1]
	assert.Equal(t, DefaultKind, lib.Kind)
	assert.Equal(t, "optional", lib.Scope)
	assert.Equal(t, "https://lib.example", lib.SourceURL)
	assert.Equal(t, []string{"Apache-2.0", "MIT OR BSD-3-Clause"}, lib.Licenses)

	assert.Equal(t, component.TypeNPM, doc.Nodes[2].PackageType)
	assert.Empty(t, doc.Nodes[3].PackageType)

	assert.Equal(t, []component.Dependency{
		{Ref: "app", DependsOn: []string{"lib", "pkg:npm/left-pad@1.3.0"}},
		{Ref: "lib"},
	}, doc.Dependencies)
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	t.Run("foreign format", func(t *testing.T) {
		t.Parallel()
		_, err := Parse(strings.NewReader(`{"spdxVersion":"SPDX-2.3","bomFormat":"SPDX"}`))
		assert.ErrorIs(t, err, ErrNotCycloneDX)
	})

	t.Run("missing format", func(t *testing.T) {
		t.Parallel()
		_, err := Parse(strings.NewReader(`{"components":[]}`))
		assert.ErrorIs(t, err, ErrNotCycloneDX)
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()
		_, err := Parse(strings.NewReader(`{"bomFormat":`))
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrNotCycloneDX))
	})

	t.Run("root is not an object", func(t *testing.T) {
		t.Parallel()
		_, err := Parse(strings.NewReader(`[]`))
		assert.Error(t, err)
	})
}

func TestParse_EmptyDocument(t *testing.T) {
	t.Parallel()

	doc, err := Parse(strings.NewReader(`{"bomFormat":"CycloneDX","specVersion":"1.4"}`))

	require.NoError(t, err)
	assert.Empty(t, doc.Nodes)
	assert.Empty(t, doc.Dependencies)
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"bom.json": sampleBOM})

	doc, err := ParseFile(filepath.Join(dir, "bom.json"))
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 4)

	_, err = ParseFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
