package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AEO3/sbom-compile-orderer/internal/testutil"
)

func TestValidateArchive(t *testing.T) {
	t.Parallel()

	t.Run("accepts a jar", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, ValidateArchive(testutil.Jar(t)))
	})

	t.Run("rejects html", func(t *testing.T) {
		t.Parallel()
		err := ValidateArchive([]byte("<html>not here</html>"))
		assert.ErrorIs(t, err, ErrInvalidContent)
	})

	t.Run("rejects a truncated zip", func(t *testing.T) {
		t.Parallel()
		jar := testutil.Jar(t)
		err := ValidateArchive(jar[:len(jar)/2])
		assert.ErrorIs(t, err, ErrInvalidContent)
	})

	t.Run("rejects empty", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, ValidateArchive(nil), ErrInvalidContent)
	})
}

func TestValidateTarball(t *testing.T) {
	t.Parallel()

	t.Run("accepts a package tarball", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, ValidateTarball(testutil.Tarball(t, "left-pad", "1.3.0")))
	})

	t.Run("rejects plain text", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, ValidateTarball([]byte("nope")), ErrInvalidContent)
	})

	t.Run("rejects a gzip header with garbage", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, ValidateTarball([]byte{0x1f, 0x8b, 0x00, 0x01}), ErrInvalidContent)
	})
}

func TestValidateManifest(t *testing.T) {
	t.Parallel()

	pom := testutil.POM("org.example", "lib", "1.0")

	t.Run("matching artifact id", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, ValidateManifest(pom, "lib"))
	})

	t.Run("name check skipped when empty", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, ValidateManifest(pom, ""))
	})

	t.Run("mismatched artifact id", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, ValidateManifest(pom, "other"), ErrInvalidContent)
	})

	t.Run("not xml", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, ValidateManifest([]byte("{}"), "lib"), ErrInvalidContent)
	})

	t.Run("no artifact id", func(t *testing.T) {
		t.Parallel()
		err := ValidateManifest([]byte("<project><groupId>g</groupId></project>"), "")
		assert.ErrorIs(t, err, ErrInvalidContent)
	})
}

func TestParseManifest(t *testing.T) {
	t.Parallel()

	// Arrange
	data := []byte(`<project>
  <parent><groupId>org.parent</groupId><version>2.0</version></parent>
  <artifactId>child</artifactId>
  <name>Child Library</name>
  <url>https://example.org/child</url>
  <scm><url>https://github.com/example/child</url></scm>
  <licenses>
    <license><name>Apache-2.0</name></license>
    <license><name> MIT </name></license>
  </licenses>
</project>`)

	// Act
	m, err := ParseManifest(data)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "org.parent", m.GroupID)
	assert.Equal(t, "2.0", m.Version)
	assert.Equal(t, "child", m.ArtifactID)
	assert.Equal(t, "Child Library", m.Name)
	assert.Equal(t, "https://example.org/child", m.URL)
	assert.Equal(t, "https://github.com/example/child", m.SCMURL)
	assert.Equal(t, []string{"Apache-2.0", "MIT"}, m.Licenses)
}
