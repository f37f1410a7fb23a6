package buildcache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	small := filepath.Join(dir, "small")
	large := filepath.Join(dir, "large")
	require.NoError(t, os.WriteFile(small, []byte("hello"), 0o600))
	// Spans several chunks with a ragged tail.
	require.NoError(t, os.WriteFile(large, bytes.Repeat([]byte("abc"), 3*chunkSize+7), 0o600))

	t.Run("known digest", func(t *testing.T) {
		t.Parallel()
		got, ok := ContentHash(small)
		require.True(t, ok)
		assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", got)
	})

	t.Run("stable across calls and chunk boundaries", func(t *testing.T) {
		t.Parallel()
		first, ok := ContentHash(large)
		require.True(t, ok)
		second, _ := ContentHash(large)
		assert.Equal(t, first, second)
		assert.Len(t, first, 64)
	})

	t.Run("missing file is absent", func(t *testing.T) {
		t.Parallel()
		got, ok := ContentHash(filepath.Join(dir, "nope"))
		assert.False(t, ok)
		assert.Empty(t, got)
	})
}
