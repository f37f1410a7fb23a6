package fetch

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger(t *testing.T) {
	t.Parallel()

	t.Run("put and get", func(t *testing.T) {
		t.Parallel()
		// Arrange
		l, err := OpenLedger(LedgerConfig{InMemory: true})
		require.NoError(t, err)
		t.Cleanup(func() { l.Close() })
		rec := Record{NodeID: "a", Kind: KindPackage, Status: StatusSuccess, CacheKey: "a.jar", Path: "packages/a.jar", SourceURL: "https://repo/a.jar"}

		// Act
		require.NoError(t, l.Put(rec))
		got, ok := l.Get("a.jar")

		// Assert
		require.True(t, ok)
		assert.Equal(t, rec, got)
		_, ok = l.Get("missing.jar")
		assert.False(t, ok)
	})

	t.Run("later records replace earlier ones", func(t *testing.T) {
		t.Parallel()
		l, err := OpenLedger(LedgerConfig{InMemory: true})
		require.NoError(t, err)
		t.Cleanup(func() { l.Close() })

		require.NoError(t, l.Put(Record{CacheKey: "b.pom", Status: StatusNotFound}))
		require.NoError(t, l.Put(Record{CacheKey: "b.pom", Status: StatusSuccess}))
		require.NoError(t, l.Put(Record{CacheKey: "a.pom", Status: StatusAuthRequired}))

		all, err := l.All()
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "a.pom", all[0].CacheKey)
		assert.Equal(t, StatusSuccess, all[1].Status)
	})

	t.Run("persists across reopen", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		l, err := OpenLedger(LedgerConfig{Path: dir})
		require.NoError(t, err)
		require.NoError(t, l.Put(Record{CacheKey: "c.tgz", Status: StatusSuccess}))
		require.NoError(t, l.Close())

		reopened, err := OpenLedger(LedgerConfig{Path: dir})
		require.NoError(t, err)
		t.Cleanup(func() { reopened.Close() })
		_, ok := reopened.Get("c.tgz")
		assert.True(t, ok)
	})

	t.Run("nil ledger is inert", func(t *testing.T) {
		t.Parallel()
		var l *Ledger
		assert.NoError(t, l.Put(Record{CacheKey: "x"}))
		_, ok := l.Get("x")
		assert.False(t, ok)
		all, err := l.All()
		assert.NoError(t, err)
		assert.Empty(t, all)
		assert.NoError(t, l.Close())
	})

	t.Run("persistent ledger needs a path", func(t *testing.T) {
		t.Parallel()
		_, err := OpenLedger(LedgerConfig{})
		assert.Error(t, err)
	})
}

func TestBadgerLogger_KeepsWarningsOnly(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := &badgerLogger{logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}

	l.Debugf("flushing memtable %d", 1)
	l.Infof("table %d compacted", 2)
	assert.Empty(t, buf.String())

	l.Warningf("value log %s truncated", "000001")
	l.Errorf("open failed")
	assert.Contains(t, buf.String(), "value log 000001 truncated")
	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestObjectKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "poms/a.pom", objectKey("", "poms/a.pom"))
	assert.Equal(t, "mirror/poms/a.pom", objectKey("mirror", "poms/a.pom"))
}

func TestNewS3Mirror_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewS3Mirror(S3MirrorConfig{Endpoint: "localhost:9000", Bucket: "b"})
	assert.Error(t, err)

	_, err = NewS3Mirror(S3MirrorConfig{AccessKey: "a", SecretKey: "s", Bucket: "b"})
	assert.Error(t, err)

	m, err := NewS3Mirror(S3MirrorConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "b", Prefix: "/cache/"})
	require.NoError(t, err)
	assert.Equal(t, "cache/poms/x.pom", m.ObjectKey(Record{Path: "poms/x.pom"}))
}
