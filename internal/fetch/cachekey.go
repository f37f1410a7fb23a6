package fetch

import (
	"path/filepath"
	"strings"
)

var keyReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "@", "_")

// CacheKey derives the on-disk file name for an artifact of a node: the id
// without any query string or fragment, with path separators, colons and
// "@" replaced, plus the kind's extension.
func CacheKey(id string, kind Kind) string {
	if i := strings.IndexAny(id, "?#"); i >= 0 {
		id = id[:i]
	}
	return keyReplacer.Replace(id) + "." + kind.Extension()
}

// RelativePath is the cache-root-relative location of a cache key.
func RelativePath(key string, kind Kind) string {
	return filepath.ToSlash(filepath.Join(kind.Dir(), key))
}
