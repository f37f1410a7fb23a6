package buildcache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AEO3/sbom-compile-orderer/internal/fsutil"
)

// Kind names a tracked artifact.
type Kind string

const (
	KindSource    Kind = "source"
	KindBaseOrder Kind = "base-order"
	KindEnriched  Kind = "enriched"
)

const filtersFile = "filters.json"

func (k Kind) fileName() string { return string(k) + ".digest" }

// State is a set of digests plus a filter fingerprint. Empty strings and a
// nil Filters mean "absent".
type State struct {
	Source    string
	BaseOrder string
	Enriched  string
	Filters   []byte
}

// Digest returns the digest recorded for kind.
func (s State) Digest(kind Kind) string {
	switch kind {
	case KindSource:
		return s.Source
	case KindBaseOrder:
		return s.BaseOrder
	case KindEnriched:
		return s.Enriched
	}
	return ""
}

// Store persists digests under a cache root directory.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir. The directory is created lazily on
// the first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the cache root.
func (s *Store) Dir() string { return s.dir }

// Load reads the persisted state. Anything missing or unreadable is left
// empty.
func (s *Store) Load() State {
	return State{
		Source:    s.readDigest(KindSource),
		BaseOrder: s.readDigest(KindBaseOrder),
		Enriched:  s.readDigest(KindEnriched),
		Filters:   s.readFilters(),
	}
}

func (s *Store) readDigest(kind Kind) string {
	raw, err := os.ReadFile(filepath.Join(s.dir, kind.fileName()))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func (s *Store) readFilters() []byte {
	raw, err := os.ReadFile(filepath.Join(s.dir, filtersFile))
	if err != nil {
		return nil
	}
	return bytes.TrimSpace(raw)
}

// Save records digest as the last-known value for kind.
func (s *Store) Save(kind Kind, digest string) error {
	path := filepath.Join(s.dir, kind.fileName())
	if err := fsutil.WriteFileAtomic(path, []byte(digest+"\n"), 0o644); err != nil {
		return fmt.Errorf("save %s digest: %w", kind, err)
	}
	return nil
}

// SaveFilters records the normalized filter fingerprint.
func (s *Store) SaveFilters(fingerprint []byte) error {
	path := filepath.Join(s.dir, filtersFile)
	if err := fsutil.WriteFileAtomic(path, append(bytes.TrimSpace(fingerprint), '\n'), 0o644); err != nil {
		return fmt.Errorf("save filter fingerprint: %w", err)
	}
	return nil
}

// Commit persists every non-empty field of state.
func (s *Store) Commit(state State) error {
	for _, kind := range []Kind{KindSource, KindBaseOrder, KindEnriched} {
		if d := state.Digest(kind); d != "" {
			if err := s.Save(kind, d); err != nil {
				return err
			}
		}
	}
	if state.Filters != nil {
		return s.SaveFilters(state.Filters)
	}
	return nil
}
