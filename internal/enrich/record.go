package enrich

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/AEO3/sbom-compile-orderer/internal/fsutil"
	"github.com/AEO3/sbom-compile-orderer/internal/report"
)

// FileName is the name of the enriched artifact in the cache directory.
const FileName = "enriched.csv"

// locationSeparator joins several cached files in one File Location cell.
const locationSeparator = ";"

// Downloaded summarizes the fetch outcome of a node.
type Downloaded string

const (
	DownloadedYes     Downloaded = "yes"
	DownloadedNo      Downloaded = "no"
	DownloadedAuth    Downloaded = "auth"
	DownloadedSkipped Downloaded = "skipped"
)

// Header is the header row of the enriched artifact.
var Header = append(append([]string(nil), report.BaseHeader...),
	"Downloaded", "File Location", "POM URL", "JAR URL", "Homepage", "License", "Auth")

// Record is one row of the enriched artifact.
type Record struct {
	report.Row
	Downloaded   Downloaded
	FileLocation string
	POMURL       string
	JARURL       string
	Homepage     string
	License      string
	Auth         string
}

// Values returns the record in Header column order.
func (r Record) Values() []string {
	return append(r.Row.Values(),
		string(r.Downloaded), r.FileLocation, r.POMURL, r.JARURL, r.Homepage, r.License, r.Auth)
}

// Paths returns the cache-relative files listed in FileLocation.
func (r Record) Paths() []string {
	if r.FileLocation == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(r.FileLocation, locationSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.TrimPrefix(p, "./"))
		}
	}
	return out
}

// Missing returns the recorded files of r that no longer exist below
// cacheDir.
func (r Record) Missing(cacheDir string) []string {
	var missing []string
	for _, p := range r.Paths() {
		if !fsutil.NonEmptyFile(filepath.Join(cacheDir, filepath.FromSlash(p))) {
			missing = append(missing, p)
		}
	}
	return missing
}

// Intact reports whether every file r records is still present. A skipped
// row is never intact; a row without files is intact otherwise, since the
// fetch outcome it reports still holds.
func (r Record) Intact(cacheDir string) bool {
	return r.Downloaded != DownloadedSkipped && len(r.Missing(cacheDir)) == 0
}

// Write writes the header and records as CSV.
func Write(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("write row %d: %w", r.Order, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile atomically replaces path with the CSV of records.
func WriteFile(path string, records []Record) error {
	var buf bytes.Buffer
	if err := Write(&buf, records); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write enriched file: %w", err)
	}
	return nil
}

// Read parses an enriched artifact. Rows with fewer columns than Header are
// padded with empty fields.
func Read(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", report.ErrMalformed, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: missing header", report.ErrMalformed)
	}

	out := make([]Record, 0, len(rows)-1)
	for i, fields := range rows[1:] {
		base, err := report.ParseRow(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		for len(fields) < len(Header) {
			fields = append(fields, "")
		}
		extra := fields[len(report.BaseHeader):]
		out = append(out, Record{
			Row:          base,
			Downloaded:   Downloaded(extra[0]),
			FileLocation: extra[1],
			POMURL:       extra[2],
			JARURL:       extra[3],
			Homepage:     extra[4],
			License:      extra[5],
			Auth:         extra[6],
		})
	}
	return out, nil
}

// ReadFile reads the enriched artifact at path.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open enriched file: %w", err)
	}
	defer f.Close()
	return Read(f)
}
