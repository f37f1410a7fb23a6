package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/AEO3/sbom-compile-orderer/internal/component"
	"github.com/AEO3/sbom-compile-orderer/internal/fsutil"
)

// BaseHeader is the header row of the base order artifact.
var BaseHeader = []string{"Order", "Group ID", "Package Name", "Version/Tag", "Source URL"}

// BaseFileName is the name of the base order artifact in the cache directory.
const BaseFileName = "compile-order.csv"

// Row is one line of the base order artifact.
type Row struct {
	Order     int
	GroupID   string
	Name      string
	Version   string
	SourceURL string
}

// Values returns the row in BaseHeader column order.
func (r Row) Values() []string {
	return []string{strconv.Itoa(r.Order), r.GroupID, r.Name, r.Version, r.SourceURL}
}

// Key identifies the package a row describes, independently of its order.
func (r Row) Key() string {
	return r.GroupID + "\x00" + r.Name + "\x00" + r.Version
}

// NodeLookup resolves node ids.
type NodeLookup interface {
	Node(id string) (component.Node, bool)
}

// RowFor builds the row of a node at 1-based position order. Placeholder
// nodes without a name are listed by id.
func RowFor(order int, n component.Node) Row {
	if n.Name == "" {
		return Row{Order: order, GroupID: n.ID}
	}
	return Row{
		Order:     order,
		GroupID:   n.GroupName(),
		Name:      n.Name,
		Version:   n.Version,
		SourceURL: n.SourceURL,
	}
}

// Rows builds one row per id of order.
func Rows(order []string, nodes NodeLookup) []Row {
	rows := make([]Row, len(order))
	for i, id := range order {
		n, ok := nodes.Node(id)
		if !ok {
			n = component.Node{ID: id}
		}
		rows[i] = RowFor(i+1, n)
	}
	return rows
}

// WriteCSV writes the header and rows.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(BaseHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("write row %d: %w", r.Order, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBaseFile atomically replaces path with the CSV of rows.
func WriteBaseFile(path string, rows []Row) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write base order file: %w", err)
	}
	return nil
}

// ErrMalformed marks a CSV whose header or rows do not have the expected
// shape.
var ErrMalformed = errors.New("malformed order file")

// ReadCSV parses a base order artifact.
func ReadCSV(r io.Reader) ([]Row, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header", ErrMalformed)
	}
	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := ParseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseRow decodes the first len(BaseHeader) fields of rec.
func ParseRow(rec []string) (Row, error) {
	if len(rec) < len(BaseHeader) {
		return Row{}, fmt.Errorf("%w: %d fields, want at least %d", ErrMalformed, len(rec), len(BaseHeader))
	}
	order, err := strconv.Atoi(rec[0])
	if err != nil {
		return Row{}, fmt.Errorf("%w: order %q", ErrMalformed, rec[0])
	}
	return Row{Order: order, GroupID: rec[1], Name: rec[2], Version: rec[3], SourceURL: rec[4]}, nil
}
