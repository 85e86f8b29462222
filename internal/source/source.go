package source

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrSourceUnavailable is returned when the data source cannot be reached
	// after all connection attempts.
	ErrSourceUnavailable = errors.New("data source unavailable")
	// ErrTableNotFound is returned when a named table does not exist in the source.
	ErrTableNotFound = errors.New("table not found")
)

// Source is a spreadsheet-like store of named rectangular tables.
type Source interface {
	// Name identifies the backend, e.g. "sheets" or "xlsx".
	Name() string
	// Connect verifies the source is reachable and authorised.
	Connect(ctx context.Context) error
	// ListTables returns the table (worksheet) names available.
	ListTables(ctx context.Context) ([]string, error)
	// FetchTable reads one table. The first row is the header.
	FetchTable(ctx context.Context, name string) (Table, error)
}

// Table is a raw rectangular table of string cells.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// NewTable splits raw records into header and rows, trimming trailing empty rows.
func NewTable(name string, records [][]string) Table {
	t := Table{Name: name}
	if len(records) == 0 {
		return t
	}
	t.Header = make([]string, len(records[0]))
	for i, h := range records[0] {
		t.Header[i] = strings.TrimSpace(h)
	}
	for _, r := range records[1:] {
		if isBlankRow(r) {
			continue
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

// Empty reports whether the table has no data rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// ColIndex returns the index of the first header matching any alias after
// normalisation, or -1.
func (t Table) ColIndex(aliases ...string) int {
	for _, alias := range aliases {
		want := NormalizeColumnName(alias)
		for i, h := range t.Header {
			if NormalizeColumnName(h) == want {
				return i
			}
		}
	}
	return -1
}

// Cell returns the trimmed cell at idx, or "" when the row is short or idx < 0.
func (t Table) Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Records returns header plus rows, padded to the header width.
func (t Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, t.Header)
	for _, r := range t.Rows {
		if len(r) < len(t.Header) {
			padded := make([]string, len(t.Header))
			copy(padded, r)
			r = padded
		}
		out = append(out, r)
	}
	return out
}

var columnNameSanitizer = strings.NewReplacer(
	" ", "_",
	"-", "_",
	".", "",
	"(", "",
	")", "",
	"/", "_",
)

// NormalizeColumnName lower-cases a header and folds separators to underscores.
func NormalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

func isBlankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
