package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

// readWorkbookSheet reads every row of one sheet using the streaming row iterator.
func readWorkbookSheet(f *excelize.File, sheet string) ([][]string, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	var records [][]string
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row from sheet %s: %w", sheet, err)
		}
		records = append(records, record)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("error iterating rows in sheet %s: %w", sheet, err)
	}
	return records, nil
}

// matchSheet finds a sheet by exact name, then case-insensitively.
func matchSheet(sheets []string, name string) (string, bool) {
	for _, s := range sheets {
		if s == name {
			return s, true
		}
	}
	for _, s := range sheets {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(name)) {
			return s, true
		}
	}
	return "", false
}

// workbook wraps an opened excelize file. Reads are serialised since
// excelize files are not safe for concurrent row iteration.
type workbook struct {
	mu sync.Mutex
	f  *excelize.File
}

func openWorkbook(r io.Reader) (*workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return &workbook{f: f}, nil
}

func (w *workbook) sheets() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.GetSheetList()
}

func (w *workbook) table(name string) (Table, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	sheet, ok := matchSheet(w.f.GetSheetList(), name)
	if !ok {
		return Table{}, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	records, err := readWorkbookSheet(w.f, sheet)
	if err != nil {
		return Table{}, err
	}
	return NewTable(name, records), nil
}

func (w *workbook) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// XLSX reads tables from a local workbook, one table per sheet.
type XLSX struct {
	path string

	mu sync.Mutex
	wb *workbook
}

func NewXLSX(path string) *XLSX {
	return &XLSX{path: path}
}

func (x *XLSX) Name() string { return "xlsx" }

// Connect opens the workbook. Calling it again reopens the file so edits are picked up.
func (x *XLSX) Connect(ctx context.Context) error {
	f, err := excelize.OpenFile(x.path)
	if err != nil {
		return fmt.Errorf("failed to open xlsx file %s: %w", x.path, err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.wb != nil {
		_ = x.wb.close()
	}
	x.wb = &workbook{f: f}
	return nil
}

func (x *XLSX) current() (*workbook, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.wb == nil {
		return nil, fmt.Errorf("xlsx source %s: not connected", x.path)
	}
	return x.wb, nil
}

func (x *XLSX) ListTables(ctx context.Context) ([]string, error) {
	wb, err := x.current()
	if err != nil {
		return nil, err
	}
	return wb.sheets(), nil
}

func (x *XLSX) FetchTable(ctx context.Context, name string) (Table, error) {
	wb, err := x.current()
	if err != nil {
		return Table{}, err
	}
	return wb.table(name)
}

// Close releases the workbook.
func (x *XLSX) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.wb == nil {
		return nil
	}
	err := x.wb.close()
	x.wb = nil
	return err
}

// WriteWorkbook renders tables as sheets of a new workbook. Used to build
// fixtures and to publish exports as a single xlsx file.
func WriteWorkbook(w io.Writer, tables ...Table) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, t := range tables {
		sheet := t.Name
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}

		sw, err := f.NewStreamWriter(sheet)
		if err != nil {
			return fmt.Errorf("failed to open stream writer for %s: %w", sheet, err)
		}
		for r, record := range t.Records() {
			cells := make([]interface{}, len(record))
			for c, v := range record {
				cells[c] = v
			}
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			if err := sw.SetRow(cell, cells); err != nil {
				return fmt.Errorf("failed to write row %d of %s: %w", r+1, sheet, err)
			}
		}
		if err := sw.Flush(); err != nil {
			return fmt.Errorf("failed to flush sheet %s: %w", sheet, err)
		}
	}

	return f.Write(w)
}

// WorkbookBytes is WriteWorkbook into a byte slice.
func WorkbookBytes(tables ...Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, tables...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
