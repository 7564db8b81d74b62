// Package sink writes result tables as CSV or XLSX and reports as JSON.
package sink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/ida/internal/domain/dataset"
	"github.com/okian/ida/pkg/logger"

	"github.com/xuri/excelize/v2"
)

// Format identifies an output encoding for tables.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const (
	dirPermission   = 0o750
	maxSheetNameLen = 31
	defaultWorkbook = "tables"
)

// Table is a named dataset to persist.
type Table struct {
	Name string
	Data *dataset.Dataset
}

// Writer persists tables and reports under one directory.
type Writer struct {
	dir      string
	format   Format
	workbook string
	logger   logger.Logger
}

// NewWriter creates a Writer rooted at dir.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{
		dir:      dir,
		format:   FormatCSV,
		workbook: defaultWorkbook,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteTables writes every table and returns the files created. CSV gives
// one file per table; XLSX gives one workbook with a sheet per table.
func (w *Writer) WriteTables(ctx context.Context, tables []Table) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(w.dir, dirPermission); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	var paths []string
	switch w.format {
	case FormatCSV:
		for _, t := range tables {
			path := filepath.Join(w.dir, fileName(t.Name)+".csv")
			if err := writeFile(path, func(out io.Writer) error { return EncodeCSV(out, t.Data) }); err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
	case FormatXLSX:
		path := filepath.Join(w.dir, w.workbook+".xlsx")
		if err := writeFile(path, func(out io.Writer) error { return EncodeXLSX(out, tables) }); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, w.format)
	}
	w.logger.Info(ctx, "tables written",
		logger.String("format", string(w.format)),
		logger.Int("tables", len(tables)),
		logger.String("dir", w.dir),
	)
	return paths, nil
}

// WriteJSON writes v, indented, to name.json and returns the path.
func (w *Writer) WriteJSON(ctx context.Context, name string, v any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, dirPermission); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}
	path := filepath.Join(w.dir, fileName(name)+".json")
	err := writeFile(path, func(out io.Writer) error {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func writeFile(path string, encode func(io.Writer) error) (err error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrWrite, cerr)
		}
	}()
	if err := encode(f); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, filepath.Base(path), err)
	}
	return nil
}

// EncodeCSV writes ds with a header row. Null cells are empty.
func EncodeCSV(out io.Writer, ds *dataset.Dataset) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(ds.Names()); err != nil {
		return err
	}
	record := make([]string, len(ds.Names()))
	for i := range ds.Len() {
		for j, v := range ds.Row(i) {
			record[j] = v.String()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeXLSX writes one sheet per table. Times are stored as text in the
// layout the source reader parses back.
func EncodeXLSX(out io.Writer, tables []Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	first := f.GetSheetName(0)
	used := make(map[string]int, len(tables))
	for i, t := range tables {
		name := sheetName(t.Name, used)
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := writeSheet(f, name, t.Data); err != nil {
			return err
		}
	}
	return f.Write(out)
}

func writeSheet(f *excelize.File, sheet string, ds *dataset.Dataset) error {
	names := ds.Names()
	header := make([]any, len(names))
	for j, n := range names {
		header[j] = n
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i := range ds.Len() {
		row := ds.Row(i)
		cells := make([]any, len(row))
		for j, v := range row {
			switch v.Kind() {
			case dataset.KindNull:
				cells[j] = nil
			case dataset.KindTime:
				cells[j] = v.String()
			default:
				cells[j] = v.Interface()
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return nil
}

var sheetReplacer = strings.NewReplacer("[", "_", "]", "_", ":", "_", "*", "_", "?", "_", "/", "_", `\`, "_")

// sheetName makes name a valid, unique worksheet name.
func sheetName(name string, used map[string]int) string {
	s := sheetReplacer.Replace(strings.TrimSpace(name))
	if s == "" {
		s = "table"
	}
	if len(s) > maxSheetNameLen {
		s = s[:maxSheetNameLen]
	}
	used[s]++
	if n := used[s]; n > 1 {
		suffix := fmt.Sprintf("_%d", n)
		if len(s)+len(suffix) > maxSheetNameLen {
			s = s[:maxSheetNameLen-len(suffix)]
		}
		s += suffix
	}
	return s
}

var fileReplacer = strings.NewReplacer("/", "_", `\`, "_", " ", "_", ":", "_")

func fileName(name string) string {
	if s := fileReplacer.Replace(strings.TrimSpace(name)); s != "" {
		return s
	}
	return "table"
}
