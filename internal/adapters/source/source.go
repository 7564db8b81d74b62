// Package source loads datasets from CSV and XLSX files with per-column type
// inference.
package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/ida/internal/domain/dataset"
	"github.com/okian/ida/pkg/logger"

	"github.com/xuri/excelize/v2"
)

// Format identifies an input encoding.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Content types accepted for each format.
const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

const utf8BOM = "\ufeff"

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// FormatFromContentType picks the format from a media type. An empty type
// means CSV.
func FormatFromContentType(contentType string) (Format, error) {
	mt := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	switch strings.ToLower(mt) {
	case "", ContentTypeCSV, "application/csv", "text/plain":
		return FormatCSV, nil
	case ContentTypeXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, mt)
	}
}

// Reader turns tabular files into datasets. It holds configuration only.
type Reader struct {
	sheet   string
	comma   rune
	nulls   map[string]struct{}
	layouts []string
	logger  logger.Logger
}

// NewReader creates a Reader.
func NewReader(opts ...Option) *Reader {
	r := &Reader{
		comma:   ',',
		layouts: defaultLayouts,
		logger:  logger.Nop(),
	}
	WithNullTokens(defaultNullTokens...)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// With returns a copy of r with opts applied on top.
func (r *Reader) With(opts ...Option) *Reader {
	c := *r
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Load reads the file at path, choosing the format by extension.
func (r *Reader) Load(ctx context.Context, path string) (*dataset.Dataset, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer func() { _ = f.Close() }()

	ds, err := r.Read(ctx, f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Read decodes src in the given format.
func (r *Reader) Read(ctx context.Context, src io.Reader, format Format) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		records [][]string
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = r.csvRecords(src)
	case FormatXLSX:
		records, err = r.xlsxRecords(src)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds, err := r.build(records)
	if err != nil {
		return nil, err
	}
	r.logger.Debug(ctx, "dataset loaded",
		logger.String("format", string(format)),
		logger.Int("rows", ds.Len()),
		logger.Strings("columns", ds.Names()),
	)
	return ds, nil
}

func (r *Reader) csvRecords(src io.Reader) ([][]string, error) {
	cr := csv.NewReader(src)
	cr.Comma = r.comma
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: csv: %w", ErrRead, err)
	}
	return records, nil
}

func (r *Reader) xlsxRecords(src io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: xlsx: %w", ErrRead, err)
	}
	defer func() { _ = f.Close() }()

	sheet := r.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, dataset.ErrEmptyInput
		}
		sheet = sheets[0]
	} else if idx, ierr := f.GetSheetIndex(sheet); ierr != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: xlsx sheet %q: %w", ErrRead, sheet, err)
	}
	return rows, nil
}

// build types each column of records, whose first row is the header.
// Blank trailing lines are ignored and short rows are padded with nulls.
func (r *Reader) build(records [][]string) (*dataset.Dataset, error) {
	for len(records) > 0 && blank(records[len(records)-1]) {
		records = records[:len(records)-1]
	}
	if len(records) == 0 || blank(records[0]) {
		return nil, dataset.ErrEmptyInput
	}
	header := make([]string, len(records[0]))
	for j, h := range records[0] {
		if j == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("unnamed_%d", j)
		}
		header[j] = h
	}
	body := records[1:]
	cells := make([][]string, len(header))
	for j := range header {
		cells[j] = make([]string, len(body))
	}
	for i, row := range body {
		if len(row) > len(header) && !blank(row[len(header):]) {
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d", dataset.ErrInvalid, i+2, len(row), len(header))
		}
		for j := range header {
			if j < len(row) {
				cells[j][i] = row[j]
			}
		}
	}
	cols := make([]dataset.Column, len(header))
	for j, name := range header {
		cols[j] = r.inferColumn(name, cells[j])
	}
	ds, err := dataset.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return ds, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ReadBytes is Read over an in-memory body.
func (r *Reader) ReadBytes(ctx context.Context, body []byte, format Format) (*dataset.Dataset, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, dataset.ErrEmptyInput
	}
	return r.Read(ctx, bytes.NewReader(body), format)
}

// IsInputError reports whether err stems from unreadable or unsupported input
// rather than from the analyses.
func IsInputError(err error) bool {
	return errors.Is(err, ErrRead) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrSheetNotFound) ||
		errors.Is(err, dataset.ErrEmptyInput) ||
		errors.Is(err, dataset.ErrInvalid)
}
