// Package sheet reads and writes tabular data from Excel workbooks and CSV
// files.
//
// A Table is a header row plus string cells. CSV files default to GBK, the
// encoding produced by Excel on Chinese-locale Windows, and are decoded with
// golang.org/x/text; workbooks go through excelize.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither .xlsx nor .csv.
	ErrUnsupportedFormat = errors.New("unsupported file type")

	// ErrColumnNotFound is returned when a named column is not in the header.
	ErrColumnNotFound = errors.New("column not found")
)

// DefaultSheet is the worksheet used when none is named.
const DefaultSheet = "Sheet1"

// Table is a rectangular block of cells with named columns.
// Every row has exactly len(Columns) cells.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, c := range t.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// Column returns a copy of the cells of the named column.
func (t *Table) Column(name string) ([]string, error) {
	idx, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// ReadOptions controls Read.
type ReadOptions struct {
	// Sheet is the worksheet read from workbooks. Default "Sheet1".
	Sheet string

	// Header is the 0-based row holding column labels. Rows above it are skipped.
	Header int

	// Encoding of CSV input: "gbk" (default) or "utf-8".
	Encoding string
}

func (o ReadOptions) withDefaults() ReadOptions {
	if o.Sheet == "" {
		o.Sheet = DefaultSheet
	}
	if o.Encoding == "" {
		o.Encoding = "gbk"
	}
	return o
}

// WriteOptions controls Write.
type WriteOptions struct {
	Sheet    string
	Encoding string

	// Index prepends an unnamed column holding the 0-based row number.
	Index bool
}

func (o WriteOptions) withDefaults() WriteOptions {
	if o.Sheet == "" {
		o.Sheet = DefaultSheet
	}
	if o.Encoding == "" {
		o.Encoding = "gbk"
	}
	return o
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "gbk":
		return simplifiedchinese.GBK, nil
	case "gb18030":
		return simplifiedchinese.GB18030, nil
	case "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	}
	return nil, fmt.Errorf("unknown encoding %q", name)
}

// Read loads the table stored at path.
func Read(path string, opts ReadOptions) (*Table, error) {
	opts = opts.withDefaults()
	if opts.Header < 0 {
		return nil, fmt.Errorf("header row must not be negative, got %d", opts.Header)
	}

	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		records, err = readXLSX(path, opts.Sheet)
	case ".csv":
		records, err = readCSV(path, opts.Encoding)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}

	if opts.Header >= len(records) {
		return nil, fmt.Errorf("header row %d is past the end of %s (%d rows)", opts.Header, filepath.Base(path), len(records))
	}
	return newTable(records[opts.Header], records[opts.Header+1:]), nil
}

// newTable pads or truncates rows to the header width.
func newTable(header []string, rows [][]string) *Table {
	t := &Table{
		Columns: append([]string(nil), header...),
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		row := make([]string, len(header))
		copy(row, r)
		t.Rows = append(t.Rows, row)
	}
	return t
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(path, enc string) ([][]string, error) {
	e, err := lookupEncoding(enc)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(transform.NewReader(f, e.NewDecoder()))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return records, nil
}

// Write stores the table at path, replacing any existing file.
func Write(path string, t *Table, opts WriteOptions) error {
	opts = opts.withDefaults()

	header, rows := t.Columns, t.Rows
	if opts.Index {
		header = append([]string{""}, t.Columns...)
		rows = make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			rows[i] = append([]string{strconv.Itoa(i)}, r...)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return writeXLSX(path, opts.Sheet, header, rows)
	case ".csv":
		return writeCSV(path, opts.Encoding, header, rows)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

func writeXLSX(path, sheet string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet != DefaultSheet {
		if err := f.SetSheetName(DefaultSheet, sheet); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	put := func(rowNum int, cells []any) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &cells)
	}

	headerCells := make([]any, len(header))
	for i, h := range header {
		headerCells[i] = h
	}
	if err := put(1, headerCells); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cells := make([]any, len(r))
		for j, v := range r {
			cells[j] = cellValue(v)
		}
		if err := put(i+2, cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// cellValue stores numeric text as a number so Excel formulas can use it.
func cellValue(s string) any {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}

func writeCSV(path, enc string, header []string, rows [][]string) (err error) {
	e, err := lookupEncoding(enc)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	tw := transform.NewWriter(f, e.NewEncoder())
	if err := writeRecords(tw, header, rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func writeRecords(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// Columns returns the column labels of the table at path.
func Columns(path string, opts ReadOptions) ([]string, error) {
	t, err := Read(path, opts)
	if err != nil {
		return nil, err
	}
	return t.Columns, nil
}
