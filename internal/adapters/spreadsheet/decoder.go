// Package spreadsheet decodes uploaded .xlsx and .csv files into raw import rows.
package spreadsheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/leadline/lead-import-api/internal/domain/leadimport"
	"github.com/leadline/lead-import-api/internal/ports/out/sheet"
)

const utf8BOM = "\uFEFF"

// Decoder implements sheet.Decoder. The first row is the header row; fully blank
// rows are skipped. For workbooks only the first sheet is read.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

var _ sheet.Decoder = (*Decoder)(nil)

func (d *Decoder) Decode(ctx context.Context, filename string, r io.Reader) ([]leadimport.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		grid [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		grid, err = readWorkbook(r)
	case ".csv":
		grid, err = readCSV(r)
	default:
		return nil, eris.Wrapf(sheet.ErrUnsupportedFormat, "file %q", filename)
	}
	if err != nil {
		return nil, err
	}
	return rowsFromGrid(grid)
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, eris.Wrap(sheet.ErrMalformed, err.Error())
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, sheet.ErrNoHeader
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, eris.Wrapf(sheet.ErrMalformed, "read sheet %q: %v", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "read csv upload")
	}
	body = bytes.TrimPrefix(body, []byte(utf8BOM))

	cr := csv.NewReader(bytes.NewReader(body))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, eris.Wrapf(sheet.ErrMalformed, "csv line %d: %v", pe.Line, pe.Err)
		}
		return nil, eris.Wrap(sheet.ErrMalformed, err.Error())
	}
	return rows, nil
}

// rowsFromGrid keys every data row by the header row. Blank header cells drop
// their column; when a header repeats, its first non-blank cell is kept.
func rowsFromGrid(grid [][]string) ([]leadimport.RawRow, error) {
	start := -1
	for i, row := range grid {
		if !blankRow(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, sheet.ErrNoHeader
	}

	headers := make([]string, len(grid[start]))
	for i, h := range grid[start] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, utf8BOM))
	}

	out := make([]leadimport.RawRow, 0, len(grid)-start-1)
	for _, row := range grid[start+1:] {
		if blankRow(row) {
			continue
		}
		raw := make(leadimport.RawRow, len(headers))
		for j, cell := range row {
			if j >= len(headers) || headers[j] == "" {
				continue
			}
			if prev, ok := raw[headers[j]].(string); ok && strings.TrimSpace(prev) != "" {
				continue
			}
			raw[headers[j]] = cell
		}
		out = append(out, raw)
	}
	if len(out) == 0 {
		return nil, sheet.ErrEmptySheet
	}
	return out, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
