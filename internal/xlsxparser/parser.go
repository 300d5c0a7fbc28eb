// =============================================================================
// X-Plane Airway Converter - XLSX Route-Segment Reader
// =============================================================================
//
// This module reads route-segment rows from an .xlsx workbook, for sources
// that are exported from spreadsheets rather than as CSV.
//
// WORKBOOK STRUCTURE:
//   The first row of the sheet is the header; every following non-empty row
//   is a data row. Column order does not matter; columns are matched by
//   header name.
//
//   | A                | B                | C              | D             | E        | F         |
//   |------------------|------------------|----------------|---------------|----------|-----------|
//   | CODE_POINT_START | CODE_TYPE_START  | CODE_POINT_END | CODE_TYPE_END | CODE_DIR | TXT_DESIG |
//   | ABCDE            | DESIGNATED_POINT | XYZ            | VORDME        | X        | W123      |
//
// The reader exposes the same Next/Row/RowNumber/Err/Close surface as the
// CSV streaming parser, so both can feed the converter.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Extensions handled by this package.
var Extensions = []string{".xlsx", ".xlsm"}

// IsWorkbook reports whether path has a workbook extension.
func IsWorkbook(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// StreamingParser iterates the rows of one sheet.
type StreamingParser struct {
	file       *excelize.File
	rows       *excelize.Rows
	sheet      string
	headers    []string
	currentRow map[string]string
	rowNumber  int
	err        error
}

// NewStreamingParser opens a workbook and reads the header row of a sheet.
//
// PARAMETERS:
//   - workbookPath: The path to the .xlsx file.
//   - sheetName: The sheet to read; the first sheet when empty.
//
// RETURNS:
//   - A pointer to the StreamingParser, positioned before the first data row.
//   - An error if the file or sheet cannot be opened or has no header row.
func NewStreamingParser(workbookPath, sheetName string) (*StreamingParser, error) {
	f, err := excelize.OpenFile(workbookPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	p, err := newParser(f, sheetName)
	if err != nil {
		f.Close()
		return nil, err
	}
	return p, nil
}

func newParser(f *excelize.File, sheetName string) (*StreamingParser, error) {
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
		if sheetName == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	} else if idx, err := f.GetSheetIndex(sheetName); err != nil || idx == -1 {
		return nil, fmt.Errorf("sheet %q not found in workbook", sheetName)
	}

	rows, err := f.Rows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	p := &StreamingParser{
		file:  f,
		rows:  rows,
		sheet: sheetName,
	}

	if err := p.readHeaders(); err != nil {
		rows.Close()
		return nil, err
	}
	return p, nil
}

// readHeaders reads the first row as the header.
func (p *StreamingParser) readHeaders() error {
	if !p.rows.Next() {
		if err := p.rows.Error(); err != nil {
			return fmt.Errorf("error reading header row: %w", err)
		}
		return fmt.Errorf("sheet %q is empty: no header row", p.sheet)
	}
	p.rowNumber++

	row, err := p.rows.Columns()
	if err != nil {
		return fmt.Errorf("error reading header row: %w", err)
	}

	p.headers = make([]string, len(row))
	for i, header := range row {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		p.headers[i] = header
	}
	return nil
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Next advances to the next non-empty row.
func (p *StreamingParser) Next() bool {
	for p.err == nil && p.rows.Next() {
		p.rowNumber++

		row, err := p.rows.Columns()
		if err != nil {
			p.err = fmt.Errorf("error reading row %d: %w", p.rowNumber, err)
			return false
		}
		if isRowEmpty(row) {
			continue
		}

		p.currentRow = make(map[string]string, len(p.headers))
		for i, header := range p.headers {
			if i < len(row) {
				p.currentRow[header] = strings.TrimSpace(row[i])
			} else {
				p.currentRow[header] = ""
			}
		}
		return true
	}

	if p.err == nil {
		if err := p.rows.Error(); err != nil {
			p.err = fmt.Errorf("error reading sheet %q: %w", p.sheet, err)
		}
	}
	return false
}

// Row returns the current row as a map.
func (p *StreamingParser) Row() map[string]string {
	return p.currentRow
}

// Headers returns the header row.
func (p *StreamingParser) Headers() []string {
	return p.headers
}

// RowNumber returns the sheet row number of the current row (header is 1).
func (p *StreamingParser) RowNumber() int {
	return p.rowNumber
}

// Sheet returns the name of the sheet being read.
func (p *StreamingParser) Sheet() string {
	return p.sheet
}

// Err returns any error that occurred while reading.
func (p *StreamingParser) Err() error {
	return p.err
}

// Close releases the row iterator and the workbook.
func (p *StreamingParser) Close() error {
	rowsErr := p.rows.Close()
	if err := p.file.Close(); err != nil {
		return err
	}
	return rowsErr
}
