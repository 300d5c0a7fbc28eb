// =============================================================================
// X-Plane Airway Converter - CSV Parser Module
// =============================================================================
//
// This module streams the route-segment CSV one row at a time. It handles:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - A UTF-8 byte order mark on the header row (common in Excel exports)
//   - Quoted fields and ragged rows
//   - Blank lines, which are not data rows
//
// The first record is the header. Every following record is a data row,
// including records whose cells are all empty; blank lines are not records.
// Each data row is exposed as a map of header -> trimmed value.
//
// USAGE:
//   p, err := csvparser.NewStreamingParser("RTE_SEG.csv", cfg.CSV)
//   ...
//   defer p.Close()
//   for p.Next() {
//       segment, errs := v.ValidateRow(p.RowNumber(), p.Row())
//   }
//   err = p.Err()
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/xplane-airway-converter/internal/config"
)

// utf8BOM is stripped from the first header cell.
const utf8BOM = "\uFEFF"

// StreamingParser reads a delimited file without loading it into memory.
type StreamingParser struct {
	file       io.Closer
	reader     *csv.Reader
	headers    []string
	currentRow map[string]string
	rowNumber  int
	err        error
}

// NewStreamingParser opens a CSV file and reads its header row.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV parsing settings.
//
// RETURNS:
//   - A pointer to the StreamingParser, positioned before the first data row.
//   - An error if the file cannot be opened or has no header row.
func NewStreamingParser(filePath string, settings config.CSVSettings) (*StreamingParser, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	parser, err := newParser(bufio.NewReader(file), file, settings)
	if err != nil {
		file.Close()
		return nil, err
	}
	return parser, nil
}

// NewReaderParser streams CSV from an arbitrary reader. Close is a no-op
// unless r implements io.Closer.
func NewReaderParser(r io.Reader, settings config.CSVSettings) (*StreamingParser, error) {
	closer, _ := r.(io.Closer)
	return newParser(r, closer, settings)
}

func newParser(r io.Reader, closer io.Closer, settings config.CSVSettings) (*StreamingParser, error) {
	parser := &StreamingParser{
		file:   closer,
		reader: newCSVReader(r, settings),
	}

	if err := parser.readHeaders(); err != nil {
		return nil, err
	}

	return parser, nil
}

// delimiterAliases maps configured names to the field separator.
var delimiterAliases = map[string]rune{
	"":          ',',
	"comma":     ',',
	"tab":       '\t',
	`\t`:        '\t',
	"pipe":      '|',
	"semicolon": ';',
}

// Delimiter returns the separator rune for a configured delimiter: an alias
// (case-insensitive) or the first character of the value.
func Delimiter(name string) rune {
	if r, ok := delimiterAliases[strings.ToLower(name)]; ok {
		return r
	}
	return []rune(name)[0]
}

func newCSVReader(r io.Reader, settings config.CSVSettings) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = Delimiter(settings.Delimiter)

	// Rows may be ragged; missing trailing cells read as "".
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	return reader
}

// readHeaders reads the header row.
func (p *StreamingParser) readHeaders() error {
	row, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("file is empty: no header row")
	}
	if err != nil {
		return fmt.Errorf("error reading header row: %w", err)
	}
	p.rowNumber++

	if len(row) > 0 {
		row[0] = strings.TrimPrefix(row[0], utf8BOM)
	}
	p.headers = cleanHeaders(row)
	return nil
}

// cleanHeaders trims header values and names empty ones by position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}

	return cleaned
}

// Next advances to the next record. Blank lines are not records, but a
// record of empty cells such as ",,," is returned like any other row.
// Returns false at end of input or on a read error; check Err afterwards.
func (p *StreamingParser) Next() bool {
	if p.err != nil {
		return false
	}

	row, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return false
	}
	if err != nil {
		p.err = fmt.Errorf("error reading row %d: %w", p.rowNumber+1, err)
		return false
	}

	p.rowNumber++

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

// Row returns the current row as a map.
func (p *StreamingParser) Row() map[string]string {
	return p.currentRow
}

// Headers returns the parsed headers.
func (p *StreamingParser) Headers() []string {
	return p.headers
}

// RowNumber returns the record number of the current row in the file,
// counting the header as row 1.
func (p *StreamingParser) RowNumber() int {
	return p.rowNumber
}

// Err returns any error that occurred during parsing.
func (p *StreamingParser) Err() error {
	return p.err
}

// Close closes the underlying file.
func (p *StreamingParser) Close() error {
	if p.file == nil {
		return nil
	}
	return p.file.Close()
}
