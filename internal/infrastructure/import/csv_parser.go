package csvimport

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Row is one parsed CSV record keyed by header name. LineNumber counts
// records from the top of the file, with the header as line 1, so error
// messages point users at the right row in their spreadsheet.
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the value of the named column, or "" if absent.
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// GetOrDefault returns the value of the named column, or defaultVal when
// the column is absent or blank.
func (r *Row) GetOrDefault(header, defaultVal string) string {
	if v, ok := r.Data[header]; ok && v != "" {
		return v
	}
	return defaultVal
}

// IsEmpty reports whether every cell in the row is blank.
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// CSVParser reads a customer CSV file row by row. It strips a UTF-8 BOM,
// rejects files that are not valid UTF-8, and maps each record onto the
// header row so callers never deal in column indexes.
type CSVParser struct {
	csv       *csv.Reader
	headers   []string
	headerIdx map[string]int
	line      int
	dataRows  int
}

// ParserOption configures a CSVParser.
type ParserOption func(*csv.Reader)

// WithDelimiter overrides the comma delimiter, for semicolon exports.
func WithDelimiter(d rune) ParserOption {
	return func(r *csv.Reader) {
		r.Comma = d
	}
}

// NewCSVParser wraps r in a parser. It fails fast on empty input and on
// content that is not UTF-8 so the import can report a single file-level
// error instead of one garbled error per row.
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	buf := bufio.NewReader(r)

	head, err := buf.Peek(4096)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	if strings.HasPrefix(string(head), "\xEF\xBB\xBF") {
		_, _ = buf.Discard(3)
		head = head[3:]
	}
	if len(head) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(head) {
		return nil, ErrInvalidEncoding
	}

	cr := csv.NewReader(buf)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	for _, opt := range opts {
		opt(cr)
	}

	return &CSVParser{
		csv:       cr,
		headerIdx: make(map[string]int),
	}, nil
}

// ParseHeader consumes the first record and records the column layout.
func (p *CSVParser) ParseHeader() error {
	record, err := p.csv.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("read header row: %w", err)
	}

	p.headers = make([]string, len(record))
	for i, h := range record {
		name := strings.TrimSpace(h)
		p.headers[i] = name
		p.headerIdx[name] = i
	}
	p.line = 1

	if len(p.headers) == 0 {
		return ErrMissingHeader
	}
	return nil
}

// Headers returns the column names in file order.
func (p *CSVParser) Headers() []string {
	return p.headers
}

// HeaderMap returns column name to index, as parsed from the header row.
func (p *CSVParser) HeaderMap() map[string]int {
	return p.headerIdx
}

// HasHeader reports whether the file declares the named column.
func (p *CSVParser) HasHeader(name string) bool {
	_, ok := p.headerIdx[name]
	return ok
}

// ValidateHeaders returns the required column names the file is missing.
func (p *CSVParser) ValidateHeaders(required []string) []string {
	var missing []string
	for _, name := range required {
		if !p.HasHeader(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// ReadRow returns the next data row, or io.EOF when the file is exhausted.
// Short records are padded with blanks so every header has a cell.
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.csv.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.line++
	if err != nil {
		return nil, fmt.Errorf("row %d: %w", p.line, err)
	}
	p.dataRows++

	row := &Row{
		LineNumber: p.line,
		Data:       make(map[string]string, len(p.headers)),
	}
	for i, name := range p.headers {
		if i < len(record) {
			row.Data[name] = strings.TrimSpace(record[i])
		} else {
			row.Data[name] = ""
		}
	}
	return row, nil
}

// ReadAllRows drains the file, dropping rows that are entirely blank.
func (p *CSVParser) ReadAllRows() ([]*Row, error) {
	var rows []*Row
	for {
		row, err := p.ReadRow()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}
}

// CurrentRow returns the physical line number of the last record read.
func (p *CSVParser) CurrentRow() int {
	return p.line
}

// TotalRows returns the number of data rows read so far.
func (p *CSVParser) TotalRows() int {
	return p.dataRows
}
