package core

// builder.go turns raw CSV text into a BrandTable.
//
// The export this reads is a spreadsheet dump: the brand cell is only filled
// on the first row of each brand, blank separator rows appear between
// brands, and rows where no unit was made carry "N/A" in the serial column.
// Building is a fold over the data lines with the current brand as the only
// carried state.

import (
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"
)

const utf8BOM = "\uFEFF"

// rawRow is one tokenized data line. Missing trailing fields are empty.
type rawRow struct {
	Brand   string
	Year    string
	License string
}

// blank reports whether every field is empty or whitespace.
func (r rawRow) blank() bool {
	return strings.TrimSpace(r.Brand) == "" &&
		strings.TrimSpace(r.Year) == "" &&
		strings.TrimSpace(r.License) == ""
}

// notAvailable reports whether the license cell is an "N/A" marker.
// Any cell containing both 'N' and 'A' counts, covering "N/A", "NA" and "N / A".
func (r rawRow) notAvailable() bool {
	return strings.Contains(r.License, "N") && strings.Contains(r.License, "A")
}

// Build parses raw source text into a BrandTable.
//
// The first line is a header and is discarded. Each following line is read as
// a brand,year,license triple. Build fails only when the text is not valid
// UTF-8; malformed rows are kept or skipped by the row rules, never reported
// as errors. Calling Build twice on the same text yields equal tables.
func Build(raw string) (*BrandTable, error) {
	raw = strings.TrimPrefix(raw, utf8BOM)
	if !utf8.ValidString(raw) {
		return nil, &ParseError{Offset: invalidOffset(raw)}
	}

	lines := strings.Split(raw, "\n")
	rows := make([]rawRow, 0, len(lines))
	for i, line := range lines {
		if i == 0 {
			continue
		}
		rows = append(rows, tokenize(strings.TrimSuffix(line, "\r")))
	}

	return fold(rows), nil
}

// BuildReader reads r to the end and builds a table from its contents.
func BuildReader(r io.Reader) (*BrandTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Build(string(data))
}

// fold applies the row rules in order, carrying the current brand from row to
// row. It is the only place rows are accepted into a table.
func fold(rows []rawRow) *BrandTable {
	table := newBrandTable()
	current := ""
	for _, row := range rows {
		table.stats.Lines++
		current = step(table, current, row)
	}
	return table
}

// step applies one row and returns the brand carried to the next row.
func step(table *BrandTable, current string, row rawRow) string {
	if row.blank() {
		table.stats.BlankSkipped++
		return current
	}
	if row.notAvailable() {
		table.stats.NotAvailableSkipped++
		return current
	}

	if brand := strings.TrimSpace(row.Brand); brand != "" {
		current = brand
	}
	if current == "" {
		table.stats.OrphanSkipped++
		return current
	}

	table.append(current, Breakpoint{
		Threshold: ParseThreshold(row.License),
		Year:      ParseYear(row.Year),
	})
	return current
}

// tokenize splits a line into a rawRow using a quote-aware CSV reader so a
// quoted "1,234" stays one field. Lines the reader rejects fall back to a
// plain comma split.
func tokenize(line string) rawRow {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	fields, err := r.Read()
	if err != nil {
		fields = strings.Split(line, ",")
	}

	var row rawRow
	if len(fields) > 0 {
		row.Brand = fields[0]
	}
	if len(fields) > 1 {
		row.Year = fields[1]
	}
	if len(fields) > 2 {
		row.License = fields[2]
	}
	return row
}

// invalidOffset returns the byte offset of the first invalid UTF-8 sequence.
func invalidOffset(s string) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(s)
}
