// Package domain contains the core types of the defect tracking pipeline.
package domain

import "time"

// Well-known column positions in the source sheets (0-based).
// The sheets share a fixed layout: column 1 holds the report timestamp,
// column 2 the reporter name, and so on. Columns 11 and 12 are filled in
// by supervisors when a defect is handled.
const (
	ColTimestamp = 1
	ColReporter  = 2
	ColTitle     = 5
	ColLocation  = 6
	ColProcessed = 11
	ColOperator  = 12
)

// HeaderRowCount is the number of header rows preceding data in a source
// sheet. Data row 0 therefore lives at physical row 2 (rows are 1-based).
const HeaderRowCount = 1

// RawCell is a single cell from the tabular source. V is the raw value,
// F the formatted display string; either may be empty.
type RawCell struct {
	V string `json:"v"`
	F string `json:"f"`
}

// Display returns the string shown to users: the formatted value when
// present, otherwise the raw value.
func (c RawCell) Display() string {
	if c.F != "" {
		return c.F
	}
	return c.V
}

// Table is a parsed sheet: column headers plus rows of raw cells.
// Rows may be ragged; absent cells read as empty.
type Table struct {
	Headers []string
	Rows    [][]RawCell
}

// Cell returns the cell at (row, col), or a zero cell if out of range.
func (t *Table) Cell(row, col int) RawCell {
	if row < 0 || row >= len(t.Rows) {
		return RawCell{}
	}
	cells := t.Rows[row]
	if col < 0 || col >= len(cells) {
		return RawCell{}
	}
	return cells[col]
}

// RecordLocator addresses a record in the external store. The physical row
// position is the only identifier the store offers; keeping the addressing
// behind this type localizes a future move to a real primary key.
type RecordLocator struct {
	Category string `json:"category"`
	Row      int    `json:"row"`
}

// PhysicalRow converts a 0-based data row index to its 1-based physical
// position in the source sheet, past the header row.
func PhysicalRow(dataIndex int) int {
	return dataIndex + HeaderRowCount + 1
}

// DefectRecord is one normalized row of a defect sheet.
type DefectRecord struct {
	Locator          RecordLocator `json:"locator"`
	TimestampDisplay string        `json:"timestamp_display"`
	Timestamp        time.Time     `json:"timestamp,omitzero"`
	HasTimestamp     bool          `json:"has_timestamp"`
	ReporterName     string        `json:"reporter_name"`
	Title            string        `json:"title"`
	Location         string        `json:"location"`
	IsProcessed      bool          `json:"is_processed"`
	HasOperatorNote  bool          `json:"has_operator_note"`
}

// SortTime returns the timestamp used for recency ordering. Records without
// a parseable date sort as the zero time, below every dated record.
func (r DefectRecord) SortTime() time.Time {
	if !r.HasTimestamp {
		return time.Time{}
	}
	return r.Timestamp
}
