package normalize

import (
	"strings"

	"github.com/defectdesk/defectdesk-server/internal/domain"
)

// Records converts one raw sheet table into defect records, one per data
// row. A malformed cell degrades that field to empty/false; it never
// drops the row.
func Records(table *domain.Table, category string) []domain.DefectRecord {
	records := make([]domain.DefectRecord, 0, len(table.Rows))
	for i := range table.Rows {
		records = append(records, record(table, category, i))
	}
	return records
}

func record(table *domain.Table, category string, row int) domain.DefectRecord {
	tsCell := table.Cell(row, domain.ColTimestamp)
	ts, ok := ParseCellDate(tsCell.V)

	return domain.DefectRecord{
		Locator: domain.RecordLocator{
			Category: category,
			Row:      domain.PhysicalRow(row),
		},
		TimestampDisplay: tsCell.Display(),
		Timestamp:        ts,
		HasTimestamp:     ok,
		ReporterName:     strings.TrimSpace(table.Cell(row, domain.ColReporter).Display()),
		Title:            strings.TrimSpace(table.Cell(row, domain.ColTitle).Display()),
		Location:         strings.TrimSpace(table.Cell(row, domain.ColLocation).Display()),
		IsProcessed:      cellPresent(table.Cell(row, domain.ColProcessed)),
		HasOperatorNote:  cellPresent(table.Cell(row, domain.ColOperator)),
	}
}

// cellPresent reports whether a designated marker cell is non-empty.
func cellPresent(c domain.RawCell) bool {
	return strings.TrimSpace(c.V) != "" || strings.TrimSpace(c.F) != ""
}
