package service

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/defectdesk/defectdesk-server/internal/catalog"
	"github.com/defectdesk/defectdesk-server/internal/domain"
	"github.com/defectdesk/defectdesk-server/internal/errors"
	"github.com/defectdesk/defectdesk-server/internal/imagelink"
	"github.com/defectdesk/defectdesk-server/internal/viewstate"
)

// Locate polling bounds. A freshly created row takes a few seconds to land
// in the source sheet; locate retries a bounded number of times before
// reporting the row as absent.
const (
	locateAttempts = 30
	locateInterval = 150 * time.Millisecond
)

// monthToken matches MM/YYYY occurrences inside a date display string.
var monthToken = regexp.MustCompile(`(\d{2})/(\d{4})`)

// tableSnapshot is one fetched and display-normalized sheet.
type tableSnapshot struct {
	category  string
	headers   []string
	rows      []snapshotRow
	fetchedAt time.Time
}

// snapshotRow keeps the full-width display strings of one data row along
// with its physical position and processing state.
type snapshotRow struct {
	physical  int
	cells     []string
	processed bool
}

// TableService serves filtered views of one category sheet at a time.
//
// Snapshots are guarded per category by a sequence gate: when fetches for
// the same category overlap, only the latest one may land, so a slow
// response never overwrites fresher data.
type TableService struct {
	fetcher SheetFetcher
	catalog *catalog.Catalog
	logger  *slog.Logger

	mu    sync.Mutex
	gates map[string]*viewstate.Gate[*tableSnapshot]
}

// NewTableService creates a table view service.
func NewTableService(fetcher SheetFetcher, cat *catalog.Catalog, logger *slog.Logger) *TableService {
	return &TableService{
		fetcher: fetcher,
		catalog: cat,
		logger:  logger,
		gates:   make(map[string]*viewstate.Gate[*tableSnapshot]),
	}
}

func (s *TableService) gate(category string) *viewstate.Gate[*tableSnapshot] {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gates[category]
	if !ok {
		g = viewstate.NewGate[*tableSnapshot]()
		s.gates[category] = g
	}
	return g
}

// snapshot fetches the category sheet and applies it through the gate.
// A stale result is discarded in favor of the latest applied snapshot.
func (s *TableService) snapshot(ctx context.Context, category string) (*tableSnapshot, error) {
	if !s.catalog.Has(category) {
		return nil, errors.NotFoundf("unknown category %q", category)
	}

	g := s.gate(category)
	seq := g.Begin()

	table, err := s.fetcher.Fetch(ctx, category)
	if err != nil {
		return nil, err
	}
	snap := buildSnapshot(category, table)

	if !g.Apply(seq, snap) {
		s.logger.Debug("discarding stale table fetch", "category", category, "seq", seq)
		if cur, ok := g.Current(); ok {
			return cur, nil
		}
	}
	return snap, nil
}

func buildSnapshot(category string, table *domain.Table) *tableSnapshot {
	snap := &tableSnapshot{
		category:  category,
		headers:   table.Headers,
		rows:      make([]snapshotRow, len(table.Rows)),
		fetchedAt: time.Now(),
	}
	for i, cells := range table.Rows {
		row := snapshotRow{
			physical: domain.PhysicalRow(i),
			cells:    make([]string, len(cells)),
		}
		for j, cell := range cells {
			row.cells[j] = cell.Display()
		}
		if len(row.cells) > domain.ColProcessed {
			row.processed = strings.TrimSpace(row.cells[domain.ColProcessed]) != ""
		}
		snap.rows[i] = row
	}
	return snap
}

// View fetches the category sheet and returns the filtered, column-capped
// table view. Row order always follows the source sheet.
func (s *TableService) View(ctx context.Context, category string, filter domain.ViewFilter) (*domain.TableView, error) {
	if filter.Status == "" {
		filter.Status = domain.StatusAll
	}
	if !filter.Status.Valid() {
		return nil, errors.Validationf("unknown status filter %q", filter.Status)
	}

	snap, err := s.snapshot(ctx, category)
	if err != nil {
		return nil, err
	}

	headers := snap.headers
	if len(headers) > domain.MaxViewColumns {
		headers = headers[:domain.MaxViewColumns]
	}
	imageCols := make([]bool, len(headers))
	for i, h := range headers {
		imageCols[i] = s.catalog.IsImageHeader(h)
	}

	view := &domain.TableView{
		Category:     category,
		Headers:      headers,
		Months:       collectMonths(snap),
		Filter:       filter,
		ImageColumns: imageCols,
	}

	fold := cases.Fold()
	search := ""
	if t := strings.TrimSpace(filter.Search); t != "" {
		search = fold.String(t)
	}

	for _, row := range snap.rows {
		if !rowMatches(row, filter, search, fold, len(headers)) {
			continue
		}
		view.Rows = append(view.Rows, buildViewRow(row, imageCols))
	}
	return view, nil
}

// rowMatches applies the three view filters. Search is a case-folded
// substring match against any displayed cell.
func rowMatches(row snapshotRow, filter domain.ViewFilter, search string, fold cases.Caser, displayCols int) bool {
	switch filter.Status {
	case domain.StatusProcessed:
		if !row.processed {
			return false
		}
	case domain.StatusPending:
		if row.processed {
			return false
		}
	}

	if filter.Month != "" {
		if len(row.cells) <= domain.ColTimestamp ||
			!strings.Contains(row.cells[domain.ColTimestamp], filter.Month) {
			return false
		}
	}

	if search != "" {
		matched := false
		for i, cell := range row.cells {
			if i >= displayCols {
				break
			}
			if strings.Contains(fold.String(cell), search) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func buildViewRow(row snapshotRow, imageCols []bool) domain.ViewRow {
	out := domain.ViewRow{
		Row:         row.physical,
		Cells:       make([]domain.ViewCell, len(imageCols)),
		IsProcessed: row.processed,
	}
	for i := range imageCols {
		var text string
		if i < len(row.cells) {
			text = row.cells[i]
		}
		cell := domain.ViewCell{Text: text}
		if imageCols[i] {
			cell.Images = imagelink.Extract(text)
		}
		out.Cells[i] = cell
	}
	return out
}

// collectMonths gathers the distinct MM/YYYY tokens of the date column,
// newest first.
func collectMonths(snap *tableSnapshot) []string {
	seen := make(map[string]bool)
	var months []string
	for _, row := range snap.rows {
		if len(row.cells) <= domain.ColTimestamp {
			continue
		}
		for _, m := range monthToken.FindAllString(row.cells[domain.ColTimestamp], -1) {
			if !seen[m] {
				seen[m] = true
				months = append(months, m)
			}
		}
	}
	slices.SortFunc(months, func(a, b string) int {
		// MM/YYYY: compare year then month, descending.
		if c := strings.Compare(b[3:], a[3:]); c != 0 {
			return c
		}
		return strings.Compare(b[:2], a[:2])
	})
	return months
}

// Locate waits for a physical row to appear in the category sheet. Row
// creation is asynchronous on the script side, so a row submitted a moment
// ago may not be visible yet; Locate refetches at a fixed interval until
// the row shows up or the attempt budget runs out.
func (s *TableService) Locate(ctx context.Context, category string, row int) (domain.RecordLocator, bool, error) {
	if !s.catalog.Has(category) {
		return domain.RecordLocator{}, false, errors.NotFoundf("unknown category %q", category)
	}
	if row < domain.HeaderRowCount+1 {
		return domain.RecordLocator{}, false, errors.Validationf("row %d is not a data row", row)
	}

	locator := domain.RecordLocator{Category: category, Row: row}

	var lastErr error
	found := viewstate.Poll(ctx, locateAttempts, locateInterval, func() bool {
		snap, err := s.snapshot(ctx, category)
		if err != nil {
			lastErr = err
			return false
		}
		lastErr = nil
		return len(snap.rows) > 0 && snap.rows[len(snap.rows)-1].physical >= row
	})
	if !found && lastErr != nil {
		return locator, false, lastErr
	}
	return locator, found, nil
}
