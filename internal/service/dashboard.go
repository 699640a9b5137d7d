// Package service implements the defect pipeline: dashboard aggregation,
// table views, spreadsheet export, and mutation submission.
package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/defectdesk/defectdesk-server/internal/catalog"
	"github.com/defectdesk/defectdesk-server/internal/domain"
	"github.com/defectdesk/defectdesk-server/internal/normalize"
)

// recentLimit caps the dashboard activity feed.
const recentLimit = 5

// SheetFetcher reads one category sheet. Satisfied by the gviz client.
type SheetFetcher interface {
	Fetch(ctx context.Context, sheet string) (*domain.Table, error)
}

// DashboardService builds the aggregate view over all category sheets.
type DashboardService struct {
	fetcher SheetFetcher
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// NewDashboardService creates a dashboard service.
func NewDashboardService(fetcher SheetFetcher, cat *catalog.Catalog, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		fetcher: fetcher,
		catalog: cat,
		logger:  logger,
	}
}

// fetchResult is one category's outcome of the dashboard fan-out.
type fetchResult struct {
	category catalog.Category
	records  []domain.DefectRecord
	err      error
}

// Build fetches all category sheets concurrently and folds them into a
// dashboard. A failed category contributes zero counts and is recorded in
// Failed; it never blocks the others.
func (s *DashboardService) Build(ctx context.Context) *domain.Dashboard {
	categories := s.catalog.Categories()
	results := make([]fetchResult, len(categories))

	var wg sync.WaitGroup
	for i, cat := range categories {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.fetchCategory(ctx, cat)
		}()
	}
	wg.Wait()

	return s.aggregate(results)
}

func (s *DashboardService) fetchCategory(ctx context.Context, cat catalog.Category) fetchResult {
	table, err := s.fetcher.Fetch(ctx, cat.Name)
	if err != nil {
		// Observability only; the dashboard stays partial, not broken.
		s.logger.Warn("category fetch failed", "category", cat.Name, "error", err)
		return fetchResult{category: cat, err: err}
	}
	return fetchResult{category: cat, records: normalize.Records(table, cat.Name)}
}

// aggregate folds per-category records into summaries, totals, the
// contributor leaderboard, and the recent activity feed.
func (s *DashboardService) aggregate(results []fetchResult) *domain.Dashboard {
	dash := &domain.Dashboard{
		Summaries: make([]domain.CategorySummary, 0, len(results)),
	}

	contributors := make(map[string]*domain.Contributor)
	var contributorOrder []string
	var activities []domain.Activity

	for _, res := range results {
		summary := domain.CategorySummary{
			Category:  res.category.Name,
			ShortName: res.category.ShortName,
		}
		if res.err != nil {
			dash.Summaries = append(dash.Summaries, summary)
			dash.Failed = append(dash.Failed, res.category.Name)
			continue
		}

		for _, rec := range res.records {
			summary.Detected++
			if rec.IsProcessed {
				summary.Processed++
			}
			if rec.HasOperatorNote {
				summary.Operator++
			}

			if name := strings.ToUpper(rec.ReporterName); rec.ReporterName != "" {
				c, ok := contributors[name]
				if !ok {
					c = &domain.Contributor{Name: name, Monthly: make(map[string]int)}
					contributors[name] = c
					contributorOrder = append(contributorOrder, name)
				}
				c.Total++
				if rec.HasTimestamp {
					c.Monthly[domain.MonthKey(rec.Timestamp)]++
				}
			}

			title := rec.Title
			if title == "" {
				title = "Không rõ"
			}
			location := rec.Location
			if location == "" {
				location = "N/A"
			}
			activities = append(activities, domain.Activity{
				Locator:     rec.Locator,
				Time:        rec.TimestampDisplay,
				SortTime:    rec.SortTime(),
				Title:       title,
				Location:    location,
				IsProcessed: rec.IsProcessed,
			})
		}

		summary.Pending = summary.Detected - summary.Processed
		dash.Summaries = append(dash.Summaries, summary)

		dash.Totals.Detected += summary.Detected
		dash.Totals.Processed += summary.Processed
		dash.Totals.Pending += summary.Pending
	}

	// Leaderboard: total descending, encounter order on ties.
	dash.Contributors = make([]domain.Contributor, 0, len(contributorOrder))
	for _, name := range contributorOrder {
		dash.Contributors = append(dash.Contributors, *contributors[name])
	}
	slices.SortStableFunc(dash.Contributors, func(a, b domain.Contributor) int {
		return b.Total - a.Total
	})

	// Activity feed: newest first, five entries.
	slices.SortFunc(activities, func(a, b domain.Activity) int {
		if a.Before(b) {
			return -1
		}
		if b.Before(a) {
			return 1
		}
		return 0
	})
	if len(activities) > recentLimit {
		activities = activities[:recentLimit]
	}
	dash.Recent = activities

	return dash
}
