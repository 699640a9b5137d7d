package domain

import "time"

// CategorySummary counts the rows of one category sheet.
// Pending is always Detected - Processed.
type CategorySummary struct {
	Category  string `json:"category"`
	ShortName string `json:"short_name"`
	Detected  int    `json:"detected"`
	Processed int    `json:"processed"`
	Operator  int    `json:"operator"`
	Pending   int    `json:"pending"`
}

// Contributor aggregates reports by a single person. The name is the
// upper-cased grouping key; original casing is not preserved.
type Contributor struct {
	Name    string         `json:"name"`
	Total   int            `json:"total"`
	Monthly map[string]int `json:"monthly"`
}

// Activity is one entry of the recency-sorted dashboard feed.
type Activity struct {
	Locator     RecordLocator `json:"locator"`
	Time        string        `json:"time"`
	SortTime    time.Time     `json:"-"`
	Title       string        `json:"title"`
	Location    string        `json:"location"`
	IsProcessed bool          `json:"is_processed"`
}

// Before reports whether a should be ranked as more recent than b:
// later parsed timestamp first, higher physical row breaking ties.
func (a Activity) Before(b Activity) bool {
	if !a.SortTime.Equal(b.SortTime) {
		return a.SortTime.After(b.SortTime)
	}
	return a.Locator.Row > b.Locator.Row
}

// Totals holds the global counters across all categories.
type Totals struct {
	Detected  int `json:"detected"`
	Processed int `json:"processed"`
	Pending   int `json:"pending"`
}

// Dashboard is the aggregate view built from all category sheets.
// It is rebuilt from scratch on every fetch and never persisted.
type Dashboard struct {
	Summaries    []CategorySummary `json:"summaries"`
	Totals       Totals            `json:"totals"`
	Contributors []Contributor     `json:"contributors"`
	Recent       []Activity        `json:"recent"`
	// Failed lists categories whose fetch failed; their counts are zero.
	Failed []string `json:"failed,omitempty"`
}

// MonthKey formats a timestamp as the "MM/YYYY" bucket key used for
// contributor monthly counts and table month filters.
func MonthKey(t time.Time) string {
	return t.Format("01/2006")
}
