package domain

// MaxViewColumns caps how many source columns the table view exposes.
// Additional columns stay addressable for edit and export by their
// original index; they are just not displayed.
const MaxViewColumns = 14

// StatusFilter narrows a table view by processing state.
type StatusFilter string

// Status filter values.
const (
	StatusAll       StatusFilter = "all"
	StatusProcessed StatusFilter = "processed"
	StatusPending   StatusFilter = "pending"
)

// Valid reports whether s is a known status filter value.
func (s StatusFilter) Valid() bool {
	switch s {
	case StatusAll, StatusProcessed, StatusPending:
		return true
	}
	return false
}

// ViewFilter is the ephemeral per-session filter state of a table view.
// The zero value means "show everything".
type ViewFilter struct {
	Search string       `json:"search"`
	Month  string       `json:"month"`
	Status StatusFilter `json:"status"`
}

// ImageRef is one image link extracted from an image-column cell.
type ImageRef struct {
	// Original is the link as written in the cell.
	Original string `json:"original"`
	// Display is the link to render, possibly rewritten to a thumbnail form.
	Display string `json:"display"`
}

// ViewCell is one displayed table cell. Images is non-nil only for cells
// in image columns that contain at least one valid link.
type ViewCell struct {
	Text   string     `json:"text"`
	Images []ImageRef `json:"images,omitempty"`
}

// ViewRow is one displayed table row, addressed by its physical row.
type ViewRow struct {
	Row         int        `json:"row"`
	Cells       []ViewCell `json:"cells"`
	IsProcessed bool       `json:"is_processed"`
}

// TableView is the filtered, column-capped view of one category sheet.
// Rows keep the original source order; the view never re-sorts.
type TableView struct {
	Category string     `json:"category"`
	Headers  []string   `json:"headers"`
	Rows     []ViewRow  `json:"rows"`
	Months   []string   `json:"months"`
	Filter   ViewFilter `json:"filter"`
	// ImageColumns flags, per displayed column, whether the header matched
	// the image keyword set.
	ImageColumns []bool `json:"image_columns"`
}
