// Package gviz fetches sheet data through the public tabular query
// interface of the backing spreadsheet document.
//
// The endpoint answers with a JavaScript callback payload wrapping a JSON
// table; the client strips the envelope and returns typed headers and
// cells. It never retries: a failed fetch surfaces as a FETCH error and
// the caller decides what a partial result means.
package gviz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/defectdesk/defectdesk-server/internal/domain"
	"github.com/defectdesk/defectdesk-server/internal/errors"
)

const (
	// Callback envelope emitted by the query interface.
	envelopePrefix = "google.visualization.Query.setResponse("
	envelopeSuffix = ");"

	// maxResponseBytes bounds a single sheet payload.
	maxResponseBytes = 32 << 20
)

// Client reads sheets from the tabular query endpoint.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
	documentID  string
	logger      *slog.Logger
}

// NewClient creates a read client for one spreadsheet document.
func NewClient(baseURL, documentID string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		// The query interface throttles aggressively; 4 rps with a burst
		// covering one full dashboard fan-out is plenty.
		rateLimiter: rate.NewLimiter(rate.Limit(4), 8),
		baseURL:     strings.TrimRight(baseURL, "/"),
		documentID:  documentID,
		logger:      logger,
	}
}

// queryURL builds the read URL for one sheet.
func (c *Client) queryURL(sheet string) string {
	return fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq?tqx=out:json&sheet=%s",
		c.baseURL, c.documentID, url.QueryEscape(sheet))
}

// Fetch reads and parses one sheet. Returns a FETCH error on network
// failure, a missing envelope, or malformed embedded JSON.
func (c *Client) Fetch(ctx context.Context, sheet string) (*domain.Table, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CodeFetch, "rate limit wait interrupted")
	}

	reqURL := c.queryURL(sheet)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFetch, "build request for sheet %q", sheet)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFetch, "fetch sheet %q", sheet)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Fetchf("sheet %q returned status %d", sheet, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFetch, "read sheet %q response", sheet)
	}

	table, err := parseResponse(body)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFetch, "parse sheet %q response", sheet)
	}

	c.logger.Debug("sheet fetched",
		"sheet", sheet,
		"rows", len(table.Rows),
		"cols", len(table.Headers),
		"elapsed", time.Since(start),
	)
	return table, nil
}

// Wire shapes of the embedded JSON:
// { table: { cols: [{label}], rows: [{c: [{v, f}|null]}] } }.

type wireResponse struct {
	Table *wireTable `json:"table"`
}

type wireTable struct {
	Cols []wireCol `json:"cols"`
	Rows []wireRow `json:"rows"`
}

type wireCol struct {
	Label string `json:"label"`
}

type wireRow struct {
	C []*wireCell `json:"c"`
}

type wireCell struct {
	V any    `json:"v"`
	F string `json:"f"`
}

// parseResponse strips the callback envelope and decodes the table.
func parseResponse(body []byte) (*domain.Table, error) {
	text := string(body)

	start := strings.Index(text, envelopePrefix)
	if start < 0 {
		return nil, fmt.Errorf("response envelope not found")
	}
	end := strings.LastIndex(text, envelopeSuffix)
	if end <= start {
		return nil, fmt.Errorf("response envelope not terminated")
	}
	payload := text[start+len(envelopePrefix) : end]

	var wire wireResponse
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, fmt.Errorf("decode embedded JSON: %w", err)
	}
	if wire.Table == nil {
		return nil, fmt.Errorf("response has no table")
	}

	table := &domain.Table{
		Headers: make([]string, len(wire.Table.Cols)),
		Rows:    make([][]domain.RawCell, len(wire.Table.Rows)),
	}
	for i, col := range wire.Table.Cols {
		table.Headers[i] = col.Label
	}
	for i, row := range wire.Table.Rows {
		cells := make([]domain.RawCell, len(row.C))
		for j, cell := range row.C {
			if cell == nil {
				continue
			}
			cells[j] = domain.RawCell{
				V: stringifyValue(cell.V),
				F: cell.F,
			}
		}
		table.Rows[i] = cells
	}
	return table, nil
}

// stringifyValue renders a raw JSON cell value as a string. Dates arrive
// as "Date(y,m,d,...)" strings and pass through untouched.
func stringifyValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
