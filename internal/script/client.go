// Package script dispatches mutations to the remote script endpoints that
// own the backing spreadsheet.
//
// The original front-end fired these requests cross-origin and could not
// read the response, so it assumed success on dispatch. Running server-side
// removes that restriction: every call here is acknowledged by HTTP status,
// and a non-2xx answer surfaces as a SUBMIT error.
package script

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/defectdesk/defectdesk-server/internal/errors"
)

// The script platform ignores the request content type but chokes on CORS
// preflights; plain text keeps parity with what it expects.
const contentType = "text/plain;charset=utf-8"

const maxResponseBytes = 8 << 20

// FilePayload is one uploaded image attached to a mutation.
type FilePayload struct {
	// DataURL carries the full data URL for report creation.
	DataURL string `json:"dataURL,omitempty"`
	// Data carries bare base64 (no prefix) for processing updates.
	Data string `json:"data,omitempty"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// ReportPayload creates a new defect report row.
type ReportPayload struct {
	ReporterName  string        `json:"reporterName"`
	Category      string        `json:"category"`
	Area          string        `json:"area"`
	EquipmentName string        `json:"equipmentName"`
	Location      string        `json:"location"`
	Description   string        `json:"description"`
	Files         []FilePayload `json:"files"`
}

// ProcessingForm is the inner form of a processing update.
type ProcessingForm struct {
	SheetID   string        `json:"sheetId"`
	Sheet     string        `json:"sheet"`
	Row       int           `json:"row"`
	TinhTrang string        `json:"tinhTrang"`
	GhiChu    string        `json:"ghiChu"`
	NVVH      string        `json:"NVVH"`
	Files     []FilePayload `json:"files"`
}

// PendingDefect is one entry of the pending-list answer. The col* fields
// are the raw E/F/G columns the script reads for the picker label.
type PendingDefect struct {
	Row  int    `json:"row"`
	ColE string `json:"colE"`
	ColF string `json:"colF"`
	ColG string `json:"colG"`
}

// Client talks to the two script endpoints.
type Client struct {
	httpClient *http.Client
	reportURL  string
	processURL string
	documentID string
	logger     *slog.Logger
}

// NewClient creates a write client.
func NewClient(reportURL, processURL, documentID string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		reportURL:  reportURL,
		processURL: processURL,
		documentID: documentID,
		logger:     logger,
	}
}

// CreateReport dispatches a defect report creation.
func (c *Client) CreateReport(ctx context.Context, payload ReportPayload) error {
	_, err := c.post(ctx, c.reportURL, payload)
	return err
}

// SubmitProcessing dispatches a processing update for one row.
func (c *Client) SubmitProcessing(ctx context.Context, form ProcessingForm) error {
	form.SheetID = c.documentID
	body := map[string]any{
		"action": "uploadFiles",
		"form":   form,
	}
	_, err := c.post(ctx, c.processURL, body)
	return err
}

// PendingList queries the unprocessed defects of one sheet.
func (c *Client) PendingList(ctx context.Context, sheet string) ([]PendingDefect, error) {
	body := map[string]any{
		"action":    "getPendingList",
		"sheetName": sheet,
		"sheetId":   c.documentID,
	}
	respBody, err := c.post(ctx, c.processURL, body)
	if err != nil {
		return nil, err
	}

	var pending []PendingDefect
	if err := json.Unmarshal(respBody, &pending); err != nil {
		return nil, errors.Wrapf(err, errors.CodeSubmit, "decode pending list for sheet %q", sheet)
	}
	return pending, nil
}

// UpdateRow dispatches a full-row edit addressed by physical row position.
func (c *Client) UpdateRow(ctx context.Context, sheet string, row int, rowData []string) error {
	body := map[string]any{
		"action":    "updateRowData",
		"sheetName": sheet,
		"row":       row,
		"rowData":   rowData,
		"sheetId":   c.documentID,
	}
	_, err := c.post(ctx, c.processURL, body)
	return err
}

// post sends one JSON payload and returns the response body.
func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSubmit, "encode payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSubmit, "build request")
	}
	req.Header.Set("Content-Type", contentType)

	correlationID := uuid.NewString()
	req.Header.Set("X-Correlation-Id", correlationID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSubmit, "dispatch to script endpoint")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSubmit, "read script response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Submitf("script endpoint returned status %d", resp.StatusCode).
			WithDetails(fmt.Sprintf("correlation_id=%s", correlationID))
	}

	c.logger.Debug("script call acknowledged",
		"status", resp.StatusCode,
		"correlation_id", correlationID,
		"elapsed", time.Since(start),
	)
	return respBody, nil
}
