package api

import (
	"encoding/json/v2"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/defectdesk/defectdesk-server/internal/domain"
	"github.com/defectdesk/defectdesk-server/internal/http/response"
	"github.com/defectdesk/defectdesk-server/internal/service"
)

// handleGetDashboard returns the aggregate dashboard over all categories.
func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard := s.dashboardService.Build(r.Context())
	response.Success(w, dashboard, s.logger)
}

// handleListCategories returns the configured category catalog.
func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.catalog.Categories(), s.logger)
}

// categoryParam returns the category path segment. chi hands back the raw
// encoding whenever it differs from Go's canonical one, so a category like
// "TPM, Kaizen" arrives as "TPM%2C%20Kaizen" from clients that path-escape.
func categoryParam(r *http.Request) string {
	raw := chi.URLParam(r, "category")
	unescaped, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return unescaped
}

// handleGetTable returns the filtered table view of one category.
func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	category := categoryParam(r)
	filter := parseViewFilter(r)

	view, err := s.tableService.View(r.Context(), category, filter)
	if err != nil {
		s.logger.Error("Failed to build table view", "error", err, "category", category)
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, view, s.logger)
}

// handleLocateRow waits for a physical row to appear in a category sheet.
// Used after report creation, when the new row lands asynchronously.
func (s *Server) handleLocateRow(w http.ResponseWriter, r *http.Request) {
	category := categoryParam(r)

	row, err := strconv.Atoi(r.URL.Query().Get("row"))
	if err != nil {
		response.BadRequest(w, "row must be an integer", s.logger)
		return
	}

	locator, found, err := s.tableService.Locate(r.Context(), category, row)
	if err != nil {
		s.logger.Error("Failed to locate row", "error", err, "category", category, "row", row)
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]any{
		"locator": locator,
		"found":   found,
	}, s.logger)
}

// handleExportTable streams the current filtered view as an xlsx workbook.
func (s *Server) handleExportTable(w http.ResponseWriter, r *http.Request) {
	category := categoryParam(r)
	filter := parseViewFilter(r)

	file, err := s.exportService.Export(r.Context(), category, filter)
	if err != nil {
		s.logger.Error("Failed to export table", "error", err, "category", category)
		response.HandleError(w, err, s.logger)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(file.Name)))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Content)))
	if _, err := w.Write(file.Content); err != nil {
		s.logger.Error("Failed to stream export", "error", err, "category", category)
	}
}

// handleCreateReport accepts a new defect report and forwards it to the
// script endpoint.
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req service.ReportRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}

	receipt, err := s.submitService.SubmitReport(r.Context(), req)
	if err != nil {
		s.logger.Error("Failed to submit report", "error", err, "category", req.Category)
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, receipt, s.logger)
}

// handleSubmitProcessing records the handling of an existing defect row.
func (s *Server) handleSubmitProcessing(w http.ResponseWriter, r *http.Request) {
	var req service.ProcessingRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}

	receipt, err := s.submitService.SubmitProcessing(r.Context(), req)
	if err != nil {
		s.logger.Error("Failed to submit processing", "error", err, "sheet", req.Sheet, "row", req.Row)
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, receipt, s.logger)
}

// handleGetPending lists the unprocessed defects of one category.
func (s *Server) handleGetPending(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		response.BadRequest(w, "category is required", s.logger)
		return
	}

	pending, err := s.submitService.PendingList(r.Context(), category)
	if err != nil {
		s.logger.Error("Failed to fetch pending list", "error", err, "category", category)
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, pending, s.logger)
}

// handleUpdateRow replaces the cell values of one physical row.
func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	category := categoryParam(r)

	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil {
		response.BadRequest(w, "row must be an integer", s.logger)
		return
	}

	var req service.RowEditRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}

	receipt, err := s.submitService.UpdateRow(r.Context(), category, row, req)
	if err != nil {
		s.logger.Error("Failed to update row", "error", err, "category", category, "row", row)
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, receipt, s.logger)
}

// handleProxyImage fetches a remote image server-side and relays the bytes,
// sidestepping cross-origin restrictions on the image hosts.
func (s *Server) handleProxyImage(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		response.BadRequest(w, "url is required", s.logger)
		return
	}

	data, contentType, _, err := s.imageFetcher.Fetch(r.Context(), rawURL)
	if err != nil {
		s.logger.Warn("Failed to proxy image", "error", err, "url", rawURL)
		response.BadGateway(w, "failed to fetch image", s.logger)
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to stream proxied image", "error", err, "url", rawURL)
	}
}

// parseViewFilter reads the table view filter from query parameters.
func parseViewFilter(r *http.Request) domain.ViewFilter {
	q := r.URL.Query()
	return domain.ViewFilter{
		Search: q.Get("search"),
		Month:  q.Get("month"),
		Status: domain.StatusFilter(q.Get("status")),
	}
}
