package service

import (
	"context"
	"log/slog"

	"github.com/defectdesk/defectdesk-server/internal/catalog"
	"github.com/defectdesk/defectdesk-server/internal/errors"
	"github.com/defectdesk/defectdesk-server/internal/id"
	"github.com/defectdesk/defectdesk-server/internal/script"
	"github.com/defectdesk/defectdesk-server/internal/validation"
)

// FileUpload is one attached image, base64-encoded by the client.
type FileUpload struct {
	DataURL string `json:"data_url,omitempty"`
	Data    string `json:"data,omitempty"`
	Type    string `json:"type" validate:"required"`
	Name    string `json:"name" validate:"required"`
}

// ReportRequest creates a new defect report.
type ReportRequest struct {
	ReporterName  string       `json:"reporter_name" validate:"required"`
	Category      string       `json:"category" validate:"required,oneof=administrative construction-equipment safety iso-kaizen"`
	Area          string       `json:"area" validate:"required"`
	EquipmentName string       `json:"equipment_name" validate:"required"`
	Location      string       `json:"location" validate:"required"`
	Description   string       `json:"description" validate:"required"`
	Files         []FileUpload `json:"files" validate:"dive"`
}

// ProcessingRequest records the handling of an existing defect row.
type ProcessingRequest struct {
	Sheet     string       `json:"sheet" validate:"required"`
	Row       int          `json:"row" validate:"gte=2"`
	TinhTrang string       `json:"tinh_trang"`
	GhiChu    string       `json:"ghi_chu"`
	NVVH      string       `json:"nvvh"`
	Files     []FileUpload `json:"files" validate:"dive"`
}

// RowEditRequest replaces the cell values of one row.
type RowEditRequest struct {
	RowData []string `json:"row_data" validate:"required,min=1"`
}

// Receipt acknowledges an accepted mutation. ID is server-generated; the
// backing store offers no identifier to echo back.
type Receipt struct {
	ID string `json:"id"`
}

// SubmitService validates and dispatches mutations to the script endpoints.
type SubmitService struct {
	script    *script.Client
	catalog   *catalog.Catalog
	validator *validation.Validator
	logger    *slog.Logger
}

// NewSubmitService creates a submit service.
func NewSubmitService(sc *script.Client, cat *catalog.Catalog, v *validation.Validator, logger *slog.Logger) *SubmitService {
	return &SubmitService{
		script:    sc,
		catalog:   cat,
		validator: v,
		logger:    logger,
	}
}

// SubmitReport validates and dispatches a defect report creation.
func (s *SubmitService) SubmitReport(ctx context.Context, req ReportRequest) (*Receipt, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	payload := script.ReportPayload{
		ReporterName:  req.ReporterName,
		Category:      req.Category,
		Area:          req.Area,
		EquipmentName: req.EquipmentName,
		Location:      req.Location,
		Description:   req.Description,
		Files:         reportFiles(req.Files),
	}
	if err := s.script.CreateReport(ctx, payload); err != nil {
		return nil, err
	}

	receipt, err := s.receipt("rpt")
	if err != nil {
		return nil, err
	}
	s.logger.Info("report submitted", "receipt", receipt.ID, "category", req.Category, "reporter", req.ReporterName)
	return receipt, nil
}

// SubmitProcessing validates and dispatches a processing update.
func (s *SubmitService) SubmitProcessing(ctx context.Context, req ProcessingRequest) (*Receipt, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if !s.catalog.Has(req.Sheet) {
		return nil, errors.NotFoundf("unknown category %q", req.Sheet)
	}

	form := script.ProcessingForm{
		Sheet:     req.Sheet,
		Row:       req.Row,
		TinhTrang: req.TinhTrang,
		GhiChu:    req.GhiChu,
		NVVH:      req.NVVH,
		Files:     processingFiles(req.Files),
	}
	if err := s.script.SubmitProcessing(ctx, form); err != nil {
		return nil, err
	}

	receipt, err := s.receipt("prc")
	if err != nil {
		return nil, err
	}
	s.logger.Info("processing submitted", "receipt", receipt.ID, "sheet", req.Sheet, "row", req.Row)
	return receipt, nil
}

// PendingList returns the unprocessed defects of one category.
func (s *SubmitService) PendingList(ctx context.Context, category string) ([]script.PendingDefect, error) {
	if !s.catalog.Has(category) {
		return nil, errors.NotFoundf("unknown category %q", category)
	}
	return s.script.PendingList(ctx, category)
}

// UpdateRow validates and dispatches a full-row edit.
func (s *SubmitService) UpdateRow(ctx context.Context, category string, row int, req RowEditRequest) (*Receipt, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if !s.catalog.Has(category) {
		return nil, errors.NotFoundf("unknown category %q", category)
	}
	if row < 2 {
		return nil, errors.Validationf("row %d is not a data row", row)
	}

	if err := s.script.UpdateRow(ctx, category, row, req.RowData); err != nil {
		return nil, err
	}

	receipt, err := s.receipt("edt")
	if err != nil {
		return nil, err
	}
	s.logger.Info("row updated", "receipt", receipt.ID, "sheet", category, "row", row)
	return receipt, nil
}

func (s *SubmitService) receipt(prefix string) (*Receipt, error) {
	rid, err := id.Generate(prefix)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate receipt id")
	}
	return &Receipt{ID: rid}, nil
}

// reportFiles keeps the full data URL, which is what the report endpoint
// consumes.
func reportFiles(files []FileUpload) []script.FilePayload {
	out := make([]script.FilePayload, len(files))
	for i, f := range files {
		out[i] = script.FilePayload{DataURL: f.DataURL, Type: f.Type, Name: f.Name}
	}
	return out
}

// processingFiles keeps bare base64, which is what the processing endpoint
// consumes.
func processingFiles(files []FileUpload) []script.FilePayload {
	out := make([]script.FilePayload, len(files))
	for i, f := range files {
		out[i] = script.FilePayload{Data: f.Data, Type: f.Type, Name: f.Name}
	}
	return out
}
