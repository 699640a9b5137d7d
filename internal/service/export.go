package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/xuri/excelize/v2"

	"github.com/defectdesk/defectdesk-server/internal/domain"
	"github.com/defectdesk/defectdesk-server/internal/errors"
	"github.com/defectdesk/defectdesk-server/internal/imageproxy"
)

// Column widths and row height of the exported workbook, chosen to leave
// room for the embedded thumbnails.
const (
	exportImageColWidth = 25
	exportTextColWidth  = 20
	exportRowHeight     = 80
)

// maxSheetNameLen is the workbook format's sheet name limit.
const maxSheetNameLen = 31

// ExportFile is a rendered workbook ready to stream to the client.
type ExportFile struct {
	Name        string
	ContentType string
	Content     []byte
}

// ExportService renders the current filtered view of a category sheet as
// an xlsx workbook with image links replaced by embedded thumbnails.
type ExportService struct {
	tables *TableService
	images *imageproxy.Fetcher
	boxPx  int
	logger *slog.Logger
}

// NewExportService creates an export service. boxPx is the square pixel
// size of embedded images.
func NewExportService(tables *TableService, images *imageproxy.Fetcher, boxPx int, logger *slog.Logger) *ExportService {
	return &ExportService{
		tables: tables,
		images: images,
		boxPx:  boxPx,
		logger: logger,
	}
}

// Export builds the workbook for one category under the given filter.
// Image download failures are non-fatal: the cell keeps its link text and
// the export carries on.
func (s *ExportService) Export(ctx context.Context, category string, filter domain.ViewFilter) (*ExportFile, error) {
	view, err := s.tables.View(ctx, category, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(category)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, errors.Wrap(err, errors.CodeExport, "name worksheet")
	}

	if err := s.writeHeader(f, sheet, view); err != nil {
		return nil, err
	}

	for i, row := range view.Rows {
		if err := s.writeRow(ctx, f, sheet, i+2, row, view.ImageColumns); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExport, "serialize workbook")
	}

	return &ExportFile{
		Name:        fmt.Sprintf("%s_%s.xlsx", category, time.Now().Format("02-01-2006")),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     buf.Bytes(),
	}, nil
}

func (s *ExportService) writeHeader(f *excelize.File, sheet string, view *domain.TableView) error {
	styleID, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D3D3D3"}},
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeExport, "build header style")
	}

	for i, header := range view.Headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return errors.Wrap(err, errors.CodeExport, "resolve column name")
		}
		width := float64(exportTextColWidth)
		if view.ImageColumns[i] {
			width = exportImageColWidth
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return errors.Wrap(err, errors.CodeExport, "set column width")
		}
		if err := f.SetCellValue(sheet, col+"1", header); err != nil {
			return errors.Wrap(err, errors.CodeExport, "write header cell")
		}
	}

	if len(view.Headers) > 0 {
		last, _ := excelize.ColumnNumberToName(len(view.Headers))
		if err := f.SetCellStyle(sheet, "A1", last+"1", styleID); err != nil {
			return errors.Wrap(err, errors.CodeExport, "style header row")
		}
	}
	return nil
}

func (s *ExportService) writeRow(ctx context.Context, f *excelize.File, sheet string, rowNum int, row domain.ViewRow, imageCols []bool) error {
	if err := f.SetRowHeight(sheet, rowNum, exportRowHeight); err != nil {
		return errors.Wrap(err, errors.CodeExport, "set row height")
	}

	for i, cell := range row.Cells {
		ref, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return errors.Wrap(err, errors.CodeExport, "resolve cell name")
		}
		if err := f.SetCellValue(sheet, ref, cell.Text); err != nil {
			return errors.Wrap(err, errors.CodeExport, "write cell")
		}

		if !imageCols[i] || len(cell.Images) == 0 {
			continue
		}
		if s.embedImage(ctx, f, sheet, ref, cell.Images[0]) {
			// The thumbnail replaces the link text.
			if err := f.SetCellValue(sheet, ref, ""); err != nil {
				return errors.Wrap(err, errors.CodeExport, "clear image cell")
			}
		}
	}
	return nil
}

// embedImage downloads and anchors one thumbnail. It reports success;
// failures are logged and leave the cell untouched.
func (s *ExportService) embedImage(ctx context.Context, f *excelize.File, sheet, ref string, img domain.ImageRef) bool {
	data, _, ext, err := s.images.Fetch(ctx, img.Display)
	if err != nil {
		s.logger.Warn("skipping workbook image", "cell", ref, "url", img.Display, "error", err)
		return false
	}

	scaleX, scaleY := 1.0, 1.0
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil && cfg.Width > 0 && cfg.Height > 0 {
		scaleX = float64(s.boxPx) / float64(cfg.Width)
		scaleY = float64(s.boxPx) / float64(cfg.Height)
	}

	err = f.AddPictureFromBytes(sheet, ref, &excelize.Picture{
		Extension: "." + ext,
		File:      data,
		Format: &excelize.GraphicOptions{
			ScaleX:      scaleX,
			ScaleY:      scaleY,
			Positioning: "oneCell",
		},
	})
	if err != nil {
		s.logger.Warn("skipping workbook image", "cell", ref, "url", img.Display, "error", err)
		return false
	}
	return true
}

// sheetName trims a category name to a legal worksheet name.
func sheetName(category string) string {
	runes := []rune(category)
	if len(runes) > maxSheetNameLen {
		runes = runes[:maxSheetNameLen]
	}
	return string(runes)
}
