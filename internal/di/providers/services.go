package providers

import (
	"github.com/samber/do/v2"

	"github.com/defectdesk/defectdesk-server/internal/catalog"
	"github.com/defectdesk/defectdesk-server/internal/config"
	"github.com/defectdesk/defectdesk-server/internal/gviz"
	"github.com/defectdesk/defectdesk-server/internal/imageproxy"
	"github.com/defectdesk/defectdesk-server/internal/logger"
	"github.com/defectdesk/defectdesk-server/internal/script"
	"github.com/defectdesk/defectdesk-server/internal/service"
	"github.com/defectdesk/defectdesk-server/internal/validation"
)

// ProvideDashboardService provides the dashboard aggregation service.
func ProvideDashboardService(i do.Injector) (*service.DashboardService, error) {
	client := do.MustInvoke[*gviz.Client](i)
	cat := do.MustInvoke[*catalog.Catalog](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewDashboardService(client, cat, log.Logger), nil
}

// ProvideTableService provides the table view service.
func ProvideTableService(i do.Injector) (*service.TableService, error) {
	client := do.MustInvoke[*gviz.Client](i)
	cat := do.MustInvoke[*catalog.Catalog](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTableService(client, cat, log.Logger), nil
}

// ProvideExportService provides the workbook export service.
func ProvideExportService(i do.Injector) (*service.ExportService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	tables := do.MustInvoke[*service.TableService](i)
	images := do.MustInvoke[*imageproxy.Fetcher](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewExportService(tables, images, cfg.Export.ImageBoxPx, log.Logger), nil
}

// ProvideSubmitService provides the mutation submission service.
func ProvideSubmitService(i do.Injector) (*service.SubmitService, error) {
	sc := do.MustInvoke[*script.Client](i)
	cat := do.MustInvoke[*catalog.Catalog](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSubmitService(sc, cat, v, log.Logger), nil
}
