package providers

import (
	"github.com/samber/do/v2"

	"github.com/defectdesk/defectdesk-server/internal/config"
	"github.com/defectdesk/defectdesk-server/internal/gviz"
	"github.com/defectdesk/defectdesk-server/internal/imageproxy"
	"github.com/defectdesk/defectdesk-server/internal/logger"
	"github.com/defectdesk/defectdesk-server/internal/script"
	"github.com/defectdesk/defectdesk-server/internal/validation"
)

// ProvideGvizClient provides the read-path client for the spreadsheet
// query interface.
func ProvideGvizClient(i do.Injector) (*gviz.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return gviz.NewClient(cfg.Sheet.BaseURL, cfg.Sheet.DocumentID, cfg.Sheet.FetchTimeout, log.Logger), nil
}

// ProvideScriptClient provides the write-path client for the script endpoints.
func ProvideScriptClient(i do.Injector) (*script.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return script.NewClient(cfg.Script.ReportURL, cfg.Script.ProcessURL, cfg.Sheet.DocumentID, cfg.Script.Timeout, log.Logger), nil
}

// ProvideImageFetcher provides the server-side image fetcher used by the
// proxy endpoint and the export path.
func ProvideImageFetcher(i do.Injector) (*imageproxy.Fetcher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return imageproxy.NewFetcher(cfg.Sheet.FetchTimeout, log.Logger), nil
}

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}
