// Package di provides dependency injection configuration for the DefectDesk server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/defectdesk/defectdesk-server/internal/config"
	"github.com/defectdesk/defectdesk-server/internal/di/providers"
	"github.com/defectdesk/defectdesk-server/internal/gviz"
	"github.com/defectdesk/defectdesk-server/internal/imageproxy"
	"github.com/defectdesk/defectdesk-server/internal/logger"
	"github.com/defectdesk/defectdesk-server/internal/script"
	"github.com/defectdesk/defectdesk-server/internal/service"
	"github.com/defectdesk/defectdesk-server/internal/validation"

	catalogpkg "github.com/defectdesk/defectdesk-server/internal/catalog"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Catalog
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvideCatalogWatcher)

	// Upstream clients
	do.Provide(injector, providers.ProvideGvizClient)
	do.Provide(injector, providers.ProvideScriptClient)
	do.Provide(injector, providers.ProvideImageFetcher)

	// Business services
	do.Provide(injector, providers.ProvideDashboardService)
	do.Provide(injector, providers.ProvideTableService)
	do.Provide(injector, providers.ProvideExportService)
	do.Provide(injector, providers.ProvideSubmitService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)

	_ = do.MustInvoke[*catalogpkg.Catalog](injector)
	_ = do.MustInvoke[*providers.CatalogWatcherHandle](injector)

	_ = do.MustInvoke[*gviz.Client](injector)
	_ = do.MustInvoke[*script.Client](injector)
	_ = do.MustInvoke[*imageproxy.Fetcher](injector)

	// Business services
	_ = do.MustInvoke[*service.DashboardService](injector)
	_ = do.MustInvoke[*service.TableService](injector)
	_ = do.MustInvoke[*service.ExportService](injector)
	_ = do.MustInvoke[*service.SubmitService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
