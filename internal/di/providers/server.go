package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/defectdesk/defectdesk-server/internal/api"
	"github.com/defectdesk/defectdesk-server/internal/catalog"
	"github.com/defectdesk/defectdesk-server/internal/config"
	"github.com/defectdesk/defectdesk-server/internal/imageproxy"
	"github.com/defectdesk/defectdesk-server/internal/logger"
	"github.com/defectdesk/defectdesk-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cat := do.MustInvoke[*catalog.Catalog](i)

	dashboardService := do.MustInvoke[*service.DashboardService](i)
	tableService := do.MustInvoke[*service.TableService](i)
	exportService := do.MustInvoke[*service.ExportService](i)
	submitService := do.MustInvoke[*service.SubmitService](i)
	imageFetcher := do.MustInvoke[*imageproxy.Fetcher](i)

	handler := api.NewServer(dashboardService, tableService, exportService, submitService, imageFetcher, cat, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
