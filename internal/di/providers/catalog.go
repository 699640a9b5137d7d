package providers

import (
	"github.com/samber/do/v2"

	"github.com/defectdesk/defectdesk-server/internal/catalog"
	"github.com/defectdesk/defectdesk-server/internal/config"
	"github.com/defectdesk/defectdesk-server/internal/logger"
)

// ProvideCatalog provides the category catalog, loaded from the configured
// file or falling back to the built-in defaults.
func ProvideCatalog(i do.Injector) (*catalog.Catalog, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}

	log.Info("Catalog loaded",
		"path", cfg.Catalog.Path,
		"categories", len(cat.Categories()),
	)
	return cat, nil
}

// CatalogWatcherHandle wraps the catalog file watcher with Shutdownable.
// Watcher is nil when hot reload is disabled or no catalog file is set.
type CatalogWatcherHandle struct {
	Watcher *catalog.Watcher
}

// Shutdown implements do.Shutdownable.
func (h *CatalogWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	return h.Watcher.Stop()
}

// ProvideCatalogWatcher provides the hot-reload watcher for the catalog file.
func ProvideCatalogWatcher(i do.Injector) (*CatalogWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cat := do.MustInvoke[*catalog.Catalog](i)

	if cfg.Catalog.Path == "" || !cfg.Catalog.Watch {
		return &CatalogWatcherHandle{}, nil
	}

	w, err := catalog.NewWatcher(cat, cfg.Catalog.Path, log.Logger)
	if err != nil {
		// Non-fatal: the server works with the catalog loaded at startup.
		log.Warn("Catalog hot reload unavailable", "error", err)
		return &CatalogWatcherHandle{}, nil
	}
	return &CatalogWatcherHandle{Watcher: w}, nil
}
