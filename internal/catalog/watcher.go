package catalog

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads a catalog file when it changes on disk.
type Watcher struct {
	catalog *Catalog
	path    string
	fsw     *fsnotify.Watcher
	logger  *slog.Logger
	done    chan struct{}
}

// NewWatcher starts watching the catalog file's directory. Watching the
// directory instead of the file survives editors that replace the file
// on save.
func NewWatcher(c *Catalog, path string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		catalog: c,
		path:    path,
		fsw:     fsw,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go w.run()

	logger.Info("watching catalog file", "path", path)
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := w.catalog.Reload(w.path); err != nil {
				// Keep the previous catalog on a bad reload.
				w.logger.Warn("catalog reload failed", "path", w.path, "error", err)
				continue
			}
			w.logger.Info("catalog reloaded", "path", w.path, "categories", len(w.catalog.Categories()))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("catalog watcher error", "error", err)
		}
	}
}

// Stop stops watching and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsw.Close()
}
