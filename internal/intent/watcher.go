package intent

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the classifier from path whenever the pattern file
// changes. A file that fails to read or compile is logged and skipped,
// leaving the previous table in place. Watch returns once the watcher is
// registered; reloading runs until ctx is cancelled.
func Watch(ctx context.Context, c *Classifier, path string, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if filepath.Clean(evt.Name) != filepath.Clean(path) {
					continue
				}
				table, err := LoadTable(path)
				if err != nil {
					logger.Warn("pattern file reload failed", "path", path, "error", err)
					continue
				}
				if err := c.Reload(table); err != nil {
					logger.Warn("pattern table rejected", "path", path, "error", err)
					continue
				}
				logger.Info("pattern table reloaded", "path", path)
			case err := <-watcher.Errors:
				logger.Warn("pattern watcher error", "error", err)
			}
		}
	}()
	// Watch the directory, not the file: editors and config pushers
	// typically replace the file by rename.
	return watcher.Add(filepath.Dir(path))
}
