package browser

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig watches a JSON config file and invokes onChange with the
// re-parsed Config whenever it is rewritten. Catalogs already captured by
// live connections are immutable; a changed configuration only affects
// connections established after the change. The watch stops when ctx is
// canceled.
func WatchConfig(ctx context.Context, path string, log *slog.Logger, onChange func(*Config)) error {
	if log == nil {
		log = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	// Watch the directory: editors and config writers typically replace the
	// file rather than write it in place.
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				cfg, err := LoadConfigFile(path)
				if err != nil {
					log.Warn("ignoring unreadable config update", "path", path, "err", err)
					continue
				}
				onChange(cfg)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("config watcher error", "err", err)
			}
		}
	}()
	return nil
}
