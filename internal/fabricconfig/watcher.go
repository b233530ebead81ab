package fabricconfig

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads Config whenever envPath changes on disk, grounded on
// the pack's fsnotify-based config watcher.
type Watcher struct {
	watcher *fsnotify.Watcher
	envPath string
	log     *slog.Logger
	onLoad  func(Config, error)
}

// NewWatcher creates a Watcher for envPath that invokes onLoad with the
// result of each reload. It does not start watching: Run adds a watch
// on envPath's directory (fsnotify watches directories, not bare
// files, so a file replaced via rename/atomic write is still seen).
func NewWatcher(envPath string, log *slog.Logger, onLoad func(Config, error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{watcher: fw, envPath: envPath, log: log, onLoad: onLoad}
	return w, nil
}

// Run watches for changes until stop is closed.
func (w *Watcher) Run(stop <-chan struct{}) error {
	if err := w.watcher.Add(dirOf(w.envPath)); err != nil {
		return fmt.Errorf("watch %s: %w", w.envPath, err)
	}
	defer w.watcher.Close()

	for {
		select {
		case <-stop:
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.envPath) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := Load(w.envPath)
			w.onLoad(cfg, err)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("config watcher error", "err", err)
		}
	}
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
