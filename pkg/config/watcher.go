package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes a configuration file and delivers fully reloaded
// configurations. Reload is always a full replacement: the watcher loads,
// defaults, and validates the whole file, and only then hands the new
// configuration to the callback. An invalid file keeps the previous
// configuration in effect.
//
// Editors commonly replace files via rename, so the watcher watches the
// parent directory and filters events for the target file. Events are
// debounced to coalesce write bursts.
type Watcher struct {
	path     string
	onReload func(*Config)
	debounce time.Duration

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for the configuration file at path.
// onReload is called with each successfully loaded configuration.
func NewWatcher(path string, onReload func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		path:     path,
		onReload: onReload,
		debounce: 250 * time.Millisecond,
		watcher:  fsw,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.run()
}

// Stop ends watching and releases the underlying file watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
	})
}

// run is the event loop. It debounces filesystem events for the target file
// and reloads after the quiet period.
func (w *Watcher) run() {
	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)

		case <-timerCh:
			timer = nil
			timerCh = nil
			w.reload()
		}
	}
}

// reload loads the file and delivers it, keeping the old configuration on
// any error.
func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Error("config reload failed, keeping previous configuration",
			"path", w.path,
			"error", err,
		)
		return
	}

	slog.Info("configuration reloaded", "path", w.path, "connectors", len(cfg.Connectors))
	w.onReload(cfg)
}
