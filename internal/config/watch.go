package config

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher holds the current Config behind an atomic pointer and reloads it
// from disk whenever the backing file changes, debouncing rapid successive
// write events from editors that save in multiple steps.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger

	current atomic.Pointer[Config]

	mu        sync.Mutex
	fsWatcher *fsnotify.Watcher
	cancel    func()
	wg        sync.WaitGroup
}

// NewWatcher loads path once and returns a Watcher ready to serve Current.
// Call Start to begin watching for changes.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{path: path, debounce: 250 * time.Millisecond, logger: logger}
	w.current.Store(cfg)
	return w, nil
}

// Current returns the most recently loaded Config.
func (w *Watcher) Current() *Config {
	return w.current.Load()
}

// Start begins watching the config file for changes, reloading and
// atomically swapping Current on each debounced write/create/rename event.
// Start is a no-op if already watching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.fsWatcher != nil {
		w.mu.Unlock()
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := fw.Add(w.path); err != nil {
		_ = fw.Close()
		w.mu.Unlock()
		return err
	}
	done := make(chan struct{})
	w.cancel = func() { close(done) }
	w.fsWatcher = fw
	w.mu.Unlock()

	w.wg.Add(1)
	go w.watchLoop(fw, done)
	return nil
}

// Close stops watching and releases the underlying filesystem watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	fw := w.fsWatcher
	cancel := w.cancel
	w.fsWatcher = nil
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if fw != nil {
		err = fw.Close()
	}
	w.wg.Wait()
	return err
}

func (w *Watcher) watchLoop(fw *fsnotify.Watcher, done chan struct{}) {
	defer w.wg.Done()

	var timerMu sync.Mutex
	var timer *time.Timer
	scheduleReload := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, w.reload)
	}

	for {
		select {
		case <-done:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				scheduleReload()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	if _, err := os.Stat(w.path); err != nil {
		w.logger.Warn("config file unreadable during reload", "error", err)
		return
	}
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous config", "error", err)
		return
	}
	w.current.Store(cfg)
	w.logger.Info("config reloaded", "path", w.path)
}
