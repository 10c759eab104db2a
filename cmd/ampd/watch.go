package main

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/dougsko/ampd/pkg/config"
	"github.com/dougsko/ampd/pkg/logging"
	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

// ReloadFunc applies a freshly loaded configuration
type ReloadFunc func(cfg *config.Config) error

// ConfigWatcher reloads the configuration file when it changes. The parent
// directory is watched since editors replace files by rename.
type ConfigWatcher struct {
	path     string
	reload   ReloadFunc
	debounce time.Duration

	fsWatcher *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

// NewConfigWatcher starts watching path
func NewConfigWatcher(path string, reload ReloadFunc) (*ConfigWatcher, error) {
	return newConfigWatcher(path, reload, reloadDebounce)
}

func newConfigWatcher(path string, reload ReloadFunc, debounce time.Duration) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsW.Add(filepath.Dir(abs)); err != nil {
		fsW.Close()
		return nil, err
	}

	w := &ConfigWatcher{
		path:      abs,
		reload:    reload,
		debounce:  debounce,
		fsWatcher: fsW,
		done:      make(chan struct{}),
	}
	go w.watchLoop()

	logging.Debug("config", "watching configuration file", map[string]interface{}{"path": abs})
	return w, nil
}

// Close stops watching
func (w *ConfigWatcher) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.fsWatcher.Close()
	})
}

func (w *ConfigWatcher) watchLoop() {
	var timer *time.Timer

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			// Debounce: editors write in several steps
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.apply)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logging.Warn("config", "watch error", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (w *ConfigWatcher) apply() {
	select {
	case <-w.done:
		return
	default:
	}

	cfg, err := config.LoadConfig(w.path)
	if err != nil {
		logging.Warn("config", "reload skipped, keeping current configuration", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := w.reload(cfg); err != nil {
		logging.Warn("config", "reload rejected", map[string]interface{}{"error": err.Error()})
	}
}
