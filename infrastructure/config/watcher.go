package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// TuningWatcher watches the tuning file for changes and notifies listeners
// with the freshly parsed configuration. A file that fails to parse keeps
// the previous tuning in effect.
type TuningWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	current  *TuningConfig
	onChange []func(*TuningConfig)
}

// NewTuningWatcher loads the tuning file and starts watching its directory
// (editors replace files rather than write in place, so watching the parent
// directory catches renames)
func NewTuningWatcher(path string, logger *zap.Logger) (*TuningWatcher, error) {
	current, err := LoadTuningConfig(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	tw := &TuningWatcher{
		path:    path,
		watcher: fsWatcher,
		logger:  logger,
		stopCh:  make(chan struct{}),
		current: current,
	}
	go tw.loop()
	return tw, nil
}

// Current returns the most recently loaded tuning
func (tw *TuningWatcher) Current() *TuningConfig {
	tw.mu.RLock()
	defer tw.mu.RUnlock()
	return tw.current
}

// OnChange registers a callback invoked after each successful reload
func (tw *TuningWatcher) OnChange(fn func(*TuningConfig)) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.onChange = append(tw.onChange, fn)
}

// Stop ends watching
func (tw *TuningWatcher) Stop() {
	tw.stopOnce.Do(func() {
		close(tw.stopCh)
		tw.watcher.Close()
	})
}

func (tw *TuningWatcher) loop() {
	for {
		select {
		case <-tw.stopCh:
			return
		case event, ok := <-tw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(tw.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			tw.reload()
		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return
			}
			tw.logger.Warn("tuning watcher error", zap.Error(err))
		}
	}
}

func (tw *TuningWatcher) reload() {
	cfg, err := LoadTuningConfig(tw.path)
	if err != nil {
		tw.logger.Warn("tuning reload failed, keeping previous values",
			zap.String("path", tw.path),
			zap.Error(err))
		return
	}

	tw.mu.Lock()
	tw.current = cfg
	callbacks := make([]func(*TuningConfig), len(tw.onChange))
	copy(callbacks, tw.onChange)
	tw.mu.Unlock()

	tw.logger.Info("tuning reloaded", zap.String("path", tw.path))
	for _, fn := range callbacks {
		fn(cfg)
	}
}
