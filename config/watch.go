package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the burst of events editors emit on save.
const DefaultDebounce = 200 * time.Millisecond

// Watch reloads the settings file whenever it changes and calls onChange with each valid
// version. Invalid files are logged and ignored. The parent directory is watched so that
// editors that replace the file by rename are picked up.
//
// Arguments:
//   - ctx: Stops the watcher when done.
//   - path: The settings file.
//   - delay: Debounce window. Zero uses DefaultDebounce.
//   - logger: Receives reload failures.
//   - onChange: Called from the watcher goroutine.
//
// Returns:
//   - error: An error if the watcher cannot be created. Otherwise nil once ctx is done.
func Watch(ctx context.Context, path string, delay time.Duration, logger *zap.Logger, onChange func(Settings)) error {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "error resolving %s", path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "error creating file watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrapf(err, "error watching %s", filepath.Dir(abs))
	}

	debounced := debounce.New(delay)
	reload := func() {
		if ctx.Err() != nil {
			return
		}
		s, err := Load(abs)
		if err != nil {
			logger.Warn("settings reload rejected", zap.String("path", abs), zap.Error(err))
			return
		}
		logger.Info("settings reloaded", zap.String("path", abs), zap.String("model", s.Model))
		onChange(s)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			debounced(reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("settings watcher error", zap.Error(err))
		}
	}
}
