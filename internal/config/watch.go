package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teslashibe/go-jetbot/internal/log"
)

// DefaultDebounce absorbs the burst of events editors produce on save.
const DefaultDebounce = 300 * time.Millisecond

// Watch reloads path whenever it changes and passes the new file to fn.
// Invalid edits are logged and skipped. It blocks until ctx is done.
//
// The parent directory is watched rather than the file so that editors
// which save by rename keep triggering reloads.
func Watch(ctx context.Context, path string, debounce time.Duration, fn func(*File)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	logger := log.Component("config")
	logger.Info("watching config", "path", abs)

	var pending time.Time
	ticker := time.NewTicker(debounce / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)

		case <-ticker.C:
			if pending.IsZero() || time.Since(pending) < debounce {
				continue
			}
			pending = time.Time{}
			f, err := Load(abs)
			if err != nil {
				logger.Warn("config reload rejected", "error", err)
				continue
			}
			logger.Info("config reloaded", "path", abs)
			fn(f)
		}
	}
}
