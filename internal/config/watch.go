package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay collapses the burst of events a single save produces.
const reloadDelay = 200 * time.Millisecond

// Watch reloads the page contexts at path whenever the file changes and hands
// every valid result to onChange. Invalid files are logged and skipped; the
// caller keeps its previous pages. Watching stops when ctx is done.
//
// The parent directory is watched rather than the file so that editors that
// replace the file on save are followed.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(*Pages)) error {
	if logger == nil {
		logger = slog.Default().With(slog.String("module", "config"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer w.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDelay)
				} else {
					timer.Reset(reloadDelay)
				}
				fire = timer.C
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("page watcher error", slog.Any("error", err))
			case <-fire:
				fire = nil
				pages, err := LoadPages(abs)
				if err != nil {
					logger.Error("reloading pages failed, keeping previous", slog.String("path", abs), slog.Any("error", err))
					continue
				}
				logger.Info("pages reloaded", slog.String("path", abs))
				onChange(pages)
			}
		}
	}()
	return nil
}
