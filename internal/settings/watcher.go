package settings

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called after the settings document changes on disk.
type ChangeCallback func()

// Watch starts an fsnotify watcher on the directory holding the settings
// document and invokes cb whenever the document itself is created, written,
// or renamed into place, until ctx is cancelled.
//
// The watcher observes the parent directory rather than the file: Save
// replaces the file via rename, and independent command invocations do the
// same, so events arrive on the directory under the document's name.
// Events are debounced because one save typically produces several.
func Watch(ctx context.Context, path string, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("file", abs))

	var fireTimer *time.Timer
	var fireCh <-chan time.Time

	scheduleFire := func() {
		if fireTimer == nil {
			fireTimer = time.NewTimer(200 * time.Millisecond)
			fireCh = fireTimer.C
		} else {
			fireTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if fireTimer != nil {
				fireTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fireCh:
			logger.Debug("watcher: settings changed", slog.String("file", abs))
			if cb != nil {
				cb()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleFire()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
