// Package watcher detects edits of the backing file made by other processes.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/faqs/internal/apperr"
	"github.com/starford/faqs/internal/checksum"
	"github.com/starford/faqs/internal/faqstore"
)

// debounce collapses the burst of events an editor save produces.
const debounce = 100 * time.Millisecond

// ChangeCallback is called after an external edit loaded successfully.
type ChangeCallback func()

// Watch watches the directory holding the store's backing file until ctx is
// cancelled. Writes made by the store itself are recognised by checksum and
// ignored. An external edit that parses triggers cb; one that does not is
// logged and left alone.
func Watch(ctx context.Context, store *faqstore.Store, dataDir string, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dataDir); err != nil {
		return err
	}
	target := filepath.Join(dataDir, store.Name())

	logger.Info("watcher: started", slog.String("file", target))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			check(store, target, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// check compares the file on disk with what the store last saw and reloads
// on a mismatch.
func check(store *faqstore.Store, target string, logger *slog.Logger, cb ChangeCallback) {
	data, err := os.ReadFile(target)
	switch {
	case errors.Is(err, os.ErrNotExist):
		data = nil
	case err != nil:
		logger.Warn("watcher: read failed", slog.String("file", target), slog.String("error", err.Error()))
		return
	}
	if data != nil && checksum.Equal(data, store.Checksum()) {
		return
	}

	if _, err := store.Load(); err != nil {
		if errors.Is(err, apperr.ErrCorruptStorage) {
			logger.Error("watcher: external edit left storage corrupt", slog.String("file", target), slog.String("error", err.Error()))
		} else {
			logger.Warn("watcher: reload failed", slog.String("file", target), slog.String("error", err.Error()))
		}
		return
	}
	logger.Info("watcher: external change loaded", slog.String("file", target))
	if cb != nil {
		cb()
	}
}
