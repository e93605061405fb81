package infra

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce batches the burst of writes SQLite makes per commit.
const DefaultDebounce = 200 * time.Millisecond

// StoreWatcher signals when another process modifies the encrypted store,
// so the running monitor can reload lock state changed from the CLI.
type StoreWatcher struct {
	dir      string
	base     string
	debounce time.Duration
	onChange func()
	logger   *zap.Logger
}

// NewStoreWatcher watches dbPath (and its -wal/-journal siblings).
func NewStoreWatcher(dbPath string, debounce time.Duration, onChange func(), logger *zap.Logger) *StoreWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &StoreWatcher{
		dir:      filepath.Dir(dbPath),
		base:     filepath.Base(dbPath),
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}
}

// Run blocks until ctx is canceled.
func (w *StoreWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create store watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Debug("watching store", zap.String("dir", w.dir))

	var pending bool
	var lastEvent time.Time
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			pending = true
			lastEvent = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("store watcher error", zap.Error(err))

		case <-ticker.C:
			if pending && time.Since(lastEvent) >= w.debounce {
				pending = false
				w.onChange()
			}
		}
	}
}

func (w *StoreWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	return strings.HasPrefix(filepath.Base(event.Name), w.base)
}
