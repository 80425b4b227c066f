package vectorizer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spetr/docvec/internal/extract"
)

// Watcher watches a directory tree and re-vectorizes documents as they
// change. Events are debounced so editors that write in several steps
// trigger one pipeline run.
type Watcher struct {
	vectorizer *Vectorizer
	rootDir    string
	logger     *slog.Logger

	watcher *fsnotify.Watcher

	// Debouncing
	pendingMu    sync.Mutex
	pendingFiles map[string]time.Time
	debounceTime time.Duration
}

// WatcherConfig contains watcher configuration.
type WatcherConfig struct {
	RootDir      string
	Vectorizer   *Vectorizer
	Logger       *slog.Logger
	DebounceTime time.Duration // Default: 500ms
}

// NewWatcher creates a new document watcher.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounceTime := cfg.DebounceTime
	if debounceTime == 0 {
		debounceTime = 500 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		vectorizer:   cfg.Vectorizer,
		rootDir:      cfg.RootDir,
		logger:       logger,
		watcher:      watcher,
		pendingFiles: make(map[string]time.Time),
		debounceTime: debounceTime,
	}, nil
}

// Watch starts watching for document changes.
// It blocks until the context is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := w.addWatchDirs(); err != nil {
		return err
	}

	w.logger.Info("watching for document changes", "dir", w.rootDir)

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping watcher")
			return w.watcher.Close()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// addWatchDirs recursively adds directories to watch.
func (w *Watcher) addWatchDirs() error {
	return filepath.WalkDir(w.rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != w.rootDir {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// handleEvent records a relevant file system event for debounced handling.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if extract.DetectFileType(event.Name) == "" {
		return
	}

	w.pendingMu.Lock()
	w.pendingFiles[event.Name] = time.Now()
	w.pendingMu.Unlock()

	w.logger.Debug("document changed", "path", event.Name, "op", event.Op.String())
}

// processDebounced processes pending files after the debounce period.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPendingFiles(ctx)
		}
	}
}

// processPendingFiles processes files that have been stable for the
// debounce period.
func (w *Watcher) processPendingFiles(ctx context.Context) {
	w.pendingMu.Lock()
	now := time.Now()
	var toProcess []string
	for path, changedAt := range w.pendingFiles {
		if now.Sub(changedAt) >= w.debounceTime {
			toProcess = append(toProcess, path)
			delete(w.pendingFiles, path)
		}
	}
	w.pendingMu.Unlock()

	for _, path := range toProcess {
		if ctx.Err() != nil {
			return
		}
		w.syncFile(ctx, path)
	}
}

// syncFile re-vectorizes one document, or removes its chunks when the
// file is gone.
func (w *Watcher) syncFile(ctx context.Context, path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := w.vectorizer.DeleteSource(ctx, path); err != nil {
			w.logger.Warn("failed to delete chunks of removed document", "source", path, "error", err)
			return
		}
		w.logger.Info("removed deleted document from store", "source", path)
		return
	}

	if _, err := w.vectorizer.ProcessDocument(ctx, path); err != nil {
		w.logger.Warn("failed to re-vectorize document", "source", path, "error", err)
	}
}

// Close closes the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
