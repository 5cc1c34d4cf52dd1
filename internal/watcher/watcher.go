// Package watcher keeps the index in sync with directories on disk
// using fsnotify, re-indexing changed files after a debounce.
package watcher

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/engine"
	"github.com/hyperjump/tansaku/internal/fileid"
	"github.com/hyperjump/tansaku/internal/ingest"
	"github.com/hyperjump/tansaku/internal/models"
)

const debounceDelay = 400 * time.Millisecond

// Watcher watches directory trees and mirrors file changes into an
// engine.
type Watcher struct {
	eng        *engine.Engine
	extractor  ingest.Extractor
	extensions map[string]bool
	logger     *zap.Logger

	fsw *fsnotify.Watcher

	mu       sync.Mutex
	timers   map[string]*time.Timer
	started  bool
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a watcher over eng. extensions filters which files are
// indexed; nil means the ingest defaults.
func New(eng *engine.Engine, extractor ingest.Extractor, extensions []string, logger *zap.Logger) *Watcher {
	if extensions == nil {
		extensions = ingest.DefaultExtensions
	}
	extMap := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		extMap[strings.ToLower(e)] = true
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		eng:        eng,
		extractor:  extractor,
		extensions: extMap,
		logger:     logger,
		timers:     make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
}

// Start begins watching roots (recursively) until ctx is cancelled or
// Stop is called.
func (w *Watcher) Start(ctx context.Context, roots []string) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.fsw = fsw
	w.started = true
	w.mu.Unlock()

	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			w.Stop()
			return err
		}
	}
	w.logger.Info("watching directories", zap.Strings("roots", roots))
	go w.run(ctx)
	return nil
}

// Stop shuts the watcher down. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.fsw != nil {
			w.fsw.Close()
		}
		for _, t := range w.timers {
			t.Stop()
		}
		w.mu.Unlock()
	})
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watch error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		// A created directory needs watching too. Add is harmless for
		// plain files.
		if ev.Op.Has(fsnotify.Create) {
			_ = w.fsw.Add(ev.Name)
		}
		if !w.wanted(ev.Name) {
			return
		}
		w.schedule(ev.Name, func() { w.indexFile(ctx, ev.Name) })
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		if !w.wanted(ev.Name) {
			return
		}
		w.schedule(ev.Name, func() { w.removeFile(ctx, ev.Name) })
	}
}

func (w *Watcher) wanted(path string) bool {
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}

// schedule resets the per-path debounce timer so rapid bursts of
// events collapse into one action.
func (w *Watcher) schedule(path string, fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(debounceDelay, func() {
		select {
		case <-w.done:
			return
		default:
		}
		fn()
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
	})
}

func (w *Watcher) indexFile(ctx context.Context, path string) {
	text, err := w.extractor.Extract(path)
	if err != nil {
		w.logger.Warn("extract failed", zap.String("path", path), zap.Error(err))
		return
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	doc := models.Document{
		ID:       fileid.ForPath(path),
		Content:  text,
		Metadata: map[string]string{"source": path},
	}
	if err := w.eng.Insert(ctx, doc); err != nil {
		w.logger.Warn("index failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Debug("indexed", zap.String("path", path))
}

func (w *Watcher) removeFile(ctx context.Context, path string) {
	removed, err := w.eng.Delete(ctx, fileid.ForPath(path))
	if err != nil {
		w.logger.Warn("remove failed", zap.String("path", path), zap.Error(err))
		return
	}
	if removed {
		w.logger.Debug("removed", zap.String("path", path))
	}
}
