// Package watcher keeps the knowledge base in step with a drop folder:
// supported files written there are ingested, rewritten files replace their
// previous document and removed files are deleted.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"crerag/internal/domain"
	"crerag/internal/extract"
	"crerag/internal/service"
)

// DefaultDebounce is how long a file must be quiet before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

const minTick = time.Millisecond

// Ingester adds extracted files to the knowledge base.
type Ingester interface {
	IngestFiles(ctx context.Context, files []service.FileInput) (*service.IngestReport, error)
}

// Store removes documents and lists the ones already stored.
type Store interface {
	Delete(ctx context.Context, id int) error
	ListMetadata() []domain.DocumentMetadata
}

type action int

const (
	actionNone action = iota
	actionIngest
	actionRemove
)

// Watcher watches a single directory (not recursive).
type Watcher struct {
	dir      string
	ingester Ingester
	store    Store
	logger   *zap.Logger
	debounce time.Duration

	mu      sync.Mutex
	tracked map[string]int // file name -> document id
}

// New creates a watcher for dir. Documents already in store are tracked by
// source filename, so rewriting a file ingested by an earlier run replaces it.
func New(dir string, ingester Ingester, store Store, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		dir:      dir,
		ingester: ingester,
		store:    store,
		logger:   logger,
		debounce: DefaultDebounce,
		tracked:  make(map[string]int),
	}
	for _, d := range store.ListMetadata() {
		if d.SourceFilename != "" {
			w.tracked[d.SourceFilename] = d.ID
		}
	}
	return w
}

// SetDebounce overrides DefaultDebounce. Non-positive values restore the default.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d <= 0 {
		d = DefaultDebounce
	}
	w.debounce = d
}

func (w *Watcher) tickInterval() time.Duration {
	return max(w.debounce/2, minTick)
}

func (w *Watcher) track(name string, id int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tracked[name] = id
}

func (w *Watcher) trackedID(name string) (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.tracked[name]
	return id, ok
}

// Backfill ingests the supported files already in the directory.
func (w *Watcher) Backfill(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", w.dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !wanted(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(w.dir, e.Name()))
	}
	w.ingest(ctx, paths)
	return nil
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.logger.Info("watching drop folder", zap.String("dir", w.dir))

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.tickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			switch w.classify(ev) {
			case actionIngest:
				pending[ev.Name] = time.Now()
			case actionRemove:
				delete(pending, ev.Name)
				w.remove(ctx, filepath.Base(ev.Name))
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		case now := <-ticker.C:
			var ready []string
			for p, last := range pending {
				if now.Sub(last) >= w.debounce {
					ready = append(ready, p)
					delete(pending, p)
				}
			}
			if len(ready) > 0 {
				w.ingest(ctx, ready)
			}
		}
	}
}

// classify decides what an event means for the knowledge base.
func (w *Watcher) classify(ev fsnotify.Event) action {
	name := filepath.Base(ev.Name)
	if !wanted(name) {
		return actionNone
	}
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		return actionRemove
	}
	if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
		if info, err := os.Stat(ev.Name); err != nil || info.IsDir() {
			return actionNone
		}
		return actionIngest
	}
	return actionNone
}

func wanted(name string) bool {
	return !strings.HasPrefix(name, ".") && extract.Supported(name)
}

// ingest replaces any tracked documents for paths and adds the new content.
func (w *Watcher) ingest(ctx context.Context, paths []string) {
	files := make([]service.FileInput, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			w.logger.Warn("reading dropped file", zap.String("file", p), zap.Error(err))
			continue
		}
		name := filepath.Base(p)
		w.remove(ctx, name)
		files = append(files, service.FileInput{Name: name, Data: data})
	}
	if len(files) == 0 {
		return
	}

	report, err := w.ingester.IngestFiles(ctx, files)
	if report != nil {
		for _, f := range report.Failed {
			w.logger.Warn("dropped file not ingested", zap.String("file", f.Filename), zap.String("error", f.Error))
		}
		for _, doc := range report.Documents {
			w.track(doc.SourceFilename, doc.ID)
		}
	}
	if err != nil && !errors.Is(err, domain.ErrNoContent) {
		w.logger.Error("ingesting dropped files", zap.Error(err))
	}
}

func (w *Watcher) remove(ctx context.Context, name string) {
	w.mu.Lock()
	id, ok := w.tracked[name]
	delete(w.tracked, name)
	w.mu.Unlock()
	if !ok {
		return
	}
	if err := w.store.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		w.logger.Warn("deleting replaced document", zap.String("file", name), zap.Int("id", id), zap.Error(err))
		return
	}
	w.logger.Info("document removed", zap.String("file", name), zap.Int("id", id))
}
