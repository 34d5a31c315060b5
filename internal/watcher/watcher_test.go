package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"crerag/internal/chunker"
	"crerag/internal/domain"
	"crerag/internal/extract"
	"crerag/internal/service"
)

type fakeKB struct {
	mu      sync.Mutex
	stored  []domain.DocumentMetadata
	nextID  int
	batches [][]service.FileInput
	deleted []int
}

func (f *fakeKB) IngestFiles(_ context.Context, files []service.FileInput) (*service.IngestReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, files)
	report := &service.IngestReport{}
	for _, in := range files {
		f.nextID++
		report.Documents = append(report.Documents, domain.DocumentMetadata{ID: f.nextID, SourceFilename: in.Name})
	}
	return report, nil
}

func (f *fakeKB) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeKB) ListMetadata() []domain.DocumentMetadata {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.DocumentMetadata(nil), f.stored...)
}

func TestClassify(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("office"), 0o644))
	sub := filepath.Join(dir, "archive.txt")
	require.NoError(t, os.Mkdir(sub, 0o755))

	w := New(dir, &fakeKB{}, &fakeKB{}, zaptest.NewLogger(t))
	tests := []struct {
		name string
		ev   fsnotify.Event
		want action
	}{
		{"create", fsnotify.Event{Name: txt, Op: fsnotify.Create}, actionIngest},
		{"write with chmod", fsnotify.Event{Name: txt, Op: fsnotify.Write | fsnotify.Chmod}, actionIngest},
		{"chmod only", fsnotify.Event{Name: txt, Op: fsnotify.Chmod}, actionNone},
		{"remove", fsnotify.Event{Name: filepath.Join(dir, "gone.pdf"), Op: fsnotify.Remove}, actionRemove},
		{"rename", fsnotify.Event{Name: filepath.Join(dir, "moved.csv"), Op: fsnotify.Rename}, actionRemove},
		{"directory", fsnotify.Event{Name: sub, Op: fsnotify.Create}, actionNone},
		{"hidden", fsnotify.Event{Name: filepath.Join(dir, ".notes.txt"), Op: fsnotify.Create}, actionNone},
		{"unsupported", fsnotify.Event{Name: filepath.Join(dir, "photo.png"), Op: fsnotify.Create}, actionNone},
		{"vanished before stat", fsnotify.Event{Name: filepath.Join(dir, "temp.txt"), Op: fsnotify.Create}, actionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.classify(tt.ev))
		})
	}
}

func TestIngestReplacesTrackedDocument(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "listings.txt")
	require.NoError(t, os.WriteFile(path, []byte("Suite 300"), 0o644))

	kb := &fakeKB{}
	w := New(dir, kb, kb, zaptest.NewLogger(t))

	w.ingest(ctx, []string{path})
	id, ok := w.trackedID("listings.txt")
	require.True(t, ok)
	assert.Equal(t, 1, id)
	assert.Empty(t, kb.deleted)

	w.ingest(ctx, []string{path})
	assert.Equal(t, []int{1}, kb.deleted)
	id, _ = w.trackedID("listings.txt")
	assert.Equal(t, 2, id)

	w.remove(ctx, "listings.txt")
	assert.Equal(t, []int{1, 2}, kb.deleted)
	_, ok = w.trackedID("listings.txt")
	assert.False(t, ok)

	// Untracked names are ignored.
	w.remove(ctx, "other.txt")
	assert.Len(t, kb.deleted, 2)
}

func TestBackfill(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.png"), []byte("c"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".d.txt"), []byte("d"), 0o644))

	kb := &fakeKB{}
	w := New(dir, kb, kb, zaptest.NewLogger(t))
	require.NoError(t, w.Backfill(context.Background()))

	require.Len(t, kb.batches, 1)
	var names []string
	for _, f := range kb.batches[0] {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"a.txt", "b.md"}, names)
}

func TestBackfill_MissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "absent"), &fakeKB{}, &fakeKB{}, nil)
	assert.Error(t, w.Backfill(context.Background()))
}

func TestRun_IngestsDroppedFiles(t *testing.T) {
	dir := t.TempDir()
	logger := zaptest.NewLogger(t)
	kb := service.NewKnowledgeBase(nil, service.Options{Logger: logger})
	ing := service.NewIngester(kb, extract.New(chunker.LineChunker{}, nil), nil, logger)

	w := New(dir, ing, kb, logger)
	w.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(dir, "tower.txt")
	require.NoError(t, os.WriteFile(path, []byte("Tower A lobby\nTower A parking"), 0o644))

	assert.Eventually(t, func() bool {
		return kb.Stats().TotalChunks == 2 && kb.Stats().TotalDocuments == 1
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		return kb.Stats().TotalChunks == 0
	}, 3*time.Second, 20*time.Millisecond)
}

func TestNew_TracksStoredDocuments(t *testing.T) {
	kb := &fakeKB{stored: []domain.DocumentMetadata{
		{ID: 4, SourceFilename: "rent-roll.csv"},
		{ID: 7, SourceFilename: ""},
		{ID: 9, SourceFilename: "brochure.pdf"},
	}}
	w := New(t.TempDir(), kb, kb, zaptest.NewLogger(t))

	id, ok := w.trackedID("rent-roll.csv")
	require.True(t, ok)
	assert.Equal(t, 4, id)
	id, ok = w.trackedID("brochure.pdf")
	require.True(t, ok)
	assert.Equal(t, 9, id)
	_, ok = w.trackedID("")
	assert.False(t, ok)
}

func TestIngest_ReplacesDocumentFromEarlierRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	logger := zaptest.NewLogger(t)
	kb := service.NewKnowledgeBase(nil, service.Options{Logger: logger})
	ing := service.NewIngester(kb, extract.New(chunker.LineChunker{}, nil), nil, logger)

	_, err := ing.IngestFiles(ctx, []service.FileInput{{Name: "a.txt", Data: []byte("office lease downtown")}})
	require.NoError(t, err)

	// A fresh watcher, as after a restart, must pick up a.txt from the store.
	w := New(dir, ing, kb, logger)
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("office lease uptown"), 0o644))
	w.ingest(ctx, []string{path})

	docs := kb.ListMetadata()
	require.Len(t, docs, 1)
	assert.Equal(t, "a.txt", docs[0].SourceFilename)
	assert.Equal(t, 2, docs[0].ID)
	assert.Equal(t, []string{"office lease uptown"}, kb.Chunks())
}

func TestSetDebounce(t *testing.T) {
	w := New(t.TempDir(), &fakeKB{}, &fakeKB{}, nil)
	assert.Equal(t, DefaultDebounce/2, w.tickInterval())

	w.SetDebounce(0)
	assert.Equal(t, DefaultDebounce, w.debounce)

	w.SetDebounce(-time.Second)
	assert.Equal(t, DefaultDebounce, w.debounce)

	w.SetDebounce(time.Nanosecond)
	assert.Equal(t, time.Nanosecond, w.debounce)
	assert.Equal(t, minTick, w.tickInterval())
}
