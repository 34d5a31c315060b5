// Package service owns the knowledge base: the document store, the vector
// index built over it and the persister that snapshots both. It also hosts
// retrieval and file ingestion on top of that state.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"crerag/internal/docstore"
	"crerag/internal/domain"
	"crerag/internal/embedding/tfidf"
	"crerag/internal/metrics"
	"crerag/internal/vectorstore"
)

// DefaultTopK is used when a query asks for zero or fewer results.
const DefaultTopK = 3

// NewDocument is one source added in a batch.
type NewDocument struct {
	Chunks   []string
	Source   string
	ByteSize int
}

// Stats summarizes the knowledge base.
type Stats struct {
	TotalChunks    int  `json:"total_chunks"`
	TotalDocuments int  `json:"total_documents"`
	HasVectorizer  bool `json:"has_vectorizer"`
	HasMatrix      bool `json:"has_matrix"`
	VocabularySize int  `json:"vocabulary_size"`
}

// Knowledge is the knowledge-base surface the transports depend on.
type Knowledge interface {
	Search(ctx context.Context, text string, topK int) []domain.SearchResult
	Add(ctx context.Context, chunks []string, source string, byteSize int) (*domain.DocumentMetadata, error)
	Delete(ctx context.Context, id int) error
	Clear(ctx context.Context) error
	ListMetadata() []domain.DocumentMetadata
	Stats() Stats
}

var _ Knowledge = (*KnowledgeBase)(nil)

// Options configures a KnowledgeBase. Zero values select defaults.
type Options struct {
	MaxFeatures int
	DefaultTopK int
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

// KnowledgeBase keeps chunks, metadata and the index in lockstep. Every
// mutation runs mutate, rebuild and save under the write lock; queries run
// under the read lock and so always see a matching store and index.
type KnowledgeBase struct {
	mu        sync.RWMutex
	store     *docstore.Store
	index     *vectorstore.Index
	persister domain.Persister

	maxFeatures int
	defaultTopK int
	logger      *zap.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewKnowledgeBase creates an empty knowledge base. persister may be nil,
// in which case nothing is saved.
func NewKnowledgeBase(persister domain.Persister, opts Options) *KnowledgeBase {
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = tfidf.DefaultMaxFeatures
	}
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = DefaultTopK
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &KnowledgeBase{
		store:       docstore.New(),
		persister:   persister,
		maxFeatures: opts.MaxFeatures,
		defaultTopK: opts.DefaultTopK,
		logger:      opts.Logger.Named("kb"),
		metrics:     opts.Metrics,
		now:         opts.Now,
	}
}

// Load restores the persisted snapshot. A missing or inconsistent snapshot
// leaves the knowledge base empty and is not an error; only a failing
// backend (for example an unreadable directory) is returned.
func (kb *KnowledgeBase) Load(ctx context.Context) error {
	if kb.persister == nil {
		return nil
	}
	snap, err := kb.persister.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoKnowledgeBase) {
			kb.logger.Info("no saved knowledge base, starting empty")
			return nil
		}
		var perr *domain.PersistenceError
		if errors.As(err, &perr) && perr.Op == "decode" {
			kb.logger.Warn("saved knowledge base is unreadable, starting empty", zap.Error(err))
			return nil
		}
		return fmt.Errorf("loading knowledge base: %w", err)
	}

	store := docstore.New()
	if err := store.Restore(snap.Chunks, snap.Metadata); err != nil {
		kb.logger.Warn("saved metadata does not match chunks, dropping metadata", zap.Error(err))
		if err := store.Restore(snap.Chunks, nil); err != nil {
			return err
		}
	}
	var index *vectorstore.Index
	if len(snap.Chunks) > 0 {
		index, err = vectorstore.Restore(snap.Vectorizer, snap.Matrix)
		if err != nil || index.Len() != len(snap.Chunks) {
			kb.logger.Warn("saved index is inconsistent, rebuilding", zap.Error(err))
			index, err = vectorstore.Build(snap.Chunks, kb.maxFeatures)
			if err != nil {
				kb.logger.Warn("rebuild after load failed, index left empty", zap.Error(err))
				index = nil
			}
		}
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.store = store
	kb.index = index
	kb.metrics.SetSize(store.Len(), len(store.Metadata()))
	kb.logger.Info("knowledge base loaded",
		zap.Int("chunks", store.Len()),
		zap.Int("documents", len(store.Metadata())),
		zap.Int("vocabulary", index.VocabularySize()))
	return nil
}

// Add appends chunks and, when source is set, records a document covering them.
func (kb *KnowledgeBase) Add(ctx context.Context, chunks []string, source string, byteSize int) (*domain.DocumentMetadata, error) {
	docs, err := kb.AddDocuments(ctx, []NewDocument{{Chunks: chunks, Source: source, ByteSize: byteSize}})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

// AddDocuments appends several sources with a single rebuild and save.
// Blank chunks are dropped. It returns the metadata records created for
// sources that had a name.
func (kb *KnowledgeBase) AddDocuments(ctx context.Context, batch []NewDocument) ([]domain.DocumentMetadata, error) {
	docs := make([]NewDocument, 0, len(batch))
	total := 0
	for _, d := range batch {
		d.Chunks = nonBlank(d.Chunks)
		if len(d.Chunks) == 0 {
			continue
		}
		total += len(d.Chunks)
		docs = append(docs, d)
	}
	if total == 0 {
		kb.metrics.ObserveMutation("add", domain.ErrNoContent)
		return nil, domain.ErrNoContent
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	at := kb.now().UTC()
	var created []domain.DocumentMetadata
	for _, d := range docs {
		if md := kb.store.Append(d.Chunks, d.Source, d.ByteSize, at); md != nil {
			created = append(created, *md)
		}
	}
	kb.commit(ctx, "add")
	kb.logger.Info("chunks added", zap.Int("chunks", total), zap.Int("documents", len(created)))
	return created, nil
}

// Delete removes a document and its chunks.
func (kb *KnowledgeBase) Delete(ctx context.Context, id int) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	removed, err := kb.store.Delete(id)
	if err != nil {
		kb.metrics.ObserveMutation("delete", err)
		return err
	}
	kb.commit(ctx, "delete")
	kb.logger.Info("document deleted",
		zap.Int("id", removed.ID),
		zap.String("source", removed.SourceFilename),
		zap.Int("chunks", removed.ChunkCount))
	return nil
}

// Clear removes every chunk and document.
func (kb *KnowledgeBase) Clear(ctx context.Context) error {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	kb.store.Clear()
	kb.commit(ctx, "clear")
	kb.logger.Info("knowledge base cleared")
	return nil
}

// ListMetadata returns document records in insertion order.
func (kb *KnowledgeBase) ListMetadata() []domain.DocumentMetadata {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.store.Metadata()
}

// Stats reports sizes of the store and index.
func (kb *KnowledgeBase) Stats() Stats {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return Stats{
		TotalChunks:    kb.store.Len(),
		TotalDocuments: len(kb.store.Metadata()),
		HasVectorizer:  kb.index != nil,
		HasMatrix:      kb.index.Len() > 0,
		VocabularySize: kb.index.VocabularySize(),
	}
}

// Chunks returns a copy of the chunk sequence.
func (kb *KnowledgeBase) Chunks() []string {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.store.Chunks()
}

func nonBlank(chunks []string) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

// commit rebuilds the index from the current store and saves the snapshot.
// The caller holds the write lock. A save failure is logged and counted;
// the in-memory state stays authoritative.
func (kb *KnowledgeBase) commit(ctx context.Context, op string) {
	index, err := vectorstore.Build(kb.store.View(), kb.maxFeatures)
	switch {
	case vectorstore.IsEmptyVocabulary(err):
		// Only stop words left: nothing is searchable until new content arrives.
		kb.logger.Warn("index rebuild produced no vocabulary", zap.String("op", op))
		index = nil
	case err != nil:
		kb.logger.Error("index rebuild failed", zap.String("op", op), zap.Error(err))
		index = nil
	}
	kb.index = index
	kb.metrics.ObserveMutation(op, nil)
	kb.metrics.SetSize(kb.store.Len(), len(kb.store.Metadata()))

	if kb.persister == nil {
		return
	}
	vec, rows := index.State()
	snap := &domain.Snapshot{
		Chunks:     kb.store.Chunks(),
		Vectorizer: vec,
		Matrix:     rows,
		Metadata:   kb.store.Metadata(),
	}
	if err := kb.persister.Save(ctx, snap); err != nil {
		kb.metrics.PersistenceFailed()
		kb.logger.Error("saving knowledge base failed", zap.String("op", op), zap.Error(err))
	}
}
