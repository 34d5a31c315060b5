package domain

import (
	"context"
	"time"
)

// DocumentMetadata tracks one ingested source and the contiguous range of
// chunks it owns in the knowledge base. The range is half-open:
// [ChunkStartIndex, ChunkEndIndex).
type DocumentMetadata struct {
	ID              int       `json:"id"`
	SourceFilename  string    `json:"source_filename"`
	IngestedAt      time.Time `json:"ingested_at"`
	ChunkCount      int       `json:"chunk_count"`
	ChunkStartIndex int       `json:"chunk_start_index"`
	ChunkEndIndex   int       `json:"chunk_end_index"`
	ByteSize        int       `json:"byte_size"`
	TotalTextLength int       `json:"total_text_length"`
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// Criteria holds numeric constraints extracted from a free-text query.
// A missing key means no constraint of that kind.
type Criteria map[string]int

const (
	CriterionMinSize = "min_size"
	CriterionMaxRent = "max_rent"
)

// MinSize returns the exclusive lower bound on square footage, if any.
func (c Criteria) MinSize() (int, bool) {
	v, ok := c[CriterionMinSize]
	return v, ok
}

// MaxRent returns the exclusive upper bound on rent, if any.
func (c Criteria) MaxRent() (int, bool) {
	v, ok := c[CriterionMaxRent]
	return v, ok
}

// Empty reports whether no constraint was extracted.
func (c Criteria) Empty() bool { return len(c) == 0 }

// Snapshot is the persisted form of the knowledge base: the chunk sequence,
// the fitted vectorizer, the weight matrix and the metadata list.
type Snapshot struct {
	Chunks     []string
	Vectorizer *VectorizerState
	Matrix     []SparseRow
	Metadata   []DocumentMetadata
}

// VectorizerState is the serializable state of a fitted TF-IDF model.
// Vocabulary[i] is the term for column i and IDF[i] its weight.
type VectorizerState struct {
	MaxFeatures int       `json:"max_features"`
	Vocabulary  []string  `json:"vocabulary"`
	IDF         []float64 `json:"idf"`
}

// SparseRow is one row of the weight matrix. Indices are ascending.
type SparseRow struct {
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
}

// Message is one turn handed to a chat model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chunker splits extracted text into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(text string) []string
}

// Persister saves and restores the knowledge base artifacts.
type Persister interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
}

// ChatModel produces an assistant reply for a conversation.
type ChatModel interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Retriever is the read side of the knowledge base used by chat and transports.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) []string
	Search(ctx context.Context, text string, topK int) []SearchResult
}
