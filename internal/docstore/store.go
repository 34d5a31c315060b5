// Package docstore holds the ordered chunk sequence and the metadata records
// that own contiguous ranges of it. It is not safe for concurrent use; the
// knowledge base serializes access.
package docstore

import (
	"fmt"
	"time"

	"crerag/internal/domain"
)

// Store is an arena of chunks plus metadata ranges into it.
type Store struct {
	chunks []string
	docs   []domain.DocumentMetadata
	nextID int
}

// New creates an empty store.
func New() *Store {
	return &Store{nextID: 1}
}

// Len returns the number of chunks.
func (s *Store) Len() int { return len(s.chunks) }

// Chunks returns a copy of the chunk sequence.
func (s *Store) Chunks() []string {
	return append([]string(nil), s.chunks...)
}

// View returns the chunk sequence without copying. Callers must not modify it.
func (s *Store) View() []string { return s.chunks }

// Metadata returns the metadata records in insertion order.
func (s *Store) Metadata() []domain.DocumentMetadata {
	return append([]domain.DocumentMetadata{}, s.docs...)
}

// Append adds chunks to the end of the sequence. When source is non-empty a
// metadata record covering the new range is created and returned.
func (s *Store) Append(chunks []string, source string, byteSize int, at time.Time) *domain.DocumentMetadata {
	start := len(s.chunks)
	s.chunks = append(s.chunks, chunks...)
	if source == "" {
		return nil
	}
	textLen := 0
	for _, c := range chunks {
		textLen += len(c)
	}
	md := domain.DocumentMetadata{
		ID:              s.nextID,
		SourceFilename:  source,
		IngestedAt:      at,
		ChunkCount:      len(chunks),
		ChunkStartIndex: start,
		ChunkEndIndex:   start + len(chunks),
		ByteSize:        byteSize,
		TotalTextLength: textLen,
	}
	s.nextID++
	s.docs = append(s.docs, md)
	return &md
}

// Delete removes the document's chunk range and record, shifting the ranges
// of later documents down by the removed length.
func (s *Store) Delete(id int) (domain.DocumentMetadata, error) {
	pos := -1
	for i, d := range s.docs {
		if d.ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return domain.DocumentMetadata{}, fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	removed := s.docs[pos]
	start, end := removed.ChunkStartIndex, removed.ChunkEndIndex
	n := end - start

	s.chunks = append(s.chunks[:start], s.chunks[end:]...)
	s.docs = append(s.docs[:pos], s.docs[pos+1:]...)
	for i := range s.docs {
		if s.docs[i].ChunkStartIndex >= end {
			s.docs[i].ChunkStartIndex -= n
			s.docs[i].ChunkEndIndex -= n
		}
	}
	return removed, nil
}

// Clear empties chunks and metadata. Ids keep increasing.
func (s *Store) Clear() {
	s.chunks = nil
	s.docs = nil
}

// Restore replaces the store contents with persisted state. Metadata whose
// ranges are inconsistent with chunks is rejected.
func (s *Store) Restore(chunks []string, docs []domain.DocumentMetadata) error {
	if err := Validate(len(chunks), docs); err != nil {
		return err
	}
	s.chunks = append([]string(nil), chunks...)
	s.docs = append([]domain.DocumentMetadata(nil), docs...)
	s.nextID = 1
	for _, d := range docs {
		if d.ID >= s.nextID {
			s.nextID = d.ID + 1
		}
	}
	return nil
}

// Validate checks that every range lies within total and that ranges and
// ids do not collide.
func Validate(total int, docs []domain.DocumentMetadata) error {
	claimed := make([]bool, total)
	ids := make(map[int]struct{}, len(docs))
	for _, d := range docs {
		if _, dup := ids[d.ID]; dup {
			return fmt.Errorf("metadata: duplicate id %d", d.ID)
		}
		ids[d.ID] = struct{}{}
		if d.ChunkStartIndex < 0 || d.ChunkEndIndex > total || d.ChunkStartIndex > d.ChunkEndIndex {
			return fmt.Errorf("metadata: document %d range [%d,%d) outside %d chunks", d.ID, d.ChunkStartIndex, d.ChunkEndIndex, total)
		}
		if d.ChunkEndIndex-d.ChunkStartIndex != d.ChunkCount {
			return fmt.Errorf("metadata: document %d chunk count %d does not match range", d.ID, d.ChunkCount)
		}
		for i := d.ChunkStartIndex; i < d.ChunkEndIndex; i++ {
			if claimed[i] {
				return fmt.Errorf("metadata: document %d overlaps another range at chunk %d", d.ID, i)
			}
			claimed[i] = true
		}
	}
	return nil
}
