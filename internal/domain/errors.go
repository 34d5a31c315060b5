package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a document id does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrNotFitted is returned when a transform is attempted before any fit.
	ErrNotFitted = errors.New("vectorizer not fitted")
	// ErrNoContent is returned when a batch or file yields no text.
	ErrNoContent = errors.New("no text content")
	// ErrNoKnowledgeBase is returned by Load when core artifacts are missing.
	ErrNoKnowledgeBase = errors.New("no knowledge base")
	// ErrUnsupportedFormat is returned for file types the extractor cannot read.
	ErrUnsupportedFormat = errors.New("unsupported file type")
)

// ExtractionError records why a single file produced no chunks.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// PersistenceError wraps an I/O or encoding failure on a named artifact.
type PersistenceError struct {
	Op       string
	Artifact string
	Err      error
}

func (e *PersistenceError) Error() string {
	if e.Artifact == "" {
		return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Artifact, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
