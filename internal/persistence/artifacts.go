// Package persistence saves the knowledge base as four named artifacts
// (chunks, vectorizer, matrix, metadata) and restores it on start-up.
package persistence

import (
	"encoding/json"
	"errors"

	"crerag/internal/domain"
)

// Artifact names.
const (
	ArtifactChunks     = "chunks"
	ArtifactVectorizer = "vectorizer"
	ArtifactMatrix     = "matrix"
	ArtifactMetadata   = "metadata"
)

// coreArtifacts must all be present for a load to succeed.
var coreArtifacts = []string{ArtifactChunks, ArtifactVectorizer, ArtifactMatrix}

// AllArtifacts lists every artifact in write order.
var AllArtifacts = []string{ArtifactChunks, ArtifactVectorizer, ArtifactMatrix, ArtifactMetadata}

// encode serializes a snapshot into one payload per artifact.
func encode(snap *domain.Snapshot) (map[string][]byte, error) {
	chunks := snap.Chunks
	if chunks == nil {
		chunks = []string{}
	}
	matrix := snap.Matrix
	if matrix == nil {
		matrix = []domain.SparseRow{}
	}
	metadata := snap.Metadata
	if metadata == nil {
		metadata = []domain.DocumentMetadata{}
	}
	values := map[string]any{
		ArtifactChunks:     chunks,
		ArtifactVectorizer: snap.Vectorizer,
		ArtifactMatrix:     matrix,
		ArtifactMetadata:   metadata,
	}
	out := make(map[string][]byte, len(values))
	for _, name := range AllArtifacts {
		data, err := json.Marshal(values[name])
		if err != nil {
			return nil, &domain.PersistenceError{Op: "encode", Artifact: name, Err: err}
		}
		out[name] = data
	}
	return out, nil
}

// decode rebuilds a snapshot from artifact payloads. A missing core artifact
// yields domain.ErrNoKnowledgeBase; a missing metadata artifact yields an
// empty metadata list.
func decode(payloads map[string][]byte) (*domain.Snapshot, error) {
	for _, name := range coreArtifacts {
		if _, ok := payloads[name]; !ok {
			return nil, domain.ErrNoKnowledgeBase
		}
	}
	snap := &domain.Snapshot{}
	if err := json.Unmarshal(payloads[ArtifactChunks], &snap.Chunks); err != nil {
		return nil, &domain.PersistenceError{Op: "decode", Artifact: ArtifactChunks, Err: err}
	}
	if err := json.Unmarshal(payloads[ArtifactVectorizer], &snap.Vectorizer); err != nil {
		return nil, &domain.PersistenceError{Op: "decode", Artifact: ArtifactVectorizer, Err: err}
	}
	if err := json.Unmarshal(payloads[ArtifactMatrix], &snap.Matrix); err != nil {
		return nil, &domain.PersistenceError{Op: "decode", Artifact: ArtifactMatrix, Err: err}
	}
	if data, ok := payloads[ArtifactMetadata]; ok {
		if err := json.Unmarshal(data, &snap.Metadata); err != nil {
			return nil, &domain.PersistenceError{Op: "decode", Artifact: ArtifactMetadata, Err: err}
		}
	}
	if snap.Metadata == nil {
		snap.Metadata = []domain.DocumentMetadata{}
	}
	// A stop-word-only corpus is saved with chunks but no fitted model.
	if snap.Vectorizer != nil && len(snap.Matrix) != len(snap.Chunks) {
		return nil, &domain.PersistenceError{
			Op:       "decode",
			Artifact: ArtifactMatrix,
			Err:      errors.New("matrix row count does not match chunk count"),
		}
	}
	return snap, nil
}
