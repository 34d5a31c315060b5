package vectorstore

import (
	"errors"
	"fmt"

	"crerag/internal/domain"
	"crerag/internal/embedding/tfidf"
)

// Index is an immutable fitted vectorizer plus its weight matrix, one row
// per chunk in store order. A rebuild produces a new Index; it is never
// mutated in place.
type Index struct {
	vectorizer *tfidf.Vectorizer
	matrix     []tfidf.SparseVector
}

// Build fits a fresh index over chunks. An empty corpus yields a nil index.
func Build(chunks []string, maxFeatures int) (*Index, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	v := tfidf.NewVectorizer(maxFeatures)
	rows, err := v.FitTransform(chunks)
	if err != nil {
		return nil, err
	}
	return &Index{vectorizer: v, matrix: rows}, nil
}

// Restore rebuilds an index from persisted state. rows must match the
// chunk count the caller expects.
func Restore(st *domain.VectorizerState, rows []domain.SparseRow) (*Index, error) {
	v, err := tfidf.FromState(st)
	if err != nil {
		return nil, err
	}
	vocab := v.VocabularySize()
	matrix := make([]tfidf.SparseVector, len(rows))
	for i, r := range rows {
		if len(r.Indices) != len(r.Values) {
			return nil, fmt.Errorf("matrix row %d: indices and values length mismatch", i)
		}
		for _, idx := range r.Indices {
			if idx < 0 || idx >= vocab {
				return nil, fmt.Errorf("matrix row %d: column %d outside vocabulary", i, idx)
			}
		}
		matrix[i] = tfidf.FromRow(r)
	}
	return &Index{vectorizer: v, matrix: matrix}, nil
}

// Len returns the number of indexed rows.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.matrix)
}

// VocabularySize returns the number of fitted terms.
func (ix *Index) VocabularySize() int {
	if ix == nil {
		return 0
	}
	return ix.vectorizer.VocabularySize()
}

// Transform projects a query into the index's term-weight space.
func (ix *Index) Transform(query string) (tfidf.SparseVector, error) {
	if ix == nil {
		return tfidf.SparseVector{}, domain.ErrNotFitted
	}
	return ix.vectorizer.Transform(query)
}

// Rank scores every indexed row against query.
func (ix *Index) Rank(query tfidf.SparseVector) []Scored {
	if ix == nil {
		return nil
	}
	return Rank(query, ix.matrix)
}

// Search transforms and ranks in one step.
func (ix *Index) Search(query string) ([]Scored, error) {
	q, err := ix.Transform(query)
	if err != nil {
		return nil, err
	}
	return ix.Rank(q), nil
}

// State exports the vectorizer and matrix for persistence.
func (ix *Index) State() (*domain.VectorizerState, []domain.SparseRow) {
	if ix == nil {
		return nil, []domain.SparseRow{}
	}
	rows := make([]domain.SparseRow, len(ix.matrix))
	for i, r := range ix.matrix {
		rows[i] = r.Row()
	}
	return ix.vectorizer.State(), rows
}

// IsEmptyVocabulary reports whether err means the corpus had no indexable terms.
func IsEmptyVocabulary(err error) bool {
	return errors.Is(err, tfidf.ErrEmptyVocabulary)
}
