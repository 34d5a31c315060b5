package vectorstore

import (
	"sort"

	"crerag/internal/embedding/tfidf"
)

// Scored is a chunk position with its similarity to the query.
type Scored struct {
	Index int
	Score float64
}

// Rank computes cosine similarity between query and every row of matrix and
// returns them best-first. Equal scores keep the lower chunk index first.
func Rank(query tfidf.SparseVector, matrix []tfidf.SparseVector) []Scored {
	if len(matrix) == 0 {
		return []Scored{}
	}
	scored := make([]Scored, len(matrix))
	for i := range matrix {
		scored[i] = Scored{Index: i, Score: query.Cosine(matrix[i])}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}
