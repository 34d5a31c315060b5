package tfidf

import (
	"math"

	"crerag/internal/domain"
)

// SparseVector is a term-weight vector with ascending column indices.
type SparseVector struct {
	Indices []int
	Values  []float64
}

// Norm returns the L2 norm.
func (s SparseVector) Norm() float64 {
	sum := 0.0
	for _, v := range s.Values {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Dot returns the inner product of two sparse vectors.
func (s SparseVector) Dot(o SparseVector) float64 {
	sum := 0.0
	i, j := 0, 0
	for i < len(s.Indices) && j < len(o.Indices) {
		switch {
		case s.Indices[i] == o.Indices[j]:
			sum += s.Values[i] * o.Values[j]
			i++
			j++
		case s.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Cosine returns the cosine similarity, or 0 when either vector is zero.
func (s SparseVector) Cosine(o SparseVector) float64 {
	na, nb := s.Norm(), o.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return s.Dot(o) / (na * nb)
}

// Row converts the vector to its persisted form.
func (s SparseVector) Row() domain.SparseRow {
	return domain.SparseRow{
		Indices: append([]int(nil), s.Indices...),
		Values:  append([]float64(nil), s.Values...),
	}
}

// FromRow converts a persisted row back into a vector.
func FromRow(r domain.SparseRow) SparseVector {
	return SparseVector{
		Indices: append([]int(nil), r.Indices...),
		Values:  append([]float64(nil), r.Values...),
	}
}

func (s SparseVector) normalize() {
	norm := s.Norm()
	if norm == 0 {
		return
	}
	for i := range s.Values {
		s.Values[i] /= norm
	}
}
