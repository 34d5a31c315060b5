package tfidf

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"

	"crerag/internal/domain"
)

// DefaultMaxFeatures bounds the vocabulary size.
const DefaultMaxFeatures = 1000

// ErrEmptyVocabulary is returned by Fit when no term survives tokenization
// and stop-word filtering.
var ErrEmptyVocabulary = errors.New("empty vocabulary; corpus contains only stop words")

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Vectorizer implements a TF-IDF model with a bounded vocabulary.
// It builds a vocabulary from the corpus and computes IDF values.
type Vectorizer struct {
	maxFeatures int
	vocabulary  map[string]int
	terms       []string
	idf         []float64
	fitted      bool
}

// NewVectorizer creates an unfitted vectorizer. maxFeatures <= 0 selects
// DefaultMaxFeatures.
func NewVectorizer(maxFeatures int) *Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &Vectorizer{maxFeatures: maxFeatures}
}

// Fitted reports whether Fit has succeeded at least once.
func (v *Vectorizer) Fitted() bool { return v.fitted }

// VocabularySize returns the number of terms in the fitted vocabulary.
func (v *Vectorizer) VocabularySize() int { return len(v.terms) }

// Fit builds the vocabulary and IDF values from the provided corpus. On
// error the previous model, if any, is left untouched.
func (v *Vectorizer) Fit(corpus []string) error {
	df := make(map[string]int)
	total := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range Tokenize(text) {
			total[tok]++
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	if len(terms) > v.maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if total[terms[i]] != total[terms[j]] {
				return total[terms[i]] > total[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.maxFeatures]
	}
	// Columns are assigned in lexical order.
	sort.Strings(terms)

	n := float64(len(corpus))
	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		vocab[term] = i
		// Smoothed IDF
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	v.vocabulary = vocab
	v.terms = terms
	v.idf = idf
	v.fitted = true
	return nil
}

// Transform projects text into the fitted term-weight space.
func (v *Vectorizer) Transform(text string) (SparseVector, error) {
	if !v.fitted {
		return SparseVector{}, domain.ErrNotFitted
	}
	counts := make(map[int]int)
	for _, tok := range Tokenize(text) {
		if idx, ok := v.vocabulary[tok]; ok {
			counts[idx]++
		}
	}
	vec := SparseVector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)
	for _, idx := range vec.Indices {
		vec.Values = append(vec.Values, float64(counts[idx])*v.idf[idx])
	}
	vec.normalize()
	return vec, nil
}

// FitTransform fits the model on corpus and returns one row per document.
func (v *Vectorizer) FitTransform(corpus []string) ([]SparseVector, error) {
	if err := v.Fit(corpus); err != nil {
		return nil, err
	}
	rows := make([]SparseVector, len(corpus))
	for i, text := range corpus {
		row, err := v.Transform(text)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return rows, nil
}

// State exports the fitted model, or nil when unfitted.
func (v *Vectorizer) State() *domain.VectorizerState {
	if !v.fitted {
		return nil
	}
	return &domain.VectorizerState{
		MaxFeatures: v.maxFeatures,
		Vocabulary:  append([]string(nil), v.terms...),
		IDF:         append([]float64(nil), v.idf...),
	}
}

// FromState rebuilds a fitted vectorizer from persisted state.
func FromState(st *domain.VectorizerState) (*Vectorizer, error) {
	if st == nil || len(st.Vocabulary) == 0 {
		return nil, domain.ErrNotFitted
	}
	if len(st.Vocabulary) != len(st.IDF) {
		return nil, errors.New("vectorizer state: vocabulary and idf length mismatch")
	}
	v := NewVectorizer(st.MaxFeatures)
	v.terms = append([]string(nil), st.Vocabulary...)
	v.idf = append([]float64(nil), st.IDF...)
	v.vocabulary = make(map[string]int, len(v.terms))
	for i, term := range v.terms {
		v.vocabulary[term] = i
	}
	v.fitted = true
	return v, nil
}

// Tokenize lower-cases text, splits it into word tokens and drops stop words.
func Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if IsStopWord(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}
