package tfidf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crerag/internal/domain"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"suite", "300", "offers", "20", "000", "sf"},
		Tokenize("Suite 300 offers 20,000 SF"))
	assert.Empty(t, Tokenize("the and of"))
	assert.Equal(t, []string{"x"}, Tokenize("x"))
}

func TestTransform_NotFitted(t *testing.T) {
	v := NewVectorizer(0)
	_, err := v.Transform("anything")
	assert.ErrorIs(t, err, domain.ErrNotFitted)
	assert.Nil(t, v.State())
}

func TestFit_EmptyVocabulary(t *testing.T) {
	v := NewVectorizer(0)
	err := v.Fit([]string{"the", "and of the"})
	assert.ErrorIs(t, err, ErrEmptyVocabulary)
	assert.False(t, v.Fitted())
}

func TestFit_KeepsPreviousModelOnError(t *testing.T) {
	v := NewVectorizer(0)
	require.NoError(t, v.Fit([]string{"office lease"}))
	require.ErrorIs(t, v.Fit([]string{"the"}), ErrEmptyVocabulary)
	assert.True(t, v.Fitted())
	assert.Equal(t, 2, v.VocabularySize())
}

func TestFitTransform_SelfSimilarity(t *testing.T) {
	v := NewVectorizer(0)
	rows, err := v.FitTransform([]string{"office space in midtown"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	q, err := v.Transform("office space in midtown")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, q.Cosine(rows[0]), 1e-9)
	assert.InDelta(t, 1.0, rows[0].Norm(), 1e-9)
}

func TestFit_IDFWeighting(t *testing.T) {
	v := NewVectorizer(0)
	require.NoError(t, v.Fit([]string{"office lease", "office retail", "office warehouse"}))

	st := v.State()
	require.NotNil(t, st)
	assert.Equal(t, []string{"lease", "office", "retail", "warehouse"}, st.Vocabulary)
	// office appears everywhere: ln(4/4)+1 = 1; lease once: ln(4/2)+1
	assert.InDelta(t, 1.0, st.IDF[1], 1e-9)
	assert.Greater(t, st.IDF[0], st.IDF[1])
}

func TestFit_MaxFeatures(t *testing.T) {
	v := NewVectorizer(2)
	require.NoError(t, v.Fit([]string{"alpha alpha beta", "alpha gamma beta", "delta"}))
	st := v.State()
	require.NotNil(t, st)
	assert.Equal(t, []string{"alpha", "beta"}, st.Vocabulary)

	q, err := v.Transform("delta gamma")
	require.NoError(t, err)
	assert.Empty(t, q.Indices, "out-of-vocabulary terms are dropped")
}

func TestStateRoundTrip(t *testing.T) {
	v := NewVectorizer(0)
	require.NoError(t, v.Fit([]string{"retail space on broadway", "office tower lease"}))

	restored, err := FromState(v.State())
	require.NoError(t, err)

	a, err := v.Transform("broadway retail lease")
	require.NoError(t, err)
	b, err := restored.Transform("broadway retail lease")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFromState_Invalid(t *testing.T) {
	_, err := FromState(nil)
	assert.ErrorIs(t, err, domain.ErrNotFitted)

	_, err = FromState(&domain.VectorizerState{Vocabulary: []string{"a"}, IDF: nil})
	assert.Error(t, err)
}

func TestSparseVector_Dot(t *testing.T) {
	a := SparseVector{Indices: []int{0, 2, 5}, Values: []float64{1, 2, 3}}
	b := SparseVector{Indices: []int{2, 3, 5}, Values: []float64{4, 1, 1}}
	assert.InDelta(t, 11.0, a.Dot(b), 1e-9)
	assert.Equal(t, 0.0, a.Cosine(SparseVector{}))
	assert.Equal(t, a, FromRow(a.Row()))
}
