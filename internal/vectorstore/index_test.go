package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crerag/internal/domain"
	"crerag/internal/embedding/tfidf"
)

func TestBuild_EmptyCorpus(t *testing.T) {
	ix, err := Build(nil, 0)
	require.NoError(t, err)
	assert.Nil(t, ix)
	assert.Equal(t, 0, ix.Len())

	_, err = ix.Transform("anything")
	assert.ErrorIs(t, err, domain.ErrNotFitted)
}

func TestBuild_EmptyVocabulary(t *testing.T) {
	_, err := Build([]string{"the of and"}, 0)
	assert.True(t, IsEmptyVocabulary(err))
}

func TestIndex_SearchOrdersBestFirst(t *testing.T) {
	chunks := []string{
		"retail storefront on broadway",
		"class a office tower in midtown",
		"office loft near union square",
	}
	ix, err := Build(chunks, 0)
	require.NoError(t, err)
	require.Equal(t, 3, ix.Len())

	res, err := ix.Search("midtown office tower")
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, 1, res[0].Index)
	assert.Equal(t, 2, res[1].Index)
	assert.Equal(t, 0, res[2].Index)
	assert.Equal(t, 0.0, res[2].Score)
}

func TestRank_TiesKeepLowerIndex(t *testing.T) {
	row := tfidf.SparseVector{Indices: []int{0}, Values: []float64{1}}
	matrix := []tfidf.SparseVector{{}, row, row, {}}
	res := Rank(row, matrix)
	require.Len(t, res, 4)
	assert.Equal(t, []int{1, 2, 0, 3}, []int{res[0].Index, res[1].Index, res[2].Index, res[3].Index})
}

func TestRank_EmptyMatrix(t *testing.T) {
	res := Rank(tfidf.SparseVector{}, nil)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestRestore_RanksIdentically(t *testing.T) {
	chunks := []string{"retail storefront on broadway", "office tower in midtown", "warehouse in queens"}
	ix, err := Build(chunks, 0)
	require.NoError(t, err)

	st, rows := ix.State()
	restored, err := Restore(st, rows)
	require.NoError(t, err)

	want, err := ix.Search("broadway retail")
	require.NoError(t, err)
	got, err := restored.Search("broadway retail")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRestore_RejectsBadRows(t *testing.T) {
	st := &domain.VectorizerState{Vocabulary: []string{"office"}, IDF: []float64{1}}
	_, err := Restore(st, []domain.SparseRow{{Indices: []int{3}, Values: []float64{1}}})
	assert.Error(t, err)

	_, err = Restore(st, []domain.SparseRow{{Indices: []int{0}, Values: nil}})
	assert.Error(t, err)
}
