package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crerag/internal/domain"
)

func sampleSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Chunks: []string{"office tower", "retail storefront"},
		Vectorizer: &domain.VectorizerState{
			MaxFeatures: 1000,
			Vocabulary:  []string{"office", "retail", "storefront", "tower"},
			IDF:         []float64{1.4, 1.4, 1.4, 1.4},
		},
		Matrix: []domain.SparseRow{
			{Indices: []int{0, 3}, Values: []float64{0.7071, 0.7071}},
			{Indices: []int{1, 2}, Values: []float64{0.7071, 0.7071}},
		},
		Metadata: []domain.DocumentMetadata{{
			ID:              3,
			SourceFilename:  "listings.csv",
			IngestedAt:      time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC),
			ChunkCount:      2,
			ChunkStartIndex: 0,
			ChunkEndIndex:   2,
			ByteSize:        512,
			TotalTextLength: 29,
		}},
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := NewFileStore(filepath.Join(t.TempDir(), "data"))

	want := sampleSnapshot()
	require.NoError(t, fs.Save(ctx, want))

	got, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileStore_EmptyDirectory(t *testing.T) {
	_, err := NewFileStore(t.TempDir()).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoKnowledgeBase)
}

func TestFileStore_PartialArtifacts(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs := NewFileStore(dir)
	require.NoError(t, fs.Save(ctx, sampleSnapshot()))

	require.NoError(t, os.Remove(filepath.Join(dir, "matrix.json")))
	_, err := fs.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNoKnowledgeBase)
}

func TestFileStore_MissingMetadataKeepsChunks(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs := NewFileStore(dir)
	require.NoError(t, fs.Save(ctx, sampleSnapshot()))

	require.NoError(t, os.Remove(filepath.Join(dir, "metadata.json")))
	got, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Chunks, 2)
	assert.NotNil(t, got.Vectorizer)
	assert.Empty(t, got.Metadata)
}

func TestFileStore_CorruptArtifact(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs := NewFileStore(dir)
	require.NoError(t, fs.Save(ctx, sampleSnapshot()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chunks.json"), []byte("{not json"), 0o644))

	_, err := fs.Load(ctx)
	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ArtifactChunks, perr.Artifact)
}

func TestFileStore_EmptySnapshot(t *testing.T) {
	ctx := context.Background()
	fs := NewFileStore(t.TempDir())
	require.NoError(t, fs.Save(ctx, &domain.Snapshot{}))

	got, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Chunks)
	assert.Nil(t, got.Vectorizer)
	assert.Empty(t, got.Matrix)
	assert.Empty(t, got.Metadata)
}

func TestDecode_MatrixMismatch(t *testing.T) {
	snap := sampleSnapshot()
	snap.Matrix = snap.Matrix[:1]
	payloads, err := encode(snap)
	require.NoError(t, err)

	_, err = decode(payloads)
	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ArtifactMatrix, perr.Artifact)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLiteInMemory()
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNoKnowledgeBase)

	want := sampleSnapshot()
	require.NoError(t, st.Save(ctx, want))
	got, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Saving again replaces rather than duplicates.
	want.Chunks = want.Chunks[:1]
	want.Matrix = want.Matrix[:1]
	want.Metadata = []domain.DocumentMetadata{}
	require.NoError(t, st.Save(ctx, want))
	got, err = st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"office tower"}, got.Chunks)
}

func TestSQLiteStore_PartialArtifacts(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLiteInMemory()
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Save(ctx, sampleSnapshot()))
	_, err = st.db.ExecContext(ctx, `DELETE FROM artifacts WHERE name = ?`, ArtifactVectorizer)
	require.NoError(t, err)

	_, err = st.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNoKnowledgeBase)
}

func TestSQLiteStore_OnDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "kb.db")
	st, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, sampleSnapshot()))
	require.NoError(t, st.Close())

	st, err = OpenSQLite(path)
	require.NoError(t, err)
	defer st.Close()
	got, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), got)
}
