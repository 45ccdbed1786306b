//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivist-ai/archivist/internal/domain"
	"github.com/archivist-ai/archivist/internal/testutil"
)

const testDims = 1536

func testEmbedding(axis int) []float32 {
	vec := make([]float32, testDims)
	vec[axis] = 1
	return vec
}

func blendedEmbedding(axis int, weight float32) []float32 {
	// unit vector leaning towards axis 0
	vec := make([]float32, testDims)
	vec[0] = weight
	vec[axis] = 1 - weight
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	scale := 1 / float32(sqrt64(float64(norm)))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func sqrt64(x float64) float64 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 20; i++ {
		z = (z + x/z) / 2
	}
	return z
}

func testRecord(collection, docID string, chunkIndex int, embedding []float32) domain.EmbeddingRecord {
	return domain.EmbeddingRecord{
		ID:         uuid.NewString(),
		Collection: collection,
		DocumentID: docID,
		ChunkIndex: chunkIndex,
		Title:      "Title " + docID,
		Content:    "Content of " + docID,
		Embedding:  embedding,
	}
}

func TestVectorRepository_InsertAndSearch(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewVectorRepository(pool, testDims)

	err := repo.Insert(ctx, "user-1", []domain.EmbeddingRecord{
		testRecord("docs", "doc-a", 0, testEmbedding(0)),
		testRecord("docs", "doc-b", 0, testEmbedding(1)),
		testRecord("docs", "doc-c", 0, blendedEmbedding(1, 0.9)),
	})
	require.NoError(t, err)

	results, err := repo.Search(ctx, []string{"docs"}, testEmbedding(0), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc-a", results[0].Record.DocumentID)
	assert.Equal(t, "doc-c", results[1].Record.DocumentID)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-4)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestVectorRepository_DimensionMismatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewVectorRepository(pool, testDims)

	err := repo.Insert(ctx, "user-1", []domain.EmbeddingRecord{
		testRecord("docs", "doc-a", 0, testEmbedding(0)),
		testRecord("docs", "doc-b", 0, []float32{1, 0}),
	})
	assert.Equal(t, domain.ErrDimensionMismatch, err)

	results, err := repo.Search(ctx, []string{"docs"}, testEmbedding(0), 10)
	require.NoError(t, err)
	assert.Empty(t, results, "no record of the batch may be visible")
}

func TestVectorRepository_CollectionIsolation(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewVectorRepository(pool, testDims)

	require.NoError(t, repo.Insert(ctx, "user-1", []domain.EmbeddingRecord{
		testRecord("alpha", "doc-a", 0, testEmbedding(0)),
	}))
	require.NoError(t, repo.Insert(ctx, "user-2", []domain.EmbeddingRecord{
		testRecord("beta", "doc-b", 0, testEmbedding(0)),
	}))

	results, err := repo.Search(ctx, []string{"alpha"}, testEmbedding(0), 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-a", results[0].Record.DocumentID)
}

func TestVectorRepository_DeleteDocumentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewVectorRepository(pool, testDims)

	require.NoError(t, repo.Insert(ctx, "user-1", []domain.EmbeddingRecord{
		testRecord("docs", "doc-a", 0, testEmbedding(0)),
		testRecord("docs", "doc-a", 1, testEmbedding(1)),
		testRecord("docs", "doc-b", 0, testEmbedding(2)),
	}))

	removed, err := repo.DeleteDocument(ctx, "docs", "doc-a")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	removed, err = repo.DeleteDocument(ctx, "docs", "doc-a")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestVectorRepository_ListCollections(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewVectorRepository(pool, testDims)

	require.NoError(t, repo.Insert(ctx, "user-1", []domain.EmbeddingRecord{
		testRecord("alpha", "doc-a", 0, testEmbedding(0)),
		testRecord("alpha", "doc-a", 1, testEmbedding(1)),
	}))
	require.NoError(t, repo.Insert(ctx, "user-2", []domain.EmbeddingRecord{
		testRecord("beta", "doc-b", 0, testEmbedding(2)),
	}))

	collections, err := repo.ListCollections(ctx)
	require.NoError(t, err)
	require.Len(t, collections, 2)
	assert.Equal(t, "alpha", collections[0].Name)
	assert.Equal(t, "user-1", collections[0].OwnerUserID)
	assert.Equal(t, 2, collections[0].RecordCount)
	assert.Equal(t, "beta", collections[1].Name)
	assert.Equal(t, 1, collections[1].RecordCount)
}
