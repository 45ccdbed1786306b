package store

import (
	"context"

	"github.com/archivist-ai/archivist/internal/domain"
)

// VectorStore persists embedding records partitioned by collection and
// answers nearest-neighbor queries over them. Embeddings are expected to be
// L2-normalized before insert, so inner product equals cosine similarity.
type VectorStore interface {
	// Insert stores a batch of records atomically. Collections named by the
	// records are created implicitly, owned by ownerUserID. If any record's
	// embedding dimension does not match the store, nothing is inserted and
	// ErrDimensionMismatch is returned.
	Insert(ctx context.Context, ownerUserID string, records []domain.EmbeddingRecord) error

	// Search returns the topK records across the given collections ranked by
	// descending inner product with vector. Ties break by insertion order.
	// Collections that do not exist contribute no results.
	Search(ctx context.Context, collections []string, vector []float32, topK int) ([]domain.ScoredRecord, error)

	// DeleteDocument removes every record of the document from the collection
	// and returns how many were removed. Deleting an absent document is not
	// an error.
	DeleteDocument(ctx context.Context, collection, documentID string) (int, error)

	// ListCollections returns all collections with their record counts.
	ListCollections(ctx context.Context) ([]domain.Collection, error)

	// Dimensions returns the embedding dimension the store enforces.
	Dimensions() int
}
