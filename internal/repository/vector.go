package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/archivist-ai/archivist/internal/domain"
	"github.com/archivist-ai/archivist/internal/store"
)

// VectorRepository is the pgvector-backed VectorStore. Embeddings are stored
// L2-normalized, so negated inner product distance orders by cosine
// similarity. Insertion order is preserved through a bigserial seq column and
// breaks score ties.
type VectorRepository struct {
	db   dbtx
	pool *pgxpool.Pool
	dims int
}

func NewVectorRepository(pool *pgxpool.Pool, dims int) *VectorRepository {
	return &VectorRepository{db: pool, pool: pool, dims: dims}
}

func NewVectorRepositoryWithTx(tx dbtx, dims int) *VectorRepository {
	return &VectorRepository{db: tx, dims: dims}
}

// Dimensions returns the embedding dimension the store enforces.
func (r *VectorRepository) Dimensions() int {
	return r.dims
}

// Insert stores a batch of records atomically. When the repository holds a
// pool the batch runs in its own transaction; with-tx repositories rely on
// the caller's transaction.
func (r *VectorRepository) Insert(ctx context.Context, ownerUserID string, records []domain.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	for i := range records {
		if err := domain.ValidateCollectionName(records[i].Collection); err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid collection name", err)
		}
		if len(records[i].Embedding) != r.dims {
			return domain.ErrDimensionMismatch
		}
	}

	if r.pool == nil {
		return r.insert(ctx, r.db, ownerUserID, records)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := r.insert(ctx, tx, ownerUserID, records); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *VectorRepository) insert(ctx context.Context, db dbtx, ownerUserID string, records []domain.EmbeddingRecord) error {
	seen := make(map[string]bool)
	for i := range records {
		name := records[i].Collection
		if seen[name] {
			continue
		}
		seen[name] = true
		_, err := db.Exec(ctx,
			`INSERT INTO collections (name, owner_user_id, created_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (name) DO NOTHING`,
			name, ownerUserID, time.Now().UTC(),
		)
		if err != nil {
			return err
		}
	}

	for i := range records {
		createdAt := records[i].CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := db.Exec(ctx,
			`INSERT INTO embedding_records
				(id, collection, document_id, chunk_index, title, content, embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8)`,
			records[i].ID,
			records[i].Collection,
			records[i].DocumentID,
			records[i].ChunkIndex,
			records[i].Title,
			records[i].Content,
			pgvector.NewVector(records[i].Embedding),
			createdAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Search returns the topK records across the given collections ranked by
// descending inner product. Unknown collections match no rows, so a query
// scoped to a collection that was never populated returns an empty result.
func (r *VectorRepository) Search(ctx context.Context, collections []string, vector []float32, topK int) ([]domain.ScoredRecord, error) {
	if len(vector) != r.dims {
		return nil, domain.ErrDimensionMismatch
	}
	if topK <= 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, collection, document_id, chunk_index, title, content, embedding, created_at,
		        (embedding <#> $1) * -1 AS score
		 FROM embedding_records
		 WHERE collection = ANY($2)
		 ORDER BY embedding <#> $1 ASC, seq ASC
		 LIMIT $3`,
		pgvector.NewVector(vector), collections, topK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.ScoredRecord
	for rows.Next() {
		var rec domain.EmbeddingRecord
		var embedding pgvector.Vector
		var score float32
		if err := rows.Scan(&rec.ID, &rec.Collection, &rec.DocumentID, &rec.ChunkIndex,
			&rec.Title, &rec.Content, &embedding, &rec.CreatedAt, &score); err != nil {
			return nil, err
		}
		rec.Embedding = embedding.Slice()
		results = append(results, domain.ScoredRecord{Record: rec, Score: score})
	}
	return results, rows.Err()
}

// DeleteDocument removes every record of the document from the collection.
func (r *VectorRepository) DeleteDocument(ctx context.Context, collection, documentID string) (int, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM embedding_records WHERE collection = $1 AND document_id = $2`,
		collection, documentID,
	)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// ListCollections returns all collections with record counts, oldest first.
func (r *VectorRepository) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	rows, err := r.db.Query(ctx,
		`SELECT c.name, c.owner_user_id, c.created_at, COUNT(e.id)
		 FROM collections c
		 LEFT JOIN embedding_records e ON e.collection = c.name
		 GROUP BY c.name, c.owner_user_id, c.created_at
		 ORDER BY c.created_at ASC, c.name ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collections []domain.Collection
	for rows.Next() {
		var c domain.Collection
		if err := rows.Scan(&c.Name, &c.OwnerUserID, &c.CreatedAt, &c.RecordCount); err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

var _ store.VectorStore = (*VectorRepository)(nil)
