package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archivist-ai/archivist/internal/domain"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx dbtx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, collection, title, format, status, chunk_count, content, storage_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		d.ID, d.Collection, d.Title, d.Format, d.Status, d.ChunkCount, d.Content, nullableString(d.StorageKey), d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var d domain.Document
	var storageKey pgtype.Text
	err := r.db.QueryRow(ctx,
		`SELECT id, collection, title, format, status, chunk_count, content, storage_key, created_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.Collection, &d.Title, &d.Format, &d.Status, &d.ChunkCount, &d.Content, &storageKey, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if storageKey.Valid {
		d.StorageKey = storageKey.String
	}
	return &d, nil
}

func (r *DocumentRepository) ListByCollection(ctx context.Context, collection string) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, collection, title, format, status, chunk_count, storage_key, created_at, updated_at
		 FROM documents WHERE collection = $1 ORDER BY created_at ASC`,
		collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []*domain.Document
	for rows.Next() {
		var d domain.Document
		var storageKey pgtype.Text
		if err := rows.Scan(&d.ID, &d.Collection, &d.Title, &d.Format, &d.Status, &d.ChunkCount, &storageKey, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if storageKey.Valid {
			d.StorageKey = storageKey.String
		}
		documents = append(documents, &d)
	}
	return documents, rows.Err()
}

func (r *DocumentRepository) MarkReady(ctx context.Context, id string, chunkCount int) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, chunk_count = $2, updated_at = $3 WHERE id = $4`,
		domain.DocumentStatusReady, chunkCount, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) MarkFailed(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, updated_at = $2 WHERE id = $3`,
		domain.DocumentStatusFailed, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// ClearContent drops the inline raw bytes once ingestion has finished and the
// blob lives in object storage.
func (r *DocumentRepository) ClearContent(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET content = NULL, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}
