package service

import (
	"context"

	"github.com/archivist-ai/archivist/internal/domain"
	"github.com/archivist-ai/archivist/internal/store"
)

// DocumentRepositoryInterface persists document metadata and inline content.
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByCollection(ctx context.Context, collection string) ([]*domain.Document, error)
	MarkReady(ctx context.Context, id string, chunkCount int) error
	MarkFailed(ctx context.Context, id string) error
	ClearContent(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// UserRepositoryInterface persists user accounts.
type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByName(ctx context.Context, name string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
}

// APIKeyRepositoryInterface persists hashed API credentials.
type APIKeyRepositoryInterface interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.APIKey, error)
	Revoke(ctx context.Context, id string) error
}

// IngestJobRepositoryInterface persists async ingestion jobs.
type IngestJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.IngestJob) error
	GetByID(ctx context.Context, id string) (*domain.IngestJob, error)
	ClaimPending(ctx context.Context, limit int) ([]*domain.IngestJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.IngestJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, id string) error
}

// TxRepositories exposes repositories bound to one transaction.
type TxRepositories interface {
	Documents() DocumentRepositoryInterface
	Vectors() store.VectorStore
	Jobs() IngestJobRepositoryInterface
}

// TxRunnerInterface runs a function inside a database transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type TxRunnerInterface interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
