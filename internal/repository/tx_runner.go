package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archivist-ai/archivist/internal/service"
	"github.com/archivist-ai/archivist/internal/store"
)

// TxRunner provides transactional repositories using a pgx pool.
type TxRunner struct {
	pool *pgxpool.Pool
	dims int
}

func NewTxRunner(pool *pgxpool.Pool, dims int) *TxRunner {
	return &TxRunner{pool: pool, dims: dims}
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	repos := &txRepos{tx: tx, dims: r.dims}
	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

type txRepos struct {
	tx   pgx.Tx
	dims int
}

func (r *txRepos) Documents() service.DocumentRepositoryInterface {
	return NewDocumentRepositoryWithTx(r.tx)
}

func (r *txRepos) Vectors() store.VectorStore {
	return NewVectorRepositoryWithTx(r.tx, r.dims)
}

func (r *txRepos) Jobs() service.IngestJobRepositoryInterface {
	return NewIngestJobRepositoryWithTx(r.tx)
}
