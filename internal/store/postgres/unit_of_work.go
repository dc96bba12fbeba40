package postgres

import (
	"context"
	"errors"

	"airtime/internal/store/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// unitOfWork implements UnitOfWork interface
type unitOfWork struct {
	db *pgxpool.Pool
}

// NewUnitOfWork creates a new unit of work
func NewUnitOfWork(db *pgxpool.Pool) repositories.UnitOfWork {
	return &unitOfWork{db: db}
}

// Begin starts a new transaction
func (uow *unitOfWork) Begin(ctx context.Context) (repositories.Transaction, error) {
	tx, err := uow.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	return &pgTransaction{tx: tx}, nil
}

// pgTransaction implements Transaction interface
type pgTransaction struct {
	tx pgx.Tx
}

func (t *pgTransaction) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback is safe to defer after Commit.
func (t *pgTransaction) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func (t *pgTransaction) TransactionRepository() repositories.TransactionRepository {
	return &transactionRepository{q: t.tx}
}

func (t *pgTransaction) NotificationRepository() repositories.NotificationRepository {
	return &notificationRepository{q: t.tx}
}
