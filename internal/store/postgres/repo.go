package postgres

import (
	"context"
	"errors"

	"airtime/internal/store/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so each repository
// is written once and reused inside units of work.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{db: db} }

// DB exposes the pool for health checks and migrations.
func (r *Repo) DB() *pgxpool.Pool { return r.db }

func (r *Repo) SIMs() repositories.SIMRepository { return &simRepository{q: r.db} }

func (r *Repo) Transactions() repositories.TransactionRepository {
	return &transactionRepository{q: r.db}
}

func (r *Repo) Notifications() repositories.NotificationRepository {
	return &notificationRepository{q: r.db}
}

func (r *Repo) UnitOfWork() repositories.UnitOfWork { return NewUnitOfWork(r.db) }

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repositories.ErrNotFound
	}
	return err
}

// exists tells an UPDATE that matched nothing because of its guard apart
// from one that matched nothing because the row is gone.
func exists(ctx context.Context, q querier, table string, id int64) (bool, error) {
	var ok bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}
