package postgres

import (
	"context"
	"errors"

	"airtime/internal/domain/transaction"
	"airtime/internal/store/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const transferColumns = `id, reference, sim_id, operator_short, amount, initiated_at, result, COALESCE(destination, '')`

// transactionRepository implements TransactionRepository
type transactionRepository struct {
	q querier
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(q querier) repositories.TransactionRepository {
	return &transactionRepository{q: q}
}

// CreateTransfer inserts a pending transfer. The partial unique index turns a
// second pending transfer on the same operator into ErrPendingTransferExists.
func (r *transactionRepository) CreateTransfer(ctx context.Context, t *transaction.Transfer) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO airtime_transactions (kind, reference, sim_id, operator_short, amount, destination, result, initiated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		string(transaction.KindTransfer), t.Reference, t.SIMID, t.OperatorName, t.Amount,
		t.Destination, string(t.Result), t.Initiated).Scan(&t.ID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == pendingTransferIndex {
		return repositories.ErrPendingTransferExists
	}
	return err
}

func (r *transactionRepository) CreateRecharge(ctx context.Context, rc *transaction.Recharge) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO airtime_transactions (kind, reference, sim_id, operator_short, amount, code, result, initiated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		string(transaction.KindRecharge), rc.Reference, rc.SIMID, rc.OperatorName, rc.Amount,
		rc.Code, string(rc.Result), rc.Initiated).Scan(&rc.ID)
}

func (r *transactionRepository) FindTransferByID(ctx context.Context, id int64) (*transaction.Transfer, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+transferColumns+`
		FROM airtime_transactions
		WHERE id = $1 AND kind = 'transfer'`, id)
	t, err := scanTransfer(row)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (r *transactionRepository) FindPendingTransfers(ctx context.Context, operatorName string) ([]*transaction.Transfer, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+transferColumns+`
		FROM airtime_transactions
		WHERE kind = 'transfer' AND result = 'P' AND operator_short = $1
		ORDER BY id`, operatorName)
	if err != nil {
		return nil, err
	}
	return scanTransfers(rows)
}

func (r *transactionRepository) ListTransfers(ctx context.Context, limit, offset int) ([]*transaction.Transfer, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+transferColumns+`
		FROM airtime_transactions
		WHERE kind = 'transfer'
		ORDER BY id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanTransfers(rows)
}

// SetResult only moves pending rows; anything else is ErrConflict.
func (r *transactionRepository) SetResult(ctx context.Context, id int64, result transaction.Result) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE airtime_transactions
		SET result = $1
		WHERE id = $2 AND result = 'P'`, string(result), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	ok, err := exists(ctx, r.q, "airtime_transactions", id)
	if err != nil {
		return err
	}
	if !ok {
		return repositories.ErrNotFound
	}
	return repositories.ErrConflict
}

func scanTransfer(row pgx.Row) (*transaction.Transfer, error) {
	var t transaction.Transfer
	var result string
	err := row.Scan(&t.ID, &t.Reference, &t.SIMID, &t.OperatorName, &t.Amount, &t.Initiated, &result, &t.Destination)
	if err != nil {
		return nil, err
	}
	t.Result = transaction.Result(result)
	return &t, nil
}

func scanTransfers(rows pgx.Rows) ([]*transaction.Transfer, error) {
	defer rows.Close()
	var out []*transaction.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
