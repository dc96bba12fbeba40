package postgres

import (
	"context"

	"airtime/internal/domain/sim"
	"airtime/internal/store/repositories"

	"github.com/jackc/pgx/v5"
)

const simColumns = `id, operator_short, backend_id, balance, created_at, updated_at`

// simRepository implements SIMRepository
type simRepository struct {
	q querier
}

// NewSIMRepository creates a new SIM repository
func NewSIMRepository(q querier) repositories.SIMRepository {
	return &simRepository{q: q}
}

// Save inserts a new SIM or updates an existing one
func (r *simRepository) Save(ctx context.Context, s *sim.SIM) error {
	if s.ID == 0 {
		return r.q.QueryRow(ctx, `
			INSERT INTO sims (operator_short, backend_id, balance, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			s.OperatorName, s.BackendID, s.Balance, s.CreatedAt, s.UpdatedAt).Scan(&s.ID)
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE sims
		SET operator_short = $1, backend_id = $2, balance = $3, updated_at = now()
		WHERE id = $4`,
		s.OperatorName, s.BackendID, s.Balance, s.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *simRepository) FindByID(ctx context.Context, id int64) (*sim.SIM, error) {
	row := r.q.QueryRow(ctx, `SELECT `+simColumns+` FROM sims WHERE id = $1`, id)
	s, err := scanSIM(row)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

func (r *simRepository) FindAll(ctx context.Context) ([]*sim.SIM, error) {
	rows, err := r.q.Query(ctx, `SELECT `+simColumns+` FROM sims ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return scanSIMs(rows)
}

func (r *simRepository) FindByOperator(ctx context.Context, operatorName string) ([]*sim.SIM, error) {
	rows, err := r.q.Query(ctx, `SELECT `+simColumns+` FROM sims WHERE operator_short = $1 ORDER BY id`, operatorName)
	if err != nil {
		return nil, err
	}
	return scanSIMs(rows)
}

// UpdateBalance records the latest reading; last write wins.
func (r *simRepository) UpdateBalance(ctx context.Context, id int64, balance string) error {
	tag, err := r.q.Exec(ctx, `UPDATE sims SET balance = $1, updated_at = now() WHERE id = $2`, balance, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func scanSIM(row pgx.Row) (*sim.SIM, error) {
	var s sim.SIM
	if err := row.Scan(&s.ID, &s.OperatorName, &s.BackendID, &s.Balance, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSIMs(rows pgx.Rows) ([]*sim.SIM, error) {
	defer rows.Close()
	var out []*sim.SIM
	for rows.Next() {
		s, err := scanSIM(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
