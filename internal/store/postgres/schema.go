package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const pendingTransferIndex = "airtime_transactions_one_pending"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS sims (
		id             BIGSERIAL PRIMARY KEY,
		operator_short TEXT NOT NULL,
		backend_id     TEXT NOT NULL,
		balance        TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS sims_operator_short ON sims (operator_short)`,
	`CREATE TABLE IF NOT EXISTS airtime_transactions (
		id             BIGSERIAL PRIMARY KEY,
		kind           TEXT NOT NULL CHECK (kind IN ('transfer', 'recharge')),
		reference      TEXT NOT NULL UNIQUE,
		sim_id         BIGINT NOT NULL REFERENCES sims (id),
		operator_short TEXT NOT NULL,
		amount         BIGINT NOT NULL CHECK (amount > 0),
		destination    TEXT,
		code           TEXT,
		result         CHAR(1) NOT NULL DEFAULT 'P' CHECK (result IN ('P', 'S', 'F', 'U')),
		initiated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// at most one pending transfer per operator
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + pendingTransferIndex + `
		ON airtime_transactions (operator_short) WHERE kind = 'transfer' AND result = 'P'`,
	`CREATE TABLE IF NOT EXISTS operator_notifications (
		id             BIGSERIAL PRIMARY KEY,
		sim_id         BIGINT NOT NULL REFERENCES sims (id),
		identity       TEXT NOT NULL,
		text           TEXT NOT NULL,
		type           CHAR(1) NOT NULL CHECK (type IN ('U', 'R', 'S', 'F', 'B')),
		transaction_id BIGINT REFERENCES airtime_transactions (id),
		received_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	log.Info().Int("statements", len(migrations)).Msg("schema up to date")
	return nil
}
