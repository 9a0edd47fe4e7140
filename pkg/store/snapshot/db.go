package snapshot

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const SnapshotsTableSchema = `
	CREATE TABLE IF NOT EXISTS financial_snapshots (
		id UUID PRIMARY KEY,
		entity_kind VARCHAR(32) NOT NULL,
		entity_id VARCHAR(128) NOT NULL,
		sequence BIGINT NOT NULL,
		revenue NUMERIC(20, 4) NOT NULL,
		unbilled_revenue NUMERIC(20, 4) NOT NULL,
		production_value NUMERIC(20, 4) NOT NULL,
		cost NUMERIC(20, 4) NOT NULL,
		collected NUMERIC(20, 4) NOT NULL,
		paid_expenses NUMERIC(20, 4) NOT NULL,
		net_cash_flow NUMERIC(20, 4) NOT NULL,
		gross_profit NUMERIC(20, 4) NOT NULL,
		profit_margin NUMERIC(20, 4) NOT NULL,
		open_invoices_amount NUMERIC(20, 4) NOT NULL,
		overdue_invoices_amount NUMERIC(20, 4) NOT NULL,
		partial BOOLEAN NOT NULL DEFAULT FALSE,
		warnings INTEGER NOT NULL DEFAULT 0,
		computed_at TIMESTAMPTZ NOT NULL
	);
`

const SnapshotsEntityIndex = `
	CREATE INDEX IF NOT EXISTS financial_snapshots_entity_idx
	ON financial_snapshots (entity_kind, entity_id, computed_at DESC);
`

var bootQueries = []string{
	SnapshotsTableSchema,
	SnapshotsEntityIndex,
}

type Settings struct {
	DSN string
}

// NewDB opens a Postgres connection through the pgx driver and creates the
// snapshot schema when missing.
func NewDB(ctx context.Context, settings Settings) (*sql.DB, error) {
	if settings.DSN == "" {
		return nil, fmt.Errorf("snapshot database dsn is required")
	}

	db, err := sql.Open("pgx", settings.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to snapshot database: %w", err)
	}
	if err := Boot(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func Boot(ctx context.Context, db *sql.DB) error {
	for _, query := range bootQueries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to boot snapshot schema: %w", err)
		}
	}
	return nil
}
