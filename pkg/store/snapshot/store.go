package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/de-tools/ledger-atlas/pkg/models/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("no financial snapshot recorded")

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// Store keeps the history of computed totals per entity.
type Store interface {
	Save(ctx context.Context, snapshots []store.FinancialSnapshot) error
	Latest(ctx context.Context, kind, entityID string) (*store.FinancialSnapshot, error)
	History(ctx context.Context, kind, entityID string, limit int) ([]store.FinancialSnapshot, error)
}

type sqlStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &sqlStore{db: db}, nil
}

const insertSnapshot = `
	INSERT INTO financial_snapshots (
		id, entity_kind, entity_id, sequence,
		revenue, unbilled_revenue, production_value, cost, collected,
		paid_expenses, net_cash_flow, gross_profit, profit_margin,
		open_invoices_amount, overdue_invoices_amount,
		partial, warnings, computed_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
	)`

const selectSnapshotColumns = `
	SELECT id, entity_kind, entity_id, sequence,
		revenue, unbilled_revenue, production_value, cost, collected,
		paid_expenses, net_cash_flow, gross_profit, profit_margin,
		open_invoices_amount, overdue_invoices_amount,
		partial, warnings, computed_at
	FROM financial_snapshots`

// Save writes all snapshots atomically. Snapshots without an id get a new one
// in place.
func (s *sqlStore) Save(ctx context.Context, snapshots []store.FinancialSnapshot) (err error) {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				zerolog.Ctx(ctx).Warn().Err(rbErr).Msg("failed to roll back snapshot transaction")
			}
			return
		}
		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("commit snapshots: %w", err)
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertSnapshot)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range snapshots {
		snap := &snapshots[i]
		if snap.ID == "" {
			snap.ID = uuid.NewString()
		}
		_, err = stmt.ExecContext(ctx,
			snap.ID,
			snap.EntityKind,
			snap.EntityID,
			int64(snap.Sequence),
			snap.Revenue,
			snap.UnbilledRevenue,
			snap.ProductionValue,
			snap.Cost,
			snap.Collected,
			snap.PaidExpenses,
			snap.NetCashFlow,
			snap.GrossProfit,
			snap.ProfitMargin,
			snap.OpenInvoicesAmount,
			snap.OverdueInvoicesAmount,
			snap.Partial,
			snap.Warnings,
			snap.ComputedAt,
		)
		if err != nil {
			return fmt.Errorf("insert snapshot %s/%s: %w", snap.EntityKind, snap.EntityID, err)
		}
	}
	return nil
}

func (s *sqlStore) Latest(ctx context.Context, kind, entityID string) (*store.FinancialSnapshot, error) {
	query := selectSnapshotColumns + `
		WHERE entity_kind = $1 AND entity_id = $2
		ORDER BY computed_at DESC, sequence DESC
		LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, kind, entityID)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	return &snap, nil
}

// History returns the newest snapshots first. A non-positive limit selects
// the default page size.
func (s *sqlStore) History(ctx context.Context, kind, entityID string, limit int) ([]store.FinancialSnapshot, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	query := selectSnapshotColumns + `
		WHERE entity_kind = $1 AND entity_id = $2
		ORDER BY computed_at DESC, sequence DESC
		LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, kind, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshot history: %w", err)
	}
	defer rows.Close()

	snapshots := make([]store.FinancialSnapshot, 0)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snapshots, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (store.FinancialSnapshot, error) {
	var (
		snap     store.FinancialSnapshot
		sequence int64
	)
	err := row.Scan(
		&snap.ID,
		&snap.EntityKind,
		&snap.EntityID,
		&sequence,
		&snap.Revenue,
		&snap.UnbilledRevenue,
		&snap.ProductionValue,
		&snap.Cost,
		&snap.Collected,
		&snap.PaidExpenses,
		&snap.NetCashFlow,
		&snap.GrossProfit,
		&snap.ProfitMargin,
		&snap.OpenInvoicesAmount,
		&snap.OverdueInvoicesAmount,
		&snap.Partial,
		&snap.Warnings,
		&snap.ComputedAt,
	)
	if err != nil {
		return store.FinancialSnapshot{}, err
	}
	snap.Sequence = uint64(sequence)
	snap.ComputedAt = snap.ComputedAt.UTC()
	return snap, nil
}
