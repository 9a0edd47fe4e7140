package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/de-tools/ledger-atlas/pkg/adapters"
	"github.com/de-tools/ledger-atlas/pkg/models/domain"
	"github.com/de-tools/ledger-atlas/pkg/models/store"
	"github.com/de-tools/ledger-atlas/pkg/services/financials"
	"github.com/rs/zerolog"
)

// PortfolioComputer is satisfied by *financials.Portfolio.
type PortfolioComputer interface {
	Compute(ctx context.Context, entities []domain.Entity) (domain.PortfolioSnapshot, error)
}

type SnapshotWriter interface {
	Save(ctx context.Context, snapshots []store.FinancialSnapshot) error
}

// Runner performs one portfolio recomputation and records the result.
type Runner struct {
	name      string
	entities  []domain.Entity
	portfolio PortfolioComputer
	snapshots SnapshotWriter
	clock     func() time.Time
}

func NewRunner(
	name string,
	entities []domain.Entity,
	portfolio PortfolioComputer,
	snapshots SnapshotWriter,
) *Runner {
	return &Runner{
		name:      name,
		entities:  entities,
		portfolio: portfolio,
		snapshots: snapshots,
		clock:     time.Now,
	}
}

func (r *Runner) Run(ctx context.Context) domain.WorkflowRun {
	logger := zerolog.Ctx(ctx).With().Str("workflow", r.name).Logger()

	run := domain.WorkflowRun{
		Name:      r.name,
		Status:    domain.WorkflowStatusRunning,
		StartedAt: r.clock().UTC(),
		Entities:  len(r.entities),
	}
	finish := func(status domain.WorkflowStatus, err error) domain.WorkflowRun {
		run.Status = status
		run.FinishedAt = r.clock().UTC()
		if err != nil {
			msg := err.Error()
			run.Error = &msg
		}
		return run
	}

	snapshot, err := r.portfolio.Compute(ctx, r.entities)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, financials.ErrSuperseded) {
			logger.Info().Err(err).Msg("portfolio recompute cancelled")
			return finish(domain.WorkflowStatusCancelled, err)
		}
		logger.Error().Err(err).Msg("portfolio recompute failed")
		return finish(domain.WorkflowStatusFailed, err)
	}
	run.Warnings = len(snapshot.Warnings)

	records := make([]store.FinancialSnapshot, 0, len(snapshot.Entries))
	for _, entry := range snapshot.Entries {
		records = append(records, adapters.MapSnapshotDomainToStore(
			entry.Entity,
			entry.Totals,
			snapshot.Sequence,
			!entry.Entity.HasID(),
			warningsFor(entry.Entity, snapshot.Warnings),
			snapshot.RefreshedAt,
		))
	}

	if r.snapshots != nil {
		if err := r.snapshots.Save(ctx, records); err != nil {
			logger.Error().Err(err).Msg("failed to store financial snapshots")
			return finish(domain.WorkflowStatusFailed, err)
		}
	}

	logger.Info().
		Int("entities", len(records)).
		Int("warnings", run.Warnings).
		Msg("portfolio recompute finished")
	return finish(domain.WorkflowStatusFinished, nil)
}

// warningsFor counts the warnings that affected an entity: its own and the
// shared ledger ones.
func warningsFor(entity domain.Entity, warnings []domain.LedgerWarning) int {
	n := 0
	for _, w := range warnings {
		if w.EntityID == "" || w.EntityID == entity.ID {
			n++
		}
	}
	return n
}
