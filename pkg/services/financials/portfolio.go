package financials

import (
	"context"
	"sync"

	"github.com/de-tools/ledger-atlas/pkg/models/domain"
	"github.com/de-tools/ledger-atlas/pkg/services/reconciliation"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Portfolio computes financials for a set of entities from one shared fetch
// of each ledger.
type Portfolio struct {
	source LedgerSource
	opts   options

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	current domain.PortfolioSnapshot
}

func NewPortfolio(source LedgerSource, opts ...Option) *Portfolio {
	return &Portfolio{
		source: source,
		opts:   newOptions(opts),
	}
}

func (p *Portfolio) Snapshot() domain.PortfolioSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Compute fetches the ledgers once for all entities and reconciles each entity
// against its own share of them. Entries follow the order of entities, with
// repeated entity keys dropped.
func (p *Portfolio) Compute(ctx context.Context, entities []domain.Entity) (domain.PortfolioSnapshot, error) {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	if p.cancel != nil {
		p.cancel()
	}
	passCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()
	defer cancel()

	logger := zerolog.Ctx(ctx).With().Uint64("sequence", seq).Logger()

	entries, warnings, err := p.compute(passCtx, uniqueEntities(entities))

	p.mu.Lock()
	defer p.mu.Unlock()

	if seq != p.seq {
		logger.Debug().Msg("discarding superseded portfolio pass")
		return domain.PortfolioSnapshot{}, ErrSuperseded
	}
	p.cancel = nil
	if err != nil {
		return domain.PortfolioSnapshot{}, err
	}

	p.current = domain.PortfolioSnapshot{
		Sequence:    seq,
		Entries:     entries,
		Warnings:    warnings,
		RefreshedAt: p.opts.clock().UTC(),
	}
	notifyAll(ctx, p.opts.notifier, warnings)

	logger.Debug().
		Int("entities", len(entries)).
		Int("warnings", len(warnings)).
		Msg("portfolio pass applied")
	return p.current, nil
}

func (p *Portfolio) compute(ctx context.Context, entities []domain.Entity) ([]domain.Reconciliation, []domain.LedgerWarning, error) {
	if len(entities) == 0 {
		return []domain.Reconciliation{}, nil, nil
	}

	// Entities without a canonical id only take part in the billing-item
	// fetch, as they would on their own.
	var scope []string
	reachable := false
	for _, e := range entities {
		if len(e.ScopeIDs()) > 0 {
			reachable = true
		}
		if e.HasID() {
			scope = append(scope, e.ScopeIDs()...)
		}
	}

	var (
		shared     fetchResult
		quotations map[string]*domain.Quotation
		qWarnings  []domain.LedgerWarning
	)
	g, gctx := errgroup.WithContext(ctx)
	if reachable {
		g.Go(func() error {
			var err error
			shared, err = fetchLedgers(gctx, p.source, fetchRequest{
				scope:       dedupe(scope),
				billingOnly: len(scope) == 0,
			})
			return err
		})
	}
	g.Go(func() error {
		var err error
		quotations, qWarnings, err = p.fetchQuotations(gctx, entities)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	asOf := p.opts.clock()
	entries := make([]domain.Reconciliation, len(entities))
	for i, e := range entities {
		var quotation *domain.Quotation
		if e.HasID() {
			quotation = quotations[e.QuotationID]
		}
		entries[i] = reconciliation.Reconcile(e, entityLedgers(e, shared.ledgers), quotation, asOf)
	}

	warnings := append(shared.warnings, qWarnings...)
	sortWarnings(warnings)
	return entries, warnings, nil
}

// entityLedgers filters the shared ledgers down to what a single-entity pass
// would see. Each entity is filtered on its own, so a record tied to a booking
// listed by two entities counts for both.
func entityLedgers(entity domain.Entity, shared domain.Ledgers) domain.Ledgers {
	if !entity.HasID() {
		shared = domain.Ledgers{BillingItems: shared.BillingItems}
	}
	return reconciliation.ScopeLedgers(entity, shared)
}

// fetchQuotations loads every distinct quotation once, with bounded concurrency.
func (p *Portfolio) fetchQuotations(
	ctx context.Context,
	entities []domain.Entity,
) (map[string]*domain.Quotation, []domain.LedgerWarning, error) {
	owners := make(map[string]string)
	var ids []string
	for _, e := range entities {
		if e.QuotationID == "" || !e.HasID() {
			continue
		}
		if _, ok := owners[e.QuotationID]; ok {
			continue
		}
		owners[e.QuotationID] = e.ID
		ids = append(ids, e.QuotationID)
	}

	var (
		mu         sync.Mutex
		quotations = make(map[string]*domain.Quotation, len(ids))
		warnings   []domain.LedgerWarning
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.quotationConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			q, err := fetchQuotation(gctx, p.source, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				warnings = append(warnings, ledgerWarning(domain.LedgerQuotation, owners[id], err))
				return nil
			}
			quotations[id] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return quotations, warnings, nil
}

func uniqueEntities(entities []domain.Entity) []domain.Entity {
	seen := make(map[string]struct{}, len(entities))
	out := make([]domain.Entity, 0, len(entities))
	for _, e := range entities {
		key := identityKey(e)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
