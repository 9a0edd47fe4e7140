package financials

import (
	"context"
	"sync"

	"github.com/de-tools/ledger-atlas/pkg/models/domain"
	"github.com/de-tools/ledger-atlas/pkg/services/reconciliation"
	"github.com/rs/zerolog"
)

// Orchestrator keeps the reconciled financials of one entity up to date.
//
// State moves idle -> loading -> ready. A refresh while loading starts a new
// pass and cancels the previous one; the result of a pass is applied only if
// no newer pass has started since.
type Orchestrator struct {
	source LedgerSource
	opts   options

	mu          sync.Mutex
	entity      domain.Entity
	seq         uint64
	cancel      context.CancelFunc
	current     domain.FinancialsSnapshot
	subscribers map[int]chan domain.FinancialsSnapshot
	nextSubID   int
}

func NewOrchestrator(source LedgerSource, entity domain.Entity, opts ...Option) *Orchestrator {
	return &Orchestrator{
		source: source,
		opts:   newOptions(opts),
		entity: entity,
		current: domain.FinancialsSnapshot{
			Reconciliation: domain.Reconciliation{Entity: entity},
			State:          domain.FinancialsStateIdle,
		},
		subscribers: make(map[int]chan domain.FinancialsSnapshot),
	}
}

func (o *Orchestrator) Entity() domain.Entity {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.entity
}

// Snapshot returns the last applied result together with the current state.
func (o *Orchestrator) Snapshot() domain.FinancialsSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// SetEntity switches the orchestrator to a new entity description. A change of
// identity, or a first call on an idle orchestrator, starts a pass; otherwise
// the current snapshot is returned as is.
func (o *Orchestrator) SetEntity(ctx context.Context, entity domain.Entity) (domain.FinancialsSnapshot, error) {
	o.mu.Lock()
	if o.entity.SameIdentity(entity) && o.current.State != domain.FinancialsStateIdle {
		snapshot := o.current
		o.mu.Unlock()
		return snapshot, nil
	}
	o.entity = entity
	o.mu.Unlock()

	return o.Refresh(ctx)
}

// Refresh runs one fetch-merge-calculate pass. It returns ErrSuperseded when a
// newer pass started before this one finished.
func (o *Orchestrator) Refresh(ctx context.Context) (domain.FinancialsSnapshot, error) {
	o.mu.Lock()
	o.seq++
	seq := o.seq
	if o.cancel != nil {
		o.cancel()
	}
	passCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	entity := o.entity
	o.current.State = domain.FinancialsStateLoading
	o.mu.Unlock()
	defer cancel()

	logger := zerolog.Ctx(ctx).With().
		Str("entity", entity.Key()).
		Uint64("sequence", seq).
		Logger()
	logger.Debug().Msg("financials pass started")

	reconciled, result, err := o.compute(passCtx, entity)

	o.mu.Lock()
	defer o.mu.Unlock()

	if seq != o.seq {
		logger.Debug().Msg("discarding superseded financials pass")
		return domain.FinancialsSnapshot{}, ErrSuperseded
	}
	o.cancel = nil

	if err != nil {
		o.current.State = domain.FinancialsStateIdle
		if o.current.RefreshedAt != nil {
			o.current.State = domain.FinancialsStateReady
		}
		logger.Debug().Err(err).Msg("financials pass aborted")
		return domain.FinancialsSnapshot{}, err
	}

	refreshedAt := o.opts.clock().UTC()
	o.current = domain.FinancialsSnapshot{
		Reconciliation: reconciled,
		State:          domain.FinancialsStateReady,
		Sequence:       seq,
		Partial:        !entity.HasID(),
		RefreshedAt:    &refreshedAt,
		Warnings:       result.warnings,
	}

	notifyAll(ctx, o.opts.notifier, result.warnings)
	for _, ch := range o.subscribers {
		offer(ch, o.current)
	}

	logger.Debug().
		Int("warnings", len(result.warnings)).
		Bool("partial", o.current.Partial).
		Msg("financials pass applied")
	return o.current, nil
}

func (o *Orchestrator) compute(ctx context.Context, entity domain.Entity) (domain.Reconciliation, fetchResult, error) {
	req := fetchRequest{
		entityID:    entity.ID,
		scope:       entity.ScopeIDs(),
		quotationID: entity.QuotationID,
	}
	if !entity.HasID() {
		// Without a canonical id only the bulk billing-item ledger can be
		// attributed, through the entity's bookings.
		req = fetchRequest{entityID: entity.ID, billingOnly: true}
	}

	result, err := fetchLedgers(ctx, o.source, req)
	if err != nil {
		return domain.Reconciliation{}, fetchResult{}, err
	}

	ledgers := reconciliation.ScopeLedgers(entity, result.ledgers)
	return reconciliation.Reconcile(entity, ledgers, result.quotation, o.opts.clock()), result, nil
}

// Subscribe returns a channel receiving every applied snapshot. The channel
// holds only the latest snapshot; a slow reader skips intermediate ones.
func (o *Orchestrator) Subscribe() (<-chan domain.FinancialsSnapshot, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextSubID
	o.nextSubID++
	ch := make(chan domain.FinancialsSnapshot, 1)
	o.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.subscribers, id)
			close(ch)
		})
	}
}

func offer(ch chan domain.FinancialsSnapshot, snapshot domain.FinancialsSnapshot) {
	for {
		select {
		case ch <- snapshot:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
