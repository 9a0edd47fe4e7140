package financials

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/de-tools/ledger-atlas/pkg/models/domain"
)

// Registry holds one orchestrator per entity, keyed by kind and id. Entities
// without a canonical id are keyed by their bookings instead.
type Registry struct {
	source LedgerSource
	opts   []Option

	mu            sync.Mutex
	orchestrators map[string]*Orchestrator
}

func NewRegistry(source LedgerSource, opts ...Option) *Registry {
	return &Registry{
		source:        source,
		opts:          opts,
		orchestrators: make(map[string]*Orchestrator),
	}
}

func (r *Registry) Get(entity domain.Entity) *Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := identityKey(entity)
	if o, ok := r.orchestrators[key]; ok {
		return o
	}
	o := NewOrchestrator(r.source, entity, r.opts...)
	r.orchestrators[key] = o
	return o
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orchestrators)
}

// Financials returns the entity's current financials, running a pass when the
// orchestrator is new or the entity's bookings or quotation changed.
func (r *Registry) Financials(ctx context.Context, entity domain.Entity) (domain.FinancialsSnapshot, error) {
	o := r.Get(entity)
	snapshot, err := o.SetEntity(ctx, entity)
	return settle(o, entity, snapshot, err)
}

// Refresh forces a new pass for the entity.
func (r *Registry) Refresh(ctx context.Context, entity domain.Entity) (domain.FinancialsSnapshot, error) {
	o := r.Get(entity)

	var (
		snapshot domain.FinancialsSnapshot
		err      error
	)
	if o.Entity().SameIdentity(entity) {
		snapshot, err = o.Refresh(ctx)
	} else {
		snapshot, err = o.SetEntity(ctx, entity)
	}
	return settle(o, entity, snapshot, err)
}

// settle answers a superseded pass with the orchestrator's current snapshot,
// provided that snapshot still describes the requested entity.
func settle(o *Orchestrator, entity domain.Entity, snapshot domain.FinancialsSnapshot, err error) (domain.FinancialsSnapshot, error) {
	if !errors.Is(err, ErrSuperseded) {
		return snapshot, err
	}
	current := o.Snapshot()
	if !current.Entity.SameIdentity(entity) {
		return domain.FinancialsSnapshot{}, err
	}
	return current, nil
}

// Portfolio computes a one-off portfolio pass that shares nothing with other callers.
func (r *Registry) Portfolio(ctx context.Context, entities []domain.Entity) (domain.PortfolioSnapshot, error) {
	return NewPortfolio(r.source, r.opts...).Compute(ctx, entities)
}

// identityKey names the slot of an entity in the registry and in a portfolio.
func identityKey(e domain.Entity) string {
	if e.HasID() {
		return e.Key()
	}
	ids := e.ScopeIDs()
	slices.Sort(ids)
	return e.Key() + "|" + strings.Join(ids, ",")
}
