package financials

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/de-tools/ledger-atlas/pkg/adapters"
	"github.com/de-tools/ledger-atlas/pkg/models/domain"
	"github.com/de-tools/ledger-atlas/pkg/models/store"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrSuperseded is returned by a pass whose result was discarded because a
// newer pass started for the same orchestrator.
var ErrSuperseded = errors.New("financials pass superseded by a newer refresh")

// LedgerSource is the remote ledger service as seen by the orchestrators.
type LedgerSource interface {
	ListInvoices(ctx context.Context, entityIDs []string) ([]store.InvoiceRecord, error)
	ListBillingItems(ctx context.Context) ([]store.BillingItemRecord, error)
	ListTransactions(ctx context.Context, entityIDs []string) ([]store.TransactionRecord, error)
	ListCollections(ctx context.Context, entityIDs []string) ([]store.CollectionRecord, error)
	GetQuotation(ctx context.Context, id string) (*store.QuotationRecord, error)
}

type options struct {
	notifier             Notifier
	clock                func() time.Time
	quotationConcurrency int
}

type Option func(*options)

func WithNotifier(n Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithClock overrides the reference time used for overdue detection.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func WithQuotationConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.quotationConcurrency = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		notifier:             LogNotifier{},
		clock:                time.Now,
		quotationConcurrency: 4,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type fetchRequest struct {
	entityID    string
	scope       []string
	quotationID string
	billingOnly bool
}

type fetchResult struct {
	ledgers   domain.Ledgers
	quotation *domain.Quotation
	warnings  []domain.LedgerWarning
}

// fetchLedgers issues the ledger requests concurrently and waits for all of
// them. A failing ledger is recorded as a warning and left empty; only
// cancellation of ctx fails the fetch.
func fetchLedgers(ctx context.Context, src LedgerSource, req fetchRequest) (fetchResult, error) {
	var (
		result fetchResult
		mu     sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	warn := func(ledger domain.LedgerName, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		mu.Lock()
		result.warnings = append(result.warnings, ledgerWarning(ledger, req.entityID, err))
		mu.Unlock()
		return nil
	}

	g.Go(func() error {
		records, err := src.ListBillingItems(gctx)
		if err != nil {
			return warn(domain.LedgerBillingItems, err)
		}
		result.ledgers.BillingItems = adapters.MapStoreBillingItemsToDomain(records)
		return nil
	})

	if !req.billingOnly {
		g.Go(func() error {
			records, err := src.ListInvoices(gctx, req.scope)
			if err != nil {
				return warn(domain.LedgerInvoices, err)
			}
			result.ledgers.Invoices = adapters.MapStoreInvoicesToDomain(records)
			return nil
		})
		g.Go(func() error {
			records, err := src.ListTransactions(gctx, req.scope)
			if err != nil {
				return warn(domain.LedgerExpenses, err)
			}
			result.ledgers.Expenses = adapters.MapStoreTransactionsToExpenses(records)
			return nil
		})
		g.Go(func() error {
			records, err := src.ListCollections(gctx, req.scope)
			if err != nil {
				return warn(domain.LedgerCollections, err)
			}
			result.ledgers.Collections = adapters.MapStoreCollectionsToDomain(records)
			return nil
		})
	}

	if req.quotationID != "" {
		g.Go(func() error {
			q, err := fetchQuotation(gctx, src, req.quotationID)
			if err != nil {
				return warn(domain.LedgerQuotation, err)
			}
			result.quotation = q
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fetchResult{}, err
	}
	sortWarnings(result.warnings)
	return result, nil
}

func fetchQuotation(ctx context.Context, src LedgerSource, id string) (*domain.Quotation, error) {
	record, err := src.GetQuotation(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("quotation %s not found", id)
	}
	return adapters.MapStoreQuotationToDomain(record), nil
}

func ledgerWarning(ledger domain.LedgerName, entityID string, err error) domain.LedgerWarning {
	return domain.LedgerWarning{
		Ledger:   ledger,
		EntityID: entityID,
		Message:  err.Error(),
	}
}

func sortWarnings(warnings []domain.LedgerWarning) {
	slices.SortStableFunc(warnings, func(a, b domain.LedgerWarning) int {
		if c := strings.Compare(string(a.Ledger), string(b.Ledger)); c != 0 {
			return c
		}
		return strings.Compare(a.EntityID, b.EntityID)
	})
}

// Notifier is the host application's notification surface for unavailable ledgers.
type Notifier interface {
	LedgerUnavailable(ctx context.Context, warning domain.LedgerWarning)
}

// LogNotifier reports warnings through the logger carried by the context.
type LogNotifier struct{}

func (LogNotifier) LedgerUnavailable(ctx context.Context, warning domain.LedgerWarning) {
	zerolog.Ctx(ctx).Warn().
		Str("ledger", string(warning.Ledger)).
		Str("entity_id", warning.EntityID).
		Str("reason", warning.Message).
		Msg("ledger unavailable, treating as empty")
}

func notifyAll(ctx context.Context, n Notifier, warnings []domain.LedgerWarning) {
	for _, w := range warnings {
		n.LedgerUnavailable(ctx, w)
	}
}
