package financials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/de-tools/ledger-atlas/pkg/models/domain"
	"github.com/de-tools/ledger-atlas/pkg/models/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var projectOne = domain.Entity{
	Kind:        domain.EntityKindProject,
	ID:          "P-1",
	BookingIDs:  []string{"B-1"},
	QuotationID: "Q-1",
}

func assertAmount(t *testing.T, expected string, actual decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(expected).Equal(actual), "%s: expected %s, got %s", field, expected, actual.String())
}

func expectAllLedgers(src *mockLedgerSource) {
	scope := []string{"P-1", "B-1"}
	src.On("ListInvoices", mock.Anything, scope).Return(sampleInvoices(), nil)
	src.On("ListBillingItems", mock.Anything).Return(sampleBillingItems(), nil)
	src.On("ListTransactions", mock.Anything, scope).Return(sampleTransactions(), nil)
	src.On("ListCollections", mock.Anything, scope).Return(sampleCollections(), nil)
	src.On("GetQuotation", mock.Anything, "Q-1").Return(sampleQuotation(), nil)
}

func TestOrchestrator_RefreshComputesTotals(t *testing.T) {
	src := new(mockLedgerSource)
	expectAllLedgers(src)

	o := NewOrchestrator(src, projectOne, WithClock(fixedClock))
	assert.Equal(t, domain.FinancialsStateIdle, o.Snapshot().State)

	snapshot, err := o.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.FinancialsStateReady, snapshot.State)
	assert.Equal(t, uint64(1), snapshot.Sequence)
	assert.False(t, snapshot.Partial)
	assert.Empty(t, snapshot.Warnings)
	require.NotNil(t, snapshot.RefreshedAt)
	assert.Equal(t, testNow, *snapshot.RefreshedAt)

	totals := snapshot.Totals
	assertAmount(t, "1000", totals.Revenue, "revenue")
	// bi-1 + bi-2 (booking) + virtual qi-2; qi-1 is realized by bi-4
	assertAmount(t, "800", totals.UnbilledRevenue, "unbilled revenue")
	assertAmount(t, "1800", totals.ProductionValue, "production value")
	assertAmount(t, "300", totals.Cost, "cost")
	assertAmount(t, "1500", totals.GrossProfit, "gross profit")
	assertAmount(t, "400", totals.Collected, "collected")
	assertAmount(t, "0", totals.PaidExpenses, "paid expenses")
	assertAmount(t, "400", totals.NetCashFlow, "net cash flow")

	var virtualIDs []string
	for _, item := range snapshot.BillingItems {
		if item.Virtual {
			virtualIDs = append(virtualIDs, item.ID)
		}
	}
	assert.Equal(t, []string{"virtual-quotation-qi-2"}, virtualIDs)
	assert.Len(t, snapshot.Expenses, 1)
	assert.Equal(t, snapshot, o.Snapshot())
	src.AssertExpectations(t)
}

func TestOrchestrator_LedgerFailureDegradesToWarning(t *testing.T) {
	src := new(mockLedgerSource)
	scope := []string{"P-1", "B-1"}
	src.On("ListInvoices", mock.Anything, scope).Return(nil, errors.New("ledger service invoices: unexpected status 502"))
	src.On("ListBillingItems", mock.Anything).Return(sampleBillingItems(), nil)
	src.On("ListTransactions", mock.Anything, scope).Return(sampleTransactions(), nil)
	src.On("ListCollections", mock.Anything, scope).Return(nil, errors.New("timeout"))
	src.On("GetQuotation", mock.Anything, "Q-1").Return(nil, errors.New("not found"))

	notifier := &recordingNotifier{}
	o := NewOrchestrator(src, projectOne, WithClock(fixedClock), WithNotifier(notifier))

	snapshot, err := o.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.FinancialsStateReady, snapshot.State)
	require.Len(t, snapshot.Warnings, 3)
	assert.Equal(t, domain.LedgerCollections, snapshot.Warnings[0].Ledger)
	assert.Equal(t, domain.LedgerInvoices, snapshot.Warnings[1].Ledger)
	assert.Equal(t, domain.LedgerQuotation, snapshot.Warnings[2].Ledger)
	assert.Equal(t, "P-1", snapshot.Warnings[0].EntityID)
	assert.Equal(t, snapshot.Warnings, notifier.Warnings())

	assertAmount(t, "0", snapshot.Totals.Revenue, "revenue")
	assertAmount(t, "0", snapshot.Totals.Collected, "collected")
	assertAmount(t, "700", snapshot.Totals.UnbilledRevenue, "unbilled revenue")
	assertAmount(t, "300", snapshot.Totals.Cost, "cost")
	assertAmount(t, "400", snapshot.Totals.GrossProfit, "gross profit")
}

func TestOrchestrator_WithoutEntityIDFetchesOnlyBillingItems(t *testing.T) {
	src := new(mockLedgerSource)
	src.On("ListBillingItems", mock.Anything).Return(sampleBillingItems(), nil)

	entity := domain.Entity{Kind: domain.EntityKindProject, BookingIDs: []string{"B-1"}, QuotationID: "Q-1"}
	o := NewOrchestrator(src, entity, WithClock(fixedClock))

	snapshot, err := o.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.FinancialsStateReady, snapshot.State)
	assert.True(t, snapshot.Partial)
	require.Len(t, snapshot.BillingItems, 1)
	assert.Equal(t, "bi-2", snapshot.BillingItems[0].ID)
	assertAmount(t, "200", snapshot.Totals.UnbilledRevenue, "unbilled revenue")

	src.AssertNotCalled(t, "ListInvoices", mock.Anything, mock.Anything)
	src.AssertNotCalled(t, "ListTransactions", mock.Anything, mock.Anything)
	src.AssertNotCalled(t, "ListCollections", mock.Anything, mock.Anything)
	src.AssertNotCalled(t, "GetQuotation", mock.Anything, mock.Anything)
}

func TestOrchestrator_StalePassIsDiscarded(t *testing.T) {
	src := new(mockLedgerSource)
	scope := []string{"P-1", "B-1"}
	started := make(chan struct{})

	src.On("ListBillingItems", mock.Anything).
		Run(func(args mock.Arguments) {
			close(started)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.Canceled).
		Once()
	src.On("ListBillingItems", mock.Anything).Return(sampleBillingItems(), nil)
	src.On("ListInvoices", mock.Anything, scope).Return(sampleInvoices(), nil)
	src.On("ListTransactions", mock.Anything, scope).Return(sampleTransactions(), nil)
	src.On("ListCollections", mock.Anything, scope).Return(sampleCollections(), nil)
	src.On("GetQuotation", mock.Anything, "Q-1").Return(sampleQuotation(), nil)

	o := NewOrchestrator(src, projectOne, WithClock(fixedClock))

	type outcome struct {
		snapshot domain.FinancialsSnapshot
		err      error
	}
	first := make(chan outcome, 1)
	go func() {
		s, err := o.Refresh(context.Background())
		first <- outcome{s, err}
	}()

	<-started
	assert.Equal(t, domain.FinancialsStateLoading, o.Snapshot().State)

	second, err := o.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Sequence)

	select {
	case res := <-first:
		assert.ErrorIs(t, res.err, ErrSuperseded)
	case <-time.After(5 * time.Second):
		t.Fatal("superseded pass did not return")
	}

	current := o.Snapshot()
	assert.Equal(t, uint64(2), current.Sequence)
	assert.Equal(t, domain.FinancialsStateReady, current.State)
	assertAmount(t, "800", current.Totals.UnbilledRevenue, "unbilled revenue")
}

func TestOrchestrator_CancelledPassPublishesNothing(t *testing.T) {
	src := new(mockLedgerSource)
	src.On("ListBillingItems", mock.Anything).Return(nil, context.Canceled)
	src.On("ListInvoices", mock.Anything, mock.Anything).Return(nil, context.Canceled)
	src.On("ListTransactions", mock.Anything, mock.Anything).Return(nil, context.Canceled)
	src.On("ListCollections", mock.Anything, mock.Anything).Return(nil, context.Canceled)
	src.On("GetQuotation", mock.Anything, mock.Anything).Return(nil, context.Canceled)

	notifier := &recordingNotifier{}
	o := NewOrchestrator(src, projectOne, WithNotifier(notifier))
	updates, unsubscribe := o.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Refresh(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.FinancialsStateIdle, o.Snapshot().State)
	assert.Empty(t, notifier.Warnings())
	assert.Empty(t, updates)
}

func TestOrchestrator_SetEntity(t *testing.T) {
	src := new(mockLedgerSource)
	expectAllLedgers(src)

	o := NewOrchestrator(src, projectOne, WithClock(fixedClock))

	first, err := o.SetEntity(context.Background(), projectOne)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.Sequence)

	// same identity with a different booking order does not refetch
	same := projectOne
	same.BookingIDs = []string{"B-1", "P-1"}
	again, err := o.SetEntity(context.Background(), same)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), again.Sequence)
	src.AssertNumberOfCalls(t, "ListBillingItems", 1)

	changed := projectOne
	changed.QuotationID = ""
	updated, err := o.SetEntity(context.Background(), changed)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), updated.Sequence)
	assert.Equal(t, "", o.Entity().QuotationID)
	src.AssertNumberOfCalls(t, "ListBillingItems", 2)
	src.AssertNumberOfCalls(t, "GetQuotation", 1)
}

func TestOrchestrator_SubscribeReceivesLatest(t *testing.T) {
	src := new(mockLedgerSource)
	expectAllLedgers(src)

	o := NewOrchestrator(src, projectOne, WithClock(fixedClock))
	updates, unsubscribe := o.Subscribe()

	_, err := o.Refresh(context.Background())
	require.NoError(t, err)
	_, err = o.Refresh(context.Background())
	require.NoError(t, err)

	latest := <-updates
	assert.Equal(t, uint64(2), latest.Sequence)
	assert.Equal(t, domain.FinancialsStateReady, latest.State)

	unsubscribe()
	unsubscribe()
	_, ok := <-updates
	assert.False(t, ok)
}

func TestFetchQuotation_Missing(t *testing.T) {
	src := new(mockLedgerSource)
	src.On("GetQuotation", mock.Anything, "Q-9").Return((*store.QuotationRecord)(nil), nil)

	q, err := fetchQuotation(context.Background(), src, "Q-9")
	assert.Nil(t, q)
	assert.Error(t, err)
}
