package financials

import (
	"context"
	"sync"
	"time"

	"github.com/de-tools/ledger-atlas/pkg/models/domain"
	"github.com/de-tools/ledger-atlas/pkg/models/store"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return testNow
}

type mockLedgerSource struct {
	mock.Mock
}

func (m *mockLedgerSource) ListInvoices(ctx context.Context, entityIDs []string) ([]store.InvoiceRecord, error) {
	args := m.Called(ctx, entityIDs)
	records, _ := args.Get(0).([]store.InvoiceRecord)
	return records, args.Error(1)
}

func (m *mockLedgerSource) ListBillingItems(ctx context.Context) ([]store.BillingItemRecord, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]store.BillingItemRecord)
	return records, args.Error(1)
}

func (m *mockLedgerSource) ListTransactions(ctx context.Context, entityIDs []string) ([]store.TransactionRecord, error) {
	args := m.Called(ctx, entityIDs)
	records, _ := args.Get(0).([]store.TransactionRecord)
	return records, args.Error(1)
}

func (m *mockLedgerSource) ListCollections(ctx context.Context, entityIDs []string) ([]store.CollectionRecord, error) {
	args := m.Called(ctx, entityIDs)
	records, _ := args.Get(0).([]store.CollectionRecord)
	return records, args.Error(1)
}

func (m *mockLedgerSource) GetQuotation(ctx context.Context, id string) (*store.QuotationRecord, error) {
	args := m.Called(ctx, id)
	q, _ := args.Get(0).(*store.QuotationRecord)
	return q, args.Error(1)
}

type recordingNotifier struct {
	mu       sync.Mutex
	warnings []domain.LedgerWarning
}

func (n *recordingNotifier) LedgerUnavailable(_ context.Context, w domain.LedgerWarning) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warnings = append(n.warnings, w)
}

func (n *recordingNotifier) Warnings() []domain.LedgerWarning {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.LedgerWarning(nil), n.warnings...)
}

func num(v string) store.Number {
	return store.NewNumber(v)
}

func sampleInvoices() []store.InvoiceRecord {
	return []store.InvoiceRecord{
		{ID: "inv-1", TotalAmount: num("1000"), Status: "paid", ProjectNumber: "P-1"},
	}
}

func sampleBillingItems() []store.BillingItemRecord {
	return []store.BillingItemRecord{
		{ID: "bi-1", Amount: num("500"), Status: "unbilled", ProjectNumber: "P-1"},
		{ID: "bi-2", Amount: num("200"), Status: "Unbilled", BookingID: "B-1"},
		{ID: "bi-3", Amount: num("999"), Status: "unbilled", ProjectNumber: "P-2"},
		{ID: "bi-4", Amount: num("100"), Status: "billed", ProjectNumber: "P-1", SourceQuotationItemID: "qi-1"},
	}
}

func sampleTransactions() []store.TransactionRecord {
	return []store.TransactionRecord{
		{ID: "t-1", TransactionType: "expense_voucher", Amount: num("300"), Status: "approved", ProjectNumber: "P-1"},
		{ID: "t-2", TransactionType: "income", Amount: num("5000"), Status: "approved", ProjectNumber: "P-1"},
	}
}

func sampleCollections() []store.CollectionRecord {
	return []store.CollectionRecord{
		{ID: "c-1", AmountReceived: num("400"), ProjectNumber: "P-1"},
	}
}

func sampleQuotation() *store.QuotationRecord {
	return &store.QuotationRecord{
		ID: "Q-1",
		SellingPriceCategories: []store.QuotationCategoryRecord{{
			Name: "Freight",
			Items: []store.QuotationItemRecord{
				{ID: "qi-1", Amount: num("100")},
				{ID: "qi-2", Quantity: num("2"), UnitPrice: num("50")},
			},
		}},
	}
}
