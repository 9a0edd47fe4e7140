package adapters

import (
	"strings"
	"time"

	"github.com/de-tools/ledger-atlas/pkg/models/domain"
	"github.com/de-tools/ledger-atlas/pkg/models/store"
	"github.com/shopspring/decimal"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var expenseTransactionTypes = map[string]struct{}{
	"expense":         {},
	"expense_voucher": {},
}

// ParseAmount coerces a raw monetary field. Missing or malformed values are zero
// so one bad record never blocks the rest of a batch.
func ParseAmount(n store.Number) decimal.Decimal {
	if !n.IsSet() {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.Raw())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseOptionalAmount(n store.Number) *decimal.Decimal {
	if !n.IsSet() {
		return nil
	}
	d := ParseAmount(n)
	return &d
}

// firstAmount returns the first field that is present, coerced.
func firstAmount(fields ...store.Number) decimal.Decimal {
	for _, f := range fields {
		if f.IsSet() {
			return ParseAmount(f)
		}
	}
	return decimal.Zero
}

func ParseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func ownerID(projectNumber, contractNumber string) string {
	if p := strings.TrimSpace(projectNumber); p != "" {
		return p
	}
	return strings.TrimSpace(contractNumber)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func MapStoreInvoiceToDomain(r store.InvoiceRecord) domain.Invoice {
	return domain.Invoice{
		ID:               r.ID.String(),
		Number:           r.InvoiceNumber.String(),
		Amount:           firstAmount(r.TotalAmount, r.Amount),
		Currency:         r.Currency.String(),
		Status:           r.Status.String(),
		PaymentStatus:    r.PaymentStatus.String(),
		RemainingBalance: parseOptionalAmount(r.RemainingBalance),
		DueDate:          ParseTime(r.DueDate.String()),
		CreatedAt:        ParseTime(r.CreatedAt.String()),
		OwnerID:          ownerID(r.ProjectNumber.String(), r.ContractNumber.String()),
		BookingID:        strings.TrimSpace(r.BookingID.String()),
	}
}

func MapStoreInvoicesToDomain(records []store.InvoiceRecord) []domain.Invoice {
	invoices := make([]domain.Invoice, 0, len(records))
	for _, r := range records {
		invoices = append(invoices, MapStoreInvoiceToDomain(r))
	}
	return invoices
}

func MapStoreBillingItemToDomain(r store.BillingItemRecord) domain.BillingItem {
	return domain.BillingItem{
		ID:                    r.ID.String(),
		Description:           r.Description.String(),
		Amount:                ParseAmount(r.Amount),
		Currency:              r.Currency.String(),
		Status:                r.Status.String(),
		OwnerID:               ownerID(r.ProjectNumber.String(), r.ContractNumber.String()),
		BookingID:             strings.TrimSpace(r.BookingID.String()),
		Vendor:                r.Vendor.String(),
		SourceID:              r.SourceID.String(),
		SourceType:            domain.SourceType(strings.ToLower(strings.TrimSpace(r.SourceType.String()))),
		SourceQuotationItemID: r.SourceQuotationItemID.String(),
	}
}

func MapStoreBillingItemsToDomain(records []store.BillingItemRecord) []domain.BillingItem {
	items := make([]domain.BillingItem, 0, len(records))
	for _, r := range records {
		items = append(items, MapStoreBillingItemToDomain(r))
	}
	return items
}

// IsExpenseTransaction reports whether a transaction feed entry is an expense voucher.
func IsExpenseTransaction(r store.TransactionRecord) bool {
	_, ok := expenseTransactionTypes[strings.ToLower(strings.TrimSpace(r.TransactionType.String()))]
	return ok
}

func MapStoreTransactionToExpense(r store.TransactionRecord) domain.Expense {
	return domain.Expense{
		ID:            r.ID.String(),
		Number:        r.VoucherNumber.String(),
		Amount:        firstAmount(r.Amount, r.TotalAmount),
		Currency:      r.Currency.String(),
		Category:      firstNonEmpty(r.ExpenseCategory.String(), r.ExpenseType.String()),
		Vendor:        firstNonEmpty(r.Vendor.String(), r.VendorName.String()),
		Status:        r.Status.String(),
		PaymentStatus: r.PaymentStatus.String(),
		Billable:      bool(r.IsBillable),
		OwnerID:       ownerID(r.ProjectNumber.String(), r.ContractNumber.String()),
		BookingID:     strings.TrimSpace(r.BookingID.String()),
		CreatedAt:     ParseTime(r.CreatedAt.String()),
	}
}

// MapStoreTransactionsToExpenses keeps only expense vouchers from the generic feed.
func MapStoreTransactionsToExpenses(records []store.TransactionRecord) []domain.Expense {
	expenses := make([]domain.Expense, 0, len(records))
	for _, r := range records {
		if !IsExpenseTransaction(r) {
			continue
		}
		expenses = append(expenses, MapStoreTransactionToExpense(r))
	}
	return expenses
}

func MapStoreCollectionToDomain(r store.CollectionRecord) domain.Collection {
	return domain.Collection{
		ID:         r.ID.String(),
		Amount:     firstAmount(r.Amount, r.AmountReceived),
		Currency:   r.Currency.String(),
		OwnerID:    ownerID(r.ProjectNumber.String(), r.ContractNumber.String()),
		BookingID:  strings.TrimSpace(r.BookingID.String()),
		ReceivedAt: ParseTime(r.ReceivedAt.String()),
	}
}

func MapStoreCollectionsToDomain(records []store.CollectionRecord) []domain.Collection {
	collections := make([]domain.Collection, 0, len(records))
	for _, r := range records {
		collections = append(collections, MapStoreCollectionToDomain(r))
	}
	return collections
}

func MapStoreQuotationToDomain(r *store.QuotationRecord) *domain.Quotation {
	if r == nil {
		return nil
	}

	q := &domain.Quotation{
		ID:       r.ID.String(),
		Number:   r.QuotationNumber.String(),
		Currency: r.Currency.String(),
		Status:   r.Status.String(),
	}
	for _, c := range r.SellingPriceCategories {
		category := domain.QuotationCategory{Name: c.Name.String()}
		for _, item := range c.Items {
			category.Items = append(category.Items, mapQuotationItem(item, r.Currency.String()))
		}
		q.SellingPriceCategories = append(q.SellingPriceCategories, category)
	}
	return q
}

func mapQuotationItem(r store.QuotationItemRecord, currency string) domain.QuotationItem {
	quantity := decimal.NewFromInt(1)
	if r.Quantity.IsSet() {
		quantity = ParseAmount(r.Quantity)
	}
	unitPrice := ParseAmount(r.UnitPrice)

	amount := unitPrice.Mul(quantity)
	if r.Amount.IsSet() {
		amount = ParseAmount(r.Amount)
	}

	return domain.QuotationItem{
		ID:          r.ID.String(),
		Description: r.Description.String(),
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Amount:      amount,
		Currency:    firstNonEmpty(r.Currency.String(), currency),
	}
}
