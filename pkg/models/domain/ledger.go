package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SourceType string

const (
	SourceTypeQuotationItem   SourceType = "quotation_item"
	SourceTypeBillableExpense SourceType = "billable_expense"
)

const (
	BillingStatusUnbilled = "unbilled"
	BillingStatusBilled   = "billed"
)

// BillingItem is an atomic chargeable line. Amount is denominated in Currency.
type BillingItem struct {
	ID                    string
	Description           string
	Amount                decimal.Decimal
	Currency              string
	Status                string
	OwnerID               string // project or contract number
	BookingID             string
	Vendor                string
	SourceID              string
	SourceType            SourceType
	SourceQuotationItemID string
	Virtual               bool
}

// OriginID is the identifier of the record the item was derived from.
func (b BillingItem) OriginID() string {
	if b.SourceQuotationItemID != "" {
		return b.SourceQuotationItemID
	}
	return b.SourceID
}

type Invoice struct {
	ID               string
	Number           string
	Amount           decimal.Decimal
	Currency         string
	Status           string
	PaymentStatus    string
	RemainingBalance *decimal.Decimal
	DueDate          *time.Time
	CreatedAt        *time.Time
	OwnerID          string
	BookingID        string
}

// Outstanding is the remaining balance, falling back to the full amount.
func (i Invoice) Outstanding() decimal.Decimal {
	if i.RemainingBalance != nil {
		return *i.RemainingBalance
	}
	return i.Amount
}

type Expense struct {
	ID            string
	Number        string
	Amount        decimal.Decimal
	Currency      string
	Category      string
	Vendor        string
	Status        string
	PaymentStatus string
	Billable      bool
	OwnerID       string
	BookingID     string
	CreatedAt     *time.Time
}

type Collection struct {
	ID         string
	Amount     decimal.Decimal
	Currency   string
	OwnerID    string
	BookingID  string
	ReceivedAt *time.Time
}

type QuotationItem struct {
	ID          string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
	Currency    string
}

type QuotationCategory struct {
	Name  string
	Items []QuotationItem
}

type Quotation struct {
	ID                     string
	Number                 string
	Currency               string
	Status                 string
	SellingPriceCategories []QuotationCategory
}

// Ledgers is one immutable snapshot of the four ledgers for a computation pass.
type Ledgers struct {
	Invoices     []Invoice
	BillingItems []BillingItem
	Expenses     []Expense
	Collections  []Collection
}

type LedgerName string

const (
	LedgerInvoices     LedgerName = "invoices"
	LedgerBillingItems LedgerName = "billing_items"
	LedgerExpenses     LedgerName = "expenses"
	LedgerCollections  LedgerName = "collections"
	LedgerQuotation    LedgerName = "quotation"
)

// LedgerWarning records a ledger that was unavailable and treated as empty.
type LedgerWarning struct {
	Ledger   LedgerName
	EntityID string
	Message  string
}
