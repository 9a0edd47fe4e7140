package api

import "time"

type Entity struct {
	Kind        string   `json:"kind"`
	ID          string   `json:"id"`
	BookingIDs  []string `json:"bookings,omitempty"`
	QuotationID string   `json:"quotation_id,omitempty"`
}

type FinancialTotals struct {
	Revenue               float64 `json:"revenue"`
	UnbilledRevenue       float64 `json:"unbilled_revenue"`
	ProductionValue       float64 `json:"production_value"`
	Cost                  float64 `json:"cost"`
	Collected             float64 `json:"collected"`
	PaidExpenses          float64 `json:"paid_expenses"`
	NetCashFlow           float64 `json:"net_cash_flow"`
	GrossProfit           float64 `json:"gross_profit"`
	ProfitMargin          float64 `json:"profit_margin"`
	OpenInvoicesAmount    float64 `json:"open_invoices_amount"`
	OverdueInvoicesAmount float64 `json:"overdue_invoices_amount"`
}

type BillingItem struct {
	ID                    string  `json:"id"`
	Description           string  `json:"description,omitempty"`
	Amount                float64 `json:"amount"`
	Currency              string  `json:"currency"`
	Status                string  `json:"status"`
	OwnerID               string  `json:"owner_id,omitempty"`
	BookingID             string  `json:"booking_id,omitempty"`
	Vendor                string  `json:"vendor,omitempty"`
	SourceID              string  `json:"source_id,omitempty"`
	SourceType            string  `json:"source_type,omitempty"`
	SourceQuotationItemID string  `json:"source_quotation_item_id,omitempty"`
	Virtual               bool    `json:"virtual"`
}

type Invoice struct {
	ID               string     `json:"id"`
	Number           string     `json:"number,omitempty"`
	Amount           float64    `json:"amount"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	PaymentStatus    string     `json:"payment_status,omitempty"`
	RemainingBalance *float64   `json:"remaining_balance,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
}

type Expense struct {
	ID            string  `json:"id"`
	Number        string  `json:"number,omitempty"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Category      string  `json:"category,omitempty"`
	Vendor        string  `json:"vendor,omitempty"`
	Status        string  `json:"status"`
	PaymentStatus string  `json:"payment_status,omitempty"`
	Billable      bool    `json:"billable"`
}

type Collection struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type LedgerWarning struct {
	Ledger   string `json:"ledger"`
	EntityID string `json:"entity_id,omitempty"`
	Message  string `json:"message"`
}

type EntityFinancials struct {
	Entity       Entity          `json:"entity"`
	State        string          `json:"state"`
	Sequence     uint64          `json:"sequence"`
	Partial      bool            `json:"partial"`
	RefreshedAt  *time.Time      `json:"refreshed_at,omitempty"`
	Totals       FinancialTotals `json:"totals"`
	BillingItems []BillingItem   `json:"billing_items"`
	Invoices     []Invoice       `json:"invoices"`
	Expenses     []Expense       `json:"expenses"`
	Collections  []Collection    `json:"collections"`
	Warnings     []LedgerWarning `json:"warnings,omitempty"`
}

type PortfolioRequest struct {
	Entities []Entity `json:"entities"`
}

type PortfolioEntry struct {
	Entity Entity          `json:"entity"`
	Totals FinancialTotals `json:"totals"`
}

type PortfolioFinancials struct {
	Entries     []PortfolioEntry `json:"entries"`
	Warnings    []LedgerWarning  `json:"warnings,omitempty"`
	RefreshedAt time.Time        `json:"refreshed_at"`
}

type Snapshot struct {
	ID         string          `json:"id"`
	Entity     Entity          `json:"entity"`
	Sequence   uint64          `json:"sequence"`
	Totals     FinancialTotals `json:"totals"`
	Partial    bool            `json:"partial"`
	Warnings   int             `json:"warnings"`
	ComputedAt time.Time       `json:"computed_at"`
}

type WorkflowRun struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Entities   int       `json:"entities"`
	Warnings   int       `json:"warnings"`
	Error      *string   `json:"error,omitempty"`
}

type Error struct {
	Message string `json:"message"`
}
