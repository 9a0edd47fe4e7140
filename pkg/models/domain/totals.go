package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinancialTotals is the reconciled profitability and cash position of an entity.
//
//	ProductionValue = Revenue + UnbilledRevenue
//	GrossProfit     = ProductionValue - Cost
//	ProfitMargin    = GrossProfit / ProductionValue * 100 (0 when ProductionValue is 0)
type FinancialTotals struct {
	Revenue               decimal.Decimal
	UnbilledRevenue       decimal.Decimal
	ProductionValue       decimal.Decimal
	Cost                  decimal.Decimal
	Collected             decimal.Decimal
	PaidExpenses          decimal.Decimal
	NetCashFlow           decimal.Decimal
	GrossProfit           decimal.Decimal
	ProfitMargin          decimal.Decimal
	OpenInvoicesAmount    decimal.Decimal
	OverdueInvoicesAmount decimal.Decimal
}

// Reconciliation is the output of one merge-and-calculate pass.
type Reconciliation struct {
	Entity       Entity
	Totals       FinancialTotals
	Invoices     []Invoice
	BillingItems []BillingItem // persisted items followed by virtual ones
	Expenses     []Expense
	Collections  []Collection
}

type FinancialsState string

const (
	FinancialsStateIdle    FinancialsState = "idle"
	FinancialsStateLoading FinancialsState = "loading"
	FinancialsStateReady   FinancialsState = "ready"
)

// FinancialsSnapshot is what an orchestrator publishes after each applied pass.
type FinancialsSnapshot struct {
	Reconciliation
	State       FinancialsState
	Sequence    uint64
	Partial     bool // computed without a canonical entity id
	RefreshedAt *time.Time
	Warnings    []LedgerWarning
}

type PortfolioSnapshot struct {
	Sequence    uint64
	Entries     []Reconciliation
	Warnings    []LedgerWarning
	RefreshedAt time.Time
}
