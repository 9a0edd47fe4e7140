package store

import "time"

// FinancialSnapshot is one persisted totals row. Amounts are stored as
// fixed-point strings to survive the round trip through NUMERIC columns.
type FinancialSnapshot struct {
	ID                    string
	EntityKind            string
	EntityID              string
	Sequence              uint64
	Revenue               string
	UnbilledRevenue       string
	ProductionValue       string
	Cost                  string
	Collected             string
	PaidExpenses          string
	NetCashFlow           string
	GrossProfit           string
	ProfitMargin          string
	OpenInvoicesAmount    string
	OverdueInvoicesAmount string
	Partial               bool
	Warnings              int
	ComputedAt            time.Time
}
