package reconciliation

import (
	"time"

	"github.com/de-tools/ledger-atlas/pkg/models/domain"
	"github.com/shopspring/decimal"
)

const overdueAfterCreation = 30 * 24 * time.Hour

var (
	// balances at or below one hundredth of a unit are rounding noise
	balanceTolerance = decimal.New(1, -2)
	hundred          = decimal.NewFromInt(100)
)

// Input holds the ledgers of one entity. Invoices are expected to be
// pre-filtered with IsCountableInvoice; expenses are the full normalized list
// because cost (accrual) and paid-out (cash) use different status sets.
type Input struct {
	Invoices     []domain.Invoice
	BillingItems []domain.BillingItem
	Expenses     []domain.Expense
	Collections  []domain.Collection
}

// Calculate reduces the ledgers into a totals record. It is pure: the same
// input and asOf always produce the same result.
func Calculate(in Input, asOf time.Time) domain.FinancialTotals {
	var t domain.FinancialTotals

	for _, inv := range in.Invoices {
		if !IsCountableInvoice(inv) {
			continue
		}
		t.Revenue = t.Revenue.Add(inv.Amount)

		if IsSettledInvoice(inv) {
			continue
		}
		// Credit balances would let overdue exceed open.
		outstanding := inv.Outstanding()
		if !outstanding.IsPositive() {
			continue
		}
		t.OpenInvoicesAmount = t.OpenInvoicesAmount.Add(outstanding)
		if outstanding.GreaterThan(balanceTolerance) && isPastDue(inv, asOf) {
			t.OverdueInvoicesAmount = t.OverdueInvoicesAmount.Add(outstanding)
		}
	}

	for _, item := range in.BillingItems {
		if IsUnbilled(item) {
			t.UnbilledRevenue = t.UnbilledRevenue.Add(item.Amount)
		}
	}

	for _, e := range in.Expenses {
		if IsCostExpense(e) {
			t.Cost = t.Cost.Add(e.Amount)
		}
		if IsPaidExpense(e) {
			t.PaidExpenses = t.PaidExpenses.Add(e.Amount)
		}
	}

	for _, c := range in.Collections {
		t.Collected = t.Collected.Add(c.Amount)
	}

	t.ProductionValue = t.Revenue.Add(t.UnbilledRevenue)
	t.NetCashFlow = t.Collected.Sub(t.PaidExpenses)
	t.GrossProfit = t.ProductionValue.Sub(t.Cost)
	t.ProfitMargin = Margin(t.GrossProfit, t.ProductionValue)

	return t
}

// Margin returns profit as a percentage of production value, 0 when there is none.
func Margin(profit, production decimal.Decimal) decimal.Decimal {
	if production.IsZero() {
		return decimal.Zero
	}
	return profit.Div(production).Mul(hundred)
}

// IsOverdue reports whether an invoice is unpaid, carries a real balance and
// is past its due date (or older than 30 days when it has none).
func IsOverdue(inv domain.Invoice, asOf time.Time) bool {
	if IsSettledInvoice(inv) {
		return false
	}
	if !inv.Outstanding().GreaterThan(balanceTolerance) {
		return false
	}
	return isPastDue(inv, asOf)
}

func isPastDue(inv domain.Invoice, asOf time.Time) bool {
	if inv.DueDate != nil {
		return inv.DueDate.Before(asOf)
	}
	if inv.CreatedAt != nil {
		return asOf.Sub(*inv.CreatedAt) > overdueAfterCreation
	}
	return false
}
