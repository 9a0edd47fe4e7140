package reconciliation

import (
	"strings"

	"github.com/de-tools/ledger-atlas/pkg/models/domain"
)

// Status comparisons are case-insensitive and ignore surrounding whitespace everywhere.

var (
	countableInvoiceStatuses = statusSet("draft", "posted", "approved", "paid", "open", "partial")
	countablePaymentStatuses = statusSet("paid", "partial")
	costExpenseStatuses      = statusSet("approved", "posted", "paid", "partial")
	settledStatuses          = statusSet("paid", "cleared")
)

type statusLookup map[string]struct{}

func statusSet(values ...string) statusLookup {
	s := make(statusLookup, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s statusLookup) has(status string) bool {
	_, ok := s[normalizeStatus(status)]
	return ok
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// IsCountableInvoice reports whether an invoice participates in totals.
func IsCountableInvoice(inv domain.Invoice) bool {
	return countableInvoiceStatuses.has(inv.Status) || countablePaymentStatuses.has(inv.PaymentStatus)
}

// IsSettledInvoice reports whether nothing is owed on the invoice any more.
func IsSettledInvoice(inv domain.Invoice) bool {
	return settledStatuses.has(inv.Status) || settledStatuses.has(inv.PaymentStatus)
}

// IsCostExpense reports whether an expense counts toward accrual cost.
func IsCostExpense(e domain.Expense) bool {
	return costExpenseStatuses.has(e.Status)
}

// IsPaidExpense reports whether an expense counts toward cash paid out.
func IsPaidExpense(e domain.Expense) bool {
	return settledStatuses.has(e.Status) || settledStatuses.has(e.PaymentStatus)
}

func IsUnbilled(item domain.BillingItem) bool {
	return normalizeStatus(item.Status) == domain.BillingStatusUnbilled
}

func CountableInvoices(invoices []domain.Invoice) []domain.Invoice {
	out := make([]domain.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if IsCountableInvoice(inv) {
			out = append(out, inv)
		}
	}
	return out
}

func CostExpenses(expenses []domain.Expense) []domain.Expense {
	out := make([]domain.Expense, 0, len(expenses))
	for _, e := range expenses {
		if IsCostExpense(e) {
			out = append(out, e)
		}
	}
	return out
}
