package reconciliation

import (
	"testing"

	"github.com/de-tools/ledger-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeLedgers(t *testing.T) {
	ledgers := domain.Ledgers{
		Invoices: []domain.Invoice{
			{ID: "own", OwnerID: "P-100"},
			{ID: "booking", BookingID: "BK-2"},
			{ID: "booking-as-owner", OwnerID: "BK-1"},
			{ID: "sibling", OwnerID: "P-200", BookingID: "BK-9"},
		},
		BillingItems: []domain.BillingItem{{ID: "bi-own", OwnerID: "P-100"}, {ID: "bi-other", OwnerID: "P-200"}},
		Expenses:     []domain.Expense{{ID: "e-own", BookingID: "BK-1"}, {ID: "e-other", BookingID: "BK-3"}},
		Collections:  []domain.Collection{{ID: "c-own", OwnerID: "P-100"}},
	}

	scoped := ScopeLedgers(project, ledgers)

	ids := func(invoices []domain.Invoice) []string {
		out := []string{}
		for _, inv := range invoices {
			out = append(out, inv.ID)
		}
		return out
	}
	assert.Equal(t, []string{"own", "booking", "booking-as-owner"}, ids(scoped.Invoices))
	require.Len(t, scoped.BillingItems, 1)
	assert.Equal(t, "bi-own", scoped.BillingItems[0].ID)
	require.Len(t, scoped.Expenses, 1)
	assert.Equal(t, "e-own", scoped.Expenses[0].ID)
	assert.Len(t, scoped.Collections, 1)
}

func TestReconcile_FullPipeline(t *testing.T) {
	ledgers := domain.Ledgers{
		Invoices: []domain.Invoice{
			{ID: "inv-1", Amount: dec("1000"), Status: "paid"},
			{ID: "inv-cancelled", Amount: dec("999"), Status: "cancelled"},
		},
		BillingItems: []domain.BillingItem{
			{ID: "bi-1", Amount: dec("200"), Status: "unbilled", SourceQuotationItemID: "qi-1"},
		},
		Expenses: []domain.Expense{
			{ID: "exp-1", Amount: dec("300"), Status: "approved"},
			{ID: "exp-2", Amount: dec("150"), Status: "approved", Billable: true},
		},
		Collections: []domain.Collection{{ID: "c-1", Amount: dec("600")}},
	}

	result := Reconcile(project, ledgers, sampleQuotation(), asOf)

	// bi-1 realizes qi-1; exp-2 and the two remaining quotation lines are virtual.
	require.Len(t, result.BillingItems, 4)
	assert.Equal(t, "bi-1", result.BillingItems[0].ID)
	assert.Equal(t, domain.SourceTypeBillableExpense, result.BillingItems[1].SourceType)
	assert.Len(t, result.Invoices, 1)

	assertDecimal(t, "1000", result.Totals.Revenue, "revenue")
	assertDecimal(t, "450.5", result.Totals.UnbilledRevenue, "unbilled revenue")
	assertDecimal(t, "1450.5", result.Totals.ProductionValue, "production value")
	assertDecimal(t, "450", result.Totals.Cost, "cost")
	assertDecimal(t, "1000.5", result.Totals.GrossProfit, "gross profit")
	assertDecimal(t, "600", result.Totals.Collected, "collected")
	assertInvariants(t, result.Totals)
}

func TestReconcile_DoesNotModifyLedgers(t *testing.T) {
	ledgers := domain.Ledgers{
		BillingItems: []domain.BillingItem{{ID: "bi-1", Amount: dec("5"), Status: "unbilled"}},
		Expenses:     []domain.Expense{{ID: "exp-1", Amount: dec("1"), Status: "approved", Billable: true}},
	}

	_ = Reconcile(project, ledgers, sampleQuotation(), asOf)

	assert.Len(t, ledgers.BillingItems, 1)
	assert.Len(t, ledgers.Expenses, 1)
}
