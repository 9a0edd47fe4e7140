package reconciliation

import (
	"time"

	"github.com/de-tools/ledger-atlas/pkg/models/domain"
)

// Reconcile runs the merge-and-calculate pipeline for one entity:
// billable expenses are promoted to virtual items, quotation lines are
// synthesized and merged against realized items, then totals are computed.
// The ledgers are read, never modified.
func Reconcile(
	entity domain.Entity,
	ledgers domain.Ledgers,
	quotation *domain.Quotation,
	asOf time.Time,
) domain.Reconciliation {
	invoices := CountableInvoices(ledgers.Invoices)

	items := MergeBillableExpenses(ledgers.BillingItems, ledgers.Expenses)
	items = MergeVirtualItems(items, SynthesizeQuotationItems(quotation, entity))

	totals := Calculate(Input{
		Invoices:     invoices,
		BillingItems: items,
		Expenses:     ledgers.Expenses,
		Collections:  ledgers.Collections,
	}, asOf)

	return domain.Reconciliation{
		Entity:       entity,
		Totals:       totals,
		Invoices:     invoices,
		BillingItems: items,
		Expenses:     CostExpenses(ledgers.Expenses),
		Collections:  append([]domain.Collection(nil), ledgers.Collections...),
	}
}

// ScopeLedgers returns the part of the ledgers that belongs to the entity.
func ScopeLedgers(entity domain.Entity, ledgers domain.Ledgers) domain.Ledgers {
	var scoped domain.Ledgers
	for _, inv := range ledgers.Invoices {
		if entity.Owns(inv.OwnerID, inv.BookingID) {
			scoped.Invoices = append(scoped.Invoices, inv)
		}
	}
	for _, item := range ledgers.BillingItems {
		if entity.Owns(item.OwnerID, item.BookingID) {
			scoped.BillingItems = append(scoped.BillingItems, item)
		}
	}
	for _, e := range ledgers.Expenses {
		if entity.Owns(e.OwnerID, e.BookingID) {
			scoped.Expenses = append(scoped.Expenses, e)
		}
	}
	for _, c := range ledgers.Collections {
		if entity.Owns(c.OwnerID, c.BookingID) {
			scoped.Collections = append(scoped.Collections, c)
		}
	}
	return scoped
}
