package adapters

import (
	"fmt"
	"strings"

	"github.com/de-tools/ledger-atlas/pkg/models/api"
	"github.com/de-tools/ledger-atlas/pkg/models/domain"
)

func MapEntityApiToDomain(e api.Entity) (domain.Entity, error) {
	kind, err := domain.ParseEntityKind(e.Kind)
	if err != nil {
		return domain.Entity{}, err
	}

	bookings := make([]string, 0, len(e.BookingIDs))
	for _, b := range e.BookingIDs {
		if b = strings.TrimSpace(b); b != "" {
			bookings = append(bookings, b)
		}
	}

	entity := domain.Entity{
		Kind:        kind,
		ID:          strings.TrimSpace(e.ID),
		BookingIDs:  bookings,
		QuotationID: strings.TrimSpace(e.QuotationID),
	}
	if !entity.HasID() && len(entity.BookingIDs) == 0 {
		return domain.Entity{}, fmt.Errorf("entity requires an id or at least one booking")
	}
	return entity, nil
}

func MapEntityDomainToApi(e domain.Entity) api.Entity {
	return api.Entity{
		Kind:        string(e.Kind),
		ID:          e.ID,
		BookingIDs:  e.BookingIDs,
		QuotationID: e.QuotationID,
	}
}

func MapTotalsDomainToApi(t domain.FinancialTotals) api.FinancialTotals {
	return api.FinancialTotals{
		Revenue:               t.Revenue.InexactFloat64(),
		UnbilledRevenue:       t.UnbilledRevenue.InexactFloat64(),
		ProductionValue:       t.ProductionValue.InexactFloat64(),
		Cost:                  t.Cost.InexactFloat64(),
		Collected:             t.Collected.InexactFloat64(),
		PaidExpenses:          t.PaidExpenses.InexactFloat64(),
		NetCashFlow:           t.NetCashFlow.InexactFloat64(),
		GrossProfit:           t.GrossProfit.InexactFloat64(),
		ProfitMargin:          t.ProfitMargin.Round(4).InexactFloat64(),
		OpenInvoicesAmount:    t.OpenInvoicesAmount.InexactFloat64(),
		OverdueInvoicesAmount: t.OverdueInvoicesAmount.InexactFloat64(),
	}
}

func MapBillingItemDomainToApi(b domain.BillingItem) api.BillingItem {
	return api.BillingItem{
		ID:                    b.ID,
		Description:           b.Description,
		Amount:                b.Amount.InexactFloat64(),
		Currency:              b.Currency,
		Status:                b.Status,
		OwnerID:               b.OwnerID,
		BookingID:             b.BookingID,
		Vendor:                b.Vendor,
		SourceID:              b.SourceID,
		SourceType:            string(b.SourceType),
		SourceQuotationItemID: b.SourceQuotationItemID,
		Virtual:               b.Virtual,
	}
}

func MapInvoiceDomainToApi(i domain.Invoice) api.Invoice {
	out := api.Invoice{
		ID:            i.ID,
		Number:        i.Number,
		Amount:        i.Amount.InexactFloat64(),
		Currency:      i.Currency,
		Status:        i.Status,
		PaymentStatus: i.PaymentStatus,
		DueDate:       i.DueDate,
	}
	if i.RemainingBalance != nil {
		v := i.RemainingBalance.InexactFloat64()
		out.RemainingBalance = &v
	}
	return out
}

func MapExpenseDomainToApi(e domain.Expense) api.Expense {
	return api.Expense{
		ID:            e.ID,
		Number:        e.Number,
		Amount:        e.Amount.InexactFloat64(),
		Currency:      e.Currency,
		Category:      e.Category,
		Vendor:        e.Vendor,
		Status:        e.Status,
		PaymentStatus: e.PaymentStatus,
		Billable:      e.Billable,
	}
}

func MapCollectionDomainToApi(c domain.Collection) api.Collection {
	return api.Collection{
		ID:       c.ID,
		Amount:   c.Amount.InexactFloat64(),
		Currency: c.Currency,
	}
}

func MapWarningsDomainToApi(warnings []domain.LedgerWarning) []api.LedgerWarning {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]api.LedgerWarning, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, api.LedgerWarning{
			Ledger:   string(w.Ledger),
			EntityID: w.EntityID,
			Message:  w.Message,
		})
	}
	return out
}

func MapSnapshotDomainToApi(s domain.FinancialsSnapshot) api.EntityFinancials {
	out := api.EntityFinancials{
		Entity:       MapEntityDomainToApi(s.Entity),
		State:        string(s.State),
		Sequence:     s.Sequence,
		Partial:      s.Partial,
		RefreshedAt:  s.RefreshedAt,
		Totals:       MapTotalsDomainToApi(s.Totals),
		BillingItems: []api.BillingItem{},
		Invoices:     []api.Invoice{},
		Expenses:     []api.Expense{},
		Collections:  []api.Collection{},
		Warnings:     MapWarningsDomainToApi(s.Warnings),
	}

	for _, b := range s.BillingItems {
		out.BillingItems = append(out.BillingItems, MapBillingItemDomainToApi(b))
	}
	for _, i := range s.Invoices {
		out.Invoices = append(out.Invoices, MapInvoiceDomainToApi(i))
	}
	for _, e := range s.Expenses {
		out.Expenses = append(out.Expenses, MapExpenseDomainToApi(e))
	}
	for _, c := range s.Collections {
		out.Collections = append(out.Collections, MapCollectionDomainToApi(c))
	}
	return out
}

func MapPortfolioDomainToApi(p domain.PortfolioSnapshot) api.PortfolioFinancials {
	out := api.PortfolioFinancials{
		Entries:     make([]api.PortfolioEntry, 0, len(p.Entries)),
		Warnings:    MapWarningsDomainToApi(p.Warnings),
		RefreshedAt: p.RefreshedAt,
	}
	for _, e := range p.Entries {
		out.Entries = append(out.Entries, api.PortfolioEntry{
			Entity: MapEntityDomainToApi(e.Entity),
			Totals: MapTotalsDomainToApi(e.Totals),
		})
	}
	return out
}

func MapWorkflowRunDomainToApi(r domain.WorkflowRun) api.WorkflowRun {
	return api.WorkflowRun{
		Name:       r.Name,
		Status:     string(r.Status),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Entities:   r.Entities,
		Warnings:   r.Warnings,
		Error:      r.Error,
	}
}
