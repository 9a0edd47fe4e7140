package adapters

import (
	"time"

	"github.com/de-tools/ledger-atlas/pkg/models/api"
	"github.com/de-tools/ledger-atlas/pkg/models/domain"
	"github.com/de-tools/ledger-atlas/pkg/models/store"
	"github.com/shopspring/decimal"
)

const snapshotScale = 4

func MapSnapshotDomainToStore(
	entity domain.Entity,
	totals domain.FinancialTotals,
	sequence uint64,
	partial bool,
	warnings int,
	computedAt time.Time,
) store.FinancialSnapshot {
	return store.FinancialSnapshot{
		EntityKind:            string(entity.Kind),
		EntityID:              entity.ID,
		Sequence:              sequence,
		Revenue:               totals.Revenue.StringFixed(snapshotScale),
		UnbilledRevenue:       totals.UnbilledRevenue.StringFixed(snapshotScale),
		ProductionValue:       totals.ProductionValue.StringFixed(snapshotScale),
		Cost:                  totals.Cost.StringFixed(snapshotScale),
		Collected:             totals.Collected.StringFixed(snapshotScale),
		PaidExpenses:          totals.PaidExpenses.StringFixed(snapshotScale),
		NetCashFlow:           totals.NetCashFlow.StringFixed(snapshotScale),
		GrossProfit:           totals.GrossProfit.StringFixed(snapshotScale),
		ProfitMargin:          totals.ProfitMargin.StringFixed(snapshotScale),
		OpenInvoicesAmount:    totals.OpenInvoicesAmount.StringFixed(snapshotScale),
		OverdueInvoicesAmount: totals.OverdueInvoicesAmount.StringFixed(snapshotScale),
		Partial:               partial,
		Warnings:              warnings,
		ComputedAt:            computedAt.UTC(),
	}
}

func MapSnapshotStoreToTotals(s store.FinancialSnapshot) domain.FinancialTotals {
	return domain.FinancialTotals{
		Revenue:               storedDecimal(s.Revenue),
		UnbilledRevenue:       storedDecimal(s.UnbilledRevenue),
		ProductionValue:       storedDecimal(s.ProductionValue),
		Cost:                  storedDecimal(s.Cost),
		Collected:             storedDecimal(s.Collected),
		PaidExpenses:          storedDecimal(s.PaidExpenses),
		NetCashFlow:           storedDecimal(s.NetCashFlow),
		GrossProfit:           storedDecimal(s.GrossProfit),
		ProfitMargin:          storedDecimal(s.ProfitMargin),
		OpenInvoicesAmount:    storedDecimal(s.OpenInvoicesAmount),
		OverdueInvoicesAmount: storedDecimal(s.OverdueInvoicesAmount),
	}
}

func MapSnapshotStoreToApi(s store.FinancialSnapshot) api.Snapshot {
	return api.Snapshot{
		ID: s.ID,
		Entity: api.Entity{
			Kind: s.EntityKind,
			ID:   s.EntityID,
		},
		Sequence:   s.Sequence,
		Totals:     MapTotalsDomainToApi(MapSnapshotStoreToTotals(s)),
		Partial:    s.Partial,
		Warnings:   s.Warnings,
		ComputedAt: s.ComputedAt,
	}
}

func storedDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
