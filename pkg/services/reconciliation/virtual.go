package reconciliation

import (
	"fmt"
	"strings"

	"github.com/de-tools/ledger-atlas/pkg/models/domain"
)

const (
	quotationItemIDPrefix   = "virtual-quotation-"
	billableExpenseIDPrefix = "virtual-expense-"
)

// SynthesizeQuotationItems turns every priced selling-price line of an
// unexecuted quotation into a virtual unbilled billing item. The result is
// never nil, and repeated calls on the same quotation yield items with equal
// source ids.
func SynthesizeQuotationItems(q *domain.Quotation, entity domain.Entity) []domain.BillingItem {
	items := []domain.BillingItem{}
	if q == nil {
		return items
	}

	bookingID := ""
	if !entity.HasID() && len(entity.BookingIDs) > 0 {
		bookingID = entity.BookingIDs[0]
	}

	for ci, category := range q.SellingPriceCategories {
		for ii, line := range category.Items {
			if line.Amount.IsZero() {
				continue
			}

			originID := line.ID
			if originID == "" {
				originID = fmt.Sprintf("%s:%d:%d", q.ID, ci, ii)
			}

			currency := line.Currency
			if currency == "" {
				currency = q.Currency
			}

			items = append(items, domain.BillingItem{
				ID:                    quotationItemIDPrefix + originID,
				Description:           quotationItemDescription(category.Name, line.Description),
				Amount:                line.Amount,
				Currency:              currency,
				Status:                domain.BillingStatusUnbilled,
				OwnerID:               entity.ID,
				BookingID:             bookingID,
				SourceID:              originID,
				SourceType:            domain.SourceTypeQuotationItem,
				SourceQuotationItemID: originID,
				Virtual:               true,
			})
		}
	}
	return items
}

func quotationItemDescription(category, description string) string {
	switch {
	case category == "":
		return description
	case description == "":
		return category
	default:
		return category + ": " + description
	}
}

// MergeBillableExpenses appends one virtual unbilled item for every accepted
// billable expense that no billing item references yet. Matching is keyed on
// source id, so running it again over its own output adds nothing.
func MergeBillableExpenses(items []domain.BillingItem, expenses []domain.Expense) []domain.BillingItem {
	out := make([]domain.BillingItem, len(items), len(items)+len(expenses))
	copy(out, items)

	referenced := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.SourceID != "" {
			referenced[item.SourceID] = struct{}{}
		}
	}

	for _, e := range expenses {
		if !e.Billable || !IsCostExpense(e) || e.ID == "" {
			continue
		}
		if _, ok := referenced[e.ID]; ok {
			continue
		}
		referenced[e.ID] = struct{}{}

		out = append(out, domain.BillingItem{
			ID:          billableExpenseIDPrefix + e.ID,
			Description: billableExpenseDescription(e),
			Amount:      e.Amount,
			Currency:    e.Currency,
			Status:      domain.BillingStatusUnbilled,
			OwnerID:     e.OwnerID,
			BookingID:   e.BookingID,
			Vendor:      e.Vendor,
			SourceID:    e.ID,
			SourceType:  domain.SourceTypeBillableExpense,
			Virtual:     true,
		})
	}
	return out
}

func billableExpenseDescription(e domain.Expense) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{e.Category, e.Vendor} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "Billable expense"
	}
	return "Billable expense: " + strings.Join(parts, " / ")
}

// MergeVirtualItems keeps every persisted item and appends only the virtual
// candidates whose origin has not been realized yet. A persisted item may
// carry its origin in either source_quotation_item_id or source_id, so both
// are collected.
func MergeVirtualItems(persisted []domain.BillingItem, candidates []domain.BillingItem) []domain.BillingItem {
	out := make([]domain.BillingItem, len(persisted), len(persisted)+len(candidates))
	copy(out, persisted)

	realized := make(map[string]struct{}, len(persisted)*2)
	for _, item := range persisted {
		if item.SourceQuotationItemID != "" {
			realized[item.SourceQuotationItemID] = struct{}{}
		}
		if item.SourceID != "" {
			realized[item.SourceID] = struct{}{}
		}
	}

	for _, c := range candidates {
		origin := c.OriginID()
		if origin == "" {
			continue
		}
		if _, ok := realized[origin]; ok {
			continue
		}
		realized[origin] = struct{}{}
		out = append(out, c)
	}
	return out
}
