package domain

import (
	"fmt"
	"slices"
	"strings"
)

type EntityKind string

const (
	EntityKindProject  EntityKind = "project"
	EntityKindContract EntityKind = "contract"
)

func ParseEntityKind(s string) (EntityKind, error) {
	switch EntityKind(strings.ToLower(strings.TrimSpace(s))) {
	case EntityKindProject:
		return EntityKindProject, nil
	case EntityKindContract:
		return EntityKindContract, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", s)
	}
}

// Entity is a project or contract whose financials are reconciled. A single
// entity may aggregate several shipment bookings.
type Entity struct {
	Kind        EntityKind
	ID          string   // canonical identifier (project or contract number), may be empty
	BookingIDs  []string // linked sub-bookings
	QuotationID string   // unexecuted quotation, optional
}

func (e Entity) Key() string {
	return fmt.Sprintf("%s:%s", e.Kind, e.ID)
}

func (e Entity) HasID() bool {
	return strings.TrimSpace(e.ID) != ""
}

// ScopeIDs returns the entity id followed by its bookings, without blanks or duplicates.
func (e Entity) ScopeIDs() []string {
	ids := make([]string, 0, len(e.BookingIDs)+1)
	seen := make(map[string]struct{}, len(e.BookingIDs)+1)
	for _, id := range append([]string{e.ID}, e.BookingIDs...) {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// SameIdentity reports whether two entity descriptions would produce the same
// fetch scope. Booking order is irrelevant.
func (e Entity) SameIdentity(other Entity) bool {
	if e.Kind != other.Kind || e.ID != other.ID || e.QuotationID != other.QuotationID {
		return false
	}
	a := e.ScopeIDs()
	b := other.ScopeIDs()
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// Owns reports whether a record with the given owner and booking reference
// belongs to the entity.
func (e Entity) Owns(ownerID, bookingID string) bool {
	if ownerID != "" && e.HasID() && ownerID == e.ID {
		return true
	}
	for _, b := range e.BookingIDs {
		if b == "" {
			continue
		}
		if bookingID == b || ownerID == b {
			return true
		}
	}
	return false
}
