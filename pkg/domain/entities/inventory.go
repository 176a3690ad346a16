package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem is a trackable stock item maintained by the catalog
type InventoryItem struct {
	ID            string
	Name          string
	Ingredient    string
	CanonicalUnit string
}

// NewInventoryItem creates a validated InventoryItem
func NewInventoryItem(id, name, ingredient, canonicalUnit string) (*InventoryItem, error) {
	if id == "" {
		return nil, fmt.Errorf("item id cannot be empty")
	}
	if ingredient == "" {
		return nil, fmt.Errorf("ingredient cannot be empty")
	}
	if canonicalUnit == "" {
		return nil, fmt.Errorf("canonical unit cannot be empty")
	}

	return &InventoryItem{
		ID:            id,
		Name:          name,
		Ingredient:    ingredient,
		CanonicalUnit: canonicalUnit,
	}, nil
}

// Lot is a physical batch of an inventory item
type Lot struct {
	ID                string
	InventoryItemID   string
	RemainingQuantity decimal.Decimal
	Unit              string
	Allergens         []string
	SourceRunID       string // set when the lot is the output of another production run
	CreatedAt         time.Time
}

// NewLot creates a validated Lot
func NewLot(id, itemID string, remaining decimal.Decimal, unit string, allergens []string, sourceRunID string, createdAt time.Time) (*Lot, error) {
	if id == "" {
		return nil, fmt.Errorf("lot id cannot be empty")
	}
	if itemID == "" {
		return nil, fmt.Errorf("inventory item id cannot be empty")
	}
	if remaining.IsNegative() {
		return nil, fmt.Errorf("remaining quantity cannot be negative, got %s", remaining.String())
	}
	if unit == "" {
		return nil, fmt.Errorf("unit cannot be empty")
	}

	return &Lot{
		ID:                id,
		InventoryItemID:   itemID,
		RemainingQuantity: RoundConverted(remaining),
		Unit:              unit,
		Allergens:         allergens,
		SourceRunID:       sourceRunID,
		CreatedAt:         createdAt,
	}, nil
}

// IsRework reports whether the lot was produced by a production run
func (l *Lot) IsRework() bool {
	return l.SourceRunID != ""
}

// Available reports whether the lot still holds stock
func (l *Lot) Available() bool {
	return l.RemainingQuantity.IsPositive()
}

// Clone returns a copy that does not share the allergen slice
func (l *Lot) Clone() *Lot {
	c := *l
	c.Allergens = append([]string(nil), l.Allergens...)
	return &c
}
