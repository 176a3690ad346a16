package entities

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLot_Validation(t *testing.T) {
	createdAt := time.Now()

	validLot, err := NewLot("LOT001", "FLOUR", decimal.NewFromInt(10), "kg", []string{"gluten"}, "", createdAt)
	if err != nil {
		t.Fatalf("Expected valid lot creation to succeed: %v", err)
	}
	if !validLot.RemainingQuantity.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected remaining quantity 10, got %s", validLot.RemainingQuantity)
	}
	if validLot.IsRework() {
		t.Errorf("Expected purchased lot not to be rework")
	}

	testCases := []struct {
		name        string
		lotID       string
		itemID      string
		remaining   decimal.Decimal
		unit        string
		expectError string
	}{
		{"empty lot id", "", "FLOUR", decimal.NewFromInt(1), "kg", "lot id cannot be empty"},
		{"empty item id", "LOT001", "", decimal.NewFromInt(1), "kg", "inventory item id cannot be empty"},
		{"negative remaining", "LOT001", "FLOUR", decimal.NewFromInt(-5), "kg", "remaining quantity cannot be negative, got -5"},
		{"empty unit", "LOT001", "FLOUR", decimal.NewFromInt(1), "", "unit cannot be empty"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLot(tc.lotID, tc.itemID, tc.remaining, tc.unit, nil, "", createdAt)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestLot_ReworkAndClone(t *testing.T) {
	lot, err := NewLot("LOT900", "DOUGH", decimal.RequireFromString("2.5"), "kg", []string{"gluten"}, "RUN-1", time.Now())
	if err != nil {
		t.Fatalf("Expected valid lot creation to succeed: %v", err)
	}
	if !lot.IsRework() {
		t.Errorf("Expected lot with source run to be rework")
	}

	clone := lot.Clone()
	clone.Allergens[0] = "changed"
	if lot.Allergens[0] != "gluten" {
		t.Errorf("Expected clone not to share allergens, got %v", lot.Allergens)
	}
}

func TestInventoryItem_Validation(t *testing.T) {
	if _, err := NewInventoryItem("FLOUR", "Wheat flour", "flour", "kg"); err != nil {
		t.Fatalf("Expected valid item creation to succeed: %v", err)
	}

	testCases := []struct {
		name        string
		id          string
		ingredient  string
		unit        string
		expectError string
	}{
		{"empty id", "", "flour", "kg", "item id cannot be empty"},
		{"empty ingredient", "FLOUR", "", "kg", "ingredient cannot be empty"},
		{"empty unit", "FLOUR", "flour", "", "canonical unit cannot be empty"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewInventoryItem(tc.id, "name", tc.ingredient, tc.unit)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}
