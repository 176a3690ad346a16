package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestRecipeLine_Validation(t *testing.T) {
	line, err := NewRecipeLine("L1", "flour", decimal.NewFromInt(2), "kg", "gluten")
	if err != nil {
		t.Fatalf("Expected valid line creation to succeed: %v", err)
	}
	if line.IsSubRecipe {
		t.Errorf("Expected raw ingredient line")
	}

	sub, err := NewSubRecipeLine("L2", "DOUGH", decimal.NewFromInt(1), "kg")
	if err != nil {
		t.Fatalf("Expected valid sub-recipe line creation to succeed: %v", err)
	}
	if !sub.IsSubRecipe {
		t.Errorf("Expected sub-recipe line")
	}

	testCases := []struct {
		name        string
		id          string
		ingredient  string
		quantity    decimal.Decimal
		unit        string
		expectError string
	}{
		{"empty id", "", "flour", decimal.NewFromInt(1), "kg", "line id cannot be empty"},
		{"empty ingredient", "L1", "", decimal.NewFromInt(1), "kg", "ingredient cannot be empty"},
		{"zero quantity", "L1", "flour", decimal.Zero, "kg", "line quantity must be positive, got 0"},
		{"empty unit", "L1", "flour", decimal.NewFromInt(1), "", "unit cannot be empty"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRecipeLine(tc.id, tc.ingredient, tc.quantity, tc.unit)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestRecipe_DeclaredAllergens(t *testing.T) {
	recipe, err := NewRecipe("BREAD", "Bread", decimal.NewFromInt(10), "kg", []string{"Gluten"}, []RecipeLine{
		{ID: "L1", Ingredient: "flour", Quantity: decimal.NewFromInt(2), Unit: "kg", Allergens: []string{"gluten"}},
		{ID: "L2", Ingredient: "sesame", Quantity: decimal.NewFromInt(1), Unit: "kg", Allergens: []string{" sesame "}},
	})
	if err != nil {
		t.Fatalf("Expected valid recipe creation to succeed: %v", err)
	}

	got := recipe.DeclaredAllergens().Sorted()
	if len(got) != 2 || got[0] != "gluten" || got[1] != "sesame" {
		t.Errorf("Expected [gluten sesame], got %v", got)
	}
}

func TestResolvedLine_States(t *testing.T) {
	line := RecipeLine{ID: "L1", Ingredient: "saffron", Quantity: decimal.NewFromInt(1), Unit: "g"}

	unmapped := ResolvedLine{Line: line, State: Unmapped}
	if unmapped.Allocatable() {
		t.Errorf("Expected unmapped line not to be allocatable")
	}
	if !errors.Is(unmapped.Err(), ErrUnmappedIngredient) {
		t.Errorf("Expected ErrUnmappedIngredient, got %v", unmapped.Err())
	}

	mapped := ResolvedLine{Line: line, State: Mapped, InventoryItemID: "SAFFRON", CanonicalUnit: "g"}
	if !mapped.Allocatable() || mapped.Err() != nil {
		t.Errorf("Expected mapped line to be allocatable, err=%v", mapped.Err())
	}
}

func TestRecipe_RawScaleFactor(t *testing.T) {
	recipe := &Recipe{ID: "BREAD", YieldQuantity: decimal.NewFromInt(10), YieldUnit: "kg"}
	run, err := NewProductionRun("RUN-1", recipe, decimal.NewFromInt(15), "kg", time.Now())
	if err != nil {
		t.Fatalf("Expected valid run creation to succeed: %v", err)
	}
	if got := recipe.RawScaleFactor(run.PlannedOutputQuantity); !got.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("Expected scale factor 1.5, got %s", got)
	}

	run.PlannedOutputQuantity = decimal.NewFromInt(30)
	if got := recipe.RawScaleFactor(run.PlannedOutputQuantity); !got.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Expected scale factor to follow planned output, got %s", got)
	}

	recipe.YieldQuantity = decimal.NewFromInt(5)
	if got := recipe.RawScaleFactor(run.PlannedOutputQuantity); !got.Equal(decimal.NewFromInt(6)) {
		t.Errorf("Expected scale factor to follow recipe yield, got %s", got)
	}

	recipe.YieldQuantity = decimal.Zero
	if got := recipe.RawScaleFactor(run.PlannedOutputQuantity); !got.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Expected scale factor 1 for zero yield, got %s", got)
	}
}
