package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RecipeLine is one ingredient or sub-recipe reference within a recipe
type RecipeLine struct {
	ID          string
	Ingredient  string // raw ingredient reference, empty for sub-recipe lines
	SubRecipeID string
	Quantity    decimal.Decimal
	Unit        string
	IsSubRecipe bool
	Allergens   []string
}

// NewRecipeLine creates a validated raw-ingredient RecipeLine
func NewRecipeLine(id, ingredient string, quantity decimal.Decimal, unit string, allergens ...string) (*RecipeLine, error) {
	if id == "" {
		return nil, fmt.Errorf("line id cannot be empty")
	}
	if ingredient == "" {
		return nil, fmt.Errorf("ingredient cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("line quantity must be positive, got %s", quantity.String())
	}
	if unit == "" {
		return nil, fmt.Errorf("unit cannot be empty")
	}

	return &RecipeLine{
		ID:         id,
		Ingredient: ingredient,
		Quantity:   quantity,
		Unit:       unit,
		Allergens:  allergens,
	}, nil
}

// NewSubRecipeLine creates a validated RecipeLine that references another recipe
func NewSubRecipeLine(id, subRecipeID string, quantity decimal.Decimal, unit string, allergens ...string) (*RecipeLine, error) {
	if id == "" {
		return nil, fmt.Errorf("line id cannot be empty")
	}
	if subRecipeID == "" {
		return nil, fmt.Errorf("sub-recipe id cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("line quantity must be positive, got %s", quantity.String())
	}
	if unit == "" {
		return nil, fmt.Errorf("unit cannot be empty")
	}

	return &RecipeLine{
		ID:          id,
		SubRecipeID: subRecipeID,
		Quantity:    quantity,
		Unit:        unit,
		IsSubRecipe: true,
		Allergens:   allergens,
	}, nil
}

// Recipe is a published recipe version with its standard yield
type Recipe struct {
	ID            string
	Name          string
	YieldQuantity decimal.Decimal
	YieldUnit     string
	Allergens     []string
	Lines         []RecipeLine
}

// RawScaleFactor is planned/yield without unit reconciliation; 1 when the yield is not positive.
func (r *Recipe) RawScaleFactor(planned decimal.Decimal) decimal.Decimal {
	if !r.YieldQuantity.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return planned.Div(r.YieldQuantity)
}

// NewRecipe creates a validated Recipe. A zero yield is accepted and scales at 1.
func NewRecipe(id, name string, yieldQuantity decimal.Decimal, yieldUnit string, allergens []string, lines []RecipeLine) (*Recipe, error) {
	if id == "" {
		return nil, fmt.Errorf("recipe id cannot be empty")
	}
	if yieldQuantity.IsNegative() {
		return nil, fmt.Errorf("yield quantity cannot be negative, got %s", yieldQuantity.String())
	}
	if yieldQuantity.IsPositive() && yieldUnit == "" {
		return nil, fmt.Errorf("yield unit cannot be empty")
	}

	return &Recipe{
		ID:            id,
		Name:          name,
		YieldQuantity: yieldQuantity,
		YieldUnit:     yieldUnit,
		Allergens:     allergens,
		Lines:         lines,
	}, nil
}

// DeclaredAllergens is the union of recipe-level and line-level allergens
func (r *Recipe) DeclaredAllergens() AllergenSet {
	set := NewAllergenSet(r.Allergens...)
	for _, line := range r.Lines {
		set.Add(line.Allergens...)
	}
	return set
}

// MappingState tells whether a resolved line can be allocated against stock
type MappingState int

const (
	Mapped MappingState = iota
	Unmapped
	SubRecipe
)

// String method for MappingState enum
func (m MappingState) String() string {
	switch m {
	case Mapped:
		return "Mapped"
	case Unmapped:
		return "Unmapped"
	case SubRecipe:
		return "SubRecipe"
	default:
		return "Unknown"
	}
}

// ResolvedLine is a RecipeLine enriched with its catalog mapping
type ResolvedLine struct {
	Line            RecipeLine
	State           MappingState
	InventoryItemID string
	CanonicalUnit   string
}

// Allocatable reports whether stock can be allocated to this line
func (l ResolvedLine) Allocatable() bool {
	return l.State == Mapped && l.InventoryItemID != ""
}

// Err explains why the line is not allocatable, nil when it is
func (l ResolvedLine) Err() error {
	switch l.State {
	case Mapped:
		return nil
	case Unmapped:
		return fmt.Errorf("line %s (%s): %w", l.Line.ID, l.Line.Ingredient, ErrUnmappedIngredient)
	default:
		return fmt.Errorf("line %s references sub-recipe %s and is produced by its own run", l.Line.ID, l.Line.SubRecipeID)
	}
}
