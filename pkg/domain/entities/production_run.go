package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ProductionRun is one execution of a recipe. It holds no yield of its own:
// the scale factor is derived from the recipe as currently stored.
type ProductionRun struct {
	ID                    string
	RecipeID              string
	PlannedOutputQuantity decimal.Decimal
	OutputUnit            string
	StartedAt             time.Time
}

// NewProductionRun creates a validated ProductionRun for recipe
func NewProductionRun(id string, recipe *Recipe, planned decimal.Decimal, outputUnit string, startedAt time.Time) (*ProductionRun, error) {
	if id == "" {
		return nil, fmt.Errorf("run id cannot be empty")
	}
	if recipe == nil {
		return nil, fmt.Errorf("recipe cannot be nil")
	}
	if !planned.IsPositive() {
		return nil, fmt.Errorf("planned output quantity must be positive, got %s", planned.String())
	}
	if outputUnit == "" {
		return nil, fmt.Errorf("output unit cannot be empty")
	}

	return &ProductionRun{
		ID:                    id,
		RecipeID:              recipe.ID,
		PlannedOutputQuantity: planned,
		OutputUnit:            outputUnit,
		StartedAt:             startedAt,
	}, nil
}
