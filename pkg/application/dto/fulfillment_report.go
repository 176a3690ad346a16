package dto

import (
	"github.com/shopspring/decimal"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
)

// LineFulfillment is the fulfillment state of one line
type LineFulfillment struct {
	LineID      string
	Ingredient  string
	State       entities.FulfillmentState
	Needed      decimal.Decimal
	Allocated   decimal.Decimal
	Unit        string
	Allocations int
	Reason      string // set for NotTrackable and NeedsAttention lines
}

// Shortfall is the quantity still missing, zero once fulfilled
func (l LineFulfillment) Shortfall() decimal.Decimal {
	if l.Allocated.GreaterThanOrEqual(l.Needed) {
		return decimal.Zero
	}
	return l.Needed.Sub(l.Allocated)
}

// FulfillmentReport is the derived state of a production run
type FulfillmentReport struct {
	RunID            string
	RecipeID         string
	ScaleFactor      decimal.Decimal
	Lines            []LineFulfillment
	TrackableLines   int
	FulfilledLines   int
	Completion       float64
	AdHocAllocations []*entities.Allocation
	Allergens        []string
}
