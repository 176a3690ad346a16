package dto

import (
	"github.com/shopspring/decimal"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
)

// NeededQuantity is the scaled requirement of one line
type NeededQuantity struct {
	LineID         string
	Raw            decimal.Decimal // scaled, in the line's own unit
	RawUnit        string
	Quantity       decimal.Decimal // in Unit, valid unless NeedsAttention
	Unit           string
	NeedsAttention bool
	Err            error
}

// LinePlan pairs a resolved line with its need for one run
type LinePlan struct {
	Resolved entities.ResolvedLine
	Needed   NeededQuantity
}

// LineID returns the recipe line id
func (p LinePlan) LineID() string {
	return p.Resolved.Line.ID
}

// RunPlan is the per-line plan of a production run, in recipe order
type RunPlan struct {
	Run         *entities.ProductionRun
	Recipe      *entities.Recipe
	ScaleFactor decimal.Decimal
	Lines       []LinePlan
}

// Line returns the plan for lineID
func (p *RunPlan) Line(lineID string) (LinePlan, bool) {
	for _, line := range p.Lines {
		if line.LineID() == lineID {
			return line, true
		}
	}
	return LinePlan{}, false
}

// SubRecipeRequest asks for a separate run of a sub-recipe
type SubRecipeRequest struct {
	LineID      string          `json:"line_id"`
	RecipeID    string          `json:"recipe_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	ParentRunID string          `json:"parent_run_id"`
}
