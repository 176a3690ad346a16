package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vsinha/batchalloc/pkg/application/dto"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
	"github.com/vsinha/batchalloc/pkg/domain/repositories"
	domainservices "github.com/vsinha/batchalloc/pkg/domain/services"
)

// FulfillmentTracker classifies how much of each line's need is allocated
type FulfillmentTracker struct {
	planner     *RunPlanner
	allocations repositories.AllocationRepository
	converter   *domainservices.UnitConverter
	allergens   *AllergenAggregator
}

// NewFulfillmentTracker creates a tracker over the given collaborators
func NewFulfillmentTracker(
	planner *RunPlanner,
	allocations repositories.AllocationRepository,
	converter *domainservices.UnitConverter,
	allergens *AllergenAggregator,
) *FulfillmentTracker {
	return &FulfillmentTracker{
		planner:     planner,
		allocations: allocations,
		converter:   converter,
		allergens:   allergens,
	}
}

// Status computes the fulfillment of one planned line of runID
func (t *FulfillmentTracker) Status(ctx context.Context, runID string, line dto.LinePlan) (dto.LineFulfillment, error) {
	if !line.Resolved.Allocatable() {
		return t.classify(line, nil), nil
	}
	allocations, err := t.allocations.ListAllocationsByLine(ctx, runID, line.LineID())
	if err != nil {
		return dto.LineFulfillment{}, fmt.Errorf("failed to list allocations for line %s: %w", line.LineID(), err)
	}
	return t.classify(line, allocations), nil
}

// AggregateCompletion is fulfilled trackable lines over trackable lines,
// 0 when the run has no trackable line.
func (t *FulfillmentTracker) AggregateCompletion(ctx context.Context, runID string) (float64, error) {
	plan, err := t.planner.Plan(ctx, runID)
	if err != nil {
		return 0, err
	}
	allocations, err := t.allocations.ListAllocationsByRun(ctx, runID)
	if err != nil {
		return 0, fmt.Errorf("failed to list allocations for run %s: %w", runID, err)
	}

	lines := t.classifyAll(plan, NewAllocationTally(allocations))
	_, _, completion := completionOf(lines)
	return completion, nil
}

// Report is the full derived state of runID: line states, completion,
// ad-hoc consumption and effective allergens.
func (t *FulfillmentTracker) Report(ctx context.Context, runID string) (*dto.FulfillmentReport, error) {
	plan, err := t.planner.Plan(ctx, runID)
	if err != nil {
		return nil, err
	}
	return t.ReportPlan(ctx, plan)
}

// ReportPlan builds the report for an already computed plan
func (t *FulfillmentTracker) ReportPlan(ctx context.Context, plan *dto.RunPlan) (*dto.FulfillmentReport, error) {
	allocations, err := t.allocations.ListAllocationsByRun(ctx, plan.Run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations for run %s: %w", plan.Run.ID, err)
	}
	tally := NewAllocationTally(allocations)

	lines := t.classifyAll(plan, tally)
	trackable, fulfilled, completion := completionOf(lines)

	report := &dto.FulfillmentReport{
		RunID:            plan.Run.ID,
		RecipeID:         plan.Recipe.ID,
		ScaleFactor:      plan.ScaleFactor,
		Lines:            lines,
		TrackableLines:   trackable,
		FulfilledLines:   fulfilled,
		Completion:       completion,
		AdHocAllocations: tally.AdHoc(),
	}

	if t.allergens != nil {
		set, err := t.allergens.allergensFor(ctx, plan.Recipe, tally)
		if err != nil {
			return nil, err
		}
		report.Allergens = set.Sorted()
	}

	return report, nil
}

func (t *FulfillmentTracker) classifyAll(plan *dto.RunPlan, tally AllocationTally) []dto.LineFulfillment {
	lines := make([]dto.LineFulfillment, 0, len(plan.Lines))
	for _, line := range plan.Lines {
		lines = append(lines, t.classify(line, tally.Line(line.LineID())))
	}
	return lines
}

func (t *FulfillmentTracker) classify(line dto.LinePlan, allocations []*entities.Allocation) dto.LineFulfillment {
	result := dto.LineFulfillment{
		LineID:      line.LineID(),
		Ingredient:  line.Resolved.Line.Ingredient,
		Needed:      line.Needed.Quantity,
		Allocated:   decimal.Zero,
		Unit:        line.Needed.Unit,
		Allocations: len(allocations),
	}
	if line.Resolved.Line.IsSubRecipe {
		result.Ingredient = line.Resolved.Line.SubRecipeID
	}

	if !line.Resolved.Allocatable() {
		result.State = entities.NotTrackable
		result.Reason = line.Resolved.Err().Error()
		return result
	}
	if line.Needed.NeedsAttention {
		result.State = entities.NeedsAttention
		result.Reason = line.Needed.Err.Error()
		return result
	}

	for _, allocation := range allocations {
		converted, err := t.converter.ConvertForItem(line.Resolved.InventoryItemID, allocation.Quantity, allocation.Unit, line.Needed.Unit)
		if err != nil {
			result.State = entities.NeedsAttention
			result.Reason = fmt.Sprintf("allocation %s: %v", allocation.ID, err)
			return result
		}
		result.Allocated = result.Allocated.Add(converted)
	}

	switch {
	case result.Allocated.IsZero():
		result.State = entities.Unfulfilled
	case result.Allocated.GreaterThanOrEqual(result.Needed):
		result.State = entities.Fulfilled
	default:
		result.State = entities.Partial
	}
	return result
}

func completionOf(lines []dto.LineFulfillment) (trackable, fulfilled int, completion float64) {
	for _, line := range lines {
		if !line.State.Trackable() {
			continue
		}
		trackable++
		if line.State == entities.Fulfilled {
			fulfilled++
		}
	}
	if trackable == 0 {
		return 0, 0, 0
	}
	return trackable, fulfilled, float64(fulfilled) / float64(trackable)
}
