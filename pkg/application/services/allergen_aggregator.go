package services

import (
	"context"
	"fmt"

	"github.com/vsinha/batchalloc/pkg/domain/entities"
	"github.com/vsinha/batchalloc/pkg/domain/repositories"
)

// AllergenAggregator derives a run's allergen profile from current state.
// Nothing is cached: every call re-reads the run's live allocations.
type AllergenAggregator struct {
	runs        repositories.RunRepository
	recipes     repositories.RecipeRepository
	lots        repositories.LotRepository
	allocations repositories.AllocationRepository
}

// NewAllergenAggregator creates an aggregator over the given collaborators
func NewAllergenAggregator(
	runs repositories.RunRepository,
	recipes repositories.RecipeRepository,
	lots repositories.LotRepository,
	allocations repositories.AllocationRepository,
) *AllergenAggregator {
	return &AllergenAggregator{
		runs:        runs,
		recipes:     recipes,
		lots:        lots,
		allocations: allocations,
	}
}

// EffectiveAllergens is the recipe's declared allergens plus those of every lot
// referenced by an allocation of runID that has not been reversed.
func (a *AllergenAggregator) EffectiveAllergens(ctx context.Context, runID string) (entities.AllergenSet, error) {
	run, err := a.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	recipe, err := a.recipes.GetRecipe(ctx, run.RecipeID)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	allocations, err := a.allocations.ListAllocationsByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations for run %s: %w", runID, err)
	}
	return a.allergensFor(ctx, recipe, NewAllocationTally(allocations))
}

func (a *AllergenAggregator) allergensFor(ctx context.Context, recipe *entities.Recipe, tally AllocationTally) (entities.AllergenSet, error) {
	set := recipe.DeclaredAllergens()
	for _, lotID := range tally.LotIDs() {
		lot, err := a.lots.GetLot(ctx, lotID)
		if err != nil {
			return nil, fmt.Errorf("failed to read allergens of lot %s: %w", lotID, err)
		}
		set.Add(lot.Allergens...)
	}
	return set, nil
}
