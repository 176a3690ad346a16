package services

import (
	"context"
	"fmt"

	"github.com/vsinha/batchalloc/pkg/application/dto"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
	"github.com/vsinha/batchalloc/pkg/domain/repositories"
)

// RunPlanner assembles the per-line plan of a production run
type RunPlanner struct {
	runs     repositories.RunRepository
	recipes  repositories.RecipeRepository
	resolver *RecipeResolver
	scaling  *ScalingCalculator
}

// NewRunPlanner creates a planner over the given collaborators
func NewRunPlanner(
	runs repositories.RunRepository,
	recipes repositories.RecipeRepository,
	resolver *RecipeResolver,
	scaling *ScalingCalculator,
) *RunPlanner {
	return &RunPlanner{
		runs:     runs,
		recipes:  recipes,
		resolver: resolver,
		scaling:  scaling,
	}
}

// Plan loads runID and its recipe and computes every line's need
func (p *RunPlanner) Plan(ctx context.Context, runID string) (*dto.RunPlan, error) {
	run, err := p.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	recipe, err := p.recipes.GetRecipe(ctx, run.RecipeID)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return p.PlanRun(ctx, run, recipe)
}

// PlanRun computes the plan for a run whose recipe is already loaded
func (p *RunPlanner) PlanRun(ctx context.Context, run *entities.ProductionRun, recipe *entities.Recipe) (*dto.RunPlan, error) {
	resolved, err := p.resolver.Resolve(ctx, recipe)
	if err != nil {
		return nil, err
	}

	plan := &dto.RunPlan{
		Run:    run,
		Recipe: recipe,
		Lines:  make([]dto.LinePlan, 0, len(resolved)),
	}

	factor, factorErr := p.scaling.ScaleFactor(run, recipe)
	if factorErr == nil {
		plan.ScaleFactor = factor
	}

	for _, line := range resolved {
		var needed dto.NeededQuantity
		if factorErr != nil {
			needed = dto.NeededQuantity{
				LineID:         line.Line.ID,
				RawUnit:        line.Line.Unit,
				Unit:           run.OutputUnit,
				NeedsAttention: true,
				Err:            factorErr,
			}
		} else {
			needed = p.scaling.neededWithFactor(line, run, factor)
		}
		plan.Lines = append(plan.Lines, dto.LinePlan{Resolved: line, Needed: needed})
	}
	return plan, nil
}
