package services

import (
	"context"
	"fmt"

	"github.com/vsinha/batchalloc/pkg/domain/entities"
	"github.com/vsinha/batchalloc/pkg/domain/repositories"
)

// RecipeResolver maps recipe lines onto trackable inventory items
type RecipeResolver struct {
	catalog repositories.CatalogRepository
}

// NewRecipeResolver creates a resolver backed by catalog
func NewRecipeResolver(catalog repositories.CatalogRepository) *RecipeResolver {
	return &RecipeResolver{catalog: catalog}
}

// Resolve returns one ResolvedLine per recipe line, in recipe order.
// Sub-recipe lines are never mapped; unmapped ingredients are flagged, not dropped.
func (r *RecipeResolver) Resolve(ctx context.Context, recipe *entities.Recipe) ([]entities.ResolvedLine, error) {
	resolved := make([]entities.ResolvedLine, 0, len(recipe.Lines))

	for _, line := range recipe.Lines {
		if line.IsSubRecipe {
			resolved = append(resolved, entities.ResolvedLine{Line: line, State: entities.SubRecipe})
			continue
		}

		item, err := r.catalog.FindItemForIngredient(ctx, line.Ingredient)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve line %s (%s): %w", line.ID, line.Ingredient, err)
		}
		if item == nil {
			resolved = append(resolved, entities.ResolvedLine{Line: line, State: entities.Unmapped})
			continue
		}

		resolved = append(resolved, entities.ResolvedLine{
			Line:            line,
			State:           entities.Mapped,
			InventoryItemID: item.ID,
			CanonicalUnit:   item.CanonicalUnit,
		})
	}

	return resolved, nil
}
