package repositories

import (
	"context"

	"github.com/vsinha/batchalloc/pkg/domain/entities"
)

// RecipeRepository provides access to published recipe versions
type RecipeRepository interface {
	// GetRecipe returns entities.ErrRecipeNotFound when the id is unknown.
	GetRecipe(ctx context.Context, recipeID string) (*entities.Recipe, error)
	LoadRecipes(recipes []*entities.Recipe) error
}
