package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vsinha/batchalloc/pkg/domain/entities"
	"github.com/vsinha/batchalloc/pkg/domain/repositories"
)

// RecipeRepository provides in-memory recipe storage
type RecipeRepository struct {
	mu      sync.RWMutex
	recipes map[string]*entities.Recipe
	order   []string
}

// NewRecipeRepository creates a new in-memory recipe repository
func NewRecipeRepository() *RecipeRepository {
	return &RecipeRepository{
		recipes: make(map[string]*entities.Recipe),
	}
}

// Verify interface compliance
var _ repositories.RecipeRepository = (*RecipeRepository)(nil)

// LoadRecipes loads recipes into the repository
func (r *RecipeRepository) LoadRecipes(recipes []*entities.Recipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, recipe := range recipes {
		if _, exists := r.recipes[recipe.ID]; !exists {
			r.order = append(r.order, recipe.ID)
		}
		r.recipes[recipe.ID] = recipe
	}
	return nil
}

// GetRecipe returns the recipe with recipeID
func (r *RecipeRepository) GetRecipe(ctx context.Context, recipeID string) (*entities.Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recipe, exists := r.recipes[recipeID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", entities.ErrRecipeNotFound, recipeID)
	}
	return recipe, nil
}

// GetAllRecipes returns all recipes in load order
func (r *RecipeRepository) GetAllRecipes() []*entities.Recipe {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recipes := make([]*entities.Recipe, 0, len(r.order))
	for _, id := range r.order {
		recipes = append(recipes, r.recipes[id])
	}
	return recipes
}
