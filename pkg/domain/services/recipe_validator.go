package services

import (
	"fmt"
	"sort"

	"github.com/vsinha/batchalloc/pkg/domain/entities"
)

// RecipeValidator checks recipe structure before a production run is started
type RecipeValidator struct{}

// NewRecipeValidator creates a new recipe validator
func NewRecipeValidator() *RecipeValidator {
	return &RecipeValidator{}
}

// ValidationResult contains the results of recipe validation
type ValidationResult struct {
	HasCycles      bool
	CyclePaths     [][]string
	DuplicateLines []string
	InvalidLines   []string
	Errors         []string
}

// Valid reports whether no errors were found
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateRecipe checks one recipe's lines and every sub-recipe path reachable from it
// within recipes. Sub-recipes missing from recipes are treated as leaves.
func (v *RecipeValidator) ValidateRecipe(recipe *entities.Recipe, recipes []*entities.Recipe) *ValidationResult {
	result := &ValidationResult{
		CyclePaths:     make([][]string, 0),
		DuplicateLines: make([]string, 0),
		InvalidLines:   make([]string, 0),
		Errors:         make([]string, 0),
	}

	seen := make(map[string]bool)
	for _, line := range recipe.Lines {
		if seen[line.ID] {
			result.DuplicateLines = append(result.DuplicateLines, line.ID)
		}
		seen[line.ID] = true

		if !line.Quantity.IsPositive() {
			result.InvalidLines = append(result.InvalidLines, line.ID)
			result.Errors = append(result.Errors, fmt.Sprintf("line %s: quantity must be positive, got %s", line.ID, line.Quantity.String()))
		}
		if line.IsSubRecipe && line.SubRecipeID == recipe.ID {
			result.InvalidLines = append(result.InvalidLines, line.ID)
			result.Errors = append(result.Errors, fmt.Sprintf("line %s: recipe %s references itself", line.ID, recipe.ID))
		}
	}
	if len(result.DuplicateLines) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Duplicate line ids in recipe %s: %v", recipe.ID, result.DuplicateLines))
	}

	graph := v.buildAdjacencyMap(append([]*entities.Recipe{recipe}, recipes...))
	cycles := make([][]string, 0)
	v.dfsDetectCycle(recipe.ID, graph, make(map[string]bool), make(map[string]bool), nil, &cycles)
	result.HasCycles = len(cycles) > 0
	result.CyclePaths = cycles
	for _, cycle := range cycles {
		result.Errors = append(result.Errors, fmt.Sprintf("Sub-recipe cycle detected: %v", cycle))
	}

	return result
}

// buildAdjacencyMap creates a map of recipe -> sub-recipes relationships
func (v *RecipeValidator) buildAdjacencyMap(recipes []*entities.Recipe) map[string][]string {
	adjacencyMap := make(map[string][]string)

	for _, recipe := range recipes {
		if _, done := adjacencyMap[recipe.ID]; done {
			continue
		}
		children := make([]string, 0)
		for _, line := range recipe.Lines {
			if !line.IsSubRecipe || line.SubRecipeID == recipe.ID {
				continue
			}
			if !containsString(children, line.SubRecipeID) {
				children = append(children, line.SubRecipeID)
			}
		}
		sort.Strings(children)
		adjacencyMap[recipe.ID] = children
	}

	return adjacencyMap
}

// dfsDetectCycle performs depth-first search to detect cycles
func (v *RecipeValidator) dfsDetectCycle(
	current string,
	adjacencyMap map[string][]string,
	visited map[string]bool,
	recursionStack map[string]bool,
	path []string,
	cycles *[][]string,
) {
	visited[current] = true
	recursionStack[current] = true
	path = append(path, current)

	for _, child := range adjacencyMap[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, adjacencyMap, visited, recursionStack, path, cycles)
		} else if recursionStack[child] {
			for i, id := range path {
				if id == child {
					cycle := append([]string{}, path[i:]...)
					cycle = append(cycle, child)
					*cycles = append(*cycles, cycle)
					break
				}
			}
		}
	}

	recursionStack[current] = false
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
