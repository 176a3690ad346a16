package testing

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
	"github.com/vsinha/batchalloc/pkg/infrastructure/repositories/memory"
)

// BakeryData holds the in-memory collaborators of the bakery test scenario
type BakeryData struct {
	Recipes *memory.RecipeRepository
	Catalog *memory.CatalogRepository
	Runs    *memory.RunRepository
	Ledger  *memory.LedgerStore
}

// BaseTime is the creation time of the oldest lot in the scenario
var BaseTime = time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)

// Qty parses a decimal literal, panicking on malformed input
func Qty(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// mustCreateLine is a helper for tests - panics on validation error
func mustCreateLine(id, ingredient, qty, unit string, allergens ...string) entities.RecipeLine {
	line, err := entities.NewRecipeLine(id, ingredient, Qty(qty), unit, allergens...)
	if err != nil {
		panic(err)
	}
	return *line
}

// mustCreateSubRecipeLine is a helper for tests - panics on validation error
func mustCreateSubRecipeLine(id, recipeID, qty, unit string) entities.RecipeLine {
	line, err := entities.NewSubRecipeLine(id, recipeID, Qty(qty), unit)
	if err != nil {
		panic(err)
	}
	return *line
}

// MustCreateRecipe is a helper for tests - panics on validation error
func MustCreateRecipe(id, yield, unit string, allergens []string, lines ...entities.RecipeLine) *entities.Recipe {
	recipe, err := entities.NewRecipe(id, id, Qty(yield), unit, allergens, lines)
	if err != nil {
		panic(err)
	}
	return recipe
}

// MustCreateLot is a helper for tests - panics on validation error
func MustCreateLot(id, itemID, remaining, unit string, createdAt time.Time, sourceRunID string, allergens ...string) *entities.Lot {
	lot, err := entities.NewLot(id, itemID, Qty(remaining), unit, allergens, sourceRunID, createdAt)
	if err != nil {
		panic(err)
	}
	return lot
}

// mustCreateItem is a helper for tests - panics on validation error
func mustCreateItem(id, ingredient, unit string) *entities.InventoryItem {
	item, err := entities.NewInventoryItem(id, id, ingredient, unit)
	if err != nil {
		panic(err)
	}
	return item
}

// BuildBakeryTestData builds a bread recipe yielding 10 kg with:
//
//	L1 flour 2 kg (gluten)       -> item FLOUR (kg)
//	L2 milk 500 ml (milk)        -> item MILK (l)
//	L3 sub-recipe LEVAIN 1 kg    -> not trackable
//	L4 saffron 1 g               -> unmapped
//
// LEVAIN yields 2 kg from 1 kg of flour and is stocked as item LEVAIN.
// No lots are loaded; callers add the ones a test needs.
func BuildBakeryTestData() *BakeryData {
	data := &BakeryData{
		Recipes: memory.NewRecipeRepository(),
		Catalog: memory.NewCatalogRepository(3),
		Runs:    memory.NewRunRepository(),
		Ledger:  memory.NewLedgerStore(),
	}

	bread := MustCreateRecipe("BREAD", "10", "kg", []string{"gluten"},
		mustCreateLine("L1", "flour", "2", "kg", "gluten"),
		mustCreateLine("L2", "milk", "500", "ml", "milk"),
		mustCreateSubRecipeLine("L3", "LEVAIN", "1", "kg"),
		mustCreateLine("L4", "saffron", "1", "g"),
	)
	levain := MustCreateRecipe("LEVAIN", "2", "kg", nil,
		mustCreateLine("S1", "flour", "1", "kg", "gluten"),
	)
	if err := data.Recipes.LoadRecipes([]*entities.Recipe{bread, levain}); err != nil {
		panic(err)
	}

	items := []*entities.InventoryItem{
		mustCreateItem("FLOUR", "flour", "kg"),
		mustCreateItem("MILK", "milk", "l"),
		mustCreateItem("LEVAIN", "LEVAIN", "kg"),
	}
	if err := data.Catalog.LoadItems(items); err != nil {
		panic(err)
	}

	return data
}

// BuildFlourOnlyTestData builds a recipe yielding 10 kg whose only line is
// 2 kg of flour, with no lots loaded
func BuildFlourOnlyTestData() *BakeryData {
	data := &BakeryData{
		Recipes: memory.NewRecipeRepository(),
		Catalog: memory.NewCatalogRepository(1),
		Runs:    memory.NewRunRepository(),
		Ledger:  memory.NewLedgerStore(),
	}

	recipe := MustCreateRecipe("ROLLS", "10", "kg", nil, mustCreateLine("L1", "flour", "2", "kg", "gluten"))
	if err := data.Recipes.LoadRecipes([]*entities.Recipe{recipe}); err != nil {
		panic(err)
	}
	if err := data.Catalog.LoadItems([]*entities.InventoryItem{mustCreateItem("FLOUR", "flour", "kg")}); err != nil {
		panic(err)
	}
	return data
}
