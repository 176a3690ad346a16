package main

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/shopspring/decimal"
	"github.com/vsinha/batchalloc/pkg/application/services"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
	domainservices "github.com/vsinha/batchalloc/pkg/domain/services"
	"github.com/vsinha/batchalloc/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/batchalloc/pkg/infrastructure/repositories/memory"
)

func main() {
	ctx := context.Background()

	// Load the bakery scenario next to this file
	_, file, _, _ := runtime.Caller(0)
	scenario, err := csv.NewLoader().LoadScenario(filepath.Join(filepath.Dir(file), "bakery"))
	if err != nil {
		fmt.Printf("❌ Failed to load scenario: %v\n", err)
		return
	}

	recipes := memory.NewRecipeRepository()
	catalog := memory.NewCatalogRepository(len(scenario.Items))
	ledger := memory.NewLedgerStore()
	if err := recipes.LoadRecipes(scenario.Recipes); err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	if err := catalog.LoadItems(scenario.Items); err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	if err := ledger.LoadLots(scenario.Lots); err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}

	converter := domainservices.NewUnitConverter()
	for _, rule := range scenario.Conversions {
		if err := converter.RegisterItemConversion(rule.ItemID, rule.FromUnit, rule.ToUnit, rule.Factor); err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}
	}

	service := services.NewProductionService(services.ServiceConfig{
		Recipes:     recipes,
		Catalog:     catalog,
		Runs:        memory.NewRunRepository(),
		Lots:        ledger,
		Allocations: ledger,
		Converter:   converter,
	})

	// Sub-recipes are produced by their own runs and consumed as rework lots
	fmt.Println("🍞 Planning 15 kg of country loaf...")
	bread, err := service.StartRun(ctx, "BREAD", decimal.NewFromInt(15), "kg")
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}

	requests, err := service.SubRecipeRequests(ctx, bread.ID)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	for _, request := range requests {
		fmt.Printf("  Sub-recipe %s needs %s %s\n", request.RecipeID, request.Quantity.String(), request.Unit)

		levain, err := service.StartRun(ctx, request.RecipeID, request.Quantity, request.Unit)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}
		if _, err := service.AllocateAllRemaining(ctx, levain.ID); err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}
		lot, err := service.RecordOutput(ctx, levain.ID, request.Quantity, request.Unit)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}
		fmt.Printf("  Produced rework lot %s (%s %s, allergens %v)\n",
			lot.ID, lot.RemainingQuantity.String(), lot.Unit, lot.Allergens)

		if _, err := service.Commit(ctx, bread.ID, entities.AllocationDraft{
			LotID:    lot.ID,
			Quantity: request.Quantity,
			Unit:     request.Unit,
		}); err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}
	}
	fmt.Println()

	result, err := service.AllocateAllRemaining(ctx, bread.ID)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	fmt.Printf("📦 %s: %d allocation(s)\n", result.Outcome(), len(result.Succeeded))
	for _, allocation := range result.Succeeded {
		fmt.Printf("  %-4s %-16s %s %s\n", allocation.LineID, allocation.LotID, allocation.Quantity.String(), allocation.Unit)
	}
	fmt.Println()

	report, err := service.Report(ctx, bread.ID)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	fmt.Println("📊 Fulfillment:")
	for _, line := range report.Lines {
		fmt.Printf("  %-4s %-14s %s\n", line.LineID, line.Ingredient, line.State)
	}
	fmt.Printf("  Completion: %.0f%%\n", report.Completion*100)
	fmt.Printf("  Allergens: %v\n", report.Allergens)
}
