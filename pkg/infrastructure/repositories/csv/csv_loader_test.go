package csv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoader_LoadScenario(t *testing.T) {
	loader := NewLoader()
	scenario, err := loader.LoadScenario(filepath.Join("testdata", "bakery"))
	if err != nil {
		t.Fatalf("Failed to load scenario: %v", err)
	}

	if len(scenario.Recipes) != 2 {
		t.Fatalf("Expected 2 recipes, got %d", len(scenario.Recipes))
	}

	bread := scenario.Recipes[0]
	if bread.ID != "BREAD" || !bread.YieldQuantity.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Unexpected bread recipe: %+v", bread)
	}
	if len(bread.Lines) != 4 {
		t.Fatalf("Expected 4 bread lines, got %d", len(bread.Lines))
	}

	expectedOrder := []string{"L1", "L2", "L3", "L4"}
	for i, id := range expectedOrder {
		if bread.Lines[i].ID != id {
			t.Errorf("Line %d: expected %s, got %s", i, id, bread.Lines[i].ID)
		}
	}
	if !bread.Lines[2].IsSubRecipe || bread.Lines[2].SubRecipeID != "STARTER" {
		t.Errorf("Expected L3 to reference sub-recipe STARTER, got %+v", bread.Lines[2])
	}

	if len(scenario.Items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(scenario.Items))
	}

	if len(scenario.Lots) != 3 {
		t.Fatalf("Expected 3 lots, got %d", len(scenario.Lots))
	}
	if got := scenario.Lots[1].Allergens; len(got) != 2 || got[1] != "sesame" {
		t.Errorf("Expected LOT-F2 allergens [gluten sesame], got %v", got)
	}
	if scenario.Lots[1].CreatedAt.Hour() != 8 {
		t.Errorf("Expected RFC 3339 timestamp to keep its hour, got %v", scenario.Lots[1].CreatedAt)
	}

	if len(scenario.Conversions) != 1 || !scenario.Conversions[0].Factor.Equal(decimal.RequireFromString("1.03")) {
		t.Errorf("Unexpected conversions: %+v", scenario.Conversions)
	}
}

func TestLoader_ConversionsOptional(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{RecipesFile, RecipeLinesFile, ItemsFile, LotsFile} {
		data, err := os.ReadFile(filepath.Join("testdata", "bakery", name))
		if err != nil {
			t.Fatalf("Failed to read fixture %s: %v", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatalf("Failed to write fixture %s: %v", name, err)
		}
	}

	scenario, err := NewLoader().LoadScenario(dir)
	if err != nil {
		t.Fatalf("Failed to load scenario without conversions: %v", err)
	}
	if len(scenario.Conversions) != 0 {
		t.Errorf("Expected no conversions, got %d", len(scenario.Conversions))
	}
}

func TestLoader_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		load    func(l *Loader, path string) error
	}{
		{
			name:    "header_mismatch",
			file:    ItemsFile,
			content: "id,name\nA,B\n",
			load: func(l *Loader, path string) error {
				_, err := l.LoadItems(path)
				return err
			},
		},
		{
			name:    "bad_quantity",
			file:    LotsFile,
			content: "lot_id,item_id,remaining_quantity,unit,allergens,source_run_id,created_at\nL1,I1,lots,kg,,,2025-01-01\n",
			load: func(l *Loader, path string) error {
				_, err := l.LoadLots(path)
				return err
			},
		},
		{
			name:    "bad_date",
			file:    LotsFile,
			content: "lot_id,item_id,remaining_quantity,unit,allergens,source_run_id,created_at\nL1,I1,1,kg,,,01/02/2025\n",
			load: func(l *Loader, path string) error {
				_, err := l.LoadLots(path)
				return err
			},
		},
		{
			name:    "negative_factor",
			file:    ConversionsFile,
			content: "item_id,from_unit,to_unit,factor\nI1,l,kg,-1\n",
			load: func(l *Loader, path string) error {
				_, err := l.LoadConversions(path)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("Failed to write file: %v", err)
			}
			if err := tt.load(NewLoader(), path); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}
