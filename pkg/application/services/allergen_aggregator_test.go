package services

import (
	"context"
	"reflect"
	"testing"

	testhelpers "github.com/vsinha/batchalloc/pkg/application/services/testing"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
)

func TestAllergenAggregator_RecomputedAfterReverse(t *testing.T) {
	ctx := context.Background()
	seeded := testhelpers.MustCreateLot("F-SEED", "FLOUR", "2", "kg", testhelpers.BaseTime, "", "sesame", "mustard")
	f := newFixture(t, testhelpers.BuildFlourOnlyTestData(), append(flourLots(), seeded)...)
	run := f.startRun(t, "ROLLS", "15", "kg")

	first, err := f.service.Commit(ctx, run.ID, draft("L1", "F-NEW", "1", "kg"))
	if err != nil {
		t.Fatalf("Failed to commit F-NEW: %v", err)
	}
	second, err := f.service.Commit(ctx, run.ID, draft("L1", "F-SEED", "1", "kg"))
	if err != nil {
		t.Fatalf("Failed to commit F-SEED: %v", err)
	}

	steps := []struct {
		name    string
		reverse string
		want    []string
	}{
		{name: "both_lots", want: []string{"gluten", "mustard", "sesame"}},
		{name: "shared_tag_survives", reverse: second.ID, want: []string{"gluten", "sesame"}},
		{name: "declared_only", reverse: first.ID, want: []string{"gluten"}},
	}

	for _, step := range steps {
		if step.reverse != "" {
			if _, err := f.service.Reverse(ctx, step.reverse); err != nil {
				t.Fatalf("%s: failed to reverse: %v", step.name, err)
			}
		}
		allergens, err := f.service.EffectiveAllergens(ctx, run.ID)
		if err != nil {
			t.Fatalf("%s: failed to get allergens: %v", step.name, err)
		}
		if got := allergens.Sorted(); !reflect.DeepEqual(got, step.want) {
			t.Errorf("%s: expected %v, got %v", step.name, step.want, got)
		}
	}
}

func TestAllergenAggregator_SupersetOfLotsAndDeclared(t *testing.T) {
	ctx := context.Background()
	milk := testhelpers.MustCreateLot("M-1", "MILK", "2", "l", testhelpers.BaseTime, "", "milk", "soy")
	f := newFixture(t, testhelpers.BuildBakeryTestData(), append(flourLots(), milk)...)
	run := f.startRun(t, "BREAD", "10", "kg")

	for _, d := range []entities.AllocationDraft{
		draft("L1", "F-NEW", "2", "kg"),
		draft("L2", "M-1", "500", "ml"),
	} {
		if _, err := f.service.Commit(ctx, run.ID, d); err != nil {
			t.Fatalf("Failed to commit %s: %v", d.LotID, err)
		}
	}

	allergens, err := f.service.EffectiveAllergens(ctx, run.ID)
	if err != nil {
		t.Fatalf("Failed to get allergens: %v", err)
	}

	recipe, _ := f.data.Recipes.GetRecipe(ctx, "BREAD")
	if !allergens.IsSupersetOf(recipe.DeclaredAllergens()) {
		t.Errorf("Expected %v to cover declared %v", allergens.Sorted(), recipe.DeclaredAllergens().Sorted())
	}
	for _, lotID := range []string{"F-NEW", "M-1"} {
		lot, _ := f.data.Ledger.GetLot(ctx, lotID)
		if !allergens.IsSupersetOf(entities.NewAllergenSet(lot.Allergens...)) {
			t.Errorf("Expected %v to cover lot %s allergens %v", allergens.Sorted(), lotID, lot.Allergens)
		}
	}
}

func TestAllergenAggregator_UnknownRun(t *testing.T) {
	f := newFixture(t, testhelpers.BuildFlourOnlyTestData())

	if _, err := f.service.EffectiveAllergens(context.Background(), "RUN-X"); err == nil {
		t.Error("Expected error for unknown run")
	}
}
