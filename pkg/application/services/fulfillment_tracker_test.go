package services

import (
	"context"
	"testing"
	"time"

	testhelpers "github.com/vsinha/batchalloc/pkg/application/services/testing"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
)

func TestFulfillmentTracker_SingleLotFulfillsLine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testhelpers.BuildFlourOnlyTestData(), flourLots()...)
	run := f.startRun(t, "ROLLS", "15", "kg")

	status, err := f.service.Status(ctx, run.ID, "L1")
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	if status.State != entities.Unfulfilled || !status.Needed.Equal(testhelpers.Qty("3")) {
		t.Fatalf("Expected Unfulfilled with need 3, got %v need %s", status.State, status.Needed)
	}

	if _, err := f.service.Commit(ctx, run.ID, draft("L1", "F-OLD", "3", "kg")); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	status, err = f.service.Status(ctx, run.ID, "L1")
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	if status.State != entities.Fulfilled {
		t.Errorf("Expected Fulfilled, got %v", status.State)
	}
	completion, err := f.service.AggregateCompletion(ctx, run.ID)
	if err != nil {
		t.Fatalf("Failed to get completion: %v", err)
	}
	if completion != 1.0 {
		t.Errorf("Expected completion 1.0, got %v", completion)
	}
	if got := f.remaining(t, "F-OLD"); got != "0" {
		t.Errorf("Expected F-OLD drained, got %s", got)
	}
}

func TestFulfillmentTracker_PurchasedAndReworkLots(t *testing.T) {
	ctx := context.Background()
	rework := testhelpers.MustCreateLot("F-RW", "FLOUR", "4", "kg", testhelpers.BaseTime.Add(time.Hour), "RUN-EARLIER", "egg")
	f := newFixture(t, testhelpers.BuildFlourOnlyTestData(), append(flourLots(), rework)...)
	run := f.startRun(t, "ROLLS", "15", "kg")

	steps := []struct {
		draft entities.AllocationDraft
		want  entities.FulfillmentState
	}{
		{draft: draft("L1", "F-OLD", "1", "kg"), want: entities.Partial},
		{draft: draft("L1", "F-RW", "2000", "g"), want: entities.Fulfilled},
	}

	for i, step := range steps {
		allocation, err := f.service.Commit(ctx, run.ID, step.draft)
		if err != nil {
			t.Fatalf("Step %d: failed to commit: %v", i, err)
		}
		if allocation.IsRework != (step.draft.LotID == "F-RW") {
			t.Errorf("Step %d: unexpected rework flag %v", i, allocation.IsRework)
		}
		status, err := f.service.Status(ctx, run.ID, "L1")
		if err != nil {
			t.Fatalf("Step %d: failed to get status: %v", i, err)
		}
		if status.State != step.want {
			t.Errorf("Step %d: expected %v, got %v (allocated %s)", i, step.want, status.State, status.Allocated)
		}
	}

	allergens, err := f.service.EffectiveAllergens(ctx, run.ID)
	if err != nil {
		t.Fatalf("Failed to get allergens: %v", err)
	}
	for _, tag := range []string{"gluten", "egg"} {
		if !allergens.Contains(tag) {
			t.Errorf("Expected allergen %s in %v", tag, allergens.Sorted())
		}
	}
	if allergens.Contains("sesame") {
		t.Errorf("Did not expect sesame from untouched F-NEW, got %v", allergens.Sorted())
	}
}

func TestFulfillmentTracker_MonotonicUnderCommits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testhelpers.BuildFlourOnlyTestData(), flourLots()...)
	run := f.startRun(t, "ROLLS", "15", "kg")

	rank := map[entities.FulfillmentState]int{entities.Unfulfilled: 0, entities.Partial: 1, entities.Fulfilled: 2}
	previous := entities.Unfulfilled
	for _, d := range []entities.AllocationDraft{
		draft("L1", "F-OLD", "500", "g"),
		draft("L1", "F-OLD", "1", "kg"),
		draft("L1", "F-NEW", "1.5", "kg"),
		draft("L1", "F-NEW", "2", "kg"),
	} {
		if _, err := f.service.Commit(ctx, run.ID, d); err != nil {
			t.Fatalf("Failed to commit %v: %v", d, err)
		}
		status, err := f.service.Status(ctx, run.ID, "L1")
		if err != nil {
			t.Fatalf("Failed to get status: %v", err)
		}
		if rank[status.State] < rank[previous] {
			t.Errorf("State regressed from %v to %v", previous, status.State)
		}
		previous = status.State
	}
	if previous != entities.Fulfilled {
		t.Errorf("Expected over-allocated line to stay Fulfilled, got %v", previous)
	}
}

func TestFulfillmentTracker_Report(t *testing.T) {
	ctx := context.Background()
	milk := testhelpers.MustCreateLot("M-1", "MILK", "2", "l", testhelpers.BaseTime, "", "milk")
	f := newFixture(t, testhelpers.BuildBakeryTestData(), append(flourLots(), milk)...)
	run := f.startRun(t, "BREAD", "10", "kg")

	if _, err := f.service.Commit(ctx, run.ID, draft("L1", "F-OLD", "2", "kg")); err != nil {
		t.Fatalf("Failed to commit flour: %v", err)
	}
	if _, err := f.service.Commit(ctx, run.ID, draft("", "F-NEW", "100", "g")); err != nil {
		t.Fatalf("Failed to commit ad-hoc: %v", err)
	}

	report, err := f.service.Report(ctx, run.ID)
	if err != nil {
		t.Fatalf("Failed to build report: %v", err)
	}

	want := map[string]entities.FulfillmentState{
		"L1": entities.Fulfilled,
		"L2": entities.Unfulfilled,
		"L3": entities.NotTrackable,
		"L4": entities.NotTrackable,
	}
	if len(report.Lines) != len(want) {
		t.Fatalf("Expected %d lines, got %d", len(want), len(report.Lines))
	}
	for _, line := range report.Lines {
		if line.State != want[line.LineID] {
			t.Errorf("Line %s: expected %v, got %v", line.LineID, want[line.LineID], line.State)
		}
		if line.State == entities.NotTrackable && line.Reason == "" {
			t.Errorf("Line %s: expected a reason for NotTrackable", line.LineID)
		}
	}
	if report.Lines[1].Needed.String() != "0.515" {
		t.Errorf("Expected milk need 0.515 kg, got %s", report.Lines[1].Needed)
	}
	if report.Lines[2].Ingredient != "LEVAIN" {
		t.Errorf("Expected sub-recipe line to name LEVAIN, got %q", report.Lines[2].Ingredient)
	}

	if report.TrackableLines != 2 || report.FulfilledLines != 1 || report.Completion != 0.5 {
		t.Errorf("Expected 1 of 2 trackable lines, got %d/%d (%v)", report.FulfilledLines, report.TrackableLines, report.Completion)
	}
	if len(report.AdHocAllocations) != 1 {
		t.Errorf("Expected 1 ad-hoc allocation, got %d", len(report.AdHocAllocations))
	}

	allergens := map[string]bool{}
	for _, tag := range report.Allergens {
		allergens[tag] = true
	}
	for _, tag := range []string{"gluten", "milk", "sesame"} {
		if !allergens[tag] {
			t.Errorf("Expected allergen %s in report, got %v", tag, report.Allergens)
		}
	}
}

func TestFulfillmentTracker_NoTrackableLines(t *testing.T) {
	ctx := context.Background()
	data := testhelpers.BuildFlourOnlyTestData()
	spice := testhelpers.MustCreateRecipe("SPICE", "1", "kg", nil)
	if err := data.Recipes.LoadRecipes([]*entities.Recipe{spice}); err != nil {
		t.Fatalf("Failed to load recipe: %v", err)
	}
	f := newFixture(t, data)
	run := f.startRun(t, "SPICE", "1", "kg")

	completion, err := f.service.AggregateCompletion(ctx, run.ID)
	if err != nil {
		t.Fatalf("Failed to get completion: %v", err)
	}
	if completion != 0 {
		t.Errorf("Expected completion 0 with no trackable lines, got %v", completion)
	}
}

func TestFulfillmentTracker_NeedsAttention(t *testing.T) {
	ctx := context.Background()
	data := testhelpers.BuildFlourOnlyTestData()
	eggs := testhelpers.MustCreateRecipe("OMELETTE", "1", "kg", nil,
		mustLine(t, "E1", "flour", "3", "pcs"))
	if err := data.Recipes.LoadRecipes([]*entities.Recipe{eggs}); err != nil {
		t.Fatalf("Failed to load recipe: %v", err)
	}
	f := newFixture(t, data, flourLots()...)
	run := f.startRun(t, "OMELETTE", "1", "kg")

	status, err := f.service.Status(ctx, run.ID, "E1")
	if err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	if status.State != entities.NeedsAttention || status.Reason == "" {
		t.Errorf("Expected NeedsAttention with reason, got %v %q", status.State, status.Reason)
	}

	completion, err := f.service.AggregateCompletion(ctx, run.ID)
	if err != nil {
		t.Fatalf("Failed to get completion: %v", err)
	}
	if completion != 0 {
		t.Errorf("Expected NeedsAttention line to count as unfulfilled, got %v", completion)
	}
}

func mustLine(t *testing.T, id, ingredient, qty, unit string, allergens ...string) entities.RecipeLine {
	t.Helper()
	line, err := entities.NewRecipeLine(id, ingredient, testhelpers.Qty(qty), unit, allergens...)
	if err != nil {
		t.Fatalf("Failed to create line: %v", err)
	}
	return *line
}
