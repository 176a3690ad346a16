package services

import (
	"context"
	"testing"
	"time"

	testhelpers "github.com/vsinha/batchalloc/pkg/application/services/testing"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
	"github.com/vsinha/batchalloc/pkg/infrastructure/repositories/memory"
)

func TestBatchSelector_Candidates(t *testing.T) {
	store := memory.NewLedgerStore()
	base := testhelpers.BaseTime
	err := store.LoadLots([]*entities.Lot{
		testhelpers.MustCreateLot("NEWEST", "FLOUR", "4", "kg", base.Add(72*time.Hour), ""),
		testhelpers.MustCreateLot("OWN-OUTPUT", "FLOUR", "500", "kg", base.Add(-time.Hour), "RUN-1"),
		testhelpers.MustCreateLot("REWORK", "FLOUR", "2", "kg", base.Add(24*time.Hour), "RUN-0"),
		testhelpers.MustCreateLot("OLDEST", "FLOUR", "1", "kg", base, ""),
		testhelpers.MustCreateLot("EMPTY", "FLOUR", "0", "kg", base.Add(-48*time.Hour), ""),
		testhelpers.MustCreateLot("OTHER-ITEM", "SUGAR", "9", "kg", base, ""),
	})
	if err != nil {
		t.Fatalf("Failed to load lots: %v", err)
	}
	selector := NewBatchSelector(store)

	tests := []struct {
		name        string
		excludeRun  string
		opts        []CandidateOption
		expectedIDs []string
	}{
		{
			name:        "excludes_own_output_even_with_ample_stock",
			excludeRun:  "RUN-1",
			expectedIDs: []string{"OLDEST", "REWORK", "NEWEST"},
		},
		{
			name:        "other_run_sees_that_output",
			excludeRun:  "RUN-2",
			expectedIDs: []string{"OWN-OUTPUT", "OLDEST", "REWORK", "NEWEST"},
		},
		{
			name:        "without_rework",
			excludeRun:  "RUN-1",
			opts:        []CandidateOption{WithoutRework()},
			expectedIDs: []string{"OLDEST", "NEWEST"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates, err := selector.Candidates(context.Background(), "FLOUR", tt.excludeRun, tt.opts...)
			if err != nil {
				t.Fatalf("Failed to list candidates: %v", err)
			}
			if len(candidates) != len(tt.expectedIDs) {
				t.Fatalf("Expected %v, got %d candidates", tt.expectedIDs, len(candidates))
			}
			for i, id := range tt.expectedIDs {
				if candidates[i].Lot.ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, candidates[i].Lot.ID)
				}
				if candidates[i].IsRework != candidates[i].Lot.IsRework() {
					t.Errorf("Lot %s: rework tag does not match source run", id)
				}
			}
		})
	}
}

func TestBatchSelector_DoesNotAllocate(t *testing.T) {
	store := memory.NewLedgerStore()
	_ = store.LoadLots([]*entities.Lot{testhelpers.MustCreateLot("L", "FLOUR", "4", "kg", testhelpers.BaseTime, "")})

	if _, err := NewBatchSelector(store).Candidates(context.Background(), "FLOUR", ""); err != nil {
		t.Fatalf("Failed to list candidates: %v", err)
	}
	lot, _ := store.GetLot(context.Background(), "L")
	if !lot.RemainingQuantity.Equal(testhelpers.Qty("4")) {
		t.Errorf("Expected lot untouched, got %s", lot.RemainingQuantity)
	}
}
