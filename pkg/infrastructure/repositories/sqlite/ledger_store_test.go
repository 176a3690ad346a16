package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
)

func openTestStore(t *testing.T) *LedgerStore {
	t.Helper()
	store, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustLot(t *testing.T, id, itemID, remaining, sourceRunID string, createdAt time.Time, allergens ...string) *entities.Lot {
	t.Helper()
	lot, err := entities.NewLot(id, itemID, decimal.RequireFromString(remaining), "kg", allergens, sourceRunID, createdAt)
	if err != nil {
		t.Fatalf("Failed to create lot: %v", err)
	}
	return lot
}

func TestLedgerStore_SaveAndGetLot(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	createdAt := time.Date(2025, 1, 2, 8, 30, 0, 0, time.UTC)

	lot := mustLot(t, "LOT-1", "FLOUR", "12.345678", "RUN-0", createdAt, "gluten", "sesame")
	if err := store.SaveLot(ctx, lot); err != nil {
		t.Fatalf("Failed to save lot: %v", err)
	}

	got, err := store.GetLot(ctx, "LOT-1")
	if err != nil {
		t.Fatalf("Failed to get lot: %v", err)
	}
	if !got.RemainingQuantity.Equal(lot.RemainingQuantity) {
		t.Errorf("Expected remaining %s, got %s", lot.RemainingQuantity, got.RemainingQuantity)
	}
	if !got.CreatedAt.Equal(createdAt) {
		t.Errorf("Expected created_at %v, got %v", createdAt, got.CreatedAt)
	}
	if len(got.Allergens) != 2 || got.Allergens[1] != "sesame" {
		t.Errorf("Expected allergens [gluten sesame], got %v", got.Allergens)
	}
	if !got.IsRework() {
		t.Error("Expected lot with source run to be rework")
	}

	if _, err := store.GetLot(ctx, "LOT-X"); !errors.Is(err, entities.ErrLotNotFound) {
		t.Errorf("Expected ErrLotNotFound, got %v", err)
	}
}

func TestLedgerStore_ListAvailableLotsFIFO(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	err := store.LoadLots([]*entities.Lot{
		mustLot(t, "LOT-C", "FLOUR", "1", "", base.Add(2*time.Hour)),
		mustLot(t, "LOT-B", "FLOUR", "1", "", base),
		mustLot(t, "LOT-A", "FLOUR", "1", "", base),
		mustLot(t, "LOT-0", "FLOUR", "0", "", base.Add(-time.Hour)),
		mustLot(t, "LOT-S", "SUGAR", "1", "", base),
	})
	if err != nil {
		t.Fatalf("Failed to load lots: %v", err)
	}

	lots, err := store.ListAvailableLots(ctx, "FLOUR")
	if err != nil {
		t.Fatalf("Failed to list lots: %v", err)
	}
	expected := []string{"LOT-A", "LOT-B", "LOT-C"}
	if len(lots) != len(expected) {
		t.Fatalf("Expected %d lots, got %d", len(expected), len(lots))
	}
	for i, id := range expected {
		if lots[i].ID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, lots[i].ID)
		}
	}
}

func TestLedgerStore_CommitReverseRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	_ = store.SaveLot(ctx, mustLot(t, "LOT-1", "FLOUR", "3", "", time.Now()))

	allocation := &entities.Allocation{
		ID:          "A1",
		RunID:       "RUN-1",
		LineID:      "L1",
		LotID:       "LOT-1",
		Quantity:    decimal.NewFromInt(1250),
		Unit:        "g",
		LotQuantity: decimal.RequireFromString("1.25"),
		IsRework:    true,
		CreatedAt:   time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.CommitAllocation(ctx, allocation); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	lot, _ := store.GetLot(ctx, "LOT-1")
	if !lot.RemainingQuantity.Equal(decimal.RequireFromString("1.75")) {
		t.Errorf("Expected remaining 1.75, got %s", lot.RemainingQuantity)
	}

	stored, err := store.GetAllocation(ctx, "A1")
	if err != nil {
		t.Fatalf("Failed to get allocation: %v", err)
	}
	if !stored.Quantity.Equal(allocation.Quantity) || stored.Unit != "g" || !stored.IsRework {
		t.Errorf("Allocation not stored as committed: %+v", stored)
	}

	if _, err := store.ReverseAllocation(ctx, "A1"); err != nil {
		t.Fatalf("Failed to reverse: %v", err)
	}
	lot, _ = store.GetLot(ctx, "LOT-1")
	if !lot.RemainingQuantity.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Expected remaining 3 after reverse, got %s", lot.RemainingQuantity)
	}
	if _, err := store.ReverseAllocation(ctx, "A1"); !errors.Is(err, entities.ErrAllocationNotFound) {
		t.Errorf("Expected ErrAllocationNotFound, got %v", err)
	}
}

func TestLedgerStore_CommitInsufficientStockLeavesLot(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	_ = store.SaveLot(ctx, mustLot(t, "LOT-1", "FLOUR", "3", "", time.Now()))

	err := store.CommitAllocation(ctx, &entities.Allocation{
		ID:          "A1",
		RunID:       "RUN-1",
		LotID:       "LOT-1",
		Quantity:    decimal.NewFromInt(5),
		Unit:        "kg",
		LotQuantity: decimal.NewFromInt(5),
	})
	if !errors.Is(err, entities.ErrInsufficientStock) {
		t.Fatalf("Expected ErrInsufficientStock, got %v", err)
	}

	lot, _ := store.GetLot(ctx, "LOT-1")
	if !lot.RemainingQuantity.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Expected lot untouched at 3, got %s", lot.RemainingQuantity)
	}
	allocations, _ := store.ListAllocationsByRun(ctx, "RUN-1")
	if len(allocations) != 0 {
		t.Errorf("Expected no allocations, got %d", len(allocations))
	}

	err = store.CommitAllocation(ctx, &entities.Allocation{
		ID: "A2", RunID: "RUN-1", LotID: "LOT-X", Quantity: decimal.NewFromInt(1), Unit: "kg", LotQuantity: decimal.NewFromInt(1),
	})
	if !errors.Is(err, entities.ErrLotNotFound) {
		t.Errorf("Expected ErrLotNotFound, got %v", err)
	}
}

func TestLedgerStore_ListAllocationsInCommitOrder(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	_ = store.SaveLot(ctx, mustLot(t, "LOT-1", "FLOUR", "10", "", time.Now()))

	for _, entry := range []struct{ id, line string }{{"A3", "L1"}, {"A1", "L2"}, {"A2", "L1"}, {"A4", ""}} {
		err := store.CommitAllocation(ctx, &entities.Allocation{
			ID: entry.id, RunID: "RUN-1", LineID: entry.line, LotID: "LOT-1",
			Quantity: decimal.NewFromInt(1), Unit: "kg", LotQuantity: decimal.NewFromInt(1),
		})
		if err != nil {
			t.Fatalf("Failed to commit %s: %v", entry.id, err)
		}
	}

	byRun, _ := store.ListAllocationsByRun(ctx, "RUN-1")
	if len(byRun) != 4 || byRun[0].ID != "A3" || byRun[3].ID != "A4" {
		t.Errorf("Unexpected run allocation order: %v", allocationIDs(byRun))
	}
	if !byRun[3].IsAdHoc() {
		t.Error("Expected allocation without line to be ad-hoc")
	}

	byLine, _ := store.ListAllocationsByLine(ctx, "RUN-1", "L1")
	if ids := allocationIDs(byLine); len(ids) != 2 || ids[0] != "A3" || ids[1] != "A2" {
		t.Errorf("Expected [A3 A2] for L1, got %v", ids)
	}
}

func TestLedgerStore_Restock(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	_ = store.SaveLot(ctx, mustLot(t, "LOT-1", "FLOUR", "0.5", "", time.Now()))

	lot, err := store.Restock(ctx, "LOT-1", decimal.RequireFromString("2.25"))
	if err != nil {
		t.Fatalf("Failed to restock: %v", err)
	}
	if !lot.RemainingQuantity.Equal(decimal.RequireFromString("2.75")) {
		t.Errorf("Expected 2.75 after restock, got %s", lot.RemainingQuantity)
	}
	if _, err := store.Restock(ctx, "LOT-X", decimal.NewFromInt(1)); !errors.Is(err, entities.ErrLotNotFound) {
		t.Errorf("Expected ErrLotNotFound, got %v", err)
	}
}

func TestLedgerStore_LoadLotsKeepsStoredBalance(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	scenario := func() []*entities.Lot {
		return []*entities.Lot{mustLot(t, "LOT-1", "FLOUR", "5", "", time.Now())}
	}

	first, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	if err := first.LoadLots(scenario()); err != nil {
		t.Fatalf("Failed to load lots: %v", err)
	}
	allocation := &entities.Allocation{
		ID:          "A1",
		RunID:       "RUN-1",
		LineID:      "L1",
		LotID:       "LOT-1",
		Quantity:    decimal.NewFromInt(2),
		Unit:        "kg",
		LotQuantity: decimal.NewFromInt(2),
		CreatedAt:   time.Now(),
	}
	if err := first.CommitAllocation(ctx, allocation); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
	first.Close()

	second, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer second.Close()
	if err := second.LoadLots(append(scenario(), mustLot(t, "LOT-2", "FLOUR", "1", "", time.Now()))); err != nil {
		t.Fatalf("Failed to reload lots: %v", err)
	}

	lot, err := second.GetLot(ctx, "LOT-1")
	if err != nil {
		t.Fatalf("Failed to get lot: %v", err)
	}
	if !lot.RemainingQuantity.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Expected stored balance 3 after reload, got %s", lot.RemainingQuantity)
	}
	if _, err := second.GetLot(ctx, "LOT-2"); err != nil {
		t.Errorf("Expected new lot to be seeded, got %v", err)
	}

	if _, err := second.ReverseAllocation(ctx, "A1"); err != nil {
		t.Fatalf("Failed to reverse: %v", err)
	}
	lot, _ = second.GetLot(ctx, "LOT-1")
	if !lot.RemainingQuantity.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected reversal to restore 5, got %s", lot.RemainingQuantity)
	}
}

func allocationIDs(allocations []*entities.Allocation) []string {
	ids := make([]string, 0, len(allocations))
	for _, a := range allocations {
		ids = append(ids, a.ID)
	}
	return ids
}
