package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
	"github.com/vsinha/batchalloc/pkg/domain/repositories"
)

// LedgerStore keeps lots and the allocations against them behind one mutex,
// so a balance change and its ledger entry are applied together.
type LedgerStore struct {
	mu          sync.RWMutex
	lots        map[string]*entities.Lot
	lotsByItem  map[string][]string
	allocations map[string]*entities.Allocation
	byRun       map[string][]string
}

// NewLedgerStore creates an empty in-memory lot and allocation store
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		lots:        make(map[string]*entities.Lot),
		lotsByItem:  make(map[string][]string),
		allocations: make(map[string]*entities.Allocation),
		byRun:       make(map[string][]string),
	}
}

// Verify interface compliance
var (
	_ repositories.LotRepository        = (*LedgerStore)(nil)
	_ repositories.AllocationRepository = (*LedgerStore)(nil)
)

// LoadLots loads lots into the store
func (s *LedgerStore) LoadLots(lots []*entities.Lot) error {
	for _, lot := range lots {
		if err := s.SaveLot(context.Background(), lot); err != nil {
			return err
		}
	}
	return nil
}

// SaveLot inserts or replaces a lot
func (s *LedgerStore) SaveLot(ctx context.Context, lot *entities.Lot) error {
	if lot.RemainingQuantity.IsNegative() {
		return fmt.Errorf("lot %s: remaining quantity cannot be negative", lot.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.lots[lot.ID]; exists {
		if existing.InventoryItemID != lot.InventoryItemID {
			s.removeFromItem(existing.InventoryItemID, lot.ID)
			s.lotsByItem[lot.InventoryItemID] = append(s.lotsByItem[lot.InventoryItemID], lot.ID)
		}
	} else {
		s.lotsByItem[lot.InventoryItemID] = append(s.lotsByItem[lot.InventoryItemID], lot.ID)
	}
	s.lots[lot.ID] = lot.Clone()
	return nil
}

func (s *LedgerStore) removeFromItem(itemID, lotID string) {
	ids := s.lotsByItem[itemID]
	for i, id := range ids {
		if id == lotID {
			s.lotsByItem[itemID] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// GetLot returns a copy of the lot with lotID
func (s *LedgerStore) GetLot(ctx context.Context, lotID string) (*entities.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lot, exists := s.lots[lotID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", entities.ErrLotNotFound, lotID)
	}
	return lot.Clone(), nil
}

// ListAvailableLots returns lots of itemID holding stock, oldest first (FIFO)
func (s *LedgerStore) ListAvailableLots(ctx context.Context, itemID string) ([]*entities.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var available []*entities.Lot
	for _, id := range s.lotsByItem[itemID] {
		lot := s.lots[id]
		if lot.Available() {
			available = append(available, lot.Clone())
		}
	}

	sort.Slice(available, func(i, j int) bool {
		if !available[i].CreatedAt.Equal(available[j].CreatedAt) {
			return available[i].CreatedAt.Before(available[j].CreatedAt)
		}
		return available[i].ID < available[j].ID
	})

	return available, nil
}

// Restock adds quantity, in the lot's unit, to the lot
func (s *LedgerStore) Restock(ctx context.Context, lotID string, quantity decimal.Decimal) (*entities.Lot, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("restock lot %s: %w", lotID, entities.ErrInvalidQuantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lot, exists := s.lots[lotID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", entities.ErrLotNotFound, lotID)
	}
	lot.RemainingQuantity = entities.RoundConverted(lot.RemainingQuantity.Add(quantity))
	return lot.Clone(), nil
}

// CommitAllocation debits the lot and records the allocation in one step
func (s *LedgerStore) CommitAllocation(ctx context.Context, allocation *entities.Allocation) error {
	if !allocation.LotQuantity.IsPositive() {
		return fmt.Errorf("allocation %s: %w", allocation.ID, entities.ErrInvalidQuantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.allocations[allocation.ID]; exists {
		return fmt.Errorf("allocation %s already exists", allocation.ID)
	}
	lot, exists := s.lots[allocation.LotID]
	if !exists {
		return fmt.Errorf("%w: %s", entities.ErrLotNotFound, allocation.LotID)
	}
	if lot.RemainingQuantity.LessThan(allocation.LotQuantity) {
		return fmt.Errorf("lot %s has %s %s, requested %s: %w",
			lot.ID, lot.RemainingQuantity.String(), lot.Unit, allocation.LotQuantity.String(), entities.ErrInsufficientStock)
	}

	lot.RemainingQuantity = lot.RemainingQuantity.Sub(allocation.LotQuantity)
	stored := *allocation
	s.allocations[stored.ID] = &stored
	s.byRun[stored.RunID] = append(s.byRun[stored.RunID], stored.ID)
	return nil
}

// ReverseAllocation removes the allocation and returns its quantity to the lot
func (s *LedgerStore) ReverseAllocation(ctx context.Context, allocationID string) (*entities.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	allocation, exists := s.allocations[allocationID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", entities.ErrAllocationNotFound, allocationID)
	}
	lot, exists := s.lots[allocation.LotID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", entities.ErrLotNotFound, allocation.LotID)
	}

	lot.RemainingQuantity = lot.RemainingQuantity.Add(allocation.LotQuantity)
	delete(s.allocations, allocationID)
	ids := s.byRun[allocation.RunID]
	for i, id := range ids {
		if id == allocationID {
			s.byRun[allocation.RunID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}

	reversed := *allocation
	return &reversed, nil
}

// GetAllocation returns a copy of the allocation with allocationID
func (s *LedgerStore) GetAllocation(ctx context.Context, allocationID string) (*entities.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allocation, exists := s.allocations[allocationID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", entities.ErrAllocationNotFound, allocationID)
	}
	result := *allocation
	return &result, nil
}

// ListAllocationsByRun returns the run's allocations in commit order
func (s *LedgerStore) ListAllocationsByRun(ctx context.Context, runID string) ([]*entities.Allocation, error) {
	return s.listAllocations(runID, func(*entities.Allocation) bool { return true }), nil
}

// ListAllocationsByLine returns the allocations of one run line in commit order
func (s *LedgerStore) ListAllocationsByLine(ctx context.Context, runID, lineID string) ([]*entities.Allocation, error) {
	return s.listAllocations(runID, func(a *entities.Allocation) bool { return a.LineID == lineID }), nil
}

func (s *LedgerStore) listAllocations(runID string, keep func(*entities.Allocation) bool) []*entities.Allocation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*entities.Allocation
	for _, id := range s.byRun[runID] {
		allocation := s.allocations[id]
		if keep(allocation) {
			copied := *allocation
			result = append(result, &copied)
		}
	}
	return result
}
