package repositories

import (
	"context"

	"github.com/vsinha/batchalloc/pkg/domain/entities"
)

// AllocationRepository persists allocations together with the lot balance they consume
type AllocationRepository interface {
	// GetAllocation returns entities.ErrAllocationNotFound when the id is unknown.
	GetAllocation(ctx context.Context, allocationID string) (*entities.Allocation, error)
	ListAllocationsByRun(ctx context.Context, runID string) ([]*entities.Allocation, error)
	ListAllocationsByLine(ctx context.Context, runID, lineID string) ([]*entities.Allocation, error)

	// CommitAllocation decrements the lot by allocation.LotQuantity and inserts the
	// allocation as one atomic step. The decrement is conditional on the result
	// staying non-negative; otherwise entities.ErrInsufficientStock is returned and
	// nothing changes.
	CommitAllocation(ctx context.Context, allocation *entities.Allocation) error

	// ReverseAllocation deletes the allocation and restores its LotQuantity to the
	// lot as one atomic step.
	ReverseAllocation(ctx context.Context, allocationID string) (*entities.Allocation, error)
}
