package events

import (
	"github.com/shopspring/decimal"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
)

// Streams are keyed by production run id, except lot events which use the lot id.
const (
	RunStartedEvent        = "run.started"
	RunRescaledEvent       = "run.rescaled"
	AllocationCommitted    = "allocation.committed"
	AllocationReversed     = "allocation.reversed"
	AllocationRejected     = "allocation.rejected"
	BulkPartiallyApplied   = "allocation.bulk_partially_applied"
	LotRestockedEvent      = "lot.restocked"
	ReworkLotProducedEvent = "lot.rework_produced"
)

type RunStarted struct {
	Run entities.ProductionRun `json:"run"`
}

type RunRescaled struct {
	RunID      string          `json:"run_id"`
	OldPlanned decimal.Decimal `json:"old_planned"`
	NewPlanned decimal.Decimal `json:"new_planned"`
	Unit       string          `json:"unit"`
}

type AllocationEvent struct {
	Allocation entities.Allocation `json:"allocation"`
}

type AllocationRejection struct {
	RunID  string                   `json:"run_id"`
	Draft  entities.AllocationDraft `json:"draft"`
	Kind   string                   `json:"kind"`
	Reason string                   `json:"reason"`
}

type BulkPartial struct {
	RunID       string `json:"run_id"`
	Succeeded   int    `json:"succeeded"`
	FailedIndex int    `json:"failed_index"`
	Untouched   int    `json:"untouched"`
}

type LotEvent struct {
	Lot      entities.Lot    `json:"lot"`
	Quantity decimal.Decimal `json:"quantity"`
}

func NewRunStartedEvent(run entities.ProductionRun) Event {
	return NewEvent(RunStartedEvent, run.ID, RunStarted{Run: run})
}

func NewRunRescaledEvent(runID string, oldPlanned, newPlanned decimal.Decimal, unit string) Event {
	return NewEvent(RunRescaledEvent, runID, RunRescaled{
		RunID:      runID,
		OldPlanned: oldPlanned,
		NewPlanned: newPlanned,
		Unit:       unit,
	})
}

func NewAllocationCommittedEvent(allocation entities.Allocation) Event {
	return NewEvent(AllocationCommitted, allocation.RunID, AllocationEvent{Allocation: allocation})
}

func NewAllocationReversedEvent(allocation entities.Allocation) Event {
	return NewEvent(AllocationReversed, allocation.RunID, AllocationEvent{Allocation: allocation})
}

func NewAllocationRejectedEvent(runID string, draft entities.AllocationDraft, err *entities.AllocationError) Event {
	return NewEvent(AllocationRejected, runID, AllocationRejection{
		RunID:  runID,
		Draft:  draft,
		Kind:   err.Kind.String(),
		Reason: err.Error(),
	})
}

func NewBulkPartiallyAppliedEvent(runID string, result *entities.BulkCommitResult) Event {
	return NewEvent(BulkPartiallyApplied, runID, BulkPartial{
		RunID:       runID,
		Succeeded:   len(result.Succeeded),
		FailedIndex: result.FailedIndex,
		Untouched:   result.Untouched(),
	})
}

func NewLotRestockedEvent(lot entities.Lot, quantity decimal.Decimal) Event {
	return NewEvent(LotRestockedEvent, lot.ID, LotEvent{Lot: lot, Quantity: quantity})
}

func NewReworkLotProducedEvent(lot entities.Lot) Event {
	return NewEvent(ReworkLotProducedEvent, lot.ID, LotEvent{Lot: lot, Quantity: lot.RemainingQuantity})
}
