package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Allocation records consumption of a lot by a production run.
// It is never modified after commit; corrections are a reverse plus a new commit.
type Allocation struct {
	ID          string
	RunID       string
	LineID      string // empty for ad-hoc consumption not tied to a recipe line
	LotID       string
	Quantity    decimal.Decimal
	Unit        string
	LotQuantity decimal.Decimal // amount debited from the lot, in the lot's unit
	IsRework    bool
	CreatedAt   time.Time
}

// IsAdHoc reports whether the allocation is not attributed to a recipe line
func (a *Allocation) IsAdHoc() bool {
	return a.LineID == ""
}

// AllocationDraft is the caller's choice of lot and quantity for one line
type AllocationDraft struct {
	LineID   string          `json:"line_id,omitempty"`
	LotID    string          `json:"lot_id" validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit" validate:"required"`
}

// BulkOutcome summarizes how much of a bulk plan was applied
type BulkOutcome int

const (
	FullyApplied BulkOutcome = iota
	PartiallyApplied
	Rejected
)

// String method for BulkOutcome enum
func (o BulkOutcome) String() string {
	switch o {
	case FullyApplied:
		return "FullyApplied"
	case PartiallyApplied:
		return "PartiallyApplied"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// BulkCommitResult reports a bulk commit that stops at its first failure.
// Entries committed before the failure stay committed.
type BulkCommitResult struct {
	Succeeded    []*Allocation
	FirstFailure *AllocationError
	FailedIndex  int // index into the plan of FirstFailure, -1 when none
	Planned      int
}

// Outcome classifies the result
func (r *BulkCommitResult) Outcome() BulkOutcome {
	switch {
	case r.FirstFailure == nil:
		return FullyApplied
	case len(r.Succeeded) > 0:
		return PartiallyApplied
	default:
		return Rejected
	}
}

// Untouched is the number of plan entries that were never attempted
func (r *BulkCommitResult) Untouched() int {
	if r.FirstFailure == nil {
		return 0
	}
	return r.Planned - r.FailedIndex - 1
}
