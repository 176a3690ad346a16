package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
	"github.com/vsinha/batchalloc/pkg/domain/repositories"
	domainservices "github.com/vsinha/batchalloc/pkg/domain/services"
	"github.com/vsinha/batchalloc/pkg/infrastructure/events"
	"github.com/vsinha/batchalloc/pkg/infrastructure/locking"
	"go.uber.org/zap"
)

// LotLocker serializes check-and-decrement on one lot
type LotLocker interface {
	Lock(ctx context.Context, lotID string) (unlock func(), err error)
}

var (
	_ LotLocker = (*locking.KeyedMutex)(nil)
	_ LotLocker = (*locking.RedisLocker)(nil)
)

// AllocationLedger is the only component that changes lot balances
type AllocationLedger struct {
	lots        repositories.LotRepository
	allocations repositories.AllocationRepository
	converter   *domainservices.UnitConverter
	locker      LotLocker
	publisher   events.Publisher
	validate    *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

// LotGuard vets a draft against the lot it names before anything is debited
type LotGuard func(draft entities.AllocationDraft, lot *entities.Lot) error

// CommitOption adjusts a single Commit or BulkCommit call
type CommitOption func(*commitOptions)

type commitOptions struct {
	guard LotGuard
}

// WithLotGuard rejects drafts for which guard returns an error, as InvalidDraft
func WithLotGuard(guard LotGuard) CommitOption {
	return func(o *commitOptions) { o.guard = guard }
}

// LedgerOption configures an AllocationLedger
type LedgerOption func(*AllocationLedger)

// WithLocker replaces the in-process lot lock
func WithLocker(locker LotLocker) LedgerOption {
	return func(l *AllocationLedger) { l.locker = locker }
}

// WithPublisher sends ledger events to publisher
func WithPublisher(publisher events.Publisher) LedgerOption {
	return func(l *AllocationLedger) { l.publisher = publisher }
}

// WithLogger sets the ledger logger
func WithLogger(logger *zap.Logger) LedgerOption {
	return func(l *AllocationLedger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the allocation timestamp source
func WithClock(now func() time.Time) LedgerOption {
	return func(l *AllocationLedger) { l.now = now }
}

// WithIDGenerator overrides allocation id generation
func WithIDGenerator(newID func() string) LedgerOption {
	return func(l *AllocationLedger) { l.newID = newID }
}

// NewAllocationLedger creates a ledger over the lot and allocation stores
func NewAllocationLedger(
	lots repositories.LotRepository,
	allocations repositories.AllocationRepository,
	converter *domainservices.UnitConverter,
	opts ...LedgerOption,
) *AllocationLedger {
	l := &AllocationLedger{
		lots:        lots,
		allocations: allocations,
		converter:   converter,
		locker:      locking.NewKeyedMutex(),
		publisher:   events.NopPublisher{},
		validate:    validator.New(),
		logger:      zap.NewNop(),
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Commit debits draft.Quantity, converted to the lot's unit, from the draft's lot.
// A rejected commit returns an *entities.AllocationError and changes nothing.
func (l *AllocationLedger) Commit(ctx context.Context, runID string, draft entities.AllocationDraft, opts ...CommitOption) (*entities.Allocation, error) {
	options := commitOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if err := l.validateDraft(runID, draft); err != nil {
		return nil, l.reject(runID, draft, entities.KindInvalidDraft, err)
	}

	unlock, err := l.locker.Lock(ctx, draft.LotID)
	if err != nil {
		return nil, l.reject(runID, draft, entities.KindStore, fmt.Errorf("failed to lock lot: %w", err))
	}
	defer unlock()

	lot, err := l.lots.GetLot(ctx, draft.LotID)
	if err != nil {
		return nil, l.reject(runID, draft, entities.KindOf(err), err)
	}
	if lot.SourceRunID == runID {
		return nil, l.reject(runID, draft, entities.KindSelfConsumption, entities.ErrSelfConsumption)
	}
	if options.guard != nil {
		if err := options.guard(draft, lot); err != nil {
			return nil, l.reject(runID, draft, entities.KindInvalidDraft, err)
		}
	}

	lotQty, err := l.converter.ConvertForItem(lot.InventoryItemID, draft.Quantity, draft.Unit, lot.Unit)
	if err != nil {
		return nil, l.reject(runID, draft, entities.KindIncompatibleUnits, err)
	}
	if !lotQty.IsPositive() {
		return nil, l.reject(runID, draft, entities.KindInvalidDraft,
			fmt.Errorf("%s %s is below the lot's precision: %w", draft.Quantity.String(), draft.Unit, entities.ErrInvalidQuantity))
	}
	if lot.RemainingQuantity.LessThan(lotQty) {
		return nil, l.reject(runID, draft, entities.KindInsufficientStock,
			fmt.Errorf("lot has %s %s, requested %s %s: %w",
				lot.RemainingQuantity.String(), lot.Unit, lotQty.String(), lot.Unit, entities.ErrInsufficientStock))
	}

	allocation := &entities.Allocation{
		ID:          l.newID(),
		RunID:       runID,
		LineID:      draft.LineID,
		LotID:       lot.ID,
		Quantity:    draft.Quantity,
		Unit:        draft.Unit,
		LotQuantity: lotQty,
		IsRework:    lot.IsRework(),
		CreatedAt:   l.now(),
	}

	if err := l.allocations.CommitAllocation(ctx, allocation); err != nil {
		return nil, l.reject(runID, draft, entities.KindOf(err), err)
	}

	l.logger.Info("allocation committed",
		zap.String("allocation_id", allocation.ID),
		zap.String("run_id", runID),
		zap.String("line_id", allocation.LineID),
		zap.String("lot_id", allocation.LotID),
		zap.String("quantity", allocation.Quantity.String()),
		zap.String("unit", allocation.Unit),
		zap.String("lot_quantity", allocation.LotQuantity.String()),
		zap.Bool("is_rework", allocation.IsRework),
	)
	l.publish(events.NewAllocationCommittedEvent(*allocation))

	return allocation, nil
}

// Reverse deletes the allocation and restores exactly the amount it debited
func (l *AllocationLedger) Reverse(ctx context.Context, allocationID string) (*entities.Allocation, error) {
	existing, err := l.allocations.GetAllocation(ctx, allocationID)
	if err != nil {
		return nil, l.rejectReverse(allocationID, err)
	}

	unlock, err := l.locker.Lock(ctx, existing.LotID)
	if err != nil {
		return nil, &entities.AllocationError{
			Kind:         entities.KindStore,
			RunID:        existing.RunID,
			LotID:        existing.LotID,
			AllocationID: allocationID,
			Err:          fmt.Errorf("failed to lock lot: %w", err),
		}
	}
	defer unlock()

	reversed, err := l.allocations.ReverseAllocation(ctx, allocationID)
	if err != nil {
		return nil, l.rejectReverse(allocationID, err)
	}

	l.logger.Info("allocation reversed",
		zap.String("allocation_id", reversed.ID),
		zap.String("run_id", reversed.RunID),
		zap.String("lot_id", reversed.LotID),
		zap.String("lot_quantity", reversed.LotQuantity.String()),
	)
	l.publish(events.NewAllocationReversedEvent(*reversed))

	return reversed, nil
}

// BulkCommit commits plan entries in order and stops at the first failure.
// Earlier successes are kept; the result says which entries were applied.
func (l *AllocationLedger) BulkCommit(ctx context.Context, runID string, plan []entities.AllocationDraft, opts ...CommitOption) *entities.BulkCommitResult {
	result := &entities.BulkCommitResult{
		Succeeded:   make([]*entities.Allocation, 0, len(plan)),
		FailedIndex: -1,
		Planned:     len(plan),
	}

	for i, draft := range plan {
		allocation, err := l.Commit(ctx, runID, draft, opts...)
		if err != nil {
			var allocErr *entities.AllocationError
			if !errors.As(err, &allocErr) {
				allocErr = &entities.AllocationError{Kind: entities.KindOf(err), RunID: runID, LineID: draft.LineID, LotID: draft.LotID, Err: err}
			}
			result.FirstFailure = allocErr
			result.FailedIndex = i
			break
		}
		result.Succeeded = append(result.Succeeded, allocation)
	}

	if result.Outcome() == entities.PartiallyApplied {
		l.logger.Warn("bulk allocation partially applied",
			zap.String("run_id", runID),
			zap.Int("succeeded", len(result.Succeeded)),
			zap.Int("failed_index", result.FailedIndex),
			zap.Int("untouched", result.Untouched()),
			zap.Error(result.FirstFailure),
		)
		l.publish(events.NewBulkPartiallyAppliedEvent(runID, result))
	}

	return result
}

// Restock adds quantity, in unit, to a lot. It is the only path that raises a
// lot balance apart from reversal.
func (l *AllocationLedger) Restock(ctx context.Context, lotID string, quantity decimal.Decimal, unit string) (*entities.Lot, error) {
	restockErr := func(kind entities.ErrorKind, err error) error {
		return &entities.AllocationError{Kind: kind, LotID: lotID, Err: err}
	}
	if !quantity.IsPositive() {
		return nil, restockErr(entities.KindInvalidDraft, entities.ErrInvalidQuantity)
	}

	unlock, err := l.locker.Lock(ctx, lotID)
	if err != nil {
		return nil, restockErr(entities.KindStore, fmt.Errorf("failed to lock lot: %w", err))
	}
	defer unlock()

	lot, err := l.lots.GetLot(ctx, lotID)
	if err != nil {
		return nil, restockErr(entities.KindOf(err), err)
	}
	lotQty, err := l.converter.ConvertForItem(lot.InventoryItemID, quantity, unit, lot.Unit)
	if err != nil {
		return nil, restockErr(entities.KindIncompatibleUnits, err)
	}

	updated, err := l.lots.Restock(ctx, lotID, lotQty)
	if err != nil {
		return nil, restockErr(entities.KindOf(err), err)
	}

	l.logger.Info("lot restocked",
		zap.String("lot_id", lotID),
		zap.String("quantity", lotQty.String()),
		zap.String("unit", lot.Unit),
		zap.String("remaining", updated.RemainingQuantity.String()),
	)
	l.publish(events.NewLotRestockedEvent(*updated, lotQty))

	return updated, nil
}

func (l *AllocationLedger) validateDraft(runID string, draft entities.AllocationDraft) error {
	if runID == "" {
		return fmt.Errorf("run id is required: %w", entities.ErrInvalidDraft)
	}
	if err := l.validate.Struct(draft); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make([]string, 0, len(validationErrors))
			for _, ve := range validationErrors {
				fields = append(fields, ve.Field()+" "+ve.Tag())
			}
			sort.Strings(fields)
			return fmt.Errorf("%s: %w", strings.Join(fields, ", "), entities.ErrInvalidDraft)
		}
		return fmt.Errorf("%v: %w", err, entities.ErrInvalidDraft)
	}
	if !draft.Quantity.IsPositive() {
		return fmt.Errorf("got %s: %w", draft.Quantity.String(), entities.ErrInvalidQuantity)
	}
	return nil
}

func (l *AllocationLedger) reject(runID string, draft entities.AllocationDraft, kind entities.ErrorKind, err error) *entities.AllocationError {
	allocErr := &entities.AllocationError{
		Kind:   kind,
		RunID:  runID,
		LineID: draft.LineID,
		LotID:  draft.LotID,
		Err:    err,
	}

	l.logger.Info("allocation rejected",
		zap.String("run_id", runID),
		zap.String("line_id", draft.LineID),
		zap.String("lot_id", draft.LotID),
		zap.String("kind", kind.String()),
		zap.Error(err),
	)
	l.publish(events.NewAllocationRejectedEvent(runID, draft, allocErr))

	return allocErr
}

func (l *AllocationLedger) rejectReverse(allocationID string, err error) *entities.AllocationError {
	return &entities.AllocationError{
		Kind:         entities.KindOf(err),
		AllocationID: allocationID,
		Err:          err,
	}
}

// publish never fails a mutation that has already been applied
func (l *AllocationLedger) publish(event events.Event) {
	if err := l.publisher.Publish(events.Stamp(event, l.now())); err != nil {
		l.logger.Warn("failed to publish event",
			zap.String("event_type", event.Type()),
			zap.String("stream_id", event.StreamID()),
			zap.Error(err),
		)
	}
}
