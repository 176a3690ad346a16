package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
	"github.com/vsinha/batchalloc/pkg/domain/repositories"
)

// LedgerStore persists lots and allocations in SQLite
type LedgerStore struct {
	DB *sqlx.DB
}

// Verify interface compliance
var (
	_ repositories.LotRepository        = (*LedgerStore)(nil)
	_ repositories.AllocationRepository = (*LedgerStore)(nil)
)

// Open connects to the database at dsn and applies the schema.
// Use ":memory:" for a throwaway store.
func Open(ctx context.Context, dsn string) (*LedgerStore, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store %s: %w", dsn, err)
	}
	if dsn == ":memory:" {
		// each connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	store := NewLedgerStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewLedgerStore wraps an existing connection
func NewLedgerStore(db *sqlx.DB) *LedgerStore {
	return &LedgerStore{DB: db}
}

// Migrate creates the tables when missing
func (s *LedgerStore) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply sqlite schema: %w", err)
	}
	return nil
}

// Close closes the underlying database
func (s *LedgerStore) Close() error {
	return s.DB.Close()
}

// LoadLots seeds lots in one transaction. A lot already in the database keeps
// its stored balance, which matches the allocations persisted against it.
func (s *LedgerStore) LoadLots(lots []*entities.Lot) error {
	ctx := context.Background()
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, lot := range lots {
		if err := writeLot(ctx, tx, seedLotQuery, lot); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const (
	saveLotQuery = `
        INSERT INTO lots (id, item_id, remaining_micro, unit, allergens, source_run_id, created_at)
        VALUES (:id, :item_id, :remaining_micro, :unit, :allergens, :source_run_id, :created_at)
        ON CONFLICT (id) DO UPDATE SET
            item_id = excluded.item_id,
            remaining_micro = excluded.remaining_micro,
            unit = excluded.unit,
            allergens = excluded.allergens,
            source_run_id = excluded.source_run_id,
            created_at = excluded.created_at
    `
	seedLotQuery = `
        INSERT INTO lots (id, item_id, remaining_micro, unit, allergens, source_run_id, created_at)
        VALUES (:id, :item_id, :remaining_micro, :unit, :allergens, :source_run_id, :created_at)
        ON CONFLICT (id) DO NOTHING
    `
)

// SaveLot inserts or replaces a lot
func (s *LedgerStore) SaveLot(ctx context.Context, lot *entities.Lot) error {
	return writeLot(ctx, s.DB, saveLotQuery, lot)
}

func writeLot(ctx context.Context, db sqlx.ExtContext, query string, lot *entities.Lot) error {
	if lot.RemainingQuantity.IsNegative() {
		return fmt.Errorf("lot %s: remaining quantity cannot be negative", lot.ID)
	}
	row, err := newLotRow(lot)
	if err != nil {
		return err
	}

	if _, err := sqlx.NamedExecContext(ctx, db, query, row); err != nil {
		return fmt.Errorf("failed to save lot %s: %w", lot.ID, err)
	}
	return nil
}

// GetLot returns the lot with lotID
func (s *LedgerStore) GetLot(ctx context.Context, lotID string) (*entities.Lot, error) {
	return getLot(ctx, s.DB, lotID)
}

func getLot(ctx context.Context, db sqlx.QueryerContext, lotID string) (*entities.Lot, error) {
	var row lotRow
	err := sqlx.GetContext(ctx, db, &row, `SELECT * FROM lots WHERE id = ?`, lotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", entities.ErrLotNotFound, lotID)
		}
		return nil, fmt.Errorf("failed to get lot %s: %w", lotID, err)
	}
	return row.toEntity()
}

// ListAvailableLots returns lots of itemID holding stock, oldest first (FIFO)
func (s *LedgerStore) ListAvailableLots(ctx context.Context, itemID string) ([]*entities.Lot, error) {
	var rows []lotRow
	query := `SELECT * FROM lots WHERE item_id = ? AND remaining_micro > 0 ORDER BY created_at ASC, id ASC`
	if err := s.DB.SelectContext(ctx, &rows, query, itemID); err != nil {
		return nil, fmt.Errorf("failed to list lots for item %s: %w", itemID, err)
	}

	lots := make([]*entities.Lot, 0, len(rows))
	for _, row := range rows {
		lot, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, nil
}

// Restock adds quantity, in the lot's unit, to the lot
func (s *LedgerStore) Restock(ctx context.Context, lotID string, quantity decimal.Decimal) (*entities.Lot, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("restock lot %s: %w", lotID, entities.ErrInvalidQuantity)
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE lots SET remaining_micro = remaining_micro + ? WHERE id = ?`,
		entities.ToMicroUnits(quantity), lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to restock lot %s: %w", lotID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", entities.ErrLotNotFound, lotID)
	}

	lot, err := getLot(ctx, tx, lotID)
	if err != nil {
		return nil, err
	}
	return lot, tx.Commit()
}

// CommitAllocation debits the lot and records the allocation in one transaction.
// The decrement only applies when the lot still covers the amount.
func (s *LedgerStore) CommitAllocation(ctx context.Context, allocation *entities.Allocation) error {
	lotMicro := entities.ToMicroUnits(allocation.LotQuantity)
	if lotMicro <= 0 {
		return fmt.Errorf("allocation %s: %w", allocation.ID, entities.ErrInvalidQuantity)
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE lots SET remaining_micro = remaining_micro - ? WHERE id = ? AND remaining_micro >= ?`,
		lotMicro, allocation.LotID, lotMicro)
	if err != nil {
		return fmt.Errorf("failed to debit lot %s: %w", allocation.LotID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		lot, err := getLot(ctx, tx, allocation.LotID)
		if err != nil {
			return err
		}
		return fmt.Errorf("lot %s has %s %s, requested %s: %w",
			lot.ID, lot.RemainingQuantity.String(), lot.Unit, allocation.LotQuantity.String(), entities.ErrInsufficientStock)
	}

	var seq int64
	if err := tx.GetContext(ctx, &seq, `SELECT COALESCE(MAX(seq), 0) + 1 FROM allocations`); err != nil {
		return fmt.Errorf("failed to sequence allocation %s: %w", allocation.ID, err)
	}

	query := `
        INSERT INTO allocations (id, run_id, line_id, lot_id, quantity, unit, lot_micro, is_rework, created_at, seq)
        VALUES (:id, :run_id, :line_id, :lot_id, :quantity, :unit, :lot_micro, :is_rework, :created_at, :seq)
    `
	if _, err := tx.NamedExecContext(ctx, query, newAllocationRow(allocation, seq)); err != nil {
		return fmt.Errorf("failed to insert allocation %s: %w", allocation.ID, err)
	}

	return tx.Commit()
}

// ReverseAllocation deletes the allocation and credits its amount back to the lot
func (s *LedgerStore) ReverseAllocation(ctx context.Context, allocationID string) (*entities.Allocation, error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var row allocationRow
	if err := tx.GetContext(ctx, &row, `SELECT * FROM allocations WHERE id = ?`, allocationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", entities.ErrAllocationNotFound, allocationID)
		}
		return nil, fmt.Errorf("failed to get allocation %s: %w", allocationID, err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE lots SET remaining_micro = remaining_micro + ? WHERE id = ?`, row.LotMicro, row.LotID)
	if err != nil {
		return nil, fmt.Errorf("failed to credit lot %s: %w", row.LotID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", entities.ErrLotNotFound, row.LotID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM allocations WHERE id = ?`, allocationID); err != nil {
		return nil, fmt.Errorf("failed to delete allocation %s: %w", allocationID, err)
	}

	allocation, err := row.toEntity()
	if err != nil {
		return nil, err
	}
	return allocation, tx.Commit()
}

// GetAllocation returns the allocation with allocationID
func (s *LedgerStore) GetAllocation(ctx context.Context, allocationID string) (*entities.Allocation, error) {
	var row allocationRow
	if err := s.DB.GetContext(ctx, &row, `SELECT * FROM allocations WHERE id = ?`, allocationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", entities.ErrAllocationNotFound, allocationID)
		}
		return nil, fmt.Errorf("failed to get allocation %s: %w", allocationID, err)
	}
	return row.toEntity()
}

// ListAllocationsByRun returns the run's allocations in commit order
func (s *LedgerStore) ListAllocationsByRun(ctx context.Context, runID string) ([]*entities.Allocation, error) {
	return s.listAllocations(ctx, `SELECT * FROM allocations WHERE run_id = ? ORDER BY seq`, runID)
}

// ListAllocationsByLine returns the allocations of one run line in commit order
func (s *LedgerStore) ListAllocationsByLine(ctx context.Context, runID, lineID string) ([]*entities.Allocation, error) {
	return s.listAllocations(ctx, `SELECT * FROM allocations WHERE run_id = ? AND line_id = ? ORDER BY seq`, runID, lineID)
}

func (s *LedgerStore) listAllocations(ctx context.Context, query string, args ...interface{}) ([]*entities.Allocation, error) {
	var rows []allocationRow
	if err := s.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}

	allocations := make([]*entities.Allocation, 0, len(rows))
	for _, row := range rows {
		allocation, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, allocation)
	}
	return allocations, nil
}
