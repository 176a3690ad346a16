package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
)

type lotRow struct {
	ID             string `db:"id"`
	ItemID         string `db:"item_id"`
	RemainingMicro int64  `db:"remaining_micro"`
	Unit           string `db:"unit"`
	Allergens      string `db:"allergens"`
	SourceRunID    string `db:"source_run_id"`
	CreatedAt      int64  `db:"created_at"`
}

func newLotRow(lot *entities.Lot) (lotRow, error) {
	allergens, err := json.Marshal(append([]string{}, lot.Allergens...))
	if err != nil {
		return lotRow{}, fmt.Errorf("encode allergens for lot %s: %w", lot.ID, err)
	}
	return lotRow{
		ID:             lot.ID,
		ItemID:         lot.InventoryItemID,
		RemainingMicro: entities.ToMicroUnits(lot.RemainingQuantity),
		Unit:           lot.Unit,
		Allergens:      string(allergens),
		SourceRunID:    lot.SourceRunID,
		CreatedAt:      lot.CreatedAt.UnixNano(),
	}, nil
}

func (r lotRow) toEntity() (*entities.Lot, error) {
	var allergens []string
	if err := json.Unmarshal([]byte(r.Allergens), &allergens); err != nil {
		return nil, fmt.Errorf("decode allergens for lot %s: %w", r.ID, err)
	}
	return &entities.Lot{
		ID:                r.ID,
		InventoryItemID:   r.ItemID,
		RemainingQuantity: entities.FromMicroUnits(r.RemainingMicro),
		Unit:              r.Unit,
		Allergens:         allergens,
		SourceRunID:       r.SourceRunID,
		CreatedAt:         time.Unix(0, r.CreatedAt).UTC(),
	}, nil
}

type allocationRow struct {
	ID        string `db:"id"`
	RunID     string `db:"run_id"`
	LineID    string `db:"line_id"`
	LotID     string `db:"lot_id"`
	Quantity  string `db:"quantity"`
	Unit      string `db:"unit"`
	LotMicro  int64  `db:"lot_micro"`
	IsRework  bool   `db:"is_rework"`
	CreatedAt int64  `db:"created_at"`
	Seq       int64  `db:"seq"`
}

func newAllocationRow(a *entities.Allocation, seq int64) allocationRow {
	return allocationRow{
		ID:        a.ID,
		RunID:     a.RunID,
		LineID:    a.LineID,
		LotID:     a.LotID,
		Quantity:  a.Quantity.String(),
		Unit:      a.Unit,
		LotMicro:  entities.ToMicroUnits(a.LotQuantity),
		IsRework:  a.IsRework,
		CreatedAt: a.CreatedAt.UnixNano(),
		Seq:       seq,
	}
}

func (r allocationRow) toEntity() (*entities.Allocation, error) {
	quantity, err := decimal.NewFromString(r.Quantity)
	if err != nil {
		return nil, fmt.Errorf("decode quantity for allocation %s: %w", r.ID, err)
	}
	return &entities.Allocation{
		ID:          r.ID,
		RunID:       r.RunID,
		LineID:      r.LineID,
		LotID:       r.LotID,
		Quantity:    quantity,
		Unit:        r.Unit,
		LotQuantity: entities.FromMicroUnits(r.LotMicro),
		IsRework:    r.IsRework,
		CreatedAt:   time.Unix(0, r.CreatedAt).UTC(),
	}, nil
}
