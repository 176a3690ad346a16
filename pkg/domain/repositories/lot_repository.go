package repositories

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vsinha/batchalloc/pkg/domain/entities"
)

// LotRepository provides access to physical inventory lots
type LotRepository interface {
	// GetLot returns entities.ErrLotNotFound when the id is unknown.
	GetLot(ctx context.Context, lotID string) (*entities.Lot, error)
	// ListAvailableLots returns lots of the item with remaining quantity above zero,
	// oldest first.
	ListAvailableLots(ctx context.Context, itemID string) ([]*entities.Lot, error)
	SaveLot(ctx context.Context, lot *entities.Lot) error
	LoadLots(lots []*entities.Lot) error
	// Restock adds quantity, expressed in the lot's unit, to the lot.
	Restock(ctx context.Context, lotID string, quantity decimal.Decimal) (*entities.Lot, error)
}
