package repositories

import (
	"context"

	"github.com/vsinha/batchalloc/pkg/domain/entities"
)

// CatalogRepository maps ingredient references to trackable inventory items
type CatalogRepository interface {
	// FindItemForIngredient returns nil, nil when the ingredient has no mapping.
	FindItemForIngredient(ctx context.Context, ingredient string) (*entities.InventoryItem, error)
	GetItem(ctx context.Context, itemID string) (*entities.InventoryItem, error)
	LoadItems(items []*entities.InventoryItem) error
}
