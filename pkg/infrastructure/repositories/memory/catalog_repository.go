package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vsinha/batchalloc/pkg/domain/entities"
	"github.com/vsinha/batchalloc/pkg/domain/repositories"
)

// CatalogRepository provides in-memory inventory item storage
type CatalogRepository struct {
	mu           sync.RWMutex
	items        []entities.InventoryItem
	itemsMap     map[string]int
	ingredients  map[string]int
}

// NewCatalogRepository creates a new in-memory catalog repository
func NewCatalogRepository(expectedItems int) *CatalogRepository {
	return &CatalogRepository{
		items:       make([]entities.InventoryItem, 0, expectedItems),
		itemsMap:    make(map[string]int, expectedItems),
		ingredients: make(map[string]int, expectedItems),
	}
}

// Verify interface compliance
var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

// LoadItems loads items into the repository
func (r *CatalogRepository) LoadItems(items []*entities.InventoryItem) error {
	for _, item := range items {
		if err := r.AddItem(*item); err != nil {
			return err
		}
	}
	return nil
}

// AddItem adds an item; an ingredient maps to at most one item
func (r *CatalogRepository) AddItem(item entities.InventoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := ingredientKey(item.Ingredient)
	if index, exists := r.ingredients[key]; exists && r.items[index].ID != item.ID {
		return fmt.Errorf("ingredient %s is already mapped to item %s", item.Ingredient, r.items[index].ID)
	}
	if index, exists := r.itemsMap[item.ID]; exists {
		r.items[index] = item
		r.ingredients[key] = index
		return nil
	}
	r.itemsMap[item.ID] = len(r.items)
	r.ingredients[key] = len(r.items)
	r.items = append(r.items, item)
	return nil
}

// FindItemForIngredient returns the item mapped to ingredient, nil when unmapped
func (r *CatalogRepository) FindItemForIngredient(ctx context.Context, ingredient string) (*entities.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, exists := r.ingredients[ingredientKey(ingredient)]
	if !exists {
		return nil, nil
	}
	item := r.items[index]
	return &item, nil
}

// GetItem returns the item with itemID
func (r *CatalogRepository) GetItem(ctx context.Context, itemID string) (*entities.InventoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index, exists := r.itemsMap[itemID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", entities.ErrItemNotFound, itemID)
	}
	item := r.items[index]
	return &item, nil
}

func ingredientKey(ingredient string) string {
	return strings.ToLower(strings.TrimSpace(ingredient))
}
