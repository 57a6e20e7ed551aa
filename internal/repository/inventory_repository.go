package repository

import (
	"context"
	"errors"
	"slices"
	"sync"

	"parts-finder/internal/domain"

	"github.com/samber/lo"
)

var (
	ErrItemNotFound = errors.New("inventory item not found")
)

// InventoryRepository defines the interface for inventory data access
type InventoryRepository interface {
	Append(ctx context.Context, items []domain.InventoryItem) (int, error)
	List(ctx context.Context) ([]domain.InventoryItem, error)
	FindByID(ctx context.Context, id string) (*domain.InventoryItem, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// inventoryRepository owns the in-memory collection. Writers are serialized
// and readers always get a copy, so callers never share the backing array.
type inventoryRepository struct {
	mu    sync.RWMutex
	items []domain.InventoryItem
}

// NewInventoryRepository creates an empty in-memory inventory
func NewInventoryRepository() InventoryRepository {
	return &inventoryRepository{items: []domain.InventoryItem{}}
}

// Append adds a batch atomically and returns the new collection size.
// Items are never deduplicated by part number.
func (r *inventoryRepository) Append(ctx context.Context, items []domain.InventoryItem) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, items...)
	return len(r.items), nil
}

// List returns a snapshot of the collection in insertion order
func (r *inventoryRepository) List(ctx context.Context) ([]domain.InventoryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.items), nil
}

// FindByID retrieves an item by its identifier
func (r *inventoryRepository) FindByID(ctx context.Context, id string) (*domain.InventoryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := lo.Find(r.items, func(it domain.InventoryItem) bool {
		return it.ID == id
	})
	if !ok {
		return nil, ErrItemNotFound
	}

	return &item, nil
}

// Count returns the collection size
func (r *inventoryRepository) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items), nil
}

// Clear discards the whole collection
func (r *inventoryRepository) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = []domain.InventoryItem{}
	return nil
}
