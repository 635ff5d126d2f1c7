package port

import (
	"context"

	"github.com/rl1809/smart-pantry/internal/core/domain"
)

type PantryRepository interface {
	// CreateItem persists a new pantry item
	CreateItem(ctx context.Context, item domain.PantryItem) error

	// GetItem retrieves an item by ID, returns nil if not found
	GetItem(ctx context.Context, id string) (*domain.PantryItem, error)

	// ListItems returns items ordered by expiration date ascending
	ListItems(ctx context.Context, filter domain.ListFilter, today string) ([]domain.PantryItem, error)

	// DeleteItem removes an item, returns false if nothing was deleted
	DeleteItem(ctx context.Context, id string) (bool, error)

	// RecordEvent appends a mutation to the audit log
	RecordEvent(ctx context.Context, event domain.PantryEvent) error

	// EnsureSchema creates the tables if they do not exist
	EnsureSchema(ctx context.Context) error
}
