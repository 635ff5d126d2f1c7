package port

import (
	"context"

	"github.com/rl1809/smart-pantry/internal/core/domain"
)

type CacheRepository interface {
	// GetSnapshot returns the cached inventory snapshot, ok is false on a miss
	GetSnapshot(ctx context.Context) (items []domain.PantryItem, ok bool, err error)

	// SetSnapshot caches the full inventory in expiration order
	SetSnapshot(ctx context.Context, items []domain.PantryItem) error

	// InvalidateSnapshot drops the cached snapshot after a mutation
	InvalidateSnapshot(ctx context.Context) error

	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency frees a key whose request failed so it can be retried
	ReleaseIdempotency(ctx context.Context, key string) error
}
