package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/smart-pantry/internal/core/domain"
)

const (
	snapshotKey          = "pantry:snapshot"
	idempotencyKeyPrefix = "pantry:idem:"
)

type RedisOptions struct {
	SnapshotTTL    time.Duration
	IdempotencyTTL time.Duration
}

type RedisAdapter struct {
	client         *redis.Client
	snapshotTTL    time.Duration
	idempotencyTTL time.Duration
}

func NewRedisAdapter(client *redis.Client, opts RedisOptions) *RedisAdapter {
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = 5 * time.Minute
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	return &RedisAdapter{
		client:         client,
		snapshotTTL:    opts.SnapshotTTL,
		idempotencyTTL: opts.IdempotencyTTL,
	}
}

// cachedItem is the wire form of a snapshot entry.
type cachedItem struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	ExpirationDate string    `json:"expiration_date"`
	Location       string    `json:"location,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (r *RedisAdapter) GetSnapshot(ctx context.Context) ([]domain.PantryItem, bool, error) {
	raw, err := r.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get snapshot: %w", err)
	}

	var cached []cachedItem
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false, fmt.Errorf("decode snapshot: %w", err)
	}

	items := make([]domain.PantryItem, len(cached))
	for i, c := range cached {
		items[i] = domain.PantryItem{
			ID:             c.ID,
			Name:           c.Name,
			Quantity:       c.Quantity,
			ExpirationDate: c.ExpirationDate,
			Location:       c.Location,
			CreatedAt:      c.CreatedAt,
		}
	}
	return items, true, nil
}

func (r *RedisAdapter) SetSnapshot(ctx context.Context, items []domain.PantryItem) error {
	cached := make([]cachedItem, len(items))
	for i, it := range items {
		cached[i] = cachedItem{
			ID:             it.ID,
			Name:           it.Name,
			Quantity:       it.Quantity,
			ExpirationDate: it.ExpirationDate,
			Location:       it.Location,
			CreatedAt:      it.CreatedAt,
		}
	}

	raw, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return r.client.Set(ctx, snapshotKey, raw, r.snapshotTTL).Err()
}

func (r *RedisAdapter) InvalidateSnapshot(ctx context.Context) error {
	return r.client.Del(ctx, snapshotKey).Err()
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, r.idempotencyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}
