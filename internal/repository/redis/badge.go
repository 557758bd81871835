package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const badgeKeyPrefix = "cart:badge:"

// BadgeRepository stores the cart item-count projection fed by the
// cart-change consumer. It is eventually consistent with the cart itself.
type BadgeRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBadgeRepository creates a Redis-backed badge projection store.
func NewBadgeRepository(client *redis.Client, ttl time.Duration) *BadgeRepository {
	return &BadgeRepository{client: client, ttl: ttl}
}

// GetBadge returns the projected item count. An absent projection reads as 0.
func (r *BadgeRepository) GetBadge(ctx context.Context, customerRef string) (int, error) {
	val, err := r.client.Get(ctx, badgeKeyPrefix+customerRef).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get badge: %w", err)
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		// A mangled projection is recoverable; the next cart change
		// rewrites it.
		return 0, nil
	}
	return count, nil
}

// SetBadge writes the projected item count.
func (r *BadgeRepository) SetBadge(ctx context.Context, customerRef string, count int) error {
	if err := r.client.Set(ctx, badgeKeyPrefix+customerRef, count, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set badge: %w", err)
	}
	return nil
}

// DeleteBadge removes the projection.
func (r *BadgeRepository) DeleteBadge(ctx context.Context, customerRef string) error {
	if err := r.client.Del(ctx, badgeKeyPrefix+customerRef).Err(); err != nil {
		return fmt.Errorf("redis del badge: %w", err)
	}
	return nil
}
