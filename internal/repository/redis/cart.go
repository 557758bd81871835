package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Fblink88/appburguer-backend/internal/domain"
	"github.com/Fblink88/appburguer-backend/internal/repository"
	apperrors "github.com/Fblink88/appburguer-backend/pkg/errors"
)

const cartKeyPrefix = "cart:"

// CartRepository stores the cart as a single JSON document per customer.
// The key is absent for an empty cart; Save enforces that invariant.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a Redis-backed cart repository. Carts expire
// after the given TTL of inactivity.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{client: client, ttl: ttl}
}

// Get retrieves a customer's cart.
func (r *CartRepository) Get(ctx context.Context, customerRef string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKeyPrefix+customerRef).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("cart", customerRef)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrCorrupt, err)
	}

	return &cart, nil
}

// Save replaces the persisted cart. An empty cart deletes the key so that
// absence stays the canonical empty representation.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	if cart.IsEmpty() {
		return r.Delete(ctx, cart.CustomerRef)
	}

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, cartKeyPrefix+cart.CustomerRef, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	return nil
}

// Delete removes the persisted cart.
func (r *CartRepository) Delete(ctx context.Context, customerRef string) error {
	if err := r.client.Del(ctx, cartKeyPrefix+customerRef).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}
