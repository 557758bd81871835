package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Fblink88/appburguer-backend/internal/domain"
	apperrors "github.com/Fblink88/appburguer-backend/pkg/errors"
)

const (
	pendingOrderKeyPrefix   = "checkout:pending:"
	pendingPaymentKeyPrefix = "payment:pending:"
)

// MarkerRepository stores the pending-order reference and pending-payment
// marker. Both are single small JSON documents keyed by customer.
type MarkerRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMarkerRepository creates a Redis-backed marker repository. Markers
// expire after the given TTL so abandoned checkouts do not linger.
func NewMarkerRepository(client *redis.Client, ttl time.Duration) *MarkerRepository {
	return &MarkerRepository{client: client, ttl: ttl}
}

// GetPendingOrder returns the pending-order reference, or ErrNotFound when
// the customer has no order awaiting checkout.
func (r *MarkerRepository) GetPendingOrder(ctx context.Context, customerRef string) (*domain.PendingOrderRef, error) {
	var ref domain.PendingOrderRef
	if err := r.get(ctx, pendingOrderKeyPrefix+customerRef, "pending order", customerRef, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// SavePendingOrder writes the pending-order reference, replacing any prior one.
func (r *MarkerRepository) SavePendingOrder(ctx context.Context, customerRef string, ref *domain.PendingOrderRef) error {
	return r.set(ctx, pendingOrderKeyPrefix+customerRef, ref)
}

// DeletePendingOrder clears the pending-order reference.
func (r *MarkerRepository) DeletePendingOrder(ctx context.Context, customerRef string) error {
	return r.del(ctx, pendingOrderKeyPrefix+customerRef)
}

// GetPendingPayment returns the pending-payment marker, or ErrNotFound when
// no payment handoff is outstanding.
func (r *MarkerRepository) GetPendingPayment(ctx context.Context, customerRef string) (*domain.PendingPayment, error) {
	var marker domain.PendingPayment
	if err := r.get(ctx, pendingPaymentKeyPrefix+customerRef, "pending payment", customerRef, &marker); err != nil {
		return nil, err
	}
	return &marker, nil
}

// SavePendingPayment writes the pending-payment marker before the gateway
// redirect happens.
func (r *MarkerRepository) SavePendingPayment(ctx context.Context, customerRef string, marker *domain.PendingPayment) error {
	return r.set(ctx, pendingPaymentKeyPrefix+customerRef, marker)
}

// DeletePendingPayment clears the pending-payment marker.
func (r *MarkerRepository) DeletePendingPayment(ctx context.Context, customerRef string) error {
	return r.del(ctx, pendingPaymentKeyPrefix+customerRef)
}

func (r *MarkerRepository) get(ctx context.Context, key, resource, id string, dst any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return apperrors.NotFound(resource, id)
		}
		return fmt.Errorf("redis get %s: %w", resource, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s: %w", resource, err)
	}
	return nil
}

func (r *MarkerRepository) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal marker: %w", err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set marker: %w", err)
	}
	return nil
}

func (r *MarkerRepository) del(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del marker: %w", err)
	}
	return nil
}
