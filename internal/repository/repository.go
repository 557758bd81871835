package repository

import (
	"context"
	"errors"

	"github.com/Fblink88/appburguer-backend/internal/domain"
)

// ErrCorrupt is returned when a persisted cart exists but cannot be decoded.
// Callers treat it as an empty cart rather than an error surface.
var ErrCorrupt = errors.New("persisted cart is corrupt")

// CartRepository persists the cart as a whole (replace-on-write). An absent
// cart is the canonical representation of an empty cart.
type CartRepository interface {
	// Get returns the cart, ErrNotFound when none is persisted, or
	// ErrCorrupt when the stored payload cannot be decoded.
	Get(ctx context.Context, customerRef string) (*domain.Cart, error)
	// Save replaces the persisted cart. Saving an empty cart removes the
	// persisted representation entirely.
	Save(ctx context.Context, cart *domain.Cart) error
	// Delete removes the persisted cart. Deleting an absent cart is a no-op.
	Delete(ctx context.Context, customerRef string) error
}

// MarkerRepository persists the pending-order reference and pending-payment
// marker for a customer.
type MarkerRepository interface {
	GetPendingOrder(ctx context.Context, customerRef string) (*domain.PendingOrderRef, error)
	SavePendingOrder(ctx context.Context, customerRef string, ref *domain.PendingOrderRef) error
	DeletePendingOrder(ctx context.Context, customerRef string) error

	GetPendingPayment(ctx context.Context, customerRef string) (*domain.PendingPayment, error)
	SavePendingPayment(ctx context.Context, customerRef string, marker *domain.PendingPayment) error
	DeletePendingPayment(ctx context.Context, customerRef string) error
}

// BadgeRepository holds the eventually-consistent cart item-count projection
// maintained by the cart-change consumer.
type BadgeRepository interface {
	// GetBadge returns the projected item count, 0 when no projection exists.
	GetBadge(ctx context.Context, customerRef string) (int, error)
	SetBadge(ctx context.Context, customerRef string, count int) error
	DeleteBadge(ctx context.Context, customerRef string) error
}

// CheckoutRepository persists checkout sessions.
type CheckoutRepository interface {
	Create(ctx context.Context, session *domain.CheckoutSession) error
	GetByID(ctx context.Context, id string) (*domain.CheckoutSession, error)
	// GetActiveByCustomerRef returns the newest session for the customer
	// that is not finalized.
	GetActiveByCustomerRef(ctx context.Context, customerRef string) (*domain.CheckoutSession, error)
	Update(ctx context.Context, session *domain.CheckoutSession) error
}
