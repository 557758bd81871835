package domain

import (
	"regexp"
	"time"
)

// Checkout session status constants. A session never leaves finalized;
// failed is display-only and collapses back to ready on the next user
// action.
const (
	StatusLoading        = "loading"
	StatusReady          = "ready"
	StatusSubmitting     = "submitting"
	StatusPaymentPending = "payment_pending"
	StatusFinalized      = "finalized"
	StatusFailed         = "failed"
)

// Delivery mode constants.
const (
	DeliveryModeDelivery = "delivery"
	DeliveryModePickup   = "pickup"
)

// Payment mode constants.
const (
	PaymentModeCash   = "cash"
	PaymentModeOnline = "online"
)

// FlatDeliveryFee is the fixed fee charged for delivery orders, in integer
// currency units. Pickup orders carry no fee.
const FlatDeliveryFee int64 = 2500

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Contact holds the order contact fields. Email is prefilled from the
// customer profile and read-only on the checkout screen.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Customer is the typed contract for the customer service's profile record.
type Customer struct {
	CustomerID int64  `json:"customer_id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

// Address is a customer delivery address owned by the customer service.
type Address struct {
	AddressID int64  `json:"address_id"`
	CityID    int64  `json:"city_id"`
	FreeText  string `json:"free_text"`
	Alias     string `json:"alias,omitempty"`
}

// City is a delivery city offered by the customer service.
type City struct {
	CityID int64  `json:"city_id"`
	Name   string `json:"name"`
}

// CheckoutSession is the state machine from "cart ready to pay" to a
// finalized order. The cart lines are snapshotted at entry; the cart is not
// editable from the checkout screen.
type CheckoutSession struct {
	ID           string     `json:"id"`
	CustomerRef  string     `json:"customer_ref"`
	Status       string     `json:"status"`
	OrderID      int64      `json:"order_id"`
	Lines        []CartLine `json:"lines"`
	Contact      Contact    `json:"contact"`
	DeliveryMode string     `json:"delivery_mode"`
	PaymentMode  string     `json:"payment_mode"`
	AddressID    *int64     `json:"address_id,omitempty"`
	TermsAccepted bool      `json:"terms_accepted"`

	Subtotal    int64 `json:"subtotal"`
	DeliveryFee int64 `json:"delivery_fee"`
	Total       int64 `json:"total"`

	// Context loaded from the customer service before the session is ready.
	CustomerID int64     `json:"customer_id"`
	Addresses  []Address `json:"addresses"`
	Cities     []City    `json:"cities"`

	PaymentID     string    `json:"payment_id,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ComputeSubtotal sums unit price times quantity over the snapshotted lines.
func (s *CheckoutSession) ComputeSubtotal() int64 {
	var subtotal int64
	for _, l := range s.Lines {
		subtotal += l.UnitPrice * int64(l.Quantity)
	}
	return subtotal
}

// Recompute refreshes the derived fee and total from the current delivery
// mode. Called whenever the mode changes so the total is never stale.
func (s *CheckoutSession) Recompute() {
	s.Subtotal = s.ComputeSubtotal()
	if s.DeliveryMode == DeliveryModeDelivery {
		s.DeliveryFee = FlatDeliveryFee
	} else {
		s.DeliveryFee = 0
	}
	s.Total = s.Subtotal + s.DeliveryFee
}

// IsExpired reports whether the session has passed its expiry time.
func (s *CheckoutSession) IsExpired() bool {
	return time.Now().UTC().After(s.ExpiresAt)
}

// ValidateForSubmit checks the submission gate. It returns a map of field
// names to messages; an empty map means the session may be submitted. No
// collaborator is called while any field fails.
func (s *CheckoutSession) ValidateForSubmit() map[string]string {
	problems := make(map[string]string)

	if s.Contact.Name == "" {
		problems["name"] = "contact name is required"
	}
	if s.Contact.Phone == "" {
		problems["phone"] = "contact phone is required"
	}
	switch {
	case s.Contact.Email == "":
		problems["email"] = "contact email is required"
	case !emailPattern.MatchString(s.Contact.Email):
		problems["email"] = "contact email is not a valid address"
	}

	if s.DeliveryMode == DeliveryModeDelivery && s.AddressID == nil {
		problems["address_id"] = "a delivery address must be selected"
	}
	if !s.TermsAccepted {
		problems["terms_accepted"] = "the terms and conditions must be accepted"
	}

	return problems
}

// ValidEmail reports whether the address matches the storefront's email gate.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
