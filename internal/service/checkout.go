package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Fblink88/appburguer-backend/internal/client"
	"github.com/Fblink88/appburguer-backend/internal/domain"
	"github.com/Fblink88/appburguer-backend/internal/repository"
	apperrors "github.com/Fblink88/appburguer-backend/pkg/errors"
)

// ErrNoPendingOrder signals that checkout was entered without a handoff, or
// with nothing left to check out. The HTTP layer turns this into a redirect
// back to the cart.
var ErrNoPendingOrder = errors.New("no pending order for customer")

// FieldErrors carries per-field submission gate failures.
type FieldErrors map[string]string

// Error implements the error interface.
func (e FieldErrors) Error() string {
	return fmt.Sprintf("submission blocked by %d field problem(s)", len(e))
}

// UpdateSelectionsInput holds the optional checkout selection changes. Nil
// fields are left untouched.
type UpdateSelectionsInput struct {
	ContactName   *string `json:"contact_name"`
	ContactPhone  *string `json:"contact_phone"`
	DeliveryMode  *string `json:"delivery_mode" validate:"omitempty,oneof=delivery pickup"`
	PaymentMode   *string `json:"payment_mode" validate:"omitempty,oneof=cash online"`
	AddressID     *int64  `json:"address_id"`
	TermsAccepted *bool   `json:"terms_accepted"`
}

// SubmitResult is the outcome of a successful submission. Exactly one of
// Finalized or RedirectURL is meaningful: cash orders finalize immediately,
// online orders park at payment_pending and send the shopper to the gateway.
type SubmitResult struct {
	Finalized   bool   `json:"finalized"`
	OrderID     int64  `json:"order_id"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Total       int64  `json:"total"`
	TotalText   string `json:"total_text"`
}

// CheckoutService orchestrates the flow from cart handoff to a submitted
// order.
type CheckoutService struct {
	sessions  repository.CheckoutRepository
	markers   repository.MarkerRepository
	cart      *CartService
	orders    *client.OrderClient
	customers *client.CustomerClient
	gateway   *client.GatewayClient
	logger    *slog.Logger
	sessionTTL time.Duration
}

// NewCheckoutService creates a checkout service.
func NewCheckoutService(
	sessions repository.CheckoutRepository,
	markers repository.MarkerRepository,
	cart *CartService,
	orders *client.OrderClient,
	customers *client.CustomerClient,
	gateway *client.GatewayClient,
	logger *slog.Logger,
	sessionTTL time.Duration,
) *CheckoutService {
	return &CheckoutService{
		sessions:   sessions,
		markers:    markers,
		cart:       cart,
		orders:     orders,
		customers:  customers,
		gateway:    gateway,
		logger:     logger,
		sessionTTL: sessionTTL,
	}
}

// Handoff turns the current cart into a draft order and records the
// pending-order reference that admits the customer into checkout.
func (s *CheckoutService) Handoff(ctx context.Context, customerRef string) (int64, error) {
	cart, err := s.cart.GetCart(ctx, customerRef)
	if err != nil {
		return 0, err
	}
	if cart.IsEmpty() {
		return 0, apperrors.InvalidInput("cart is empty")
	}

	req := &client.CreateOrderRequest{
		Date:     time.Now().UTC().Format(time.RFC3339),
		Subtotal: cart.Subtotal(),
		Detail:   client.OrderDetailFromLines(cart.Lines),
	}

	orderID, err := s.orders.CreateOrder(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("handoff: %w", err)
	}

	ref := &domain.PendingOrderRef{OrderID: orderID, CreatedAt: time.Now().UTC()}
	if err := s.markers.SavePendingOrder(ctx, customerRef, ref); err != nil {
		return 0, fmt.Errorf("save pending order ref: %w", err)
	}

	s.logger.InfoContext(ctx, "checkout handoff completed",
		slog.String("customer_ref", customerRef),
		slog.Int64("order_id", orderID),
	)

	return orderID, nil
}

// Enter opens a checkout session. Without a pending-order reference, or with
// an empty cart, it returns ErrNoPendingOrder before any collaborator is
// called. The customer
// profile, saved addresses, and delivery cities are loaded concurrently and
// all three must succeed.
func (s *CheckoutService) Enter(ctx context.Context, customerRef string) (*domain.CheckoutSession, error) {
	ref, err := s.markers.GetPendingOrder(ctx, customerRef)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrNoPendingOrder
		}
		return nil, fmt.Errorf("get pending order ref: %w", err)
	}

	// Reuse a live session for the same order so a page reload does not
	// discard the shopper's selections.
	if existing, err := s.sessions.GetActiveByCustomerRef(ctx, customerRef); err == nil {
		if existing.OrderID == ref.OrderID && !existing.IsExpired() {
			if existing.Status == domain.StatusFailed {
				existing.Status = domain.StatusReady
				existing.FailureReason = ""
				if err := s.sessions.Update(ctx, existing); err != nil {
					return nil, fmt.Errorf("reset failed session: %w", err)
				}
			}
			return existing, nil
		}
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("get active session: %w", err)
	}

	cart, err := s.cart.GetCart(ctx, customerRef)
	if err != nil {
		return nil, err
	}
	// A cart emptied after handoff leaves nothing to check out; treat it
	// like a missing handoff and send the shopper back to the cart.
	if cart.IsEmpty() {
		return nil, ErrNoPendingOrder
	}

	var (
		customer  *domain.Customer
		addresses []domain.Address
		cities    []domain.City
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.customers.GetCustomerByExternalID(gctx, customerRef)
		if err != nil {
			return err
		}
		customer = c
		addrs, err := s.customers.ListAddresses(gctx, c.CustomerID)
		if err != nil {
			return err
		}
		addresses = addrs
		return nil
	})
	g.Go(func() error {
		cs, err := s.customers.ListCities(gctx)
		if err != nil {
			return err
		}
		cities = cs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load checkout context: %w", err)
	}

	now := time.Now().UTC()
	session := &domain.CheckoutSession{
		ID:          uuid.New().String(),
		CustomerRef: customerRef,
		Status:      domain.StatusReady,
		OrderID:     ref.OrderID,
		Lines:       cart.Lines,
		Contact: domain.Contact{
			Name:  customer.Name,
			Phone: customer.Phone,
			Email: customer.Email,
		},
		DeliveryMode: domain.DeliveryModeDelivery,
		PaymentMode:  domain.PaymentModeCash,
		CustomerID:   customer.CustomerID,
		Addresses:    addresses,
		Cities:       cities,
		ExpiresAt:    now.Add(s.sessionTTL),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	session.Recompute()

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	s.logger.InfoContext(ctx, "checkout session opened",
		slog.String("customer_ref", customerRef),
		slog.String("session_id", session.ID),
		slog.Int64("order_id", session.OrderID),
	)

	return session, nil
}

// GetSession retrieves a checkout session owned by the customer.
func (s *CheckoutService) GetSession(ctx context.Context, customerRef, sessionID string) (*domain.CheckoutSession, error) {
	return s.ownedSession(ctx, customerRef, sessionID)
}

// UpdateSelections applies selection changes and recomputes the totals. A
// failed session collapses back to ready on any update.
func (s *CheckoutService) UpdateSelections(ctx context.Context, customerRef, sessionID string, input UpdateSelectionsInput) (*domain.CheckoutSession, error) {
	session, err := s.ownedSession(ctx, customerRef, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEditable(session); err != nil {
		return nil, err
	}

	if input.ContactName != nil {
		session.Contact.Name = *input.ContactName
	}
	if input.ContactPhone != nil {
		session.Contact.Phone = *input.ContactPhone
	}
	if input.DeliveryMode != nil {
		switch *input.DeliveryMode {
		case domain.DeliveryModeDelivery, domain.DeliveryModePickup:
			session.DeliveryMode = *input.DeliveryMode
		default:
			return nil, apperrors.InvalidInput("delivery mode must be delivery or pickup")
		}
	}
	if input.PaymentMode != nil {
		switch *input.PaymentMode {
		case domain.PaymentModeCash, domain.PaymentModeOnline:
			session.PaymentMode = *input.PaymentMode
		default:
			return nil, apperrors.InvalidInput("payment mode must be cash or online")
		}
	}
	if input.AddressID != nil {
		if !s.hasAddress(session, *input.AddressID) {
			return nil, apperrors.InvalidInput("address does not belong to the customer")
		}
		session.AddressID = input.AddressID
	}
	if input.TermsAccepted != nil {
		session.TermsAccepted = *input.TermsAccepted
	}

	if session.Status == domain.StatusFailed {
		session.Status = domain.StatusReady
		session.FailureReason = ""
	}
	session.Recompute()

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("update checkout session: %w", err)
	}

	return session, nil
}

// AddAddress creates a delivery address on the customer service, refreshes
// the session's address list from it, and selects the new address.
func (s *CheckoutService) AddAddress(ctx context.Context, customerRef, sessionID string, req *client.CreateAddressRequest) (*domain.CheckoutSession, error) {
	session, err := s.ownedSession(ctx, customerRef, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEditable(session); err != nil {
		return nil, err
	}
	if req.CityID <= 0 {
		return nil, apperrors.InvalidInput("city id is required")
	}
	if req.FreeText == "" {
		return nil, apperrors.InvalidInput("address text is required")
	}

	created, err := s.customers.CreateAddress(ctx, session.CustomerID, req)
	if err != nil {
		return nil, fmt.Errorf("add address: %w", err)
	}

	// Re-read the list so the session mirrors the collaborator's state
	// rather than an optimistic local append.
	addresses, err := s.customers.ListAddresses(ctx, session.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("refresh addresses: %w", err)
	}
	session.Addresses = addresses
	session.AddressID = &created.AddressID

	if session.Status == domain.StatusFailed {
		session.Status = domain.StatusReady
		session.FailureReason = ""
	}

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("update checkout session: %w", err)
	}

	return session, nil
}

// Submit runs the submission gate and, when it passes, writes the selections
// onto the order and branches on the payment mode: cash finalizes in place,
// online hands off to the payment gateway.
func (s *CheckoutService) Submit(ctx context.Context, customerRef, sessionID string) (*SubmitResult, error) {
	session, err := s.ownedSession(ctx, customerRef, sessionID)
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case domain.StatusFinalized:
		return nil, apperrors.Conflict("checkout is already finalized")
	case domain.StatusSubmitting, domain.StatusPaymentPending:
		return nil, apperrors.Conflict("a submission is already in progress")
	}
	if session.IsExpired() {
		return nil, apperrors.Gone("checkout session has expired")
	}

	if problems := session.ValidateForSubmit(); len(problems) > 0 {
		return nil, FieldErrors(problems)
	}

	// Park the session in submitting before any collaborator call so a
	// double-click cannot submit the order twice.
	session.Status = domain.StatusSubmitting
	session.Recompute()
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("mark session submitting: %w", err)
	}

	update := &client.UpdateOrderRequest{
		CustomerID:   session.CustomerID,
		DeliveryMode: session.DeliveryMode,
		PaymentMode:  session.PaymentMode,
		Subtotal:     session.Subtotal,
		DeliveryFee:  session.DeliveryFee,
		Total:        session.Total,
		Date:         time.Now().UTC().Format(time.RFC3339),
		Detail:       client.OrderDetailFromLines(session.Lines),
	}
	if session.DeliveryMode == domain.DeliveryModeDelivery {
		update.AddressID = session.AddressID
	}

	if err := s.orders.UpdateOrder(ctx, session.OrderID, update); err != nil {
		s.failSession(ctx, session, "could not update the order")
		return nil, fmt.Errorf("submit: %w", err)
	}

	if session.PaymentMode == domain.PaymentModeCash {
		return s.finalizeCash(ctx, session)
	}
	return s.startOnlinePayment(ctx, session)
}

// finalizeCash marks the order paid on the order service and closes out the
// customer's cart and markers.
func (s *CheckoutService) finalizeCash(ctx context.Context, session *domain.CheckoutSession) (*SubmitResult, error) {
	if err := s.orders.MarkOrderPaid(ctx, session.OrderID); err != nil {
		s.failSession(ctx, session, "could not confirm the order")
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	s.closeOut(ctx, session.CustomerRef)

	session.Status = domain.StatusFinalized
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("finalize session: %w", err)
	}

	s.logger.InfoContext(ctx, "checkout finalized",
		slog.String("customer_ref", session.CustomerRef),
		slog.Int64("order_id", session.OrderID),
		slog.Int64("total", session.Total),
	)

	return &SubmitResult{
		Finalized: true,
		OrderID:   session.OrderID,
		Total:     session.Total,
		TotalText: domain.FormatAmount(session.Total),
	}, nil
}

// startOnlinePayment opens a hosted payment flow and parks the session at
// payment_pending. The cart and pending-order marker survive until the
// success landing reconciles the payment.
func (s *CheckoutService) startOnlinePayment(ctx context.Context, session *domain.CheckoutSession) (*SubmitResult, error) {
	intent, err := s.gateway.CreatePaymentIntent(ctx, &client.PaymentIntentRequest{
		OrderID:     session.OrderID,
		Amount:      session.Total,
		Description: fmt.Sprintf("Order #%d", session.OrderID),
		PayerEmail:  session.Contact.Email,
		PayerName:   session.Contact.Name,
	})
	if err != nil {
		s.failSession(ctx, session, "could not start the payment")
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	marker := &domain.PendingPayment{
		OrderID:   session.OrderID,
		PaymentID: intent.PaymentID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.markers.SavePendingPayment(ctx, session.CustomerRef, marker); err != nil {
		s.failSession(ctx, session, "could not record the payment")
		return nil, fmt.Errorf("save pending payment: %w", err)
	}

	session.Status = domain.StatusPaymentPending
	session.PaymentID = intent.PaymentID
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("park session at payment_pending: %w", err)
	}

	s.logger.InfoContext(ctx, "payment handoff started",
		slog.String("customer_ref", session.CustomerRef),
		slog.Int64("order_id", session.OrderID),
		slog.String("payment_id", intent.PaymentID),
	)

	return &SubmitResult{
		OrderID:     session.OrderID,
		RedirectURL: intent.RedirectURL,
		Total:       session.Total,
		TotalText:   domain.FormatAmount(session.Total),
	}, nil
}

// closeOut clears the cart and the pending-order reference after an order is
// paid. Failures are logged; the order is already confirmed at this point.
func (s *CheckoutService) closeOut(ctx context.Context, customerRef string) {
	if err := s.cart.ClearCart(ctx, customerRef); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after payment",
			slog.String("customer_ref", customerRef),
			slog.String("error", err.Error()),
		)
	}
	if err := s.markers.DeletePendingOrder(ctx, customerRef); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear pending order ref",
			slog.String("customer_ref", customerRef),
			slog.String("error", err.Error()),
		)
	}
}

// failSession records a failed submission. The failure collapses back to
// ready on the customer's next edit.
func (s *CheckoutService) failSession(ctx context.Context, session *domain.CheckoutSession, reason string) {
	session.Status = domain.StatusFailed
	session.FailureReason = reason
	if err := s.sessions.Update(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "failed to record session failure",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CheckoutService) ownedSession(ctx context.Context, customerRef, sessionID string) (*domain.CheckoutSession, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("checkout_session", sessionID)
		}
		return nil, fmt.Errorf("get checkout session: %w", err)
	}

	// Session IDs are unguessable, but ownership is still enforced.
	if session.CustomerRef != customerRef {
		return nil, apperrors.NotFound("checkout_session", sessionID)
	}

	return session, nil
}

func (s *CheckoutService) requireEditable(session *domain.CheckoutSession) error {
	switch session.Status {
	case domain.StatusFinalized:
		return apperrors.Conflict("checkout is already finalized")
	case domain.StatusSubmitting, domain.StatusPaymentPending:
		return apperrors.Conflict("a submission is in progress")
	}
	if session.IsExpired() {
		return apperrors.Gone("checkout session has expired")
	}
	return nil
}

func (s *CheckoutService) hasAddress(session *domain.CheckoutSession, addressID int64) bool {
	for _, a := range session.Addresses {
		if a.AddressID == addressID {
			return true
		}
	}
	return false
}
