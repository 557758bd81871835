package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Fblink88/appburguer-backend/internal/client"
	"github.com/Fblink88/appburguer-backend/internal/domain"
	"github.com/Fblink88/appburguer-backend/internal/repository"
	apperrors "github.com/Fblink88/appburguer-backend/pkg/errors"
)

// OutcomeResult is what the payment landing endpoints return for display.
// SessionID is set on a rejection so the landing can link back to checkout.
type OutcomeResult struct {
	OrderID   int64  `json:"order_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Total     int64  `json:"total,omitempty"`
	TotalText string `json:"total_text,omitempty"`
}

// OutcomeService reconciles the redirect back from the payment gateway with
// the order and the customer's cart state.
type OutcomeService struct {
	markers  repository.MarkerRepository
	sessions repository.CheckoutRepository
	cart     *CartService
	orders   *client.OrderClient
	logger   *slog.Logger
}

// NewOutcomeService creates a payment outcome service.
func NewOutcomeService(
	markers repository.MarkerRepository,
	sessions repository.CheckoutRepository,
	cart *CartService,
	orders *client.OrderClient,
	logger *slog.Logger,
) *OutcomeService {
	return &OutcomeService{
		markers:  markers,
		sessions: sessions,
		cart:     cart,
		orders:   orders,
		logger:   logger,
	}
}

// HandleSuccess reconciles a successful gateway return: it marks the order
// paid unless the gateway webhook got there first, clears the cart and
// markers, and finalizes the parked session. Landing here twice is safe.
func (s *OutcomeService) HandleSuccess(ctx context.Context, customerRef string, outcome domain.GatewayOutcome) (*OutcomeResult, error) {
	marker, err := s.markers.GetPendingPayment(ctx, customerRef)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Gone("no payment in progress")
		}
		return nil, fmt.Errorf("get pending payment: %w", err)
	}

	order, err := s.orders.GetOrder(ctx, marker.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order for reconciliation: %w", err)
	}

	if order.Status != client.OrderStatusPaid {
		if err := s.orders.MarkOrderPaid(ctx, marker.OrderID); err != nil {
			return nil, fmt.Errorf("mark order paid: %w", err)
		}
	} else {
		s.logger.InfoContext(ctx, "order already paid, skipping mark-paid",
			slog.Int64("order_id", marker.OrderID),
		)
	}

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
	if err := s.markers.DeletePendingPayment(ctx, customerRef); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear pending payment marker",
			slog.String("customer_ref", customerRef),
			slog.String("error", err.Error()),
		)
	}

	s.finalizeParkedSession(ctx, customerRef, marker.OrderID)

	s.logger.InfoContext(ctx, "payment reconciled",
		slog.String("customer_ref", customerRef),
		slog.Int64("order_id", marker.OrderID),
		slog.String("gateway_payment_id", outcome.PaymentID),
	)

	return &OutcomeResult{
		OrderID:   marker.OrderID,
		Status:    "approved",
		Total:     order.Total,
		TotalText: domain.FormatAmount(order.Total),
	}, nil
}

// HandleFailure maps the gateway's decline code to a display reason. Nothing
// is torn down: the cart, markers, and order survive so the shopper can try
// again.
func (s *OutcomeService) HandleFailure(ctx context.Context, customerRef string, outcome domain.GatewayOutcome) (*OutcomeResult, error) {
	reason := domain.DeclineReason(outcome.StatusDetail)

	result := &OutcomeResult{
		Status: "rejected",
		Reason: reason,
	}

	marker, err := s.markers.GetPendingPayment(ctx, customerRef)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return result, nil
		}
		return nil, fmt.Errorf("get pending payment: %w", err)
	}
	result.OrderID = marker.OrderID

	// Record the failure on the parked session so the checkout screen can
	// show it. The next edit collapses the session back to ready.
	if session, err := s.sessions.GetActiveByCustomerRef(ctx, customerRef); err == nil {
		if session.OrderID == marker.OrderID && session.Status == domain.StatusPaymentPending {
			result.SessionID = session.ID
			session.Status = domain.StatusFailed
			session.FailureReason = reason
			if err := s.sessions.Update(ctx, session); err != nil {
				s.logger.ErrorContext(ctx, "failed to record payment failure on session",
					slog.String("session_id", session.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	s.logger.InfoContext(ctx, "payment rejected",
		slog.String("customer_ref", customerRef),
		slog.Int64("order_id", marker.OrderID),
		slog.String("status_detail", outcome.StatusDetail),
	)

	return result, nil
}

// HandlePending reports an in-flight payment without touching any state.
func (s *OutcomeService) HandlePending(ctx context.Context, customerRef string) (*OutcomeResult, error) {
	result := &OutcomeResult{Status: "pending"}

	marker, err := s.markers.GetPendingPayment(ctx, customerRef)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return result, nil
		}
		return nil, fmt.Errorf("get pending payment: %w", err)
	}
	result.OrderID = marker.OrderID

	return result, nil
}

// finalizeParkedSession closes the payment_pending session for the order, if
// one is still around. Absence is not an error; sessions expire on their own.
func (s *OutcomeService) finalizeParkedSession(ctx context.Context, customerRef string, orderID int64) {
	session, err := s.sessions.GetActiveByCustomerRef(ctx, customerRef)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.ErrorContext(ctx, "failed to load session for finalization",
				slog.String("customer_ref", customerRef),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	if session.OrderID != orderID {
		return
	}

	session.Status = domain.StatusFinalized
	session.FailureReason = ""
	if err := s.sessions.Update(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "failed to finalize session",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
	}
}
