package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Fblink88/appburguer-backend/internal/client"
	"github.com/Fblink88/appburguer-backend/internal/domain"
	apperrors "github.com/Fblink88/appburguer-backend/pkg/errors"
	"github.com/Fblink88/appburguer-backend/pkg/httpclient"
)

// orderServiceState drives the fake order service used by outcome tests.
type orderServiceState struct {
	status     string
	markedPaid bool
}

func newTestOutcomeService(
	t *testing.T,
	markers *mockMarkerRepository,
	sessions *mockCheckoutRepository,
	cartRepo *mockCartRepository,
	state *orderServiceState,
) *OutcomeService {
	t.Helper()
	logger := newServiceTestLogger()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/pedidos/42", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 42, "estado": "` + state.status + `", "montoTotal": 18480}`))
	})
	mux.HandleFunc("POST /api/pedidos/42/pagar", func(w http.ResponseWriter, r *http.Request) {
		state.markedPaid = true
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	base := httpclient.New(httpclient.DefaultConfig())
	cb := httpclient.NewCircuitBreakerClient(base, httpclient.DefaultCircuitBreakerConfig("outcome-test-order"), logger)
	orders := client.NewOrderClient(srv.URL, cb, logger)

	return NewOutcomeService(markers, sessions, newTestCartService(cartRepo), orders, logger)
}

func pendingPaymentMarker() *domain.PendingPayment {
	return &domain.PendingPayment{
		OrderID:   42,
		PaymentID: "pay-123",
		CreatedAt: time.Now().UTC(),
	}
}

func TestOutcomeService_HandleSuccess_NoPaymentInProgress(t *testing.T) {
	markers := new(mockMarkerRepository)
	sessions := new(mockCheckoutRepository)
	cartRepo := new(mockCartRepository)
	svc := newTestOutcomeService(t, markers, sessions, cartRepo, &orderServiceState{})

	markers.On("GetPendingPayment", mock.Anything, "customer-1").Return(nil, apperrors.ErrNotFound)

	_, err := svc.HandleSuccess(context.Background(), "customer-1", domain.GatewayOutcome{Status: "approved"})
	assert.ErrorIs(t, err, apperrors.ErrGone)
}

func TestOutcomeService_HandleSuccess_ReconcilesAndTearsDown(t *testing.T) {
	markers := new(mockMarkerRepository)
	sessions := new(mockCheckoutRepository)
	cartRepo := new(mockCartRepository)
	state := &orderServiceState{status: client.OrderStatusPending}
	svc := newTestOutcomeService(t, markers, sessions, cartRepo, state)

	markers.On("GetPendingPayment", mock.Anything, "customer-1").Return(pendingPaymentMarker(), nil)
	cartRepo.On("Delete", mock.Anything, "customer-1").Return(nil)
	markers.On("DeletePendingOrder", mock.Anything, "customer-1").Return(nil)
	markers.On("DeletePendingPayment", mock.Anything, "customer-1").Return(nil)

	parked := readySession()
	parked.Status = domain.StatusPaymentPending
	parked.PaymentID = "pay-123"
	sessions.On("GetActiveByCustomerRef", mock.Anything, "customer-1").Return(parked, nil)
	sessions.On("Update", mock.Anything, parked).Return(nil)

	result, err := svc.HandleSuccess(context.Background(), "customer-1", domain.GatewayOutcome{
		Status:    "approved",
		PaymentID: "pay-123",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(42), result.OrderID)
	assert.Equal(t, "approved", result.Status)
	assert.Equal(t, int64(18480), result.Total)
	assert.Equal(t, "$18.480", result.TotalText)

	assert.True(t, state.markedPaid)
	assert.Equal(t, domain.StatusFinalized, parked.Status)
	cartRepo.AssertCalled(t, "Delete", mock.Anything, "customer-1")
	markers.AssertExpectations(t)
}

func TestOutcomeService_HandleSuccess_AlreadyPaidSkipsMarkPaid(t *testing.T) {
	markers := new(mockMarkerRepository)
	sessions := new(mockCheckoutRepository)
	cartRepo := new(mockCartRepository)
	state := &orderServiceState{status: client.OrderStatusPaid}
	svc := newTestOutcomeService(t, markers, sessions, cartRepo, state)

	markers.On("GetPendingPayment", mock.Anything, "customer-1").Return(pendingPaymentMarker(), nil)
	cartRepo.On("Delete", mock.Anything, "customer-1").Return(nil)
	markers.On("DeletePendingOrder", mock.Anything, "customer-1").Return(nil)
	markers.On("DeletePendingPayment", mock.Anything, "customer-1").Return(nil)
	sessions.On("GetActiveByCustomerRef", mock.Anything, "customer-1").Return(nil, apperrors.ErrNotFound)

	result, err := svc.HandleSuccess(context.Background(), "customer-1", domain.GatewayOutcome{Status: "approved"})
	require.NoError(t, err)

	// The gateway webhook already paid the order; landing twice is safe.
	assert.False(t, state.markedPaid)
	assert.Equal(t, "approved", result.Status)
}

func TestOutcomeService_HandleFailure_MapsDeclineReason(t *testing.T) {
	markers := new(mockMarkerRepository)
	sessions := new(mockCheckoutRepository)
	cartRepo := new(mockCartRepository)
	svc := newTestOutcomeService(t, markers, sessions, cartRepo, &orderServiceState{})

	markers.On("GetPendingPayment", mock.Anything, "customer-1").Return(pendingPaymentMarker(), nil)

	parked := readySession()
	parked.Status = domain.StatusPaymentPending
	sessions.On("GetActiveByCustomerRef", mock.Anything, "customer-1").Return(parked, nil)
	sessions.On("Update", mock.Anything, parked).Return(nil)

	result, err := svc.HandleFailure(context.Background(), "customer-1", domain.GatewayOutcome{
		Status:       "rejected",
		StatusDetail: "cc_rejected_insufficient_amount",
	})
	require.NoError(t, err)

	assert.Equal(t, "rejected", result.Status)
	assert.Equal(t, "the card has insufficient funds", result.Reason)
	assert.Equal(t, int64(42), result.OrderID)
	assert.Equal(t, "sess-001", result.SessionID)

	// The parked session records the failure for the checkout screen.
	assert.Equal(t, domain.StatusFailed, parked.Status)
	assert.Equal(t, "the card has insufficient funds", parked.FailureReason)

	// Nothing is torn down on failure; the shopper can try again.
	cartRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	markers.AssertNotCalled(t, "DeletePendingOrder", mock.Anything, mock.Anything)
	markers.AssertNotCalled(t, "DeletePendingPayment", mock.Anything, mock.Anything)
}

func TestOutcomeService_HandleFailure_UnknownDeclineCode(t *testing.T) {
	markers := new(mockMarkerRepository)
	sessions := new(mockCheckoutRepository)
	cartRepo := new(mockCartRepository)
	svc := newTestOutcomeService(t, markers, sessions, cartRepo, &orderServiceState{})

	markers.On("GetPendingPayment", mock.Anything, "customer-1").Return(nil, apperrors.ErrNotFound)

	result, err := svc.HandleFailure(context.Background(), "customer-1", domain.GatewayOutcome{
		Status:       "rejected",
		StatusDetail: "something_new",
	})
	require.NoError(t, err)
	assert.Equal(t, "the payment was rejected", result.Reason)
	assert.Zero(t, result.OrderID)
}

func TestOutcomeService_HandlePending(t *testing.T) {
	markers := new(mockMarkerRepository)
	sessions := new(mockCheckoutRepository)
	cartRepo := new(mockCartRepository)
	svc := newTestOutcomeService(t, markers, sessions, cartRepo, &orderServiceState{})

	markers.On("GetPendingPayment", mock.Anything, "customer-1").Return(pendingPaymentMarker(), nil)

	result, err := svc.HandlePending(context.Background(), "customer-1")
	require.NoError(t, err)
	assert.Equal(t, "pending", result.Status)
	assert.Equal(t, int64(42), result.OrderID)

	// Display only: no state is touched.
	sessions.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	cartRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
