package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Fblink88/appburguer-backend/internal/client"
	"github.com/Fblink88/appburguer-backend/internal/domain"
	"github.com/Fblink88/appburguer-backend/internal/service"
	apperrors "github.com/Fblink88/appburguer-backend/pkg/errors"
	"github.com/Fblink88/appburguer-backend/pkg/httpclient"
)

func newOutcomeTestRouter(t *testing.T, markers *mockMarkerRepo, sessions *mockCheckoutRepo, cartRepo *mockCartRepo, collaborator http.Handler) http.Handler {
	t.Helper()
	logger := newHandlerTestLogger()

	if collaborator == nil {
		collaborator = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected collaborator call: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		})
	}
	server := httptest.NewServer(collaborator)
	t.Cleanup(server.Close)

	base := httpclient.New(httpclient.DefaultConfig())
	cb := func(name string) *httpclient.CircuitBreakerClient {
		return httpclient.NewCircuitBreakerClient(base, httpclient.DefaultCircuitBreakerConfig(name), logger)
	}
	orders := client.NewOrderClient(server.URL, cb("outcome-test-order"), logger)
	customers := client.NewCustomerClient(server.URL, cb("outcome-test-customer"), logger)

	cartSvc := service.NewCartService(cartRepo, newDeadProducer(), logger)
	svc := service.NewOutcomeService(markers, sessions, cartSvc, orders, logger)
	h := NewOutcomeHandler(svc, orders, customers, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(CustomerRefFromHeader)
		r.Route("/payment", func(r chi.Router) {
			r.Get("/success", h.Success)
			r.Get("/failure", h.Failure)
			r.Get("/pending", h.Pending)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Get("/{orderId}", h.GetOrder)
		})
	})
	return r
}

func TestOutcomeHandler_Success_NoPaymentInProgressIsGone(t *testing.T) {
	markers := new(mockMarkerRepo)
	router := newOutcomeTestRouter(t, markers, new(mockCheckoutRepo), new(mockCartRepo), nil)

	markers.On("GetPendingPayment", mock.Anything, "customer-1").Return(nil, apperrors.ErrNotFound)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/payment/success?payment_id=pay-1", "", true)
	require.Equal(t, http.StatusGone, rec.Code)

	envelope := decodeEnvelope(t, rec)
	errObj := envelope["error"].(map[string]any)
	assert.Equal(t, "GONE", errObj["code"])
}

func TestOutcomeHandler_Success_ReconcilesAndReturnsTotals(t *testing.T) {
	markers := new(mockMarkerRepo)
	sessions := new(mockCheckoutRepo)
	cartRepo := new(mockCartRepo)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/pedidos/42", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"estado":"pendiente","montoTotal":18480}`))
	})
	mux.HandleFunc("POST /api/pedidos/42/pagar", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router := newOutcomeTestRouter(t, markers, sessions, cartRepo, mux)

	markers.On("GetPendingPayment", mock.Anything, "customer-1").Return(&domain.PendingPayment{
		OrderID: 42, PaymentID: "pay-123", CreatedAt: time.Now().UTC(),
	}, nil)
	markers.On("DeletePendingOrder", mock.Anything, "customer-1").Return(nil)
	markers.On("DeletePendingPayment", mock.Anything, "customer-1").Return(nil)
	cartRepo.On("Delete", mock.Anything, "customer-1").Return(nil)
	sessions.On("GetActiveByCustomerRef", mock.Anything, "customer-1").Return(nil, apperrors.ErrNotFound)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/payment/success?status=approved&payment_id=pay-123", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "approved", data["status"])
	assert.Equal(t, float64(42), data["order_id"])
	assert.Equal(t, "$18.480", data["total_text"])
	cartRepo.AssertCalled(t, "Delete", mock.Anything, "customer-1")
}

func TestOutcomeHandler_Failure_MapsDeclineReason(t *testing.T) {
	markers := new(mockMarkerRepo)
	router := newOutcomeTestRouter(t, markers, new(mockCheckoutRepo), new(mockCartRepo), nil)

	markers.On("GetPendingPayment", mock.Anything, "customer-1").Return(nil, apperrors.ErrNotFound)

	rec := doRequest(t, router, http.MethodGet,
		"/api/v1/payment/failure?status=rejected&status_detail=cc_rejected_insufficient_amount", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "rejected", data["status"])
	assert.Contains(t, data["reason"], "insufficient funds")
}

func TestOutcomeHandler_Pending(t *testing.T) {
	markers := new(mockMarkerRepo)
	router := newOutcomeTestRouter(t, markers, new(mockCheckoutRepo), new(mockCartRepo), nil)

	markers.On("GetPendingPayment", mock.Anything, "customer-1").Return(&domain.PendingPayment{
		OrderID: 42, PaymentID: "pay-123",
	}, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/payment/pending", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, float64(42), data["order_id"])
}

func outcomeHistoryStub() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/clientes/externo/customer-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":11,"nombre":"Ana Perez","telefono":"098123456","email":"ana@example.com"}`))
	})
	mux.HandleFunc("GET /api/clientes/11/pedidos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":42,"estado":"pagado","montoTotal":18480},{"id":7,"estado":"pendiente","montoTotal":7990}]`))
	})
	mux.HandleFunc("GET /api/pedidos/42", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"estado":"pagado","montoTotal":18480}`))
	})
	return mux
}

func TestOutcomeHandler_ListOrders(t *testing.T) {
	router := newOutcomeTestRouter(t, new(mockMarkerRepo), new(mockCheckoutRepo), new(mockCartRepo), outcomeHistoryStub())

	rec := doRequest(t, router, http.MethodGet, "/api/v1/orders", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].([]any)
	require.Len(t, data, 2)
	first := data[0].(map[string]any)
	assert.Equal(t, float64(42), first["id"])
}

func TestOutcomeHandler_GetOrder_Owned(t *testing.T) {
	router := newOutcomeTestRouter(t, new(mockMarkerRepo), new(mockCheckoutRepo), new(mockCartRepo), outcomeHistoryStub())

	rec := doRequest(t, router, http.MethodGet, "/api/v1/orders/42", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "pagado", data["estado"])
}

func TestOutcomeHandler_GetOrder_NotOwnedHidden(t *testing.T) {
	router := newOutcomeTestRouter(t, new(mockMarkerRepo), new(mockCheckoutRepo), new(mockCartRepo), outcomeHistoryStub())

	rec := doRequest(t, router, http.MethodGet, "/api/v1/orders/99", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOutcomeHandler_GetOrder_BadParam(t *testing.T) {
	router := newOutcomeTestRouter(t, new(mockMarkerRepo), new(mockCheckoutRepo), new(mockCartRepo), nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/orders/abc", "", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
