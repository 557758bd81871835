package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Fblink88/appburguer-backend/internal/client"
	"github.com/Fblink88/appburguer-backend/internal/domain"
	"github.com/Fblink88/appburguer-backend/internal/service"
	"github.com/Fblink88/appburguer-backend/pkg/httputil"
)

// OutcomeHandler handles the payment gateway's return redirects and the
// order history pass-through.
type OutcomeHandler struct {
	service   *service.OutcomeService
	orders    *client.OrderClient
	customers *client.CustomerClient
	logger    *slog.Logger
}

// NewOutcomeHandler creates a payment outcome HTTP handler.
func NewOutcomeHandler(
	svc *service.OutcomeService,
	orders *client.OrderClient,
	customers *client.CustomerClient,
	logger *slog.Logger,
) *OutcomeHandler {
	return &OutcomeHandler{
		service:   svc,
		orders:    orders,
		customers: customers,
		logger:    logger,
	}
}

// outcomeFromQuery reads the gateway's redirect query parameters.
func outcomeFromQuery(r *http.Request) domain.GatewayOutcome {
	q := r.URL.Query()
	return domain.GatewayOutcome{
		Status:       q.Get("status"),
		StatusDetail: q.Get("status_detail"),
		PaymentID:    q.Get("payment_id"),
		ExternalRef:  q.Get("external_reference"),
	}
}

// Success handles GET /api/v1/payment/success
func (h *OutcomeHandler) Success(w http.ResponseWriter, r *http.Request) {
	ref, _ := customerRefFromContext(r.Context())

	result, err := h.service.HandleSuccess(r.Context(), ref, outcomeFromQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Failure handles GET /api/v1/payment/failure
func (h *OutcomeHandler) Failure(w http.ResponseWriter, r *http.Request) {
	ref, _ := customerRefFromContext(r.Context())

	result, err := h.service.HandleFailure(r.Context(), ref, outcomeFromQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Pending handles GET /api/v1/payment/pending
func (h *OutcomeHandler) Pending(w http.ResponseWriter, r *http.Request) {
	ref, _ := customerRefFromContext(r.Context())

	result, err := h.service.HandlePending(r.Context(), ref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// ListOrders handles GET /api/v1/orders. The order history lives on the
// order service; this resolves the customer and passes the list through.
func (h *OutcomeHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ref, _ := customerRefFromContext(r.Context())

	customer, err := h.customers.GetCustomerByExternalID(r.Context(), ref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	orders, err := h.orders.ListOrdersByCustomer(r.Context(), customer.CustomerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: orders})
}

// GetOrder handles GET /api/v1/orders/{orderId}
func (h *OutcomeHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ref, _ := customerRefFromContext(r.Context())

	raw := chi.URLParam(r, "orderId")
	orderID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || orderID <= 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "orderId must be a positive integer"},
		})
		return
	}

	// Ownership check against the customer's own history.
	customer, err := h.customers.GetCustomerByExternalID(r.Context(), ref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	orders, err := h.orders.ListOrdersByCustomer(r.Context(), customer.CustomerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	owned := false
	for _, o := range orders {
		if o.ID == orderID {
			owned = true
			break
		}
	}
	if !owned {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "NOT_FOUND", Message: "resource not found"},
		})
		return
	}

	order, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

func (h *OutcomeHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteError(w, r, err, h.logger)
}
