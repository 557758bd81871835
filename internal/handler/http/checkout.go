package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Fblink88/appburguer-backend/internal/client"
	"github.com/Fblink88/appburguer-backend/internal/service"
	"github.com/Fblink88/appburguer-backend/pkg/validator"
)

// CartPath is where shoppers are sent when checkout is entered without a
// pending order.
const CartPath = "/cart"

// CheckoutHandler handles HTTP requests for checkout endpoints.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		logger:  logger,
	}
}

// AddAddressRequest is the JSON request body for adding a delivery address.
type AddAddressRequest struct {
	CityID   int64  `json:"city_id" validate:"required,gt=0"`
	FreeText string `json:"free_text" validate:"required,min=1,max=500"`
	Alias    string `json:"alias" validate:"max=100"`
}

// Handoff handles POST /api/v1/checkout/handoff
func (h *CheckoutHandler) Handoff(w http.ResponseWriter, r *http.Request) {
	ref, _ := customerRefFromContext(r.Context())

	orderID, err := h.service.Handoff(r.Context(), ref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: map[string]int64{"order_id": orderID}})
}

// Enter handles POST /api/v1/checkout. Entering without a pending order
// redirects back to the cart with 303 See Other.
func (h *CheckoutHandler) Enter(w http.ResponseWriter, r *http.Request) {
	ref, _ := customerRefFromContext(r.Context())

	session, err := h.service.Enter(r.Context(), ref)
	if err != nil {
		if errors.Is(err, service.ErrNoPendingOrder) {
			w.Header().Set("Location", CartPath)
			w.WriteHeader(http.StatusSeeOther)
			return
		}
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: session})
}

// GetSession handles GET /api/v1/checkout/{sessionId}
func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ref, _ := customerRefFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionId")

	session, err := h.service.GetSession(r.Context(), ref, sessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: session})
}

// UpdateSelections handles PATCH /api/v1/checkout/{sessionId}
func (h *CheckoutHandler) UpdateSelections(w http.ResponseWriter, r *http.Request) {
	ref, _ := customerRefFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionId")

	var input service.UpdateSelectionsInput
	if err := validator.DecodeAndValidate(r, &input); err != nil {
		h.writeValidationError(w, err)
		return
	}

	session, err := h.service.UpdateSelections(r.Context(), ref, sessionID, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: session})
}

// AddAddress handles POST /api/v1/checkout/{sessionId}/addresses
func (h *CheckoutHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	ref, _ := customerRefFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionId")

	var req AddAddressRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	session, err := h.service.AddAddress(r.Context(), ref, sessionID, &client.CreateAddressRequest{
		CityID:   req.CityID,
		FreeText: req.FreeText,
		Alias:    req.Alias,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: session})
}

// Submit handles POST /api/v1/checkout/{sessionId}/submit
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ref, _ := customerRefFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionId")

	result, err := h.service.Submit(r.Context(), ref, sessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: result})
}

func (h *CheckoutHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeServiceError(w, r.Context(), h.logger, r, err)
}

func (h *CheckoutHandler) writeValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "request validation failed",
				Fields:  valErr.Fields(),
			},
		})
		return
	}
	writeJSON(w, http.StatusBadRequest, response{
		Error: &errorResponse{Code: "INVALID_INPUT", Message: err.Error()},
	})
}
