package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Fblink88/appburguer-backend/internal/event"
	"github.com/Fblink88/appburguer-backend/internal/repository"
	"github.com/Fblink88/appburguer-backend/internal/service"
	apperrors "github.com/Fblink88/appburguer-backend/pkg/errors"
	"github.com/Fblink88/appburguer-backend/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service  *service.CartService
	badges   repository.BadgeRepository
	notifier *event.Notifier
	logger   *slog.Logger
}

// NewCartHandler creates a cart HTTP handler.
func NewCartHandler(svc *service.CartService, badges repository.BadgeRepository, notifier *event.Notifier, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service:  svc,
		badges:   badges,
		notifier: notifier,
		logger:   logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a product to the cart.
type AddItemRequest struct {
	ProductID   int64  `json:"product_id" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,min=1,max=500"`
	UnitPrice   int64  `json:"unit_price" validate:"gte=0"`
	ImageRef    string `json:"image_ref"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity" validate:"required,gte=1"`
}

// SetQuantityRequest is the JSON request body for setting a line quantity.
// Zero removes the line.
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ref, _ := customerRefFromContext(r.Context())

	cart, err := h.service.GetCart(r.Context(), ref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: cart})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ref, _ := customerRefFromContext(r.Context())

	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	cart, err := h.service.AddItem(r.Context(), ref, service.AddItemInput{
		ProductID:   req.ProductID,
		Name:        req.Name,
		UnitPrice:   req.UnitPrice,
		ImageRef:    req.ImageRef,
		Description: req.Description,
		Quantity:    req.Quantity,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: cart})
}

// SetQuantity handles PUT /api/v1/cart/items/{productId}
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	ref, _ := customerRefFromContext(r.Context())

	productID, ok := h.productIDParam(w, r)
	if !ok {
		return
	}

	var req SetQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	cart, err := h.service.SetQuantity(r.Context(), ref, productID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: cart})
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ref, _ := customerRefFromContext(r.Context())

	productID, ok := h.productIDParam(w, r)
	if !ok {
		return
	}

	cart, err := h.service.RemoveItem(r.Context(), ref, productID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: cart})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ref, _ := customerRefFromContext(r.Context())

	if err := h.service.ClearCart(r.Context(), ref); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"status": "cleared"}})
}

// GetBadge handles GET /api/v1/cart/badge. It serves the eventually
// consistent item-count projection, not the cart itself.
func (h *CartHandler) GetBadge(w http.ResponseWriter, r *http.Request) {
	ref, _ := customerRefFromContext(r.Context())

	count, err := h.badges.GetBadge(r.Context(), ref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]int{"item_count": count}})
}

// BadgeStream handles GET /api/v1/cart/badge/stream. It pushes badge updates
// as server-sent events: one event on connect, then one per cart change. The
// stream ends when the client disconnects or the request times out; SSE
// clients reconnect on their own.
func (h *CartHandler) BadgeStream(w http.ResponseWriter, r *http.Request) {
	ref, _ := customerRefFromContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, response{
			Error: &errorResponse{Code: "INTERNAL_ERROR", Message: "streaming unsupported"},
		})
		return
	}

	changes, cancel := h.notifier.Subscribe(ref)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// The projection may lag a just-missed change; the subscription is
	// already live, so that change arrives as the next event.
	count, err := h.badges.GetBadge(r.Context(), ref)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read badge for stream",
			slog.String("customer_ref", ref),
			slog.String("error", err.Error()),
		)
		count = 0
	}
	writeBadgeEvent(w, count)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case change, open := <-changes:
			if !open {
				return
			}
			writeBadgeEvent(w, change.ItemCount)
			flusher.Flush()
		}
	}
}

func writeBadgeEvent(w http.ResponseWriter, count int) {
	fmt.Fprintf(w, "event: badge\ndata: {\"item_count\": %d}\n\n", count)
}

// --- Helpers ---

func (h *CartHandler) productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "productId")
	productID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || productID <= 0 {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "productId must be a positive integer"},
		})
		return 0, false
	}
	return productID, true
}

func (h *CartHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeServiceError(w, r.Context(), h.logger, r, err)
}

func (h *CartHandler) writeValidationError(w http.ResponseWriter, err error) {
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

// writeServiceError maps service errors onto the response envelope. Shared by
// all handlers in this package.
func writeServiceError(w http.ResponseWriter, ctx context.Context, logger *slog.Logger, r *http.Request, err error) {
	var fieldErrs service.FieldErrors
	if errors.As(err, &fieldErrs) {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "submission blocked",
				Fields:  fieldErrs,
			},
		})
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.Status, response{
			Error: &errorResponse{Code: appErr.Code, Message: appErr.Message},
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	message := "an internal error occurred"

	if errors.Is(err, apperrors.ErrNotFound) {
		code = "NOT_FOUND"
		message = "resource not found"
		status = http.StatusNotFound
	} else if errors.Is(err, apperrors.ErrInvalidInput) {
		code = "INVALID_INPUT"
		message = err.Error()
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		logger.ErrorContext(ctx, "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	writeJSON(w, status, response{
		Error: &errorResponse{Code: code, Message: message},
	})
}
