package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Fblink88/appburguer-backend/internal/domain"
	"github.com/Fblink88/appburguer-backend/pkg/httpclient"
)

// Order status values used by the order service.
const (
	OrderStatusPending = "pendiente"
	OrderStatusPaid    = "pagado"
)

// OrderItemPayload is one order line on the order service's wire format. The
// service predates this codebase and keeps its Spanish field names.
type OrderItemPayload struct {
	ProductID int64 `json:"idProducto"`
	Quantity  int   `json:"cantidad"`
	UnitPrice int64 `json:"precioUnitario"`
	Subtotal  int64 `json:"subtotal"`
}

// CreateOrderRequest creates a draft order from the cart contents.
type CreateOrderRequest struct {
	Date     string             `json:"fecha"`
	Subtotal int64              `json:"montoSubtotal"`
	Detail   []OrderItemPayload `json:"detalle"`
}

// UpdateOrderRequest fills in the delivery and payment selections on an
// existing draft order. AddressID is omitted entirely for pickup orders.
type UpdateOrderRequest struct {
	CustomerID   int64              `json:"idCliente"`
	DeliveryMode string             `json:"modoEntrega"`
	PaymentMode  string             `json:"modoPago"`
	Subtotal     int64              `json:"montoSubtotal"`
	DeliveryFee  int64              `json:"montoEnvio"`
	Total        int64              `json:"montoTotal"`
	Date         string             `json:"fecha"`
	AddressID    *int64             `json:"idDireccionEntrega,omitempty"`
	Detail       []OrderItemPayload `json:"detalle"`
}

// Order is an order as returned by the order service.
type Order struct {
	ID     int64              `json:"id"`
	Status string             `json:"estado"`
	Total  int64              `json:"montoTotal"`
	Date   string             `json:"fecha"`
	Detail []OrderItemPayload `json:"detalle"`
}

// OrderClient talks to the order service.
type OrderClient struct {
	baseURL string
	http    *httpclient.CircuitBreakerClient
	logger  *slog.Logger
}

// NewOrderClient creates an order service client.
func NewOrderClient(baseURL string, http *httpclient.CircuitBreakerClient, logger *slog.Logger) *OrderClient {
	return &OrderClient{baseURL: baseURL, http: http, logger: logger}
}

// CreateOrder creates a draft order and returns its ID.
func (c *OrderClient) CreateOrder(ctx context.Context, req *CreateOrderRequest) (int64, error) {
	var created struct {
		ID int64 `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/pedidos", req, &created); err != nil {
		return 0, fmt.Errorf("create order: %w", err)
	}

	c.logger.InfoContext(ctx, "order created",
		slog.Int64("order_id", created.ID),
		slog.Int64("subtotal", req.Subtotal),
	)

	return created.ID, nil
}

// UpdateOrder writes the checkout selections onto the draft order.
func (c *OrderClient) UpdateOrder(ctx context.Context, orderID int64, req *UpdateOrderRequest) error {
	path := fmt.Sprintf("/api/pedidos/%d", orderID)
	if err := c.doJSON(ctx, http.MethodPut, path, req, nil); err != nil {
		return fmt.Errorf("update order %d: %w", orderID, err)
	}
	return nil
}

// MarkOrderPaid transitions the order to paid.
func (c *OrderClient) MarkOrderPaid(ctx context.Context, orderID int64) error {
	path := fmt.Sprintf("/api/pedidos/%d/pagar", orderID)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("mark order %d paid: %w", orderID, err)
	}

	c.logger.InfoContext(ctx, "order marked paid", slog.Int64("order_id", orderID))
	return nil
}

// GetOrder retrieves a single order.
func (c *OrderClient) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	var order Order
	path := fmt.Sprintf("/api/pedidos/%d", orderID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &order); err != nil {
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}
	return &order, nil
}

// ListOrdersByCustomer retrieves the customer's order history, newest first.
func (c *OrderClient) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]Order, error) {
	var orders []Order
	path := fmt.Sprintf("/api/clientes/%d/pedidos", customerID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, fmt.Errorf("list orders for customer %d: %w", customerID, err)
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

// doJSON sends a request with an optional JSON body and decodes an optional
// JSON response into out.
func (c *OrderClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call order service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpclient.ParseResponseError(resp, "order")
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// domain mapping helper used by callers building order payloads.

// OrderDetailFromLines converts cart lines to the order service's line format.
func OrderDetailFromLines(lines []domain.CartLine) []OrderItemPayload {
	detail := make([]OrderItemPayload, 0, len(lines))
	for _, l := range lines {
		detail = append(detail, OrderItemPayload{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.LineSubtotal(),
		})
	}
	return detail
}
