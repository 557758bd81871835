package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Fblink88/appburguer-backend/pkg/httpclient"
)

// PaymentIntentRequest asks the payment gateway to open a hosted checkout
// for the given order.
type PaymentIntentRequest struct {
	OrderID     int64  `json:"orderId"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	PayerEmail  string `json:"payerEmail"`
	PayerName   string `json:"payerName"`
}

// PaymentIntent is the gateway's handle for a hosted payment flow. The
// shopper is sent to RedirectURL and returns via the landing endpoints.
type PaymentIntent struct {
	PaymentID   string `json:"paymentId"`
	RedirectURL string `json:"redirectUrl"`
}

// GatewayClient talks to the payment gateway adapter.
type GatewayClient struct {
	baseURL string
	http    *httpclient.CircuitBreakerClient
	logger  *slog.Logger
}

// NewGatewayClient creates a payment gateway client.
func NewGatewayClient(baseURL string, http *httpclient.CircuitBreakerClient, logger *slog.Logger) *GatewayClient {
	return &GatewayClient{baseURL: baseURL, http: http, logger: logger}
}

// CreatePaymentIntent opens a hosted payment flow for the order.
func (c *GatewayClient) CreatePaymentIntent(ctx context.Context, req *PaymentIntentRequest) (*PaymentIntent, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal payment intent request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/payments/intents", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, httpclient.ParseResponseError(resp, "payment-gateway")
	}

	var intent PaymentIntent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	if intent.RedirectURL == "" {
		return nil, fmt.Errorf("payment gateway returned intent %s without a redirect url", intent.PaymentID)
	}

	c.logger.InfoContext(ctx, "payment intent created",
		slog.Int64("order_id", req.OrderID),
		slog.String("payment_id", intent.PaymentID),
	)

	return &intent, nil
}
