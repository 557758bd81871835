package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayClient_CreatePaymentIntent(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/payments/intents", r.URL.Path)

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"paymentId": "pay-123", "redirectUrl": "https://gateway.example/pay/pay-123"}`))
	}))
	defer srv.Close()

	c := NewGatewayClient(srv.URL, newBreaker("gateway-intent-test"), newTestLogger())

	intent, err := c.CreatePaymentIntent(context.Background(), &PaymentIntentRequest{
		OrderID:     42,
		Amount:      18480,
		Description: "Pedido #42",
		PayerEmail:  "ana@example.com",
		PayerName:   "Ana Perez",
	})
	require.NoError(t, err)
	assert.Equal(t, "pay-123", intent.PaymentID)
	assert.Equal(t, "https://gateway.example/pay/pay-123", intent.RedirectURL)

	assert.Equal(t, float64(42), body["orderId"])
	assert.Equal(t, float64(18480), body["amount"])
	assert.Equal(t, "ana@example.com", body["payerEmail"])
	assert.Equal(t, "Ana Perez", body["payerName"])
}

func TestGatewayClient_CreatePaymentIntent_MissingRedirectURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"paymentId": "pay-123"}`))
	}))
	defer srv.Close()

	c := NewGatewayClient(srv.URL, newBreaker("gateway-noredirect-test"), newTestLogger())

	_, err := c.CreatePaymentIntent(context.Background(), &PaymentIntentRequest{OrderID: 42, Amount: 18480})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirect url")
}

func TestGatewayClient_CreatePaymentIntent_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"code":"UPSTREAM_ERROR","message":"provider rejected the intent"}}`))
	}))
	defer srv.Close()

	c := NewGatewayClient(srv.URL, newBreaker("gateway-error-test"), newTestLogger())

	_, err := c.CreatePaymentIntent(context.Background(), &PaymentIntentRequest{OrderID: 42, Amount: 18480})
	assert.Error(t, err)
}
