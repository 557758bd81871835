package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewWithWriter_TagsServiceName(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("storefront", "info", &buf)

	l.Info("cart saved")

	entry := logLine(t, &buf)
	assert.Equal(t, "storefront", entry["service"])
	assert.Equal(t, "cart saved", entry["msg"])
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("storefront", "warn", &buf)

	l.Info("suppressed")
	assert.Zero(t, buf.Len())

	l.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestNewWithWriter_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("storefront", "verbose", &buf)

	l.Debug("suppressed")
	assert.Zero(t, buf.Len())

	l.Info("kept")
	assert.NotZero(t, buf.Len())
}

func TestCorrelationID_RoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "corr-123")
	assert.Equal(t, "corr-123", CorrelationIDFromContext(ctx))
	assert.Empty(t, CorrelationIDFromContext(context.Background()))
}

func TestCustomerRef_RoundTrip(t *testing.T) {
	ctx := WithCustomerRef(context.Background(), "customer-1")
	assert.Equal(t, "customer-1", CustomerRefFromContext(ctx))
	assert.Empty(t, CustomerRefFromContext(context.Background()))
}

func TestFromContext_DefaultsWhenUnset(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	var buf bytes.Buffer
	l := NewWithWriter("storefront", "info", &buf)
	ctx := NewContext(context.Background(), l)
	assert.Equal(t, l, FromContext(ctx))
}

func TestWithContext_EnrichesFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("storefront", "info", &buf)

	ctx := WithCorrelationID(context.Background(), "corr-9")
	ctx = WithCustomerRef(ctx, "customer-1")

	WithContext(ctx, l).Info("checkout entered")

	entry := logLine(t, &buf)
	assert.Equal(t, "corr-9", entry["correlation_id"])
	assert.Equal(t, "customer-1", entry["customer_ref"])
}

func TestWithContext_NoopWithoutValues(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("storefront", "info", &buf)

	WithContext(context.Background(), l).Info("plain")

	entry := logLine(t, &buf)
	_, hasCorr := entry["correlation_id"]
	assert.False(t, hasCorr)
}
