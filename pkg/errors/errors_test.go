package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrInvalidInput, ErrUnauthorized, ErrConflict,
		ErrGone, ErrInternal, ErrServiceUnavail, ErrPaymentFailed,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	withCause := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: fmt.Errorf("db connection lost")}
	assert.Contains(t, withCause.Error(), "INTERNAL_ERROR")
	assert.Contains(t, withCause.Error(), "db connection lost")

	bare := &AppError{Code: "NOT_FOUND", Message: "cart not found"}
	assert.Equal(t, "NOT_FOUND: cart not found", bare.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "nope", Err: ErrNotFound}
	assert.True(t, errors.Is(appErr, ErrNotFound))

	assert.Nil(t, (&AppError{Code: "TEST", Message: "test"}).Unwrap())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"not found", NotFound("checkout_session", "sess-1"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"invalid input", InvalidInput("quantity must be positive"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput},
		{"unauthorized", Unauthorized("missing identity header"), "UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized},
		{"conflict", Conflict("submission in progress"), "CONFLICT", http.StatusConflict, ErrConflict},
		{"gone", Gone("session expired"), "GONE", http.StatusGone, ErrGone},
		{"service unavailable", ServiceUnavailable("order service down"), "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, ErrServiceUnavail},
		{"payment failed", PaymentFailed("card declined"), "PAYMENT_FAILED", http.StatusUnprocessableEntity, ErrPaymentFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.True(t, errors.Is(tt.err, tt.sentinel))
		})
	}
}

func TestNotFound_MessageNamesResource(t *testing.T) {
	err := NotFound("cart line", "42")
	assert.Contains(t, err.Message, "cart line")
	assert.Contains(t, err.Message, "42")
}

func TestInternal_WrapsCause(t *testing.T) {
	inner := fmt.Errorf("segfault")
	err := Internal(inner)
	assert.Equal(t, "INTERNAL_ERROR", err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Contains(t, err.Error(), "segfault")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("item", "1")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("outer: %w", ErrNotFound)))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrInvalidInput))
	assert.Equal(t, http.StatusConflict, HTTPStatus(ErrConflict))
	assert.Equal(t, http.StatusGone, HTTPStatus(ErrGone))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(ErrPaymentFailed))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("unknown")))
}
