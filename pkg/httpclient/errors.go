package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/Fblink88/appburguer-backend/pkg/errors"
)

// DownstreamErrorResponse mirrors the error envelope returned by the
// storefront's collaborators so their codes survive the hop.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads a non-2xx response body and translates it into an
// AppError. Structured error bodies keep their code and message; anything
// else falls back to a status-plus-body error. The body is consumed and
// closed.
func ParseResponseError(resp *http.Response, collaborator string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", collaborator, resp.StatusCode, err)
	}

	var downstream DownstreamErrorResponse
	if json.Unmarshal(body, &downstream) == nil && downstream.Error != nil {
		return mapDownstreamError(resp.StatusCode, downstream.Error.Code, downstream.Error.Message, collaborator)
	}

	return fmt.Errorf("%s returned status %d: %s", collaborator, resp.StatusCode, string(body))
}

func mapDownstreamError(status int, code, message, collaborator string) error {
	qualified := fmt.Sprintf("%s: %s", collaborator, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(collaborator, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualified)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case status == http.StatusGone:
		return apperrors.Gone(qualified)
	case status == http.StatusUnprocessableEntity:
		return apperrors.PaymentFailed(qualified)
	case status == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(qualified)
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", collaborator, status, code, message)
	default:
		return &apperrors.AppError{Code: code, Message: qualified, Status: status}
	}
}
