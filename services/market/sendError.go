package market

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nomadmarket/nomadledger/errors"
)

// errorResponse is the body of every failed API call.
type errorResponse struct {
	// Status contains the HTTP status code
	Status int32 `json:"status"`

	// Code contains the ledger error code, see errors.ERR
	Code int32 `json:"code"`

	// Err contains the human-readable error message
	Err string `json:"error"`
}

// statusFromError maps a ledger error code to an HTTP status.
func statusFromError(err error) int {
	switch errors.CodeOf(err) {
	case errors.ERR_NOT_FOUND:
		return http.StatusNotFound
	case errors.ERR_CONFLICT:
		return http.StatusConflict
	case errors.ERR_INVALID_ARGUMENT, errors.ERR_INVALID_OPERATION:
		return http.StatusBadRequest
	case errors.ERR_INSUFFICIENT_FUNDS:
		return http.StatusPaymentRequired
	case errors.ERR_FORBIDDEN:
		return http.StatusForbidden
	case errors.ERR_UNAUTHORIZED:
		return http.StatusUnauthorized
	case errors.ERR_TOO_MANY_REQUESTS:
		return http.StatusTooManyRequests
	case errors.ERR_CONTEXT_CANCELED, errors.ERR_SERVICE_UNAVAILABLE, errors.ERR_STORAGE_UNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// sendError writes err as an errorResponse. Internal errors are logged and
// reported without their details.
func (h *HTTP) sendError(c echo.Context, err error) error {
	status := statusFromError(err)
	message := err.Error()

	if status >= http.StatusInternalServerError {
		h.logger.Errorf("[Market_http] %s %s failed: %v", c.Request().Method, c.Request().URL.Path, err)
		message = http.StatusText(status)
	}

	e := &errorResponse{
		Status: int32(status),
		Code:   int32(errors.CodeOf(err)),
		Err:    message,
	}

	return c.JSON(status, e)
}
