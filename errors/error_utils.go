package errors

import (
	"context"
	"errors"
)

// IsClientError determines if an error was caused by the request rather than the system.
// These are the terminal outcomes a caller can act on: a missing item, a duplicate mint,
// a self-purchase, a short balance or an unauthorized wallet read.
func IsClientError(err error) bool {
	if err == nil {
		return false
	}

	switch CodeOf(err) {
	case ERR_INVALID_ARGUMENT,
		ERR_NOT_FOUND,
		ERR_CONFLICT,
		ERR_INVALID_OPERATION,
		ERR_INSUFFICIENT_FUNDS,
		ERR_FORBIDDEN,
		ERR_UNAUTHORIZED,
		ERR_TOO_MANY_REQUESTS:
		return true
	}

	return false
}

// IsInternalError reports whether err should be logged with full context and reported
// generically to the end user.
func IsInternalError(err error) bool {
	return err != nil && !IsClientError(err)
}

// IsRetryableError determines if an error is transient and the operation may be resubmitted unchanged.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Check if context was cancelled - not retryable
	if errors.Is(err, context.Canceled) {
		return false
	}

	switch CodeOf(err) {
	case ERR_SERVICE_UNAVAILABLE,
		ERR_STORAGE_UNAVAILABLE,
		ERR_TOO_MANY_REQUESTS:
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// IsContextError determines if an error is related to context cancellation or deadline.
func IsContextError(err error) bool {
	if err == nil {
		return false
	}

	// Check standard context errors, wrapped or not
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	switch CodeOf(err) {
	case ERR_CONTEXT, ERR_CONTEXT_CANCELED:
		return true
	}

	return false
}
