package errors

var (
	ErrUnknown            = New(ERR_UNKNOWN, "unknown error")
	ErrInvalidArgument    = New(ERR_INVALID_ARGUMENT, "invalid argument")
	ErrNotFound           = New(ERR_NOT_FOUND, "not found")
	ErrProcessing         = New(ERR_PROCESSING, "error processing")
	ErrConfiguration      = New(ERR_CONFIGURATION, "configuration error")
	ErrContext            = New(ERR_CONTEXT, "context error")
	ErrContextCanceled    = New(ERR_CONTEXT_CANCELED, "context canceled")
	ErrError              = New(ERR_ERROR, "generic error")
	ErrConflict           = New(ERR_CONFLICT, "conflict")
	ErrInvalidOperation   = New(ERR_INVALID_OPERATION, "invalid operation")
	ErrInsufficientFunds  = New(ERR_INSUFFICIENT_FUNDS, "insufficient funds")
	ErrForbidden          = New(ERR_FORBIDDEN, "forbidden")
	ErrUnauthorized       = New(ERR_UNAUTHORIZED, "unauthorized")
	ErrTooManyRequests    = New(ERR_TOO_MANY_REQUESTS, "too many requests")
	ErrServiceUnavailable = New(ERR_SERVICE_UNAVAILABLE, "service unavailable")
	ErrServiceNotStarted  = New(ERR_SERVICE_NOT_STARTED, "service not started")
	ErrServiceError       = New(ERR_SERVICE_ERROR, "service error")
	ErrStorageUnavailable = New(ERR_STORAGE_UNAVAILABLE, "storage unavailable")
	ErrStorageNotStarted  = New(ERR_STORAGE_NOT_STARTED, "storage not started")
	ErrStorageError       = New(ERR_STORAGE_ERROR, "storage error")
)

// errors initialization functions

func NewUnknownError(message string, params ...interface{}) error {
	return New(ERR_UNKNOWN, message, params...)
}
func NewInvalidArgumentError(message string, params ...interface{}) error {
	return New(ERR_INVALID_ARGUMENT, message, params...)
}
func NewNotFoundError(message string, params ...interface{}) error {
	return New(ERR_NOT_FOUND, message, params...)
}
func NewProcessingError(message string, params ...interface{}) error {
	return New(ERR_PROCESSING, message, params...)
}
func NewConfigurationError(message string, params ...interface{}) error {
	return New(ERR_CONFIGURATION, message, params...)
}
func NewContextError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT, message, params...)
}
func NewContextCanceledError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT_CANCELED, message, params...)
}
func NewError(message string, params ...interface{}) error {
	return New(ERR_ERROR, message, params...)
}
func NewConflictError(message string, params ...interface{}) error {
	return New(ERR_CONFLICT, message, params...)
}
func NewInvalidOperationError(message string, params ...interface{}) error {
	return New(ERR_INVALID_OPERATION, message, params...)
}
func NewInsufficientFundsError(message string, params ...interface{}) error {
	return New(ERR_INSUFFICIENT_FUNDS, message, params...)
}
func NewForbiddenError(message string, params ...interface{}) error {
	return New(ERR_FORBIDDEN, message, params...)
}
func NewUnauthorizedError(message string, params ...interface{}) error {
	return New(ERR_UNAUTHORIZED, message, params...)
}
func NewTooManyRequestsError(message string, params ...interface{}) error {
	return New(ERR_TOO_MANY_REQUESTS, message, params...)
}
func NewServiceUnavailableError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_UNAVAILABLE, message, params...)
}
func NewServiceNotStartedError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_NOT_STARTED, message, params...)
}
func NewServiceError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_ERROR, message, params...)
}
func NewStorageUnavailableError(message string, params ...interface{}) error {
	return New(ERR_STORAGE_UNAVAILABLE, message, params...)
}
func NewStorageNotStartedError(message string, params ...interface{}) error {
	return New(ERR_STORAGE_NOT_STARTED, message, params...)
}
func NewStorageError(message string, params ...interface{}) error {
	return New(ERR_STORAGE_ERROR, message, params...)
}
