package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ---- Account rules (ACC) ----
// cause is the domain sentinel so callers can still match with errors.Is.

func ErrInvalidAmount(cause error) *AppError {
	return Wrap("ACC_001", "Amount must be greater than zero", http.StatusBadRequest, cause)
}

func ErrSameAccountTransfer(cause error) *AppError {
	return Wrap("ACC_002", "Source and destination accounts must differ", http.StatusBadRequest, cause)
}

func ErrAccountNotFound(cause error) *AppError {
	return Wrap("ACC_003", "Account not found", http.StatusNotFound, cause)
}

func ErrInsufficientFunds(cause error) *AppError {
	return Wrap("ACC_004", "Insufficient funds", http.StatusPaymentRequired, cause)
}

func ErrPayInLimitExceeded(cause error) *AppError {
	return Wrap("ACC_005", "Pay-in limit exceeded", http.StatusUnprocessableEntity, cause)
}

// ---- Transaction engine (TXN) ----

// ErrConcurrencyConflict is returned once the retry budget is spent under contention.
func ErrConcurrencyConflict(cause error) *AppError {
	return Wrap("TXN_001", "Account was modified concurrently, retry budget exhausted", http.StatusConflict, cause)
}

// ---- Notifications (NTF) ----

// ErrNotificationDelivery is only ever logged; it never reaches a caller.
func ErrNotificationDelivery(cause error) *AppError {
	return Wrap("NTF_001", "Notification delivery failed", http.StatusBadGateway, cause)
}

// ---- Request handling (IDM) ----

func ErrIdempotencyInFlight() *AppError {
	return New("IDM_001", "A request with this Idempotency-Key is already in progress", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// ErrStoreFailure marks an account store error that is not a concurrency conflict.
func ErrStoreFailure(err error) *AppError {
	return Wrap("SYS_001", "Unexpected account store error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_002 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_002", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("REQ_001", message, http.StatusBadRequest)
}
