package domain

import "errors"

// Account rule violations. These are terminal: the transaction engine never
// retries them.
var (
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrSameAccountTransfer = errors.New("source and destination account are the same")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrPayInLimitExceeded  = errors.New("pay-in limit exceeded")
)

// ErrConcurrencyConflict signals that the account changed underneath an
// attempt. Stores return it when their version check fails; the engine
// raises it when the post-write re-read disagrees with what it wrote.
// It is the only retryable error.
var ErrConcurrencyConflict = errors.New("concurrent modification detected")
