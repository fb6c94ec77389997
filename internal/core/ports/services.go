package ports

import (
	"context"
	"time"

	"account-transfer-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

// Notifier delivers advisory notifications. Callers treat every error as
// non-fatal.
type Notifier interface {
	NotifyFundsLow(ctx context.Context, address string) error
	NotifyApproachingPayInLimit(ctx context.Context, address string) error
}

// IdempotencyCache stores replayable responses keyed by client idempotency key.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // nil when absent
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Reserve marks key as in flight. It reports false if another request
	// already holds it.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// --- Service Ports (Business Logic) ---

// AccountService moves money in, out of and between accounts.
type AccountService interface {
	OpenAccount(ctx context.Context, req OpenAccountRequest) (*domain.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error
	Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error
	Transfer(ctx context.Context, fromAccountID, toAccountID uuid.UUID, amount decimal.Decimal) error
}

// OpenAccountRequest holds validated input for opening an account.
type OpenAccountRequest struct {
	OwnerEmail     string
	InitialBalance decimal.Decimal
}
