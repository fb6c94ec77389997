package ports

import (
	"context"

	"account-transfer-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

// AccountRepository is the account store. Reads and writes accept the
// attempt's pgx.Tx so an attempt is persisted as one unit; a nil tx runs
// against the store directly.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	// GetByID returns nil, nil when the account does not exist.
	GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error)
	// Update writes the balance fields if account.Version is still current
	// and advances account.Version. A stale version yields
	// domain.ErrConcurrencyConflict.
	Update(ctx context.Context, tx pgx.Tx, account *domain.Account) error
}

// OwnerRepository persists account holders.
type OwnerRepository interface {
	Create(ctx context.Context, owner *domain.Owner) error
}

// DBTransactor opens the atomic scope for one attempt. A Commit that loses a
// concurrency race must fail with domain.ErrConcurrencyConflict.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
