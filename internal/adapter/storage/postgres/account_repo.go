package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"account-transfer-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository with a version column as
// the optimistic concurrency tag.
type AccountRepo struct {
	pool Pool
	now  func() time.Time
}

func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a new account. The owner row must already exist.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (id, owner_id, balance, withdrawn, paid_in, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.Owner.ID, a.Balance, a.Withdrawn, a.PaidIn,
		a.Version, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID loads an account with its owner. Inside tx it sees the attempt's
// own uncommitted writes.
func (r *AccountRepo) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT a.id, o.id, o.email, o.created_at, a.balance, a.withdrawn, a.paid_in, a.version, a.created_at, a.updated_at
		FROM accounts a JOIN owners o ON o.id = a.owner_id WHERE a.id = $1`

	a := &domain.Account{}
	err := conn(r.pool, tx).QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Owner.ID, &a.Owner.Email, &a.Owner.CreatedAt,
		&a.Balance, &a.Withdrawn, &a.PaidIn,
		&a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get account by id", err)
	}
	return a, nil
}

// Update writes balance, withdrawn and paid_in only if the stored version
// still equals a.Version. On success a.Version is advanced.
func (r *AccountRepo) Update(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `UPDATE accounts SET balance = $1, withdrawn = $2, paid_in = $3, version = version + 1, updated_at = $4
		WHERE id = $5 AND version = $6`

	updatedAt := r.now()
	tag, err := conn(r.pool, tx).Exec(ctx, query,
		a.Balance, a.Withdrawn, a.PaidIn, updatedAt, a.ID, a.Version,
	)
	if err != nil {
		return wrapErr("update account", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update account %s at version %d: %w", a.ID, a.Version, domain.ErrConcurrencyConflict)
	}

	a.Version++
	a.UpdatedAt = updatedAt
	return nil
}
