package memory

import (
	"context"
	"fmt"

	"account-transfer-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	store *Store
}

func NewAccountRepo(store *Store) *AccountRepo {
	return &AccountRepo{store: store}
}

// Create inserts a committed account. Its owner must exist.
func (r *AccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.owners[a.Owner.ID]; !ok {
		return fmt.Errorf("insert account: owner %s does not exist", a.Owner.ID)
	}
	if _, exists := r.store.accounts[a.ID]; exists {
		return fmt.Errorf("insert account: duplicate id %s", a.ID)
	}
	r.store.accounts[a.ID] = a.Clone()
	return nil
}

// GetByID returns the account as tx sees it: its own staged write if any,
// otherwise the committed state.
func (r *AccountRepo) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if mtx, err := asTx(tx); err != nil {
		return nil, err
	} else if mtx != nil {
		if staged := mtx.staged(id); staged != nil {
			return staged, nil
		}
	}
	return r.store.committed(id), nil
}

// Update writes a if a.Version is still current from tx's point of view and
// advances a.Version. Without a tx the write is committed immediately.
func (r *AccountRepo) Update(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mtx, err := asTx(tx)
	if err != nil {
		return err
	}

	next := a.Clone()
	next.Version = a.Version + 1
	next.UpdatedAt = r.store.now()

	if mtx == nil {
		if err := r.store.apply(map[uuid.UUID]int64{a.ID: a.Version}, map[uuid.UUID]*domain.Account{a.ID: next}); err != nil {
			return err
		}
	} else if err := mtx.stage(a.Version, next); err != nil {
		return err
	}

	a.Version = next.Version
	a.UpdatedAt = next.UpdatedAt
	return nil
}

// apply installs writes if every account still carries its base version.
func (s *Store) apply(base map[uuid.UUID]int64, writes map[uuid.UUID]*domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, version := range base {
		current, ok := s.accounts[id]
		if !ok {
			return fmt.Errorf("account %s no longer exists: %w", id, domain.ErrConcurrencyConflict)
		}
		if current.Version != version {
			return fmt.Errorf("account %s is at version %d, write was based on %d: %w",
				id, current.Version, version, domain.ErrConcurrencyConflict)
		}
	}
	for id, a := range writes {
		s.accounts[id] = a
	}
	return nil
}
