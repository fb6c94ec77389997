package memory

import (
	"context"
	"fmt"
	"sync"

	"account-transfer-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor for the memory store.
type Transactor struct {
	store *Store
}

func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{
		store:  t.store,
		base:   make(map[uuid.UUID]int64),
		writes: make(map[uuid.UUID]*domain.Account),
	}, nil
}

// Tx stages account writes until Commit. Only Commit and Rollback are
// implemented; the embedded pgx.Tx is nil and any other method panics.
type Tx struct {
	pgx.Tx

	mu     sync.Mutex
	store  *Store
	base   map[uuid.UUID]int64 // committed version each staged write builds on
	writes map[uuid.UUID]*domain.Account
	closed bool
}

func asTx(tx pgx.Tx) (*Tx, error) {
	if tx == nil {
		return nil, nil
	}
	mtx, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("memory store: foreign transaction type %T", tx)
	}
	return mtx, nil
}

func (tx *Tx) staged(id uuid.UUID) *domain.Account {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if a, ok := tx.writes[id]; ok {
		return a.Clone()
	}
	return nil
}

// stage records next as the write for its account, failing fast if the
// version it was read at is already stale.
func (tx *Tx) stage(readVersion int64, next *domain.Account) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.closed {
		return pgx.ErrTxClosed
	}

	if prev, ok := tx.writes[next.ID]; ok {
		if prev.Version != readVersion {
			return fmt.Errorf("account %s staged at version %d, write was based on %d: %w",
				next.ID, prev.Version, readVersion, domain.ErrConcurrencyConflict)
		}
	} else {
		current := tx.store.committed(next.ID)
		if current == nil {
			return fmt.Errorf("account %s does not exist: %w", next.ID, domain.ErrConcurrencyConflict)
		}
		if current.Version != readVersion {
			return fmt.Errorf("account %s is at version %d, write was based on %d: %w",
				next.ID, current.Version, readVersion, domain.ErrConcurrencyConflict)
		}
		tx.base[next.ID] = readVersion
	}

	tx.writes[next.ID] = next
	return nil
}

// Commit applies every staged write or none of them.
func (tx *Tx) Commit(_ context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true

	if len(tx.writes) == 0 {
		return nil
	}
	return tx.store.apply(tx.base, tx.writes)
}

// Rollback discards staged writes. It is a no-op after Commit.
func (tx *Tx) Rollback(_ context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	tx.closed = true
	tx.writes = nil
	tx.base = nil
	return nil
}
