// Package memory is a process-local account store with the same optimistic
// concurrency contract as the PostgreSQL adapter. Writes made inside a
// transaction are staged and applied atomically on Commit, which fails with
// domain.ErrConcurrencyConflict if any touched account moved meanwhile.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"account-transfer-service/internal/core/domain"

	"github.com/google/uuid"
)

// Store holds committed owners and accounts.
type Store struct {
	mu       sync.RWMutex
	owners   map[uuid.UUID]domain.Owner
	accounts map[uuid.UUID]*domain.Account
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		owners:   make(map[uuid.UUID]domain.Owner),
		accounts: make(map[uuid.UUID]*domain.Account),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) committed(id uuid.UUID) *domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.accounts[id]; ok {
		return a.Clone()
	}
	return nil
}

// HealthCheck implements ports.HealthChecker for the memory store.
type HealthCheck struct{}

func NewHealthCheck() HealthCheck { return HealthCheck{} }

func (HealthCheck) Ping(ctx context.Context) error { return ctx.Err() }

func (HealthCheck) Name() string { return "memory" }

// OwnerRepo implements ports.OwnerRepository.
type OwnerRepo struct {
	store *Store
}

func NewOwnerRepo(store *Store) *OwnerRepo {
	return &OwnerRepo{store: store}
}

func (r *OwnerRepo) Create(_ context.Context, o *domain.Owner) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.owners[o.ID]; exists {
		return fmt.Errorf("insert owner: duplicate id %s", o.ID)
	}
	r.store.owners[o.ID] = *o
	return nil
}
