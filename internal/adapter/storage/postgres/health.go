package postgres

import (
	"context"
	"errors"
	"fmt"
)

const schemaReadyQuery = `SELECT to_regclass('accounts') IS NOT NULL AND to_regclass('owners') IS NOT NULL`

var errSchemaMissing = errors.New("account schema not migrated")

// HealthCheck implements ports.HealthChecker for the PostgreSQL account store.
// It is healthy only when the database answers and the account tables exist.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	var ready bool
	if err := h.pool.QueryRow(ctx, schemaReadyQuery).Scan(&ready); err != nil {
		return fmt.Errorf("account store: %w", err)
	}
	if !ready {
		return errSchemaMissing
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "postgresql"
}
