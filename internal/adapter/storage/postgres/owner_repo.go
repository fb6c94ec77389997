package postgres

import (
	"context"
	"fmt"

	"account-transfer-service/internal/core/domain"
)

// OwnerRepo implements ports.OwnerRepository.
type OwnerRepo struct {
	pool Pool
}

func NewOwnerRepo(pool Pool) *OwnerRepo {
	return &OwnerRepo{pool: pool}
}

func (r *OwnerRepo) Create(ctx context.Context, o *domain.Owner) error {
	query := `INSERT INTO owners (id, email, created_at) VALUES ($1, $2, $3)`

	if _, err := r.pool.Exec(ctx, query, o.ID, o.Email, o.CreatedAt); err != nil {
		return fmt.Errorf("insert owner: %w", err)
	}
	return nil
}
