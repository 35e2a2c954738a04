package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/betfeed/oddsrouter/internal/domain"
)

// TenantStore implements domain.TenantStore using PostgreSQL.
type TenantStore struct {
	pool *pgxpool.Pool
}

// NewTenantStore creates a TenantStore backed by the given connection pool.
func NewTenantStore(pool *pgxpool.Pool) *TenantStore {
	return &TenantStore{pool: pool}
}

// FindAll returns every tenant, including those without a profile.
func (s *TenantStore) FindAll(ctx context.Context) ([]domain.Tenant, error) {
	const query = `
		SELECT id, name, profile_id, created_at
		FROM tenants
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.ProfileID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list tenants rows: %w", err)
	}
	return tenants, nil
}
