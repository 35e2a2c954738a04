package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/betfeed/oddsrouter/internal/domain"
)

// BoostStore implements domain.BoostStore using PostgreSQL. Both queries
// order by id; callers rely on that for stable duplicate-key resolution.
type BoostStore struct {
	pool *pgxpool.Pool
}

// NewBoostStore creates a BoostStore backed by the given connection pool.
func NewBoostStore(pool *pgxpool.Pool) *BoostStore {
	return &BoostStore{pool: pool}
}

// FindByProfileAndFixture returns the boost rows for one profile and fixture.
func (s *BoostStore) FindByProfileAndFixture(ctx context.Context, profileID int64, fixtureURN string) ([]domain.BoostConfig, error) {
	const query = `
		SELECT id, profile_id, fixture_urn, market_id, market_specifier, strategy, percent::text
		FROM boosted_markets
		WHERE profile_id = $1 AND fixture_urn = $2
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query, profileID, fixtureURN)
	if err != nil {
		return nil, fmt.Errorf("postgres: boosts for profile %d fixture %s: %w", profileID, fixtureURN, err)
	}
	defer rows.Close()
	return collectBoosts(rows)
}

// FindByFixtures returns the boost rows for the fixtures across all profiles.
func (s *BoostStore) FindByFixtures(ctx context.Context, fixtureURNs []string) ([]domain.BoostConfig, error) {
	if len(fixtureURNs) == 0 {
		return nil, nil
	}

	const query = `
		SELECT id, profile_id, fixture_urn, market_id, market_specifier, strategy, percent::text
		FROM boosted_markets
		WHERE fixture_urn = ANY($1)
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query, fixtureURNs)
	if err != nil {
		return nil, fmt.Errorf("postgres: boosts for fixtures: %w", err)
	}
	defer rows.Close()
	return collectBoosts(rows)
}

// collectBoosts scans boost rows, parsing percent through text so the
// catalog's NUMERIC values survive without float drift.
func collectBoosts(rows pgx.Rows) ([]domain.BoostConfig, error) {
	var boosts []domain.BoostConfig
	for rows.Next() {
		var (
			b       domain.BoostConfig
			percent string
		)
		if err := rows.Scan(&b.ID, &b.ProfileID, &b.FixtureURN, &b.MarketID, &b.MarketSpecifier, &b.Strategy, &percent); err != nil {
			return nil, fmt.Errorf("postgres: scan boost: %w", err)
		}
		p, err := decimal.NewFromString(percent)
		if err != nil {
			return nil, fmt.Errorf("postgres: parse boost percent %q: %w", percent, err)
		}
		b.Percent = p
		boosts = append(boosts, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: boost rows: %w", err)
	}
	return boosts, nil
}
