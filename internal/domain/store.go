package domain

import "context"

// TenantStore reads tenant records.
type TenantStore interface {
	FindAll(ctx context.Context) ([]Tenant, error)
}

// BoostStore reads boosted-market configurations. Both queries return rows
// ordered by id so that downstream duplicate-key resolution is deterministic.
type BoostStore interface {
	FindByProfileAndFixture(ctx context.Context, profileID int64, fixtureURN string) ([]BoostConfig, error)
	FindByFixtures(ctx context.Context, fixtureURNs []string) ([]BoostConfig, error)
}

// FeedLogStore persists feed log entries.
type FeedLogStore interface {
	Save(ctx context.Context, entry FeedLogEntry) error
}
