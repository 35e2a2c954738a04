package domain

import "time"

// Tenant is a downstream consumer of the feed. Tenants without a profile
// never receive boosted variants and are skipped by profile fan-out.
type Tenant struct {
	ID        string
	Name      string
	ProfileID *int64
	CreatedAt time.Time
}
