package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/betfeed/oddsrouter/internal/domain"
)

// Snapshot is one immutable view of the tenant to profile mapping. Snapshots
// are never mutated after publication; the index swaps in a fresh one on
// every successful refresh.
type Snapshot struct {
	profiles map[string]int64
}

// Get returns the profile a tenant is attached to.
func (s *Snapshot) Get(tenantID string) (int64, bool) {
	id, ok := s.profiles[tenantID]
	return id, ok
}

// Len returns the number of routable tenants in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.profiles)
}

// Tenants returns every tenant id in the snapshot, sorted.
func (s *Snapshot) Tenants() []string {
	out := make([]string, 0, len(s.profiles))
	for tenant := range s.profiles {
		out = append(out, tenant)
	}
	sort.Strings(out)
	return out
}

// TenantsByProfile returns the tenants attached to one profile, sorted.
func (s *Snapshot) TenantsByProfile(profileID int64) []string {
	var out []string
	for tenant, profile := range s.profiles {
		if profile == profileID {
			out = append(out, tenant)
		}
	}
	sort.Strings(out)
	return out
}

// GroupByProfile returns tenant ids keyed by profile id. Each slice is
// sorted so fan-out order is stable across calls.
func (s *Snapshot) GroupByProfile() map[int64][]string {
	out := make(map[int64][]string)
	for tenant, profile := range s.profiles {
		out[profile] = append(out[profile], tenant)
	}
	for _, tenants := range out {
		sort.Strings(tenants)
	}
	return out
}

// TenantIndex maintains the tenant to profile mapping consulted on every
// publication. Readers load an immutable snapshot and keep it for the whole
// call, so a refresh landing mid-publish never splits one fan-out across two
// views of the world.
type TenantIndex struct {
	store    domain.TenantStore
	interval time.Duration
	logger   *slog.Logger

	snapshot atomic.Pointer[Snapshot]
}

// NewTenantIndex creates an index that refreshes from store every interval.
// The index starts empty; call Refresh or Run to load the first snapshot.
func NewTenantIndex(store domain.TenantStore, interval time.Duration, logger *slog.Logger) *TenantIndex {
	idx := &TenantIndex{
		store:    store,
		interval: interval,
		logger:   logger.With(slog.String("component", "tenant_index")),
	}
	idx.snapshot.Store(&Snapshot{profiles: map[string]int64{}})
	return idx
}

// Snapshot returns the current mapping. Never nil.
func (idx *TenantIndex) Snapshot() *Snapshot {
	return idx.snapshot.Load()
}

// Refresh loads all tenants from the store and swaps in a new snapshot.
// Tenants without a profile are not routable and are left out. On failure
// the previous snapshot stays in effect.
func (idx *TenantIndex) Refresh(ctx context.Context) error {
	tenants, err := idx.store.FindAll(ctx)
	if err != nil {
		idx.logger.Error("tenant refresh failed, keeping previous snapshot",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publisher: refresh tenants: %w", err)
	}

	profiles := make(map[string]int64, len(tenants))
	for _, t := range tenants {
		if t.ProfileID == nil {
			continue
		}
		if _, ok := profiles[t.ID]; ok {
			// first row wins on duplicate tenant ids
			continue
		}
		profiles[t.ID] = *t.ProfileID
	}

	idx.snapshot.Store(&Snapshot{profiles: profiles})
	idx.logger.Info("tenant snapshot refreshed",
		slog.Int("tenants", len(profiles)),
		slog.Int("skipped", len(tenants)-len(profiles)),
	)
	return nil
}

// Run refreshes immediately and then on every interval tick until ctx is
// cancelled. Refresh errors are logged inside Refresh and do not stop the
// loop.
func (idx *TenantIndex) Run(ctx context.Context) error {
	// Run immediately on start.
	_ = idx.Refresh(ctx)

	ticker := time.NewTicker(idx.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			idx.logger.Info("tenant refresh loop stopped")
			return ctx.Err()
		case <-ticker.C:
			_ = idx.Refresh(ctx)
		}
	}
}
