package publisher

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/betfeed/oddsrouter/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIndexStartsEmpty(t *testing.T) {
	idx := NewTenantIndex(&fakeTenantStore{}, time.Hour, testLogger())

	snap := idx.Snapshot()
	require.NotNil(t, snap)
	require.Zero(t, snap.Len())
	require.Empty(t, snap.Tenants())
}

func TestRefreshBuildsSnapshot(t *testing.T) {
	p1, p2 := int64(1), int64(2)
	store := &fakeTenantStore{tenants: []domain.Tenant{
		{ID: "t2", ProfileID: &p1},
		{ID: "t1", ProfileID: &p1},
		{ID: "t3", ProfileID: &p2},
		{ID: "t4"},
	}}
	idx := NewTenantIndex(store, time.Hour, testLogger())
	require.NoError(t, idx.Refresh(context.Background()))

	snap := idx.Snapshot()
	require.Equal(t, 3, snap.Len())

	profile, ok := snap.Get("t1")
	require.True(t, ok)
	require.Equal(t, int64(1), profile)

	// Tenants without a profile are not routable.
	_, ok = snap.Get("t4")
	require.False(t, ok)

	require.Equal(t, []string{"t1", "t2", "t3"}, snap.Tenants())
	require.Equal(t, []string{"t1", "t2"}, snap.TenantsByProfile(1))
	require.Equal(t, []string{"t3"}, snap.TenantsByProfile(2))
	require.Empty(t, snap.TenantsByProfile(99))
	require.Equal(t, map[int64][]string{
		1: {"t1", "t2"},
		2: {"t3"},
	}, snap.GroupByProfile())
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	p1 := int64(1)
	store := &fakeTenantStore{tenants: []domain.Tenant{{ID: "t1", ProfileID: &p1}}}
	idx := NewTenantIndex(store, time.Hour, testLogger())
	require.NoError(t, idx.Refresh(context.Background()))

	store.err = errBoom
	err := idx.Refresh(context.Background())
	require.ErrorIs(t, err, errBoom)

	snap := idx.Snapshot()
	require.Equal(t, 1, snap.Len())
	profile, ok := snap.Get("t1")
	require.True(t, ok)
	require.Equal(t, int64(1), profile)
}

func TestRefreshFirstSeenWinsOnDuplicateTenantIDs(t *testing.T) {
	p1, p2 := int64(1), int64(2)
	store := &fakeTenantStore{tenants: []domain.Tenant{
		{ID: "t1", ProfileID: &p1},
		{ID: "t1", ProfileID: &p2},
	}}
	idx := NewTenantIndex(store, time.Hour, testLogger())
	require.NoError(t, idx.Refresh(context.Background()))

	profile, ok := idx.Snapshot().Get("t1")
	require.True(t, ok)
	require.Equal(t, int64(1), profile)
}

func TestRunRefreshesImmediately(t *testing.T) {
	p1 := int64(1)
	store := &fakeTenantStore{tenants: []domain.Tenant{{ID: "t1", ProfileID: &p1}}}
	idx := NewTenantIndex(store, time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- idx.Run(ctx) }()

	require.Eventually(t, func() bool {
		return idx.Snapshot().Len() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
