package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/betfeed/oddsrouter/internal/boost"
	"github.com/betfeed/oddsrouter/internal/domain"
)

var errBoom = errors.New("boom")

type publishCall struct {
	msg      *domain.OddsChange
	sportID  int64
	nodeID   string
	tenantID string
	headers  map[string]any
}

type fakeBroker struct {
	calls     []publishCall
	fail      map[string]error
	onPublish func()
}

func (b *fakeBroker) Publish(_ context.Context, msg *domain.OddsChange, sportID int64, nodeID, tenantID string, headers map[string]any) error {
	b.calls = append(b.calls, publishCall{msg: msg, sportID: sportID, nodeID: nodeID, tenantID: tenantID, headers: headers})
	if b.onPublish != nil {
		b.onPublish()
	}
	if err, ok := b.fail[tenantID]; ok {
		return err
	}
	return nil
}

func (b *fakeBroker) byTenant() map[string]publishCall {
	out := make(map[string]publishCall, len(b.calls))
	for _, c := range b.calls {
		out[c.tenantID] = c
	}
	return out
}

type fakeTenantStore struct {
	tenants []domain.Tenant
	err     error
}

func (s *fakeTenantStore) FindAll(context.Context) ([]domain.Tenant, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tenants, nil
}

type fakeBoostStore struct {
	byProfile    map[int64][]domain.BoostConfig
	byFixture    []domain.BoostConfig
	err          error
	profileCalls int
	fixtureCalls int
}

func (s *fakeBoostStore) FindByProfileAndFixture(_ context.Context, profileID int64, _ string) ([]domain.BoostConfig, error) {
	s.profileCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.byProfile[profileID], nil
}

func (s *fakeBoostStore) FindByFixtures(_ context.Context, _ []string) ([]domain.BoostConfig, error) {
	s.fixtureCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.byFixture, nil
}

type fakeMapping struct {
	primary map[string]bool
	err     error
}

func (m *fakeMapping) IsPrimaryMarket(_ context.Context, marketID int, sportURN string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.primary[fmt.Sprintf("%d|%s", marketID, sportURN)], nil
}

func (m *fakeMapping) SetPrimaryMarkets(context.Context, string, []int) error {
	return nil
}

type fixture struct {
	broker      *fakeBroker
	tenantStore *fakeTenantStore
	boosts      *fakeBoostStore
	mapping     *fakeMapping
	index       *TenantIndex
	feedLog     *FeedLogger
	pub         *Publisher
}

// newFixture seeds the index with {t1->p1, t2->p1, t3->p2} unless tenants
// overrides it.
func newFixture(t *testing.T, tenants ...domain.Tenant) *fixture {
	t.Helper()
	if len(tenants) == 0 {
		p1, p2 := int64(1), int64(2)
		tenants = []domain.Tenant{
			{ID: "t1", ProfileID: &p1},
			{ID: "t2", ProfileID: &p1},
			{ID: "t3", ProfileID: &p2},
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fx := &fixture{
		broker:      &fakeBroker{},
		tenantStore: &fakeTenantStore{tenants: tenants},
		boosts:      &fakeBoostStore{},
		mapping:     &fakeMapping{primary: map[string]bool{}},
	}
	fx.index = NewTenantIndex(fx.tenantStore, time.Hour, logger)
	require.NoError(t, fx.index.Refresh(context.Background()))
	fx.feedLog = NewFeedLogger(&fakeFeedStore{}, true, 16, logger)
	fx.pub = New(fx.broker, fx.boosts, fx.mapping, boost.NewApplicator(boost.NewRegistry()), fx.index, fx.feedLog, logger)
	return fx
}

func (fx *fixture) archives() []domain.FeedLogEntry {
	var out []domain.FeedLogEntry
	for {
		select {
		case e := <-fx.feedLog.queue:
			out = append(out, e)
		default:
			return out
		}
	}
}

func prematchMessage() *domain.OddsChange {
	return &domain.OddsChange{
		EventID:   "sr:match:12345",
		Product:   domain.ProductPrematch,
		Timestamp: 1700000000000,
		Odds: &domain.Odds{
			Markets: []domain.OddsChangeMarket{
				{
					ID: 10, Specifiers: "total=2.5", Status: 1,
					Outcomes: []domain.Outcome{
						{ID: "sr:outcome:12", Odds: 1.8},
						{ID: "sr:outcome:13", Odds: 2.0},
					},
				},
				{
					ID: 5, Status: 1,
					Outcomes: []domain.Outcome{{ID: "sr:outcome:1", Odds: 3.5}},
				},
			},
		},
	}
}

func additiveBoost(profileID int64) domain.BoostConfig {
	return domain.BoostConfig{
		ID: 1, ProfileID: profileID, FixtureURN: "sr:match:12345",
		MarketID: 10, MarketSpecifier: "total=2.5",
		Strategy: boost.StrategyAdditivePercent, Percent: decimal.NewFromInt(10),
	}
}

func TestBroadcastNoBoostsReachesEveryTenant(t *testing.T) {
	fx := newFixture(t)
	fx.mapping.primary["10|sr:sport:1"] = true
	msg := prematchMessage()

	err := fx.pub.Publish(context.Background(), msg, "sr:sport:1", domain.BroadcastRoute())
	require.NoError(t, err)

	require.Len(t, fx.broker.calls, 3)
	calls := fx.broker.byTenant()
	for _, tenantID := range []string{"t1", "t2", "t3"} {
		call, ok := calls[tenantID]
		require.True(t, ok, "missing publish for %s", tenantID)
		require.Same(t, msg, call.msg)
		require.Equal(t, int64(1), call.sportID)
		require.Equal(t, domain.BroadcastNodeID, call.nodeID)
	}

	entries := fx.archives()
	require.Len(t, entries, 1)
	require.Nil(t, entries[0].ProfileID)
	require.Equal(t, "sr:match:12345", entries[0].EventID)
}

func TestBroadcastAppliesProfileBoosts(t *testing.T) {
	fx := newFixture(t)
	fx.mapping.primary["10|sr:sport:1"] = true
	fx.boosts.byFixture = []domain.BoostConfig{additiveBoost(1)}
	msg := prematchMessage()

	err := fx.pub.Publish(context.Background(), msg, "sr:sport:1", domain.BroadcastRoute())
	require.NoError(t, err)
	require.Len(t, fx.broker.calls, 3)

	calls := fx.broker.byTenant()
	for _, tenantID := range []string{"t1", "t2"} {
		boosted := calls[tenantID].msg
		require.NotSame(t, msg, boosted)
		require.Equal(t, 1.88, boosted.Odds.Markets[0].Outcomes[0].Odds)
		require.Equal(t, 2.1, boosted.Odds.Markets[0].Outcomes[1].Odds)
		require.Equal(t, 3.5, boosted.Odds.Markets[1].Outcomes[0].Odds)
	}
	// One apply per profile: both p1 tenants share the same variant.
	require.Same(t, calls["t1"].msg, calls["t2"].msg)
	require.Same(t, msg, calls["t3"].msg)

	// Input message is never mutated.
	require.Equal(t, prematchMessage(), msg)

	entries := fx.archives()
	require.Len(t, entries, 2)
	profiles := make(map[int64]bool)
	for _, e := range entries {
		require.NotNil(t, e.ProfileID)
		profiles[*e.ProfileID] = true
	}
	require.Equal(t, map[int64]bool{1: true, 2: true}, profiles)
}

func TestProfileRouteSkipsBoostLookupForLive(t *testing.T) {
	fx := newFixture(t)
	msg := prematchMessage()
	msg.Product = domain.ProductLive

	err := fx.pub.Publish(context.Background(), msg, "sr:sport:1", domain.ProfileRoute(1))
	require.NoError(t, err)

	require.Zero(t, fx.boosts.profileCalls)
	require.Len(t, fx.broker.calls, 2)
	calls := fx.broker.byTenant()
	require.Same(t, msg, calls["t1"].msg)
	require.Same(t, msg, calls["t2"].msg)
	require.NotContains(t, calls, "t3")

	entries := fx.archives()
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].ProfileID)
	require.Equal(t, int64(1), *entries[0].ProfileID)
}

func TestTenantRouteUnknownTenantDropsPublication(t *testing.T) {
	fx := newFixture(t)

	err := fx.pub.Publish(context.Background(), prematchMessage(), "sr:sport:1", domain.TenantRoute("tX", "node-7"))
	require.NoError(t, err)
	require.Empty(t, fx.broker.calls)
	require.Empty(t, fx.archives())
}

func TestBroadcastUsesSnapshotCapturedAtCallStart(t *testing.T) {
	fx := newFixture(t)
	p1 := int64(1)
	swapped := false
	fx.broker.onPublish = func() {
		// A refresh landing mid-call must not change this fan-out.
		if !swapped {
			swapped = true
			fx.tenantStore.tenants = []domain.Tenant{{ID: "t1", ProfileID: &p1}}
			require.NoError(t, fx.index.Refresh(context.Background()))
		}
	}

	err := fx.pub.Publish(context.Background(), prematchMessage(), "sr:sport:1", domain.BroadcastRoute())
	require.NoError(t, err)
	require.Len(t, fx.broker.calls, 3)

	fx.broker.calls = nil
	err = fx.pub.Publish(context.Background(), prematchMessage(), "sr:sport:1", domain.BroadcastRoute())
	require.NoError(t, err)
	require.Len(t, fx.broker.calls, 1)
	require.Equal(t, "t1", fx.broker.calls[0].tenantID)
}

func TestTenantRouteDeliversBoostedVariantWithoutArchive(t *testing.T) {
	fx := newFixture(t)
	fx.mapping.primary["10|sr:sport:1"] = true
	fx.boosts.byProfile = map[int64][]domain.BoostConfig{1: {additiveBoost(1)}}
	msg := prematchMessage()

	err := fx.pub.Publish(context.Background(), msg, "sr:sport:1", domain.TenantRoute("t1", "n"))
	require.NoError(t, err)

	require.Len(t, fx.broker.calls, 1)
	call := fx.broker.calls[0]
	require.Equal(t, "t1", call.tenantID)
	require.Equal(t, "n", call.nodeID)
	require.Equal(t, int64(1), call.sportID)
	require.NotSame(t, msg, call.msg)
	require.Equal(t, 1.88, call.msg.Odds.Markets[0].Outcomes[0].Odds)

	require.Empty(t, fx.archives())
	require.Equal(t, prematchMessage(), msg)
}

func TestPublishMalformedSportURNFailsBeforeFanOut(t *testing.T) {
	fx := newFixture(t)

	err := fx.pub.Publish(context.Background(), prematchMessage(), "sr:sport:x", domain.BroadcastRoute())
	require.ErrorIs(t, err, domain.ErrMalformedURN)
	require.Empty(t, fx.broker.calls)
}

func TestPublishInvalidRouteRejected(t *testing.T) {
	fx := newFixture(t)

	err := fx.pub.Publish(context.Background(), prematchMessage(), "sr:sport:1", domain.Route{Kind: domain.RouteTenant})
	require.ErrorIs(t, err, domain.ErrInvalidRoute)
	require.Empty(t, fx.broker.calls)
}

func TestPublishNilMessageRejected(t *testing.T) {
	fx := newFixture(t)

	err := fx.pub.Publish(context.Background(), nil, "sr:sport:1", domain.BroadcastRoute())
	require.Error(t, err)
	require.Empty(t, fx.broker.calls)
}

func TestBroadcastCollectsPerTenantBrokerFailures(t *testing.T) {
	fx := newFixture(t)
	fx.broker.fail = map[string]error{"t2": errBoom}

	err := fx.pub.Publish(context.Background(), prematchMessage(), "sr:sport:1", domain.BroadcastRoute())
	require.ErrorIs(t, err, errBoom)
	require.ErrorContains(t, err, "t2")

	// The failing tenant does not abort fan-out to the others.
	require.Len(t, fx.broker.calls, 3)
	require.Len(t, fx.archives(), 1)
}

func TestBroadcastUnknownStrategyFailsOnlyThatProfile(t *testing.T) {
	fx := newFixture(t)
	fx.mapping.primary["10|sr:sport:1"] = true
	bad := additiveBoost(1)
	bad.Strategy = "SUPER_BOOST"
	fx.boosts.byFixture = []domain.BoostConfig{bad}

	err := fx.pub.Publish(context.Background(), prematchMessage(), "sr:sport:1", domain.BroadcastRoute())
	require.ErrorIs(t, err, domain.ErrUnknownStrategy)

	calls := fx.broker.byTenant()
	require.NotContains(t, calls, "t1")
	require.NotContains(t, calls, "t2")
	require.Contains(t, calls, "t3")

	entries := fx.archives()
	require.Len(t, entries, 1)
	require.Equal(t, int64(2), *entries[0].ProfileID)
}

func TestBroadcastBoostLookupFailurePublishesUnboosted(t *testing.T) {
	fx := newFixture(t)
	fx.mapping.primary["10|sr:sport:1"] = true
	fx.boosts.err = errBoom
	msg := prematchMessage()

	err := fx.pub.Publish(context.Background(), msg, "sr:sport:1", domain.BroadcastRoute())
	require.NoError(t, err)

	require.Len(t, fx.broker.calls, 3)
	for _, call := range fx.broker.calls {
		require.Same(t, msg, call.msg)
	}
	entries := fx.archives()
	require.Len(t, entries, 1)
	require.Nil(t, entries[0].ProfileID)
}

func TestBroadcastMappingFailureCountsAsNotPrimary(t *testing.T) {
	fx := newFixture(t)
	fx.mapping.err = errBoom

	err := fx.pub.Publish(context.Background(), prematchMessage(), "sr:sport:1", domain.BroadcastRoute())
	require.NoError(t, err)

	require.Zero(t, fx.boosts.fixtureCalls)
	require.Len(t, fx.broker.calls, 3)
}

func TestPublishWithHeadersForwardsHeaders(t *testing.T) {
	fx := newFixture(t)
	headers := map[string]any{"source": "replay", "attempt": 2}

	err := fx.pub.PublishWithHeaders(context.Background(), prematchMessage(), "sr:sport:1", domain.ProfileRoute(2), headers)
	require.NoError(t, err)

	require.Len(t, fx.broker.calls, 1)
	require.Equal(t, "t3", fx.broker.calls[0].tenantID)
	require.Equal(t, headers, fx.broker.calls[0].headers)
}
