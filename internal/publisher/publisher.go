// Package publisher routes odds-change messages to downstream tenants. A
// publication resolves its recipients from the tenant index, rewrites market
// odds for profiles with boost configurations, and emits one broker call per
// target tenant. Boosted variants are deep copies; the caller's message is
// never mutated.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/betfeed/oddsrouter/internal/boost"
	"github.com/betfeed/oddsrouter/internal/domain"
)

// Publisher is the routing core wiring the tenant index, the boost catalog,
// the market mapping cache, and the broker together.
type Publisher struct {
	broker     domain.MessageBroker
	boosts     domain.BoostStore
	mapping    domain.MarketMappingCache
	applicator *boost.Applicator
	index      *TenantIndex
	feedLog    *FeedLogger
	logger     *slog.Logger
}

// New creates a Publisher.
func New(
	broker domain.MessageBroker,
	boosts domain.BoostStore,
	mapping domain.MarketMappingCache,
	applicator *boost.Applicator,
	index *TenantIndex,
	feedLog *FeedLogger,
	logger *slog.Logger,
) *Publisher {
	return &Publisher{
		broker:     broker,
		boosts:     boosts,
		mapping:    mapping,
		applicator: applicator,
		index:      index,
		feedLog:    feedLog,
		logger:     logger.With(slog.String("component", "publisher")),
	}
}

// Publish routes the message with no headers.
func (p *Publisher) Publish(ctx context.Context, msg *domain.OddsChange, sportURN string, route domain.Route) error {
	return p.PublishWithHeaders(ctx, msg, sportURN, route, nil)
}

// PublishWithHeaders routes the message to the recipients selected by route.
// The sport id carried to the broker is parsed from sportURN; a malformed
// URN fails the call before anything is published. Broker failures are
// collected per tenant and returned joined once the fan-out has run to
// completion, so one failing tenant never shadows the rest.
func (p *Publisher) PublishWithHeaders(ctx context.Context, msg *domain.OddsChange, sportURN string, route domain.Route, headers map[string]any) error {
	if msg == nil {
		return errors.New("publisher: nil message")
	}
	if err := route.Validate(); err != nil {
		return fmt.Errorf("publisher: %w", err)
	}
	sport, err := domain.ParseURN(sportURN)
	if err != nil {
		return fmt.Errorf("publisher: sport urn: %w", err)
	}

	// One snapshot per publication: routing decisions stay consistent even
	// when a refresh lands mid-call.
	snap := p.index.Snapshot()

	switch route.Kind {
	case domain.RouteTenant:
		return p.publishToTenant(ctx, snap, msg, sport, route, headers)
	case domain.RouteProfile:
		return p.publishToProfile(ctx, snap, msg, sport, route.ProfileID, headers)
	default:
		return p.broadcast(ctx, snap, msg, sport, headers)
	}
}

// publishToTenant emits at most one broker call. An unknown tenant drops the
// publication with a warning. This path writes no feed log entry.
func (p *Publisher) publishToTenant(ctx context.Context, snap *Snapshot, msg *domain.OddsChange, sport domain.URN, route domain.Route, headers map[string]any) error {
	profileID, ok := snap.Get(route.TenantID)
	if !ok {
		p.logger.Warn("unknown tenant, dropping publication",
			slog.String("tenant_id", route.TenantID),
			slog.String("event_id", msg.EventID),
		)
		return nil
	}

	variant, err := p.resolveBoosted(ctx, msg, sport, profileID)
	if err != nil {
		return fmt.Errorf("publisher: tenant %s: %w", route.TenantID, err)
	}

	if err := p.broker.Publish(ctx, variant, sport.ID, route.NodeID, route.TenantID, headers); err != nil {
		return fmt.Errorf("publisher: tenant %s: %w", route.TenantID, err)
	}
	return nil
}

// publishToProfile resolves the boosted variant once and fans it out to
// every tenant currently attached to the profile.
func (p *Publisher) publishToProfile(ctx context.Context, snap *Snapshot, msg *domain.OddsChange, sport domain.URN, profileID int64, headers map[string]any) error {
	variant, err := p.resolveBoosted(ctx, msg, sport, profileID)
	if err != nil {
		return fmt.Errorf("publisher: profile %d: %w", profileID, err)
	}

	var errs []error
	for _, tenantID := range snap.TenantsByProfile(profileID) {
		if err := p.broker.Publish(ctx, variant, sport.ID, domain.BroadcastNodeID, tenantID, headers); err != nil {
			p.logger.Error("broker publish failed",
				slog.String("tenant_id", tenantID),
				slog.String("event_id", msg.EventID),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("publisher: tenant %s: %w", tenantID, err))
		}
	}

	p.feedLog.Archive(&profileID, variant)
	return errors.Join(errs...)
}

// broadcast fans the message out to every tenant in the snapshot. Profiles
// with boost configurations for the fixture receive their own rewritten
// variant; everyone else receives the original message.
func (p *Publisher) broadcast(ctx context.Context, snap *Snapshot, msg *domain.OddsChange, sport domain.URN, headers map[string]any) error {
	if !p.boostApplicable(ctx, msg, sport) {
		return p.broadcastRaw(ctx, snap, msg, sport, headers)
	}

	rows, err := p.boosts.FindByFixtures(ctx, []string{msg.EventID})
	if err != nil {
		p.logger.Error("boost lookup failed, broadcasting unboosted",
			slog.String("event_id", msg.EventID),
			slog.String("error", err.Error()),
		)
		rows = nil
	}
	if len(rows) == 0 {
		return p.broadcastRaw(ctx, snap, msg, sport, headers)
	}

	profileBoosts := boost.GroupByProfile(rows)

	var errs []error
	for profileID, tenants := range snap.GroupByProfile() {
		variant := msg
		if boosts, ok := profileBoosts[profileID]; ok {
			boosted, err := p.applicator.Apply(msg, boosts)
			if err != nil {
				p.logger.Error("boost application failed, skipping profile",
					slog.Int64("profile_id", profileID),
					slog.String("event_id", msg.EventID),
					slog.String("error", err.Error()),
				)
				errs = append(errs, fmt.Errorf("publisher: profile %d: %w", profileID, err))
				continue
			}
			variant = boosted
		}

		for _, tenantID := range tenants {
			if err := p.broker.Publish(ctx, variant, sport.ID, domain.BroadcastNodeID, tenantID, headers); err != nil {
				p.logger.Error("broker publish failed",
					slog.String("tenant_id", tenantID),
					slog.String("event_id", msg.EventID),
					slog.String("error", err.Error()),
				)
				errs = append(errs, fmt.Errorf("publisher: tenant %s: %w", tenantID, err))
			}
		}

		p.feedLog.Archive(&profileID, variant)
	}
	return errors.Join(errs...)
}

// broadcastRaw sends the original message to every tenant and archives one
// profile-less feed log entry.
func (p *Publisher) broadcastRaw(ctx context.Context, snap *Snapshot, msg *domain.OddsChange, sport domain.URN, headers map[string]any) error {
	var errs []error
	for _, tenantID := range snap.Tenants() {
		if err := p.broker.Publish(ctx, msg, sport.ID, domain.BroadcastNodeID, tenantID, headers); err != nil {
			p.logger.Error("broker publish failed",
				slog.String("tenant_id", tenantID),
				slog.String("event_id", msg.EventID),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("publisher: tenant %s: %w", tenantID, err))
		}
	}

	p.feedLog.Archive(nil, msg)
	return errors.Join(errs...)
}

// resolveBoosted returns the message to deliver for one profile: a boosted
// deep copy when the profile has applicable boosts for the fixture, the
// original message otherwise. Catalog read failures fall back to the
// original rather than blocking delivery.
func (p *Publisher) resolveBoosted(ctx context.Context, msg *domain.OddsChange, sport domain.URN, profileID int64) (*domain.OddsChange, error) {
	if !p.boostApplicable(ctx, msg, sport) {
		return msg, nil
	}

	rows, err := p.boosts.FindByProfileAndFixture(ctx, profileID, msg.EventID)
	if err != nil {
		p.logger.Error("boost lookup failed, publishing unboosted",
			slog.Int64("profile_id", profileID),
			slog.String("event_id", msg.EventID),
			slog.String("error", err.Error()),
		)
		return msg, nil
	}
	if len(rows) == 0 {
		return msg, nil
	}

	return p.applicator.Apply(msg, boost.ByMarketKey(rows))
}

// boostApplicable reports whether boosts can apply to the message at all:
// only prematch odds for fixtures carrying at least one primary market of
// the sport. Mapping lookups that fail count as not primary.
func (p *Publisher) boostApplicable(ctx context.Context, msg *domain.OddsChange, sport domain.URN) bool {
	if msg.Product != domain.ProductPrematch {
		return false
	}
	for _, market := range msg.Markets() {
		primary, err := p.mapping.IsPrimaryMarket(ctx, market.ID, sport.String())
		if err != nil {
			p.logger.Warn("market mapping lookup failed",
				slog.Int("market_id", market.ID),
				slog.String("sport", sport.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if primary {
			return true
		}
	}
	return false
}
