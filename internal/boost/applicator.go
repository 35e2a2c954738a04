package boost

import (
	"fmt"

	"github.com/betfeed/oddsrouter/internal/domain"
)

// Applicator rewrites the boosted markets of an odds change according to the
// catalog rows resolved for one profile. The input message is never mutated.
type Applicator struct {
	registry *Registry
}

// NewApplicator creates an Applicator backed by the given registry.
func NewApplicator(registry *Registry) *Applicator {
	return &Applicator{registry: registry}
}

// Apply returns a deep copy of msg with every market whose key appears in
// boosts rewritten by the configured strategy. Markets without a matching
// boost are carried over unchanged. An unknown strategy name fails the whole
// application.
func (a *Applicator) Apply(msg *domain.OddsChange, boosts map[string]domain.BoostConfig) (*domain.OddsChange, error) {
	out := msg.Clone()
	if out == nil || out.Odds == nil || len(boosts) == 0 {
		return out, nil
	}
	for i := range out.Odds.Markets {
		key := out.Odds.Markets[i].Key()
		cfg, ok := boosts[key]
		if !ok {
			continue
		}
		strat, err := a.registry.Get(cfg.Strategy)
		if err != nil {
			return nil, fmt.Errorf("boost: market %s: %w", key, err)
		}
		built := Build(out.Odds.Markets[i])
		strat.Apply(&built, cfg.Percent)
		out.Odds.Markets[i] = Merge(out.Odds.Markets[i], built)
	}
	return out, nil
}

// ByMarketKey folds catalog rows into a market-key lookup map. The first row
// wins when two rows produce the same key; rows arrive ordered by id, so the
// winner is stable across calls.
func ByMarketKey(rows []domain.BoostConfig) map[string]domain.BoostConfig {
	out := make(map[string]domain.BoostConfig, len(rows))
	for _, b := range rows {
		key := b.MarketKey()
		if _, ok := out[key]; !ok {
			out[key] = b
		}
	}
	return out
}

// GroupByProfile folds catalog rows into per-profile key maps with the same
// first-row-wins rule as ByMarketKey.
func GroupByProfile(rows []domain.BoostConfig) map[int64]map[string]domain.BoostConfig {
	out := make(map[int64]map[string]domain.BoostConfig)
	for _, b := range rows {
		m, ok := out[b.ProfileID]
		if !ok {
			m = make(map[string]domain.BoostConfig)
			out[b.ProfileID] = m
		}
		key := b.MarketKey()
		if _, ok := m[key]; !ok {
			m[key] = b
		}
	}
	return out
}
