package domain

import "github.com/shopspring/decimal"

// BoostConfig is one boosted-market row from the catalog: for the fixture
// and profile, the matching market gets its odds rewritten by the named
// strategy. Percent keeps the exact value stored in the catalog.
type BoostConfig struct {
	ID              int64
	ProfileID       int64
	FixtureURN      string
	MarketID        int
	MarketSpecifier string
	Strategy        string
	Percent         decimal.Decimal
}

// MarketKey returns the join key matching OddsChangeMarket.Key.
func (b BoostConfig) MarketKey() string {
	return MarketKey(b.MarketID, b.MarketSpecifier)
}
