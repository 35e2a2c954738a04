package domain

import "context"

// MarketMappingCache answers whether a market is a primary market for a
// sport. The mapping is populated out of band by the mapping loader.
type MarketMappingCache interface {
	IsPrimaryMarket(ctx context.Context, marketID int, sportURN string) (bool, error)
	SetPrimaryMarkets(ctx context.Context, sportURN string, marketIDs []int) error
}
