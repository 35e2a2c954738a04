package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/betfeed/oddsrouter/internal/domain"
)

// MarketMappingCache implements domain.MarketMappingCache using one Redis set
// per sport.
//
// Key schema:
//
//	mapping:primary:{sportURN} - set of primary market ids
type MarketMappingCache struct {
	rdb *redis.Client
}

// NewMarketMappingCache creates a MarketMappingCache backed by the given Client.
func NewMarketMappingCache(c *Client) *MarketMappingCache {
	return &MarketMappingCache{rdb: c.Underlying()}
}

func primaryMarketsKey(sportURN string) string { return "mapping:primary:" + sportURN }

// IsPrimaryMarket reports whether the market id belongs to the primary set
// for the sport. A sport that was never seeded yields false, not an error.
func (mc *MarketMappingCache) IsPrimaryMarket(ctx context.Context, marketID int, sportURN string) (bool, error) {
	ok, err := mc.rdb.SIsMember(ctx, primaryMarketsKey(sportURN), strconv.Itoa(marketID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: primary market %d for %s: %w", marketID, sportURN, err)
	}
	return ok, nil
}

// SetPrimaryMarkets replaces the primary market set for a sport. The delete
// and re-add run in one transaction so readers never observe a partial set.
func (mc *MarketMappingCache) SetPrimaryMarkets(ctx context.Context, sportURN string, marketIDs []int) error {
	key := primaryMarketsKey(sportURN)

	members := make([]any, 0, len(marketIDs))
	for _, id := range marketIDs {
		members = append(members, strconv.Itoa(id))
	}

	pipe := mc.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if len(members) > 0 {
		pipe.SAdd(ctx, key, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set primary markets for %s: %w", sportURN, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketMappingCache = (*MarketMappingCache)(nil)
