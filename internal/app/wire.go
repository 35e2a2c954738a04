package app

import (
	"context"
	"fmt"

	s3blob "github.com/betfeed/oddsrouter/internal/blob/s3"
	redisbroker "github.com/betfeed/oddsrouter/internal/broker/redis"
	"github.com/betfeed/oddsrouter/internal/cache/redis"
	"github.com/betfeed/oddsrouter/internal/config"
	"github.com/betfeed/oddsrouter/internal/domain"
	"github.com/betfeed/oddsrouter/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the routing core needs.
// It is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	TenantStore domain.TenantStore
	BoostStore  domain.BoostStore

	// FeedLogStore is nil unless the feed log is enabled.
	FeedLogStore domain.FeedLogStore

	// Caches
	MarketMapping domain.MarketMappingCache

	// Broker
	Broker domain.MessageBroker
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL: tenant and boost catalogs ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.TenantStore = postgres.NewTenantStore(pool)
	deps.BoostStore = postgres.NewBoostStore(pool)

	// --- Redis: market mapping cache + downstream streams ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.MarketMapping = redis.NewMarketMappingCache(redisClient)
	deps.Broker = redisbroker.New(redisClient.Underlying(), cfg.Redis.StreamMaxLen)

	// --- S3 feed log store (only when archival is enabled) ---
	if cfg.Publisher.FeedLogEnabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.FeedLogStore = s3blob.NewFeedLogStore(s3Client)
	}

	return deps, cleanup, nil
}
