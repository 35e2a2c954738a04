// Package app provides the top-level application lifecycle for the odds
// router. It wires the stores, caches, broker, and routing core together and
// runs the background workers until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/betfeed/oddsrouter/internal/boost"
	"github.com/betfeed/oddsrouter/internal/config"
	"github.com/betfeed/oddsrouter/internal/feed"
	"github.com/betfeed/oddsrouter/internal/publisher"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the background workers, and blocks
// until the context is cancelled or a worker fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Bool("feed_log_enabled", a.cfg.Publisher.FeedLogEnabled),
	)
	a.logger.DebugContext(ctx, "active configuration",
		slog.Any("config", config.RedactedConfig(a.cfg)),
	)

	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	return a.serve(ctx, deps)
}

// serve builds the routing core and runs its workers: the tenant index
// refresher, the feed log worker when archival is enabled, and the upstream
// intake when an upstream URL is configured.
func (a *App) serve(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	index := publisher.NewTenantIndex(
		deps.TenantStore,
		a.cfg.Publisher.TenantsRefreshInterval.Duration,
		a.logger,
	)
	feedLog := publisher.NewFeedLogger(
		deps.FeedLogStore,
		a.cfg.Publisher.FeedLogEnabled,
		a.cfg.Publisher.FeedLogQueueSize,
		a.logger,
	)
	pub := publisher.New(
		deps.Broker,
		deps.BoostStore,
		deps.MarketMapping,
		boost.NewApplicator(boost.NewRegistry()),
		index,
		feedLog,
		a.logger,
	)

	g.Go(func() error {
		if err := index.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("tenant index: %w", err)
		}
		return nil
	})

	if feedLog.Enabled() {
		g.Go(func() error {
			if err := feedLog.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("feed logger: %w", err)
			}
			return nil
		})
	}

	if a.cfg.Upstream.URL != "" {
		upstream := feed.NewUpstreamFeed(
			a.cfg.Upstream.URL,
			a.cfg.Upstream.APIToken,
			a.cfg.Upstream.DialTimeout.Duration,
			a.cfg.Upstream.MaxBackoff.Duration,
			pub,
			a.logger,
		)
		g.Go(func() error {
			if err := upstream.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("upstream feed: %w", err)
			}
			return nil
		})
	} else {
		a.logger.Info("no upstream url configured, feed intake disabled")
	}

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
