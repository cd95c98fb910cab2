package main

import (
	"context"
	"time"

	"github.com/cardledger/soldscraper/config"
	"github.com/cardledger/soldscraper/internal"
	"github.com/cardledger/soldscraper/internal/browser"
	"github.com/cardledger/soldscraper/internal/scraper"
	"github.com/cardledger/soldscraper/logger"
	"github.com/cardledger/soldscraper/services/cache"
	"github.com/cardledger/soldscraper/services/publisher"
	"github.com/cardledger/soldscraper/services/soldprice"
	"github.com/cardledger/soldscraper/services/store"
)

// Services holds all the initialized services
type Services struct {
	internal.Dependencies

	SoldPrice *soldprice.Service

	closers []func()
}

// Cleanup releases every service in reverse order of creation
func (s *Services) Cleanup() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// newBrowser creates the configured browser driver
func newBrowser(cfg *config.Config) (scraper.Browser, func()) {
	if cfg.BrowserDriver == config.DriverHTTP {
		return browser.NewHTTPBrowser(cfg.ProxyURL), func() {}
	}
	b := browser.NewChromeBrowser(browser.ChromeConfig{
		WSURL:    cfg.ChromeWSURL,
		Headless: cfg.ChromeHeadless,
		ProxyURL: cfg.ProxyURL,
	})
	return b, b.Close
}

// initializeServices initializes all required services. Backing services
// are optional and only connected when configured.
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	log := logger.Get()
	services := &Services{}

	br, closeBrowser := newBrowser(cfg)
	services.closers = append(services.closers, closeBrowser)
	log.Info().Str("driver", cfg.BrowserDriver).Msg("Browser driver ready")

	market := scraper.EbayMarketplace().WithBaseURL(cfg.MarketplaceBaseURL)
	core := scraper.NewService(br, market, scraper.WithNavigationTimeout(cfg.NavigationTimeout))

	var opts []soldprice.Option

	if cfg.MemcacheAddr != "" {
		mc := cache.NewMemcacheService(cfg.MemcacheAddr, "soldscraper:")
		cacheLog := logger.ForCache()
		if err := mc.Ping(); err != nil {
			cacheLog.Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("Memcache unreachable, rate limit marker may be skipped")
		} else {
			cacheLog.Info().Str("addr", cfg.MemcacheAddr).Msg("Connected to Memcache")
		}
		services.Cache = mc
		opts = append(opts, soldprice.WithRateLimitCache(services.Cache, cfg.RateLimitBlock))
	}

	if cfg.PublishResults {
		redisPublisher := publisher.NewRedisPublisher(
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisPublisher.Ping(pingCtx)
		cancel()
		if err != nil {
			redisPublisher.Close()
			services.Cleanup()
			return nil, err
		}
		services.Publisher = redisPublisher
		services.closers = append(services.closers, func() { redisPublisher.Close() })
		opts = append(opts, soldprice.WithPublisher(redisPublisher))

		logger.ForPublisher().Info().
			Str("addr", cfg.RedisAddr).
			Int("db", cfg.RedisDB).
			Str("stream", cfg.RedisStream).
			Int("shards", cfg.RedisStreamCount).
			Msg("Connected to Redis")
	}

	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			services.Cleanup()
			return nil, err
		}
		services.Store = pg
		services.closers = append(services.closers, pg.Close)
		opts = append(opts, soldprice.WithStore(pg))
		logger.ForStore().Info().Msg("Connected to card metadata database")
	}

	services.SoldPrice = soldprice.NewService(core, opts...)
	return services, nil
}
