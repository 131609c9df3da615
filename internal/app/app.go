package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pricewatch/pricewatch/internal/config"
	"github.com/pricewatch/pricewatch/internal/httpserver"
	"github.com/pricewatch/pricewatch/internal/httpserver/deps"
	"github.com/pricewatch/pricewatch/internal/importer"
	"github.com/pricewatch/pricewatch/internal/logger"
	"github.com/pricewatch/pricewatch/internal/notify"
	"github.com/pricewatch/pricewatch/internal/redis"
	"github.com/pricewatch/pricewatch/internal/scheduler"
	"github.com/pricewatch/pricewatch/internal/scraper"
	"github.com/pricewatch/pricewatch/internal/store/cache"
	"github.com/pricewatch/pricewatch/internal/store/wishlist"
	"github.com/pricewatch/pricewatch/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	store       *wishlist.Store
	refresher   *scheduler.PriceRefresher
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize the wishlist store and hydrate it from disk. A missing
	// or corrupt file starts us empty; it must never block startup.
	store := wishlist.NewStore(cfg.DataFile, loggerClient)
	store.Initialize()

	// Scraper rules: built-in defaults unless an operator file overrides them.
	rules, err := scraper.LoadRules(cfg.RulesFile)
	if err != nil {
		loggerClient.Errorf("Failed to load scraper rules from %s: %v", cfg.RulesFile, err)
		os.Exit(1)
	}

	// Optional Redis facts cache. Unlike the store, the cache is pure
	// best-effort: if Redis is unreachable we run without it.
	var redisClient *goredis.Client
	var factsCache *cache.Store
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		redisClient, err = redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Warnf("Redis unavailable, continuing without facts cache: %v", err)
			redisClient = nil
		} else {
			factsCache = cache.NewStore(redisClient)
			loggerClient.Info("Redis facts cache initialized")
		}
	} else {
		loggerClient.Info("no Redis address configured, facts cache disabled")
	}

	fetcher := scraper.NewHTTPFetcher(scraper.Options{
		Rules:    rules,
		Timeout:  cfg.FetchTimeout,
		Cache:    factsCache,
		CacheTTL: cfg.CacheTTL,
	}, loggerClient)

	imp := importer.New(fetcher, store, loggerClient)
	notifier := notify.NewLogNotifier(loggerClient)

	// Create manual refresh trigger channel
	refreshTrigger := make(chan struct{}, 1)

	refresher := scheduler.NewPriceRefresher(
		fetcher,
		store,
		notifier,
		loggerClient,
		scheduler.Options{
			Warmup:    cfg.RefreshWarmup,
			Interval:  cfg.RefreshInterval,
			ItemDelay: cfg.RefreshItemDelay,
		},
		refreshTrigger,
	)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		Store:          store,
		Importer:       imp,
		Refresher:      refresher,
		FactsCache:     factsCache,
		RefreshTrigger: refreshTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		store:       store,
		refresher:   refresher,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting pricewatch v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("pricewatch %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start the price refresh loop (warm-up pass, then periodic)
	if err := a.refresher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start price refresher: %w", err)
	}
	a.logger.Info("price refresher started",
		logger.Duration("warmup", a.cfg.RefreshWarmup),
		logger.Duration("interval", a.cfg.RefreshInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	// Stop the refresh loop
	a.refresher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ pricewatch stopped cleanly")
	return nil
}
