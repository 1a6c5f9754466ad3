package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/larder/internal"
	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/bootstrap"
	"github.com/dukerupert/larder/internal/cache"
	"github.com/dukerupert/larder/internal/cookie"
	"github.com/dukerupert/larder/internal/domain"
	"github.com/dukerupert/larder/internal/events"
	"github.com/dukerupert/larder/internal/handler/api"
	"github.com/dukerupert/larder/internal/jobs"
	"github.com/dukerupert/larder/internal/memory"
	"github.com/dukerupert/larder/internal/middleware"
	"github.com/dukerupert/larder/internal/postgres"
	"github.com/dukerupert/larder/internal/router"
	"github.com/dukerupert/larder/internal/routes"
	"github.com/dukerupert/larder/internal/service"
	"github.com/dukerupert/larder/internal/storage"
	"github.com/dukerupert/larder/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const metricsNamespace = "larder"

// stores groups the persistence backends selected by configuration.
type stores struct {
	carts    domain.CartStore
	products domain.ProductStore
	accounts domain.AccountStore
	sessions domain.SessionStore
	ping     func(ctx context.Context) error
	close    func()
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Money is written as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	// Initialize Sentry error tracking
	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:         cfg.Sentry.DSN,
		Enabled:     cfg.Sentry.Enabled,
		Environment: cfg.Sentry.Environment,
		Release:     cfg.Sentry.Release,
		SampleRate:  cfg.Sentry.SampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	// Metrics share one registry so /metrics exposes HTTP and cart series together
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewMetrics(registry, metricsNamespace)
	cartMetrics := telemetry.NewCartMetrics(registry, metricsNamespace)

	// Persistence
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	// Catalog reads go through Redis when configured
	var products domain.ProductStore = st.products
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		products = cache.NewCatalogCache(st.products, rdb, cfg.Redis.CacheTTL, cartMetrics, logger)
		logger.Info("Catalog cache enabled", "ttl", cfg.Redis.CacheTTL)
	}

	// Product images
	images, err := storage.NewStorage(storage.Config{
		Provider:      cfg.Storage.Provider,
		LocalPath:     cfg.Storage.LocalPath,
		LocalURL:      cfg.Storage.LocalURL,
		R2AccountID:   cfg.Storage.R2AccountID,
		R2AccessKeyID: cfg.Storage.R2AccessKeyID,
		R2SecretKey:   cfg.Storage.R2SecretKey,
		R2BucketName:  cfg.Storage.R2BucketName,
		R2PublicURL:   cfg.Storage.R2PublicURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("Storage initialized", "provider", cfg.Storage.Provider)

	// Services
	carts := service.NewCartService(st.carts, products, cartMetrics, logger)

	bus, err := newBus(cfg, cartMetrics, logger)
	if err != nil {
		return err
	}
	defer bus.Close()
	if err := bus.Subscribe(events.SyncCartsHandler(carts, logger)); err != nil {
		return fmt.Errorf("failed to subscribe to price changes: %w", err)
	}

	catalog := service.NewCatalogService(products, carts, bus, images, logger)
	accounts := service.NewAccountService(st.accounts, st.sessions, auth.NewHasher(auth.DefaultCost), cfg.Session.TTL, logger)

	if err := bootstrap.EnsureAdmin(ctx, accounts, &bootstrap.AdminConfig{
		Username: cfg.Admin.Username,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	}, logger); err != nil {
		return err
	}

	// ==========================================================================
	// HTTP
	// ==========================================================================

	authRateLimiter := middleware.NewRateLimiter(middleware.StrictRateLimiterConfig())
	defer authRateLimiter.Stop()

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		middleware.WithClientIP(),
		telemetry.SentryMiddleware(),
		httpMetrics.Middleware,
		middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.Session.CookieSecure)),
		middleware.WithUser(accounts),
		middleware.WithRequestLogger(logger),
		router.Logger(logger),
		middleware.Timeout(middleware.DefaultTimeout),
	)

	if cfg.Storage.Provider == "local" {
		r.Static(cfg.Storage.LocalURL, cfg.Storage.LocalPath)
	}

	routes.RegisterOpsRoutes(r, routes.OpsDeps{
		Health: func(w http.ResponseWriter, req *http.Request) {
			if err := st.ping(req.Context()); err != nil {
				logger.Error("health check failed", "error", err)
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		},
		Metrics: httpMetrics.Handler(),
	})

	routes.RegisterAPIRoutes(r, routes.APIDeps{
		CartHandler:    api.NewCartHandler(carts),
		ProductHandler: api.NewProductHandler(catalog),
		AuthHandler:    api.NewAuthHandler(accounts, cookie.NewConfig(cfg.Session.CookieSecure)),
		AuthLimiter:    authRateLimiter,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ==========================================================================
	// Start
	// ==========================================================================

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server", "address", srv.Addr, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	sweeper := jobs.NewSessionSweeper(st.sessions, cfg.Session.SweepInterval, logger)
	g.Go(func() error {
		if err := sweeper.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStores selects the postgres or in-memory backend.
func openStores(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (*stores, error) {
	if cfg.StoreBackend == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart")
		accounts := memory.NewAccountStore()
		return &stores{
			carts:    memory.NewCartStore(),
			products: memory.NewProductStore(),
			accounts: accounts,
			sessions: accounts,
			ping:     func(context.Context) error { return nil },
			close:    func() {},
		}, nil
	}

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	accounts := postgres.NewAccountStore(pool)
	return &stores{
		carts:    postgres.NewCartStore(pool),
		products: postgres.NewProductStore(pool),
		accounts: accounts,
		sessions: accounts,
		ping:     pool.Ping,
		close:    pool.Close,
	}, nil
}

// newBus connects to NATS when configured, otherwise delivers in-process.
func newBus(cfg *internal.Config, metrics *telemetry.CartMetrics, logger *slog.Logger) (events.Bus, error) {
	if cfg.NATS.URL == "" {
		logger.Info("Price events delivered in-process")
		return events.NewLocalBus(logger), nil
	}

	bus, err := events.ConnectNATS(cfg.NATS.URL, cfg.NATS.PriceSubject, metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("nats connection failed: %w", err)
	}
	logger.Info("Price events delivered over NATS", "subject", cfg.NATS.PriceSubject)
	return bus, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
