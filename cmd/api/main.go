package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/jordanlanch/leadrouter/config"
	apierrors "github.com/jordanlanch/leadrouter/pkg/api/errors"
	"github.com/jordanlanch/leadrouter/pkg/api/handlers"
	"github.com/jordanlanch/leadrouter/pkg/cache"
	"github.com/jordanlanch/leadrouter/pkg/database"
	"github.com/jordanlanch/leadrouter/pkg/followup"
	"github.com/jordanlanch/leadrouter/pkg/jobs"
	"github.com/jordanlanch/leadrouter/pkg/leadassignment"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/metrics"
	custommiddleware "github.com/jordanlanch/leadrouter/pkg/middleware"
	"github.com/jordanlanch/leadrouter/pkg/orchestrator"
	"github.com/jordanlanch/leadrouter/pkg/repository"
	"github.com/jordanlanch/leadrouter/pkg/templates"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "leadrouter: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.NewWithWriter(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	apierrors.SetLogger(log)
	log.Info("configuration loaded", "environment", cfg.APIEnvironment)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 0.2,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Warn("failed to initialize Sentry", "error", err)
		} else {
			log.Info("Sentry initialized", "environment", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	pool := database.DefaultPoolConfig()
	pool.MaxOpenConns = cfg.DBMaxOpenConns
	pool.MaxIdleConns = cfg.DBMaxIdleConns
	db, err := database.Open(ctx, database.Options{
		Driver: cfg.DBDriver,
		URL:    cfg.DatabaseURL,
		Pool:   pool,
		SSL: &database.SSLConfig{
			Mode:         cfg.DBSSLMode,
			CertPath:     cfg.DBSSLCertPath,
			KeyPath:      cfg.DBSSLKeyPath,
			RootCertPath: cfg.DBSSLRootCertPath,
		},
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db.DB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Round-robin cursors
	health := map[string]handlers.Pinger{"database": db}
	var cursors leadassignment.CursorStore
	switch cfg.CursorBackend {
	case "redis":
		redisClient, err := cache.NewClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisClient.Close()
		cursors = redisClient
		health["cache"] = redisClient
	default:
		log.Warn("using in-memory round-robin cursors; rotation is per process")
		cursors = leadassignment.NewShardedCounters()
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Repositories
	leads := repository.NewLeadRepository(db.DB, log)
	rules := repository.NewRuleRepository(db.DB, log)
	roster := repository.NewRosterRepository(db.DB)
	tenants := repository.NewTenantRepository(db.DB, cfg.DefaultTimeZone)
	followUps := repository.NewFollowUpRepository(db.DB)

	store, err := templates.Load(cfg.TemplatesPath, log)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	defaultLoc, _ := time.LoadLocation(cfg.DefaultTimeZone)
	vars := map[string]string{}
	if cfg.Dealership != "" {
		vars["dealership"] = cfg.Dealership
	}

	orch := orchestrator.NewService(orchestrator.Deps{
		Leads:           leads,
		Rules:           rules,
		Roster:          roster,
		Tenants:         tenants,
		Store:           repository.NewStore(db.DB),
		Resolver:        leadassignment.NewService(cursors, log),
		Scheduler:       followup.NewScheduler(store, cfg.DefaultPhoneRegion, log),
		DefaultLocation: defaultLoc,
		Vars:            vars,
		IsStructural:    repository.IsStructuralError,
		Metrics:         m,
		Logger:          log,
	})

	// Stale lead sweep
	sweeper := jobs.NewSweeper(leads, orch, jobs.SweepConfig{
		StaleAfter:  cfg.SweepStaleAfter,
		BatchSize:   cfg.SweepBatchSize,
		Concurrency: cfg.SweepConcurrency,
		LeadTimeout: cfg.OrchestratorTimeout,
	}, m, log)
	cronManager := jobs.NewCronManager(sweeper, func() int { return db.Stats().OpenConnections }, m, log)
	if cfg.SweepEnabled {
		if err := cronManager.SetupJobs(cfg.SweepSchedule); err != nil {
			return err
		}
		cronManager.Start()
		defer cronManager.Stop()
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	rateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	go rateLimiter.Run(ctx, 3*time.Minute)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true, // let Recover handle the panic after capture
		}))
	}
	e.Use(m.Middleware())
	e.Use(middleware.CORSWithConfig(custommiddleware.CORSConfig(cfg.CORSAllowedOrigins)))
	e.Use(custommiddleware.SecurityHeaders(custommiddleware.SecurityHeadersConfig{}))

	e.GET("/health", handlers.NewHealthHandler(health).Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1")
	handlers.NewRoutingHandler(orch, followUps, cfg.OrchestratorTimeout).
		Register(v1, rateLimiter.RateLimitMiddleware())
	v1.POST("/admin/jobs/sweep", handlers.NewJobsHandler(sweeper).RunSweepHandler)

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	errCh := make(chan error, 1)
	go func() {
		log.Info("leadrouter API starting",
			"address", address,
			"db_driver", cfg.DBDriver,
			"cursor_backend", cfg.CursorBackend,
			"sweep_schedule", cfg.SweepSchedule,
		)
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server gracefully stopped")
	return nil
}
