package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/taskfolio/taskfolio/pkg/api"
	"github.com/taskfolio/taskfolio/pkg/config"
	"github.com/taskfolio/taskfolio/pkg/jobs"
	"github.com/taskfolio/taskfolio/pkg/migrations"
	"github.com/taskfolio/taskfolio/pkg/observability"
	"github.com/taskfolio/taskfolio/pkg/team"
)

func main() {
	var (
		migrate       = flag.Bool("migrate", false, "Run database migrations before serving")
		sweepOnce     = flag.Bool("sweep-once", false, "Run the expired-invitation sweep once and exit")
		sweepSchedule = flag.String("sweep-schedule", jobs.DefaultSweepSchedule, "Cron schedule for the invitation sweeper")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	db, err := openDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if *migrate {
		if err := migrations.RunMigrations(context.Background(), db, logger); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	tracerProvider, err := observability.InitTracing(context.Background(), observability.TracingConfig{
		Enabled:     cfg.Observability.TracingEnabled,
		Endpoint:    cfg.Observability.TracingEndpoint,
		ServiceName: cfg.Observability.TracingService,
		Insecure:    cfg.Observability.TracingInsecure,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		// Rate limiting fails open, so a missing Redis only degrades the
		// deployment instead of blocking startup.
		logger.WithError(err).Warn("Redis unreachable, rate limiting disabled")
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)

		go func() {
			defer observability.RecoverPanic(logger, "db stats sampler")
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				metrics.ObserveDBStats(db.Stats())
			}
		}()
	}

	sweeperLogger := logrus.New()
	sweeperLogger.SetFormatter(&logrus.JSONFormatter{})
	sweeper := jobs.NewSweeper(team.NewPostgresService(db), sweeperLogger, metrics, *sweepSchedule)

	if *sweepOnce {
		removed, err := sweeper.SweepOnce()
		if err != nil {
			log.Fatalf("Invitation sweep failed: %v", err)
		}
		logger.Infof("Invitation sweep removed %d expired invitations", removed)
		return
	}

	server := api.NewServer(api.Options{
		DB:      db,
		Redis:   redisClient,
		Logger:  logger,
		Metrics: metrics,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics live on their own port so probes stay reachable
	// behind the rate limiter.
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	if err := sweeper.Start(); err != nil {
		log.Fatalf("Failed to start invitation sweeper: %v", err)
	}

	go func() {
		defer observability.RecoverPanic(logger, "health server")
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	go func() {
		defer observability.RecoverPanic(logger, "api server")
		logger.Infof("API server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		sweeper.Stop()
		return nil
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	if tracerProvider != nil {
		shutdown.RegisterShutdownFunc(tracerProvider.Shutdown)
	}

	if err := shutdown.WaitForShutdown(); err != nil {
		log.Fatalf("Shutdown failed: %v", err)
	}
}

// openDatabase connects to PostgreSQL and applies the pool settings.
func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
