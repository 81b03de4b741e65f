// Package app wires configuration, infrastructure, and domain packages
// together and starts whichever mode the process was asked to run.
// Grounded on the teacher's internal/app/app.go mode-dispatch shape.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/skyfleet/orchestrator/internal/config"
	"github.com/skyfleet/orchestrator/internal/httpserver"
	"github.com/skyfleet/orchestrator/internal/platform"
	"github.com/skyfleet/orchestrator/internal/seed"
	"github.com/skyfleet/orchestrator/internal/telemetry"
	"github.com/skyfleet/orchestrator/pkg/audit"
	"github.com/skyfleet/orchestrator/pkg/compute"
	"github.com/skyfleet/orchestrator/pkg/compute/fake"
	"github.com/skyfleet/orchestrator/pkg/fleet"
	"github.com/skyfleet/orchestrator/pkg/instance"
	"github.com/skyfleet/orchestrator/pkg/job"
	"github.com/skyfleet/orchestrator/pkg/offer"
	"github.com/skyfleet/orchestrator/pkg/pool"
	"github.com/skyfleet/orchestrator/pkg/project"
	"github.com/skyfleet/orchestrator/pkg/provisioning"
	"github.com/skyfleet/orchestrator/pkg/run"
	"github.com/skyfleet/orchestrator/pkg/scheduler"
)

// Run reads infrastructure connections and starts the mode selected by
// cfg.Mode: "server" (ambient HTTP health/metrics surface), "scheduler"
// (control loops), "seed", or "seed-demo".
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting orchestrator", "mode", cfg.Mode, "listen", cfg.ListenAddr())

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("connecting to redis failed, continuing without fast-wake", "error", err)
		rdb = nil
	} else {
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error("closing redis", "error", err)
			}
		}()
	}

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	metricsReg := telemetry.NewMetricsRegistry(telemetry.All()...)

	switch cfg.Mode {
	case "server":
		return runServer(ctx, cfg, logger, db, rdb, metricsReg)
	case "scheduler":
		return runScheduler(ctx, cfg, logger, db, rdb)
	case "seed":
		return seed.Run(ctx, db, logger)
	case "seed-demo":
		return seed.RunDemo(ctx, db, logger)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	srv := httpserver.NewServer(cfg, logger, db, rdb, metricsReg)

	auditStore := audit.NewStore(db)
	auditHandler := audit.NewHandler(auditStore, logger)
	srv.Mount("/audit", auditHandler.Routes())

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runScheduler(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client) error {
	projects := project.NewStore(db)
	runs := run.NewStore(db)
	jobs := job.NewStore(db)
	instances := instance.NewStore(db)
	pools := pool.NewStore(db)
	fleets := fleet.NewStore(db)
	poolMgr := pool.NewManager(pools, instances)

	// No real cloud backend adapters are in scope (spec.md §11 Non-goals);
	// the in-memory fake stands in so the control loops have something to
	// drive against every project's enabled backends.
	registry := compute.NewRegistry()
	registry.Register(fake.New(offer.BackendType("aws")))
	registry.Register(fake.New(offer.BackendType("gcp")))
	registry.Register(fake.New(offer.BackendType("azure")))

	provisioner := provisioning.New(registry)

	sched := scheduler.New(scheduler.Scheduler{
		Jobs:        jobs,
		Runs:        runs,
		Instances:   instances,
		Pools:       pools,
		PoolMgr:     poolMgr,
		Projects:    projects,
		Fleets:      fleets,
		Provisioner: provisioner,
		Registry:    registry,
		RDB:         rdb,
		Logger:      logger,

		SubmittedInterval:   cfg.SubmittedInterval,
		RunningInterval:     cfg.RunningInterval,
		TerminatingInterval: cfg.TerminatingInterval,
		IdleInterval:        cfg.IdleInterval,
		GatewayInterval:     cfg.GatewayInterval,
	})

	return sched.Run(ctx)
}
