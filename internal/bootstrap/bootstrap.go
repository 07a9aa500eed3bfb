// Package bootstrap is the startup sequence shared by the api, cron-worker
// and outbox-publisher binaries.
package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/coursevault-backend/pkg/config"
	"github.com/angelmondragon/coursevault-backend/pkg/db"
	"github.com/angelmondragon/coursevault-backend/pkg/env"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
	"github.com/angelmondragon/coursevault-backend/pkg/metrics"
	"github.com/angelmondragon/coursevault-backend/pkg/migrate"
	"github.com/angelmondragon/coursevault-backend/pkg/redis"
)

// RunFunc is a binary's body. ctx is canceled on SIGINT or SIGTERM.
type RunFunc func(ctx context.Context, cfg *config.Config, logg *logger.Logger) error

// Main loads .env and config, builds the service logger and calls run.
// Any error is logged and exits the process with status 1.
func Main(service string, run RunFunc) {
	logg := logger.New(logger.Options{ServiceName: service})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": env.InstanceID(),
	})
	err = run(ctx, cfg, logg)
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, service+" stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, service+" stopped")
}

// Infra holds the connections every binary needs.
type Infra struct {
	DB    *db.Client
	Redis *redis.Client
}

// Open connects to Postgres, applies migrations when the environment asks
// for it, then connects to Redis. On failure nothing is left open.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*Infra, error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, err
	}
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return nil, multierr.Append(err, dbClient.Close())
	}
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return nil, multierr.Append(err, dbClient.Close())
	}
	return &Infra{DB: dbClient, Redis: redisClient}, nil
}

func (i *Infra) Close() error {
	return multierr.Combine(i.Redis.Close(), i.DB.Close())
}

// Registry returns a Prometheus registry preloaded with the Go runtime and
// process collectors.
func Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ServeMetrics exposes gatherer on addr/metrics until the returned stop
// function is called.
func ServeMetrics(ctx context.Context, logg *logger.Logger, addr string, gatherer prometheus.Gatherer) (stop func() error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HandlerFor(gatherer))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server failed", err)
		}
	}()
	return func() error {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
