package main

import (
	"cmp"
	"context"
	"strings"

	"go.uber.org/multierr"

	"github.com/angelmondragon/coursevault-backend/internal/bootstrap"
	"github.com/angelmondragon/coursevault-backend/internal/catalog"
	"github.com/angelmondragon/coursevault-backend/internal/cron"
	"github.com/angelmondragon/coursevault-backend/pkg/config"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
	"github.com/angelmondragon/coursevault-backend/pkg/metrics"
	"github.com/angelmondragon/coursevault-backend/pkg/outbox"
	"github.com/angelmondragon/coursevault-backend/pkg/video"
)

func main() {
	bootstrap.Main("cron-worker", run)
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	infra, err := bootstrap.Open(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, infra.Close()) }()

	jobs, err := buildRegistry(ctx, cfg, logg, infra)
	if err != nil {
		return err
	}
	lock, err := cron.NewRedisLock(infra.Redis, infra.Redis.LockKey("cron-worker", cmp.Or(cfg.App.Env, "local")), cfg.Cron.LockTTL)
	if err != nil {
		return err
	}

	promRegistry := bootstrap.Registry()
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.New(promRegistry),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	stopMetrics := bootstrap.ServeMetrics(ctx, logg, ":"+cfg.App.Port, promRegistry)
	defer func() { err = multierr.Append(err, stopMetrics()) }()

	logg.Info(logg.WithFields(ctx, map[string]any{
		"interval": cfg.Cron.Interval.String(),
		"jobs":     len(jobs.Jobs()),
	}), "starting cron worker")
	return service.Run(ctx)
}

// buildRegistry registers outbox-retention always and video-sync only when
// video platform credentials are configured.
func buildRegistry(ctx context.Context, cfg *config.Config, logg *logger.Logger, infra *bootstrap.Infra) (*cron.Registry, error) {
	conn := infra.DB.DB()
	jobs := cron.NewRegistry()

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:        logg,
		DB:            infra.DB,
		Repository:    outbox.NewRepository(conn),
		RetentionDays: cfg.Cron.OutboxRetentionDays,
	})
	if err != nil {
		return nil, err
	}
	if err := jobs.Register(retention); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Video.TokenID) == "" {
		logg.Warn(ctx, "video platform credentials missing, video sync disabled")
		return jobs, nil
	}
	platform, err := video.NewClient(cfg.Video)
	if err != nil {
		return nil, err
	}
	videos := catalog.NewRepository(conn)
	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:     videos,
		DB:       infra.DB,
		Platform: platform,
		Cache:    infra.Redis,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}
	videoSync, err := cron.NewVideoSyncJob(cron.VideoSyncJobParams{
		Logger:    logg,
		Videos:    videos,
		Refresher: catalogService,
		BatchSize: cfg.Cron.VideoSyncBatchSize,
	})
	if err != nil {
		return nil, err
	}
	return jobs, jobs.Register(videoSync)
}
