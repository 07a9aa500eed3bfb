package main

import (
	"context"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/coursevault-backend/internal/bootstrap"
	"github.com/angelmondragon/coursevault-backend/internal/notifications"
	"github.com/angelmondragon/coursevault-backend/pkg/config"
	"github.com/angelmondragon/coursevault-backend/pkg/idempotency"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
	"github.com/angelmondragon/coursevault-backend/pkg/mailer"
	"github.com/angelmondragon/coursevault-backend/pkg/metrics"
	"github.com/angelmondragon/coursevault-backend/pkg/outbox"
	"github.com/angelmondragon/coursevault-backend/pkg/outbox/registry"
)

// delivered event ids are remembered this long
const processedEventTTL = 7 * 24 * time.Hour

func main() {
	bootstrap.Main("outbox-publisher", run)
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	infra, err := bootstrap.Open(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, infra.Close()) }()

	guard, err := idempotency.NewGuard(infra.Redis, processedEventTTL)
	if err != nil {
		return err
	}
	dispatcher, err := buildDispatcher(cfg, logg)
	if err != nil {
		return err
	}

	promRegistry := bootstrap.Registry()
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            infra.DB,
		Repository:    outbox.NewRepository(infra.DB.DB()),
		DLQRepository: outbox.NewDLQRepository(),
		Deliverer:     dispatcher,
		Idempotency:   guard,
		Metrics:       metrics.New(promRegistry),
	})
	if err != nil {
		return err
	}

	stopMetrics := bootstrap.ServeMetrics(ctx, logg, ":"+cfg.App.Port, promRegistry)
	defer func() { err = multierr.Append(err, stopMetrics()) }()

	logg.Info(ctx, "starting outbox publisher")
	return service.Run(ctx)
}

func buildDispatcher(cfg *config.Config, logg *logger.Logger) (*notifications.Dispatcher, error) {
	sender, err := mailer.NewSender(cfg.Sendgrid, logg)
	if err != nil {
		return nil, err
	}
	renderer, err := mailer.NewRenderer()
	if err != nil {
		return nil, err
	}
	return notifications.NewDispatcher(notifications.DispatcherParams{
		Registry: registry.Mail(),
		Renderer: renderer,
		Sender:   sender,
		Logger:   logg,
	})
}
