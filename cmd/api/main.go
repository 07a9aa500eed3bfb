package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/coursevault-backend/api/routes"
	"github.com/angelmondragon/coursevault-backend/internal/bootstrap"
	"github.com/angelmondragon/coursevault-backend/internal/catalog"
	"github.com/angelmondragon/coursevault-backend/internal/certificates"
	"github.com/angelmondragon/coursevault-backend/internal/entitlements"
	"github.com/angelmondragon/coursevault-backend/internal/payments"
	"github.com/angelmondragon/coursevault-backend/internal/progress"
	"github.com/angelmondragon/coursevault-backend/internal/users"
	paymentwebhook "github.com/angelmondragon/coursevault-backend/internal/webhooks/payments"
	"github.com/angelmondragon/coursevault-backend/pkg/config"
	"github.com/angelmondragon/coursevault-backend/pkg/env"
	"github.com/angelmondragon/coursevault-backend/pkg/idempotency"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
	"github.com/angelmondragon/coursevault-backend/pkg/metrics"
	"github.com/angelmondragon/coursevault-backend/pkg/outbox"
	"github.com/angelmondragon/coursevault-backend/pkg/video"
)

const (
	shutdownTimeout = 15 * time.Second
	webhookEventTTL = 7 * 24 * time.Hour
)

func main() {
	bootstrap.Main("api", run)
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	infra, err := bootstrap.Open(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, infra.Close()) }()

	promRegistry := bootstrap.Registry()
	deps, err := buildDependencies(ctx, cfg, logg, infra, metrics.New(promRegistry))
	if err != nil {
		return err
	}
	deps.Gatherer = promRegistry

	// PORT wins so the platform router can pick the port.
	addr := ":" + env.Get("PORT", cfg.App.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx = logg.WithField(ctx, "addr", addr)

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func buildDependencies(ctx context.Context, cfg *config.Config, logg *logger.Logger, infra *bootstrap.Infra, m *metrics.Metrics) (routes.Dependencies, error) {
	dbClient, redisClient := infra.DB, infra.Redis
	conn := dbClient.DB()
	emitter := outbox.NewWriter(outbox.NewRepository(conn), logg)

	userRepo := users.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)

	userService, err := users.NewService(users.ServiceParams{
		Repo:           userRepo,
		DB:             dbClient,
		Outbox:         emitter,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	var platform video.Platform
	if strings.TrimSpace(cfg.Video.TokenID) != "" {
		client, err := video.NewClient(cfg.Video)
		if err != nil {
			return routes.Dependencies{}, err
		}
		platform = client
	} else {
		logg.Warn(ctx, "video platform credentials missing, videos require a playback id")
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:     catalogRepo,
		DB:       dbClient,
		Platform: platform,
		Cache:    redisClient,
		Logger:   logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	entitlementService, err := entitlements.NewService(entitlements.ServiceParams{
		Repo:        entitlements.NewRepository(conn),
		CatalogRepo: catalogRepo,
		DB:          dbClient,
		Metrics:     m,
		Logger:      logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:         payments.NewRepository(conn),
		UserRepo:     userRepo,
		CatalogRepo:  catalogRepo,
		Entitlements: entitlementService,
		DB:           dbClient,
		Outbox:       emitter,
		Metrics:      m,
		Logger:       logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	certificateService, err := certificates.NewService(certificates.ServiceParams{
		Repo:        certificates.NewRepository(conn),
		UserRepo:    userRepo,
		CatalogRepo: catalogRepo,
		Outbox:      emitter,
		Config:      cfg.Certificates,
		Metrics:     m,
		Logger:      logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	progressService, err := progress.NewService(progress.ServiceParams{
		Repo:         progress.NewRepository(conn),
		CatalogRepo:  catalogRepo,
		Entitlements: entitlementService,
		Certificates: certificateService,
		DB:           dbClient,
		Config:       cfg.Progress,
		Metrics:      m,
		Logger:       logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	webhookService, err := paymentwebhook.NewService(paymentwebhook.ServiceParams{
		Payments: paymentService,
		Logger:   logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	webhookGuard, err := idempotency.NewGuard(redisClient, webhookEventTTL)
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		DB:                  dbClient,
		Redis:               redisClient,
		Metrics:             m,
		Users:               userService,
		Catalog:             catalogService,
		Entitlements:        entitlementService,
		Payments:            paymentService,
		Progress:            progressService,
		Certificates:        certificateService,
		PaymentWebhook:      webhookService,
		PaymentWebhookGuard: webhookGuard,
	}, nil
}
