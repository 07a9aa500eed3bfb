package controllers

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/angelmondragon/coursevault-backend/api/responses"
	"github.com/angelmondragon/coursevault-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
)

const (
	readinessTimeout = 2 * time.Second
	envHeader        = "X-CourseVault-Env"
)

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(context.Context) error
}

type probe struct {
	Status string `json:"status"`
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, probe{Status: "live"})
	}
}

// HealthReady pings every dependency and answers 503 listing the ones that
// failed.
func HealthReady(cfg *config.Config, deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	names := slices.Sorted(maps.Keys(deps))
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		down := map[string]string{}
		var firstErr error
		for _, name := range names {
			if deps[name] == nil {
				continue
			}
			if err := deps[name].Ping(ctx); err != nil {
				down[name] = "unreachable"
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		if len(down) > 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, firstErr, "dependencies unavailable").WithDetails(down))
			return
		}
		responses.WriteSuccess(w, probe{Status: "ready"})
	}
}
