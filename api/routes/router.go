package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/coursevault-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/coursevault-backend/api/controllers/webhooks"
	"github.com/angelmondragon/coursevault-backend/api/middleware"
	"github.com/angelmondragon/coursevault-backend/internal/catalog"
	"github.com/angelmondragon/coursevault-backend/internal/certificates"
	"github.com/angelmondragon/coursevault-backend/internal/entitlements"
	"github.com/angelmondragon/coursevault-backend/internal/payments"
	"github.com/angelmondragon/coursevault-backend/internal/progress"
	"github.com/angelmondragon/coursevault-backend/internal/users"
	"github.com/angelmondragon/coursevault-backend/pkg/config"
	"github.com/angelmondragon/coursevault-backend/pkg/enums"
	"github.com/angelmondragon/coursevault-backend/pkg/idempotency"
	"github.com/angelmondragon/coursevault-backend/pkg/logger"
	"github.com/angelmondragon/coursevault-backend/pkg/metrics"
	"github.com/angelmondragon/coursevault-backend/pkg/redis"
)

// Dependencies are the services and clients the HTTP surface needs.
// DB and Redis may be nil in tests; Redis-backed middleware is skipped then.
type Dependencies struct {
	DB                  controllers.Pinger
	Redis               *redis.Client
	Metrics             *metrics.Metrics
	Gatherer            prometheus.Gatherer
	Users               users.Service
	Catalog             catalog.Service
	Entitlements        entitlements.Service
	Payments            payments.Service
	Progress            progress.Service
	Certificates        certificates.Service
	PaymentWebhook      webhookcontrollers.PaymentWebhookService
	PaymentWebhookGuard *idempotency.Guard
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.Metrics),
		middleware.CORS(cfg.CORS),
	)

	var (
		readiness   = map[string]controllers.Pinger{}
		idempotency = func(next http.Handler) http.Handler { return next }
		loginLimit  = idempotency
		signupLimit = idempotency
	)
	if deps.DB != nil {
		readiness["db"] = deps.DB
	}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
		idempotency = middleware.Idempotency(deps.Redis, cfg.Idempotency.TTL, logg)
		loginLimit = middleware.RateLimit(middleware.LoginRule(cfg.AuthRateLimit), deps.Redis, logg)
		signupLimit = middleware.RateLimit(middleware.RegisterRule(cfg.AuthRateLimit), deps.Redis, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.HandlerFor(deps.Gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/payments", webhookcontrollers.PaymentWebhook(deps.PaymentWebhook, cfg.Webhooks.PaymentsSigningSecret, webhookGuard(deps.PaymentWebhookGuard), logg))

		r.With(loginLimit).Post("/auth/login", controllers.AuthLogin(deps.Users, logg))
		r.With(signupLimit).Post("/auth/register", controllers.AuthRegister(deps.Users, logg))

		r.Get("/courses", controllers.CourseList(deps.Catalog, logg))
		r.Get("/courses/{slug}", controllers.CourseBySlug(deps.Catalog, logg))
		r.Get("/packs/{slug}", controllers.PackBySlug(deps.Catalog, logg))
		r.Get("/certificates/verify", controllers.CertificateVerify(deps.Certificates, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Get("/me", controllers.Me(deps.Users, logg))
			r.Get("/me/courses", controllers.MyCourses(deps.Entitlements, logg))

			r.With(idempotency).Post("/courses/{courseId}/claim", controllers.CourseClaim(deps.Entitlements, logg))

			r.Route("/payments", func(r chi.Router) {
				r.With(idempotency).Post("/", controllers.PaymentCreate(deps.Payments, logg))
				r.Get("/", controllers.PaymentList(deps.Payments, logg))
				r.Get("/{paymentId}", controllers.PaymentGet(deps.Payments, logg))
				r.With(idempotency).Post("/{paymentId}/cancel", controllers.PaymentCancel(deps.Payments, logg))
			})

			r.Post("/progress/watch", controllers.ProgressWatch(deps.Progress, logg))
			r.Get("/progress/{courseId}", controllers.ProgressGet(deps.Progress, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))

		r.With(idempotency).Post("/payments/{paymentId}/settle", controllers.AdminPaymentSettle(deps.Payments, logg))
		r.Post("/courses", controllers.AdminCreateCourse(deps.Catalog, logg))
		r.Post("/courses/{courseId}/videos", controllers.AdminAddVideo(deps.Catalog, logg))
		r.Post("/videos/{videoId}/refresh", controllers.AdminRefreshVideo(deps.Catalog, logg))
		r.Post("/packs", controllers.AdminCreatePack(deps.Catalog, logg))
	})

	return r
}

// webhookGuard avoids handing the controller a typed nil.
func webhookGuard(guard *idempotency.Guard) webhookcontrollers.PaymentWebhookGuard {
	if guard == nil {
		return nil
	}
	return guard
}
