package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mediayaseer-arch/questpark-backend/api/controllers"
	"github.com/mediayaseer-arch/questpark-backend/api/middleware"
	"github.com/mediayaseer-arch/questpark-backend/internal/botguard"
	"github.com/mediayaseer-arch/questpark-backend/pkg/config"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
	"github.com/mediayaseer-arch/questpark-backend/pkg/metrics"
	"github.com/mediayaseer-arch/questpark-backend/pkg/redis"
)

// Dependencies carries everything the router wires into handlers.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	DBPinger    controllers.Pinger
	RedisClient *redis.Client
	Metrics     *metrics.HTTPMetrics
	Registry    *prometheus.Registry

	BotGuard          *botguard.Guard
	CheckoutService   controllers.CheckoutService
	EventSource       controllers.EventSource
	PresenceService   controllers.PresenceService
	NewsletterService controllers.NewsletterService
	OperatorService   controllers.OperatorService
	TokenVerifier     middleware.TokenVerifier
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	globalPolicy, apiPolicy, sensitivePolicy := middleware.PoliciesFromConfig(cfg.RateLimit, cfg.App)
	r.Use(middleware.RateLimit(globalPolicy, deps.RedisClient, logg))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisClient))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	sensitive := middleware.RateLimit(sensitivePolicy, deps.RedisClient, logg)
	operatorOnly := middleware.OperatorAuth(deps.TokenVerifier, logg)

	r.Route("/api", func(r chi.Router) {
		r.Use(
			middleware.RateLimit(apiPolicy, deps.RedisClient, logg),
			middleware.BotGate(cfg.App.CORSOrigins, deps.Metrics, logg),
		)

		r.Get("/tickets", controllers.TicketCatalog())
		r.Post("/bot/verify", controllers.BotVerify(deps.BotGuard, logg))
		r.With(sensitive).Post("/newsletter/subscribe", controllers.NewsletterSubscribe(deps.NewsletterService, logg))

		r.Route("/checkout/submissions", func(r chi.Router) {
			r.With(sensitive).Post("/", controllers.CheckoutCreate(deps.CheckoutService, deps.BotGuard, logg))
			r.With(operatorOnly).Get("/", controllers.CheckoutList(deps.CheckoutService, logg))
			r.With(operatorOnly).Get("/stream", controllers.CheckoutStream(deps.EventSource, cfg.Realtime.HeartbeatInterval, deps.Metrics, logg))
			r.Get("/{id}", controllers.CheckoutGet(deps.CheckoutService, logg))
			r.With(operatorOnly).Patch("/{id}/status", controllers.CheckoutUpdateStatus(deps.CheckoutService, logg))
			r.With(sensitive).Post("/{id}/verify-otp", controllers.CheckoutVerifyOTP(deps.CheckoutService, logg))
		})

		r.Post("/presence/heartbeat", controllers.PresenceHeartbeat(deps.PresenceService, logg))
		r.With(operatorOnly).Get("/presence", controllers.PresenceSnapshot(deps.PresenceService, logg))

		r.With(sensitive).Post("/dashboard/login", controllers.OperatorLogin(deps.OperatorService, logg))
	})

	return r
}
