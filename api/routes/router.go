package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/pricebook-backend/api/controllers"
	"github.com/angelmondragon/pricebook-backend/api/middleware"
	"github.com/angelmondragon/pricebook-backend/api/responses"
	"github.com/angelmondragon/pricebook-backend/internal/pricing"
	"github.com/angelmondragon/pricebook-backend/pkg/config"
	"github.com/angelmondragon/pricebook-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/pricebook-backend/pkg/errors"
	"github.com/angelmondragon/pricebook-backend/pkg/logger"
	"github.com/angelmondragon/pricebook-backend/pkg/metrics"
	"github.com/angelmondragon/pricebook-backend/pkg/redis"
)

// NewRouter wires the gateway. redisClient may be nil, which disables idempotent replay.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	pricingService pricing.Service,
	registry *prometheus.Registry,
) http.Handler {
	var (
		redisPinger redis.Pinger
		idemStore   redis.IdempotencyStore
	)
	if redisClient != nil {
		redisPinger = redisClient
		idemStore = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, metrics.NewHTTPMetrics(registry)),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "method not allowed"))
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	}

	r.Route("/api/v1/price-books", func(r chi.Router) {
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Post("/", controllers.CreatePriceBook(pricingService, logg))
		r.Post("/search", controllers.SearchPriceBook(pricingService, logg))

		r.Route("/{priceBookId}", func(r chi.Router) {
			r.Get("/", controllers.GetPriceBook(pricingService, logg))
			r.Delete("/", controllers.DeletePriceBook(pricingService, logg))
			r.Put("/prices", controllers.AssignPrices(pricingService, logg))
			r.Get("/prices", controllers.GetPrices(pricingService, logg))
			r.Post("/prices/unassign", controllers.UnassignPrices(pricingService, logg))
		})
	})

	return r
}
