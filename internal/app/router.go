package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/batiprix/batiprix/internal/apikeys"
	"github.com/batiprix/batiprix/internal/catalog/categories"
	"github.com/batiprix/batiprix/internal/catalog/products"
	"github.com/batiprix/batiprix/internal/catalog/units"
	"github.com/batiprix/batiprix/internal/observability"
	"github.com/batiprix/batiprix/internal/pricing"
	"github.com/batiprix/batiprix/internal/suppliers"
	"github.com/batiprix/batiprix/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Pool              *pgxpool.Pool
	Keys              KeyVerifier
	ProductsHandler   *products.Handler
	CategoriesHandler *categories.Handler
	UnitsHandler      *units.Handler
	PricingHandler    *pricing.Handler
	SuppliersHandler  *suppliers.Handler
	APIKeysHandler    *apikeys.Handler
	JobsHandler       *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with batiprix defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Keys:    params.Keys,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/referentiel", func(r chi.Router) {
		params.ProductsHandler.MountRoutes(r)
		params.CategoriesHandler.MountRoutes(r)
		params.UnitsHandler.MountRoutes(r)
	})
	r.Route("/api/prix", params.PricingHandler.MountRoutes)
	r.Route("/api/fournisseurs", params.SuppliersHandler.MountRoutes)
	if params.APIKeysHandler != nil {
		r.Route("/api/admin/api-keys", params.APIKeysHandler.MountRoutes)
	}
	if params.JobsHandler != nil {
		r.Route("/api/admin/jobs", params.JobsHandler.MountRoutes)
	}
	r.Get("/api/dashboard/stats", DashboardHandler(params.Logger, params.Pool))

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
