package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/nexusshop-storefront/api/controllers"
	"github.com/angelmondragon/nexusshop-storefront/api/middleware"
	"github.com/angelmondragon/nexusshop-storefront/api/responses"
	pkgAuth "github.com/angelmondragon/nexusshop-storefront/pkg/auth"
	"github.com/angelmondragon/nexusshop-storefront/pkg/auth/session"
	"github.com/angelmondragon/nexusshop-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/nexusshop-storefront/pkg/errors"
	"github.com/angelmondragon/nexusshop-storefront/pkg/logger"
	"github.com/angelmondragon/nexusshop-storefront/pkg/metrics"
	pkgredis "github.com/angelmondragon/nexusshop-storefront/pkg/redis"
	"github.com/angelmondragon/nexusshop-storefront/pkg/storage"
)

// Dependencies groups everything the router mounts. Redis is nil when the
// storefront runs on the memory or sqlite drivers; idempotency and rate
// limiting are skipped in that case.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	Catalog  controllers.CatalogReader
	Filters  controllers.FilterEngine
	Cart     controllers.CartService
	Shipping controllers.ShippingEstimator
	Auth     controllers.AuthService
	Sessions session.AccessSessionChecker
	Redis    *pkgredis.Client
	Checks   map[string]storage.Pinger

	Metrics     *metrics.StorefrontMetrics
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
}

// NewRouter wires the storefront HTTP surface.
func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	var (
		counter     middleware.WindowCounter
		idempotency pkgredis.IdempotencyStore
	)
	if deps.Redis != nil {
		counter = deps.Redis
		idempotency = deps.Redis
	}
	loginPolicy := middleware.LoginPolicy(cfg.AuthRateLimit)
	registerPolicy := middleware.RegisterPolicy(cfg.AuthRateLimit)
	requireAuth := middleware.Auth(cfg.JWT, deps.Sessions, logg)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))
	r.Use(middleware.CORS(cfg.HTTP.AllowedOrigins))
	r.Use(deps.HTTPMetrics.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "method not allowed on route"))
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Checks, logg))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotency, logg))

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", controllers.CatalogProducts(deps.Catalog, deps.Metrics, logg))
			r.Get("/products/{productID}", controllers.CatalogProduct(deps.Catalog, logg))
			r.Get("/categories", controllers.CatalogCategories(deps.Catalog))
			r.Get("/facets", controllers.CatalogFacets(deps.Catalog))
		})

		r.Route("/filters", func(r chi.Router) {
			r.Get("/", controllers.FiltersGet(deps.Filters))
			r.Patch("/", controllers.FiltersPatch(deps.Filters, logg))
			r.Post("/categories/{category}/toggle", controllers.FiltersToggleCategory(deps.Filters, logg))
			r.Post("/brands/{brand}/toggle", controllers.FiltersToggleBrand(deps.Filters, logg))
			r.Post("/reset", controllers.FiltersReset(deps.Filters))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.Cart))
			r.Delete("/", controllers.CartClear(deps.Cart))
			r.Post("/items", controllers.CartAddItem(deps.Cart, deps.Catalog, logg))
			r.Patch("/items/{itemID}", controllers.CartUpdateItem(deps.Cart, deps.Catalog, logg))
			r.Delete("/items/{itemID}", controllers.CartRemoveItem(deps.Cart, logg))
			r.Post("/coupon", controllers.CartApplyCoupon(deps.Cart, logg))
			r.Delete("/coupon", controllers.CartRemoveCoupon(deps.Cart))
			r.Get("/recommended", controllers.CartRecommended(deps.Cart, logg))
			r.Post("/shipping-estimate", controllers.CartShippingEstimate(deps.Shipping, logg))
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimit(loginPolicy, counter, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.With(middleware.RateLimit(registerPolicy, counter, logg)).Post("/register", controllers.AuthRegister(deps.Auth, logg))
			r.Post("/oauth/{provider}", controllers.AuthOAuth(deps.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Auth))
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
			r.Post("/password/forgot", controllers.AuthForgotPassword(deps.Auth, logg))
			r.Post("/password/reset", controllers.AuthResetPassword(deps.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Use(middleware.RequireRole(logg, pkgAuth.RoleUser, pkgAuth.RoleAdmin))
				r.Get("/me", controllers.AuthMe(deps.Auth))
				r.Patch("/me", controllers.AuthUpdateProfile(deps.Auth, logg))
				r.Post("/password/change", controllers.AuthChangePassword(deps.Auth, logg))
			})
		})
	})

	return r
}
