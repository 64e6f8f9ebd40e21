package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/product-catalog-api/internal/api/middleware"
	"github.com/phrazzld/product-catalog-api/internal/api/shared"
	"github.com/phrazzld/product-catalog-api/internal/service"
	"github.com/phrazzld/product-catalog-api/internal/service/auth"
)

// RouterDeps holds everything NewRouter wires into handlers.
type RouterDeps struct {
	ProductService service.ProductService
	JWTService     auth.JWTService
	Readiness      ReadinessChecker
	// Metrics observes every routed request; nil disables request metrics.
	Metrics middleware.RequestObserver
	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler
	// PathPrefix is prepended to the product routes, e.g. "/api/v1".
	PathPrefix string
	// TrustGatewayHeaders accepts X-Auth-Request-* identity headers.
	TrustGatewayHeaders bool
	Logger              *slog.Logger
}

// NewRouter creates the application router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.TraceMiddleware(log))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}
	r.Use(chimiddleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithError(w, r, http.StatusNotFound, shared.CodeNotFound, "Resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithError(w, r, http.StatusMethodNotAllowed, shared.CodeValidation, "Method not allowed")
	})

	productHandler := NewProductHandler(deps.ProductService, log)
	var authOpts []middleware.AuthOption
	if deps.TrustGatewayHeaders {
		authOpts = append(authOpts, middleware.WithGatewayHeaders())
	}
	authMiddleware := middleware.NewAuthMiddleware(deps.JWTService, authOpts...)
	read := middleware.RequireScope(auth.ScopeProductRead)
	write := middleware.RequireScope(auth.ScopeProductWrite)

	productRoutes := func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.With(read).Get("/", productHandler.ListProducts)
			r.With(read).Get("/{id}", productHandler.GetProduct)

			r.With(write).Post("/", productHandler.CreateProduct)
			r.With(write).Put("/{id}", productHandler.UpdateProduct)
			r.With(write).Delete("/{id}", productHandler.DeleteProduct)
			r.With(write).Post("/{id}/stock", productHandler.AdjustStock)
		})
	}

	prefix := strings.TrimSuffix(deps.PathPrefix, "/")
	if prefix == "" {
		productRoutes(r)
	} else {
		r.Route(prefix, productRoutes)
	}

	if deps.Readiness != nil {
		healthHandler := NewHealthHandler(deps.Readiness, log)
		r.Get("/health", healthHandler.Ready)
		r.Get("/health/live", healthHandler.Live)
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	return r
}
