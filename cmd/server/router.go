package main

import (
	"net/http"

	"github.com/phrazzld/product-catalog-api/internal/api"
)

// setupRouter creates the application router from the application's
// dependencies.
func (app *application) setupRouter() http.Handler {
	return api.NewRouter(api.RouterDeps{
		ProductService: app.productService,
		JWTService:     app.jwtService,
		Readiness:      app.readiness,
		Metrics:        app.metrics,
		MetricsHandler: app.metrics.Handler(),
		PathPrefix:     app.config.Server.PathPrefix,
		Logger:         app.logger,

		TrustGatewayHeaders: app.config.Auth.TrustGatewayHeaders,
	})
}
