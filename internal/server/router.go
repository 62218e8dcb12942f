package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"calculator-api/internal/calculator"
	"calculator-api/internal/handlers"
	"calculator-api/internal/observability"
)

// NewRouter wires middleware, the calculator session API, /health and
// /metrics. metrics may be nil for the default Prometheus registry.
func NewRouter(calc *calculator.Handler, metrics prometheus.Gatherer) http.Handler {

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(observability.RequestIDMiddleware)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.LoggingMiddleware)

	r.Get("/health", handlers.Health)

	r.Handle("/metrics", observability.PrometheusHandler(metrics))

	calculator.RegisterRoutes(r, calc)

	return r
}
