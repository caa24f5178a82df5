// Package rest assembles the HTTP API.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appservices "screengraph-backend/application/services"
	"screengraph-backend/infrastructure/config"
	"screengraph-backend/interfaces/http/rest/handlers"
	"screengraph-backend/interfaces/http/rest/middleware"
	"screengraph-backend/pkg/observability"
)

// Router creates and configures the HTTP router
type Router struct {
	config       *config.Config
	orchestrator *appservices.GraphOrchestrator
	logger       *zap.Logger
	metrics      *observability.Collector
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	orchestrator *appservices.GraphOrchestrator,
	logger *zap.Logger,
	metrics *observability.Collector,
) *Router {
	return &Router{
		config:       cfg,
		orchestrator: orchestrator,
		logger:       logger,
		metrics:      metrics,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.config.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health and observability
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(rt.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		itemHandler := handlers.NewItemHandler(rt.orchestrator, rt.logger)
		r.Route("/items", func(r chi.Router) {
			r.Post("/", itemHandler.UpsertItems)
			r.Delete("/{itemID}", itemHandler.DeleteItem)
		})

		graphHandler := handlers.NewGraphHandler(rt.orchestrator, rt.logger)
		r.Route("/graph", func(r chi.Router) {
			r.Get("/", graphHandler.GetGraph)
			r.Get("/positions", graphHandler.GetPositions)
			r.Get("/status", graphHandler.GetStatus)

			r.Route("/nodes/{itemID}", func(r chi.Router) {
				r.Post("/pin", graphHandler.PinNode)
				r.Delete("/pin", graphHandler.UnpinNode)
				r.Put("/position", graphHandler.MoveNode)
			})
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports ready once the orchestrator has a graph snapshot
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	status := rt.orchestrator.Status()

	w.Header().Set("Content-Type", "application/json")
	if status.State == appservices.GraphStateOrganizing && status.Version == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"organizing"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
