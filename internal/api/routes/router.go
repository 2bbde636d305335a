package routes

import (
	"net/http"

	"github.com/scriptcycle/rxrecommender/internal/api/handlers"
	"github.com/scriptcycle/rxrecommender/internal/api/middleware"
	"github.com/scriptcycle/rxrecommender/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	recommendationHandler *handlers.RecommendationHandler
	drugHandler           *handlers.DrugHandler
	packageHandler        *handlers.PackageHandler
	healthHandler         *handlers.HealthHandler
	cacheHandler          *handlers.CacheHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	recommendationHandler *handlers.RecommendationHandler,
	drugHandler *handlers.DrugHandler,
	packageHandler *handlers.PackageHandler,
	healthHandler *handlers.HealthHandler,
	cacheHandler *handlers.CacheHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		recommendationHandler: recommendationHandler,
		drugHandler:           drugHandler,
		packageHandler:        packageHandler,
		healthHandler:         healthHandler,
		cacheHandler:          cacheHandler,

		metrics: metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", r.healthHandler.GetHealth)

	// Recommendation endpoints
	r.mux.HandleFunc("POST /api/recommendations", r.recommendationHandler.CreateRecommendation)
	r.mux.HandleFunc("GET /api/recommendations/advisor-usage", r.recommendationHandler.GetAdvisorUsage)

	// Drug normalization endpoints
	r.mux.HandleFunc("GET /api/drugs/normalize", r.drugHandler.NormalizeDrug)
	r.mux.HandleFunc("POST /api/drugs/normalize/batch", r.drugHandler.NormalizeBatch)

	// Package analysis endpoints
	r.mux.HandleFunc("GET /api/packages/fill-precision", r.packageHandler.GetFillPrecision)

	// Cache administration endpoints
	if r.cacheHandler != nil {
		r.mux.HandleFunc("DELETE /api/cache/{namespace}", r.cacheHandler.InvalidateNamespace)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything so preflight requests never reach the mux
	handler = middleware.CORSMiddleware(handler)

	return handler
}
