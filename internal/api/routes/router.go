package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zatekoja/carematch/backend/internal/api/handlers"
	"github.com/zatekoja/carematch/backend/internal/api/middleware"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/observability"
)

const readinessTimeout = 2 * time.Second

// Pinger is a backing service that can report whether it is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	matchHandler      *handlers.MatchHandler
	suggestionHandler *handlers.SuggestionHandler

	dependencies   map[string]Pinger
	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router. dependencies are pinged by the readiness probe.
func NewRouter(
	matchHandler *handlers.MatchHandler,
	suggestionHandler *handlers.SuggestionHandler,
	dependencies map[string]Pinger,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		matchHandler:      matchHandler,
		suggestionHandler: suggestionHandler,
		dependencies:      dependencies,
		allowedOrigins:    allowedOrigins,
		metrics:           metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})
	r.mux.HandleFunc("GET /health/ready", r.ready)

	r.mux.HandleFunc("POST /api/match", r.matchHandler.MatchHospitals)
	r.mux.HandleFunc("GET /api/search/suggest", r.suggestionHandler.Suggest)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics, r.mux)(handler)
	// CORS wraps everything so preflights never reach the handlers
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

func (r *Router) ready(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), readinessTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(r.dependencies))
	for name, dep := range r.dependencies {
		if err := dep.Ping(ctx); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("dependency", name).Msg("Readiness check failed")
			checks[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(checks)
}
