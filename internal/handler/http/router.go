package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openshopco/searchcore/internal/search"
	"github.com/openshopco/searchcore/internal/trending"
	"github.com/openshopco/searchcore/pkg/health"
	"github.com/openshopco/searchcore/pkg/httputil"
	"github.com/openshopco/searchcore/pkg/middleware"
)

// NewRouter creates a chi router with all search service routes registered.
func NewRouter(
	searchService *search.Service,
	tracker *trending.Tracker,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("search"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	searchHandler := NewSearchHandler(searchService, logger)
	trendingHandler := NewTrendingHandler(tracker, logger)

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Get("/", searchHandler.Search)
		r.Get("/count", searchHandler.SearchCount)
		r.Get("/optimizations", searchHandler.BestOptimizations)
		r.Get("/zero-results", searchHandler.ZeroResultQueries)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/cache/invalidate", searchHandler.InvalidateCache)
		})
	})

	r.Route("/api/v1/trending", func(r chi.Router) {
		r.Get("/", trendingHandler.GetTrending)
		r.Get("/hot", trendingHandler.GetHotItems)
	})

	r.Group(func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Post("/api/v1/interactions", trendingHandler.RecordInteraction)
	})

	return r
}

// ContentTypeJSON rejects body-carrying requests without a JSON content type.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct != "" && !strings.HasPrefix(ct, "application/json") {
			httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
				Error: &httputil.ErrorResponse{
					Code:    "UNSUPPORTED_MEDIA_TYPE",
					Message: "Content-Type must be application/json",
				},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
