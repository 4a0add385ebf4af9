package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Router wraps the standard library ServeMux (no third-party router needed).
type Router struct {
	mux     *http.ServeMux
	origins map[string]bool
	logger  *zap.Logger
}

func NewRouter(corsOrigins []string, logger *zap.Logger) *Router {
	origins := make(map[string]bool, len(corsOrigins))
	for _, o := range corsOrigins {
		origins[o] = true
	}
	return &Router{
		mux:     http.NewServeMux(),
		origins: origins,
		logger:  logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if origin := req.Header.Get("Origin"); origin != "" && r.origins[origin] {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	}
	if req.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	r.mux.ServeHTTP(w, req)
}

// RegisterAPIRoutes wires the read-only projection endpoints.
func (r *Router) RegisterAPIRoutes(h *APIHandler) {
	get := func(pattern string, fn http.HandlerFunc) {
		r.Handle(pattern, func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			fn(w, req)
		})
	}

	get("/health", h.Health)
	get("/runs", h.ListRuns)
	get("/capacity/latest", h.CapacityLatest)
	get("/metrics/latest", h.MetricsLatest)
	get("/metrics/compare", h.MetricsCompare)
	get("/metrics/available-dates", h.AvailableDates)
	get("/metrics/coverage", h.Coverage)
	get("/metrics/export", h.ExportMetrics)

	// The business API owns /metrics/*, so the Prometheus endpoint lives
	// under /internal.
	r.mux.Handle("/internal/metrics", promhttp.Handler())
}
