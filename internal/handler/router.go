// Package handler provides the HTTP ops endpoint for ballotbox: health,
// election status and Prometheus metrics. It is off by default.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/prn-tf/ballotbox/internal/domain"
)

// StatusProvider reports the state of the election.
type StatusProvider interface {
	Status() (domain.ElectionConfig, domain.Status)
	Statistics() domain.Statistics
}

// Router serves the ops endpoints.
type Router struct {
	election    StatusProvider
	metrics     http.Handler
	metricsPath string
	logger      zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	Election StatusProvider

	// Metrics serves the metrics path. Nil disables it.
	Metrics     http.Handler
	MetricsPath string

	Logger zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	return &Router{
		election:    config.Election,
		metrics:     config.Metrics,
		metricsPath: config.MetricsPath,
		logger:      config.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(rt.logRequests)

	r.Get("/health", rt.handleHealth)
	if rt.election != nil {
		r.Get("/status", rt.handleStatus)
	}
	if rt.metrics != nil {
		r.Method(http.MethodGet, rt.metricsPath, rt.metrics)
	}

	return r
}

// handleHealth handles health check requests.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// statusResponse is the body of GET /status.
type statusResponse struct {
	Status          string    `json:"status"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	RegisteredUsers int       `json:"registered_users"`
	VotedUsers      int       `json:"voted_users"`
	Turnout         float64   `json:"turnout_percent"`
	TotalVotes      int       `json:"total_votes"`
	Candidates      int       `json:"candidates"`
}

// handleStatus reports the election window and participation. Vote counts
// per candidate are not exposed.
func (rt *Router) handleStatus(w http.ResponseWriter, r *http.Request) {
	window, status := rt.election.Status()
	stats := rt.election.Statistics()

	writeJSON(w, http.StatusOK, statusResponse{
		Status:          status.String(),
		Start:           window.Start,
		End:             window.End,
		RegisteredUsers: stats.RegisteredUsers,
		VotedUsers:      stats.VotedUsers,
		Turnout:         stats.Turnout,
		TotalVotes:      stats.TotalVotes,
		Candidates:      stats.TotalCandidates,
	})
}

func (rt *Router) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		rt.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
