package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/power-outage-monitor/internal/domain"
	"github.com/couchcryptid/power-outage-monitor/internal/pipeline"
)

// apiKeyHeader carries the shared token required by /checkSite.
const apiKeyHeader = "X-API-Key"

// Checker runs a site power check.
type Checker interface {
	Check(ctx context.Context, req pipeline.CheckRequest) (pipeline.CheckResult, error)
}

// Server exposes the check endpoint alongside health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	checker    Checker
	apiToken   string
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /checkSite routes. An empty apiToken leaves /checkSite unauthenticated.
func NewServer(addr string, ready sharedobs.ReadinessChecker, checker Checker, apiToken string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// A check waits on several outside systems.
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		checker:  checker,
		apiToken: apiToken,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /checkSite", s.authorize(s.handleCheckSite))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) authorize(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiToken == "" {
			next(w, r)
			return
		}
		key := r.Header.Get(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleCheckSite(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := pipeline.CheckRequest{
		SiteName:   q.Get("siteName"),
		IncidentID: q.Get("alertId"),
		ActionName: q.Get("actionName"),
	}
	// Without alertId the check runs but nothing is posted to the incident.
	if req.SiteName == "" {
		writeError(w, http.StatusBadRequest, "siteName is required")
		return
	}
	if p := q.Get("provider"); p != "" {
		name, err := domain.ParseProviderName(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Provider = name
	}

	res, err := s.checker.Check(r.Context(), req)
	switch {
	case pipeline.IsSiteNotFound(err):
		s.logger.Info("check requested for unknown site", "site", req.SiteName)
		writeError(w, http.StatusNotFound, "Could not find site '"+req.SiteName+"'")
		return
	case err != nil:
		s.logger.Error("site check failed", "site", req.SiteName, "error", err)
		writeError(w, http.StatusInternalServerError, "site check failed")
		return
	}

	writeJSON(w, http.StatusOK, res.Details)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
