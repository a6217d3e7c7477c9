package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nextflow/internal/auth"
	"nextflow/internal/messaging"
	"nextflow/internal/metrics"
	"nextflow/internal/panel"
	"nextflow/internal/repo"
)

// Dependencies exposes core dependencies to handlers. Auth, Messaging and
// Panel are optional; their routes answer 503 when unset.
type Dependencies struct {
	Store     *repo.Store
	Auth      *auth.Service
	Messaging *messaging.Service
	Panel     *panel.Client
}

// Server wraps an http.Server with the API router.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *metrics.Metrics
	deps       Dependencies
	basePath   string
	handler    http.Handler
}

// New creates a server listening on addr. API routes live under basePath;
// health and metrics endpoints stay at the root.
func New(addr, basePath string, logger *slog.Logger, metricRegistry *metrics.Metrics, deps Dependencies) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	server := &Server{
		logger:   logger.With("component", "http"),
		metrics:  metricRegistry,
		deps:     deps,
		basePath: normaliseBasePath(basePath),
	}

	unmatched := server.instrument(http.HandlerFunc(notFound), unmatchedRoute)
	root := mux.NewRouter()
	root.NotFoundHandler = unmatched
	root.MethodNotAllowedHandler = unmatched
	root.HandleFunc("/healthz", server.healthHandler).Methods(http.MethodGet)
	root.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := root.NewRoute().Subrouter()
	if server.basePath != "" {
		api = root.PathPrefix(server.basePath).Subrouter()
	}
	api.NotFoundHandler = unmatched
	api.MethodNotAllowedHandler = unmatched
	api.Use(server.observe)
	server.routes(api)

	server.handler = server.recoverer(root)
	server.httpServer = &http.Server{
		Addr:              addr,
		Handler:           server.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if server.basePath != "" {
		server.logger.Info("http server configured with base path", "base_path", server.basePath)
	}

	return server
}

// Handler returns the fully wired handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Warn("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Endpoint not found")
}

func normaliseBasePath(base string) string {
	base = strings.TrimSpace(base)
	if base == "" || base == "/" {
		return ""
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return strings.TrimSuffix(base, "/")
}
