package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
)

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Port int
	Bind string
}

// ErrPathNotRegistered is returned by FetchFunc/FetchDirectoryFunc when the
// requested path was never declared via a registration.
var ErrPathNotRegistered = errors.New("path not registered")

// FetchFunc resolves a registered static path's current cached value.
// When validOnly is true, the caller requested only the FetchValid semantics
// (suppress the registered default when the value is not yet backed by a
// successfully deserialized node).
type FetchFunc func(ctx context.Context, path string, validOnly bool) (any, error)

// FetchDirectoryFunc resolves a registered directory path's current
// snapshot of child values.
type FetchDirectoryFunc func(ctx context.Context, path string) (map[string]any, error)

// Server is the HTTP server for daemon health and cache-read endpoints.
// It is safe for concurrent use.
type Server struct {
	mu                 sync.RWMutex
	health             *HealthManager
	config             ServerConfig
	server             *http.Server
	router             *chi.Mux
	metricsHandler     http.Handler
	fetchFunc          FetchFunc
	fetchDirectoryFunc FetchDirectoryFunc
}

// NewServer creates a new HTTP server with the given health manager and config.
func NewServer(health *HealthManager, config ServerConfig) *Server {
	s := &Server{
		health: health,
		config: config,
		router: chi.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)
	s.router.Get("/fetch/*", s.handleFetch)
	s.router.Get("/fetch_valid/*", s.handleFetchValid)
	s.router.Get("/directory/*", s.handleFetchDirectory)

	if s.metricsHandler != nil {
		s.router.Handle("/metrics", s.metricsHandler)
	}
}

// SetMetricsHandler sets the Prometheus metrics handler.
func (s *Server) SetMetricsHandler(handler http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metricsHandler = handler
	s.router = chi.NewRouter()
	s.setupRoutes()
}

// SetFetchFunc sets the function to call when a static path fetch is requested.
func (s *Server) SetFetchFunc(fn FetchFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchFunc = fn
}

// SetFetchDirectoryFunc sets the function to call when a directory fetch is requested.
func (s *Server) SetFetchDirectoryFunc(fn FetchDirectoryFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchDirectoryFunc = fn
}

// Handler returns the HTTP handler for testing purposes.
func (s *Server) Handler() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.router
}

// LivezResponse is the response format for /healthz endpoint.
type LivezResponse struct {
	Status string `json:"status"`
}

// handleHealthz handles the /healthz endpoint (liveness probe).
// Returns 200 OK if the daemon process is alive.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	response := LivezResponse{
		Status: "alive",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// handleReadyz handles the /readyz endpoint (readiness probe).
// Returns 200 OK with health status for both healthy and degraded states.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := s.health.Status()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

// fetchResponse is the response envelope for /fetch and /fetch_valid.
type fetchResponse struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// handleFetch handles GET /fetch/{path}, returning the cached value for a
// registered static path, falling back to its registered default.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	s.serveFetch(w, r, false)
}

// handleFetchValid handles GET /fetch_valid/{path}, returning the cached
// value only if backed by a successful deserialization.
func (s *Server) handleFetchValid(w http.ResponseWriter, r *http.Request) {
	s.serveFetch(w, r, true)
}

func (s *Server) serveFetch(w http.ResponseWriter, r *http.Request, validOnly bool) {
	w.Header().Set("Content-Type", "application/json")

	path := chi.URLParam(r, "*")
	if path == "" {
		writeJSONError(w, http.StatusBadRequest, "path is required")
		return
	}
	path = "/" + path

	s.mu.RLock()
	fn := s.fetchFunc
	s.mu.RUnlock()

	if fn == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "fetch not available")
		return
	}

	value, err := fn(r.Context(), path, validOnly)
	if err != nil {
		if errors.Is(err, ErrPathNotRegistered) {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(fetchResponse{Path: path, Value: value})
}

// directoryResponse is the response envelope for /directory.
type directoryResponse struct {
	Path     string         `json:"path"`
	Children map[string]any `json:"children"`
}

// handleFetchDirectory handles GET /directory/{path}, returning the current
// snapshot of a registered directory's child values.
func (s *Server) handleFetchDirectory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := chi.URLParam(r, "*")
	if path == "" {
		writeJSONError(w, http.StatusBadRequest, "path is required")
		return
	}
	path = "/" + path

	s.mu.RLock()
	fn := s.fetchDirectoryFunc
	s.mu.RUnlock()

	if fn == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "directory fetch not available")
		return
	}

	children, err := fn(r.Context(), path)
	if err != nil {
		if errors.Is(err, ErrPathNotRegistered) {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(directoryResponse{Path: path, Children: children})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message})
}

// Start starts the HTTP server and blocks until it's stopped.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Bind, s.config.Port)

	s.mu.Lock()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},
	}
	server := s.server
	s.mu.Unlock()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error; %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	server := s.server
	s.mu.RUnlock()

	if server == nil {
		return nil
	}

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown http server; %w", err)
	}

	return nil
}
