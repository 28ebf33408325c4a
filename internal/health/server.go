// Package health provides the HTTP health endpoint for Gilbert.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gilbertlabs/gilbert/internal/config"
)

// Pinger is one dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes liveness and dependency reachability over HTTP.
type Server struct {
	config     config.ServerConfig
	logger     *slog.Logger
	httpServer *http.Server

	mu      sync.RWMutex
	pingers map[string]Pinger
}

// Status is the /healthz response body.
type Status struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
}

// New creates a health server.
func New(cfg config.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:  cfg,
		logger:  logger.With("component", "health"),
		pingers: make(map[string]Pinger),
	}
}

// Register adds a named dependency to the health check.
func (s *Server) Register(name string, p Pinger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingers[name] = p
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealthz)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting health server", "addr", addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// handleRoot answers platform liveness probes.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// handleHealthz reports per-dependency reachability. The endpoint stays
// 200 as long as the process is up; degraded dependencies show in the
// body.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	s.mu.RLock()
	pingers := make(map[string]Pinger, len(s.pingers))
	for name, p := range s.pingers {
		pingers[name] = p
	}
	s.mu.RUnlock()

	status := Status{
		Status:       "ok",
		Dependencies: make(map[string]string, len(pingers)),
	}

	for name, p := range pingers {
		if err := p.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Dependencies[name] = err.Error()
			s.logger.Warn("dependency unreachable", "dependency", name, "error", err)
		} else {
			status.Dependencies[name] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
