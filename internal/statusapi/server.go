// Package statusapi implements the engine's ambient HTTP operability
// surface: health, status and Prometheus metrics. It is adapted from the
// teacher's internal/api/server.go, trimmed of the backtest-run and
// WebSocket-streaming endpoints (no spec analogue once internal/
// backtester and the live dashboard were dropped) down to the shape every
// long-running process in the teacher's stack ships: a router behind
// CORS on its own listener, started and stopped independently of the
// engine's own cycle loop.
package statusapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/cycle"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Config configures the status server's listener.
type Config struct {
	Addr string
}

// StatusSource is the subset of the cycle controller the status endpoint
// reports on.
type StatusSource interface {
	Phase() cycle.Phase
}

// Server exposes /healthz, /status and /metrics over HTTP.
type Server struct {
	mu     sync.RWMutex
	logger *zap.Logger
	config Config
	router *mux.Router
	http   *http.Server

	controller StatusSource
	startedAt  time.Time
}

// New builds a status server bound to controller's phase.
func New(logger *zap.Logger, config Config, controller StatusSource) *Server {
	s := &Server{
		logger:     logger.With(zap.String("component", "statusapi")),
		config:     config,
		router:     mux.NewRouter(),
		controller: controller,
		startedAt:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Start blocks serving HTTP until Stop is called or the listener fails.
func (s *Server) Start() error {
	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler(s.router)

	s.http = &http.Server{
		Addr:         s.config.Addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	s.logger.Info("starting status server", zap.String("addr", s.config.Addr))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"phase":   fmt.Sprint(s.controller.Phase()),
		"uptime":  time.Since(s.startedAt).String(),
		"started": s.startedAt.UTC().Format(time.RFC3339),
	})
}
