// Package gateway exposes the agent backend over HTTP: the NDJSON message
// stream, conversation management, authentication, discovery, and
// operational endpoints.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haasonsaas/parley/internal/agent"
	"github.com/haasonsaas/parley/internal/auth"
	"github.com/haasonsaas/parley/internal/config"
	"github.com/haasonsaas/parley/internal/observability"
	"github.com/haasonsaas/parley/internal/sessions"
	"github.com/haasonsaas/parley/internal/titles"
)

// Server is the HTTP front end of the backend.
type Server struct {
	cfg          *config.Config
	logger       *observability.Logger
	metrics      *observability.Metrics
	orchestrator *agent.Orchestrator
	factory      *agent.Factory
	registry     *agent.ToolRegistry
	store        sessions.Store
	authSvc      *auth.Service
	renamer      *titles.Renamer
	gatherer     prometheus.Gatherer
	version      string

	httpServer *http.Server
}

// Options carries the collaborators the server routes requests to.
type Options struct {
	Config       *config.Config
	Logger       *observability.Logger
	Metrics      *observability.Metrics
	Orchestrator *agent.Orchestrator
	Factory      *agent.Factory
	Registry     *agent.ToolRegistry
	Store        sessions.Store
	Auth         *auth.Service
	Renamer      *titles.Renamer
	Gatherer     prometheus.Gatherer
	Version      string
}

// NewServer builds the HTTP server. It does not start listening.
func NewServer(opts Options) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &Server{
		cfg:          opts.Config,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		orchestrator: opts.Orchestrator,
		factory:      opts.Factory,
		registry:     opts.Registry,
		store:        opts.Store,
		authSvc:      opts.Auth,
		renamer:      opts.Renamer,
		gatherer:     opts.Gatherer,
		version:      opts.Version,
	}
}

// Routes assembles the full handler tree.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /v1/auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /v1/auth/logout", s.handleLogout)

	authed := auth.Middleware(s.authSvc, s.logger)

	mux.Handle("POST /v1/auth/logout-all", authed(http.HandlerFunc(s.handleLogoutAll)))
	mux.Handle("GET /v1/auth/me", authed(http.HandlerFunc(s.handleMe)))

	mux.Handle("POST /v1/chat/send_message", authed(http.HandlerFunc(s.handleSendMessage)))
	mux.Handle("GET /v1/chat", authed(http.HandlerFunc(s.handleListConversations)))
	mux.Handle("DELETE /v1/chat", authed(http.HandlerFunc(s.handleDeleteAllConversations)))
	mux.Handle("GET /v1/chat/{session_id}", authed(http.HandlerFunc(s.handleGetConversation)))
	mux.Handle("DELETE /v1/chat/{session_id}", authed(http.HandlerFunc(s.handleDeleteConversation)))
	mux.Handle("POST /v1/chat/{session_id}/archive", authed(http.HandlerFunc(s.handleArchiveConversation)))
	mux.Handle("POST /v1/chat/{session_id}/star", authed(http.HandlerFunc(s.handleStarConversation)))
	mux.Handle("PATCH /v1/chat/{session_id}/title", authed(http.HandlerFunc(s.handleUpdateTitle)))

	mux.Handle("GET /v1/agents", authed(http.HandlerFunc(s.handleListAgents)))
	mux.Handle("GET /v1/tools", authed(http.HandlerFunc(s.handleListTools)))

	return s.withRequestID(s.withMetrics(mux))
}

// Start begins serving and blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.HTTPPort)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info(context.Background(), "http server listening", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
