// Package server exposes plan execution, the script sandbox, and project
// management over an HTTP JSON API.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/planwright/planwright/internal/executor"
	"github.com/planwright/planwright/internal/plan"
	"github.com/planwright/planwright/internal/project"
	"github.com/planwright/planwright/internal/sandbox"
	"github.com/planwright/planwright/internal/tasks"
)

// pausedRun is a plan execution suspended at a review gate, waiting
// for a decision through the resume endpoint.
type pausedRun struct {
	plan   *plan.Plan
	report *executor.Report
	opts   executor.RunOptions
	taskID string
}

// Server is the HTTP API server.
type Server struct {
	addr     string
	router   *mux.Router
	server   *http.Server
	logger   *zap.Logger
	runner   *sandbox.Runner
	executor *executor.Executor
	projects *project.Service
	tasks    *tasks.Manager

	mu     sync.Mutex
	paused map[string]*pausedRun
}

// NewServer wires the API around the given components.
func NewServer(addr string, runner *sandbox.Runner, exec *executor.Executor, projects *project.Service, taskMgr *tasks.Manager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		addr:     addr,
		router:   mux.NewRouter(),
		logger:   logger,
		runner:   runner,
		executor: exec,
		projects: projects,
		tasks:    taskMgr,
		paused:   map[string]*pausedRun{},
	}
	s.setupRoutes()
	return s
}

// Handler returns the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info("starting HTTP server", zap.String("addr", s.addr))
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api.HandleFunc("/scripts/execute", s.handleExecuteScript).Methods(http.MethodPost)
	api.HandleFunc("/plans/execute", s.handleExecutePlan).Methods(http.MethodPost)
	api.HandleFunc("/plans/validate", s.handleValidatePlan).Methods(http.MethodPost)
	api.HandleFunc("/plans/{run_id}/resume", s.handleResumePlan).Methods(http.MethodPost)

	api.HandleFunc("/projects", s.handleInitiateProject).Methods(http.MethodPost)
	api.HandleFunc("/projects/{name}/files", s.handleGenerateFile).Methods(http.MethodPost)
	api.HandleFunc("/projects/{name}/coding-plan", s.handleExecuteCodingPlan).Methods(http.MethodPost)

	api.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", s.handleGetTask).Methods(http.MethodGet)
	api.HandleFunc("/notifications", s.handleListNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}/read", s.handleMarkNotificationRead).Methods(http.MethodPost)

	s.router.Use(s.logRequests)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}
