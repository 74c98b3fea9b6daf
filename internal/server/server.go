package server

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/Kajalmeshram11/workflow-engine/internal/engine"
	"github.com/Kajalmeshram11/workflow-engine/internal/scheduler"
	"github.com/Kajalmeshram11/workflow-engine/internal/store"
	"github.com/Kajalmeshram11/workflow-engine/internal/streaming"
)

// Deps holds the dependencies for the API server.
type Deps struct {
	Service   *engine.Service
	Store     store.Store
	Hub       streaming.EventHub
	Scheduler *scheduler.Scheduler
	Pool      *engine.RunPool
	Logger    *slog.Logger

	// MaxIterations is the iteration cap applied to runs that don't set
	// their own. Zero falls back to the engine default.
	MaxIterations int
}

// Server exposes the workflow engine over HTTP.
type Server struct {
	deps Deps
}

// NewServer creates a new API server.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Server{deps: deps}
}

// Handler returns the HTTP handler for all API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Graph lifecycle.
	mux.HandleFunc("POST /graph/create", s.handleCreateGraph)
	mux.HandleFunc("GET /graphs", s.handleListGraphs)
	mux.HandleFunc("GET /graph/{id}", s.handleGetGraph)
	mux.HandleFunc("DELETE /graph/{id}", s.handleDeleteGraph)
	mux.HandleFunc("GET /graph/{id}/diagram", s.handleGraphDiagram)

	// Execution.
	mux.HandleFunc("POST /graph/run", s.handleRunGraph)
	mux.HandleFunc("GET /graph/state/{run_id}", s.handleRunState)
	mux.HandleFunc("GET /runs", s.handleListRuns)

	// Streaming.
	mux.HandleFunc("POST /graph/run/{id}/stream", s.handleRunStream)
	mux.HandleFunc("GET /sse/events", s.handleSSEGlobal)

	// Tools and schedules.
	mux.HandleFunc("GET /tools", s.handleListTools)
	mux.HandleFunc("POST /schedules", s.handleCreateSchedule)
	mux.HandleFunc("GET /schedules", s.handleListSchedules)
	mux.HandleFunc("DELETE /schedules/{id}", s.handleDeleteSchedule)

	// Health.
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}
