package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Kajalmeshram11/workflow-engine/internal/diagram"
	"github.com/Kajalmeshram11/workflow-engine/internal/engine"
	"github.com/Kajalmeshram11/workflow-engine/internal/store"
	"github.com/Kajalmeshram11/workflow-engine/pkg/schema"
)

// handleCreateGraph validates and stores a graph definition.
func (s *Server) handleCreateGraph(w http.ResponseWriter, r *http.Request) {
	var def schema.GraphDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeBadRequest(w, "invalid graph definition: "+err.Error())
		return
	}

	g, result, err := s.deps.Service.CreateGraph(r.Context(), &def)
	if err != nil {
		if result != nil && !result.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "graph validation failed",
				"code":   schema.ErrCodeValidation,
				"errors": result.Errors,
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"graph_id": g.ID,
		"name":     g.Name,
		"nodes":    len(g.Definition.Nodes),
		"edges":    len(g.Definition.Edges),
		"warnings": result.Warnings,
	})
}

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	graphs, err := s.deps.Service.ListGraphs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"graphs": graphs, "count": len(graphs)})
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.deps.Service.GetGraph(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGraph(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Service.DeleteGraph(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// handleGraphDiagram renders a stored graph as Mermaid flowchart text.
func (s *Server) handleGraphDiagram(w http.ResponseWriter, r *http.Request) {
	g, err := s.deps.Service.GetGraph(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(diagram.RenderMermaid(&g.Definition)))
}

// runRequest is the body of POST /graph/run.
type runRequest struct {
	GraphID       string         `json:"graph_id"`
	InitialState  map[string]any `json:"initial_state"`
	MaxIterations int            `json:"max_iterations"`
}

// handleRunGraph executes a stored graph synchronously and returns the
// full result including the execution log.
func (s *Server) handleRunGraph(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid run request: "+err.Error())
		return
	}
	if req.GraphID == "" {
		writeBadRequest(w, "graph_id is required")
		return
	}

	maxIter := req.MaxIterations
	if maxIter <= 0 {
		maxIter = s.deps.MaxIterations
	}
	run, result, err := s.deps.Service.RunGraph(r.Context(), req.GraphID, req.InitialState,
		engine.Options{MaxIterations: maxIter})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":           run.ID,
		"graph_id":         run.GraphID,
		"status":           run.Status,
		"halt_reason":      run.HaltReason,
		"final_state":      json.RawMessage(run.FinalState),
		"execution_log":    run.Log,
		"condition_errors": result.ConditionErrors,
	})
}

func (s *Server) handleRunState(w http.ResponseWriter, r *http.Request) {
	run, err := s.deps.Service.GetRun(r.Context(), r.PathValue("run_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{
		GraphID: r.URL.Query().Get("graph_id"),
		Limit:   queryInt(r, "limit", 50),
	}
	runs, err := s.deps.Service.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	infos := s.deps.Service.Registry().List()
	writeJSON(w, http.StatusOK, map[string]any{"tools": infos, "count": len(infos)})
}

// scheduleRequest is the body of POST /schedules.
type scheduleRequest struct {
	GraphID      string         `json:"graph_id"`
	CronSpec     string         `json:"cron_spec"`
	InitialState map[string]any `json:"initial_state"`
	Enabled      *bool          `json:"enabled"`
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid schedule request: "+err.Error())
		return
	}
	if req.GraphID == "" || req.CronSpec == "" {
		writeBadRequest(w, "graph_id and cron_spec are required")
		return
	}

	// Reject schedules for graphs that don't exist.
	if _, err := s.deps.Service.GetGraph(r.Context(), req.GraphID); err != nil {
		writeError(w, err)
		return
	}

	now := time.Now().UTC()
	next, err := s.deps.Scheduler.ParseSpec(req.CronSpec, now)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var initial json.RawMessage
	if req.InitialState != nil {
		initial, _ = json.Marshal(req.InitialState)
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	job := &store.ScheduledJob{
		ID:           uuid.NewString(),
		GraphID:      req.GraphID,
		CronSpec:     req.CronSpec,
		InitialState: initial,
		Enabled:      enabled,
		NextRunAt:    &next,
		CreatedAt:    now,
	}
	if err := s.deps.Store.CreateScheduledJob(r.Context(), job); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.deps.Store.ListScheduledJobs(r.Context(), store.ScheduledJobFilter{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedules": jobs, "count": len(jobs)})
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.DeleteScheduledJob(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	graphs, runs, err := s.deps.Service.Counts(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"graphs_count": graphs,
		"runs_count":   runs,
	})
}
