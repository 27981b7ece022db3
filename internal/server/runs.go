package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lens-io/lens/pkg/core"
)

type createRunRequest struct {
	NodeID       string         `json:"node_id,omitempty"`
	RunID        string         `json:"run_id"`
	PipelineName string         `json:"pipeline_name"`
	Status       string         `json:"status,omitempty"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	GitSHA       string         `json:"git_sha,omitempty"`
	GitBranch    string         `json:"git_branch,omitempty"`
	Environment  string         `json:"environment,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	TriggeredBy  string         `json:"triggered_by,omitempty"`
	Executor     string         `json:"executor,omitempty"`
}

type updateRunRequest struct {
	Status       *string        `json:"status,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Metrics      map[string]any `json:"metrics,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	run := &core.Run{
		NodeID:       req.NodeID,
		RunID:        req.RunID,
		PipelineName: req.PipelineName,
		Status:       core.RunStatus(req.Status),
		GitSHA:       req.GitSHA,
		GitBranch:    req.GitBranch,
		Environment:  req.Environment,
		Parameters:   req.Parameters,
		TriggeredBy:  req.TriggeredBy,
		Executor:     req.Executor,
	}
	if req.StartedAt != nil {
		run.StartedAt = *req.StartedAt
	}
	if err := s.store.CreateRun(r.Context(), run); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleUpdateRun(w http.ResponseWriter, r *http.Request) {
	var req updateRunRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	upd := core.RunUpdate{
		CompletedAt:  req.CompletedAt,
		Metrics:      req.Metrics,
		ErrorMessage: req.ErrorMessage,
	}
	if req.Status != nil {
		st := core.RunStatus(*req.Status)
		upd.Status = &st
	}

	run, err := s.store.UpdateRun(r.Context(), chi.URLParam(r, "runID"), upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
