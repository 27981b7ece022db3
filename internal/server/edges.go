package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lens-io/lens/pkg/core"
)

type createEdgeRequest struct {
	SourceID  string         `json:"source_id"`
	TargetID  string         `json:"target_id"`
	Type      string         `json:"edge_type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	ValidFrom *time.Time     `json:"valid_from,omitempty"`
	ValidTo   *time.Time     `json:"valid_to,omitempty"`
	CreatedBy string         `json:"created_by,omitempty"`
}

type closeEdgeRequest struct {
	ValidTo *time.Time `json:"valid_to,omitempty"`
}

type createColumnLineageRequest struct {
	SourceColumn       string         `json:"source_column"`
	TargetColumn       string         `json:"target_column"`
	Transformation     string         `json:"transformation,omitempty"`
	TransformationType string         `json:"transformation_type,omitempty"`
	Confidence         *float64       `json:"confidence,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

func (s *Server) handleCreateEdge(w http.ResponseWriter, r *http.Request) {
	var req createEdgeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	e := &core.Edge{
		SourceID:  req.SourceID,
		TargetID:  req.TargetID,
		Type:      core.EdgeType(req.Type),
		Metadata:  req.Metadata,
		ValidTo:   req.ValidTo,
		CreatedBy: req.CreatedBy,
	}
	if req.ValidFrom != nil {
		e.ValidFrom = *req.ValidFrom
	}
	if err := s.store.CreateEdge(r.Context(), e); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetEdge(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.GetEdge(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleCloseEdge ends an edge's validity interval. An omitted valid_to
// closes the edge as of now.
func (s *Server) handleCloseEdge(w http.ResponseWriter, r *http.Request) {
	var req closeEdgeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	validTo := time.Now().UTC()
	if req.ValidTo != nil {
		validTo = *req.ValidTo
	}

	id := chi.URLParam(r, "id")
	if err := s.store.CloseEdge(r.Context(), id, validTo); err != nil {
		writeError(w, err)
		return
	}
	e, err := s.store.GetEdge(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCreateColumnLineage(w http.ResponseWriter, r *http.Request) {
	var req createColumnLineageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	cl := &core.ColumnLineage{
		EdgeID:             chi.URLParam(r, "id"),
		SourceColumn:       req.SourceColumn,
		TargetColumn:       req.TargetColumn,
		Transformation:     req.Transformation,
		TransformationType: req.TransformationType,
		Confidence:         req.Confidence,
		Metadata:           req.Metadata,
	}
	if err := s.store.CreateColumnLineage(r.Context(), cl); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cl)
}

func (s *Server) handleGetColumnLineage(w http.ResponseWriter, r *http.Request) {
	edgeID := chi.URLParam(r, "id")
	if _, err := s.store.GetEdge(r.Context(), edgeID); err != nil {
		writeError(w, err)
		return
	}
	cols, err := s.store.GetColumnLineage(r.Context(), edgeID)
	if err != nil {
		writeError(w, err)
		return
	}
	if cols == nil {
		cols = []*core.ColumnLineage{}
	}
	writeJSON(w, http.StatusOK, cols)
}
