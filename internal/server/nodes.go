package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lens-io/lens/pkg/core"
)

type createNodeRequest struct {
	Type             string         `json:"type"`
	Name             string         `json:"name"`
	QualifiedName    string         `json:"qualified_name,omitempty"`
	Description      string         `json:"description,omitempty"`
	DocumentationURL string         `json:"documentation_url,omitempty"`
	System           string         `json:"system,omitempty"`
	Platform         string         `json:"platform,omitempty"`
	Location         string         `json:"location,omitempty"`
	Classification   string         `json:"classification,omitempty"`
	Tags             map[string]any `json:"tags,omitempty"`
	Attributes       map[string]any `json:"attributes,omitempty"`
}

type updateNodeRequest struct {
	Name             *string        `json:"name,omitempty"`
	Description      *string        `json:"description,omitempty"`
	DocumentationURL *string        `json:"documentation_url,omitempty"`
	Classification   *string        `json:"classification,omitempty"`
	Tags             map[string]any `json:"tags,omitempty"`
	Attributes       map[string]any `json:"attributes,omitempty"`
}

func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	n := &core.Node{
		Type:             core.NodeType(req.Type),
		Name:             req.Name,
		QualifiedName:    req.QualifiedName,
		Description:      req.Description,
		DocumentationURL: req.DocumentationURL,
		System:           req.System,
		Platform:         req.Platform,
		Location:         req.Location,
		Classification:   core.DataClassification(req.Classification),
		Tags:             req.Tags,
		Attributes:       req.Attributes,
	}
	if err := s.store.CreateNode(r.Context(), n); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	includeDeleted := r.URL.Query().Get("include_deleted") == "true"
	n, err := s.store.GetNode(r.Context(), chi.URLParam(r, "id"), includeDeleted)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// handleListNodes lists nodes filtered by type, or resolves a single node by
// qualified name when the qualified_name query parameter is present.
func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includeDeleted := q.Get("include_deleted") == "true"

	if qn := q.Get("qualified_name"); qn != "" {
		n, err := s.store.GetNodeByQualifiedName(r.Context(), qn, includeDeleted)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, []*core.Node{n})
		return
	}

	typ := q.Get("type")
	if typ == "" {
		writeError(w, fmt.Errorf("%w: type or qualified_name query parameter is required", core.ErrInvalidArgument))
		return
	}
	limit, err := intParam(q.Get("limit"), 100)
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		writeError(w, err)
		return
	}

	nodes, err := s.store.ListNodesByType(r.Context(), core.NodeType(typ), limit, offset, includeDeleted)
	if err != nil {
		writeError(w, err)
		return
	}
	if nodes == nil {
		nodes = []*core.Node{}
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	var req updateNodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	upd := core.NodeUpdate{
		Name:             req.Name,
		Description:      req.Description,
		DocumentationURL: req.DocumentationURL,
		Tags:             req.Tags,
		Attributes:       req.Attributes,
	}
	if req.Classification != nil {
		c := core.DataClassification(*req.Classification)
		upd.Classification = &c
	}

	n, err := s.store.UpdateNode(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := s.store.SoftDeleteNode(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: invalid numeric parameter %q", core.ErrInvalidArgument, s)
	}
	return v, nil
}
