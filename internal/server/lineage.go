package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lens-io/lens/internal/graph"
	"github.com/lens-io/lens/pkg/core"
)

// handleLineage runs a bounded traversal from the node in the path.
//
// Query parameters:
//
//	direction        upstream | downstream | both (default both)
//	depth            1..10 (default 3)
//	as_of            RFC 3339 timestamp (default now)
//	edge_types       comma-separated edge type filter
//	include_deleted  true to keep soft-deleted nodes in the result
func (s *Server) handleLineage(w http.ResponseWriter, r *http.Request) {
	req, err := lineageRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.traverser.Traverse(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func lineageRequest(r *http.Request) (graph.Request, error) {
	q := r.URL.Query()
	req := graph.Request{
		SeedID:         chi.URLParam(r, "id"),
		IncludeDeleted: q.Get("include_deleted") == "true",
	}

	if dir := q.Get("direction"); dir != "" {
		d, err := core.ParseDirection(dir)
		if err != nil {
			return graph.Request{}, err
		}
		req.Direction = d
	}

	if depth := q.Get("depth"); depth != "" {
		v, err := strconv.Atoi(depth)
		if err != nil {
			return graph.Request{}, fmt.Errorf("%w: invalid depth %q", core.ErrInvalidArgument, depth)
		}
		req.MaxDepth = v
	}

	if asOf := q.Get("as_of"); asOf != "" {
		t, err := time.Parse(time.RFC3339, asOf)
		if err != nil {
			return graph.Request{}, fmt.Errorf("%w: invalid as_of %q (want RFC 3339)", core.ErrInvalidArgument, asOf)
		}
		req.AsOf = t.UTC()
	}

	if types := q.Get("edge_types"); types != "" {
		for _, t := range strings.Split(types, ",") {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			req.EdgeTypes = append(req.EdgeTypes, core.EdgeType(t))
		}
	}

	return req, nil
}
