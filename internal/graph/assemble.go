package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/lens-io/lens/pkg/core"
)

// GraphNode is a node in a traversal result, annotated with its BFS depth.
type GraphNode struct {
	ID             string                  `json:"id"`
	Type           core.NodeType           `json:"type"`
	Name           string                  `json:"name"`
	QualifiedName  string                  `json:"qualified_name,omitempty"`
	Classification core.DataClassification `json:"classification,omitempty"`
	Attributes     map[string]any          `json:"attributes,omitempty"`
	Depth          int                     `json:"depth"`
}

// GraphEdge is an edge in a traversal result, stripped of temporal
// bookkeeping that only the engine needs.
type GraphEdge struct {
	ID       string         `json:"id"`
	SourceID string         `json:"source_id"`
	TargetID string         `json:"target_id"`
	Type     core.EdgeType  `json:"edge_type"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Result is the deduplicated projection of a traversal. Nodes are ordered by
// (depth, id) and edges by id, so identical queries produce identical output.
type Result struct {
	Nodes     []GraphNode `json:"nodes"`
	Edges     []GraphEdge `json:"edges"`
	NodeCount int         `json:"node_count"`
	EdgeCount int         `json:"edge_count"`
}

// assemble hydrates the touched node ids in one batched lookup and packages
// the final result. Soft-deleted nodes drop out of the node list unless the
// request asked for them, but edges referencing a filtered node are kept:
// edge visibility is governed purely by temporal validity, node visibility
// additionally by soft-delete state.
func (t *Traverser) assemble(ctx context.Context, req Request, edges map[string]*core.Edge, depths map[string]int) (*Result, error) {
	touched := map[string]bool{req.SeedID: true}
	for _, e := range edges {
		touched[e.SourceID] = true
		touched[e.TargetID] = true
	}
	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Hydrate including soft-deleted rows so a deleted seed can be told
	// apart from a missing one; the deletion filter is applied below.
	records, err := t.store.NodesByID(ctx, ids, true)
	if err != nil {
		return nil, fmt.Errorf("%w: hydrating %d nodes: %v", core.ErrUnavailable, len(ids), err)
	}
	byID := make(map[string]*core.Node, len(records))
	for _, n := range records {
		byID[n.ID] = n
	}
	if _, ok := byID[req.SeedID]; !ok {
		return nil, fmt.Errorf("%w: node %s", core.ErrNotFound, req.SeedID)
	}

	res := &Result{
		Nodes: make([]GraphNode, 0, len(ids)),
		Edges: make([]GraphEdge, 0, len(edges)),
	}
	for _, id := range ids {
		n, ok := byID[id]
		if !ok {
			continue
		}
		if n.Deleted() && !req.IncludeDeleted {
			continue
		}
		res.Nodes = append(res.Nodes, GraphNode{
			ID:             n.ID,
			Type:           n.Type,
			Name:           n.Name,
			QualifiedName:  n.QualifiedName,
			Classification: n.Classification,
			Attributes:     n.Attributes,
			Depth:          depths[id],
		})
	}
	sort.Slice(res.Nodes, func(i, j int) bool {
		if res.Nodes[i].Depth != res.Nodes[j].Depth {
			return res.Nodes[i].Depth < res.Nodes[j].Depth
		}
		return res.Nodes[i].ID < res.Nodes[j].ID
	})

	for _, e := range edges {
		res.Edges = append(res.Edges, GraphEdge{
			ID:       e.ID,
			SourceID: e.SourceID,
			TargetID: e.TargetID,
			Type:     e.Type,
			Metadata: e.Metadata,
		})
	}
	sort.Slice(res.Edges, func(i, j int) bool { return res.Edges[i].ID < res.Edges[j].ID })

	res.NodeCount = len(res.Nodes)
	res.EdgeCount = len(res.Edges)
	return res, nil
}
