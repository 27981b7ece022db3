package store

import (
	"context"
	"fmt"

	"github.com/lens-io/lens/pkg/core"
)

// EdgesIncident returns every edge touching the given frontier in one
// direction, regardless of validity interval. The traversal engine applies
// as-of filtering; returning closed edges here is what makes historical
// queries possible.
func (s *Store) EdgesIncident(ctx context.Context, nodeIDs []string, dir core.Direction) ([]*core.Edge, error) {
	if len(nodeIDs) == 0 {
		return nil, nil
	}

	var endpoint string
	switch dir {
	case core.DirectionUpstream:
		endpoint = "target_id"
	case core.DirectionDownstream:
		endpoint = "source_id"
	default:
		return nil, fmt.Errorf("%w: incident edge direction %q", core.ErrInvalidArgument, dir)
	}

	args := make([]any, len(nodeIDs))
	for i, id := range nodeIDs {
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT %s FROM lineage_edges WHERE %s IN (%s)`,
		edgeColumns, endpoint, placeholders(len(nodeIDs)))
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load incident edges: %w", err)
	}
	defer rows.Close()

	var edges []*core.Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load incident edges: %w", err)
	}
	return edges, nil
}

// NodesByID hydrates nodes in one batched query. Missing ids are absent from
// the result rather than errors; the caller decides what absence means.
func (s *Store) NodesByID(ctx context.Context, ids []string, includeDeleted bool) ([]*core.Node, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT %s FROM lineage_nodes WHERE id IN (%s)`,
		nodeColumns, placeholders(len(ids)))
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*core.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}
	return nodes, nil
}
