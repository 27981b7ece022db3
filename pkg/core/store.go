package core

import (
	"context"
	"fmt"
	"time"
)

// Direction selects which way a traversal walks edges.
type Direction string

// Traversal directions. Upstream walks toward edge sources (what feeds this
// node); downstream walks toward edge targets (what depends on this node).
const (
	DirectionUpstream   Direction = "upstream"
	DirectionDownstream Direction = "downstream"
	DirectionBoth       Direction = "both"
)

// ParseDirection validates a direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionUpstream, DirectionDownstream, DirectionBoth:
		return Direction(s), nil
	}
	return "", fmt.Errorf("%w: direction %q (want upstream, downstream, or both)", ErrInvalidArgument, s)
}

// EdgeReader is the minimum store surface the traversal engine consumes.
// Implementations return edges unfiltered by time; temporal filtering is the
// engine's job so that as-of semantics live in exactly one place.
type EdgeReader interface {
	// EdgesIncident returns every edge touching any of the given nodes in
	// the given direction: upstream means edges whose target is in nodeIDs,
	// downstream means edges whose source is in nodeIDs. The direction must
	// be upstream or downstream; the engine decomposes "both" itself.
	EdgesIncident(ctx context.Context, nodeIDs []string, dir Direction) ([]*Edge, error)

	// NodesByID returns the node records for the given ids. Missing ids are
	// simply absent from the result. Soft-deleted nodes are included only
	// when includeDeleted is set.
	NodesByID(ctx context.Context, ids []string, includeDeleted bool) ([]*Node, error)
}

// GraphStore is the full persistence interface for the lineage graph.
type GraphStore interface {
	EdgeReader

	// Node operations. Nodes are created once, updated in place, and
	// soft-deleted by stamping DeletedAt.
	CreateNode(ctx context.Context, n *Node) error
	GetNode(ctx context.Context, id string, includeDeleted bool) (*Node, error)
	GetNodeByQualifiedName(ctx context.Context, qualifiedName string, includeDeleted bool) (*Node, error)
	UpdateNode(ctx context.Context, id string, upd NodeUpdate) (*Node, error)
	SoftDeleteNode(ctx context.Context, id string) error
	ListNodesByType(ctx context.Context, t NodeType, limit, offset int, includeDeleted bool) ([]*Node, error)

	// Edge operations. CreateEdge enforces the at-most-one-active-edge
	// invariant per (source, target, edge_type) with an atomic
	// check-and-insert and returns ErrConflict on violation.
	CreateEdge(ctx context.Context, e *Edge) error
	GetEdge(ctx context.Context, id string) (*Edge, error)
	CloseEdge(ctx context.Context, id string, validTo time.Time) error

	// Column-level lineage attached to an edge.
	CreateColumnLineage(ctx context.Context, cl *ColumnLineage) error
	GetColumnLineage(ctx context.Context, edgeID string) ([]*ColumnLineage, error)

	// Run operations, keyed by the external run id.
	CreateRun(ctx context.Context, r *Run) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	UpdateRun(ctx context.Context, runID string, upd RunUpdate) (*Run, error)

	Close() error
}
