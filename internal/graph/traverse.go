package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lens-io/lens/pkg/core"
)

// Depth limits for traversal requests.
const (
	DefaultMaxDepth = 3
	DepthCeiling    = 10
)

// Request describes a single traversal query.
type Request struct {
	// SeedID is the node the traversal starts from.
	SeedID string

	// Direction defaults to both.
	Direction core.Direction

	// MaxDepth bounds the BFS; zero means DefaultMaxDepth. Values outside
	// [1, DepthCeiling] are rejected before any store access.
	MaxDepth int

	// AsOf is the instant the graph is evaluated at; zero means now.
	AsOf time.Time

	// EdgeTypes, when non-empty, restricts which edges qualify for
	// expansion at every hop.
	EdgeTypes []core.EdgeType

	// IncludeDeleted keeps soft-deleted nodes in the hydrated node set.
	IncludeDeleted bool
}

// Traverser runs bounded-depth traversals against an edge store. It holds no
// state across calls and is safe for concurrent use.
type Traverser struct {
	store  core.EdgeReader
	logger *slog.Logger
}

// NewTraverser creates a traversal engine over the given store.
func NewTraverser(store core.EdgeReader, logger *slog.Logger) *Traverser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Traverser{store: store, logger: logger}
}

// Traverse computes the induced subgraph reachable from the seed within
// MaxDepth hops, under the temporal predicate and the optional edge-type
// filter. The seed is always part of the result at depth 0; an unknown seed
// yields ErrNotFound rather than a silently empty graph.
func (t *Traverser) Traverse(ctx context.Context, req Request) (*Result, error) {
	if req.Direction == "" {
		req.Direction = core.DirectionBoth
	}
	if _, err := core.ParseDirection(string(req.Direction)); err != nil {
		return nil, err
	}
	if req.MaxDepth == 0 {
		req.MaxDepth = DefaultMaxDepth
	}
	if req.MaxDepth < 1 || req.MaxDepth > DepthCeiling {
		return nil, fmt.Errorf("%w: depth %d out of range [1, %d]", core.ErrInvalidArgument, req.MaxDepth, DepthCeiling)
	}
	if req.AsOf.IsZero() {
		req.AsOf = time.Now().UTC()
	}

	var (
		edges  map[string]*core.Edge
		depths map[string]int
		err    error
	)
	if req.Direction == core.DirectionBoth {
		upEdges, upDepths, err := t.walk(ctx, req, core.DirectionUpstream)
		if err != nil {
			return nil, err
		}
		downEdges, downDepths, err := t.walk(ctx, req, core.DirectionDownstream)
		if err != nil {
			return nil, err
		}
		edges, depths = mergeBidirectional(upEdges, upDepths, downEdges, downDepths)
	} else {
		edges, depths, err = t.walk(ctx, req, req.Direction)
		if err != nil {
			return nil, err
		}
	}

	t.logger.Debug("traversal expanded",
		slog.String("seed", req.SeedID),
		slog.String("direction", string(req.Direction)),
		slog.Int("edges", len(edges)),
		slog.Int("nodes", len(depths)))

	return t.assemble(ctx, req, edges, depths)
}

// walk performs the BFS for a single direction. It returns the visited edges
// keyed by id and the depth at which each node was first reached (shortest
// path from the seed). A node is never expanded twice, which bounds the walk
// to O(visited edges) and guarantees termination on cyclic graphs.
func (t *Traverser) walk(ctx context.Context, req Request, dir core.Direction) (map[string]*core.Edge, map[string]int, error) {
	depths := map[string]int{req.SeedID: 0}
	edges := make(map[string]*core.Edge)
	frontier := []string{req.SeedID}

	var filter map[core.EdgeType]bool
	if len(req.EdgeTypes) > 0 {
		filter = make(map[core.EdgeType]bool, len(req.EdgeTypes))
		for _, et := range req.EdgeTypes {
			filter[et] = true
		}
	}

	for depth := 1; depth <= req.MaxDepth && len(frontier) > 0; depth++ {
		// Cancellation point between BFS layers. The traversal never
		// mutates the store, so aborting midway is always safe.
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		incident, err := t.store.EdgesIncident(ctx, frontier, dir)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: loading edges at depth %d: %v", core.ErrUnavailable, depth, err)
		}

		var next []string
		for _, e := range incident {
			if !ActiveAt(e, req.AsOf) {
				continue
			}
			if filter != nil && !filter[e.Type] {
				continue
			}
			edges[e.ID] = e

			far := e.SourceID
			if dir == core.DirectionDownstream {
				far = e.TargetID
			}
			if _, seen := depths[far]; !seen {
				depths[far] = depth
				next = append(next, far)
			}
		}
		frontier = next
	}

	return edges, depths, nil
}

// mergeBidirectional unions the node and edge sets of independent upstream and
// downstream walks. Edges are merged by id. For a node discovered by both
// sides the upstream copy's depth wins, which keeps the merge deterministic.
func mergeBidirectional(upEdges map[string]*core.Edge, upDepths map[string]int, downEdges map[string]*core.Edge, downDepths map[string]int) (map[string]*core.Edge, map[string]int) {
	edges := make(map[string]*core.Edge, len(upEdges)+len(downEdges))
	for id, e := range downEdges {
		edges[id] = e
	}
	for id, e := range upEdges {
		edges[id] = e
	}

	depths := make(map[string]int, len(upDepths)+len(downDepths))
	for id, d := range downDepths {
		depths[id] = d
	}
	for id, d := range upDepths {
		depths[id] = d
	}
	return edges, depths
}
