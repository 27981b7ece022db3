package graph

import (
	"context"
	"time"

	"github.com/lens-io/lens/pkg/core"
)

// memStore is an in-memory core.EdgeReader for engine tests.
type memStore struct {
	nodes map[string]*core.Node
	edges []*core.Edge

	incidentCalls int
	edgesErr      error
	nodesErr      error
}

func newMemStore() *memStore {
	return &memStore{nodes: make(map[string]*core.Node)}
}

func (m *memStore) addNode(id string) *core.Node {
	n := &core.Node{
		ID:   id,
		Type: core.NodeTypeSourceTable,
		Name: id,
	}
	m.nodes[id] = n
	return n
}

func (m *memStore) addDeletedNode(id string, deletedAt time.Time) *core.Node {
	n := m.addNode(id)
	n.DeletedAt = &deletedAt
	return n
}

func (m *memStore) addEdge(id, source, target string, et core.EdgeType, validFrom time.Time, validTo *time.Time) *core.Edge {
	e := &core.Edge{
		ID:        id,
		SourceID:  source,
		TargetID:  target,
		Type:      et,
		ValidFrom: validFrom,
		ValidTo:   validTo,
	}
	m.edges = append(m.edges, e)
	return e
}

func (m *memStore) EdgesIncident(_ context.Context, nodeIDs []string, dir core.Direction) ([]*core.Edge, error) {
	m.incidentCalls++
	if m.edgesErr != nil {
		return nil, m.edgesErr
	}
	frontier := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		frontier[id] = true
	}
	var out []*core.Edge
	for _, e := range m.edges {
		switch dir {
		case core.DirectionUpstream:
			if frontier[e.TargetID] {
				out = append(out, e)
			}
		case core.DirectionDownstream:
			if frontier[e.SourceID] {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (m *memStore) NodesByID(_ context.Context, ids []string, includeDeleted bool) ([]*core.Node, error) {
	if m.nodesErr != nil {
		return nil, m.nodesErr
	}
	var out []*core.Node
	for _, id := range ids {
		n, ok := m.nodes[id]
		if !ok {
			continue
		}
		if n.Deleted() && !includeDeleted {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// day returns a fixed base instant shifted by n days, for temporal tests.
func day(n int) time.Time {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, n)
}

func ptr[T any](v T) *T { return &v }
