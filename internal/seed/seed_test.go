package seed

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lens-io/lens/internal/graph"
	"github.com/lens-io/lens/internal/store"
	"github.com/lens-io/lens/pkg/core"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Config{Dialect: store.DialectSQLite, DSN: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadAndApply(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f, err := Load(filepath.Join("testdata", "lineage.yaml"))
	require.NoError(t, err)

	nodes, edges, runs, err := Apply(ctx, f, s, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, nodes)
	assert.Equal(t, 3, edges)
	assert.Equal(t, 1, runs)

	// The seeded graph is traversable end to end.
	raw, err := s.GetNodeByQualifiedName(ctx, "warehouse.raw.orders", false)
	require.NoError(t, err)

	tr := graph.NewTraverser(s, nil)
	res, err := tr.Traverse(ctx, graph.Request{
		SeedID:    raw.ID,
		Direction: core.DirectionDownstream,
		MaxDepth:  5,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.NodeCount)
	assert.Equal(t, 3, res.EdgeCount)

	// Column lineage landed on the first hop.
	edgesOut, err := s.EdgesIncident(ctx, []string{raw.ID}, core.DirectionDownstream)
	require.NoError(t, err)
	require.Len(t, edgesOut, 1)
	cols, err := s.GetColumnLineage(ctx, edgesOut[0].ID)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "amount", cols[0].TargetColumn)

	run, err := s.GetRun(ctx, "seed-run-1")
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusSuccess, run.Status)
}

func TestParseRejectsMissingQualifiedName(t *testing.T) {
	_, err := Parse([]byte(`
nodes:
  - type: source_table
    name: orphan
`))
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestApplyUnknownEdgeReference(t *testing.T) {
	s := newTestStore(t)

	f, err := Parse([]byte(`
nodes:
  - type: source_table
    name: a
    qualified_name: db.a
edges:
  - source: db.a
    target: db.missing
    type: feeds
`))
	require.NoError(t, err)

	_, _, _, err = Apply(context.Background(), f, s, nil)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
