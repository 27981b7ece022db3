package store

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lens-io/lens/pkg/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Dialect: DialectSQLite, DSN: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func mustNode(t *testing.T, s *Store, name, qualifiedName string) *core.Node {
	t.Helper()
	n := &core.Node{
		Type:          core.NodeTypeSourceTable,
		Name:          name,
		QualifiedName: qualifiedName,
	}
	require.NoError(t, s.CreateNode(context.Background(), n))
	return n
}

func mustEdge(t *testing.T, s *Store, source, target string, et core.EdgeType) *core.Edge {
	t.Helper()
	e := &core.Edge{SourceID: source, TargetID: target, Type: et}
	require.NoError(t, s.CreateEdge(context.Background(), e))
	return e
}

func TestNodeLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := &core.Node{
		Type:           core.NodeTypeSourceTable,
		Name:           "orders",
		QualifiedName:  "warehouse.public.orders",
		Classification: core.ClassificationInternal,
		Tags:           map[string]any{"team": "data-platform"},
	}
	require.NoError(t, s.CreateNode(ctx, n))
	require.NotEmpty(t, n.ID)

	got, err := s.GetNode(ctx, n.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "orders", got.Name)
	assert.Equal(t, "warehouse.public.orders", got.QualifiedName)
	assert.Equal(t, core.ClassificationInternal, got.Classification)
	assert.Equal(t, "data-platform", got.Tags["team"])

	byName, err := s.GetNodeByQualifiedName(ctx, "warehouse.public.orders", false)
	require.NoError(t, err)
	assert.Equal(t, n.ID, byName.ID)

	newName := "orders_v2"
	updated, err := s.UpdateNode(ctx, n.ID, core.NodeUpdate{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "orders_v2", updated.Name)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))

	require.NoError(t, s.SoftDeleteNode(ctx, n.ID))

	_, err = s.GetNode(ctx, n.ID, false)
	assert.ErrorIs(t, err, core.ErrNotFound)

	deleted, err := s.GetNode(ctx, n.ID, true)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted())

	// Deleting twice is not found: the live row is gone.
	assert.ErrorIs(t, s.SoftDeleteNode(ctx, n.ID), core.ErrNotFound)
}

func TestCreateNodeQualifiedNameConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustNode(t, s, "orders", "warehouse.public.orders")

	dup := &core.Node{
		Type:          core.NodeTypeSourceTable,
		Name:          "orders_copy",
		QualifiedName: "warehouse.public.orders",
	}
	assert.ErrorIs(t, s.CreateNode(ctx, dup), core.ErrConflict)
}

func TestQualifiedNameReusableAfterDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := mustNode(t, s, "orders", "warehouse.public.orders")
	require.NoError(t, s.SoftDeleteNode(ctx, first.ID))

	second := &core.Node{
		Type:          core.NodeTypeSourceTable,
		Name:          "orders",
		QualifiedName: "warehouse.public.orders",
	}
	require.NoError(t, s.CreateNode(ctx, second))
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateNodeValidation(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateNode(context.Background(), &core.Node{Type: core.NodeTypeSourceTable})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestListNodesByType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustNode(t, s, "a", "")
	mustNode(t, s, "b", "")
	dash := &core.Node{Type: core.NodeTypeDashboard, Name: "revenue"}
	require.NoError(t, s.CreateNode(ctx, dash))

	tables, err := s.ListNodesByType(ctx, core.NodeTypeSourceTable, 10, 0, false)
	require.NoError(t, err)
	assert.Len(t, tables, 2)

	dashboards, err := s.ListNodesByType(ctx, core.NodeTypeDashboard, 10, 0, false)
	require.NoError(t, err)
	require.Len(t, dashboards, 1)
	assert.Equal(t, "revenue", dashboards[0].Name)
}

func TestEdgeLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustNode(t, s, "a", "")
	b := mustNode(t, s, "b", "")

	e := mustEdge(t, s, a.ID, b.ID, core.EdgeTypeFeeds)
	require.NotEmpty(t, e.ID)
	require.False(t, e.ValidFrom.IsZero())

	got, err := s.GetEdge(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.SourceID)
	assert.Equal(t, b.ID, got.TargetID)
	assert.Nil(t, got.ValidTo)

	// A second active edge with the same key conflicts.
	dup := &core.Edge{SourceID: a.ID, TargetID: b.ID, Type: core.EdgeTypeFeeds}
	assert.ErrorIs(t, s.CreateEdge(ctx, dup), core.ErrConflict)

	// A different edge type between the same endpoints is fine.
	mustEdge(t, s, a.ID, b.ID, core.EdgeTypeDependsOn)

	closeAt := e.ValidFrom.Add(time.Hour)
	require.NoError(t, s.CloseEdge(ctx, e.ID, closeAt))

	closed, err := s.GetEdge(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.ValidTo)
	assert.True(t, closed.ValidTo.Equal(closeAt))

	assert.ErrorIs(t, s.CloseEdge(ctx, e.ID, closeAt.Add(time.Hour)), core.ErrConflict)

	// Once the old edge is closed its key is free again.
	mustEdge(t, s, a.ID, b.ID, core.EdgeTypeFeeds)
}

func TestCreateEdgeMissingEndpoint(t *testing.T) {
	s := newTestStore(t)
	a := mustNode(t, s, "a", "")

	err := s.CreateEdge(context.Background(), &core.Edge{
		SourceID: a.ID, TargetID: "nope", Type: core.EdgeTypeFeeds,
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreateEdgeInvalidInterval(t *testing.T) {
	s := newTestStore(t)
	a := mustNode(t, s, "a", "")
	b := mustNode(t, s, "b", "")

	from := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)
	err := s.CreateEdge(context.Background(), &core.Edge{
		SourceID: a.ID, TargetID: b.ID, Type: core.EdgeTypeFeeds,
		ValidFrom: from, ValidTo: &to,
	})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestEdgesIncident(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustNode(t, s, "a", "")
	b := mustNode(t, s, "b", "")
	c := mustNode(t, s, "c", "")
	ab := mustEdge(t, s, a.ID, b.ID, core.EdgeTypeFeeds)
	bc := mustEdge(t, s, b.ID, c.ID, core.EdgeTypeFeeds)

	down, err := s.EdgesIncident(ctx, []string{b.ID}, core.DirectionDownstream)
	require.NoError(t, err)
	require.Len(t, down, 1)
	assert.Equal(t, bc.ID, down[0].ID)

	up, err := s.EdgesIncident(ctx, []string{b.ID}, core.DirectionUpstream)
	require.NoError(t, err)
	require.Len(t, up, 1)
	assert.Equal(t, ab.ID, up[0].ID)

	// Closed edges still come back; as-of filtering is the engine's job.
	require.NoError(t, s.CloseEdge(ctx, ab.ID, ab.ValidFrom.Add(time.Hour)))
	up, err = s.EdgesIncident(ctx, []string{b.ID}, core.DirectionUpstream)
	require.NoError(t, err)
	assert.Len(t, up, 1)

	_, err = s.EdgesIncident(ctx, []string{b.ID}, core.DirectionBoth)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	none, err := s.EdgesIncident(ctx, nil, core.DirectionUpstream)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNodesByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustNode(t, s, "a", "")
	b := mustNode(t, s, "b", "")
	require.NoError(t, s.SoftDeleteNode(ctx, b.ID))

	live, err := s.NodesByID(ctx, []string{a.ID, b.ID, "missing"}, false)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, a.ID, live[0].ID)

	all, err := s.NodesByID(ctx, []string{a.ID, b.ID, "missing"}, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestColumnLineage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustNode(t, s, "a", "")
	b := mustNode(t, s, "b", "")
	e := mustEdge(t, s, a.ID, b.ID, core.EdgeTypeTransform)

	conf := 0.95
	cl := &core.ColumnLineage{
		EdgeID:             e.ID,
		SourceColumn:       "amount_cents",
		TargetColumn:       "amount",
		Transformation:     "amount_cents / 100.0",
		TransformationType: "expression",
		Confidence:         &conf,
	}
	require.NoError(t, s.CreateColumnLineage(ctx, cl))

	got, err := s.GetColumnLineage(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "amount", got[0].TargetColumn)
	require.NotNil(t, got[0].Confidence)
	assert.InDelta(t, 0.95, *got[0].Confidence, 1e-9)

	bad := 1.5
	err = s.CreateColumnLineage(ctx, &core.ColumnLineage{
		EdgeID: e.ID, SourceColumn: "x", TargetColumn: "y", Confidence: &bad,
	})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	err = s.CreateColumnLineage(ctx, &core.ColumnLineage{
		EdgeID: "missing", SourceColumn: "x", TargetColumn: "y",
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := &core.Run{
		RunID:        "run-42",
		PipelineName: "orders_daily",
		Environment:  "prod",
	}
	require.NoError(t, s.CreateRun(ctx, r))
	assert.Equal(t, core.RunStatusCreated, r.Status)
	assert.False(t, r.StartedAt.IsZero())

	assert.ErrorIs(t, s.CreateRun(ctx, &core.Run{
		RunID: "run-42", PipelineName: "orders_daily",
	}), core.ErrConflict)

	running := core.RunStatusRunning
	_, err := s.UpdateRun(ctx, "run-42", core.RunUpdate{Status: &running})
	require.NoError(t, err)

	success := core.RunStatusSuccess
	done, err := s.UpdateRun(ctx, "run-42", core.RunUpdate{
		Status:  &success,
		Metrics: map[string]any{"rows_written": float64(1200)},
	})
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusSuccess, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, float64(1200), done.Metrics["rows_written"])

	// Terminal runs reject further updates.
	_, err = s.UpdateRun(ctx, "run-42", core.RunUpdate{Status: &running})
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = s.GetRun(ctx, "run-missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreateRunInvalidStatus(t *testing.T) {
	s := newTestStore(t)

	bad := core.Run{RunID: "run-1", PipelineName: "p", Status: core.RunStatus("paused")}
	assert.ErrorIs(t, s.CreateRun(context.Background(), &bad), core.ErrInvalidArgument)
}

func TestEdgesIncidentQueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("(?s)SELECT .+ FROM lineage_edges").WillReturnError(assert.AnError)

	s := &Store{db: db, dialect: DialectSQLite, logger: slog.New(slog.DiscardHandler)}
	_, err = s.EdgesIncident(context.Background(), []string{"a"}, core.DirectionUpstream)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRebind(t *testing.T) {
	sqlite := &Store{dialect: DialectSQLite}
	pg := &Store{dialect: DialectPostgres}

	q := "SELECT * FROM t WHERE a = ? AND b IN (?, ?)"
	assert.Equal(t, q, sqlite.rebind(q))
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)", pg.rebind(q))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
