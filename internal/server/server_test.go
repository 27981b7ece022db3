package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lens-io/lens/internal/graph"
	"github.com/lens-io/lens/internal/store"
	"github.com/lens-io/lens/pkg/core"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	st, err := store.Open(store.Config{Dialect: store.DialectSQLite, DSN: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, st.Migrate())
	t.Cleanup(func() { st.Close() })

	srv := New(Config{Store: st, Addr: "127.0.0.1:0"})
	return srv, srv.Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func createNode(t *testing.T, h http.Handler, name string) core.Node {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/v1/nodes", map[string]any{
		"type": "source_table",
		"name": name,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[core.Node](t, rec)
}

func createEdge(t *testing.T, h http.Handler, source, target string) core.Edge {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/v1/edges", map[string]any{
		"source_id": source,
		"target_id": target,
		"edge_type": "feeds",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[core.Edge](t, rec)
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNodeEndpoints(t *testing.T) {
	_, h := newTestServer(t)

	n := createNode(t, h, "orders")
	require.NotEmpty(t, n.ID)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/nodes/"+n.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "orders", decode[core.Node](t, rec).Name)

	rec = doJSON(t, h, http.MethodPatch, "/api/v1/nodes/"+n.ID, map[string]any{
		"description": "daily order snapshots",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "daily order snapshots", decode[core.Node](t, rec).Description)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/nodes?type=source_table", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Node](t, rec), 1)

	rec = doJSON(t, h, http.MethodDelete, "/api/v1/nodes/"+n.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/nodes/"+n.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/nodes/"+n.ID+"?include_deleted=true", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateNodeRejectsUnknownFields(t *testing.T) {
	_, h := newTestServer(t)
	rec := doJSON(t, h, http.MethodPost, "/api/v1/nodes", map[string]any{
		"type": "source_table",
		"name": "orders",
		"nmae": "typo",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListNodesRequiresFilter(t *testing.T) {
	_, h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/api/v1/nodes", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEdgeEndpoints(t *testing.T) {
	_, h := newTestServer(t)

	a := createNode(t, h, "a")
	b := createNode(t, h, "b")
	e := createEdge(t, h, a.ID, b.ID)

	// Duplicate active edge conflicts.
	rec := doJSON(t, h, http.MethodPost, "/api/v1/edges", map[string]any{
		"source_id": a.ID, "target_id": b.ID, "edge_type": "feeds",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/edges/"+e.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/edges/"+e.ID+"/close", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	closed := decode[core.Edge](t, rec)
	assert.NotNil(t, closed.ValidTo)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/edges/"+e.ID+"/close", map[string]any{})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestColumnLineageEndpoints(t *testing.T) {
	_, h := newTestServer(t)

	a := createNode(t, h, "a")
	b := createNode(t, h, "b")
	e := createEdge(t, h, a.ID, b.ID)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/edges/"+e.ID+"/columns", map[string]any{
		"source_column": "amount_cents",
		"target_column": "amount",
		"confidence":    0.9,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/api/v1/edges/"+e.ID+"/columns", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cols := decode[[]core.ColumnLineage](t, rec)
	require.Len(t, cols, 1)
	assert.Equal(t, "amount", cols[0].TargetColumn)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/edges/missing/columns", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/edges/"+e.ID+"/columns", map[string]any{
		"source_column": "x",
		"target_column": "y",
		"confidence":    2.0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunEndpoints(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/runs", map[string]any{
		"run_id":        "run-7",
		"pipeline_name": "orders_daily",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPatch, "/api/v1/runs/run-7", map[string]any{
		"status": "success",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	run := decode[core.Run](t, rec)
	assert.Equal(t, core.RunStatusSuccess, run.Status)
	assert.NotNil(t, run.CompletedAt)

	rec = doJSON(t, h, http.MethodPatch, "/api/v1/runs/run-7", map[string]any{
		"status": "running",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/runs/run-missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLineageEndpoint(t *testing.T) {
	_, h := newTestServer(t)

	// a -> b -> c
	a := createNode(t, h, "a")
	b := createNode(t, h, "b")
	c := createNode(t, h, "c")
	createEdge(t, h, a.ID, b.ID)
	createEdge(t, h, b.ID, c.ID)

	rec := doJSON(t, h, http.MethodGet,
		fmt.Sprintf("/api/v1/lineage/%s?direction=downstream&depth=2", a.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[graph.Result](t, rec)
	assert.Equal(t, 3, res.NodeCount)
	assert.Equal(t, 2, res.EdgeCount)

	rec = doJSON(t, h, http.MethodGet,
		fmt.Sprintf("/api/v1/lineage/%s?direction=downstream&depth=1", a.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res = decode[graph.Result](t, rec)
	assert.Equal(t, 2, res.NodeCount)
	assert.Equal(t, 1, res.EdgeCount)
}

func TestLineageEndpointAsOf(t *testing.T) {
	_, h := newTestServer(t)

	a := createNode(t, h, "a")
	b := createNode(t, h, "b")
	e := createEdge(t, h, a.ID, b.ID)

	// Query before the edge existed: only the seed survives.
	past := e.ValidFrom.Add(-time.Hour).Format(time.RFC3339)
	rec := doJSON(t, h, http.MethodGet,
		fmt.Sprintf("/api/v1/lineage/%s?as_of=%s", a.ID, past), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[graph.Result](t, rec)
	assert.Equal(t, 1, res.NodeCount)
	assert.Equal(t, 0, res.EdgeCount)
}

func TestLineageEndpointValidation(t *testing.T) {
	_, h := newTestServer(t)
	a := createNode(t, h, "a")

	tests := []struct {
		name string
		path string
		want int
	}{
		{"bad direction", "/api/v1/lineage/" + a.ID + "?direction=sideways", http.StatusBadRequest},
		{"depth too high", "/api/v1/lineage/" + a.ID + "?depth=11", http.StatusBadRequest},
		{"depth not a number", "/api/v1/lineage/" + a.ID + "?depth=abc", http.StatusBadRequest},
		{"bad as_of", "/api/v1/lineage/" + a.ID + "?as_of=yesterday", http.StatusBadRequest},
		{"unknown seed", "/api/v1/lineage/missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}
