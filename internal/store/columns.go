package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lens-io/lens/pkg/core"
)

const columnLineageColumns = `id, edge_id, source_column, target_column,
	transformation, transformation_type, confidence, metadata, created_at`

// CreateColumnLineage records a column mapping on an existing edge.
// Confidence, when present, must be in [0, 1].
func (s *Store) CreateColumnLineage(ctx context.Context, cl *core.ColumnLineage) error {
	if cl.EdgeID == "" || cl.SourceColumn == "" || cl.TargetColumn == "" {
		return fmt.Errorf("%w: edge id, source column, and target column are required", core.ErrInvalidArgument)
	}
	if cl.Confidence != nil && (*cl.Confidence < 0 || *cl.Confidence > 1) {
		return fmt.Errorf("%w: confidence %v outside [0, 1]", core.ErrInvalidArgument, *cl.Confidence)
	}
	if _, err := s.GetEdge(ctx, cl.EdgeID); err != nil {
		return err
	}
	if cl.ID == "" {
		cl.ID = newID()
	}
	cl.CreatedAt = nowUTC()

	meta, err := marshalMap(cl.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	var confidence any
	if cl.Confidence != nil {
		confidence = *cl.Confidence
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO column_lineage (`+columnLineageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		cl.ID, cl.EdgeID, cl.SourceColumn, cl.TargetColumn,
		nullStr(cl.Transformation), nullStr(cl.TransformationType),
		confidence, meta, cl.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create column lineage: %w", err)
	}
	return nil
}

// GetColumnLineage lists the column mappings attached to an edge.
func (s *Store) GetColumnLineage(ctx context.Context, edgeID string) ([]*core.ColumnLineage, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+columnLineageColumns+` FROM column_lineage
		WHERE edge_id = ? ORDER BY source_column, target_column`), edgeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list column lineage: %w", err)
	}
	defer rows.Close()

	var out []*core.ColumnLineage
	for rows.Next() {
		var (
			cl                 core.ColumnLineage
			transformation     sql.NullString
			transformationType sql.NullString
			confidence         sql.NullFloat64
			meta               []byte
		)
		err := rows.Scan(&cl.ID, &cl.EdgeID, &cl.SourceColumn, &cl.TargetColumn,
			&transformation, &transformationType, &confidence, &meta, &cl.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan column lineage: %w", err)
		}
		cl.Transformation = transformation.String
		cl.TransformationType = transformationType.String
		if confidence.Valid {
			v := confidence.Float64
			cl.Confidence = &v
		}
		if cl.Metadata, err = unmarshalMap(meta); err != nil {
			return nil, fmt.Errorf("malformed metadata for column lineage %s: %w", cl.ID, err)
		}
		out = append(out, &cl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list column lineage: %w", err)
	}
	return out, nil
}
