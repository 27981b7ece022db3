package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lens-io/lens/pkg/core"
)

const edgeColumns = `id, source_id, target_id, edge_type, metadata,
	valid_from, valid_to, created_at, created_by`

// CreateEdge inserts a new edge. At most one active edge (valid_to IS NULL)
// may exist per (source, target, edge_type); violations return ErrConflict.
// The check and insert run in one transaction, and the partial unique index
// backs it up against races.
func (s *Store) CreateEdge(ctx context.Context, e *core.Edge) error {
	if e.SourceID == "" || e.TargetID == "" || e.Type == "" {
		return fmt.Errorf("%w: edge source, target, and type are required", core.ErrInvalidArgument)
	}
	if e.ID == "" {
		e.ID = newID()
	}
	now := nowUTC()
	if e.ValidFrom.IsZero() {
		e.ValidFrom = now
	}
	e.CreatedAt = now
	if e.ValidTo != nil && !e.ValidTo.After(e.ValidFrom) {
		return fmt.Errorf("%w: valid_to must be after valid_from", core.ErrInvalidArgument)
	}

	meta, err := marshalMap(e.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	// Both endpoints must exist and be live.
	var liveEndpoints int
	err = tx.QueryRowContext(ctx, s.rebind(`
		SELECT COUNT(*) FROM lineage_nodes
		WHERE id IN (?, ?) AND deleted_at IS NULL`),
		e.SourceID, e.TargetID,
	).Scan(&liveEndpoints)
	if err != nil {
		return fmt.Errorf("failed to check edge endpoints: %w", err)
	}
	want := 2
	if e.SourceID == e.TargetID {
		want = 1
	}
	if liveEndpoints < want {
		return fmt.Errorf("%w: edge endpoints %s -> %s", core.ErrNotFound, e.SourceID, e.TargetID)
	}

	if e.ValidTo == nil {
		var active int
		err = tx.QueryRowContext(ctx, s.rebind(`
			SELECT COUNT(*) FROM lineage_edges
			WHERE source_id = ? AND target_id = ? AND edge_type = ? AND valid_to IS NULL`),
			e.SourceID, e.TargetID, string(e.Type),
		).Scan(&active)
		if err != nil {
			return fmt.Errorf("failed to check active edges: %w", err)
		}
		if active > 0 {
			return fmt.Errorf("%w: active %s edge %s -> %s already exists",
				core.ErrConflict, e.Type, e.SourceID, e.TargetID)
		}
	}

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO lineage_edges (`+edgeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.SourceID, e.TargetID, string(e.Type), meta,
		e.ValidFrom, nullTime(e.ValidTo), e.CreatedAt, nullStr(e.CreatedBy),
	)
	if err != nil {
		return fmt.Errorf("failed to create edge: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit edge: %w", err)
	}

	s.logger.Debug("edge created",
		slog.String("id", e.ID),
		slog.String("type", string(e.Type)),
		slog.String("source", e.SourceID),
		slog.String("target", e.TargetID))
	return nil
}

// GetEdge fetches an edge by id.
func (s *Store) GetEdge(ctx context.Context, id string) (*core.Edge, error) {
	e, err := scanEdge(s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+edgeColumns+` FROM lineage_edges WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: edge %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get edge: %w", err)
	}
	return e, nil
}

// CloseEdge ends an active edge's validity interval at validTo. Closing an
// already-closed edge is a conflict; edges are otherwise immutable.
func (s *Store) CloseEdge(ctx context.Context, id string, validTo time.Time) error {
	e, err := s.GetEdge(ctx, id)
	if err != nil {
		return err
	}
	if e.ValidTo != nil {
		return fmt.Errorf("%w: edge %s is already closed", core.ErrConflict, id)
	}
	if !validTo.After(e.ValidFrom) {
		return fmt.Errorf("%w: valid_to must be after valid_from", core.ErrInvalidArgument)
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE lineage_edges SET valid_to = ? WHERE id = ? AND valid_to IS NULL`),
		validTo, id,
	)
	if err != nil {
		return fmt.Errorf("failed to close edge: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to close edge: %w", err)
	}
	if affected == 0 {
		// Lost a race with another closer.
		return fmt.Errorf("%w: edge %s is already closed", core.ErrConflict, id)
	}
	return nil
}

func scanEdge(row scanner) (*core.Edge, error) {
	var (
		e         core.Edge
		typ       string
		meta      []byte
		validTo   sql.NullTime
		createdBy sql.NullString
	)
	err := row.Scan(&e.ID, &e.SourceID, &e.TargetID, &typ, &meta,
		&e.ValidFrom, &validTo, &e.CreatedAt, &createdBy)
	if err != nil {
		return nil, err
	}
	e.Type = core.EdgeType(typ)
	e.CreatedBy = createdBy.String
	if validTo.Valid {
		t := validTo.Time
		e.ValidTo = &t
	}
	if e.Metadata, err = unmarshalMap(meta); err != nil {
		return nil, fmt.Errorf("malformed metadata for edge %s: %w", e.ID, err)
	}
	return &e, nil
}
