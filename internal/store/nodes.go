package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lens-io/lens/pkg/core"
)

const nodeColumns = `id, type, name, qualified_name, description, documentation_url,
	system, platform, location, classification, tags, attributes,
	created_at, updated_at, deleted_at`

// CreateNode inserts a new node. A missing ID is generated; timestamps are
// stamped server-side.
func (s *Store) CreateNode(ctx context.Context, n *core.Node) error {
	if n.Type == "" || n.Name == "" {
		return fmt.Errorf("%w: node type and name are required", core.ErrInvalidArgument)
	}
	if n.QualifiedName != "" {
		if _, err := s.GetNodeByQualifiedName(ctx, n.QualifiedName, false); err == nil {
			return fmt.Errorf("%w: qualified name %q already in use", core.ErrConflict, n.QualifiedName)
		} else if !errors.Is(err, core.ErrNotFound) {
			return err
		}
	}
	if n.ID == "" {
		n.ID = newID()
	}
	now := nowUTC()
	n.CreatedAt = now
	n.UpdatedAt = now

	tags, err := marshalMap(n.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	attrs, err := marshalMap(n.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}

	s.logger.Debug("creating node", slog.String("id", n.ID), slog.String("type", string(n.Type)))

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO lineage_nodes (`+nodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`),
		n.ID, string(n.Type), n.Name, nullStr(n.QualifiedName), nullStr(n.Description),
		nullStr(n.DocumentationURL), nullStr(n.System), nullStr(n.Platform),
		nullStr(n.Location), nullStr(string(n.Classification)), tags, attrs,
		n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}
	return nil
}

// GetNode fetches a node by id. Soft-deleted nodes are hidden unless
// includeDeleted is set.
func (s *Store) GetNode(ctx context.Context, id string, includeDeleted bool) (*core.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM lineage_nodes WHERE id = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	n, err := scanNode(s.db.QueryRowContext(ctx, s.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: node %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	return n, nil
}

// GetNodeByQualifiedName fetches a node by its globally-unique qualified name.
func (s *Store) GetNodeByQualifiedName(ctx context.Context, qualifiedName string, includeDeleted bool) (*core.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM lineage_nodes WHERE qualified_name = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	n, err := scanNode(s.db.QueryRowContext(ctx, s.rebind(query), qualifiedName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: node %q", core.ErrNotFound, qualifiedName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	return n, nil
}

// UpdateNode applies the non-nil fields of upd to a live node and returns the
// updated record.
func (s *Store) UpdateNode(ctx context.Context, id string, upd core.NodeUpdate) (*core.Node, error) {
	n, err := s.GetNode(ctx, id, false)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		n.Name = *upd.Name
	}
	if upd.Description != nil {
		n.Description = *upd.Description
	}
	if upd.DocumentationURL != nil {
		n.DocumentationURL = *upd.DocumentationURL
	}
	if upd.Classification != nil {
		n.Classification = *upd.Classification
	}
	if upd.Tags != nil {
		n.Tags = upd.Tags
	}
	if upd.Attributes != nil {
		n.Attributes = upd.Attributes
	}
	n.UpdatedAt = nowUTC()

	tags, err := marshalMap(n.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	attrs, err := marshalMap(n.Attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attributes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		UPDATE lineage_nodes
		SET name = ?, description = ?, documentation_url = ?, classification = ?,
			tags = ?, attributes = ?, updated_at = ?
		WHERE id = ?`),
		n.Name, nullStr(n.Description), nullStr(n.DocumentationURL),
		nullStr(string(n.Classification)), tags, attrs, n.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update node: %w", err)
	}
	return n, nil
}

// SoftDeleteNode stamps DeletedAt instead of removing the row, so historical
// traversals with include_deleted can still hydrate it.
func (s *Store) SoftDeleteNode(ctx context.Context, id string) error {
	now := nowUTC()
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE lineage_nodes SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`),
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: node %s", core.ErrNotFound, id)
	}
	return nil
}

// ListNodesByType returns nodes of the given type, newest first.
func (s *Store) ListNodesByType(ctx context.Context, t core.NodeType, limit, offset int, includeDeleted bool) ([]*core.Node, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + nodeColumns + ` FROM lineage_nodes WHERE type = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), string(t), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
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
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	return nodes, nil
}

func scanNode(row scanner) (*core.Node, error) {
	var (
		n              core.Node
		typ            string
		qualifiedName  sql.NullString
		description    sql.NullString
		docURL         sql.NullString
		system         sql.NullString
		platform       sql.NullString
		location       sql.NullString
		classification sql.NullString
		tags           []byte
		attrs          []byte
		deletedAt      sql.NullTime
	)
	err := row.Scan(&n.ID, &typ, &n.Name, &qualifiedName, &description, &docURL,
		&system, &platform, &location, &classification, &tags, &attrs,
		&n.CreatedAt, &n.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	n.Type = core.NodeType(typ)
	n.QualifiedName = qualifiedName.String
	n.Description = description.String
	n.DocumentationURL = docURL.String
	n.System = system.String
	n.Platform = platform.String
	n.Location = location.String
	n.Classification = core.DataClassification(classification.String)
	if deletedAt.Valid {
		t := deletedAt.Time
		n.DeletedAt = &t
	}
	if n.Tags, err = unmarshalMap(tags); err != nil {
		return nil, fmt.Errorf("malformed tags for node %s: %w", n.ID, err)
	}
	if n.Attributes, err = unmarshalMap(attrs); err != nil {
		return nil, fmt.Errorf("malformed attributes for node %s: %w", n.ID, err)
	}
	return &n, nil
}
