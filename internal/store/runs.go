package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lens-io/lens/pkg/core"
)

const runColumns = `id, node_id, run_id, pipeline_name, status, started_at,
	completed_at, git_sha, git_branch, environment, parameters,
	triggered_by, executor, metrics, error_message, created_at`

// CreateRun records a new execution run. The external run_id must be unique.
func (s *Store) CreateRun(ctx context.Context, r *core.Run) error {
	if r.RunID == "" || r.PipelineName == "" {
		return fmt.Errorf("%w: run id and pipeline name are required", core.ErrInvalidArgument)
	}
	if r.Status == "" {
		r.Status = core.RunStatusCreated
	}
	switch r.Status {
	case core.RunStatusCreated, core.RunStatusRunning, core.RunStatusSuccess, core.RunStatusFailed:
	default:
		return fmt.Errorf("%w: run status %q", core.ErrInvalidArgument, r.Status)
	}
	if r.ID == "" {
		r.ID = newID()
	}
	now := nowUTC()
	if r.StartedAt.IsZero() {
		r.StartedAt = now
	}
	r.CreatedAt = now

	if _, err := s.GetRun(ctx, r.RunID); err == nil {
		return fmt.Errorf("%w: run %q already exists", core.ErrConflict, r.RunID)
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}

	params, err := marshalMap(r.Parameters)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	metrics, err := marshalMap(r.Metrics)
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO lineage_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, nullStr(r.NodeID), r.RunID, r.PipelineName, string(r.Status),
		r.StartedAt, nullTime(r.CompletedAt), nullStr(r.GitSHA), nullStr(r.GitBranch),
		nullStr(r.Environment), params, nullStr(r.TriggeredBy), nullStr(r.Executor),
		metrics, nullStr(r.ErrorMessage), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// GetRun fetches a run by its external run id.
func (s *Store) GetRun(ctx context.Context, runID string) (*core.Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+runColumns+` FROM lineage_runs WHERE run_id = ?`), runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %q", core.ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// UpdateRun applies the non-nil fields of upd. Runs in a terminal status
// (success or failed) reject further updates.
func (s *Store) UpdateRun(ctx context.Context, runID string, upd core.RunUpdate) (*core.Run, error) {
	r, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if r.Status.Terminal() {
		return nil, fmt.Errorf("%w: run %q is already %s", core.ErrConflict, runID, r.Status)
	}

	if upd.Status != nil {
		switch *upd.Status {
		case core.RunStatusCreated, core.RunStatusRunning, core.RunStatusSuccess, core.RunStatusFailed:
		default:
			return nil, fmt.Errorf("%w: run status %q", core.ErrInvalidArgument, *upd.Status)
		}
		r.Status = *upd.Status
		if r.Status.Terminal() && upd.CompletedAt == nil && r.CompletedAt == nil {
			now := nowUTC()
			r.CompletedAt = &now
		}
	}
	if upd.CompletedAt != nil {
		r.CompletedAt = upd.CompletedAt
	}
	if upd.Metrics != nil {
		r.Metrics = upd.Metrics
	}
	if upd.ErrorMessage != nil {
		r.ErrorMessage = *upd.ErrorMessage
	}

	metrics, err := marshalMap(r.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metrics: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		UPDATE lineage_runs
		SET status = ?, completed_at = ?, metrics = ?, error_message = ?
		WHERE run_id = ?`),
		string(r.Status), nullTime(r.CompletedAt), metrics, nullStr(r.ErrorMessage), runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update run: %w", err)
	}
	return r, nil
}

func scanRun(row scanner) (*core.Run, error) {
	var (
		r           core.Run
		nodeID      sql.NullString
		status      string
		completedAt sql.NullTime
		gitSHA      sql.NullString
		gitBranch   sql.NullString
		environment sql.NullString
		params      []byte
		triggeredBy sql.NullString
		executor    sql.NullString
		metrics     []byte
		errMsg      sql.NullString
	)
	err := row.Scan(&r.ID, &nodeID, &r.RunID, &r.PipelineName, &status, &r.StartedAt,
		&completedAt, &gitSHA, &gitBranch, &environment, &params,
		&triggeredBy, &executor, &metrics, &errMsg, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.NodeID = nodeID.String
	r.Status = core.RunStatus(status)
	r.GitSHA = gitSHA.String
	r.GitBranch = gitBranch.String
	r.Environment = environment.String
	r.TriggeredBy = triggeredBy.String
	r.Executor = executor.String
	r.ErrorMessage = errMsg.String
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	if r.Parameters, err = unmarshalMap(params); err != nil {
		return nil, fmt.Errorf("malformed parameters for run %s: %w", r.RunID, err)
	}
	if r.Metrics, err = unmarshalMap(metrics); err != nil {
		return nil, fmt.Errorf("malformed metrics for run %s: %w", r.RunID, err)
	}
	return &r, nil
}
