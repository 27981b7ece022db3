package core

import "time"

// RunStatus represents the lifecycle state of an execution run.
type RunStatus string

// Run status constants. Success and failed are terminal.
const (
	RunStatusCreated RunStatus = "created"
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s RunStatus) Terminal() bool {
	return s == RunStatusSuccess || s == RunStatusFailed
}

// Run is an execution log entry for a pipeline or job, optionally attached to
// a graph node. Runs live outside the traversal path: they record how lineage
// came to be, not the lineage itself.
type Run struct {
	ID           string         `json:"id"`
	NodeID       string         `json:"node_id,omitempty"`
	RunID        string         `json:"run_id"`
	PipelineName string         `json:"pipeline_name"`
	Status       RunStatus      `json:"status"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	GitSHA       string         `json:"git_sha,omitempty"`
	GitBranch    string         `json:"git_branch,omitempty"`
	Environment  string         `json:"environment,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	TriggeredBy  string         `json:"triggered_by,omitempty"`
	Executor     string         `json:"executor,omitempty"`
	Metrics      map[string]any `json:"metrics,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// RunUpdate carries the mutable fields of a run. Nil pointers leave the
// corresponding field unchanged.
type RunUpdate struct {
	Status       *RunStatus
	CompletedAt  *time.Time
	Metrics      map[string]any
	ErrorMessage *string
}
