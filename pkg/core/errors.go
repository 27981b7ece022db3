package core

import "errors"

// Sentinel errors returned by stores and the traversal engine. Callers match
// them with errors.Is; the HTTP layer maps them to status codes.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a request parameter failed validation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict indicates a write would violate a uniqueness invariant,
	// such as activating a second edge for an already-active
	// (source, target, edge_type) key.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable indicates the graph store could not be reached.
	// Traversals are not retried internally; the caller should re-issue
	// the whole query.
	ErrUnavailable = errors.New("store unavailable")
)
