// Package core defines the domain types for the lineage graph: nodes,
// temporally versioned edges, column-level lineage, and execution runs.
// It also declares the GraphStore interface that storage backends implement
// and the sentinel errors shared across the service.
package core
