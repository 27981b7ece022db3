// Package graph implements the temporal lineage traversal engine: bounded
// breadth-first expansion from a seed node over the graph store, with as-of
// temporal filtering, cycle-safe visited tracking, and deterministic merge
// semantics for bidirectional queries.
//
// The engine is stateless. Every traversal is an independent computation over
// a snapshot view of the store at the requested instant, so concurrent
// traversals share nothing and need no locking.
package graph
