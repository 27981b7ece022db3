package graph

import (
	"time"

	"github.com/lens-io/lens/pkg/core"
)

// ActiveAt reports whether the edge's validity interval contains asOf.
// The interval is half-open: ValidFrom is inclusive, ValidTo exclusive, and a
// nil ValidTo means the edge is still active. This predicate is the single
// authority for "was this relationship in effect at time T" and is applied at
// every expansion step, so a traversal with a fixed as-of is reproducible no
// matter when it runs.
func ActiveAt(e *core.Edge, asOf time.Time) bool {
	if e.ValidFrom.After(asOf) {
		return false
	}
	return e.ValidTo == nil || e.ValidTo.After(asOf)
}
