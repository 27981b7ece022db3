package core

import "time"

// EdgeType categorizes relationships between nodes.
type EdgeType string

// Known edge types, grouped by the lineage aspect they describe.
const (
	// Data flow
	EdgeTypeRead      EdgeType = "read"
	EdgeTypeWrite     EdgeType = "write"
	EdgeTypeTransform EdgeType = "transform"
	EdgeTypeDerive    EdgeType = "derive"
	EdgeTypeCopy      EdgeType = "copy"

	// Column-level
	EdgeTypeColumnDerivesFrom   EdgeType = "column_derives_from"
	EdgeTypeColumnPassesThrough EdgeType = "column_passes_through"

	// Consumption
	EdgeTypeConsumes  EdgeType = "consumes"
	EdgeTypeFeeds     EdgeType = "feeds"
	EdgeTypeDependsOn EdgeType = "depends_on"

	// Execution
	EdgeTypeExecutes EdgeType = "executes"
	EdgeTypeProduces EdgeType = "produces"

	// Governance
	EdgeTypeOwns       EdgeType = "owns"
	EdgeTypeStewards   EdgeType = "stewards"
	EdgeTypeHasPolicy  EdgeType = "has_policy"
	EdgeTypeGovernedBy EdgeType = "governed_by"

	// Organizational
	EdgeTypeMemberOf  EdgeType = "member_of"
	EdgeTypeReportsTo EdgeType = "reports_to"

	// EdgeTypeUnknown is the fallback for values outside the known set.
	// The traversal engine treats edge types as opaque filterable tags,
	// so unknown values still traverse and filter correctly.
	EdgeTypeUnknown EdgeType = "unknown"
)

var knownEdgeTypes = map[EdgeType]bool{
	EdgeTypeRead: true, EdgeTypeWrite: true, EdgeTypeTransform: true,
	EdgeTypeDerive: true, EdgeTypeCopy: true, EdgeTypeColumnDerivesFrom: true,
	EdgeTypeColumnPassesThrough: true, EdgeTypeConsumes: true, EdgeTypeFeeds: true,
	EdgeTypeDependsOn: true, EdgeTypeExecutes: true, EdgeTypeProduces: true,
	EdgeTypeOwns: true, EdgeTypeStewards: true, EdgeTypeHasPolicy: true,
	EdgeTypeGovernedBy: true, EdgeTypeMemberOf: true, EdgeTypeReportsTo: true,
}

// Known reports whether the edge type is part of the closed set.
func (t EdgeType) Known() bool {
	return knownEdgeTypes[t]
}

// Edge is a directed, typed relationship between two nodes with a temporal
// validity interval [ValidFrom, ValidTo). A nil ValidTo means the edge is
// currently active. Edges are append-only: the only permitted mutation after
// creation is closing the interval by setting ValidTo.
type Edge struct {
	ID        string         `json:"id"`
	SourceID  string         `json:"source_id"`
	TargetID  string         `json:"target_id"`
	Type      EdgeType       `json:"edge_type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	ValidFrom time.Time      `json:"valid_from"`
	ValidTo   *time.Time     `json:"valid_to,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	CreatedBy string         `json:"created_by,omitempty"`
}

// ColumnLineage maps a source column to a target column on a parent edge.
// It shares the parent edge's lifecycle and is removed with it.
type ColumnLineage struct {
	ID                 string         `json:"id"`
	EdgeID             string         `json:"edge_id"`
	SourceColumn       string         `json:"source_column"`
	TargetColumn       string         `json:"target_column"`
	Transformation     string         `json:"transformation,omitempty"`
	TransformationType string         `json:"transformation_type,omitempty"`
	Confidence         *float64       `json:"confidence,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}
