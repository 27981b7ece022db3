package core

import "time"

// NodeType categorizes entities in the lineage graph.
type NodeType string

// Known node types. The set is open-ended: values read from storage that are
// not listed here are preserved as-is and treated as NodeTypeUnknown only for
// classification purposes, so new producers do not break existing readers.
const (
	// Data assets
	NodeTypeSourceTable      NodeType = "source_table"
	NodeTypeStageTable       NodeType = "stage_table"
	NodeTypeFeatureTable     NodeType = "feature_table"
	NodeTypeDimensionTable   NodeType = "dimension_table"
	NodeTypeFactTable        NodeType = "fact_table"
	NodeTypeView             NodeType = "view"
	NodeTypeMaterializedView NodeType = "materialized_view"

	// File-based
	NodeTypeFile        NodeType = "file"
	NodeTypeDatasetFile NodeType = "dataset_file"

	// Streaming
	NodeTypeTopic  NodeType = "topic"
	NodeTypeStream NodeType = "stream"

	// Analytics
	NodeTypeDashboard NodeType = "dashboard"
	NodeTypeReport    NodeType = "report"
	NodeTypeChart     NodeType = "chart"
	NodeTypeMetric    NodeType = "metric"

	// ML
	NodeTypeModel      NodeType = "model"
	NodeTypeFeatureSet NodeType = "feature_set"
	NodeTypeExperiment NodeType = "experiment"

	// Execution
	NodeTypePipeline    NodeType = "pipeline"
	NodeTypePipelineRun NodeType = "pipeline_run"
	NodeTypeJob         NodeType = "job"
	NodeTypeNotebook    NodeType = "notebook"
	NodeTypeQuery       NodeType = "query"

	// API
	NodeTypeAPIEndpoint NodeType = "api_endpoint"
	NodeTypeService     NodeType = "service"

	// People & governance
	NodeTypePerson NodeType = "person"
	NodeTypeTeam   NodeType = "team"
	NodeTypePolicy NodeType = "policy"
	NodeTypeSchema NodeType = "schema"

	// NodeTypeUnknown is the fallback for values outside the known set.
	NodeTypeUnknown NodeType = "unknown"
)

var knownNodeTypes = map[NodeType]bool{
	NodeTypeSourceTable: true, NodeTypeStageTable: true, NodeTypeFeatureTable: true,
	NodeTypeDimensionTable: true, NodeTypeFactTable: true, NodeTypeView: true,
	NodeTypeMaterializedView: true, NodeTypeFile: true, NodeTypeDatasetFile: true,
	NodeTypeTopic: true, NodeTypeStream: true, NodeTypeDashboard: true,
	NodeTypeReport: true, NodeTypeChart: true, NodeTypeMetric: true,
	NodeTypeModel: true, NodeTypeFeatureSet: true, NodeTypeExperiment: true,
	NodeTypePipeline: true, NodeTypePipelineRun: true, NodeTypeJob: true,
	NodeTypeNotebook: true, NodeTypeQuery: true, NodeTypeAPIEndpoint: true,
	NodeTypeService: true, NodeTypePerson: true, NodeTypeTeam: true,
	NodeTypePolicy: true, NodeTypeSchema: true,
}

// Known reports whether the node type is part of the closed set.
func (t NodeType) Known() bool {
	return knownNodeTypes[t]
}

// DataClassification labels the sensitivity of a node's data.
type DataClassification string

// Data classification levels.
const (
	ClassificationPublic       DataClassification = "public"
	ClassificationInternal     DataClassification = "internal"
	ClassificationConfidential DataClassification = "confidential"
	ClassificationRestricted   DataClassification = "restricted"
	ClassificationPII          DataClassification = "pii"
	ClassificationPHI          DataClassification = "phi"
	ClassificationPCI          DataClassification = "pci"
)

// Node is an entity in the lineage graph: a dataset, pipeline, dashboard,
// person, policy, or anything else that participates in lineage. Type-specific
// metadata lives in Attributes, which the traversal core never interprets.
type Node struct {
	ID               string              `json:"id"`
	Type             NodeType            `json:"type"`
	Name             string              `json:"name"`
	QualifiedName    string              `json:"qualified_name,omitempty"`
	Description      string              `json:"description,omitempty"`
	DocumentationURL string              `json:"documentation_url,omitempty"`
	System           string              `json:"system,omitempty"`
	Platform         string              `json:"platform,omitempty"`
	Location         string              `json:"location,omitempty"`
	Classification   DataClassification  `json:"classification,omitempty"`
	Tags             map[string]any      `json:"tags,omitempty"`
	Attributes       map[string]any      `json:"attributes,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	DeletedAt        *time.Time          `json:"deleted_at,omitempty"`
}

// Deleted reports whether the node has been soft-deleted.
func (n *Node) Deleted() bool {
	return n.DeletedAt != nil
}

// NodeUpdate carries the mutable fields of a node. Nil pointers leave the
// corresponding field unchanged.
type NodeUpdate struct {
	Name             *string
	Description      *string
	DocumentationURL *string
	Classification   *DataClassification
	Tags             map[string]any
	Attributes       map[string]any
}
