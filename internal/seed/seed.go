// Package seed loads a declarative YAML description of a lineage graph and
// applies it to a store. Edges reference nodes by qualified name so seed
// files stay portable across databases with generated ids.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lens-io/lens/pkg/core"
)

// File is the root of a seed document.
type File struct {
	Nodes []NodeSpec `yaml:"nodes"`
	Edges []EdgeSpec `yaml:"edges"`
	Runs  []RunSpec  `yaml:"runs"`
}

// NodeSpec declares a node. QualifiedName doubles as the reference key for
// edges in the same file.
type NodeSpec struct {
	Type             string         `yaml:"type"`
	Name             string         `yaml:"name"`
	QualifiedName    string         `yaml:"qualified_name"`
	Description      string         `yaml:"description"`
	DocumentationURL string         `yaml:"documentation_url"`
	System           string         `yaml:"system"`
	Platform         string         `yaml:"platform"`
	Location         string         `yaml:"location"`
	Classification   string         `yaml:"classification"`
	Tags             map[string]any `yaml:"tags"`
	Attributes       map[string]any `yaml:"attributes"`
}

// EdgeSpec declares an edge between two nodes by qualified name.
type EdgeSpec struct {
	Source    string         `yaml:"source"`
	Target    string         `yaml:"target"`
	Type      string         `yaml:"type"`
	Metadata  map[string]any `yaml:"metadata"`
	ValidFrom *time.Time     `yaml:"valid_from"`
	ValidTo   *time.Time     `yaml:"valid_to"`
	CreatedBy string         `yaml:"created_by"`
	Columns   []ColumnSpec   `yaml:"columns"`
}

// ColumnSpec declares column-level lineage on the enclosing edge.
type ColumnSpec struct {
	Source             string   `yaml:"source"`
	Target             string   `yaml:"target"`
	Transformation     string   `yaml:"transformation"`
	TransformationType string   `yaml:"transformation_type"`
	Confidence         *float64 `yaml:"confidence"`
}

// RunSpec declares an execution run, optionally attached to a node by
// qualified name.
type RunSpec struct {
	Node         string         `yaml:"node"`
	RunID        string         `yaml:"run_id"`
	PipelineName string         `yaml:"pipeline_name"`
	Status       string         `yaml:"status"`
	Environment  string         `yaml:"environment"`
	Parameters   map[string]any `yaml:"parameters"`
	TriggeredBy  string         `yaml:"triggered_by"`
}

// Load parses a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse parses seed YAML.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for i, n := range f.Nodes {
		if n.QualifiedName == "" {
			return nil, fmt.Errorf("%w: seed node %d (%s) is missing a qualified_name", core.ErrInvalidArgument, i, n.Name)
		}
	}
	return &f, nil
}

// Apply creates the declared nodes, edges, and runs. It returns how many of
// each were created.
func Apply(ctx context.Context, f *File, store core.GraphStore, logger *slog.Logger) (nodes, edges, runs int, err error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ids := make(map[string]string, len(f.Nodes))
	for _, spec := range f.Nodes {
		n := &core.Node{
			Type:             core.NodeType(spec.Type),
			Name:             spec.Name,
			QualifiedName:    spec.QualifiedName,
			Description:      spec.Description,
			DocumentationURL: spec.DocumentationURL,
			System:           spec.System,
			Platform:         spec.Platform,
			Location:         spec.Location,
			Classification:   core.DataClassification(spec.Classification),
			Tags:             spec.Tags,
			Attributes:       spec.Attributes,
		}
		if err := store.CreateNode(ctx, n); err != nil {
			return nodes, edges, runs, fmt.Errorf("seeding node %q: %w", spec.QualifiedName, err)
		}
		ids[spec.QualifiedName] = n.ID
		nodes++
	}

	resolve := func(ref string) (string, error) {
		if id, ok := ids[ref]; ok {
			return id, nil
		}
		// Not declared in this file; it may already exist in the store.
		n, err := store.GetNodeByQualifiedName(ctx, ref, false)
		if err != nil {
			return "", fmt.Errorf("resolving %q: %w", ref, err)
		}
		ids[ref] = n.ID
		return n.ID, nil
	}

	for _, spec := range f.Edges {
		sourceID, err := resolve(spec.Source)
		if err != nil {
			return nodes, edges, runs, err
		}
		targetID, err := resolve(spec.Target)
		if err != nil {
			return nodes, edges, runs, err
		}

		e := &core.Edge{
			SourceID:  sourceID,
			TargetID:  targetID,
			Type:      core.EdgeType(spec.Type),
			Metadata:  spec.Metadata,
			ValidTo:   spec.ValidTo,
			CreatedBy: spec.CreatedBy,
		}
		if spec.ValidFrom != nil {
			e.ValidFrom = *spec.ValidFrom
		}
		if err := store.CreateEdge(ctx, e); err != nil {
			return nodes, edges, runs, fmt.Errorf("seeding edge %s -> %s: %w", spec.Source, spec.Target, err)
		}
		edges++

		for _, col := range spec.Columns {
			cl := &core.ColumnLineage{
				EdgeID:             e.ID,
				SourceColumn:       col.Source,
				TargetColumn:       col.Target,
				Transformation:     col.Transformation,
				TransformationType: col.TransformationType,
				Confidence:         col.Confidence,
			}
			if err := store.CreateColumnLineage(ctx, cl); err != nil {
				return nodes, edges, runs, fmt.Errorf("seeding columns for edge %s -> %s: %w", spec.Source, spec.Target, err)
			}
		}
	}

	for _, spec := range f.Runs {
		r := &core.Run{
			RunID:        spec.RunID,
			PipelineName: spec.PipelineName,
			Status:       core.RunStatus(spec.Status),
			Environment:  spec.Environment,
			Parameters:   spec.Parameters,
			TriggeredBy:  spec.TriggeredBy,
		}
		if spec.Node != "" {
			id, err := resolve(spec.Node)
			if err != nil {
				return nodes, edges, runs, err
			}
			r.NodeID = id
		}
		if err := store.CreateRun(ctx, r); err != nil {
			return nodes, edges, runs, fmt.Errorf("seeding run %q: %w", spec.RunID, err)
		}
		runs++
	}

	logger.Info("seed applied",
		slog.Int("nodes", nodes),
		slog.Int("edges", edges),
		slog.Int("runs", runs))
	return nodes, edges, runs, nil
}
