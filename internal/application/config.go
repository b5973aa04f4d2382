package application

import (
	"gopkg.in/yaml.v3"
)

// GraphConfig defines the complete description of a consolidation graph
// and serves as the primary configuration entry point for the engine.
// The embedded default graph is one GraphConfig; operators can supply
// their own to tune stage parameters or reorder independent stages.
type GraphConfig struct {
	// Version specifies the configuration schema version using semantic
	// versioning to ensure compatibility across system updates.
	Version string `yaml:"version" validate:"required,semver"`
	// Metadata contains descriptive information about the graph.
	Metadata Metadata `yaml:"metadata" validate:"required"`
	// Units defines the stage instances that will execute within this graph.
	Units []UnitConfig `yaml:"units" validate:"required,min=1,dive"`
	// Graph specifies the execution topology that determines how units
	// are connected and the order in which they execute.
	Graph GraphTopology `yaml:"graph" validate:"required"`
}

// Metadata provides descriptive information about a graph.
type Metadata struct {
	// Name identifies the graph in execution metadata and logs.
	Name string `yaml:"name" validate:"required,min=1,max=255"`
	// Description explains the graph's purpose.
	Description string `yaml:"description" validate:"max=1000"`
	// Tags are categorical labels for grouping graphs.
	Tags []string `yaml:"tags" validate:"max=20,dive,min=1,max=50"`
	// Labels are arbitrary key-value pairs.
	Labels map[string]string `yaml:"labels" validate:"max=50"`
}

// UnitConfig defines a single stage instance within a graph.
type UnitConfig struct {
	// ID is the unique identifier for this unit within the graph.
	ID string `yaml:"id" validate:"required,stageid,max=100"`
	// Type selects the stage implementation from the unit registry.
	Type string `yaml:"type" validate:"required,stageid"`
	// Parameters contains type-specific configuration, decoded by the
	// unit's factory into its config struct.
	Parameters yaml.Node `yaml:"parameters"`
}

// GraphTopology specifies how units are grouped and ordered.
type GraphTopology struct {
	// Pipelines define sequential execution chains where units execute
	// in strict order, with each unit's output feeding to the next.
	Pipelines []PipelineConfig `yaml:"pipelines" validate:"dive"`
	// Layers define parallel execution groups. Units in a layer all see
	// the same input state and must write disjoint keys.
	Layers []LayerConfig `yaml:"layers" validate:"dive"`
	// Edges specify ordering between units, pipelines, and layers.
	Edges []EdgeConfig `yaml:"edges" validate:"dive"`
}

// PipelineConfig defines a sequential execution chain.
type PipelineConfig struct {
	// ID is the unique identifier for this pipeline within the graph.
	ID string `yaml:"id" validate:"required,stageid,max=100"`
	// Units lists the unit IDs in execution order.
	Units []string `yaml:"units" validate:"required,min=1,dive,stageid"`
}

// LayerConfig defines a parallel execution group.
type LayerConfig struct {
	// ID is the unique identifier for this layer within the graph.
	ID string `yaml:"id" validate:"required,stageid,max=100"`
	// Units lists the unit IDs that will execute in parallel,
	// with a minimum of two units required to justify layer overhead.
	Units []string `yaml:"units" validate:"required,min=2,dive,stageid"`
}

// EdgeConfig establishes that To cannot start until From completes.
type EdgeConfig struct {
	From string `yaml:"from" validate:"required,stageid"`
	To   string `yaml:"to" validate:"required,stageid"`
}
