package ports

import (
	"context"

	"github.com/ahrav/go-concord/internal/domain"
)

// MergeStrategy folds the states produced by the branches of a Layer back
// into one State.
type MergeStrategy interface {
	// Merge combines the branch states into one. baseState is the state the
	// layer received; states holds one result per branch, in branch order.
	// Merge must be deterministic and must not modify its arguments.
	Merge(baseState domain.State, states []domain.State) (domain.State, error)
}

// Executable is anything the stage graph can run: a unit, a pipeline, a
// layer, or a whole graph.
type Executable interface {
	// Execute reads from state and returns a new State with its outputs
	// added. The input state is shared and must not be modified; use
	// domain.With or domain.WithMultiple. Layers hand the same state to
	// several executables at once, so Execute must be safe for concurrent
	// calls.
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// ID returns the executable's identifier, unique within its graph.
	ID() string
}

// Pipeline runs executables one after another, each receiving the state
// the previous one returned. The consolidation stages form a Pipeline
// because each stage reads the table the previous one wrote.
type Pipeline interface {
	Executable

	// Add appends exec. It fails when the ID is already present.
	Add(exec Executable) error

	// Executables returns the executables in run order. Callers must not
	// modify the slice.
	Executables() []Executable
}

// Layer runs independent executables concurrently over the same input
// state and merges their outputs. The distance and consensus stages can
// share a layer because neither reads what the other writes.
type Layer interface {
	Executable

	// Add includes exec in the layer. It fails when the ID is already
	// present.
	Add(exec Executable) error

	// Executables returns the layer's members in insertion order. Callers
	// must not modify the slice.
	Executables() []Executable

	// SetMergeStrategy replaces the default merge, which unions the keys
	// each branch added and rejects two branches writing the same key.
	// Call it before Execute.
	SetMergeStrategy(strategy MergeStrategy)
}

// Graph orders pipelines, layers, and units by explicit edges. Executing a
// Graph runs its nodes one at a time in topological order, threading the
// State from each node to the next.
type Graph interface {
	Executable

	// AddNode registers exec. Its ID must be unique in the graph.
	AddNode(exec Executable) error

	// AddEdge makes targetID wait for sourceID. It fails when either node
	// is unknown, the edge exists, or the edge would close a cycle.
	AddEdge(sourceID, targetID string) error

	// TopologicalSort returns the nodes with every dependency ahead of its
	// dependents. Ties are broken by insertion order, so the result is
	// stable across runs.
	TopologicalSort() ([]Executable, error)

	// HasCycle reports whether the edges contain a cycle.
	HasCycle() bool

	// GetNode returns the node with the given ID. The returned value is
	// the graph's own instance and must be treated as read-only.
	GetNode(id string) (Executable, bool)
}
