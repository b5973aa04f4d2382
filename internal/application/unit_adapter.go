package application

import (
	"context"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

// UnitAdapter wraps a ports.Unit to implement the ports.Executable
// interface, enabling units to participate in pipelines, layers, and graphs.
type UnitAdapter struct {
	// unit is the underlying stage that performs the actual work.
	unit ports.Unit
	// id is the unique identifier for this adapter within the graph.
	id string
}

// NewUnitAdapter creates a new adapter that wraps a ports.Unit.
func NewUnitAdapter(unit ports.Unit, id string) *UnitAdapter {
	return &UnitAdapter{
		unit: unit,
		id:   id,
	}
}

// Execute delegates to the underlying unit's Execute method.
func (ua *UnitAdapter) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	return ua.unit.Execute(ctx, state)
}

// ID returns the unique string identifier for this adapter.
func (ua *UnitAdapter) ID() string { return ua.id }

// Unit returns the wrapped unit.
func (ua *UnitAdapter) Unit() ports.Unit { return ua.unit }
