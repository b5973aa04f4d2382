// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/ahrav/go-concord/internal/domain"
)

// Unit represents one stage of the consolidation pipeline.
// Each Unit reads the tables it needs from the State and returns a new
// State with its own table added.
// Units should be stateless and thread-safe for concurrent execution.
type Unit interface {
	// Name returns a unique identifier for this unit.
	// The name is used for logging, metrics, and configuration.
	Name() string

	// Execute performs the unit's transformation on the provided State.
	// It returns a new State containing the results of the transformation.
	// The original State must not be modified.
	//
	// The context parameter allows for cancellation. Stages are pure and
	// fast, so units only need to check it before starting work.
	//
	// Example:
	//
	//	newState, err := unit.Execute(ctx, state)
	//	if err != nil {
	//	    return state, fmt.Errorf("unit %s failed: %w", unit.Name(), err)
	//	}
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// Validate checks if the unit is properly configured and ready for execution.
	// It is called when a graph is assembled, before any input is seen.
	// Return nil if validation passes, or an error describing what is invalid.
	Validate() error
}

// UnitFactory builds a Unit from the raw parameters of a graph
// configuration entry. The id becomes the unit's Name.
type UnitFactory func(id string, config map[string]any) (Unit, error)

// UnitRegistry maps unit type names to factories.
// Implementations must be safe for concurrent use.
type UnitRegistry interface {
	// RegisterUnitFactory associates a unit type with its factory.
	RegisterUnitFactory(unitType string, factory UnitFactory) error

	// CreateUnit builds a unit of the given type.
	CreateUnit(unitType, id string, config map[string]any) (Unit, error)

	// GetSupportedTypes lists the registered unit types in sorted order.
	GetSupportedTypes() []string
}
