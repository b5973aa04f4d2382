// Package units provides the consolidation stages that implement the
// ports.Unit interface for the go-concord engine.
package units

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Unit type names as they appear in graph configuration.
const (
	TypeInput           = "input"
	TypeNormalize       = "normalize"
	TypeNeutralDistance = "neutral_distance"
	TypeAdjustedWeight  = "adjusted_weight"
	TypeCombine         = "combine"
	TypeConsensus       = "consensus"
)

// Common errors returned by units.
var (
	// ErrEmptyUnitName is returned when attempting to create a unit with an empty name.
	ErrEmptyUnitName = errors.New("unit name cannot be empty")

	// ErrLimitExceeded is returned when an input exceeds a configured size limit.
	ErrLimitExceeded = errors.New("input exceeds configured limit")
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// decodeParameters overlays the raw parameter map from a graph
// configuration onto dst, which already holds the unit's defaults.
// Unknown parameter names are rejected.
func decodeParameters(params map[string]any, dst any) error {
	if len(params) == 0 {
		return nil
	}
	data, err := yaml.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// checkContext returns the context error, if any, before a stage starts work.
func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	return nil
}
