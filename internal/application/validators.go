package application

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// stageIDPattern matches lower-case identifiers such as "neutral_distance".
var stageIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateUnitParameters checks that a unit's parameters, if present, form
// a mapping. Field-level checks belong to each unit's config struct and run
// when the unit is created.
func ValidateUnitParameters(unitType string, params yaml.Node) error {
	if params.Kind == 0 {
		return nil
	}
	var paramMap map[string]any
	if err := params.Decode(&paramMap); err != nil {
		return fmt.Errorf("%s parameters must be a mapping: %w", unitType, err)
	}
	return nil
}

// RegisterGraphValidators registers custom validation functions with
// the validator instance for use in graph configuration validation.
func RegisterGraphValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("stageid", validateStageID); err != nil {
		return fmt.Errorf("failed to register stageid validator: %w", err)
	}
	return nil
}

// validateStageID validates unit, pipeline, and layer identifiers.
func validateStageID(fl validator.FieldLevel) bool {
	return stageIDPattern.MatchString(fl.Field().String())
}
