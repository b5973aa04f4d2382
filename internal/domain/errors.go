package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during a consolidation run.
var (
	// ErrInvalidWeight indicates a negative or non-finite raw weight.
	ErrInvalidWeight = errors.New("invalid weight")

	// ErrShapeMismatch indicates that the input is not a rectangular
	// criteria × decision-makers matrix.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrDegenerateInput indicates a decision-maker whose weights sum to zero,
	// which leaves normalization undefined.
	ErrDegenerateInput = errors.New("degenerate input")

	// ErrInvalidInput indicates input that is well shaped but unusable,
	// such as blank or duplicate criterion names.
	ErrInvalidInput = errors.New("invalid input")

	// ErrKeyNotFound indicates that a requested StateKey does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// InvalidWeightError reports a raw weight that cannot enter the pipeline.
// Weights are rejected, never clamped.
type InvalidWeightError struct {
	// DecisionMaker is the 1-based ordinal of the offending decision-maker.
	DecisionMaker int

	// Criterion is the name of the criterion the weight was given for.
	Criterion string

	// Value is the rejected weight.
	Value float64
}

// Error implements the error interface for InvalidWeightError.
func (e *InvalidWeightError) Error() string {
	return fmt.Sprintf("invalid weight: decision_maker=%d, criterion=%q, value=%v",
		e.DecisionMaker, e.Criterion, e.Value)
}

// Unwrap returns ErrInvalidWeight so callers can match with errors.Is.
func (e *InvalidWeightError) Unwrap() error { return ErrInvalidWeight }

// NewInvalidWeightError creates a new InvalidWeightError with the given details.
func NewInvalidWeightError(decisionMaker int, criterion string, value float64) *InvalidWeightError {
	return &InvalidWeightError{
		DecisionMaker: decisionMaker,
		Criterion:     criterion,
		Value:         value,
	}
}

// ShapeMismatchError reports an input matrix that is not rectangular or
// whose dimensions disagree with the criteria list.
type ShapeMismatchError struct {
	// Dimension names what was being counted ("criteria", "decision_makers",
	// "rows", "weights", "labels").
	Dimension string

	// DecisionMaker is the 1-based decision-maker ordinal involved, or 0
	// when the mismatch is not tied to one decision-maker.
	DecisionMaker int

	// Criterion is the criterion whose row is ragged, if any.
	Criterion string

	// Expected is the length the input should have had.
	Expected int

	// Got is the length the input actually had.
	Got int
}

// Error implements the error interface for ShapeMismatchError.
func (e *ShapeMismatchError) Error() string {
	msg := fmt.Sprintf("shape mismatch: dimension=%s, expected=%d, got=%d", e.Dimension, e.Expected, e.Got)
	if e.DecisionMaker > 0 {
		msg += fmt.Sprintf(", decision_maker=%d", e.DecisionMaker)
	}
	if e.Criterion != "" {
		msg += fmt.Sprintf(", criterion=%q", e.Criterion)
	}
	return msg
}

// Unwrap returns ErrShapeMismatch so callers can match with errors.Is.
func (e *ShapeMismatchError) Unwrap() error { return ErrShapeMismatch }

// NewShapeMismatchError creates a new ShapeMismatchError for a dimension.
func NewShapeMismatchError(dimension string, expected, got int) *ShapeMismatchError {
	return &ShapeMismatchError{
		Dimension: dimension,
		Expected:  expected,
		Got:       got,
	}
}

// DegenerateInputError reports a decision-maker whose weight column sums to
// zero. Normalizing such a column would divide by zero.
type DegenerateInputError struct {
	// DecisionMaker is the 1-based ordinal of the decision-maker.
	DecisionMaker int

	// Label is the decision-maker's display label.
	Label string
}

// Error implements the error interface for DegenerateInputError.
func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate input: decision_maker=%d (%s) assigned zero weight to every criterion",
		e.DecisionMaker, e.Label)
}

// Unwrap returns ErrDegenerateInput so callers can match with errors.Is.
func (e *DegenerateInputError) Unwrap() error { return ErrDegenerateInput }

// NewDegenerateInputError creates a new DegenerateInputError.
func NewDegenerateInputError(dm DecisionMaker) *DegenerateInputError {
	return &DegenerateInputError{
		DecisionMaker: dm.Index,
		Label:         dm.Label,
	}
}

// DuplicateCriterionError reports two criteria whose names collide once
// whitespace and letter case are ignored, or a criterion with a blank name.
type DuplicateCriterionError struct {
	// Name is the offending criterion name as supplied.
	Name string

	// Position is the 1-based position of the offending criterion.
	Position int

	// FirstPosition is the 1-based position of the earlier criterion it
	// collides with, or 0 for a blank name.
	FirstPosition int

	// Suggestion names a different criterion that is suspiciously close to
	// Name, when one exists.
	Suggestion string
}

// Error implements the error interface for DuplicateCriterionError.
func (e *DuplicateCriterionError) Error() string {
	if e.FirstPosition == 0 {
		return fmt.Sprintf("invalid input: criterion %d has a blank name", e.Position)
	}
	msg := fmt.Sprintf("invalid input: criterion %d %q duplicates criterion %d", e.Position, e.Name, e.FirstPosition)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (close to %q)", e.Suggestion)
	}
	return msg
}

// Unwrap returns ErrInvalidInput so callers can match with errors.Is.
func (e *DuplicateCriterionError) Unwrap() error { return ErrInvalidInput }

// StateError represents an error that occurred during State operations.
// It provides context about which key and operation caused the error.
type StateError struct {
	// Key is the name of the state key involved in the failed operation.
	Key string

	// Operation describes what operation was being performed when the error occurred.
	Operation string

	// Err is the underlying error that caused the operation to fail.
	Err error
}

// Error implements the error interface for StateError.
func (e *StateError) Error() string {
	return fmt.Sprintf("state error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error, supporting Go 1.13+ error unwrapping.
func (e *StateError) Unwrap() error { return e.Err }

// NewStateError creates a new StateError with the given details.
func NewStateError(key, operation string, err error) *StateError {
	return &StateError{
		Key:       key,
		Operation: operation,
		Err:       err,
	}
}

// MissingKeyError is a convenience for the most common StateError: a stage
// ran before the stage that produces its input.
func MissingKeyError[T any](key Key[T], operation string) *StateError {
	return NewStateError(key.name, operation, ErrKeyNotFound)
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap returns ErrInvalidConfiguration so callers can match with errors.Is.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
