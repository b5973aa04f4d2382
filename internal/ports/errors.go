package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that can occur around a consolidation run.
var (
	// ErrRateLimited indicates that a caller exceeded the request rate.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnsupportedFormat indicates an unknown output or input format.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// StageError reports the stage that failed during graph execution.
// The underlying domain error is preserved for errors.Is and errors.As.
type StageError struct {
	// Stage is the ID of the executable that failed.
	Stage string

	// Err is the error the stage returned.
	Err error
}

// Error implements the error interface for StageError.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error { return e.Err }

// NewStageError creates a new StageError with the given details.
func NewStageError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
