// Package domain contains pure, dependency-free domain models and types
// for the weight consolidation engine.
package domain

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"time"
)

// Key represents a type-safe generic key for accessing values in State.
// The type parameter T ensures compile-time type safety when getting and
// setting values, eliminating the need for runtime type assertions.
type Key[T any] struct{ name string }

// NewKey creates a new Key with the specified name and type.
// This function is provided for creating keys outside of the domain package.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the string form of the key.
func (k Key[T]) Name() string { return k.name }

// Predefined state keys used throughout a consolidation run.
// Each key is strongly typed to ensure type safety at compile time.
var (
	// KeyInput stores the raw input snapshot supplied by the caller.
	KeyInput = Key[Input]{"input"}

	// KeyWeights stores the validated raw weight matrix.
	KeyWeights = Key[WeightMatrix]{"weights"}

	// KeyNormalized stores the column-normalized weight matrix.
	KeyNormalized = Key[NormalizedMatrix]{"normalized"}

	// KeyNeutral stores the uniform reference vector.
	KeyNeutral = Key[Vector]{"neutral"}

	// KeyDistances stores each decision-maker's distance to the neutral vector.
	KeyDistances = Key[Vector]{"distances"}

	// KeyAdjusted stores the per-decision-maker combination weights.
	KeyAdjusted = Key[AdjustedWeights]{"adjusted"}

	// KeyCombined stores the final combined weight vector.
	KeyCombined = Key[Vector]{"combined"}

	// KeyConsensus stores the per-criterion consensus report.
	KeyConsensus = Key[ConsensusReport]{"consensus"}

	// Execution context keys for tracking metadata across graph traversal.

	// KeyGraphID stores the unique identifier of the stage graph being
	// executed, used for tracking and observability.
	KeyGraphID = Key[string]{"execution.graph_id"}

	// KeySource stores where the run was triggered from
	// (e.g., "cli", "http", "library").
	KeySource = Key[string]{"execution.source"}

	// KeyExecutionID stores a unique identifier for this specific execution
	// instance, useful for tracing and correlation.
	KeyExecutionID = Key[string]{"execution.execution_id"}
)

// deepCopyValue creates a deep copy of a value to ensure true immutability.
// It handles slices, maps, and other reference types that would otherwise
// allow external modification of State data.
func deepCopyValue(value any) any {
	if value == nil {
		return nil
	}

	// time.Time is immutable and can be returned directly.
	if val, ok := value.(time.Time); ok {
		return val
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return value
		}
		newSlice := reflect.MakeSlice(v.Type(), v.Len(), v.Cap())
		for i := 0; i < v.Len(); i++ {
			newSlice.Index(i).Set(reflect.ValueOf(deepCopyValue(v.Index(i).Interface())))
		}
		return newSlice.Interface()

	case reflect.Map:
		if v.IsNil() {
			return value
		}
		newMap := reflect.MakeMap(v.Type())
		for _, key := range v.MapKeys() {
			copiedKey := deepCopyValue(key.Interface())
			copiedValue := deepCopyValue(v.MapIndex(key).Interface())
			newMap.SetMapIndex(reflect.ValueOf(copiedKey), reflect.ValueOf(copiedValue))
		}
		return newMap.Interface()

	case reflect.Ptr:
		if v.IsNil() {
			return v.Interface()
		}
		newPtr := reflect.New(v.Elem().Type())
		newPtr.Elem().Set(reflect.ValueOf(deepCopyValue(v.Elem().Interface())))
		return newPtr.Interface()

	case reflect.Struct:
		// Domain tables only carry exported fields, so every field is copied.
		newStruct := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			if newStruct.Field(i).CanSet() {
				newStruct.Field(i).Set(reflect.ValueOf(deepCopyValue(v.Field(i).Interface())))
			}
		}
		return newStruct.Interface()

	default:
		// Primitive types are returned as-is since they are copied by value.
		return value
	}
}

// State represents an immutable collection of run data that flows
// through the stage graph. It uses copy-on-write semantics to ensure
// thread-safety and prevent unintended mutations. State is the primary
// data structure for passing information between Units.
type State struct {
	// data holds the key-value pairs that make up the state.
	// It is unexported to maintain immutability guarantees.
	data map[string]any
}

// NewState creates a new empty State.
// The returned State is ready to use and can be safely shared across
// goroutines.
func NewState() State {
	return State{
		data: make(map[string]any),
	}
}

// Get retrieves a value from the State with compile-time type safety.
// It returns the value and a boolean indicating whether the key exists
// and contains a value of the correct type. The returned value is a deep
// copy to maintain immutability.
//
// Example:
//
//	normalized, ok := Get(state, KeyNormalized)
//	if !ok {
//	    // handle missing value
//	}
func Get[T any](s State, key Key[T]) (T, bool) {
	var zero T
	value, exists := s.data[key.name]
	if !exists {
		return zero, false
	}

	copied := deepCopyValue(value)
	val, ok := copied.(T)
	return val, ok
}

// GetRaw is a method version of Get that uses a string key.
// For type safety, use the generic Get function instead.
func (s State) GetRaw(keyName string) (any, bool) {
	value, exists := s.data[keyName]
	if !exists {
		return nil, false
	}
	return deepCopyValue(value), true
}

// With creates a new State with the specified key-value pair added or
// updated. It implements copy-on-write semantics, returning a new State
// instance while leaving the original unchanged.
//
// Example:
//
//	newState := With(state, KeyCombined, Vector{0.35, 0.3, 0.35})
func With[T any](s State, key Key[T], value T) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any)
	}
	newData[key.name] = deepCopyValue(value)
	return State{data: newData}
}

// WithRaw is a method version of With that uses a string key and allows
// chaining. For type safety, use the generic With function instead.
func (s State) WithRaw(keyName string, value any) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any)
	}
	newData[keyName] = deepCopyValue(value)
	return State{data: newData}
}

// WithMultiple creates a new State with multiple key-value pairs added
// or updated. It is more efficient than chaining multiple With calls as
// it performs a single clone operation.
func (s State) WithMultiple(updates map[string]any) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any)
	}
	for k, v := range updates {
		newData[k] = deepCopyValue(v)
	}
	return State{data: newData}
}

// Keys returns all keys present in the State in sorted order.
// The returned slice is safe to modify without affecting the original State.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Has reports whether keyName is present in the State.
func (s State) Has(keyName string) bool {
	_, ok := s.data[keyName]
	return ok
}

// ChangedKeys returns, in sorted order, the keys whose values in s are
// missing from base or differ from base's values.
func (s State) ChangedKeys(base State) []string {
	var changed []string
	for _, k := range s.Keys() {
		prev, ok := base.data[k]
		if !ok || !reflect.DeepEqual(prev, s.data[k]) {
			changed = append(changed, k)
		}
	}
	return changed
}

// String returns a string representation of the State for debugging purposes.
func (s State) String() string {
	return fmt.Sprintf("State%v", s.data)
}

// ExecutionContext contains metadata about the current run that flows
// through the State during graph traversal. It provides consistent
// access to execution metadata for middleware and observability.
type ExecutionContext struct {
	// GraphID is the unique identifier of the stage graph being executed.
	GraphID string

	// Source describes what triggered the run (e.g., "cli", "http").
	Source string

	// ExecutionID is a unique identifier for this specific execution instance.
	ExecutionID string
}

// WithExecutionContext creates a new State with execution context metadata
// included. It should be called at the beginning of graph execution.
func (s State) WithExecutionContext(ctx ExecutionContext) State {
	updates := map[string]any{
		KeyGraphID.name:     ctx.GraphID,
		KeySource.name:      ctx.Source,
		KeyExecutionID.name: ctx.ExecutionID,
	}
	return s.WithMultiple(updates)
}

// GetExecutionContext extracts execution context metadata from the State.
// It returns the execution context and a boolean indicating whether all
// required context fields are present.
func (s State) GetExecutionContext() (ExecutionContext, bool) {
	graphID, ok1 := Get(s, KeyGraphID)
	source, ok2 := Get(s, KeySource)
	executionID, ok3 := Get(s, KeyExecutionID)

	if !ok1 || !ok2 || !ok3 {
		return ExecutionContext{}, false
	}

	return ExecutionContext{
		GraphID:     graphID,
		Source:      source,
		ExecutionID: executionID,
	}, true
}
