package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-concord/internal/domain"
)

// Submission is the document the CLI and HTTP API accept. Weights come in
// one of two forms: one vector per decision-maker (DecisionMakers), or a
// criteria × decision-makers matrix (Weights with optional Labels).
type Submission struct {
	// Criteria names the criteria in order. Blank or missing names are
	// filled with C1, C2, ...
	Criteria []string `json:"criteria,omitempty" yaml:"criteria,omitempty"`

	// DecisionMakers holds one weight vector per decision-maker.
	DecisionMakers []SubmittedDecisionMaker `json:"decision_makers,omitempty" yaml:"decision_makers,omitempty"`

	// Weights is the matrix form: one row per criterion.
	Weights [][]float64 `json:"weights,omitempty" yaml:"weights,omitempty"`

	// Labels names the matrix columns. Only valid with Weights.
	Labels []string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// SubmittedDecisionMaker is one decision-maker's weight vector.
type SubmittedDecisionMaker struct {
	// Label is optional; blank labels become D1, D2, ...
	Label   string    `json:"label,omitempty" yaml:"label,omitempty"`
	Weights []float64 `json:"weights" yaml:"weights"`
}

// ParseSubmission decodes a YAML or JSON submission. Unknown fields are
// rejected.
func ParseSubmission(r io.Reader) (Submission, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Submission{}, fmt.Errorf("read submission: %w", err)
	}

	var s Submission
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return Submission{}, fmt.Errorf("%w: empty submission", domain.ErrInvalidInput)
		}
		return Submission{}, fmt.Errorf("parse submission: %w", err)
	}
	return s, nil
}

// ToInput converts the submission into the engine's Input. It checks only
// what the document layout itself requires; the input stage validates the
// rest.
func (s Submission) ToInput() (domain.Input, error) {
	hasVectors := len(s.DecisionMakers) > 0
	hasMatrix := len(s.Weights) > 0

	switch {
	case hasVectors && hasMatrix:
		return domain.Input{}, fmt.Errorf("%w: give either decision_makers or weights, not both", domain.ErrInvalidInput)
	case !hasVectors && !hasMatrix:
		return domain.Input{}, fmt.Errorf("%w: submission has no weights", domain.ErrInvalidInput)
	}

	if hasMatrix {
		return domain.Input{
			Criteria: s.criteria(len(s.Weights)),
			Weights:  s.Weights,
			Labels:   s.Labels,
		}, nil
	}

	if len(s.Labels) > 0 {
		return domain.Input{}, fmt.Errorf("%w: labels belong to the weights form; set label on each decision-maker", domain.ErrInvalidInput)
	}

	vectors := make([][]float64, len(s.DecisionMakers))
	labels := make([]string, len(s.DecisionMakers))
	for k, dm := range s.DecisionMakers {
		vectors[k] = dm.Weights
		labels[k] = dm.Label
	}
	return domain.InputFromVectors(s.criteria(len(s.DecisionMakers[0].Weights)), vectors, labels)
}

// criteria returns the criterion names, filling blanks with C<i>. When no
// names are given, inferred sets the count.
func (s Submission) criteria(inferred int) []string {
	n := len(s.Criteria)
	if n == 0 {
		n = inferred
	}
	names := make([]string, n)
	for i := range names {
		if i < len(s.Criteria) && strings.TrimSpace(s.Criteria[i]) != "" {
			names[i] = s.Criteria[i]
			continue
		}
		names[i] = domain.DefaultCriterionName(i + 1)
	}
	return names
}
