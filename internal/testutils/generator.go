package testutils

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-concord/internal/domain"
)

// GeneratorConfig shapes the random inputs GenerateInput produces.
type GeneratorConfig struct {
	// Criteria and DecisionMakers set the matrix dimensions.
	Criteria       int
	DecisionMakers int

	// Agreement in [0, 1] pulls every decision-maker toward one shared
	// base vector. Zero gives independent vectors, one gives identical ones.
	Agreement float64

	// Scale multiplies every weight. Weights need not sum to 1, so a
	// scale other than 1 exercises normalization.
	Scale float64
}

// GenerateInput builds a random, valid Input. The seed parameter controls
// randomization: a fixed value gives reproducible inputs.
func GenerateInput(cfg GeneratorConfig, seed uint64) (domain.Input, error) {
	if cfg.Criteria < 1 || cfg.DecisionMakers < 1 {
		return domain.Input{}, fmt.Errorf("need at least one criterion and one decision-maker, got %d x %d",
			cfg.Criteria, cfg.DecisionMakers)
	}
	if cfg.Agreement < 0 || cfg.Agreement > 1 {
		return domain.Input{}, fmt.Errorf("agreement must be in [0, 1], got %v", cfg.Agreement)
	}
	scale := cfg.Scale
	if scale <= 0 {
		scale = 1
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	base := make([]float64, cfg.Criteria)
	for l := range base {
		base[l] = rng.Float64()
	}

	in := domain.Input{
		Criteria: make([]string, cfg.Criteria),
		Weights:  make([][]float64, cfg.Criteria),
		Labels:   make([]string, cfg.DecisionMakers),
	}
	for l := range in.Criteria {
		in.Criteria[l] = domain.DefaultCriterionName(l + 1)
		in.Weights[l] = make([]float64, cfg.DecisionMakers)
	}
	for k := range in.Labels {
		in.Labels[k] = domain.DefaultLabel(k + 1)
		for l := range cfg.Criteria {
			w := cfg.Agreement*base[l] + (1-cfg.Agreement)*rng.Float64()
			// Keep every column away from zero so the input is never degenerate.
			in.Weights[l][k] = (w + 0.01) * scale
		}
	}
	return in, nil
}

// SaveInput writes in as a YAML submission in matrix form, creating the
// directory when needed.
func SaveInput(in domain.Input, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := yaml.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write input file: %w", err)
	}
	return nil
}
