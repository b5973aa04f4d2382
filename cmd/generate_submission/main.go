// Command generate_submission writes random, valid submissions for load
// testing and benchmarking the consolidation engine.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-concord/internal/testutils"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		cfg    testutils.GeneratorConfig
		count  int
		seed   uint64
		output string
	)

	cmd := &cobra.Command{
		Use:          "generate_submission",
		Short:        "Write random consolidation submissions",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("count must be positive, got %d", count)
			}
			if !cmd.Flags().Changed("seed") {
				seed = uint64(time.Now().UnixNano())
			}

			for i := range count {
				in, err := testutils.GenerateInput(cfg, seed+uint64(i))
				if err != nil {
					return err
				}
				path := filepath.Join(output, fmt.Sprintf("submission_%03d.yaml", i+1))
				if err := testutils.SaveInput(in, path); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d submission(s):\n", count)
			fmt.Fprintf(cmd.OutOrStdout(), "- Directory: %s\n", output)
			fmt.Fprintf(cmd.OutOrStdout(), "- Shape: %d criteria x %d decision-makers\n", cfg.Criteria, cfg.DecisionMakers)
			fmt.Fprintf(cmd.OutOrStdout(), "- Agreement: %.2f\n", cfg.Agreement)
			fmt.Fprintf(cmd.OutOrStdout(), "- Seed: %d\n", seed)
			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.Criteria, "criteria", 5, "Number of criteria")
	cmd.Flags().IntVar(&cfg.DecisionMakers, "decision-makers", 4, "Number of decision-makers")
	cmd.Flags().Float64Var(&cfg.Agreement, "agreement", 0.5, "Pull toward a shared vector, from 0 to 1")
	cmd.Flags().Float64Var(&cfg.Scale, "scale", 1, "Multiplier applied to every weight")
	cmd.Flags().IntVar(&count, "count", 1, "Number of submissions to write")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed; defaults to the current time")
	cmd.Flags().StringVarP(&output, "output", "o", "testdata/submissions", "Output directory")

	return cmd
}
