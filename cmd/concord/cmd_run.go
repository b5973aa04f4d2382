package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-concord/infrastructure/report"
	"github.com/ahrav/go-concord/internal/application"
)

func newRunCommand(a *app) *cobra.Command {
	var (
		file   string
		format string
		graph  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Consolidate a submission and print the report",
		Long: `Consolidate a submission and print the report.

The submission is a YAML or JSON document with either one weight vector per
decision-maker:

  criteria: [Cost, Quality, Delivery]
  decision_makers:
    - label: Ana
      weights: [0.5, 0.3, 0.2]
    - label: Bo
      weights: [0.2, 0.3, 0.5]

or a criteria x decision-makers matrix under "weights" with optional
"labels". Use -f - to read from standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format == "" {
				format = a.cfg.Output
			}
			renderer, err := report.New(format)
			if err != nil {
				return err
			}
			if graph != "" {
				a.cfg.Graph = graph
			}

			in, err := readSubmission(cmd, file)
			if err != nil {
				return err
			}

			c, err := a.consolidator(cmd.Context(), "cli", nil)
			if err != nil {
				return err
			}
			result, err := c.Consolidate(cmd.Context(), in)
			if err != nil {
				if application.IsInputError(err) {
					return &RejectedError{Err: err}
				}
				return err
			}
			if err := renderer.Render(cmd.OutOrStdout(), result); err != nil {
				return fmt.Errorf("render report: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Submission file (YAML or JSON), or - for stdin")
	cmd.Flags().StringVar(&format, "format", "", fmt.Sprintf("Output format: one of %v", report.Formats()))
	cmd.Flags().StringVar(&graph, "graph", "", "Stage graph file; defaults to the built-in graph")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
