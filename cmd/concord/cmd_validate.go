package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-concord/internal/application"
	"github.com/ahrav/go-concord/internal/domain"
)

func newValidateCommand(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a submission without consolidating it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := readSubmission(cmd, file)
			if err != nil {
				return err
			}
			c, err := a.consolidator(cmd.Context(), "cli", nil)
			if err != nil {
				return err
			}
			if err := c.Check(cmd.Context(), in); err != nil {
				return &RejectedError{Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d criteria, %d decision-makers\n",
				len(in.Criteria), in.DecisionMakerCount())
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Submission file (YAML or JSON), or - for stdin")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// readSubmission parses the submission at path into an Input. Layout
// problems count as a rejection.
func readSubmission(cmd *cobra.Command, path string) (domain.Input, error) {
	r, err := openInput(cmd, path)
	if err != nil {
		return domain.Input{}, err
	}
	defer r.Close() //nolint:errcheck

	sub, err := application.ParseSubmission(r)
	if err != nil {
		return domain.Input{}, &RejectedError{Err: err}
	}
	in, err := sub.ToInput()
	if err != nil {
		return domain.Input{}, &RejectedError{Err: err}
	}
	return in, nil
}
