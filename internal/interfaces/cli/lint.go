package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/forgeff/internal/domain/forcefield"
	"github.com/turtacn/forgeff/pkg/errors"
)

func newLintCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <forcefield.offxml>",
		Short: "Check a SMIRNOFF document for structural problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ff, err := forcefield.Load(f)
			if err != nil {
				return err
			}

			issues := forcefield.Validate(ff)
			if len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "%s/%s: %s\n", issue.Section, issue.ID, issue.Message)
			}
			return errors.Newf(errors.CodeValidation, "%d issue(s) found", len(issues))
		},
	}
}
