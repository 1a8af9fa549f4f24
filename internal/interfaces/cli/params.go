package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/forgeff/internal/domain/chem"
	"github.com/turtacn/forgeff/internal/domain/forcefield"
	"github.com/turtacn/forgeff/pkg/errors"
)

func newParamsCommand() *cobra.Command {
	var ffPath string
	var smiles string

	cmd := &cobra.Command{
		Use:   "params",
		Short: "Show which parameters label a molecule",
		Example: `  forgeff params --smiles "[O:1]([H:2])[H:3]"
  forgeff params --smiles "[C:1]([H:2])([H:3])([H:4])[H:5]" --forcefield fitted.offxml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if smiles == "" {
				return errors.Newf(errors.CodeInvalidParam, "--smiles is required")
			}
			g, err := chem.ParseSMILES(smiles)
			if err != nil {
				return err
			}
			ff, err := loadForceFieldFlag(ffPath)
			if err != nil {
				return err
			}

			for kind := forcefield.ModelBonds; kind <= forcefield.ModelVdW; kind++ {
				sec, err := ff.SectionFor(kind)
				if err != nil {
					continue
				}
				labels := chem.LabelHierarchy(g, sec.Hierarchy())
				if len(labels) == 0 {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", kind)
				for _, key := range labels.SortedTupleKeys() {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-16s %s\n", key, labels[key])
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&smiles, "smiles", "", "atom-mapped or plain SMILES")
	cmd.Flags().StringVar(&ffPath, "forcefield", "", "SMIRNOFF XML (default: bundled Sage)")
	return cmd
}
