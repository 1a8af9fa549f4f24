package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/forgeff/internal/domain/dataset"
	"github.com/turtacn/forgeff/internal/domain/forcefield"
	"github.com/turtacn/forgeff/internal/domain/forcefield/sage"
	"github.com/turtacn/forgeff/internal/fitting"
	"github.com/turtacn/forgeff/pkg/errors"
)

type fitFlags struct {
	demo       bool
	forceField string
	smiles     string
	positions  string
	gradients  string
	models     string
	symbols    []string
	tiers      []string
	objectives []string
	maxSweeps  int
	tolerance  float64
	output     string
}

func newFitCommand() *cobra.Command {
	var flags fitFlags

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit force-field parameters against reference data",
		Example: `  forgeff fit --demo --models bonds=b4 --symbols l -o fitted.offxml
  forgeff fit --smiles "[O:1]([H:2])[H:3]" --positions pos.xyz --gradients grad.xyz \
      --models bonds=b88 --symbols l,k --tier 100:3 --objective gradients:1`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFit(cmd, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.demo, "demo", false, "fit the bundled demo molecule")
	cmd.Flags().StringVar(&flags.forceField, "forcefield", "", "SMIRNOFF XML to fit (default: bundled Sage)")
	cmd.Flags().StringVar(&flags.smiles, "smiles", "", "atom-mapped SMILES of the molecule")
	cmd.Flags().StringVar(&flags.positions, "positions", "", "XYZ file with reference positions")
	cmd.Flags().StringVar(&flags.gradients, "gradients", "", "XYZ file with reference gradients")
	cmd.Flags().StringVar(&flags.models, "models", "", "parameters to fit, e.g. bonds=b4,b5;angles=a11")
	cmd.Flags().StringSliceVar(&flags.symbols, "symbols", nil, "term symbols to move, e.g. l,k")
	cmd.Flags().StringSliceVar(&flags.tiers, "tier", nil, "screening tier as step_limit:accept, repeatable")
	cmd.Flags().StringSliceVar(&flags.objectives, "objective", nil,
		"objective as kind:scale with kind positions or gradients, repeatable (default positions:1,gradients:1e-9)")
	cmd.Flags().IntVar(&flags.maxSweeps, "max-sweeps", 0, "descent sweep ceiling for the final fit")
	cmd.Flags().Float64Var(&flags.tolerance, "tolerance", 0, "relative improvement threshold")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write the fitted force field here")
	return cmd
}

func runFit(cmd *cobra.Command, flags fitFlags) error {
	ff, err := loadForceFieldFlag(flags.forceField)
	if err != nil {
		return err
	}

	d, err := loadDatasetFlags(flags)
	if err != nil {
		return err
	}

	models, err := parseModels(flags.models)
	if err != nil {
		return err
	}
	tiers, err := parseTiers(flags.tiers)
	if err != nil {
		return err
	}
	objs, err := parseObjectives(flags.objectives)
	if err != nil {
		return err
	}
	strat := &fitting.Strategy{
		Models:    models,
		Symbols:   flags.symbols,
		Tiers:     tiers,
		MaxSweeps: flags.maxSweeps,
		Tolerance: flags.tolerance,
	}

	res, err := fitting.NewOptimizer(rootLog).Run(cmd.Context(), ff, d, strat, objs)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), fitting.BuildReport(res).String())

	if flags.output != "" {
		f, err := os.Create(flags.output)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := forcefield.Save(f, res.ForceField); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "fitted force field written to %s\n", flags.output)
	}
	return nil
}

func loadForceFieldFlag(path string) (*forcefield.ForceField, error) {
	if path == "" {
		return sage.Load()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return forcefield.Load(f)
}

func loadDatasetFlags(flags fitFlags) (*dataset.Dataset, error) {
	if flags.demo {
		return dataset.Demo()
	}
	if flags.smiles == "" || flags.positions == "" || flags.gradients == "" {
		return nil, errors.Newf(errors.CodeInvalidParam,
			"either --demo or all of --smiles, --positions and --gradients are required")
	}
	pf, err := os.Open(flags.positions)
	if err != nil {
		return nil, err
	}
	defer pf.Close()
	positions, err := dataset.ParseXYZ(pf)
	if err != nil {
		return nil, err
	}
	gf, err := os.Open(flags.gradients)
	if err != nil {
		return nil, err
	}
	defer gf.Close()
	gradients, err := dataset.ParseXYZ(gf)
	if err != nil {
		return nil, err
	}
	entry, err := dataset.NewEntry(flags.smiles, positions, gradients)
	if err != nil {
		return nil, err
	}
	d := dataset.New()
	if err := d.Add(entry); err != nil {
		return nil, err
	}
	return d, nil
}

// parseModels reads "bonds=b4,b5;angles=a11" into a strategy model map.
func parseModels(s string) (map[forcefield.ModelKind][]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.Newf(errors.CodeInvalidParam, "--models is required")
	}
	out := make(map[forcefield.ModelKind][]string)
	for _, group := range strings.Split(s, ";") {
		name, list, ok := strings.Cut(group, "=")
		if !ok {
			return nil, errors.Newf(errors.CodeInvalidParam, "model group %q needs model=id,...", group)
		}
		kind, err := forcefield.ParseModelKind(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		var ids []string
		for _, id := range strings.Split(list, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return nil, errors.Newf(errors.CodeInvalidParam, "model %q lists no parameter ids", name)
		}
		out[kind] = append(out[kind], ids...)
	}
	return out, nil
}

// parseObjectives reads "kind:scale" pairs, e.g. "positions:1". Without any,
// the fit scores geometry recovery plus a weakly weighted gradient residual.
func parseObjectives(specs []string) (fitting.ObjectiveMap, error) {
	if len(specs) == 0 {
		return fitting.DefaultObjectives(), nil
	}
	var out []fitting.ObjectiveConfig
	for _, spec := range specs {
		left, right, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, errors.Newf(errors.CodeInvalidParam, "objective %q needs kind:scale", spec)
		}
		kind, err := fitting.ParseObjectiveKind(strings.TrimSpace(left))
		if err != nil {
			return nil, err
		}
		scale, err := strconv.ParseFloat(strings.TrimSpace(right), 64)
		if err != nil {
			return nil, errors.Newf(errors.CodeInvalidParam, "objective %q: bad scale", spec)
		}
		out = append(out, fitting.ObjectiveConfig{Kind: kind, Scale: scale})
	}
	return fitting.GlobalObjectives(out...), nil
}

// parseTiers reads "100:3" pairs into screening tiers.
func parseTiers(specs []string) ([]fitting.Tier, error) {
	var out []fitting.Tier
	for _, spec := range specs {
		left, right, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, errors.Newf(errors.CodeInvalidParam, "tier %q needs step_limit:accept", spec)
		}
		stepLimit, err := strconv.Atoi(strings.TrimSpace(left))
		if err != nil {
			return nil, errors.Newf(errors.CodeInvalidParam, "tier %q: bad step limit", spec)
		}
		accept, err := strconv.Atoi(strings.TrimSpace(right))
		if err != nil {
			return nil, errors.Newf(errors.CodeInvalidParam, "tier %q: bad accept count", spec)
		}
		out = append(out, fitting.Tier{StepLimit: stepLimit, Accept: accept})
	}
	return out, nil
}
