package fitting

import (
	"context"
	"math"
	"sort"

	"github.com/turtacn/forgeff/internal/domain/dataset"
	"github.com/turtacn/forgeff/internal/domain/forcefield"
	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/forgeff/pkg/errors"
)

// ValueChange records one fitted value before and after the run.
type ValueChange struct {
	Key     forcefield.Key
	Initial float64
	Final   float64
}

// Result is the outcome of an optimization run. PhysInitial and PhysFinal
// are the physical objective before and after; ChemInitial and ChemFinal the
// chemical objective.
type Result struct {
	ForceField *forcefield.ForceField

	PhysInitial float64
	PhysFinal   float64
	ChemInitial float64
	ChemFinal   float64

	Accepted []forcefield.Key
	Changes  []ValueChange
	Sweeps   int
}

// Optimizer runs tiered candidate screening followed by a full coordinate
// descent fit of the accepted keys. The input force field is never mutated;
// the result carries a fitted copy.
type Optimizer struct {
	log logging.Logger
}

func NewOptimizer(log logging.Logger) *Optimizer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Optimizer{log: log.Named("optimizer")}
}

// Run executes the strategy against the dataset. objs is the objective map
// of the final fit; tiers screen with their own maps when they carry one.
func (o *Optimizer) Run(ctx context.Context, ff *forcefield.ForceField, d *dataset.Dataset,
	strat *Strategy, objs ObjectiveMap) (*Result, error) {

	if err := strat.Validate(); err != nil {
		return nil, err
	}
	cands, err := strat.candidates(ff)
	if err != nil {
		return nil, err
	}

	eval := func(f *forcefield.ForceField) (float64, error) {
		return PhysicalObjective(f, d, objs)
	}

	p0, err := eval(ff)
	if err != nil {
		return nil, err
	}
	c0 := ChemicalObjective(ff, strat.ModelKinds())
	o.log.Info("starting fit",
		logging.Int("candidates", len(cands)),
		logging.Float64("physical_initial", p0),
		logging.Float64("chemical_initial", c0))

	work, err := forcefield.Clone(ff)
	if err != nil {
		return nil, err
	}

	// Tiered screening: each tier trial-fits every surviving candidate in
	// isolation and keeps the best Accept of them.
	for ti, tier := range strat.Tiers {
		if len(cands) <= tier.Accept {
			o.log.Debug("tier skipped, nothing to prune",
				logging.Int("tier", ti), logging.Int("candidates", len(cands)))
			continue
		}
		tierEval := eval
		if len(tier.Objectives) != 0 {
			tierEval = func(f *forcefield.ForceField) (float64, error) {
				return PhysicalObjective(f, d, tier.Objectives)
			}
		}
		for i := range cands {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, errors.CodeTimeout, "fit cancelled")
			}
			trial, err := forcefield.Clone(work)
			if err != nil {
				return nil, err
			}
			score, _, err := o.fitKeys(ctx, trial, []forcefield.Key{cands[i].Key},
				tier.StepLimit, strat.Tolerance, tierEval)
			if err != nil {
				return nil, err
			}
			cands[i].Score = score
			o.log.Debug("tier candidate scored",
				logging.Int("tier", ti),
				logging.String("key", cands[i].Key.String()),
				logging.Float64("score", score))
		}
		sort.SliceStable(cands, func(a, b int) bool { return cands[a].Score < cands[b].Score })
		cands = cands[:tier.Accept]
	}

	keys := make([]forcefield.Key, len(cands))
	for i, c := range cands {
		keys[i] = c.Key
	}

	initial := make(map[forcefield.Key]float64, len(keys))
	for _, k := range keys {
		v, err := work.Value(k)
		if err != nil {
			return nil, err
		}
		initial[k] = v
	}

	sweeps := strat.MaxSweeps
	if sweeps <= 0 {
		sweeps = 10
	}
	pFinal, taken, err := o.fitKeys(ctx, work, keys, sweeps, strat.Tolerance, eval)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ForceField:  work,
		PhysInitial: p0,
		PhysFinal:   pFinal,
		ChemInitial: c0,
		ChemFinal:   ChemicalObjective(work, strat.ModelKinds()),
		Accepted:    keys,
		Sweeps:      taken,
	}
	for _, k := range keys {
		v, err := work.Value(k)
		if err != nil {
			return nil, err
		}
		res.Changes = append(res.Changes, ValueChange{Key: k, Initial: initial[k], Final: v})
	}
	o.log.Info("fit finished",
		logging.Int("sweeps", taken),
		logging.Float64("physical_final", pFinal))
	return res, nil
}

// fitKeys runs coordinate descent: each sweep line-searches every key in
// turn. It stops after maxSweeps sweeps or when a full sweep improves the
// objective by less than tol.
func (o *Optimizer) fitKeys(ctx context.Context, ff *forcefield.ForceField, keys []forcefield.Key,
	maxSweeps int, tol float64, eval func(*forcefield.ForceField) (float64, error)) (float64, int, error) {

	if tol <= 0 {
		tol = 1e-8
	}
	best, err := eval(ff)
	if err != nil {
		return 0, 0, err
	}

	sweeps := 0
	for ; sweeps < maxSweeps; sweeps++ {
		if err := ctx.Err(); err != nil {
			return 0, sweeps, errors.Wrap(err, errors.CodeTimeout, "fit cancelled")
		}
		start := best
		for _, k := range keys {
			best, err = o.lineSearch(ff, k, best, eval)
			if err != nil {
				return 0, sweeps, err
			}
		}
		if start-best < tol {
			sweeps++
			break
		}
	}
	return best, sweeps, nil
}

// lineSearch minimizes the objective along a single key by expanding and
// contracting a trial displacement around the current value.
func (o *Optimizer) lineSearch(ff *forcefield.ForceField, k forcefield.Key, best float64,
	eval func(*forcefield.ForceField) (float64, error)) (float64, error) {

	v, err := ff.Value(k)
	if err != nil {
		return 0, err
	}
	step := 0.01 * math.Max(1, math.Abs(v))

	probe := func(x float64) (float64, error) {
		if err := ff.SetValue(k, x); err != nil {
			return 0, err
		}
		return eval(ff)
	}

	for shrink := 0; shrink < 6; shrink++ {
		dir := 0.0
		if e, err := probe(v + step); err != nil {
			return 0, err
		} else if e < best {
			best, dir = e, 1
		}
		if dir == 0 {
			if e, err := probe(v - step); err != nil {
				return 0, err
			} else if e < best {
				best, dir = e, -1
			}
		}
		if dir == 0 {
			step *= 0.5
			continue
		}

		v += dir * step
		for grow := 0; grow < 12; grow++ {
			e, err := probe(v + dir*step)
			if err != nil {
				return 0, err
			}
			if e >= best {
				break
			}
			best = e
			v += dir * step
			step *= 1.6
		}
		break
	}

	if err := ff.SetValue(k, v); err != nil {
		return 0, err
	}
	return best, nil
}
