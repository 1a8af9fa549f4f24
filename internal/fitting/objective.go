package fitting

import (
	"github.com/turtacn/forgeff/internal/domain/dataset"
	"github.com/turtacn/forgeff/internal/domain/forcefield"
	"github.com/turtacn/forgeff/internal/mechanics"
	"github.com/turtacn/forgeff/pkg/errors"
)

// ObjectiveKind selects what an objective compares against the reference
// data.
type ObjectiveKind int

const (
	// ObjectivePositions relaxes each entry under the force field and scores
	// squared deviation from the reference geometry.
	ObjectivePositions ObjectiveKind = iota
	// ObjectiveGradients scores squared deviation of the model gradient from
	// the reference gradient at the reference geometry.
	ObjectiveGradients
)

func (k ObjectiveKind) String() string {
	switch k {
	case ObjectivePositions:
		return "positions"
	case ObjectiveGradients:
		return "gradients"
	}
	return "unknown"
}

// ParseObjectiveKind is the inverse of ObjectiveKind.String.
func ParseObjectiveKind(s string) (ObjectiveKind, error) {
	switch s {
	case "positions":
		return ObjectivePositions, nil
	case "gradients":
		return ObjectiveGradients, nil
	}
	return 0, errors.Newf(errors.CodeFitInvalidObjective, "objective kind %q", s)
}

// ObjectiveConfig is one weighted objective of a fit.
type ObjectiveConfig struct {
	Kind  ObjectiveKind
	Scale float64

	// Relax bounds the geometry relaxation used by the positions objective.
	Relax mechanics.RelaxOptions
}

// ObjectiveMap assigns objectives to dataset entries by id. Configs under
// the empty key apply to every entry; configs under an entry id score that
// entry alone, on top of any global ones.
type ObjectiveMap map[string][]ObjectiveConfig

// GlobalObjectives builds a map applying the given objectives to all entries.
func GlobalObjectives(objs ...ObjectiveConfig) ObjectiveMap {
	return ObjectiveMap{"": objs}
}

// DefaultObjectives is the standard pairing for gradient-bearing reference
// data: geometry recovery carries the fit and the gradient residual acts as
// a weak tie breaker.
func DefaultObjectives() ObjectiveMap {
	return GlobalObjectives(
		ObjectiveConfig{Kind: ObjectivePositions, Scale: 1},
		ObjectiveConfig{Kind: ObjectiveGradients, Scale: 1e-9},
	)
}

func (m ObjectiveMap) forEntry(id string) []ObjectiveConfig {
	out := append([]ObjectiveConfig(nil), m[""]...)
	return append(out, m[id]...)
}

// Validate rejects maps that name entries absent from the dataset or carry
// no objectives at all.
func (m ObjectiveMap) Validate(d *dataset.Dataset) error {
	total := 0
	for id, objs := range m {
		total += len(objs)
		if id == "" {
			continue
		}
		if _, err := d.Get(id); err != nil {
			return errors.Wrap(err, errors.CodeFitInvalidObjective, "objective names unknown entry")
		}
	}
	if total == 0 {
		return errors.Newf(errors.CodeFitInvalidObjective, "no objectives configured")
	}
	return nil
}

// PhysicalObjective evaluates the weighted sum of each entry's objectives
// for the force field over the dataset. Lower is better.
func PhysicalObjective(ff *forcefield.ForceField, d *dataset.Dataset, objs ObjectiveMap) (float64, error) {
	if d.Len() == 0 {
		return 0, errors.Newf(errors.CodeDatasetEmpty, "objective over an empty dataset")
	}
	if err := objs.Validate(d); err != nil {
		return 0, err
	}
	total := 0.0
	for _, e := range d.Entries() {
		cfgs := objs.forEntry(e.ID)
		if len(cfgs) == 0 {
			continue
		}
		sys, err := mechanics.Parameterize(ff, e)
		if err != nil {
			return 0, errors.Wrap(err, errors.CodeFitObjectiveFailed, "parameterize "+e.ID)
		}
		for _, o := range cfgs {
			v, err := evalObjective(sys, e, o)
			if err != nil {
				return 0, err
			}
			total += v
		}
	}
	return total, nil
}

func evalObjective(sys *mechanics.System, e *dataset.Entry, o ObjectiveConfig) (float64, error) {
	scale := o.Scale
	if scale == 0 {
		scale = 1
	}
	switch o.Kind {
	case ObjectivePositions:
		relaxed, _ := sys.Relax(e.Positions, o.Relax)
		return scale * sse(relaxed, e.Positions), nil
	case ObjectiveGradients:
		grad := sys.Gradient(e.Positions, o.Relax.Displacement)
		return scale * sse(grad, e.Gradients), nil
	}
	return 0, errors.Newf(errors.CodeFitInvalidObjective, "objective kind %d", o.Kind)
}

func sse(a, b [][3]float64) float64 {
	total := 0.0
	for i := range a {
		for d := 0; d < 3; d++ {
			diff := a[i][d] - b[i][d]
			total += diff * diff
		}
	}
	return total
}
