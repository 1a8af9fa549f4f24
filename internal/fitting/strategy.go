package fitting

import (
	"sort"

	"github.com/turtacn/forgeff/internal/domain/forcefield"
	"github.com/turtacn/forgeff/pkg/errors"
)

// Tier is one screening round of the candidate search: every candidate gets
// a bounded trial fit (StepLimit descent sweeps) and the best Accept
// candidates survive into the next tier or the final fit.
type Tier struct {
	StepLimit int
	Accept    int

	// Objectives, when set, replaces the run-level objective map for this
	// tier's trial fits. Keys are dataset entry ids; "" means every entry.
	Objectives ObjectiveMap
}

// Strategy describes which force-field values a fit may move and how the
// candidate search is staged.
type Strategy struct {
	// Models maps each model kind to the parameter ids eligible for fitting,
	// e.g. {ModelBonds: ["b4"]}.
	Models map[forcefield.ModelKind][]string
	// Symbols restricts which term symbols move, e.g. ["l"] for equilibrium
	// lengths only.
	Symbols []string

	Tiers []Tier

	// Final fit bounds.
	MaxSweeps int
	Tolerance float64
}

// Validate rejects empty or inconsistent strategies.
func (s *Strategy) Validate() error {
	if len(s.Models) == 0 {
		return errors.Newf(errors.CodeFitInvalidStrategy, "strategy names no models")
	}
	for m, ids := range s.Models {
		if m < 0 || m >= forcefield.ModelVdW+1 {
			return errors.Newf(errors.CodeFitInvalidStrategy, "unknown model %d", m)
		}
		if len(ids) == 0 {
			return errors.Newf(errors.CodeFitInvalidStrategy, "model %s lists no parameter ids", m)
		}
	}
	if len(s.Symbols) == 0 {
		return errors.Newf(errors.CodeFitInvalidStrategy, "strategy names no symbols")
	}
	for _, t := range s.Tiers {
		if t.StepLimit <= 0 || t.Accept <= 0 {
			return errors.Newf(errors.CodeFitInvalidStrategy,
				"tier limits must be positive, got step_limit=%d accept=%d", t.StepLimit, t.Accept)
		}
	}
	return nil
}

// Candidate is one fittable value under consideration.
type Candidate struct {
	Key forcefield.Key
	// Score is the objective reached by the candidate's trial fit.
	Score float64
}

// candidates expands the strategy against a force field into concrete keys,
// in deterministic order.
func (s *Strategy) candidates(ff *forcefield.ForceField) ([]Candidate, error) {
	models := make([]forcefield.ModelKind, 0, len(s.Models))
	for m := range s.Models {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i] < models[j] })

	var out []Candidate
	for _, m := range models {
		ids := append([]string(nil), s.Models[m]...)
		sort.Strings(ids)
		for _, id := range ids {
			keys, err := ff.Keys(m, id, s.Symbols)
			if err != nil {
				return nil, err
			}
			for _, k := range keys {
				out = append(out, Candidate{Key: k})
			}
		}
	}
	if len(out) == 0 {
		return nil, errors.Newf(errors.CodeFitNoCandidates, "strategy yields no fittable keys")
	}
	return out, nil
}

// ModelKinds lists the models a strategy touches, sorted.
func (s *Strategy) ModelKinds() []forcefield.ModelKind {
	out := make([]forcefield.ModelKind, 0, len(s.Models))
	for m := range s.Models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
