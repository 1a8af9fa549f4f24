// Package fitjob provides the application-level service for force-field fit
// runs. It sits between the CLI/HTTP/worker surfaces and the fitting domain.
package fitjob

import (
	"time"

	"github.com/turtacn/forgeff/internal/domain/dataset"
	"github.com/turtacn/forgeff/internal/domain/forcefield"
	"github.com/turtacn/forgeff/internal/fitting"
	"github.com/turtacn/forgeff/pkg/errors"
)

// RunStatus tracks a fit run through its lifecycle.
type RunStatus string

const (
	StatusQueued    RunStatus = "queued"
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// TierSpec mirrors fitting.Tier in request form.
type TierSpec struct {
	StepLimit int `json:"step_limit"`
	Accept    int `json:"accept"`
}

// ObjectiveSpec selects one objective by name with a weight. Entry scopes it
// to a single dataset entry, by id or by its mapped SMILES; empty means every
// entry.
type ObjectiveSpec struct {
	Kind  string  `json:"kind"` // "positions" or "gradients"
	Scale float64 `json:"scale"`
	Entry string  `json:"entry,omitempty"`
}

// FitRequest is everything needed to execute a fit. The force field defaults
// to the embedded Sage release when ForceFieldRef is empty; otherwise it
// names a stored document.
type FitRequest struct {
	SMILES        string              `json:"smiles"`
	PositionsXYZ  string              `json:"positions_xyz"`
	GradientsXYZ  string              `json:"gradients_xyz"`
	ForceFieldRef string              `json:"forcefield_ref,omitempty"`
	Models        map[string][]string `json:"models"`
	Symbols       []string            `json:"symbols"`
	Tiers         []TierSpec          `json:"tiers"`
	Objectives    []ObjectiveSpec     `json:"objectives"`
	MaxSweeps     int                 `json:"max_sweeps,omitempty"`
	Tolerance     float64             `json:"tolerance,omitempty"`
}

// Strategy converts the request into a fitting strategy.
func (r *FitRequest) Strategy() (*fitting.Strategy, error) {
	models := make(map[forcefield.ModelKind][]string, len(r.Models))
	for name, ids := range r.Models {
		kind, err := forcefield.ParseModelKind(name)
		if err != nil {
			return nil, err
		}
		models[kind] = ids
	}
	s := &fitting.Strategy{
		Models:    models,
		Symbols:   r.Symbols,
		MaxSweeps: r.MaxSweeps,
		Tolerance: r.Tolerance,
	}
	for _, t := range r.Tiers {
		s.Tiers = append(s.Tiers, fitting.Tier{StepLimit: t.StepLimit, Accept: t.Accept})
	}
	return s, s.Validate()
}

// ObjectiveMap converts the request objectives into an entry-keyed map over
// the dataset the run was built from, defaulting to the positions plus
// weighted-gradients pair applied to every entry.
func (r *FitRequest) ObjectiveMap(d *dataset.Dataset) (fitting.ObjectiveMap, error) {
	if len(r.Objectives) == 0 {
		return fitting.DefaultObjectives(), nil
	}
	out := make(fitting.ObjectiveMap)
	for _, o := range r.Objectives {
		kind, err := fitting.ParseObjectiveKind(o.Kind)
		if err != nil {
			return nil, err
		}
		id := ""
		if o.Entry != "" {
			e, err := resolveEntry(d, o.Entry)
			if err != nil {
				return nil, err
			}
			id = e.ID
		}
		out[id] = append(out[id], fitting.ObjectiveConfig{Kind: kind, Scale: o.Scale})
	}
	return out, nil
}

func resolveEntry(d *dataset.Dataset, ref string) (*dataset.Entry, error) {
	if e, err := d.Get(ref); err == nil {
		return e, nil
	}
	for _, e := range d.Entries() {
		if e.SMILES == ref {
			return e, nil
		}
	}
	return nil, errors.Newf(errors.CodeFitInvalidObjective, "objective entry %q matches no dataset entry", ref)
}

// FitRun is one persisted fit job.
type FitRun struct {
	ID      string     `json:"id"`
	Status  RunStatus  `json:"status"`
	Request FitRequest `json:"request"`

	PhysInitial float64 `json:"phys_initial,omitempty"`
	PhysFinal   float64 `json:"phys_final,omitempty"`
	ChemInitial float64 `json:"chem_initial,omitempty"`
	ChemFinal   float64 `json:"chem_final,omitempty"`
	Sweeps      int     `json:"sweeps,omitempty"`

	Report    string `json:"report,omitempty"`
	ResultRef string `json:"result_ref,omitempty"`
	Error     string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
