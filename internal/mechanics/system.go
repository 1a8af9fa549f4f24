package mechanics

import (
	"fmt"
	"math"
	"sort"

	"github.com/turtacn/forgeff/internal/domain/chem"
	"github.com/turtacn/forgeff/internal/domain/dataset"
	"github.com/turtacn/forgeff/internal/domain/forcefield"
	"github.com/turtacn/forgeff/pkg/errors"
)

// coulombConst converts e²/angstrom to kcal/mol.
const coulombConst = 332.0637157

const degToRad = math.Pi / 180

// BondTerm is a harmonic bond k/2 (r-l)².
type BondTerm struct {
	I, J   int
	ID     string
	K      float64 // kcal/mol/angstrom²
	Length float64 // angstrom
}

// AngleTerm is a harmonic angle k/2 (θ-θ0)².
type AngleTerm struct {
	I, J, K int
	ID      string
	Force   float64 // kcal/mol/radian²
	Theta0  float64 // radians
}

// TorsionPhase is one periodic term k (1+cos(nφ-phase)) / idivf.
type TorsionPhase struct {
	K     float64 // kcal/mol
	N     int
	Phase float64 // radians
	Idivf float64
}

// TorsionTerm is a proper or improper torsion over four atoms. The rotation
// axis is J-K.
type TorsionTerm struct {
	I, J, K, L int
	ID         string
	Phases     []TorsionPhase
}

// PairTerm is one scaled nonbonded pair: Lennard-Jones 12-6 plus Coulomb.
type PairTerm struct {
	I, J     int
	Epsilon  float64 // kcal/mol
	Rmin     float64 // angstrom
	QQ       float64 // product of partial charges, e²
	ScaleLJ  float64
	ScaleESP float64
}

// System is a molecule bound to force-field terms, ready for energy
// evaluation. Assignments records which parameter labelled each topology
// tuple, keyed by model.
type System struct {
	Entry *dataset.Entry

	Bonds     []BondTerm
	Angles    []AngleTerm
	Propers   []TorsionTerm
	Impropers []TorsionTerm
	Pairs     []PairTerm

	Assignments map[forcefield.ModelKind]map[string]string
}

// Parameterize labels every topology term of the entry's molecule against
// the force field and resolves the numeric constants. Bonds, angles and
// proper torsions must all receive a label; impropers and charges apply only
// where a pattern matches.
func Parameterize(ff *forcefield.ForceField, e *dataset.Entry) (*System, error) {
	g := e.Graph
	sys := &System{
		Entry:       e,
		Assignments: make(map[forcefield.ModelKind]map[string]string),
	}

	if err := sys.assignBonds(ff, g); err != nil {
		return nil, err
	}
	if err := sys.assignAngles(ff, g); err != nil {
		return nil, err
	}
	if err := sys.assignPropers(ff, g); err != nil {
		return nil, err
	}
	if err := sys.assignImpropers(ff, g); err != nil {
		return nil, err
	}
	if err := sys.assignPairs(ff, g); err != nil {
		return nil, err
	}
	return sys, nil
}

func (s *System) note(model forcefield.ModelKind, tuple []int, id string) {
	m := s.Assignments[model]
	if m == nil {
		m = make(map[string]string)
		s.Assignments[model] = m
	}
	m[chem.TupleKey(tuple)] = id
}

func unlabeled(model forcefield.ModelKind, tuple []int) error {
	return errors.Newf(errors.CodeForceFieldUnlabeledTerm,
		"no %s parameter matches atoms %v", model, tuple)
}

func attrValue(p *forcefield.Parameter, name string) (float64, error) {
	q, ok := p.Attr(name)
	if !ok {
		return 0, errors.Newf(errors.CodeForceFieldUnknownKey,
			"parameter %s has no attribute %q", p.ID, name)
	}
	return q.Value, nil
}

func (s *System) assignBonds(ff *forcefield.ForceField, g *chem.Graph) error {
	labels := chem.LabelHierarchy(g, ff.Bonds.Hierarchy())
	for _, b := range g.Bonds {
		tuple := []int{b.A, b.B}
		id, ok := labels[chem.TupleKey(tuple)]
		if !ok {
			return unlabeled(forcefield.ModelBonds, tuple)
		}
		p, _ := ff.Bonds.ByID(id)
		k, err := attrValue(p, "k")
		if err != nil {
			return err
		}
		l, err := attrValue(p, "length")
		if err != nil {
			return err
		}
		s.Bonds = append(s.Bonds, BondTerm{I: b.A, J: b.B, ID: id, K: k, Length: l})
		s.note(forcefield.ModelBonds, tuple, id)
	}
	return nil
}

func (s *System) assignAngles(ff *forcefield.ForceField, g *chem.Graph) error {
	labels := chem.LabelHierarchy(g, ff.Angles.Hierarchy())
	for j := range g.Atoms {
		nbr := g.Neighbors(j)
		for a := 0; a < len(nbr); a++ {
			for b := a + 1; b < len(nbr); b++ {
				tuple := []int{nbr[a], j, nbr[b]}
				id, ok := labels[chem.TupleKey(tuple)]
				if !ok {
					return unlabeled(forcefield.ModelAngles, tuple)
				}
				p, _ := ff.Angles.ByID(id)
				k, err := attrValue(p, "k")
				if err != nil {
					return err
				}
				theta, err := attrValue(p, "angle")
				if err != nil {
					return err
				}
				s.Angles = append(s.Angles, AngleTerm{
					I: nbr[a], J: j, K: nbr[b], ID: id,
					Force: k, Theta0: theta * degToRad,
				})
				s.note(forcefield.ModelAngles, tuple, id)
			}
		}
	}
	return nil
}

func torsionPhases(p *forcefield.Parameter, defaultIdivf float64) ([]TorsionPhase, error) {
	var out []TorsionPhase
	for n := 1; n <= p.Terms(); n++ {
		suffix := fmt.Sprintf("%d", n)
		k, err := attrValue(p, "k"+suffix)
		if err != nil {
			return nil, err
		}
		period, err := attrValue(p, "periodicity"+suffix)
		if err != nil {
			return nil, err
		}
		phase, err := attrValue(p, "phase"+suffix)
		if err != nil {
			return nil, err
		}
		idivf := defaultIdivf
		if q, ok := p.Attr("idivf" + suffix); ok {
			idivf = q.Value
		}
		out = append(out, TorsionPhase{
			K: k, N: int(period), Phase: phase * degToRad, Idivf: idivf,
		})
	}
	return out, nil
}

func (s *System) assignPropers(ff *forcefield.ForceField, g *chem.Graph) error {
	labels := chem.LabelHierarchy(g, ff.Propers.Hierarchy())
	seen := make(map[string]bool)
	for _, b := range g.Bonds {
		j, k := b.A, b.B
		for _, i := range g.Neighbors(j) {
			if i == k {
				continue
			}
			for _, l := range g.Neighbors(k) {
				if l == j || l == i {
					continue
				}
				tuple := []int{i, j, k, l}
				key := chem.TupleKey(tuple)
				if seen[key] {
					continue
				}
				seen[key] = true
				id, ok := labels[key]
				if !ok {
					return unlabeled(forcefield.ModelTorsions, tuple)
				}
				p, _ := ff.Propers.ByID(id)
				phases, err := torsionPhases(p, 1)
				if err != nil {
					return err
				}
				s.Propers = append(s.Propers, TorsionTerm{I: i, J: j, K: k, L: l, ID: id, Phases: phases})
				s.note(forcefield.ModelTorsions, tuple, id)
			}
		}
	}
	return nil
}

// assignImpropers matches the improper section directly: patterns map the
// central atom second. Each matched site expands into the three-fold trefoil
// with k divided by three (the "auto" idivf for impropers).
func (s *System) assignImpropers(ff *forcefield.ForceField, g *chem.Graph) error {
	if ff.Impropers == nil {
		return nil
	}
	type site struct {
		center int
		others [3]int
	}
	chosen := make(map[string]string)
	sites := make(map[string]site)
	for _, p := range ff.Impropers.Params {
		for _, t := range p.Pattern.Matches(g) {
			if len(t) != 4 {
				continue
			}
			o := []int{t[0], t[2], t[3]}
			sort.Ints(o)
			key := fmt.Sprintf("%d|%v", t[1], o)
			chosen[key] = p.ID
			sites[key] = site{center: t[1], others: [3]int{o[0], o[1], o[2]}}
		}
	}

	keys := make([]string, 0, len(chosen))
	for k := range chosen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		id := chosen[key]
		st := sites[key]
		p, _ := ff.Impropers.ByID(id)
		phases, err := torsionPhases(p, 3)
		if err != nil {
			return err
		}
		// Trefoil permutations around the central atom.
		perms := [3][3]int{
			{st.others[0], st.others[1], st.others[2]},
			{st.others[1], st.others[2], st.others[0]},
			{st.others[2], st.others[0], st.others[1]},
		}
		for _, pm := range perms {
			s.Impropers = append(s.Impropers, TorsionTerm{
				I: pm[0], J: st.center, K: pm[1], L: pm[2], ID: id, Phases: phases,
			})
		}
		s.note(forcefield.ModelOutOfPlanes, []int{st.center, st.others[0], st.others[1], st.others[2]}, id)
	}
	return nil
}

// partialCharges resolves per-atom charges from the LibraryCharges section,
// last match wins per atom. Absent any match atoms stay neutral; deriving
// charges from semiempirical calculations is outside this package.
func partialCharges(ff *forcefield.ForceField, g *chem.Graph) []float64 {
	q := make([]float64, len(g.Atoms))
	if ff.LibraryCharges == nil {
		return q
	}
	for _, p := range ff.LibraryCharges.Params {
		for _, t := range p.Pattern.Matches(g) {
			for i, atom := range t {
				if c, ok := p.Attr(fmt.Sprintf("charge%d", i+1)); ok {
					q[atom] = c.Value
				}
			}
		}
	}
	return q
}

func (s *System) assignPairs(ff *forcefield.ForceField, g *chem.Graph) error {
	labels := chem.LabelHierarchy(g, ff.VdW.Hierarchy())

	type lj struct{ eps, rminHalf float64 }
	params := make([]lj, len(g.Atoms))
	for i := range g.Atoms {
		tuple := []int{i}
		id, ok := labels[chem.TupleKey(tuple)]
		if !ok {
			return unlabeled(forcefield.ModelVdW, tuple)
		}
		p, _ := ff.VdW.ByID(id)
		eps, err := attrValue(p, "epsilon")
		if err != nil {
			return err
		}
		var rminHalf float64
		if q, ok := p.Attr("rmin_half"); ok {
			rminHalf = q.Value
		} else if q, ok := p.Attr("sigma"); ok {
			rminHalf = q.Value * math.Pow(2, 1.0/6.0) / 2
		} else {
			return errors.Newf(errors.CodeForceFieldUnknownKey,
				"vdW parameter %s has neither rmin_half nor sigma", id)
		}
		params[i] = lj{eps: eps, rminHalf: rminHalf}
		s.note(forcefield.ModelVdW, tuple, id)
	}

	scaleLJ14 := ff.VdW.Meta.Float("scale14", 0.5)
	scaleESP14 := 1.0
	if ff.Electrostatics != nil {
		scaleESP14 = ff.Electrostatics.Meta.Float("scale14", scaleESP14)
	}
	charges := partialCharges(ff, g)

	for i := 0; i < len(g.Atoms); i++ {
		for j := i + 1; j < len(g.Atoms); j++ {
			d := g.TopologicalDistance(i, j)
			if d == 1 || d == 2 {
				continue
			}
			sLJ, sESP := 1.0, 1.0
			if d == 3 {
				sLJ, sESP = scaleLJ14, scaleESP14
			}
			s.Pairs = append(s.Pairs, PairTerm{
				I: i, J: j,
				Epsilon:  math.Sqrt(params[i].eps * params[j].eps),
				Rmin:     params[i].rminHalf + params[j].rminHalf,
				QQ:       charges[i] * charges[j],
				ScaleLJ:  sLJ,
				ScaleESP: sESP,
			})
		}
	}
	return nil
}
