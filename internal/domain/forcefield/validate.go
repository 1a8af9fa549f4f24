package forcefield

import (
	"fmt"
	"math"
)

// An Issue is one finding of a force-field validation pass.
type Issue struct {
	Section string
	ID      string
	Message string
}

func (i Issue) String() string {
	if i.ID == "" {
		return fmt.Sprintf("%s: %s", i.Section, i.Message)
	}
	return fmt.Sprintf("%s/%s: %s", i.Section, i.ID, i.Message)
}

// arity each section's patterns must map. Zero means at least one mapped atom.
var sectionArity = map[string]int{
	"Bonds":            2,
	"Angles":           3,
	"ProperTorsions":   4,
	"ImproperTorsions": 4,
	"vdW":              1,
	"LibraryCharges":   0,
}

// Validate inspects a loaded force field and reports structural findings:
// aromaticity model mismatches, patterns whose mapped-atom count does not fit
// their section, and non-finite numerics. Duplicate ids and unit errors are
// rejected earlier, at load.
func Validate(ff *ForceField) []Issue {
	var issues []Issue

	if ff.AromaticityModel != AromaticityMDL {
		issues = append(issues, Issue{
			Section: "SMIRNOFF",
			Message: fmt.Sprintf("aromaticity model %q differs from %s; pattern matching may disagree",
				ff.AromaticityModel, AromaticityMDL),
		})
	}

	check := func(name string, sec *Section) {
		if sec == nil {
			return
		}
		arity := sectionArity[name]
		for _, p := range sec.Params {
			if p.Pattern == nil {
				issues = append(issues, Issue{Section: name, ID: p.ID, Message: "no smirks pattern"})
				continue
			}
			if n := p.Pattern.MappedAtoms(); arity > 0 && n != arity {
				issues = append(issues, Issue{
					Section: name, ID: p.ID,
					Message: fmt.Sprintf("pattern maps %d atoms, section requires %d", n, arity),
				})
			} else if arity == 0 && n == 0 {
				issues = append(issues, Issue{Section: name, ID: p.ID, Message: "pattern maps no atoms"})
			}
			for _, attr := range p.AttrNames() {
				q, ok := p.Attr(attr)
				if !ok {
					continue
				}
				if math.IsNaN(q.Value) || math.IsInf(q.Value, 0) {
					issues = append(issues, Issue{
						Section: name, ID: p.ID,
						Message: fmt.Sprintf("attribute %s is not finite", attr),
					})
				}
			}
		}
	}

	check("Bonds", ff.Bonds)
	check("Angles", ff.Angles)
	check("ProperTorsions", ff.Propers)
	check("ImproperTorsions", ff.Impropers)
	check("vdW", ff.VdW)
	check("LibraryCharges", ff.LibraryCharges)
	return issues
}
