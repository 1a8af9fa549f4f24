package fitting

import "github.com/turtacn/forgeff/internal/domain/forcefield"

// ChemicalObjective scores the complexity of the parameter hierarchies under
// fit: the summed pattern complexity of every section a strategy touches.
// Value-only fitting leaves the hierarchies alone, so the score moves only
// when parameters are split or merged.
func ChemicalObjective(ff *forcefield.ForceField, models []forcefield.ModelKind) float64 {
	total := 0.0
	for _, m := range models {
		sec, err := ff.SectionFor(m)
		if err != nil || sec == nil {
			continue
		}
		for _, p := range sec.Params {
			if p.Pattern != nil {
				total += float64(p.Pattern.Complexity())
			}
		}
	}
	return total
}
