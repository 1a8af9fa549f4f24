package mechanics

import "math"

// Energy evaluates the total potential energy in kcal/mol at the given
// coordinates. The row order must match the entry's map order.
func (s *System) Energy(pos []Vec) float64 {
	e := 0.0

	for _, b := range s.Bonds {
		dr := Distance(pos[b.I], pos[b.J]) - b.Length
		e += 0.5 * b.K * dr * dr
	}
	for _, a := range s.Angles {
		dt := Angle(pos[a.I], pos[a.J], pos[a.K]) - a.Theta0
		e += 0.5 * a.Force * dt * dt
	}
	for _, t := range s.Propers {
		e += torsionEnergy(t, pos)
	}
	for _, t := range s.Impropers {
		e += torsionEnergy(t, pos)
	}
	for _, p := range s.Pairs {
		r := Distance(pos[p.I], pos[p.J])
		if r == 0 {
			continue
		}
		x := p.Rmin / r
		x6 := x * x * x * x * x * x
		e += p.ScaleLJ * p.Epsilon * (x6*x6 - 2*x6)
		if p.QQ != 0 {
			e += p.ScaleESP * coulombConst * p.QQ / r
		}
	}
	return e
}

func torsionEnergy(t TorsionTerm, pos []Vec) float64 {
	phi := Dihedral(pos[t.I], pos[t.J], pos[t.K], pos[t.L])
	e := 0.0
	for _, ph := range t.Phases {
		idivf := ph.Idivf
		if idivf == 0 {
			idivf = 1
		}
		e += ph.K * (1 + math.Cos(float64(ph.N)*phi-ph.Phase)) / idivf
	}
	return e
}
