package mechanics

// Gradient evaluates the energy gradient by central finite differences with
// displacement h (angstrom). The returned rows are dE/dx in kcal/mol per
// angstrom; forces are the negation.
func (s *System) Gradient(pos []Vec, h float64) []Vec {
	if h <= 0 {
		h = 1e-4
	}
	work := make([]Vec, len(pos))
	copy(work, pos)

	grad := make([]Vec, len(pos))
	for i := range work {
		for d := 0; d < 3; d++ {
			orig := work[i][d]
			work[i][d] = orig + h
			eplus := s.Energy(work)
			work[i][d] = orig - h
			eminus := s.Energy(work)
			work[i][d] = orig
			grad[i][d] = (eplus - eminus) / (2 * h)
		}
	}
	return grad
}

// GradNormInf returns the largest absolute gradient component.
func GradNormInf(grad []Vec) float64 {
	max := 0.0
	for _, g := range grad {
		for _, v := range g {
			if v < 0 {
				v = -v
			}
			if v > max {
				max = v
			}
		}
	}
	return max
}
