package mechanics

// RelaxOptions bounds a geometry relaxation.
type RelaxOptions struct {
	MaxSteps     int
	Tolerance    float64 // convergence threshold on the gradient inf-norm
	Displacement float64 // finite-difference step
}

func (o RelaxOptions) withDefaults() RelaxOptions {
	if o.MaxSteps <= 0 {
		o.MaxSteps = 500
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-6
	}
	if o.Displacement <= 0 {
		o.Displacement = 1e-4
	}
	return o
}

// Relax minimizes the energy by steepest descent with a backtracking line
// search, starting from the given coordinates. It returns the relaxed
// coordinates and the number of descent steps taken. Non-convergence within
// MaxSteps is not an error; the best coordinates found are returned.
func (s *System) Relax(pos []Vec, opts RelaxOptions) ([]Vec, int) {
	opts = opts.withDefaults()

	cur := make([]Vec, len(pos))
	copy(cur, pos)
	energy := s.Energy(cur)
	step := 1e-3

	taken := 0
	for ; taken < opts.MaxSteps; taken++ {
		grad := s.Gradient(cur, opts.Displacement)
		if GradNormInf(grad) < opts.Tolerance {
			break
		}

		improved := false
		for try := 0; try < 30; try++ {
			trial := make([]Vec, len(cur))
			for i := range cur {
				for d := 0; d < 3; d++ {
					trial[i][d] = cur[i][d] - step*grad[i][d]
				}
			}
			if e := s.Energy(trial); e < energy {
				cur, energy = trial, e
				improved = true
				// Grow the step again after a success.
				step *= 1.2
				break
			}
			step *= 0.5
		}
		if !improved {
			break
		}
	}
	return cur, taken
}
