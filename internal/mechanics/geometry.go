package mechanics

import "math"

// Vec is a cartesian triple in angstrom.
type Vec = [3]float64

func sub(a, b Vec) Vec { return Vec{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

func dot(a, b Vec) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func cross(a, b Vec) Vec {
	return Vec{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func norm(a Vec) float64 { return math.Sqrt(dot(a, a)) }

// Distance returns |a-b|.
func Distance(a, b Vec) float64 { return norm(sub(a, b)) }

// Angle returns the angle a-b-c in radians.
func Angle(a, b, c Vec) float64 {
	u, v := sub(a, b), sub(c, b)
	nu, nv := norm(u), norm(v)
	if nu == 0 || nv == 0 {
		return 0
	}
	cos := dot(u, v) / (nu * nv)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos)
}

// Dihedral returns the signed torsion angle a-b-c-d in radians.
func Dihedral(a, b, c, d Vec) float64 {
	b1, b2, b3 := sub(b, a), sub(c, b), sub(d, c)
	n1, n2 := cross(b1, b2), cross(b2, b3)
	m := cross(n1, b2)
	nb2 := norm(b2)
	if nb2 == 0 {
		return 0
	}
	x := dot(n1, n2)
	y := dot(m, n2) / nb2
	return math.Atan2(y, x)
}
