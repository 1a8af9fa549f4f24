package forcefield

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/forgeff/pkg/errors"
)

// recognized base units for force-field numerics.
var knownUnits = map[string]struct{}{
	"angstrom":          {},
	"nanometer":         {},
	"degree":            {},
	"radian":            {},
	"mole":              {},
	"kilocalorie":       {},
	"kilojoule":         {},
	"elementary_charge": {},
}

// Quantity is a numeric force-field value with its unit expression, e.g.
// "419.98 * angstrom**-2 * mole**-1 * kilocalorie". A dimensionless quantity
// has no units.
type Quantity struct {
	Value float64
	units map[string]int
}

// NewQuantity builds a quantity from a value and unit**exponent pairs.
func NewQuantity(value float64, units map[string]int) Quantity {
	q := Quantity{Value: value}
	if len(units) > 0 {
		q.units = make(map[string]int, len(units))
		for u, e := range units {
			if e != 0 {
				q.units[u] = e
			}
		}
	}
	return q
}

// Dimensionless reports whether the quantity carries no units.
func (q Quantity) Dimensionless() bool { return len(q.units) == 0 }

// Unit renders the unit expression without the value, "" when dimensionless.
func (q Quantity) Unit() string {
	if len(q.units) == 0 {
		return ""
	}
	names := make([]string, 0, len(q.units))
	for u := range q.units {
		names = append(names, u)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, u := range names {
		if e := q.units[u]; e == 1 {
			parts = append(parts, u)
		} else {
			parts = append(parts, u+"**"+strconv.Itoa(e))
		}
	}
	return strings.Join(parts, " * ")
}

// SameUnit reports whether two quantities carry identical units.
func (q Quantity) SameUnit(o Quantity) bool {
	if len(q.units) != len(o.units) {
		return false
	}
	for u, e := range q.units {
		if o.units[u] != e {
			return false
		}
	}
	return true
}

// WithValue returns a copy of the quantity carrying a new value.
func (q Quantity) WithValue(v float64) Quantity {
	out := Quantity{Value: v}
	if len(q.units) > 0 {
		out.units = make(map[string]int, len(q.units))
		for u, e := range q.units {
			out.units[u] = e
		}
	}
	return out
}

// String renders the quantity in the document form "<value> * <units>".
func (q Quantity) String() string {
	v := strconv.FormatFloat(q.Value, 'g', -1, 64)
	if len(q.units) == 0 {
		return v
	}
	return v + " * " + q.Unit()
}

// ParseQuantity parses "<float>" or "<float> * unit**n [* unit**m ...]".
// It rejects non-finite values and unrecognized units.
func ParseQuantity(s string) (Quantity, error) {
	// Exponent markers would split like factor separators otherwise.
	norm := strings.ReplaceAll(s, "**", "^")
	factors := strings.Split(norm, "*")
	if len(factors) == 0 {
		return Quantity{}, errors.Newf(errors.CodeForceFieldInvalidValue, "empty quantity")
	}

	head := strings.TrimSpace(factors[0])
	value, err := strconv.ParseFloat(head, 64)
	if err != nil {
		return Quantity{}, errors.Newf(errors.CodeForceFieldInvalidValue,
			"quantity %q does not start with a number", s)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Quantity{}, errors.Newf(errors.CodeForceFieldInvalidValue,
			"quantity %q is not finite", s)
	}

	var units map[string]int
	for _, f := range factors[1:] {
		f = strings.TrimSpace(f)
		if f == "" {
			return Quantity{}, errors.Newf(errors.CodeForceFieldInvalidUnit,
				"quantity %q has an empty unit factor", s)
		}
		name := f
		exp := 1
		if i := strings.IndexByte(f, '^'); i >= 0 {
			name = strings.TrimSpace(f[:i])
			exp, err = strconv.Atoi(strings.TrimSpace(f[i+1:]))
			if err != nil {
				return Quantity{}, errors.Newf(errors.CodeForceFieldInvalidUnit,
					"bad unit exponent in %q", s)
			}
		}
		if _, ok := knownUnits[name]; !ok {
			return Quantity{}, errors.Newf(errors.CodeForceFieldInvalidUnit,
				"unrecognized unit %q in %q", name, s)
		}
		if units == nil {
			units = make(map[string]int)
		}
		units[name] += exp
	}
	return NewQuantity(value, units), nil
}
