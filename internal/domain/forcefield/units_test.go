package forcefield

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/forgeff/pkg/errors"
)

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		in    string
		value float64
		unit  string
	}{
		{"1.527940216866 * angstrom", 1.527940216866, "angstrom"},
		{"419.9869268191 * angstrom**-2 * mole**-1 * kilocalorie", 419.9869268191,
			"angstrom**-2 * kilocalorie * mole**-1"},
		{"110.0631999136 * degree", 110.0631999136, "degree"},
		{"121.1883270155 * mole**-1 * radian**-2 * kilocalorie", 121.1883270155,
			"kilocalorie * mole**-1 * radian**-2"},
		{"3", 3, ""},
		{"1.0", 1, ""},
		{"-0.25", -0.25, ""},
		{"0.0 * degree", 0, "degree"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			q, err := ParseQuantity(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.value, q.Value)
			assert.Equal(t, tc.unit, q.Unit())
			assert.Equal(t, tc.unit == "", q.Dimensionless())
		})
	}
}

func TestParseQuantityErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		code errors.ErrorCode
	}{
		{"empty", "", errors.CodeForceFieldInvalidValue},
		{"no number", "angstrom", errors.CodeForceFieldInvalidValue},
		{"nan", "NaN * angstrom", errors.CodeForceFieldInvalidValue},
		{"inf", "Inf", errors.CodeForceFieldInvalidValue},
		{"unknown unit", "1.0 * parsec", errors.CodeForceFieldInvalidUnit},
		{"bad exponent", "1.0 * angstrom**x", errors.CodeForceFieldInvalidUnit},
		{"empty factor", "1.0 * ", errors.CodeForceFieldInvalidUnit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseQuantity(tc.in)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tc.code), "got %v", err)
		})
	}
}

func TestQuantityString(t *testing.T) {
	q, err := ParseQuantity("1.466199291912 * angstrom")
	require.NoError(t, err)
	assert.Equal(t, "1.466199291912 * angstrom", q.String())

	assert.Equal(t, "3", NewQuantity(3, nil).String())

	updated := q.WithValue(1.5)
	assert.Equal(t, "1.5 * angstrom", updated.String())
	assert.Equal(t, 1.466199291912, q.Value, "WithValue must not mutate the receiver")
	assert.True(t, q.SameUnit(updated))
}
