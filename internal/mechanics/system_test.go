package mechanics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/forgeff/internal/domain/dataset"
	"github.com/turtacn/forgeff/internal/domain/forcefield"
	"github.com/turtacn/forgeff/internal/domain/forcefield/sage"
)

func demoSystem(t *testing.T) (*forcefield.ForceField, *System) {
	t.Helper()
	ff, err := sage.Load()
	require.NoError(t, err)
	d, err := dataset.Demo()
	require.NoError(t, err)
	sys, err := Parameterize(ff, d.Entries()[0])
	require.NoError(t, err)
	return ff, sys
}

func TestParameterizeDemoTopology(t *testing.T) {
	_, sys := demoSystem(t)

	assert.Len(t, sys.Bonds, 11)
	assert.Len(t, sys.Angles, 16)
	assert.Len(t, sys.Propers, 20)
	// Five sp2 carbons, three trefoil permutations each.
	assert.Len(t, sys.Impropers, 15)
	assert.Len(t, sys.Assignments[forcefield.ModelOutOfPlanes], 5)
	// 55 pairs minus 11 bonded and 16 one-three pairs.
	assert.Len(t, sys.Pairs, 28)
}

func TestParameterizeDemoBondLabels(t *testing.T) {
	ff, sys := demoSystem(t)

	counts := make(map[string]int)
	for _, b := range sys.Bonds {
		counts[b.ID]++
	}
	// Ground truth for the furoyl chloride molecule against Sage 2.1.
	assert.Equal(t, 2, counts["b4"], "ring-to-ring and ring-to-acyl single bonds")
	assert.Equal(t, 2, counts["b6"], "the two ring double bonds")
	assert.Equal(t, 2, counts["b17"], "the two C-O ring bonds")
	assert.Equal(t, 1, counts["b21"], "the carbonyl")
	assert.Equal(t, 1, counts["b70"], "the C-Cl bond")
	assert.Equal(t, 3, counts["b85"], "the three sp2-carbon hydrogens")

	b4, _ := ff.Bonds.ByID("b4")
	length, _ := b4.Attr("length")
	for _, b := range sys.Bonds {
		if b.ID == "b4" {
			assert.Equal(t, length.Value, b.Length)
		}
	}
}

func TestParameterizeDemoChargesNeutral(t *testing.T) {
	_, sys := demoSystem(t)
	for _, p := range sys.Pairs {
		assert.Zero(t, p.QQ)
	}
}

func TestPairScaling(t *testing.T) {
	_, sys := demoSystem(t)
	for _, p := range sys.Pairs {
		d := sys.Entry.Graph.TopologicalDistance(p.I, p.J)
		require.GreaterOrEqual(t, d, 3)
		if d == 3 {
			assert.Equal(t, 0.5, p.ScaleLJ)
			assert.InDelta(t, 0.8333333333, p.ScaleESP, 1e-10)
		} else {
			assert.Equal(t, 1.0, p.ScaleLJ)
			assert.Equal(t, 1.0, p.ScaleESP)
		}
		assert.Positive(t, p.Epsilon)
		assert.Positive(t, p.Rmin)
	}
}
