package chem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/forgeff/pkg/errors"
)

// furoylChlorideSMILES is the fully mapped 2-furoyl chloride molecule used
// throughout the chem tests: an 11-atom furan ring bearing an acyl chloride.
const furoylChlorideSMILES = "[C:1]1([H:9])=[C:2]([H:10])[C:3]([H:11])=[C:4]([C:5](=[O:6])[Cl:7])[O:8]1"

func mustParseSMILES(t *testing.T, s string) *Graph {
	t.Helper()
	g, err := ParseSMILES(s)
	require.NoError(t, err)
	return g
}

func TestParseSMILESFuroylChloride(t *testing.T) {
	g := mustParseSMILES(t, furoylChlorideSMILES)

	require.Len(t, g.Atoms, 11)
	require.Len(t, g.Bonds, 11)

	elements := make(map[int]int)
	for _, a := range g.Atoms {
		elements[a.Element]++
	}
	assert.Equal(t, 5, elements[6], "carbons")
	assert.Equal(t, 2, elements[8], "oxygens")
	assert.Equal(t, 1, elements[17], "chlorines")
	assert.Equal(t, 3, elements[1], "hydrogens")

	// Bond orders keyed by atom-map pairs.
	byMap := make(map[[2]int]int)
	for _, b := range g.Bonds {
		ma, mb := g.Atoms[b.A].Map, g.Atoms[b.B].Map
		if ma > mb {
			ma, mb = mb, ma
		}
		byMap[[2]int{ma, mb}] = b.Order
	}
	assert.Equal(t, 2, byMap[[2]int{1, 2}], "C1=C2")
	assert.Equal(t, 1, byMap[[2]int{2, 3}], "C2-C3")
	assert.Equal(t, 2, byMap[[2]int{3, 4}], "C3=C4")
	assert.Equal(t, 2, byMap[[2]int{5, 6}], "C=O")
	assert.Equal(t, 1, byMap[[2]int{5, 7}], "C-Cl")
	assert.Equal(t, 1, byMap[[2]int{1, 8}], "ring closure C1-O8")
}

func TestParseSMILESCharges(t *testing.T) {
	g := mustParseSMILES(t, "[O-:1][H:2]")
	require.Len(t, g.Atoms, 2)
	assert.Equal(t, -1, g.Atoms[0].Charge)
	assert.Equal(t, 0, g.Atoms[1].Charge)

	g = mustParseSMILES(t, "[N+2:1]")
	assert.Equal(t, 2, g.Atoms[0].Charge)
}

func TestParseSMILESBareAtoms(t *testing.T) {
	g := mustParseSMILES(t, "CC(=O)Cl")
	require.Len(t, g.Atoms, 4)
	assert.Equal(t, 6, g.Atoms[0].Element)
	assert.Equal(t, 8, g.Atoms[2].Element)
	assert.Equal(t, 17, g.Atoms[3].Element)
}

func TestParseSMILESErrors(t *testing.T) {
	cases := []struct {
		name   string
		smiles string
	}{
		{"empty", ""},
		{"unclosed bracket", "[C:1"},
		{"unknown element", "[Zz:1]"},
		{"unmatched branch close", "C)C"},
		{"unclosed branch", "C(C"},
		{"open ring bond", "C1CC"},
		{"self ring bond", "C11"},
		{"disconnected", "C.C"},
		{"branch first", "(C)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSMILES(tc.smiles)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeChemInvalidSMILES), "got %v", err)
		})
	}
}

func TestMapOrder(t *testing.T) {
	g := mustParseSMILES(t, furoylChlorideSMILES)
	order, err := g.MapOrder()
	require.NoError(t, err)
	require.Len(t, order, 11)
	for pos, idx := range order {
		assert.Equal(t, pos+1, g.Atoms[idx].Map)
	}

	_, err = mustParseSMILES(t, "CC").MapOrder()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeChemUnmappedAtom))

	_, err = mustParseSMILES(t, "[C:1][C:1]").MapOrder()
	require.Error(t, err)
}
