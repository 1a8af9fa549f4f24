package chem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphAdjacency(t *testing.T) {
	g := mustParseSMILES(t, "CC(=O)Cl")

	assert.Equal(t, 1, g.Degree(0))
	assert.Equal(t, 3, g.Degree(1))
	assert.ElementsMatch(t, []int{0, 2, 3}, g.Neighbors(1))

	bi := g.BondBetween(1, 2)
	require.GreaterOrEqual(t, bi, 0)
	assert.Equal(t, 2, g.Bonds[bi].Order)
	assert.Equal(t, -1, g.BondBetween(0, 3))
}

func TestHCount(t *testing.T) {
	g := mustParseSMILES(t, furoylChlorideSMILES)
	// Ring carbons C1..C3 each carry one explicit hydrogen.
	byMap := make(map[int]int)
	for i, a := range g.Atoms {
		byMap[a.Map] = i
	}
	assert.Equal(t, 1, g.HCount(byMap[1]))
	assert.Equal(t, 1, g.HCount(byMap[2]))
	assert.Equal(t, 1, g.HCount(byMap[3]))
	assert.Equal(t, 0, g.HCount(byMap[4]))
	assert.Equal(t, 0, g.HCount(byMap[5]))
}

func TestRingPerceptionFuran(t *testing.T) {
	g := mustParseSMILES(t, furoylChlorideSMILES)

	inRing := 0
	for i, a := range g.Atoms {
		if g.InRing(i) {
			inRing++
			assert.Equal(t, 5, g.RingSize(i))
			// Five-membered heterocycles stay non-aromatic under the MDL model.
			assert.False(t, a.Aromatic, "atom map %d", a.Map)
		}
	}
	assert.Equal(t, 5, inRing)

	ringBonds := 0
	for _, b := range g.Bonds {
		if b.InRing {
			ringBonds++
			assert.False(t, b.Aromatic)
		}
	}
	assert.Equal(t, 5, ringBonds)
}

func TestRingPerceptionBenzene(t *testing.T) {
	g := mustParseSMILES(t, "C1=CC=CC=C1")

	for i, a := range g.Atoms {
		assert.True(t, a.Aromatic, "atom %d", i)
		assert.Equal(t, 6, g.RingSize(i))
	}
	for bi, b := range g.Bonds {
		assert.True(t, b.Aromatic, "bond %d", bi)
		assert.True(t, b.InRing, "bond %d", bi)
	}
}

func TestAcyclicNotInRing(t *testing.T) {
	g := mustParseSMILES(t, "CC(=O)Cl")
	for i := range g.Atoms {
		assert.False(t, g.InRing(i))
		assert.Equal(t, 0, g.RingSize(i))
	}
}

func TestTopologicalDistance(t *testing.T) {
	g := mustParseSMILES(t, "CC(=O)Cl")

	assert.Equal(t, 0, g.TopologicalDistance(0, 0))
	assert.Equal(t, 1, g.TopologicalDistance(0, 1))
	assert.Equal(t, 2, g.TopologicalDistance(0, 2))
	assert.Equal(t, 2, g.TopologicalDistance(2, 3))
	assert.Equal(t, 2, g.TopologicalDistance(0, 3))
}
