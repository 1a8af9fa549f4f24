// Package chem provides the molecular graph model and the simplified
// chemical perception used to assign force-field parameters: a mapped-SMILES
// reader, a SMARTS subset matcher, ring perception, and a conservative
// aromaticity model. A production system would delegate perception to a full
// cheminformatics toolkit; the subset here covers the pattern language used
// by the bundled force fields and is documented where it falls short.
package chem

import (
	"sort"

	"github.com/turtacn/forgeff/pkg/errors"
)

// Atom is a node in the molecular graph.
type Atom struct {
	// Element is the atomic number.
	Element int
	// Charge is the formal charge.
	Charge int
	// Map is the 1-based atom-map index from the input SMILES, 0 if unmapped.
	Map int
	// Aromatic is set by aromaticity perception.
	Aromatic bool
}

// Bond is an edge in the molecular graph.
type Bond struct {
	// A and B are zero-based atom indices, A < B after normalisation.
	A, B int
	// Order is the bond order: 1, 2, or 3.
	Order int
	// Aromatic is set by aromaticity perception.
	Aromatic bool
	// InRing is set by ring perception.
	InRing bool
}

// Other returns the bond endpoint that is not atom i.
func (b Bond) Other(i int) int {
	if b.A == i {
		return b.B
	}
	return b.A
}

// Graph is a connected molecular graph with explicit hydrogens.
type Graph struct {
	Atoms []Atom
	Bonds []Bond

	// adjacency: atom index -> bond indices
	adj [][]int
	// ringSize: atom index -> smallest ring size containing the atom, 0 if none
	ringSize []int
}

// NewGraph assembles a Graph from atoms and bonds and runs perception
// (adjacency, rings, aromaticity).
func NewGraph(atoms []Atom, bonds []Bond) (*Graph, error) {
	g := &Graph{Atoms: atoms, Bonds: bonds}
	for i := range g.Bonds {
		b := &g.Bonds[i]
		if b.A > b.B {
			b.A, b.B = b.B, b.A
		}
		if b.A < 0 || b.B >= len(atoms) || b.A == b.B {
			return nil, errors.Newf(errors.CodeChemInvalidSMILES,
				"bond %d references invalid atoms (%d, %d)", i, b.A, b.B)
		}
	}
	g.buildAdjacency()
	g.perceiveRings()
	g.perceiveAromaticity()
	return g, nil
}

func (g *Graph) buildAdjacency() {
	g.adj = make([][]int, len(g.Atoms))
	for bi, b := range g.Bonds {
		g.adj[b.A] = append(g.adj[b.A], bi)
		g.adj[b.B] = append(g.adj[b.B], bi)
	}
}

// Degree returns the number of explicit connections of atom i (SMARTS "X"
// primitive; all hydrogens are explicit in this model).
func (g *Graph) Degree(i int) int { return len(g.adj[i]) }

// HCount returns the number of hydrogens bonded to atom i (SMARTS "H").
func (g *Graph) HCount(i int) int {
	n := 0
	for _, bi := range g.adj[i] {
		if g.Atoms[g.Bonds[bi].Other(i)].Element == 1 {
			n++
		}
	}
	return n
}

// BondIndices returns the indices of bonds incident to atom i.
func (g *Graph) BondIndices(i int) []int { return g.adj[i] }

// Neighbors returns the atom indices adjacent to atom i.
func (g *Graph) Neighbors(i int) []int {
	out := make([]int, 0, len(g.adj[i]))
	for _, bi := range g.adj[i] {
		out = append(out, g.Bonds[bi].Other(i))
	}
	return out
}

// BondBetween returns the index of the bond joining atoms i and j, or -1.
func (g *Graph) BondBetween(i, j int) int {
	for _, bi := range g.adj[i] {
		if g.Bonds[bi].Other(i) == j {
			return bi
		}
	}
	return -1
}

// RingSize returns the smallest ring size containing atom i, 0 if the atom is
// not in a ring.
func (g *Graph) RingSize(i int) int { return g.ringSize[i] }

// InRing reports whether atom i belongs to any ring.
func (g *Graph) InRing(i int) bool { return g.ringSize[i] > 0 }

// perceiveRings marks ring bonds and records the smallest ring size per atom.
// For every bond it searches the shortest alternative path between its
// endpoints; if one exists the bond closes a ring of that length.
func (g *Graph) perceiveRings() {
	g.ringSize = make([]int, len(g.Atoms))
	for bi := range g.Bonds {
		cycle := g.smallestCycleThrough(bi)
		if cycle == nil {
			continue
		}
		g.Bonds[bi].InRing = true
		for _, ai := range cycle {
			if g.ringSize[ai] == 0 || len(cycle) < g.ringSize[ai] {
				g.ringSize[ai] = len(cycle)
			}
		}
	}
}

// smallestCycleThrough returns the atom indices of the smallest cycle that
// contains bond bi, or nil if the bond is not in a ring. BFS from one
// endpoint to the other with the bond itself removed.
func (g *Graph) smallestCycleThrough(bi int) []int {
	b := g.Bonds[bi]
	prev := make([]int, len(g.Atoms))
	for i := range prev {
		prev[i] = -2 // unvisited
	}
	prev[b.A] = -1
	queue := []int{b.A}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nbi := range g.adj[cur] {
			if nbi == bi {
				continue
			}
			next := g.Bonds[nbi].Other(cur)
			if prev[next] != -2 {
				continue
			}
			prev[next] = cur
			if next == b.B {
				// reconstruct path B..A, the cycle is the path plus bond bi
				var cycle []int
				for at := b.B; at != -1; at = prev[at] {
					cycle = append(cycle, at)
				}
				return cycle
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// perceiveAromaticity applies a conservative MDL-style model: only
// six-membered all-carbon rings with alternating single/double bonds are
// marked aromatic. Five-membered heteroaromatics (furan, pyrrole, thiophene)
// stay Kekulé, matching the MDL aromaticity convention the bundled force
// field declares.
func (g *Graph) perceiveAromaticity() {
	for bi := range g.Bonds {
		if !g.Bonds[bi].InRing {
			continue
		}
		cycle := g.smallestCycleThrough(bi)
		if len(cycle) != 6 {
			continue
		}
		if g.isAromaticCarbocycle(cycle) {
			for _, ai := range cycle {
				g.Atoms[ai].Aromatic = true
			}
			for k := range cycle {
				j := g.BondBetween(cycle[k], cycle[(k+1)%len(cycle)])
				if j >= 0 {
					g.Bonds[j].Aromatic = true
				}
			}
		}
	}
}

func (g *Graph) isAromaticCarbocycle(cycle []int) bool {
	orders := make([]int, 0, len(cycle))
	for k, ai := range cycle {
		if g.Atoms[ai].Element != 6 {
			return false
		}
		j := g.BondBetween(ai, cycle[(k+1)%len(cycle)])
		if j < 0 {
			return false
		}
		orders = append(orders, g.Bonds[j].Order)
	}
	for k, o := range orders {
		next := orders[(k+1)%len(orders)]
		if o == next || o > 2 || next > 2 {
			return false
		}
	}
	return true
}

// MapOrder returns atom indices sorted by their atom-map index. It errors if
// any atom is unmapped or a map index repeats: datasets require fully-mapped
// molecules so that coordinate rows align with graph atoms.
func (g *Graph) MapOrder() ([]int, error) {
	seen := make(map[int]int, len(g.Atoms))
	order := make([]int, 0, len(g.Atoms))
	for i, a := range g.Atoms {
		if a.Map == 0 {
			return nil, errors.Newf(errors.CodeChemUnmappedAtom, "atom %d has no map index", i)
		}
		if prev, dup := seen[a.Map]; dup {
			return nil, errors.Newf(errors.CodeChemInvalidSMILES,
				"atoms %d and %d share map index %d", prev, i, a.Map)
		}
		seen[a.Map] = i
		order = append(order, i)
	}
	sort.Slice(order, func(x, y int) bool {
		return g.Atoms[order[x]].Map < g.Atoms[order[y]].Map
	})
	return order, nil
}

// TopologicalDistance returns the bond-path length between atoms i and j
// (0 for i==j, 1 for bonded, ...). Used for nonbonded 1-2/1-3/1-4 scaling.
func (g *Graph) TopologicalDistance(i, j int) int {
	if i == j {
		return 0
	}
	dist := make([]int, len(g.Atoms))
	for k := range dist {
		dist[k] = -1
	}
	dist[i] = 0
	queue := []int{i}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range g.Neighbors(cur) {
			if dist[n] >= 0 {
				continue
			}
			dist[n] = dist[cur] + 1
			if n == j {
				return dist[n]
			}
			queue = append(queue, n)
		}
	}
	return -1
}
