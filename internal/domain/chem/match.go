package chem

import (
	"fmt"
	"sort"
)

// Matches enumerates embeddings of the pattern in g and returns the distinct
// tuples of molecule atom indices bound to the pattern's mapped atoms, ordered
// by map number. Unmapped pattern atoms constrain the environment but do not
// appear in the tuples.
func (p *Pattern) Matches(g *Graph) [][]int {
	if len(p.atoms) == 0 || len(g.Atoms) == 0 {
		return nil
	}

	m := &matcher{p: p, g: g, assign: make([]int, len(p.atoms)), used: make([]bool, len(g.Atoms))}
	for i := range m.assign {
		m.assign[i] = -1
	}
	// Bonds incident to each pattern atom, for incremental consistency checks.
	m.incident = make([][]int, len(p.atoms))
	for bi, b := range p.bonds {
		m.incident[b.a] = append(m.incident[b.a], bi)
		m.incident[b.b] = append(m.incident[b.b], bi)
	}

	seen := make(map[string]struct{})
	var out [][]int
	m.emit = func() {
		tuple := make([]int, len(p.mapped))
		for i, pi := range p.mapped {
			tuple[i] = m.assign[pi]
		}
		key := fmt.Sprint(tuple)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, tuple)
	}
	m.extend(0)
	return out
}

type matcher struct {
	p        *Pattern
	g        *Graph
	assign   []int
	used     []bool
	incident [][]int
	emit     func()
}

func (m *matcher) extend(k int) {
	if k == len(m.p.atoms) {
		m.emit()
		return
	}
	for gi := range m.g.Atoms {
		if m.used[gi] || !m.p.atoms[k].expr.matches(m.g, gi) {
			continue
		}
		if !m.bondsConsistent(k, gi) {
			continue
		}
		m.assign[k] = gi
		m.used[gi] = true
		m.extend(k + 1)
		m.used[gi] = false
		m.assign[k] = -1
	}
}

// bondsConsistent checks every pattern bond between atom k and an already
// assigned atom against the molecule.
func (m *matcher) bondsConsistent(k, gi int) bool {
	for _, bi := range m.incident[k] {
		b := m.p.bonds[bi]
		other := b.a
		if other == k {
			other = b.b
		}
		og := m.assign[other]
		if og < 0 {
			continue
		}
		gbi := m.g.BondBetween(og, gi)
		if gbi < 0 || !b.expr.matches(m.g, gbi) {
			return false
		}
	}
	return true
}

// HierarchyEntry is one pattern in an ordered parameter hierarchy.
type HierarchyEntry struct {
	ID      string
	Pattern *Pattern
}

// Labels maps a canonical topology tuple to the id of the hierarchy entry
// that assigned it.
type Labels map[string]string

// TupleKey renders a topology tuple of atom indices canonically: bonds,
// angles and torsions are direction-normalized so (i,j) and (j,i) collide.
func TupleKey(t []int) string {
	c := CanonicalTuple(t)
	return fmt.Sprint(c)
}

// CanonicalTuple orients a topology tuple so the lesser end comes first.
// Improper torsions are not reordered here; their central atom convention is
// handled by the caller.
func CanonicalTuple(t []int) []int {
	c := make([]int, len(t))
	copy(c, t)
	if len(c) >= 2 && c[0] > c[len(c)-1] {
		for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
			c[i], c[j] = c[j], c[i]
		}
	}
	return c
}

// LabelHierarchy assigns every matched topology tuple the id of the LAST
// entry whose pattern matches it. Entries are ordered most general first, so
// a later, more specific pattern overrides an earlier one.
func LabelHierarchy(g *Graph, entries []HierarchyEntry) Labels {
	labels := make(Labels)
	for _, e := range entries {
		for _, t := range e.Pattern.Matches(g) {
			labels[TupleKey(t)] = e.ID
		}
	}
	return labels
}

// SortedTupleKeys returns the label keys in a stable order for reporting.
func (l Labels) SortedTupleKeys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
