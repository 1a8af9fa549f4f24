package dataset

import (
	"strings"

	"github.com/google/uuid"

	"github.com/turtacn/forgeff/internal/domain/chem"
	"github.com/turtacn/forgeff/pkg/errors"
)

// Entry is one reference data point: a fully mapped molecule with its
// reference geometry and reference gradient. Rows are ordered by atom map
// index, so row i belongs to the atom mapped :i+1.
type Entry struct {
	ID     string
	SMILES string
	Graph  *chem.Graph

	// Positions are reference coordinates in angstrom.
	Positions [][3]float64
	// Gradients are reference energy gradients at the reference geometry.
	Gradients [][3]float64
}

// NewEntry builds an entry from a mapped SMILES and two XYZ blocks. The
// blocks must agree with the molecule on atom count and, row by map order,
// on element.
func NewEntry(smiles string, positions, gradients *Block) (*Entry, error) {
	g, err := chem.ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	order, err := g.MapOrder()
	if err != nil {
		return nil, err
	}

	if err := checkBlock(g, order, positions, "positions"); err != nil {
		return nil, err
	}
	if err := checkBlock(g, order, gradients, "gradients"); err != nil {
		return nil, err
	}

	e := &Entry{
		ID:        uuid.NewString(),
		SMILES:    smiles,
		Graph:     g,
		Positions: make([][3]float64, len(order)),
		Gradients: make([][3]float64, len(order)),
	}
	copy(e.Positions, positions.Rows)
	copy(e.Gradients, gradients.Rows)
	return e, nil
}

func checkBlock(g *chem.Graph, order []int, b *Block, kind string) error {
	if b == nil {
		return errors.Newf(errors.CodeDatasetInvalidXYZ, "missing %s block", kind)
	}
	if len(b.Rows) != len(order) {
		return errors.Newf(errors.CodeDatasetAtomMismatch,
			"%s block has %d atoms, molecule has %d", kind, len(b.Rows), len(order))
	}
	for row, idx := range order {
		want := g.Atoms[idx].Element
		got := chem.ElementNumber(normalizeSymbol(b.Symbols[row]))
		if got != want {
			return errors.Newf(errors.CodeDatasetAtomMismatch,
				"%s row %d is %s, molecule atom :%d is %s",
				kind, row+1, b.Symbols[row], g.Atoms[idx].Map, chem.ElementSymbol(want))
		}
	}
	return nil
}

func normalizeSymbol(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 1 {
		return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	}
	return strings.ToUpper(s)
}

// Dataset is an ordered collection of entries keyed by id.
type Dataset struct {
	entries []*Entry
	byID    map[string]*Entry
}

func New() *Dataset {
	return &Dataset{byID: make(map[string]*Entry)}
}

func (d *Dataset) Add(e *Entry) error {
	if _, dup := d.byID[e.ID]; dup {
		return errors.Newf(errors.CodeConflict, "duplicate entry id %q", e.ID)
	}
	d.byID[e.ID] = e
	d.entries = append(d.entries, e)
	return nil
}

func (d *Dataset) Get(id string) (*Entry, error) {
	e, ok := d.byID[id]
	if !ok {
		return nil, errors.Newf(errors.CodeDatasetEntryNotFound, "entry %q", id)
	}
	return e, nil
}

func (d *Dataset) Entries() []*Entry { return d.entries }

func (d *Dataset) Len() int { return len(d.entries) }
