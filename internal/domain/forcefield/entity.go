package forcefield

import (
	"fmt"
	"strconv"

	"github.com/turtacn/forgeff/internal/domain/chem"
	"github.com/turtacn/forgeff/pkg/errors"
)

// ModelKind identifies one energy model of a chemical system. The order
// matches the positional model indices used by fit strategies.
type ModelKind int

const (
	ModelBonds ModelKind = iota
	ModelAngles
	ModelTorsions
	ModelOutOfPlanes
	ModelElectrostatics
	ModelVdW

	modelCount
)

var modelNames = [...]string{"bonds", "angles", "torsions", "outofplanes", "electrostatics", "vdw"}

func (m ModelKind) String() string {
	if m < 0 || int(m) >= len(modelNames) {
		return "model" + strconv.Itoa(int(m))
	}
	return modelNames[m]
}

// ParseModelKind resolves a model name back to its kind.
func ParseModelKind(name string) (ModelKind, error) {
	for i, n := range modelNames {
		if n == name {
			return ModelKind(i), nil
		}
	}
	return 0, errors.Newf(errors.CodeForceFieldUnknownModel, "unknown model %q", name)
}

// Parameter is one SMIRKS-keyed entry of a parameter section. Attrs holds
// every numeric attribute by its document name; attrOrder preserves the
// original attribute order for writing.
type Parameter struct {
	SMIRKS  string
	ID      string
	Pattern *chem.Pattern

	attrs     map[string]Quantity
	raws      map[string]string
	attrOrder []string
}

// NewParameter builds a parameter with no attributes.
func NewParameter(smirks, id string, pattern *chem.Pattern) *Parameter {
	return &Parameter{
		SMIRKS:  smirks,
		ID:      id,
		Pattern: pattern,
		attrs:   make(map[string]Quantity),
		raws:    make(map[string]string),
	}
}

func (p *Parameter) noteOrder(name string) {
	if _, q := p.attrs[name]; q {
		return
	}
	if _, r := p.raws[name]; r {
		return
	}
	p.attrOrder = append(p.attrOrder, name)
}

// SetAttr stores a named quantity, appending to the write order on first set.
func (p *Parameter) SetAttr(name string, q Quantity) {
	p.noteOrder(name)
	p.attrs[name] = q
}

// SetRawAttr stores a non-numeric attribute such as smirks or id.
func (p *Parameter) SetRawAttr(name, value string) {
	p.noteOrder(name)
	p.raws[name] = value
}

// Attr returns the named quantity.
func (p *Parameter) Attr(name string) (Quantity, bool) {
	q, ok := p.attrs[name]
	return q, ok
}

// RawAttr returns the named non-numeric attribute.
func (p *Parameter) RawAttr(name string) (string, bool) {
	v, ok := p.raws[name]
	return v, ok
}

// AttrNames returns attribute names in document order.
func (p *Parameter) AttrNames() []string { return p.attrOrder }

// Quantities iterates the numeric attributes in document order.
func (p *Parameter) Quantities() map[string]Quantity { return p.attrs }

// Terms counts the 1-based periodic terms (k1, k2, ...) the parameter
// carries. Zero for non-torsion parameters.
func (p *Parameter) Terms() int {
	n := 0
	for {
		if _, ok := p.attrs["k"+strconv.Itoa(n+1)]; !ok {
			return n
		}
		n++
	}
}

// Section is one ordered parameter hierarchy plus its section-level
// attributes (potential form, scaling factors, cutoffs).
type Section struct {
	Meta   OrderedAttrs
	Params []*Parameter

	byID map[string]*Parameter
}

// ByID returns the parameter with the given id.
func (s *Section) ByID(id string) (*Parameter, bool) {
	if s == nil || s.byID == nil {
		return nil, false
	}
	p, ok := s.byID[id]
	return p, ok
}

// Add appends a parameter and indexes it by id.
func (s *Section) Add(p *Parameter) error {
	if s.byID == nil {
		s.byID = make(map[string]*Parameter)
	}
	if _, dup := s.byID[p.ID]; dup {
		return errors.Newf(errors.CodeForceFieldDuplicateID, "duplicate parameter id %q", p.ID)
	}
	s.byID[p.ID] = p
	s.Params = append(s.Params, p)
	return nil
}

// Hierarchy renders the section as an ordered match hierarchy. Entry order is
// document order; labelling applies last match wins.
func (s *Section) Hierarchy() []chem.HierarchyEntry {
	if s == nil {
		return nil
	}
	out := make([]chem.HierarchyEntry, 0, len(s.Params))
	for _, p := range s.Params {
		out = append(out, chem.HierarchyEntry{ID: p.ID, Pattern: p.Pattern})
	}
	return out
}

// OrderedAttrs is a string attribute map that remembers insertion order.
type OrderedAttrs struct {
	names  []string
	values map[string]string
}

func (a *OrderedAttrs) Set(name, value string) {
	if a.values == nil {
		a.values = make(map[string]string)
	}
	if _, ok := a.values[name]; !ok {
		a.names = append(a.names, name)
	}
	a.values[name] = value
}

func (a *OrderedAttrs) Get(name string) (string, bool) {
	v, ok := a.values[name]
	return v, ok
}

func (a *OrderedAttrs) Float(name string, def float64) float64 {
	v, ok := a.values[name]
	if !ok {
		return def
	}
	q, err := ParseQuantity(v)
	if err != nil {
		return def
	}
	return q.Value
}

func (a *OrderedAttrs) Names() []string { return a.names }

// ForceField is a parsed SMIRNOFF document: the parameter sections, the
// section metadata needed to evaluate them, and enough structure to write the
// document back out.
type ForceField struct {
	Version          string
	AromaticityModel string

	Constraints    *Section
	Bonds          *Section
	Angles         *Section
	Propers        *Section
	Impropers      *Section
	VdW            *Section
	Electrostatics *Section
	LibraryCharges *Section
	ToolkitAM1BCC  bool
}

// SectionFor returns the section backing a model kind. Electrostatics
// resolves to LibraryCharges since that is where per-pattern charges live.
func (ff *ForceField) SectionFor(model ModelKind) (*Section, error) {
	switch model {
	case ModelBonds:
		return ff.Bonds, nil
	case ModelAngles:
		return ff.Angles, nil
	case ModelTorsions:
		return ff.Propers, nil
	case ModelOutOfPlanes:
		return ff.Impropers, nil
	case ModelElectrostatics:
		return ff.LibraryCharges, nil
	case ModelVdW:
		return ff.VdW, nil
	}
	return nil, errors.Newf(errors.CodeForceFieldUnknownModel, "no section for model %d", model)
}

// Key addresses one numeric value of a force field: a model, a parameter id,
// a term symbol and a zero-based term index. Symbols follow the fit
// vocabulary: bonds and angles expose l (equilibrium) and k (stiffness),
// torsion models expose n, p, k, i per periodic term, vdW exposes e and r,
// charges expose q.
type Key struct {
	Model  ModelKind
	ID     string
	Symbol string
	Index  int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s%d", k.Model, k.ID, k.Symbol, k.Index)
}

// attrForKey translates a key to the document attribute carrying its value.
func (ff *ForceField) attrForKey(k Key) (string, error) {
	switch k.Model {
	case ModelBonds:
		switch k.Symbol {
		case "l":
			return "length", nil
		case "k":
			return "k", nil
		}
	case ModelAngles:
		switch k.Symbol {
		case "l":
			return "angle", nil
		case "k":
			return "k", nil
		}
	case ModelTorsions, ModelOutOfPlanes:
		idx := strconv.Itoa(k.Index + 1)
		switch k.Symbol {
		case "n":
			return "periodicity" + idx, nil
		case "p":
			return "phase" + idx, nil
		case "k":
			return "k" + idx, nil
		case "i":
			return "idivf" + idx, nil
		}
	case ModelVdW:
		switch k.Symbol {
		case "e":
			return "epsilon", nil
		case "r":
			return "rmin_half", nil
		case "s":
			return "sigma", nil
		}
	case ModelElectrostatics:
		if k.Symbol == "q" {
			return "charge" + strconv.Itoa(k.Index+1), nil
		}
	}
	return "", errors.Newf(errors.CodeForceFieldUnknownKey,
		"model %s has no symbol %q", k.Model, k.Symbol)
}

// Value reads the numeric value addressed by a key.
func (ff *ForceField) Value(k Key) (float64, error) {
	q, err := ff.quantity(k)
	if err != nil {
		return 0, err
	}
	return q.Value, nil
}

func (ff *ForceField) quantity(k Key) (Quantity, error) {
	sec, err := ff.SectionFor(k.Model)
	if err != nil {
		return Quantity{}, err
	}
	p, ok := sec.ByID(k.ID)
	if !ok {
		return Quantity{}, errors.Newf(errors.CodeForceFieldUnknownKey,
			"model %s has no parameter %q", k.Model, k.ID)
	}
	attr, err := ff.attrForKey(k)
	if err != nil {
		return Quantity{}, err
	}
	q, ok := p.Attr(attr)
	if !ok {
		return Quantity{}, errors.Newf(errors.CodeForceFieldUnknownKey,
			"parameter %s/%s has no attribute %q", k.Model, k.ID, attr)
	}
	return q, nil
}

// SetValue writes the numeric value addressed by a key, preserving its unit.
func (ff *ForceField) SetValue(k Key, v float64) error {
	sec, err := ff.SectionFor(k.Model)
	if err != nil {
		return err
	}
	p, ok := sec.ByID(k.ID)
	if !ok {
		return errors.Newf(errors.CodeForceFieldUnknownKey,
			"model %s has no parameter %q", k.Model, k.ID)
	}
	attr, err := ff.attrForKey(k)
	if err != nil {
		return err
	}
	q, ok := p.Attr(attr)
	if !ok {
		return errors.Newf(errors.CodeForceFieldUnknownKey,
			"parameter %s/%s has no attribute %q", k.Model, k.ID, attr)
	}
	p.SetAttr(attr, q.WithValue(v))
	return nil
}

// Keys enumerates the keys of one parameter restricted to the given symbols.
// Torsion models yield one key per periodic term and symbol.
func (ff *ForceField) Keys(model ModelKind, id string, symbols []string) ([]Key, error) {
	sec, err := ff.SectionFor(model)
	if err != nil {
		return nil, err
	}
	p, ok := sec.ByID(id)
	if !ok {
		return nil, errors.Newf(errors.CodeForceFieldUnknownKey,
			"model %s has no parameter %q", model, id)
	}

	var out []Key
	for _, sym := range symbols {
		switch model {
		case ModelTorsions, ModelOutOfPlanes:
			for i := 0; i < p.Terms(); i++ {
				k := Key{Model: model, ID: id, Symbol: sym, Index: i}
				if attr, err := ff.attrForKey(k); err != nil {
					return nil, err
				} else if _, ok := p.Attr(attr); ok {
					out = append(out, k)
				}
			}
		default:
			k := Key{Model: model, ID: id, Symbol: sym}
			attr, err := ff.attrForKey(k)
			if err != nil {
				return nil, err
			}
			if _, ok := p.Attr(attr); ok {
				out = append(out, k)
			}
		}
	}
	if len(out) == 0 {
		return nil, errors.Newf(errors.CodeForceFieldUnknownKey,
			"parameter %s/%s carries none of %v", model, id, symbols)
	}
	return out, nil
}
