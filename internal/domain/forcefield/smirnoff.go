package forcefield

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/turtacn/forgeff/internal/domain/chem"
	"github.com/turtacn/forgeff/pkg/errors"
)

// AromaticityMDL is the aromaticity model this package perceives; documents
// declaring another model are loadable but flagged by validation.
const AromaticityMDL = "AROMATICITY_MDL"

type xmlEntry struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

type xmlSection struct {
	Attrs []xml.Attr `xml:",any,attr"`

	Constraints []xmlEntry `xml:"Constraint,omitempty"`
	Bonds       []xmlEntry `xml:"Bond,omitempty"`
	Angles      []xmlEntry `xml:"Angle,omitempty"`
	Propers     []xmlEntry `xml:"Proper,omitempty"`
	Impropers   []xmlEntry `xml:"Improper,omitempty"`
	Atoms       []xmlEntry `xml:"Atom,omitempty"`
	Charges     []xmlEntry `xml:"LibraryCharge,omitempty"`
}

func (s *xmlSection) entries() []xmlEntry {
	for _, e := range [][]xmlEntry{s.Constraints, s.Bonds, s.Angles, s.Propers, s.Impropers, s.Atoms, s.Charges} {
		if len(e) > 0 {
			return e
		}
	}
	return nil
}

type xmlDoc struct {
	XMLName          xml.Name `xml:"SMIRNOFF"`
	Version          string   `xml:"version,attr"`
	AromaticityModel string   `xml:"aromaticity_model,attr"`

	Constraints    *xmlSection `xml:"Constraints"`
	Bonds          *xmlSection `xml:"Bonds"`
	Angles         *xmlSection `xml:"Angles"`
	Propers        *xmlSection `xml:"ProperTorsions"`
	Impropers      *xmlSection `xml:"ImproperTorsions"`
	VdW            *xmlSection `xml:"vdW"`
	Electrostatics *xmlSection `xml:"Electrostatics"`
	LibraryCharges *xmlSection `xml:"LibraryCharges"`
	ToolkitAM1BCC  *xmlSection `xml:"ToolkitAM1BCC"`
}

// Load parses a SMIRNOFF document: section metadata, every parameter with
// its compiled SMARTS pattern, and all numeric attributes as quantities.
func Load(r io.Reader) (*ForceField, error) {
	var doc xmlDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, errors.CodeForceFieldParseFailed, "decode SMIRNOFF document")
	}

	ff := &ForceField{
		Version:          doc.Version,
		AromaticityModel: doc.AromaticityModel,
		ToolkitAM1BCC:    doc.ToolkitAM1BCC != nil,
	}

	var err error
	if ff.Constraints, err = loadSection(doc.Constraints, "Constraints"); err != nil {
		return nil, err
	}
	if ff.Bonds, err = loadSection(doc.Bonds, "Bonds"); err != nil {
		return nil, err
	}
	if ff.Angles, err = loadSection(doc.Angles, "Angles"); err != nil {
		return nil, err
	}
	if ff.Propers, err = loadSection(doc.Propers, "ProperTorsions"); err != nil {
		return nil, err
	}
	if ff.Impropers, err = loadSection(doc.Impropers, "ImproperTorsions"); err != nil {
		return nil, err
	}
	if ff.VdW, err = loadSection(doc.VdW, "vdW"); err != nil {
		return nil, err
	}
	if ff.Electrostatics, err = loadSection(doc.Electrostatics, "Electrostatics"); err != nil {
		return nil, err
	}
	if ff.LibraryCharges, err = loadSection(doc.LibraryCharges, "LibraryCharges"); err != nil {
		return nil, err
	}
	return ff, nil
}

func loadSection(src *xmlSection, name string) (*Section, error) {
	if src == nil {
		return nil, nil
	}
	sec := &Section{}
	for _, a := range src.Attrs {
		sec.Meta.Set(a.Name.Local, a.Value)
	}
	for i, e := range src.entries() {
		p, err := loadParameter(e, name, i)
		if err != nil {
			return nil, err
		}
		if err := sec.Add(p); err != nil {
			return nil, errors.Wrap(err, errors.GetCode(err), "section "+name)
		}
	}
	return sec, nil
}

// loadParameter reads one entry. Attributes that start with a digit or sign
// parse as quantities; everything else (smirks, id, names) stays raw.
func loadParameter(e xmlEntry, section string, pos int) (*Parameter, error) {
	p := NewParameter("", "", nil)
	for _, a := range e.Attrs {
		name, val := a.Name.Local, a.Value
		switch name {
		case "smirks":
			pat, err := chem.ParseSMARTS(val)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeChemInvalidSMARTS,
					"section "+section+" entry "+strconv.Itoa(pos))
			}
			p.SMIRKS = val
			p.Pattern = pat
			p.SetRawAttr(name, val)
		case "id":
			p.ID = val
			p.SetRawAttr(name, val)
		default:
			if looksNumeric(val) {
				q, err := ParseQuantity(val)
				if err != nil {
					return nil, errors.Wrap(err, errors.GetCode(err),
						"section "+section+" entry "+strconv.Itoa(pos)+" attribute "+name)
				}
				p.SetAttr(name, q)
			} else {
				p.SetRawAttr(name, val)
			}
		}
	}
	if p.ID == "" {
		return nil, errors.Newf(errors.CodeForceFieldParseFailed,
			"section %s entry %d has no id", section, pos)
	}
	return p, nil
}

func looksNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	c := s[0]
	return c >= '0' && c <= '9' || c == '-' || c == '+' || c == '.'
}

// Clone deep-copies a force field through its document form.
func Clone(ff *ForceField) (*ForceField, error) {
	var buf bytes.Buffer
	if err := Save(&buf, ff); err != nil {
		return nil, err
	}
	return Load(&buf)
}

// Save writes the force field back out as a SMIRNOFF document, preserving
// section order and per-parameter attribute order.
func Save(w io.Writer, ff *ForceField) error {
	doc := xmlDoc{
		Version:          ff.Version,
		AromaticityModel: ff.AromaticityModel,

		Constraints:    saveSection(ff.Constraints, "Constraint"),
		Bonds:          saveSection(ff.Bonds, "Bond"),
		Angles:         saveSection(ff.Angles, "Angle"),
		Propers:        saveSection(ff.Propers, "Proper"),
		Impropers:      saveSection(ff.Impropers, "Improper"),
		VdW:            saveSection(ff.VdW, "Atom"),
		Electrostatics: saveSection(ff.Electrostatics, "LibraryCharge"),
		LibraryCharges: saveSection(ff.LibraryCharges, "LibraryCharge"),
	}
	if ff.ToolkitAM1BCC {
		doc.ToolkitAM1BCC = &xmlSection{Attrs: []xml.Attr{attr("version", "0.3")}}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.Wrap(err, errors.CodeForceFieldWriteFailed, "write XML header")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, errors.CodeForceFieldWriteFailed, "encode SMIRNOFF document")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, errors.CodeForceFieldWriteFailed, "flush SMIRNOFF document")
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func saveSection(sec *Section, entryTag string) *xmlSection {
	if sec == nil {
		return nil
	}
	out := &xmlSection{}
	for _, name := range sec.Meta.Names() {
		v, _ := sec.Meta.Get(name)
		out.Attrs = append(out.Attrs, attr(name, v))
	}
	entries := make([]xmlEntry, 0, len(sec.Params))
	for _, p := range sec.Params {
		var e xmlEntry
		for _, name := range p.AttrNames() {
			if v, ok := p.RawAttr(name); ok {
				e.Attrs = append(e.Attrs, attr(name, v))
				continue
			}
			q, _ := p.Attr(name)
			e.Attrs = append(e.Attrs, attr(name, q.String()))
		}
		entries = append(entries, e)
	}
	switch entryTag {
	case "Constraint":
		out.Constraints = entries
	case "Bond":
		out.Bonds = entries
	case "Angle":
		out.Angles = entries
	case "Proper":
		out.Propers = entries
	case "Improper":
		out.Impropers = entries
	case "Atom":
		out.Atoms = entries
	case "LibraryCharge":
		out.Charges = entries
	}
	return out
}
