package chem

import (
	"strconv"
	"strings"

	"github.com/turtacn/forgeff/pkg/errors"
)

// ParseSMILES reads a SMILES string into a Graph. The supported subset
// covers the dataset input format: bracket atoms with optional charge and
// atom map (e.g. [C:1], [O-:3], [Cl:7]), organic-subset bare atoms (B, C, N,
// O, P, S, F, Cl, Br, I), bond symbols - = # : / \, branches, and ring
// closures (single digits and %nn). Stereochemistry markers inside brackets
// are accepted and ignored. Implicit hydrogens are NOT synthesised; dataset
// molecules carry all hydrogens explicitly and fully mapped.
func ParseSMILES(s string) (*Graph, error) {
	p := &smilesParser{input: s}
	if err := p.run(); err != nil {
		return nil, err
	}
	return NewGraph(p.atoms, p.bonds)
}

type ringBondRef struct {
	atom  int
	order int // 0 means unspecified
}

type smilesParser struct {
	input string
	pos   int

	atoms []Atom
	bonds []Bond

	prev      int // index of the previous atom, -1 at start
	pendOrder int // bond order pending before the next atom, 0 = default
	stack     []int
	rings     map[int]ringBondRef
}

func (p *smilesParser) errf(format string, args ...interface{}) error {
	return errors.Newf(errors.CodeChemInvalidSMILES, format, args...).
		WithDetail("smiles=" + p.input)
}

func (p *smilesParser) run() error {
	p.prev = -1
	p.rings = make(map[int]ringBondRef)

	for p.pos < len(p.input) {
		c := p.input[p.pos]
		switch {
		case c == '[':
			if err := p.parseBracketAtom(); err != nil {
				return err
			}
		case c == '(':
			if p.prev < 0 {
				return p.errf("branch before any atom at position %d", p.pos)
			}
			p.stack = append(p.stack, p.prev)
			p.pos++
		case c == ')':
			if len(p.stack) == 0 {
				return p.errf("unmatched ')' at position %d", p.pos)
			}
			p.prev = p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			p.pos++
		case c == '-':
			p.pendOrder = 1
			p.pos++
		case c == '=':
			p.pendOrder = 2
			p.pos++
		case c == '#':
			p.pendOrder = 3
			p.pos++
		case c == ':' || c == '/' || c == '\\':
			// Aromatic bonds are re-perceived; stereo bonds collapse to single.
			p.pendOrder = 1
			p.pos++
		case c >= '0' && c <= '9':
			if err := p.closeRing(int(c - '0')); err != nil {
				return err
			}
			p.pos++
		case c == '%':
			if p.pos+2 >= len(p.input) {
				return p.errf("truncated %%nn ring closure at position %d", p.pos)
			}
			n, err := strconv.Atoi(p.input[p.pos+1 : p.pos+3])
			if err != nil {
				return p.errf("bad %%nn ring closure at position %d", p.pos)
			}
			if err := p.closeRing(n); err != nil {
				return err
			}
			p.pos += 3
		case c == '.':
			return p.errf("disconnected structures are not supported")
		default:
			if err := p.parseBareAtom(); err != nil {
				return err
			}
		}
	}

	if len(p.stack) != 0 {
		return p.errf("unclosed '(' branch")
	}
	if len(p.rings) != 0 {
		return p.errf("unclosed ring bond")
	}
	if len(p.atoms) == 0 {
		return p.errf("empty SMILES")
	}
	return nil
}

// addAtom appends an atom and bonds it to the previous one.
func (p *smilesParser) addAtom(a Atom) {
	idx := len(p.atoms)
	p.atoms = append(p.atoms, a)
	if p.prev >= 0 {
		order := p.pendOrder
		if order == 0 {
			order = 1
		}
		p.bonds = append(p.bonds, Bond{A: p.prev, B: idx, Order: order})
	}
	p.prev = idx
	p.pendOrder = 0
}

func (p *smilesParser) closeRing(n int) error {
	if p.prev < 0 {
		return p.errf("ring closure before any atom")
	}
	if ref, open := p.rings[n]; open {
		delete(p.rings, n)
		if ref.atom == p.prev {
			return p.errf("ring bond %d closes on its own atom", n)
		}
		order := p.pendOrder
		if order == 0 {
			order = ref.order
		}
		if order == 0 {
			order = 1
		}
		p.bonds = append(p.bonds, Bond{A: ref.atom, B: p.prev, Order: order})
		p.pendOrder = 0
		return nil
	}
	p.rings[n] = ringBondRef{atom: p.prev, order: p.pendOrder}
	p.pendOrder = 0
	return nil
}

// parseBareAtom handles organic-subset atoms written without brackets.
func (p *smilesParser) parseBareAtom() error {
	rest := p.input[p.pos:]
	aromatic := false

	var sym string
	switch {
	case strings.HasPrefix(rest, "Cl"):
		sym = "Cl"
	case strings.HasPrefix(rest, "Br"):
		sym = "Br"
	case rest[0] >= 'A' && rest[0] <= 'Z':
		sym = rest[:1]
	case rest[0] >= 'a' && rest[0] <= 'z':
		// aromatic organic subset: b c n o p s
		sym = strings.ToUpper(rest[:1])
		aromatic = true
	default:
		return p.errf("unexpected character %q at position %d", rest[0], p.pos)
	}

	num := ElementNumber(sym)
	if num == 0 {
		return p.errf("unknown element %q at position %d", sym, p.pos)
	}
	p.pos += len(sym)
	p.addAtom(Atom{Element: num, Aromatic: aromatic})
	return nil
}

// parseBracketAtom handles [<symbol><chirality?><Hn?><charge?>:<map?>].
func (p *smilesParser) parseBracketAtom() error {
	end := strings.IndexByte(p.input[p.pos:], ']')
	if end < 0 {
		return p.errf("unclosed '[' at position %d", p.pos)
	}
	body := p.input[p.pos+1 : p.pos+end]
	p.pos += end + 1

	i := 0
	// optional isotope digits are accepted and ignored
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		i++
	}
	if i >= len(body) {
		return p.errf("bracket atom %q has no element symbol", body)
	}

	var sym string
	if i+1 < len(body) && body[i] >= 'A' && body[i] <= 'Z' && body[i+1] >= 'a' && body[i+1] <= 'z' &&
		ElementNumber(body[i:i+2]) != 0 {
		sym = body[i : i+2]
	} else {
		sym = body[i : i+1]
	}
	aromatic := sym[0] >= 'a' && sym[0] <= 'z'
	num := ElementNumber(strings.ToUpper(sym[:1]) + sym[1:])
	if num == 0 {
		return p.errf("unknown element %q in bracket atom", sym)
	}
	i += len(sym)

	atom := Atom{Element: num, Aromatic: aromatic}

	for i < len(body) {
		switch body[i] {
		case '@':
			// chirality ignored
			i++
		case 'H':
			// explicit hydrogen count inside brackets; the dataset format
			// writes hydrogens as mapped atoms instead, so this is ignored.
			i++
			for i < len(body) && body[i] >= '0' && body[i] <= '9' {
				i++
			}
		case '+', '-':
			sign := 1
			if body[i] == '-' {
				sign = -1
			}
			n := 0
			for i < len(body) && (body[i] == '+' || body[i] == '-') {
				n++
				i++
			}
			if i < len(body) && body[i] >= '0' && body[i] <= '9' {
				j := i
				for j < len(body) && body[j] >= '0' && body[j] <= '9' {
					j++
				}
				v, _ := strconv.Atoi(body[i:j])
				n = v
				i = j
			}
			atom.Charge = sign * n
		case ':':
			j := i + 1
			for j < len(body) && body[j] >= '0' && body[j] <= '9' {
				j++
			}
			if j == i+1 {
				return p.errf("bracket atom %q has ':' without map index", body)
			}
			m, _ := strconv.Atoi(body[i+1 : j])
			atom.Map = m
			i = j
		default:
			return p.errf("unsupported token %q in bracket atom %q", body[i], body)
		}
	}

	p.addAtom(atom)
	return nil
}
