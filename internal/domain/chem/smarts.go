package chem

import (
	"strconv"
	"strings"

	"github.com/turtacn/forgeff/pkg/errors"
)

// Pattern is a parsed SMARTS query. The supported subset covers the pattern
// language of the bundled force fields: bracket atoms with primitives
// * #n Xn Hn rn a A charge, logical operators ! & , ; (standard SMARTS
// precedence), bond primitives - = # : ~ @ with the same operators, branches,
// ring closures, and atom maps. Recursive environments $(...) parse but never
// match; hierarchy entries that rely on them simply never fire, which for a
// last-match-wins hierarchy means the preceding, more general entry is used.
type Pattern struct {
	Source string

	atoms []patternAtom
	bonds []patternBond
	// mapped[i] is the pattern-atom index carrying map number i+1.
	mapped []int
}

type patternAtom struct {
	expr   atomExpr
	mapIdx int // 1-based SMARTS atom map, 0 if unmapped
}

type patternBond struct {
	a, b int
	expr bondExpr
}

// MappedAtoms returns the number of mapped atoms (the topology arity:
// 1 = atom, 2 = bond, 3 = angle, 4 = torsion).
func (p *Pattern) MappedAtoms() int { return len(p.mapped) }

// Complexity is a crude size measure of the pattern used by the chemical
// objective: the number of primitive constraints it carries.
func (p *Pattern) Complexity() int {
	n := 0
	for _, a := range p.atoms {
		n += a.expr.size()
	}
	for _, b := range p.bonds {
		n += b.expr.size()
	}
	return n
}

// ─── atom expressions ───

type atomExpr interface {
	matches(g *Graph, i int) bool
	size() int
}

type atomAny struct{}

func (atomAny) matches(*Graph, int) bool { return true }
func (atomAny) size() int                { return 1 }

type atomNumber struct{ n int }

func (e atomNumber) matches(g *Graph, i int) bool { return g.Atoms[i].Element == e.n }
func (atomNumber) size() int                      { return 1 }

// atomElement is a bare element symbol: element plus aromaticity constraint.
type atomElement struct {
	n        int
	aromatic bool
}

func (e atomElement) matches(g *Graph, i int) bool {
	return g.Atoms[i].Element == e.n && g.Atoms[i].Aromatic == e.aromatic
}
func (atomElement) size() int { return 1 }

type atomDegree struct{ n int }

func (e atomDegree) matches(g *Graph, i int) bool { return g.Degree(i) == e.n }
func (atomDegree) size() int                      { return 1 }

type atomHCount struct{ n int }

func (e atomHCount) matches(g *Graph, i int) bool { return g.HCount(i) == e.n }
func (atomHCount) size() int                      { return 1 }

// atomRing implements r / rn: n == 0 means "in any ring".
type atomRing struct{ n int }

func (e atomRing) matches(g *Graph, i int) bool {
	if e.n == 0 {
		return g.InRing(i)
	}
	return g.RingSize(i) == e.n
}
func (atomRing) size() int { return 1 }

// atomRingConn implements x / xn, the ring-bond count of the atom.
// n == 0 means "at least one ring bond".
type atomRingConn struct{ n int }

func (e atomRingConn) matches(g *Graph, i int) bool {
	c := 0
	for _, bi := range g.BondIndices(i) {
		if g.Bonds[bi].InRing {
			c++
		}
	}
	if e.n == 0 {
		return c > 0
	}
	return c == e.n
}
func (atomRingConn) size() int { return 1 }

type atomAromatic struct{ want bool }

func (e atomAromatic) matches(g *Graph, i int) bool { return g.Atoms[i].Aromatic == e.want }
func (atomAromatic) size() int                      { return 1 }

type atomCharge struct{ n int }

func (e atomCharge) matches(g *Graph, i int) bool { return g.Atoms[i].Charge == e.n }
func (atomCharge) size() int                      { return 1 }

// atomRecursive stands in for $(...) environments, which the simplified
// matcher does not evaluate.
type atomRecursive struct{}

func (atomRecursive) matches(*Graph, int) bool { return false }
func (atomRecursive) size() int                { return 2 }

type atomNot struct{ e atomExpr }

func (e atomNot) matches(g *Graph, i int) bool { return !e.e.matches(g, i) }
func (e atomNot) size() int                    { return e.e.size() }

type atomAnd struct{ es []atomExpr }

func (e atomAnd) matches(g *Graph, i int) bool {
	for _, sub := range e.es {
		if !sub.matches(g, i) {
			return false
		}
	}
	return true
}
func (e atomAnd) size() int {
	n := 0
	for _, sub := range e.es {
		n += sub.size()
	}
	return n
}

type atomOr struct{ es []atomExpr }

func (e atomOr) matches(g *Graph, i int) bool {
	for _, sub := range e.es {
		if sub.matches(g, i) {
			return true
		}
	}
	return false
}
func (e atomOr) size() int {
	n := 0
	for _, sub := range e.es {
		n += sub.size()
	}
	return n
}

// ─── bond expressions ───

type bondExpr interface {
	matches(g *Graph, bi int) bool
	size() int
}

type bondOrder struct{ order int } // - = # : single/double/triple, non-aromatic for single

func (e bondOrder) matches(g *Graph, bi int) bool {
	b := g.Bonds[bi]
	if e.order == 1 {
		return b.Order == 1 && !b.Aromatic
	}
	return b.Order == e.order && !b.Aromatic
}
func (bondOrder) size() int { return 1 }

type bondAromatic struct{}

func (bondAromatic) matches(g *Graph, bi int) bool { return g.Bonds[bi].Aromatic }
func (bondAromatic) size() int                     { return 1 }

type bondAnyKind struct{}

func (bondAnyKind) matches(*Graph, int) bool { return true }
func (bondAnyKind) size() int                { return 1 }

type bondInRing struct{}

func (bondInRing) matches(g *Graph, bi int) bool { return g.Bonds[bi].InRing }
func (bondInRing) size() int                     { return 1 }

// bondDefault is the implicit bond between adjacent SMARTS atoms:
// single or aromatic.
type bondDefault struct{}

func (bondDefault) matches(g *Graph, bi int) bool {
	b := g.Bonds[bi]
	return b.Aromatic || (b.Order == 1 && !b.Aromatic)
}
func (bondDefault) size() int { return 0 }

type bondNot struct{ e bondExpr }

func (e bondNot) matches(g *Graph, bi int) bool { return !e.e.matches(g, bi) }
func (e bondNot) size() int                     { return e.e.size() }

type bondAnd struct{ es []bondExpr }

func (e bondAnd) matches(g *Graph, bi int) bool {
	for _, sub := range e.es {
		if !sub.matches(g, bi) {
			return false
		}
	}
	return true
}
func (e bondAnd) size() int {
	n := 0
	for _, sub := range e.es {
		n += sub.size()
	}
	return n
}

type bondOr struct{ es []bondExpr }

func (e bondOr) matches(g *Graph, bi int) bool {
	for _, sub := range e.es {
		if sub.matches(g, bi) {
			return true
		}
	}
	return false
}
func (e bondOr) size() int {
	n := 0
	for _, sub := range e.es {
		n += sub.size()
	}
	return n
}

// ─── parser ───

// ParseSMARTS parses a SMARTS pattern into a Pattern.
func ParseSMARTS(s string) (*Pattern, error) {
	p := &smartsParser{input: s, pat: &Pattern{Source: s}}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.pat, nil
}

type smartsRingRef struct {
	atom int
	expr bondExpr
}

type smartsParser struct {
	input string
	pos   int
	pat   *Pattern

	prev     int
	pendBond bondExpr
	stack    []int
	rings    map[int]smartsRingRef
}

func (p *smartsParser) errf(format string, args ...interface{}) error {
	return errors.Newf(errors.CodeChemInvalidSMARTS, format, args...).
		WithDetail("smarts=" + p.input)
}

func (p *smartsParser) run() error {
	p.prev = -1
	p.rings = make(map[int]smartsRingRef)

	for p.pos < len(p.input) {
		c := p.input[p.pos]
		switch {
		case c == '[':
			if err := p.parseBracketAtom(); err != nil {
				return err
			}
		case c == '(':
			if p.prev < 0 {
				return p.errf("branch before any atom")
			}
			p.stack = append(p.stack, p.prev)
			p.pos++
		case c == ')':
			if len(p.stack) == 0 {
				return p.errf("unmatched ')'")
			}
			p.prev = p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			p.pos++
		case isBondChar(c):
			expr, err := p.parseBondExpr()
			if err != nil {
				return err
			}
			p.pendBond = expr
		case c >= '0' && c <= '9':
			if err := p.closeRing(int(c - '0')); err != nil {
				return err
			}
			p.pos++
		case c == '%':
			if p.pos+2 >= len(p.input) {
				return p.errf("truncated %%nn ring closure")
			}
			n, err := strconv.Atoi(p.input[p.pos+1 : p.pos+3])
			if err != nil {
				return p.errf("bad %%nn ring closure")
			}
			if err := p.closeRing(n); err != nil {
				return err
			}
			p.pos += 3
		case c == '*':
			p.addAtom(patternAtom{expr: atomAny{}})
			p.pos++
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
	if len(p.pat.atoms) == 0 {
		return p.errf("empty pattern")
	}
	return p.indexMappedAtoms()
}

func (p *smartsParser) indexMappedAtoms() error {
	byMap := make(map[int]int)
	maxMap := 0
	for i, a := range p.pat.atoms {
		if a.mapIdx == 0 {
			continue
		}
		if _, dup := byMap[a.mapIdx]; dup {
			return p.errf("duplicate atom map %d", a.mapIdx)
		}
		byMap[a.mapIdx] = i
		if a.mapIdx > maxMap {
			maxMap = a.mapIdx
		}
	}
	for m := 1; m <= maxMap; m++ {
		i, ok := byMap[m]
		if !ok {
			return p.errf("atom maps are not contiguous: missing :%d", m)
		}
		p.pat.mapped = append(p.pat.mapped, i)
	}
	return nil
}

func (p *smartsParser) addAtom(a patternAtom) {
	idx := len(p.pat.atoms)
	p.pat.atoms = append(p.pat.atoms, a)
	if p.prev >= 0 {
		expr := p.pendBond
		if expr == nil {
			expr = bondDefault{}
		}
		p.pat.bonds = append(p.pat.bonds, patternBond{a: p.prev, b: idx, expr: expr})
	}
	p.prev = idx
	p.pendBond = nil
}

func (p *smartsParser) closeRing(n int) error {
	if p.prev < 0 {
		return p.errf("ring closure before any atom")
	}
	if ref, open := p.rings[n]; open {
		delete(p.rings, n)
		expr := p.pendBond
		if expr == nil {
			expr = ref.expr
		}
		if expr == nil {
			expr = bondDefault{}
		}
		p.pat.bonds = append(p.pat.bonds, patternBond{a: ref.atom, b: p.prev, expr: expr})
		p.pendBond = nil
		return nil
	}
	p.rings[n] = smartsRingRef{atom: p.prev, expr: p.pendBond}
	p.pendBond = nil
	return nil
}

func isBondChar(c byte) bool {
	switch c {
	case '-', '=', '#', ':', '~', '@', '!', '&', ';', ',', '/', '\\':
		return true
	}
	return false
}

// parseBondExpr consumes the run of bond characters at the cursor and parses
// it with SMARTS operator precedence: ! > & (implicit) > , > ;.
func (p *smartsParser) parseBondExpr() (bondExpr, error) {
	start := p.pos
	for p.pos < len(p.input) && isBondChar(p.input[p.pos]) {
		p.pos++
	}
	tok := &bondTokens{s: p.input[start:p.pos]}
	expr, err := tok.parseLowAnd()
	if err != nil {
		return nil, p.errf("bad bond expression %q: %v", tok.s, err)
	}
	if !tok.done() {
		return nil, p.errf("trailing characters in bond expression %q", tok.s)
	}
	return expr, nil
}

type bondTokens struct {
	s string
	i int
}

func (t *bondTokens) done() bool { return t.i >= len(t.s) }

func (t *bondTokens) parseLowAnd() (bondExpr, error) {
	var parts []bondExpr
	for {
		e, err := t.parseOr()
		if err != nil {
			return nil, err
		}
		parts = append(parts, e)
		if t.done() || t.s[t.i] != ';' {
			break
		}
		t.i++
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return bondAnd{es: parts}, nil
}

func (t *bondTokens) parseOr() (bondExpr, error) {
	var parts []bondExpr
	for {
		e, err := t.parseHighAnd()
		if err != nil {
			return nil, err
		}
		parts = append(parts, e)
		if t.done() || t.s[t.i] != ',' {
			break
		}
		t.i++
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return bondOr{es: parts}, nil
}

func (t *bondTokens) parseHighAnd() (bondExpr, error) {
	var parts []bondExpr
	for {
		if t.done() {
			break
		}
		c := t.s[t.i]
		if c == ';' || c == ',' {
			break
		}
		if c == '&' {
			t.i++
			continue
		}
		e, err := t.parseUnary()
		if err != nil {
			return nil, err
		}
		parts = append(parts, e)
	}
	if len(parts) == 0 {
		return nil, errorEmptyBond
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return bondAnd{es: parts}, nil
}

var errorEmptyBond = errors.New(errors.CodeChemInvalidSMARTS, "empty bond expression")

func (t *bondTokens) parseUnary() (bondExpr, error) {
	if t.s[t.i] == '!' {
		t.i++
		if t.done() {
			return nil, errorEmptyBond
		}
		e, err := t.parseUnary()
		if err != nil {
			return nil, err
		}
		return bondNot{e: e}, nil
	}
	c := t.s[t.i]
	t.i++
	switch c {
	case '-', '/', '\\':
		return bondOrder{order: 1}, nil
	case '=':
		return bondOrder{order: 2}, nil
	case '#':
		return bondOrder{order: 3}, nil
	case ':':
		return bondAromatic{}, nil
	case '~':
		return bondAnyKind{}, nil
	case '@':
		return bondInRing{}, nil
	}
	return nil, errors.Newf(errors.CodeChemInvalidSMARTS, "unsupported bond primitive %q", c)
}

// parseBareAtom handles atoms written without brackets at pattern level.
func (p *smartsParser) parseBareAtom() error {
	rest := p.input[p.pos:]

	var sym string
	aromatic := false
	switch {
	case strings.HasPrefix(rest, "Cl"):
		sym = "Cl"
	case strings.HasPrefix(rest, "Br"):
		sym = "Br"
	case rest[0] == 'a':
		p.addAtom(patternAtom{expr: atomAromatic{want: true}})
		p.pos++
		return nil
	case rest[0] == 'A':
		p.addAtom(patternAtom{expr: atomAromatic{want: false}})
		p.pos++
		return nil
	case rest[0] >= 'A' && rest[0] <= 'Z':
		sym = rest[:1]
	case rest[0] >= 'a' && rest[0] <= 'z':
		sym = strings.ToUpper(rest[:1])
		aromatic = true
	default:
		return p.errf("unexpected character %q at position %d", rest[0], p.pos)
	}

	num := ElementNumber(sym)
	if num == 0 {
		return p.errf("unknown element %q", sym)
	}
	p.pos += len(sym)
	p.addAtom(patternAtom{expr: atomElement{n: num, aromatic: aromatic}})
	return nil
}

// parseBracketAtom parses a bracket atom expression, including the optional
// trailing atom map.
func (p *smartsParser) parseBracketAtom() error {
	body, mapIdx, err := p.extractBracketBody()
	if err != nil {
		return err
	}

	tok := &atomTokens{s: body, parent: p}
	expr, err := tok.parseLowAnd()
	if err != nil {
		return err
	}
	if !tok.done() {
		return p.errf("trailing characters in atom expression %q", body)
	}

	p.addAtom(patternAtom{expr: expr, mapIdx: mapIdx})
	return nil
}

// extractBracketBody consumes "[...]" honouring nested parentheses from
// recursive environments, splits off a trailing ":n" atom map, and returns
// the remaining expression body.
func (p *smartsParser) extractBracketBody() (string, int, error) {
	if p.input[p.pos] != '[' {
		return "", 0, p.errf("expected '['")
	}
	depth := 0
	end := -1
	for i := p.pos + 1; i < len(p.input); i++ {
		switch p.input[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ']':
			if depth == 0 {
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return "", 0, p.errf("unclosed '['")
	}
	body := p.input[p.pos+1 : end]
	p.pos = end + 1

	// Trailing atom map: ":n" outside any recursive environment.
	mapIdx := 0
	if i := strings.LastIndexByte(body, ':'); i >= 0 && !strings.ContainsAny(body[i:], "()") {
		digits := body[i+1:]
		if digits != "" && isAllDigits(digits) {
			mapIdx, _ = strconv.Atoi(digits)
			body = body[:i]
		}
	}
	if body == "" {
		return "", 0, p.errf("empty atom expression")
	}
	return body, mapIdx, nil
}

func isAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// atomTokens parses a bracket-atom body with SMARTS operator precedence.
type atomTokens struct {
	s      string
	i      int
	parent *smartsParser
}

func (t *atomTokens) done() bool { return t.i >= len(t.s) }

func (t *atomTokens) errf(format string, args ...interface{}) error {
	return t.parent.errf(format, args...)
}

func (t *atomTokens) parseLowAnd() (atomExpr, error) {
	var parts []atomExpr
	for {
		e, err := t.parseOr()
		if err != nil {
			return nil, err
		}
		parts = append(parts, e)
		if t.done() || t.s[t.i] != ';' {
			break
		}
		t.i++
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return atomAnd{es: parts}, nil
}

func (t *atomTokens) parseOr() (atomExpr, error) {
	var parts []atomExpr
	for {
		e, err := t.parseHighAnd()
		if err != nil {
			return nil, err
		}
		parts = append(parts, e)
		if t.done() || t.s[t.i] != ',' {
			break
		}
		t.i++
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return atomOr{es: parts}, nil
}

func (t *atomTokens) parseHighAnd() (atomExpr, error) {
	var parts []atomExpr
	for {
		if t.done() {
			break
		}
		c := t.s[t.i]
		if c == ';' || c == ',' {
			break
		}
		if c == '&' {
			t.i++
			continue
		}
		e, err := t.parseUnary()
		if err != nil {
			return nil, err
		}
		parts = append(parts, e)
	}
	if len(parts) == 0 {
		return nil, t.errf("empty atom expression in %q", t.s)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return atomAnd{es: parts}, nil
}

func (t *atomTokens) parseUnary() (atomExpr, error) {
	c := t.s[t.i]
	if c == '!' {
		t.i++
		if t.done() {
			return nil, t.errf("dangling '!' in %q", t.s)
		}
		e, err := t.parseUnary()
		if err != nil {
			return nil, err
		}
		return atomNot{e: e}, nil
	}
	return t.parsePrimitive()
}

// number reads an optional decimal integer, returning def when absent.
func (t *atomTokens) number(def int) int {
	start := t.i
	for t.i < len(t.s) && t.s[t.i] >= '0' && t.s[t.i] <= '9' {
		t.i++
	}
	if t.i == start {
		return def
	}
	n, _ := strconv.Atoi(t.s[start:t.i])
	return n
}

func (t *atomTokens) parsePrimitive() (atomExpr, error) {
	c := t.s[t.i]
	switch {
	case c == '*':
		t.i++
		return atomAny{}, nil

	case c == '#':
		t.i++
		n := t.number(-1)
		if n < 0 {
			return nil, t.errf("'#' without atomic number in %q", t.s)
		}
		return atomNumber{n: n}, nil

	case c == 'X':
		t.i++
		return atomDegree{n: t.number(1)}, nil

	case c == 'H':
		t.i++
		return atomHCount{n: t.number(1)}, nil

	case c == 'r':
		t.i++
		return atomRing{n: t.number(0)}, nil

	case c == 'x':
		t.i++
		return atomRingConn{n: t.number(0)}, nil

	case c == 'a':
		t.i++
		return atomAromatic{want: true}, nil

	case c == 'A':
		t.i++
		return atomAromatic{want: false}, nil

	case c == '+' || c == '-':
		sign := 1
		if c == '-' {
			sign = -1
		}
		n := 0
		for t.i < len(t.s) && t.s[t.i] == c {
			n++
			t.i++
		}
		if v := t.number(-1); v >= 0 {
			n = v
		}
		return atomCharge{n: sign * n}, nil

	case c == '$':
		// Recursive environment: skip the balanced parenthesis group.
		if t.i+1 >= len(t.s) || t.s[t.i+1] != '(' {
			return nil, t.errf("'$' without '(' in %q", t.s)
		}
		depth := 0
		j := t.i + 1
		for ; j < len(t.s); j++ {
			if t.s[j] == '(' {
				depth++
			} else if t.s[j] == ')' {
				depth--
				if depth == 0 {
					break
				}
			}
		}
		if depth != 0 {
			return nil, t.errf("unbalanced '$(...)' in %q", t.s)
		}
		t.i = j + 1
		return atomRecursive{}, nil

	case c == '@':
		// Chirality markers are accepted and ignored (match anything).
		t.i++
		for t.i < len(t.s) && t.s[t.i] == '@' {
			t.i++
		}
		return atomAny{}, nil

	case c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z':
		var sym string
		rest := t.s[t.i:]
		if strings.HasPrefix(rest, "Cl") {
			sym = "Cl"
		} else if strings.HasPrefix(rest, "Br") {
			sym = "Br"
		} else {
			sym = rest[:1]
		}
		aromatic := sym[0] >= 'a' && sym[0] <= 'z'
		n := ElementNumber(strings.ToUpper(sym[:1]) + sym[1:])
		if n == 0 {
			return nil, t.errf("unknown element %q in %q", sym, t.s)
		}
		t.i += len(sym)
		return atomElement{n: n, aromatic: aromatic}, nil
	}
	return nil, t.errf("unsupported primitive %q in %q", c, t.s)
}
