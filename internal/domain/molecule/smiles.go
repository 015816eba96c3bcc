package molecule

import (
	"fmt"
	"strings"

	"github.com/turtacn/liposome-ivr/pkg/errors"
)

// ParseSMILES parses a SMILES string into a Molecule.  Supported: the organic
// subset, bracket atoms with isotope, chirality marks, hydrogen count, charge
// and atom class, branches, ring closures (digits and %nn), the bond symbols
// - = # $ : / \ and dot-disconnected fragments.  Stereo marks are accepted
// and ignored.  Kekulé rings that satisfy the 4n+2 rule come back aromatic.
func ParseSMILES(smiles string) (*Molecule, error) {
	s := strings.TrimSpace(smiles)
	if s == "" {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "empty SMILES")
	}
	p := &parser{
		s:     s,
		mol:   &Molecule{SMILES: s},
		prev:  -1,
		rings: map[int]ringOpen{},
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	if err := p.mol.assignHydrogens(); err != nil {
		return nil, p.fail("%s", err.Error())
	}
	p.mol.perceiveAromaticity()
	return p.mol, nil
}

type ringOpen struct {
	atom  int
	order BondOrder // 0 when unspecified
}

type branchMark struct {
	atom  int
	atoms int // atom count when the branch opened
}

type parser struct {
	s       string
	pos     int
	mol     *Molecule
	prev    int
	pending BondOrder // 0 when no bond symbol is pending
	stack   []branchMark
	rings   map[int]ringOpen
}

func (p *parser) fail(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeMoleculeInvalidSMILES, "invalid SMILES at position %d: %s",
		p.pos, fmt.Sprintf(format, args...)).WithDetail("smiles=" + p.s)
}

func (p *parser) run() error {
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.fail("branch without a preceding atom")
			}
			if p.pending != 0 {
				return p.fail("bond symbol before branch")
			}
			p.stack = append(p.stack, branchMark{atom: p.prev, atoms: len(p.mol.Atoms)})
			p.pos++
		case c == ')':
			if len(p.stack) == 0 {
				return p.fail("unmatched ')'")
			}
			if p.pending != 0 {
				return p.fail("dangling bond at end of branch")
			}
			top := p.stack[len(p.stack)-1]
			if top.atoms == len(p.mol.Atoms) {
				return p.fail("empty branch")
			}
			p.stack = p.stack[:len(p.stack)-1]
			p.prev = top.atom
			p.pos++
		case strings.IndexByte(`-=#$:/\`, c) >= 0:
			if p.prev < 0 {
				return p.fail("bond without a preceding atom")
			}
			if p.pending != 0 {
				return p.fail("consecutive bond symbols")
			}
			p.pending = bondSymbol(c)
			p.pos++
		case c == '.':
			if p.pending != 0 {
				return p.fail("bond before '.'")
			}
			if p.prev < 0 {
				return p.fail("'.' without a preceding atom")
			}
			p.prev = -1
			p.pos++
		case c >= '0' && c <= '9' || c == '%':
			if err := p.ringClosure(); err != nil {
				return err
			}
		case c == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		default:
			if err := p.organicAtom(); err != nil {
				return err
			}
		}
	}

	switch {
	case p.pending != 0:
		return p.fail("dangling bond at end of input")
	case len(p.stack) > 0:
		return p.fail("unclosed branch")
	case len(p.rings) > 0:
		return p.fail("unclosed ring")
	case p.prev < 0:
		return p.fail("input ends with '.'")
	}

	p.mol.finalize()
	for b := range p.mol.Bonds {
		if p.mol.Bonds[b].Order == BondAromatic && !p.mol.Bonds[b].Ring {
			p.mol.Bonds[b].Order = BondSingle
		}
	}
	for i, a := range p.mol.Atoms {
		if a.Aromatic && !p.mol.InRing(i) {
			return p.fail("non-ring atom %d marked aromatic", i)
		}
	}
	return nil
}

func bondSymbol(c byte) BondOrder {
	switch c {
	case '=':
		return BondDouble
	case '#':
		return BondTriple
	case '$':
		return BondQuadruple
	case ':':
		return BondAromatic
	default:
		return BondSingle
	}
}

func (p *parser) ringClosure() error {
	if p.prev < 0 {
		return p.fail("ring closure without a preceding atom")
	}
	var num int
	if p.s[p.pos] == '%' {
		if p.pos+2 >= len(p.s) || !isDigit(p.s[p.pos+1]) || !isDigit(p.s[p.pos+2]) {
			return p.fail("'%%' must be followed by two digits")
		}
		num = int(p.s[p.pos+1]-'0')*10 + int(p.s[p.pos+2]-'0')
		p.pos += 3
	} else {
		num = int(p.s[p.pos] - '0')
		p.pos++
	}

	open, ok := p.rings[num]
	if !ok {
		p.rings[num] = ringOpen{atom: p.prev, order: p.pending}
		p.pending = 0
		return nil
	}
	delete(p.rings, num)

	order := open.order
	if p.pending != 0 {
		if order != 0 && order != p.pending {
			return p.fail("conflicting bond orders on ring closure %d", num)
		}
		order = p.pending
	}
	p.pending = 0
	if open.atom == p.prev {
		return p.fail("ring closure %d bonds an atom to itself", num)
	}
	if p.hasBond(open.atom, p.prev) {
		return p.fail("ring closure %d duplicates an existing bond", num)
	}
	p.addBond(open.atom, p.prev, order)
	return nil
}

func (p *parser) hasBond(a, b int) bool {
	for _, bd := range p.mol.Bonds {
		if bd.Begin == a && bd.End == b || bd.Begin == b && bd.End == a {
			return true
		}
	}
	return false
}

func (p *parser) addBond(a, b int, order BondOrder) {
	if order == 0 {
		if p.mol.Atoms[a].Aromatic && p.mol.Atoms[b].Aromatic {
			order = BondAromatic
		} else {
			order = BondSingle
		}
	}
	p.mol.Bonds = append(p.mol.Bonds, Bond{Begin: a, End: b, Order: order})
}

func (p *parser) addAtom(a Atom) {
	idx := len(p.mol.Atoms)
	p.mol.Atoms = append(p.mol.Atoms, a)
	if p.prev >= 0 {
		p.addBond(p.prev, idx, p.pending)
	}
	p.pending = 0
	p.prev = idx
}

func (p *parser) organicAtom() error {
	c := p.s[p.pos]
	var a Atom
	switch c {
	case 'C':
		if p.peek(1) == 'l' {
			a.Element = "Cl"
			p.pos++
		} else {
			a.Element = "C"
		}
	case 'B':
		if p.peek(1) == 'r' {
			a.Element = "Br"
			p.pos++
		} else {
			a.Element = "B"
		}
	case 'N', 'O', 'P', 'S', 'F', 'I':
		a.Element = string(c)
	case 'b', 'c', 'n', 'o', 'p', 's':
		a.Element = strings.ToUpper(string(c))
		a.Aromatic = true
	case '*':
		a.Element = "*"
	default:
		return p.fail("unexpected character %q", c)
	}
	p.pos++
	p.addAtom(a)
	return nil
}

func (p *parser) peek(off int) byte {
	if p.pos+off < len(p.s) {
		return p.s[p.pos+off]
	}
	return 0
}

func (p *parser) bracketAtom() error {
	end := strings.IndexByte(p.s[p.pos:], ']')
	if end < 0 {
		return p.fail("unclosed '['")
	}
	body := p.s[p.pos+1 : p.pos+end]
	a, err := parseBracket(body)
	if err != nil {
		return p.fail("bracket atom [%s]: %v", body, err)
	}
	p.pos += end + 1
	p.addAtom(a)
	return nil
}

func parseBracket(body string) (Atom, error) {
	a := Atom{Bracket: true}
	i := 0

	for i < len(body) && isDigit(body[i]) {
		a.Isotope = a.Isotope*10 + int(body[i]-'0')
		i++
	}

	switch {
	case i < len(body) && body[i] == '*':
		a.Element = "*"
		i++
	case i+1 < len(body) && aromaticBracketSymbols[body[i:i+2]] != "":
		a.Element, a.Aromatic = aromaticBracketSymbols[body[i:i+2]], true
		i += 2
	case i < len(body) && aromaticBracketSymbols[body[i:i+1]] != "":
		a.Element, a.Aromatic = aromaticBracketSymbols[body[i:i+1]], true
		i++
	case i < len(body) && body[i] >= 'A' && body[i] <= 'Z':
		if i+1 < len(body) && body[i+1] >= 'a' && body[i+1] <= 'z' && periodicSymbols[body[i:i+2]] {
			a.Element = body[i : i+2]
			i += 2
		} else if periodicSymbols[body[i:i+1]] {
			a.Element = body[i : i+1]
			i++
		} else {
			return a, fmt.Errorf("unknown element")
		}
	default:
		return a, fmt.Errorf("missing element symbol")
	}

	for i < len(body) && body[i] == '@' {
		i++
	}

	if i < len(body) && body[i] == 'H' {
		i++
		a.ExplicitH = 1
		if i < len(body) && isDigit(body[i]) {
			a.ExplicitH = int(body[i] - '0')
			i++
		}
	}

	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		sym := body[i]
		i++
		n := 1
		if i < len(body) && isDigit(body[i]) {
			n = 0
			for i < len(body) && isDigit(body[i]) {
				n = n*10 + int(body[i]-'0')
				i++
			}
		} else {
			for i < len(body) && body[i] == sym {
				n++
				i++
			}
		}
		a.Charge = sign * n
	}

	if i < len(body) && body[i] == ':' {
		i++
		start := i
		for i < len(body) && isDigit(body[i]) {
			i++
		}
		if i == start {
			return a, fmt.Errorf("empty atom class")
		}
	}

	if i != len(body) {
		return a, fmt.Errorf("unexpected %q", body[i:])
	}
	return a, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// assignHydrogens sets ImplicitH on organic-subset atoms from default valence.
func (m *Molecule) assignHydrogens() error {
	for i := range m.Atoms {
		a := &m.Atoms[i]
		if a.Bracket || a.Element == "*" {
			continue
		}
		el, ok := elements[a.Element]
		if !ok || len(el.Valences) == 0 {
			continue
		}

		sum := 0
		for _, b := range m.adj[i] {
			o := m.Bonds[b].Order
			if o == BondAromatic {
				sum++
			} else {
				sum += int(o)
			}
		}

		if a.Aromatic {
			if h := el.Valences[0] - sum - 1; h > 0 {
				a.ImplicitH = h
			}
			continue
		}
		for _, v := range el.Valences {
			if v >= sum {
				a.ImplicitH = v - sum
				break
			}
		}
		if sum > el.Valences[len(el.Valences)-1] {
			return fmt.Errorf("atom %d (%s) exceeds its maximum valence", i, a.Element)
		}
	}
	return nil
}
