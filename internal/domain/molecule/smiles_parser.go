package molecule

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/turtacn/keggminer/pkg/errors"
)

// ParseSMILES reads a SMILES string into a hydrogen-suppressed graph with
// perceived aromaticity. Stereo marks (@, /, \) are accepted and dropped.
func ParseSMILES(smiles string) (*Molecule, error) {
	s := strings.TrimSpace(smiles)
	if s == "" {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "SMILES string cannot be empty")
	}
	// Anything after whitespace is a title, as in SMILES files.
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		s = s[:i]
	}

	p := &smilesParser{src: s, m: NewMolecule(), prev: -1, rings: map[int]ringOpen{}}
	if err := p.parse(); err != nil {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, err.Error()).WithDetail(smiles)
	}
	if err := p.finish(); err != nil {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, err.Error()).WithDetail(smiles)
	}
	return p.m, nil
}

type ringOpen struct {
	atom  int
	order BondOrder
	set   bool // an explicit bond symbol was written at the opening
}

type smilesParser struct {
	src string
	pos int
	m   *Molecule

	prev     int       // atom the next atom bonds to
	pending  BondOrder // explicit bond symbol waiting for an atom
	explicit bool
	branches []int
	rings    map[int]ringOpen

	bracketed []bool
	implicit  []int // bonds whose order was inferred between aromatic atoms
}

func (p *smilesParser) parse() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return fmt.Errorf("branch opened before any atom at offset %d", p.pos)
			}
			p.branches = append(p.branches, p.prev)
			p.pos++
		case c == ')':
			if len(p.branches) == 0 {
				return fmt.Errorf("unbalanced ')' at offset %d", p.pos)
			}
			if p.explicit {
				return fmt.Errorf("bond symbol before ')' at offset %d", p.pos)
			}
			p.prev = p.branches[len(p.branches)-1]
			p.branches = p.branches[:len(p.branches)-1]
			p.pos++
		case c == '.':
			if p.explicit {
				return fmt.Errorf("bond symbol before '.' at offset %d", p.pos)
			}
			p.prev = -1
			p.pos++
		case c == '-' || c == '=' || c == '#' || c == ':' || c == '/' || c == '\\' || c == '$':
			if p.explicit {
				return fmt.Errorf("consecutive bond symbols at offset %d", p.pos)
			}
			switch c {
			case '=':
				p.pending = BondDouble
			case '#':
				p.pending = BondTriple
			case ':':
				p.pending = BondAromatic
			case '$':
				return fmt.Errorf("quadruple bonds are not supported")
			default:
				p.pending = BondSingle
			}
			p.explicit = true
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
	if len(p.branches) > 0 {
		return fmt.Errorf("unclosed branch")
	}
	if len(p.rings) > 0 {
		for d := range p.rings {
			return fmt.Errorf("unclosed ring bond %d", d)
		}
	}
	if p.explicit {
		return fmt.Errorf("dangling bond symbol at end of input")
	}
	if len(p.m.Atoms) == 0 {
		return fmt.Errorf("no atoms")
	}
	return nil
}

func (p *smilesParser) addAtom(a Atom, bracket bool) error {
	idx := p.m.AddAtom(a)
	p.bracketed = append(p.bracketed, bracket)
	if p.prev >= 0 {
		order, inferred := p.bondOrder(p.prev, idx, p.pending, p.explicit)
		if err := p.m.AddBond(p.prev, idx, order); err != nil {
			return err
		}
		if inferred {
			p.implicit = append(p.implicit, len(p.m.Bonds)-1)
		}
	} else if p.explicit {
		return fmt.Errorf("bond symbol without a preceding atom at offset %d", p.pos)
	}
	p.pending, p.explicit = 0, false
	p.prev = idx
	return nil
}

// bondOrder resolves the order for an unwritten bond: aromatic between two
// aromatic atoms, single otherwise.
func (p *smilesParser) bondOrder(i, j int, order BondOrder, explicit bool) (BondOrder, bool) {
	if explicit {
		return order, false
	}
	if p.m.Atoms[i].Aromatic && p.m.Atoms[j].Aromatic {
		return BondAromatic, true
	}
	return BondSingle, false
}

func (p *smilesParser) organicAtom() error {
	rest := p.src[p.pos:]
	var sym string
	aromatic := false
	switch {
	case strings.HasPrefix(rest, "Cl"):
		sym = "Cl"
	case strings.HasPrefix(rest, "Br"):
		sym = "Br"
	default:
		switch c := rest[0]; c {
		case 'B', 'C', 'N', 'O', 'P', 'S', 'F', 'I':
			sym = string(c)
		case 'b', 'c', 'n', 'o', 'p', 's':
			sym = strings.ToUpper(string(c))
			aromatic = true
		case '*':
			sym = "*"
		default:
			r, _ := utf8.DecodeRuneInString(rest)
			return fmt.Errorf("unexpected character %q at offset %d", r, p.pos)
		}
	}
	e := elements[sym]
	p.pos += len(sym)
	return p.addAtom(Atom{Element: sym, Number: e.Number, Aromatic: aromatic}, false)
}

func (p *smilesParser) bracketAtom() error {
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return fmt.Errorf("unterminated bracket atom at offset %d", p.pos)
	}
	body := p.src[p.pos+1 : p.pos+end]
	start := p.pos
	p.pos += end + 1

	i := 0
	isotope := 0
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		isotope = isotope*10 + int(body[i]-'0')
		i++
	}

	if i >= len(body) {
		return fmt.Errorf("bracket atom without element at offset %d", start)
	}
	var sym string
	aromatic := false
	switch {
	case body[i] == '*':
		sym = "*"
		i++
	case body[i] >= 'a' && body[i] <= 'z':
		// Aromatic: se, as, te or a single letter.
		if i+1 < len(body) {
			two := strings.ToUpper(body[i:i+1]) + body[i+1:i+2]
			if aromaticSymbols[two] {
				sym = two
				i += 2
			}
		}
		if sym == "" {
			sym = strings.ToUpper(body[i : i+1])
			i++
		}
		aromatic = true
		if !aromaticSymbols[sym] {
			return fmt.Errorf("element %q cannot be aromatic", sym)
		}
	case body[i] >= 'A' && body[i] <= 'Z':
		sym = body[i : i+1]
		i++
		if i < len(body) && body[i] >= 'a' && body[i] <= 'z' {
			if _, ok := elements[sym+body[i:i+1]]; ok {
				sym += body[i : i+1]
				i++
			}
		}
	default:
		return fmt.Errorf("bad bracket atom %q", body)
	}
	e, ok := elements[sym]
	if !ok {
		return fmt.Errorf("unknown element %q", sym)
	}

	// Chirality is read and discarded.
	if i < len(body) && body[i] == '@' {
		i++
		if i < len(body) && body[i] == '@' {
			i++
		} else if i+1 < len(body) {
			switch body[i : i+2] {
			case "TH", "AL", "SP", "TB", "OH":
				i += 2
				for i < len(body) && isDigit(body[i]) {
					i++
				}
			}
		}
	}

	hcount := 0
	if i < len(body) && body[i] == 'H' {
		i++
		hcount = 1
		if i < len(body) && body[i] >= '0' && body[i] <= '9' {
			hcount = 0
			for i < len(body) && body[i] >= '0' && body[i] <= '9' {
				hcount = hcount*10 + int(body[i]-'0')
				i++
			}
		}
	}

	charge := 0
	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		ch := body[i]
		i++
		mag := 1
		if i < len(body) && body[i] >= '0' && body[i] <= '9' {
			mag = 0
			for i < len(body) && body[i] >= '0' && body[i] <= '9' {
				mag = mag*10 + int(body[i]-'0')
				i++
			}
		} else {
			for i < len(body) && body[i] == ch {
				mag++
				i++
			}
		}
		charge = sign * mag
	}

	// Atom class.
	if i < len(body) && body[i] == ':' {
		i++
		for i < len(body) && body[i] >= '0' && body[i] <= '9' {
			i++
		}
	}
	if i != len(body) {
		return fmt.Errorf("unexpected %q in bracket atom [%s]", body[i:], body)
	}

	return p.addAtom(Atom{
		Element:  sym,
		Number:   e.Number,
		Charge:   charge,
		Isotope:  isotope,
		HCount:   hcount,
		Aromatic: aromatic,
	}, true)
}

func (p *smilesParser) ringClosure() error {
	if p.prev < 0 {
		return fmt.Errorf("ring bond before any atom at offset %d", p.pos)
	}
	var digit int
	if p.src[p.pos] == '%' {
		if p.pos+2 >= len(p.src) || !isDigit(p.src[p.pos+1]) || !isDigit(p.src[p.pos+2]) {
			return fmt.Errorf("bad %%nn ring bond at offset %d", p.pos)
		}
		digit = int(p.src[p.pos+1]-'0')*10 + int(p.src[p.pos+2]-'0')
		p.pos += 3
	} else {
		digit = int(p.src[p.pos] - '0')
		p.pos++
	}

	open, ok := p.rings[digit]
	if !ok {
		p.rings[digit] = ringOpen{atom: p.prev, order: p.pending, set: p.explicit}
		p.pending, p.explicit = 0, false
		return nil
	}
	delete(p.rings, digit)

	order, explicit := p.pending, p.explicit
	if open.set {
		if explicit && order != open.order {
			return fmt.Errorf("conflicting bond symbols on ring bond %d", digit)
		}
		order, explicit = open.order, true
	}
	resolved, inferred := p.bondOrder(open.atom, p.prev, order, explicit)
	if err := p.m.AddBond(open.atom, p.prev, resolved); err != nil {
		return err
	}
	if inferred {
		p.implicit = append(p.implicit, len(p.m.Bonds)-1)
	}
	p.pending, p.explicit = 0, false
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// finish rejects aromatic atoms and written aromatic bonds outside rings,
// demotes inferred aromatic bonds outside rings, fills implicit hydrogens on
// unbracketed atoms, checks valences and perceives aromaticity.
func (p *smilesParser) finish() error {
	m := p.m
	ri := perceiveRings(m, 2)
	for i, a := range m.Atoms {
		if a.Aromatic && !ri.atomInRing[i] {
			return fmt.Errorf("aromatic atom %d (%s) is not in a ring", i+1, a.Element)
		}
	}
	inferred := make(map[int]bool, len(p.implicit))
	for _, b := range p.implicit {
		inferred[b] = true
	}
	for b := range m.Bonds {
		if m.Bonds[b].Order != BondAromatic || ri.bondInRing[b] {
			continue
		}
		if !inferred[b] {
			return fmt.Errorf("aromatic bond %d-%d is not in a ring", m.Bonds[b].From+1, m.Bonds[b].To+1)
		}
		m.Bonds[b].Order = BondSingle
	}
	for i := range m.Atoms {
		if !p.bracketed[i] {
			m.Atoms[i].HCount = m.DefaultHCount(i)
		}
	}
	if err := m.checkValences(); err != nil {
		return err
	}
	m.Aromatize()
	return nil
}
