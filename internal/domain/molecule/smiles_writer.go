package molecule

import (
	"sort"
	"strconv"
	"strings"
)

// CanonicalSMILES writes m as a canonical SMILES string. Atom order follows
// CanonicalRanks, so two graphs that differ only by atom numbering produce
// the same text. Stereo descriptors are not emitted.
func CanonicalSMILES(m *Molecule) string {
	if m == nil || len(m.Atoms) == 0 {
		return ""
	}
	ranks := CanonicalRanks(m)
	w := &smilesWriter{m: m, ranks: ranks}
	return w.write()
}

// Canonicalize parses a SMILES string and returns its canonical form.
func Canonicalize(smiles string) (string, error) {
	m, err := ParseSMILES(smiles)
	if err != nil {
		return "", err
	}
	return CanonicalSMILES(m), nil
}

type closure struct {
	bond    int
	partner int
}

type smilesWriter struct {
	m     *Molecule
	ranks []int

	visited  []bool
	usedBond []bool
	order    []int // DFS visit position per atom
	children [][]int
	opens    [][]closure // ring closures opened at an atom
	closes   [][]closure // ring closures closed at an atom

	digits    map[int]int // bond -> ring digit
	freeDigit []bool
}

func (w *smilesWriter) write() string {
	n := len(w.m.Atoms)
	w.visited = make([]bool, n)
	w.usedBond = make([]bool, len(w.m.Bonds))
	w.order = make([]int, n)
	w.children = make([][]int, n)
	w.opens = make([][]closure, n)
	w.closes = make([][]closure, n)
	w.digits = map[int]int{}
	w.freeDigit = make([]bool, 100)
	for i := 1; i < len(w.freeDigit); i++ {
		w.freeDigit[i] = true
	}

	comps := w.m.Components()
	starts := make([]int, 0, len(comps))
	for _, comp := range comps {
		best := comp[0]
		for _, a := range comp[1:] {
			if w.ranks[a] < w.ranks[best] {
				best = a
			}
		}
		starts = append(starts, best)
	}
	sort.Slice(starts, func(i, j int) bool { return w.ranks[starts[i]] < w.ranks[starts[j]] })

	counter := 0
	for _, s := range starts {
		w.plan(s, -1, &counter)
	}

	parts := make([]string, 0, len(starts))
	for _, s := range starts {
		var sb strings.Builder
		w.emit(&sb, s, -1)
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, ".")
}

// sortedNeighbors returns the bonds of atom a ordered by neighbour rank.
func (w *smilesWriter) sortedNeighbors(a int) []int {
	bonds := append([]int(nil), w.m.adj[a]...)
	sort.Slice(bonds, func(i, j int) bool {
		return w.ranks[w.m.Bonds[bonds[i]].Other(a)] < w.ranks[w.m.Bonds[bonds[j]].Other(a)]
	})
	return bonds
}

// plan performs the DFS that fixes the spanning tree and ring closures.
func (w *smilesWriter) plan(a, viaBond int, counter *int) {
	w.visited[a] = true
	w.order[a] = *counter
	*counter++
	if viaBond >= 0 {
		w.usedBond[viaBond] = true
	}

	// Closures first: every visited neighbour reached over an unused bond is
	// an ancestor, so the bond closes a ring here.
	for _, b := range w.sortedNeighbors(a) {
		if w.usedBond[b] {
			continue
		}
		nb := w.m.Bonds[b].Other(a)
		if w.visited[nb] {
			w.usedBond[b] = true
			w.opens[nb] = append(w.opens[nb], closure{bond: b, partner: a})
			w.closes[a] = append(w.closes[a], closure{bond: b, partner: nb})
		}
	}
	for _, b := range w.sortedNeighbors(a) {
		if w.usedBond[b] {
			continue
		}
		nb := w.m.Bonds[b].Other(a)
		if w.visited[nb] {
			// Reached from a deeper branch after the loop above.
			w.usedBond[b] = true
			w.opens[nb] = append(w.opens[nb], closure{bond: b, partner: a})
			w.closes[a] = append(w.closes[a], closure{bond: b, partner: nb})
			continue
		}
		w.children[a] = append(w.children[a], b)
		w.plan(nb, b, counter)
	}
}

func (w *smilesWriter) emit(sb *strings.Builder, a, viaBond int) {
	if viaBond >= 0 {
		sb.WriteString(w.bondSymbol(viaBond))
	}
	sb.WriteString(w.atomSymbol(a))

	// Closing digits were opened earlier; emit them in opening order.
	closes := append([]closure(nil), w.closes[a]...)
	sort.Slice(closes, func(i, j int) bool { return w.digits[closes[i].bond] < w.digits[closes[j].bond] })
	var released []int
	for _, c := range closes {
		d := w.digits[c.bond]
		sb.WriteString(digitText(d))
		released = append(released, d)
	}

	opens := append([]closure(nil), w.opens[a]...)
	sort.Slice(opens, func(i, j int) bool { return w.order[opens[i].partner] < w.order[opens[j].partner] })
	for _, c := range opens {
		d := w.allocDigit()
		w.digits[c.bond] = d
		sb.WriteString(w.bondSymbol(c.bond))
		sb.WriteString(digitText(d))
	}
	for _, d := range released {
		w.freeDigit[d] = true
	}

	kids := w.children[a]
	for k, b := range kids {
		nb := w.m.Bonds[b].Other(a)
		if k < len(kids)-1 {
			sb.WriteByte('(')
			w.emit(sb, nb, b)
			sb.WriteByte(')')
			continue
		}
		w.emit(sb, nb, b)
	}
}

func (w *smilesWriter) allocDigit() int {
	for d := 1; d < len(w.freeDigit); d++ {
		if w.freeDigit[d] {
			w.freeDigit[d] = false
			return d
		}
	}
	// More than 99 simultaneously open rings; grow the table.
	w.freeDigit = append(w.freeDigit, false)
	return len(w.freeDigit) - 1
}

func digitText(d int) string {
	if d < 10 {
		return strconv.Itoa(d)
	}
	return "%" + strconv.Itoa(d)
}

func (w *smilesWriter) bondSymbol(b int) string {
	bond := w.m.Bonds[b]
	fromArom := w.m.Atoms[bond.From].Aromatic
	toArom := w.m.Atoms[bond.To].Aromatic
	switch bond.Order {
	case BondDouble:
		return "="
	case BondTriple:
		return "#"
	case BondAromatic:
		if fromArom && toArom {
			return ""
		}
		return ":"
	default:
		if fromArom && toArom {
			return "-"
		}
		return ""
	}
}

func (w *smilesWriter) atomSymbol(i int) string {
	a := w.m.Atoms[i]
	sym := a.Element
	if a.Aromatic {
		sym = strings.ToLower(sym)
	}

	if a.Element == "*" && a.Charge == 0 && a.Isotope == 0 && a.HCount == 0 {
		return "*"
	}
	e, known := lookupElement(a.Element)
	organic := known && e.Organic && a.Element != "*"
	if a.Aromatic {
		organic = organic && aromaticOrganic[a.Element]
	}
	if organic && a.Charge == 0 && a.Isotope == 0 && a.HCount == w.m.DefaultHCount(i) {
		return sym
	}

	var sb strings.Builder
	sb.WriteByte('[')
	if a.Isotope > 0 {
		sb.WriteString(strconv.Itoa(a.Isotope))
	}
	sb.WriteString(sym)
	if a.HCount > 0 {
		sb.WriteByte('H')
		if a.HCount > 1 {
			sb.WriteString(strconv.Itoa(a.HCount))
		}
	}
	switch {
	case a.Charge == 1:
		sb.WriteByte('+')
	case a.Charge == -1:
		sb.WriteByte('-')
	case a.Charge > 1:
		sb.WriteString("+" + strconv.Itoa(a.Charge))
	case a.Charge < -1:
		sb.WriteString("-" + strconv.Itoa(-a.Charge))
	}
	sb.WriteByte(']')
	return sb.String()
}
