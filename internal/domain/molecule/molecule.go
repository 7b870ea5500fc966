// Package molecule holds the molecular graph used by keggminer together with
// the readers and writers around it: MDL molfile and SMILES parsing,
// aromaticity perception, canonical SMILES generation, Morgan fingerprints
// and Tanimoto scoring.
package molecule

import (
	"fmt"
	"sort"
	"strings"
)

// BondOrder is the multiplicity of a bond. Aromatic bonds carry their own
// order rather than an alternating Kekulé assignment.
type BondOrder int

const (
	BondSingle   BondOrder = 1
	BondDouble   BondOrder = 2
	BondTriple   BondOrder = 3
	BondAromatic BondOrder = 4
)

// valence is the bond's contribution to an atom's explicit valence.
func (o BondOrder) valence() int {
	switch o {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	default:
		return 1
	}
}

func (o BondOrder) String() string {
	switch o {
	case BondSingle:
		return "single"
	case BondDouble:
		return "double"
	case BondTriple:
		return "triple"
	case BondAromatic:
		return "aromatic"
	default:
		return fmt.Sprintf("BondOrder(%d)", int(o))
	}
}

// Atom is a heavy atom (or a retained hydrogen) of the graph. Hydrogens are
// normally folded into HCount.
type Atom struct {
	Element  string
	Number   int
	Charge   int
	Isotope  int
	HCount   int
	Aromatic bool

	// X and Y are 2D depiction coordinates, valid when the owning molecule
	// reports HasCoords.
	X, Y float64
}

// Bond links two atoms by index.
type Bond struct {
	From, To int
	Order    BondOrder
}

// Other returns the bond end opposite to atom i.
func (b Bond) Other(i int) int {
	if b.From == i {
		return b.To
	}
	return b.From
}

// Molecule is an undirected molecular graph with per-atom hydrogen counts.
type Molecule struct {
	Atoms []Atom
	Bonds []Bond

	// HasCoords reports whether atom coordinates came from the source record.
	HasCoords bool

	adj [][]int // atom index -> incident bond indices
}

// NewMolecule returns an empty graph.
func NewMolecule() *Molecule {
	return &Molecule{}
}

// AddAtom appends a and returns its index.
func (m *Molecule) AddAtom(a Atom) int {
	m.Atoms = append(m.Atoms, a)
	m.adj = append(m.adj, nil)
	return len(m.Atoms) - 1
}

// AddBond links atoms i and j. Self loops and duplicate bonds are rejected.
func (m *Molecule) AddBond(i, j int, order BondOrder) error {
	if i == j {
		return fmt.Errorf("bond from atom %d to itself", i+1)
	}
	if i < 0 || j < 0 || i >= len(m.Atoms) || j >= len(m.Atoms) {
		return fmt.Errorf("bond %d-%d references a missing atom", i+1, j+1)
	}
	if m.BondBetween(i, j) >= 0 {
		return fmt.Errorf("duplicate bond %d-%d", i+1, j+1)
	}
	m.Bonds = append(m.Bonds, Bond{From: i, To: j, Order: order})
	idx := len(m.Bonds) - 1
	m.adj[i] = append(m.adj[i], idx)
	m.adj[j] = append(m.adj[j], idx)
	return nil
}

// NumAtoms returns the atom count.
func (m *Molecule) NumAtoms() int { return len(m.Atoms) }

// NumBonds returns the bond count.
func (m *Molecule) NumBonds() int { return len(m.Bonds) }

// BondsOf returns the indices of bonds incident to atom i.
func (m *Molecule) BondsOf(i int) []int { return m.adj[i] }

// Neighbors returns the atoms bonded to atom i.
func (m *Molecule) Neighbors(i int) []int {
	out := make([]int, 0, len(m.adj[i]))
	for _, b := range m.adj[i] {
		out = append(out, m.Bonds[b].Other(i))
	}
	return out
}

// Degree returns the number of explicit neighbours of atom i.
func (m *Molecule) Degree(i int) int { return len(m.adj[i]) }

// BondBetween returns the index of the bond joining i and j, or -1.
func (m *Molecule) BondBetween(i, j int) int {
	for _, b := range m.adj[i] {
		if m.Bonds[b].Other(i) == j {
			return b
		}
	}
	return -1
}

// ExplicitValence sums the valence contributions of atom i's bonds.
func (m *Molecule) ExplicitValence(i int) int {
	v := 0
	for _, b := range m.adj[i] {
		v += m.Bonds[b].Order.valence()
	}
	return v
}

// DefaultHCount is the number of hydrogens an unbracketed atom would carry
// given its current bonds. Aromatic atoms that donate one electron to the
// π system count that electron as an extra bond.
func (m *Molecule) DefaultHCount(i int) int {
	a := m.Atoms[i]
	e, ok := lookupElement(a.Element)
	if !ok {
		return 0
	}
	vals := effectiveValences(e, a.Charge)
	if len(vals) == 0 {
		return 0
	}
	used := m.ExplicitValence(i)
	if a.Aromatic {
		if !piDonorElements[e.Symbol] && m.hasAromaticBond(i) {
			used++
		}
		if h := vals[0] - used; h > 0 {
			return h
		}
		return 0
	}
	for _, v := range vals {
		if v >= used {
			return v - used
		}
	}
	return 0
}

func (m *Molecule) hasAromaticBond(i int) bool {
	for _, b := range m.adj[i] {
		if m.Bonds[b].Order == BondAromatic {
			return true
		}
	}
	return false
}

// Components partitions the atoms into connected fragments. Each fragment is
// sorted by atom index and fragments are ordered by their lowest index.
func (m *Molecule) Components() [][]int {
	seen := make([]bool, len(m.Atoms))
	var out [][]int
	for start := range m.Atoms {
		if seen[start] {
			continue
		}
		var comp []int
		stack := []int{start}
		seen[start] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, cur)
			for _, n := range m.Neighbors(cur) {
				if !seen[n] {
					seen[n] = true
					stack = append(stack, n)
				}
			}
		}
		sort.Ints(comp)
		out = append(out, comp)
	}
	return out
}

// Formula returns the Hill-system molecular formula, with hydrogens counted
// from HCount as well as from retained H atoms.
func (m *Molecule) Formula() string {
	counts := map[string]int{}
	for _, a := range m.Atoms {
		if a.Element != "*" {
			counts[a.Element]++
		}
		if a.HCount > 0 {
			counts["H"] += a.HCount
		}
	}
	var sb strings.Builder
	write := func(sym string) {
		n := counts[sym]
		if n == 0 {
			return
		}
		sb.WriteString(sym)
		if n > 1 {
			fmt.Fprintf(&sb, "%d", n)
		}
		delete(counts, sym)
	}
	if counts["C"] > 0 {
		write("C")
		write("H")
	}
	rest := make([]string, 0, len(counts))
	for sym := range counts {
		rest = append(rest, sym)
	}
	sort.Strings(rest)
	for _, sym := range rest {
		write(sym)
	}
	return sb.String()
}
