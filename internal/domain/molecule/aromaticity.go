package molecule

import "sort"

const (
	maxAromaticRing     = 8
	maxAromaticEnvelope = 12
)

var aromaticCapable = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true, "S": true,
	"As": true, "Se": true, "Te": true,
}

// Aromatize perceives aromatic rings with a Hückel 4n+2 electron count over
// single rings and fused ring pairs, then marks their atoms and bonds
// aromatic. Existing aromatic flags are kept, so running it again on its own
// output changes nothing.
func (m *Molecule) Aromatize() {
	ri := perceiveRings(m, maxAromaticRing)
	candidates := append([][]int(nil), ri.rings...)
	candidates = append(candidates, fusedEnvelopes(m, ri.rings)...)

	aromatic := make([]bool, len(candidates))
	for changed := true; changed; {
		changed = false
		for ci, ring := range candidates {
			if aromatic[ci] {
				continue
			}
			if m.huckel(ring, ri) {
				aromatic[ci] = true
				changed = true
				for _, a := range ring {
					m.Atoms[a].Aromatic = true
				}
			}
		}
	}

	for ci, ring := range candidates {
		if !aromatic[ci] {
			continue
		}
		for _, b := range ringBonds(m, ring) {
			m.Bonds[b].Order = BondAromatic
		}
	}

	// An aromatic flag with no aromatic bond is not meaningful.
	for i := range m.Atoms {
		if m.Atoms[i].Aromatic && !m.hasAromaticBond(i) {
			m.Atoms[i].Aromatic = false
		}
	}
}

// huckel reports whether ring satisfies the 4n+2 rule.
func (m *Molecule) huckel(ring []int, ri *ringInfo) bool {
	inRing := make(map[int]bool, len(ring))
	for _, a := range ring {
		inRing[a] = true
	}
	for _, b := range ringBonds(m, ring) {
		if m.Bonds[b].Order == BondTriple {
			return false
		}
	}
	if len(ringBonds(m, ring)) != len(ring) {
		return false
	}

	electrons := 0
	for _, a := range ring {
		e, ok := m.piElectrons(a, inRing, ri)
		if !ok {
			return false
		}
		electrons += e
	}
	return electrons >= 2 && electrons%4 == 2
}

// piElectrons is the number of electrons atom a donates to the π system of
// the ring given by inRing. ok is false when the atom cannot take part.
// The result depends only on the atom's flags and its non-aromatic bonds, so
// a perceived molecule scores every ring the same way on a second pass.
func (m *Molecule) piElectrons(a int, inRing map[int]bool, ri *ringInfo) (int, bool) {
	atom := m.Atoms[a]
	if !aromaticCapable[atom.Element] {
		return 0, false
	}

	var ringDouble, exoDouble, exoHetero, exoToRing bool
	for _, b := range m.adj[a] {
		bond := m.Bonds[b]
		switch bond.Order {
		case BondTriple:
			return 0, false
		case BondDouble:
			other := bond.Other(a)
			if inRing[other] {
				ringDouble = true
				continue
			}
			exoDouble = true
			switch m.Atoms[other].Element {
			case "O", "S", "N", "Se":
				if !ri.atomInRing[other] {
					exoHetero = true
				}
			}
			if ri.atomInRing[other] {
				exoToRing = true
			}
		}
	}

	if ringDouble {
		return 1, true
	}
	if exoDouble {
		switch {
		case exoHetero && atom.Element == "C":
			return 0, true
		case exoToRing:
			return 1, true
		default:
			return 0, false
		}
	}
	if m.isLonePairDonor(a) {
		return 2, true
	}
	if atom.Aromatic {
		return 1, true
	}
	switch {
	case atom.Element == "C" && atom.Charge == 1:
		return 0, true
	case atom.Element == "B" && atom.Charge == 0:
		return 0, true
	}
	return 0, false
}

// isLonePairDonor reports whether a saturated ring atom brings a lone pair
// into the π system (pyrrole NH, furan O, thiophene S, carbanions).
func (m *Molecule) isLonePairDonor(a int) bool {
	atom := m.Atoms[a]
	heavy := m.Degree(a)
	switch atom.Element {
	case "N", "P", "As":
		return atom.Charge == 0 && (atom.HCount > 0 || heavy == 3)
	case "O", "S", "Se", "Te":
		return atom.Charge == 0 && heavy == 2
	case "C":
		return atom.Charge == -1
	}
	return false
}

// fusedEnvelopes returns the perimeters of ring pairs sharing exactly one
// bond, which lets naphthalene- and azulene-type systems be judged as a whole.
func fusedEnvelopes(m *Molecule, rings [][]int) [][]int {
	var out [][]int
	seen := map[string]bool{}
	for i := 0; i < len(rings); i++ {
		for j := i + 1; j < len(rings); j++ {
			env := envelope(m, rings[i], rings[j])
			if env == nil || len(env) > maxAromaticEnvelope {
				continue
			}
			k := ringKey(env)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, env)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return len(out[a]) < len(out[b]) })
	return out
}

// envelope walks the perimeter of two rings fused on a single bond.
func envelope(m *Molecule, r1, r2 []int) []int {
	in2 := make(map[int]bool, len(r2))
	for _, a := range r2 {
		in2[a] = true
	}
	shared := 0
	for _, a := range r1 {
		if in2[a] {
			shared++
		}
	}
	if shared != 2 {
		return nil
	}

	union := map[int]bool{}
	for _, a := range r1 {
		union[a] = true
	}
	for _, a := range r2 {
		union[a] = true
	}

	// Perimeter bonds are ring bonds of exactly one of the two rings.
	count := map[int]int{}
	for _, r := range [][]int{r1, r2} {
		for _, b := range ringBonds(m, r) {
			count[b]++
		}
	}
	next := map[int][]int{}
	for b, c := range count {
		if c != 1 {
			continue
		}
		bond := m.Bonds[b]
		next[bond.From] = append(next[bond.From], bond.To)
		next[bond.To] = append(next[bond.To], bond.From)
	}

	start := r1[0]
	walk := []int{start}
	prev, cur := -1, start
	for {
		nbrs := next[cur]
		if len(nbrs) != 2 {
			return nil
		}
		nxt := nbrs[0]
		if nxt == prev {
			nxt = nbrs[1]
		}
		if nxt == start {
			break
		}
		walk = append(walk, nxt)
		prev, cur = cur, nxt
		if len(walk) > len(union) {
			return nil
		}
	}
	if len(walk) != len(union) {
		return nil
	}
	return walk
}
