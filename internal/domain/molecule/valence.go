package molecule

import "fmt"

// checkValences rejects atoms bonded beyond their highest allowed valence and
// aromatic systems that have no Kekulé structure. It runs on the parsed graph
// with hydrogen counts filled and before aromaticity perception. Aromatic
// bonds count as single; an aromatic atom below its next valence needs one
// double bond from the Kekulé assignment.
func (m *Molecule) checkValences() error {
	needs := make([]bool, len(m.Atoms))
	for i, a := range m.Atoms {
		e, ok := lookupElement(a.Element)
		if !ok {
			continue
		}
		vals := effectiveValences(e, a.Charge)
		if len(vals) == 0 {
			continue
		}
		used := m.ExplicitValence(i) + a.HCount
		target := -1
		for _, v := range vals {
			if v >= used {
				target = v
				break
			}
		}
		if target < 0 {
			return fmt.Errorf("atom %d (%s) has valence %d, allowed at most %d",
				i+1, a.Element, used, vals[len(vals)-1])
		}
		if a.Aromatic && m.hasAromaticBond(i) && target > used {
			needs[i] = true
		}
	}
	if !m.kekulizable(needs) {
		return fmt.Errorf("aromatic system cannot be kekulized")
	}
	return nil
}

// kekulizable reports whether every atom flagged in needs can take exactly one
// double bond along an aromatic bond to another flagged atom.
func (m *Molecule) kekulizable(needs []bool) bool {
	if !m.evenComponents(needs) {
		return false
	}
	matched := make([]int, len(m.Atoms))
	for i := range matched {
		matched[i] = -1
	}
	return m.matchDoubles(needs, matched)
}

// evenComponents checks that each connected group of flagged atoms has an
// even size, a cheap necessary condition for a perfect matching.
func (m *Molecule) evenComponents(needs []bool) bool {
	seen := make([]bool, len(m.Atoms))
	for start := range m.Atoms {
		if !needs[start] || seen[start] {
			continue
		}
		size := 0
		stack := []int{start}
		seen[start] = true
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			size++
			for _, b := range m.adj[i] {
				if m.Bonds[b].Order != BondAromatic {
					continue
				}
				j := m.Bonds[b].Other(i)
				if needs[j] && !seen[j] {
					seen[j] = true
					stack = append(stack, j)
				}
			}
		}
		if size%2 != 0 {
			return false
		}
	}
	return true
}

// matchDoubles extends matched by backtracking, always expanding the
// unmatched atom with the fewest free partners.
func (m *Molecule) matchDoubles(needs []bool, matched []int) bool {
	best, bestPartners := -1, []int(nil)
	for i := range m.Atoms {
		if !needs[i] || matched[i] >= 0 {
			continue
		}
		partners := m.doublePartners(i, needs, matched)
		if len(partners) == 0 {
			return false
		}
		if best < 0 || len(partners) < len(bestPartners) {
			best, bestPartners = i, partners
		}
	}
	if best < 0 {
		return true
	}
	for _, j := range bestPartners {
		matched[best], matched[j] = j, best
		if m.matchDoubles(needs, matched) {
			return true
		}
		matched[best], matched[j] = -1, -1
	}
	return false
}

func (m *Molecule) doublePartners(i int, needs []bool, matched []int) []int {
	var out []int
	for _, b := range m.adj[i] {
		if m.Bonds[b].Order != BondAromatic {
			continue
		}
		j := m.Bonds[b].Other(i)
		if needs[j] && matched[j] < 0 {
			out = append(out, j)
		}
	}
	return out
}
