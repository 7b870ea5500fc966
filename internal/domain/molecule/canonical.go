package molecule

import (
	"sort"
)

// invariant is the graph-local description of an atom used to seed ranking.
type invariant [8]int

func atomInvariant(m *Molecule, i int, ri *ringInfo) invariant {
	a := m.Atoms[i]
	ring, arom := 0, 0
	if ri.atomInRing[i] {
		ring = 1
	}
	if a.Aromatic {
		arom = 1
	}
	return invariant{
		a.Number,
		m.Degree(i),
		a.HCount,
		a.Charge + 8, // keep ordering stable for negative charges
		a.Isotope,
		arom,
		ring,
		m.ExplicitValence(i),
	}
}

// CanonicalRanks assigns every atom a distinct rank that does not depend on
// input atom order for symmetric-equivalent atoms. Ranks start at 0.
func CanonicalRanks(m *Molecule) []int {
	n := len(m.Atoms)
	if n == 0 {
		return nil
	}
	ri := perceiveRings(m, n+1)

	inv := make([]invariant, n)
	for i := range inv {
		inv[i] = atomInvariant(m, i, ri)
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		return lessInvariant(inv[order[x]], inv[order[y]])
	})
	ranks := make([]int, n)
	r := 0
	for k, idx := range order {
		if k > 0 && inv[idx] != inv[order[k-1]] {
			r = k
		}
		ranks[idx] = r
	}

	ranks = refine(m, ranks)
	for {
		tie := lowestTiedRank(ranks)
		if tie < 0 {
			break
		}
		// Break the tie by promoting the first atom of the tied class: double
		// every rank and pull the chosen atom one below its peers.
		chosen := -1
		for i, rk := range ranks {
			if rk == tie {
				chosen = i
				break
			}
		}
		for i := range ranks {
			ranks[i] *= 2
		}
		ranks[chosen]--
		ranks = refine(m, normalize(ranks))
	}
	return ranks
}

func lessInvariant(a, b invariant) bool {
	for k := range a {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return false
}

// refine iteratively splits rank classes by the sorted ranks of each atom's
// neighbours (weighted by bond order) until the partition stops changing.
func refine(m *Molecule, ranks []int) []int {
	n := len(ranks)
	type key struct {
		self  int
		neigh []int
	}
	classes := countClasses(ranks)
	for {
		keys := make([]key, n)
		for i := 0; i < n; i++ {
			nb := make([]int, 0, len(m.adj[i]))
			for _, b := range m.adj[i] {
				bond := m.Bonds[b]
				nb = append(nb, ranks[bond.Other(i)]*8+int(bond.Order))
			}
			sort.Ints(nb)
			keys[i] = key{self: ranks[i], neigh: nb}
		}
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		less := func(x, y key) bool {
			if x.self != y.self {
				return x.self < y.self
			}
			for k := 0; k < len(x.neigh) && k < len(y.neigh); k++ {
				if x.neigh[k] != y.neigh[k] {
					return x.neigh[k] < y.neigh[k]
				}
			}
			return len(x.neigh) < len(y.neigh)
		}
		sort.SliceStable(order, func(a, b int) bool { return less(keys[order[a]], keys[order[b]]) })

		next := make([]int, n)
		r := 0
		for k, idx := range order {
			if k > 0 && less(keys[order[k-1]], keys[idx]) {
				r = k
			}
			next[idx] = r
		}
		c := countClasses(next)
		ranks = next
		if c == classes {
			return ranks
		}
		classes = c
	}
}

func countClasses(ranks []int) int {
	seen := make(map[int]struct{}, len(ranks))
	for _, r := range ranks {
		seen[r] = struct{}{}
	}
	return len(seen)
}

// normalize maps ranks onto 0..k-1 style positions preserving order, where
// tied atoms share the position of the first atom of their class.
func normalize(ranks []int) []int {
	n := len(ranks)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return ranks[order[a]] < ranks[order[b]] })
	out := make([]int, n)
	r := 0
	for k, idx := range order {
		if k > 0 && ranks[idx] != ranks[order[k-1]] {
			r = k
		}
		out[idx] = r
	}
	return out
}

func lowestTiedRank(ranks []int) int {
	count := map[int]int{}
	for _, r := range ranks {
		count[r]++
	}
	best := -1
	for r, c := range count {
		if c > 1 && (best < 0 || r < best) {
			best = r
		}
	}
	return best
}
