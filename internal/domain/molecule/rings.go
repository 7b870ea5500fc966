package molecule

import (
	"sort"
)

// ringInfo caches ring membership and the small rings of a molecule.
type ringInfo struct {
	bondInRing []bool
	atomInRing []bool

	// rings lists, for every ring bond, the smallest cycle through it,
	// deduplicated. Each ring is an ordered walk of atom indices.
	rings [][]int
}

// perceiveRings finds ring bonds with Tarjan's bridge search and the
// smallest ring through each ring bond by breadth-first search.
func perceiveRings(m *Molecule, maxRingSize int) *ringInfo {
	n := len(m.Atoms)
	ri := &ringInfo{
		bondInRing: make([]bool, len(m.Bonds)),
		atomInRing: make([]bool, n),
	}

	isBridge := findBridges(m)
	for b := range m.Bonds {
		if !isBridge[b] {
			ri.bondInRing[b] = true
			ri.atomInRing[m.Bonds[b].From] = true
			ri.atomInRing[m.Bonds[b].To] = true
		}
	}

	seen := map[string]bool{}
	for b, inRing := range ri.bondInRing {
		if !inRing {
			continue
		}
		ring := smallestRingThrough(m, b, ri.bondInRing, maxRingSize)
		if ring == nil {
			continue
		}
		key := ringKey(ring)
		if seen[key] {
			continue
		}
		seen[key] = true
		ri.rings = append(ri.rings, ring)
	}

	sort.SliceStable(ri.rings, func(i, j int) bool {
		if len(ri.rings[i]) != len(ri.rings[j]) {
			return len(ri.rings[i]) < len(ri.rings[j])
		}
		return ringKey(ri.rings[i]) < ringKey(ri.rings[j])
	})
	return ri
}

// findBridges marks bonds whose removal disconnects the graph.
func findBridges(m *Molecule) []bool {
	n := len(m.Atoms)
	bridge := make([]bool, len(m.Bonds))
	disc := make([]int, n)
	low := make([]int, n)
	for i := range disc {
		disc[i] = -1
	}
	timer := 0

	type frame struct {
		atom, viaBond, next int
	}
	for root := 0; root < n; root++ {
		if disc[root] >= 0 {
			continue
		}
		stack := []frame{{atom: root, viaBond: -1}}
		disc[root], low[root] = timer, timer
		timer++
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			bonds := m.adj[top.atom]
			if top.next < len(bonds) {
				b := bonds[top.next]
				top.next++
				if b == top.viaBond {
					continue
				}
				nb := m.Bonds[b].Other(top.atom)
				if disc[nb] < 0 {
					disc[nb], low[nb] = timer, timer
					timer++
					stack = append(stack, frame{atom: nb, viaBond: b})
				} else if disc[nb] < low[top.atom] {
					low[top.atom] = disc[nb]
				}
				continue
			}
			done := *top
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				parent := &stack[len(stack)-1]
				if low[done.atom] < low[parent.atom] {
					low[parent.atom] = low[done.atom]
				}
				if low[done.atom] > disc[parent.atom] {
					bridge[done.viaBond] = true
				}
			}
		}
	}
	return bridge
}

// smallestRingThrough returns the shortest cycle containing bond b, using
// only ring bonds, or nil when none is within maxSize atoms.
func smallestRingThrough(m *Molecule, b int, ringBond []bool, maxSize int) []int {
	src, dst := m.Bonds[b].From, m.Bonds[b].To
	prev := make(map[int]int, 16)
	prev[src] = -1
	dist := map[int]int{src: 0}
	queue := []int{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if dist[cur]+1 >= maxSize {
			continue
		}
		nbrs := m.adj[cur]
		for _, nb := range nbrs {
			if nb == b || !ringBond[nb] {
				continue
			}
			next := m.Bonds[nb].Other(cur)
			if _, ok := prev[next]; ok {
				continue
			}
			prev[next] = cur
			dist[next] = dist[cur] + 1
			if next == dst {
				var path []int
				for at := dst; at != -1; at = prev[at] {
					path = append(path, at)
				}
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func ringKey(ring []int) string {
	s := append([]int(nil), ring...)
	sort.Ints(s)
	b := make([]byte, 0, len(s)*3)
	for _, v := range s {
		b = append(b, byte(v>>16), byte(v>>8), byte(v))
	}
	return string(b)
}

// ringBonds returns the bond indices along a ring walk.
func ringBonds(m *Molecule, ring []int) []int {
	out := make([]int, 0, len(ring))
	for i := range ring {
		b := m.BondBetween(ring[i], ring[(i+1)%len(ring)])
		if b >= 0 {
			out = append(out, b)
		}
	}
	return out
}

// RingCount returns the number of distinct smallest rings found.
func (m *Molecule) RingCount() int {
	return len(perceiveRings(m, len(m.Atoms)+1).rings)
}
