package molecule

import "sort"

// ring is one cycle of the smallest set of smallest rings.
type ring struct {
	atoms []int
	bonds []int
}

// bondSet is a bitset over bond indices.
type bondSet []uint64

func newBondSet(n int) bondSet { return make(bondSet, (n+63)/64) }

func (s bondSet) add(b int)      { s[b/64] |= 1 << uint(b%64) }
func (s bondSet) has(b int) bool { return s[b/64]&(1<<uint(b%64)) != 0 }
func (s bondSet) xor(o bondSet) {
	for k := range s {
		s[k] ^= o[k]
	}
}
func (s bondSet) clone() bondSet { return append(bondSet(nil), s...) }
func (s bondSet) lowest() int {
	for k, w := range s {
		if w == 0 {
			continue
		}
		for bit := 0; bit < 64; bit++ {
			if w&(1<<uint(bit)) != 0 {
				return k*64 + bit
			}
		}
	}
	return -1
}

// smallestRings returns a minimum cycle basis: for every ring bond the
// shortest cycle through it, kept smallest first while linearly independent.
func (m *Molecule) smallestRings() []ring {
	want := len(m.Bonds) - len(m.Atoms) + m.components
	if want <= 0 {
		return nil
	}

	var candidates []ring
	for bi, b := range m.Bonds {
		if !b.Ring {
			continue
		}
		if r, ok := m.shortestCycle(bi); ok {
			candidates = append(candidates, r)
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return len(candidates[a].bonds) < len(candidates[b].bonds)
	})

	var (
		basis  []bondSet // reduced rows, each keyed by its lowest bond
		pivots []int
		out    []ring
	)
	for _, c := range candidates {
		v := newBondSet(len(m.Bonds))
		for _, b := range c.bonds {
			v.add(b)
		}
		for k, row := range basis {
			if v.has(pivots[k]) {
				v.xor(row)
			}
		}
		p := v.lowest()
		if p < 0 {
			continue
		}
		for k, row := range basis {
			if row.has(p) {
				row.xor(v)
				basis[k] = row
			}
		}
		basis = append(basis, v.clone())
		pivots = append(pivots, p)
		out = append(out, c)
		if len(out) == want {
			break
		}
	}
	return out
}

// shortestCycle finds the shortest ring path closing bond bi.
func (m *Molecule) shortestCycle(bi int) (ring, bool) {
	src, dst := m.Bonds[bi].Begin, m.Bonds[bi].End
	via := make([]int, len(m.Atoms))
	for i := range via {
		via[i] = -1
	}
	via[src] = bi
	queue := []int{src}
	for len(queue) > 0 && via[dst] < 0 {
		u := queue[0]
		queue = queue[1:]
		for _, b := range m.adj[u] {
			if b == bi || !m.Bonds[b].Ring {
				continue
			}
			v := m.Bonds[b].Other(u)
			if via[v] >= 0 {
				continue
			}
			via[v] = b
			queue = append(queue, v)
		}
	}
	if via[dst] < 0 {
		return ring{}, false
	}

	r := ring{atoms: []int{dst}, bonds: []int{bi}}
	for at := dst; at != src; {
		b := via[at]
		r.bonds = append(r.bonds, b)
		at = m.Bonds[b].Other(at)
		r.atoms = append(r.atoms, at)
	}
	return r, true
}

// piElectrons returns the electrons atom i donates to a conjugated ring, or
// -1 when the atom cannot take part.
func (m *Molecule) piElectrons(i int) int {
	a := m.Atoms[i]
	var (
		doubles int
		inRing  bool
		exoOnto string
		conns   = a.TotalH()
	)
	for _, bi := range m.adj[i] {
		b := m.Bonds[bi]
		conns++
		switch b.Order {
		case BondTriple, BondQuadruple:
			return -1
		case BondDouble:
			doubles++
			if b.Ring {
				inRing = true
			} else {
				exoOnto = m.Atoms[b.Other(i)].Element
			}
		}
	}

	switch {
	case doubles > 1:
		return -1
	case doubles == 1 && inRing:
		switch a.Element {
		case "C", "N", "P", "B":
			return 1
		}
		return -1
	case doubles == 1:
		if a.Element == "C" && (exoOnto == "O" || exoOnto == "N" || exoOnto == "S") {
			return 0
		}
		return -1
	}

	switch a.Element {
	case "C":
		switch a.Charge {
		case -1:
			return 2
		case 1:
			return 0
		}
	case "N", "P":
		if a.Charge == 0 && conns == 3 {
			return 2
		}
	case "O", "S", "Se":
		if a.Charge == 0 && conns == 2 {
			return 2
		}
	case "B":
		if a.Charge == 0 && conns == 3 {
			return 0
		}
	}
	return -1
}

// perceiveAromaticity marks Kekulé rings that satisfy the 4n+2 rule as
// aromatic.  Each ring is tried alone and then fused with every ring it
// shares a bond with.  Rings already written aromatic are left untouched.
func (m *Molecule) perceiveAromaticity() {
	rings := m.smallestRings()
	if len(rings) == 0 {
		return
	}

	electrons := make([]int, len(m.Atoms))
	for i := range m.Atoms {
		electrons[i] = m.piElectrons(i)
	}
	candidate := func(atoms []int) bool {
		for _, i := range atoms {
			if m.Atoms[i].Aromatic || electrons[i] < 0 {
				return false
			}
		}
		return true
	}
	huckel := func(atoms map[int]bool) bool {
		sum := 0
		for i := range atoms {
			sum += electrons[i]
		}
		return sum%4 == 2
	}
	asSet := func(rs ...ring) map[int]bool {
		s := map[int]bool{}
		for _, r := range rs {
			for _, i := range r.atoms {
				s[i] = true
			}
		}
		return s
	}

	aromatic := make([]bool, len(rings))
	for k, r := range rings {
		aromatic[k] = candidate(r.atoms) && huckel(asSet(r))
	}
	for x := range rings {
		for y := x + 1; y < len(rings); y++ {
			if aromatic[x] && aromatic[y] {
				continue
			}
			if !sharesBond(rings[x], rings[y]) {
				continue
			}
			if candidate(rings[x].atoms) && candidate(rings[y].atoms) && huckel(asSet(rings[x], rings[y])) {
				aromatic[x], aromatic[y] = true, true
			}
		}
	}

	for k, r := range rings {
		if !aromatic[k] {
			continue
		}
		for _, i := range r.atoms {
			m.Atoms[i].Aromatic = true
		}
		for _, b := range r.bonds {
			m.Bonds[b].Order = BondAromatic
		}
	}
}

func sharesBond(a, b ring) bool {
	for _, x := range a.bonds {
		for _, y := range b.bonds {
			if x == y {
				return true
			}
		}
	}
	return false
}
