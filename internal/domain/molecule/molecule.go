// Package molecule parses linear structure notation (SMILES) into a molecular
// graph and computes named molecular descriptors over it.
package molecule

// BondOrder is the multiplicity of a bond.
type BondOrder int

const (
	BondSingle    BondOrder = 1
	BondDouble    BondOrder = 2
	BondTriple    BondOrder = 3
	BondQuadruple BondOrder = 4
	BondAromatic  BondOrder = 5
)

// Valence returns the bond's contribution to an atom's valence.
func (o BondOrder) Valence() float64 {
	if o == BondAromatic {
		return 1.5
	}
	return float64(o)
}

// Atom is one node of the molecular graph.  Hydrogens written as bracket
// atoms ([H]) are atoms; all others are counted in ImplicitH or ExplicitH.
type Atom struct {
	Element   string
	Aromatic  bool
	Charge    int
	Isotope   int
	Bracket   bool
	ExplicitH int // hydrogens written inside brackets
	ImplicitH int // hydrogens implied by default valence
}

// TotalH returns the hydrogens carried by the atom itself.
func (a Atom) TotalH() int { return a.ImplicitH + a.ExplicitH }

// Bond connects two atoms by index.
type Bond struct {
	Begin int
	End   int
	Order BondOrder
	Ring  bool
}

// Other returns the bond partner of atom i.
func (b Bond) Other(i int) int {
	if b.Begin == i {
		return b.End
	}
	return b.Begin
}

// Molecule is a parsed molecular graph.
type Molecule struct {
	SMILES     string
	Atoms      []Atom
	Bonds      []Bond
	adj        [][]int // bond indices per atom
	components int
}

// NumAtoms returns the number of graph atoms.
func (m *Molecule) NumAtoms() int { return len(m.Atoms) }

// Components returns the number of disconnected fragments.
func (m *Molecule) Components() int { return m.components }

// AtomBonds returns the bonds touching atom i.
func (m *Molecule) AtomBonds(i int) []Bond {
	out := make([]Bond, len(m.adj[i]))
	for k, b := range m.adj[i] {
		out[k] = m.Bonds[b]
	}
	return out
}

// IsHydrogen reports whether atom i is a graph hydrogen.
func (m *Molecule) IsHydrogen(i int) bool { return m.Atoms[i].Element == "H" }

// HeavyDegree returns the number of non-hydrogen neighbours of atom i.
func (m *Molecule) HeavyDegree(i int) int {
	n := 0
	for _, b := range m.adj[i] {
		if !m.IsHydrogen(m.Bonds[b].Other(i)) {
			n++
		}
	}
	return n
}

// HydrogenCount returns every hydrogen on atom i, graph hydrogens included.
func (m *Molecule) HydrogenCount(i int) int {
	n := m.Atoms[i].TotalH()
	for _, b := range m.adj[i] {
		if m.IsHydrogen(m.Bonds[b].Other(i)) {
			n++
		}
	}
	return n
}

// InRing reports whether atom i belongs to at least one ring.
func (m *Molecule) InRing(i int) bool {
	for _, b := range m.adj[i] {
		if m.Bonds[b].Ring {
			return true
		}
	}
	return false
}

// InThreeRing reports whether atom i is in a three-membered ring.
func (m *Molecule) InThreeRing(i int) bool {
	for _, b1 := range m.adj[i] {
		if !m.Bonds[b1].Ring {
			continue
		}
		j := m.Bonds[b1].Other(i)
		for _, b2 := range m.adj[i] {
			if b2 == b1 || !m.Bonds[b2].Ring {
				continue
			}
			k := m.Bonds[b2].Other(i)
			if m.bonded(j, k) {
				return true
			}
		}
	}
	return false
}

// neighbour is a heavy atom bonded to some atom, with the bond order.
type neighbour struct {
	atom  int
	order BondOrder
}

// neighbours returns the non-hydrogen neighbours of atom i.
func (m *Molecule) neighbours(i int) []neighbour {
	out := make([]neighbour, 0, len(m.adj[i]))
	for _, bi := range m.adj[i] {
		b := m.Bonds[bi]
		if j := b.Other(i); !m.IsHydrogen(j) {
			out = append(out, neighbour{atom: j, order: b.Order})
		}
	}
	return out
}

// connectivity is the total number of connections of atom i, hydrogens
// included.
func (m *Molecule) connectivity(i int) int {
	return len(m.adj[i]) + m.Atoms[i].TotalH()
}

// valence sums bond orders and hydrogens on atom i.
func (m *Molecule) valence(i int) int {
	v := 0.0
	for _, bi := range m.adj[i] {
		v += m.Bonds[bi].Order.Valence()
	}
	return int(v+0.5) + m.Atoms[i].TotalH()
}

func (m *Molecule) bonded(i, j int) bool {
	for _, b := range m.adj[i] {
		if m.Bonds[b].Other(i) == j {
			return true
		}
	}
	return false
}

// finalize builds adjacency, marks ring bonds and counts fragments.
func (m *Molecule) finalize() {
	m.adj = make([][]int, len(m.Atoms))
	for bi, b := range m.Bonds {
		m.adj[b.Begin] = append(m.adj[b.Begin], bi)
		m.adj[b.End] = append(m.adj[b.End], bi)
	}
	m.markRingBonds()
	m.components = m.countComponents()
}

// markRingBonds flags every bond that is not a bridge of the graph.
func (m *Molecule) markRingBonds() {
	n := len(m.Atoms)
	disc := make([]int, n)
	low := make([]int, n)
	for i := range disc {
		disc[i] = -1
	}
	for b := range m.Bonds {
		m.Bonds[b].Ring = true
	}

	timer := 0
	var visit func(u, parentBond int)
	visit = func(u, parentBond int) {
		disc[u] = timer
		low[u] = timer
		timer++
		for _, b := range m.adj[u] {
			if b == parentBond {
				continue
			}
			v := m.Bonds[b].Other(u)
			if disc[v] == -1 {
				visit(v, b)
				if low[v] < low[u] {
					low[u] = low[v]
				}
				if low[v] > disc[u] {
					m.Bonds[b].Ring = false
				}
			} else if disc[v] < low[u] {
				low[u] = disc[v]
			}
		}
	}
	for i := 0; i < n; i++ {
		if disc[i] == -1 {
			visit(i, -1)
		}
	}
}

func (m *Molecule) countComponents() int {
	seen := make([]bool, len(m.Atoms))
	count := 0
	for s := range m.Atoms {
		if seen[s] {
			continue
		}
		count++
		stack := []int{s}
		seen[s] = true
		for len(stack) > 0 {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, b := range m.adj[u] {
				if v := m.Bonds[b].Other(u); !seen[v] {
					seen[v] = true
					stack = append(stack, v)
				}
			}
		}
	}
	return count
}
