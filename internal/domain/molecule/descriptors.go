package molecule

import (
	"github.com/turtacn/liposome-ivr/pkg/errors"
)

// electronMass is subtracted per unit of positive charge in ExactMolWt.
const electronMass = 0.00054857990946

// DescriptorFunc computes one numeric descriptor.
type DescriptorFunc func(*Molecule) (float64, error)

// Descriptor is a named descriptor function.
type Descriptor struct {
	Name string
	Fn   DescriptorFunc
}

// Registry is an ordered, name-unique set of descriptors.
type Registry struct {
	descs []Descriptor
	index map[string]int
}

// NewRegistry builds a registry, keeping the given order.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{index: make(map[string]int, len(descs))}
	for _, d := range descs {
		if d.Name == "" || d.Fn == nil {
			return nil, errors.InvalidParam("descriptor needs a name and a function")
		}
		if _, dup := r.index[d.Name]; dup {
			return nil, errors.InvalidParam("duplicate descriptor name").WithDetail("name=" + d.Name)
		}
		r.index[d.Name] = len(r.descs)
		r.descs = append(r.descs, d)
	}
	return r, nil
}

// DefaultRegistry returns every built-in descriptor.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		Descriptor{"MolWt", guard(MolWt)},
		Descriptor{"HeavyAtomMolWt", guard(HeavyAtomMolWt)},
		Descriptor{"ExactMolWt", guard(ExactMolWt)},
		Descriptor{"HeavyAtomCount", guard(HeavyAtomCount)},
		Descriptor{"NumHeteroatoms", guard(NumHeteroatoms)},
		Descriptor{"NHOHCount", guard(NHOHCount)},
		Descriptor{"NOCount", guard(NOCount)},
		Descriptor{"NumHDonors", guard(NumHDonors)},
		Descriptor{"NumHAcceptors", guard(NumHAcceptors)},
		Descriptor{"NumRotatableBonds", guard(NumRotatableBonds)},
		Descriptor{"RingCount", guard(RingCount)},
		Descriptor{"FractionCSP3", guard(FractionCSP3)},
		Descriptor{"TPSA", guard(TPSA)},
		Descriptor{"MolLogP", guard(MolLogP)},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Len returns the number of descriptors.
func (r *Registry) Len() int { return len(r.descs) }

// Names returns descriptor names in registry order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.descs))
	for i, d := range r.descs {
		out[i] = d.Name
	}
	return out
}

// Descriptors returns a copy of the registry entries.
func (r *Registry) Descriptors() []Descriptor {
	return append([]Descriptor(nil), r.descs...)
}

// Select returns a registry restricted to names, in the order given.
func (r *Registry) Select(names []string) (*Registry, error) {
	picked := make([]Descriptor, 0, len(names))
	for _, n := range names {
		i, ok := r.index[n]
		if !ok {
			return nil, errors.New(errors.ErrCodeDescriptorUnknown, "unknown descriptor").WithDetail("name=" + n)
		}
		picked = append(picked, r.descs[i])
	}
	return NewRegistry(picked...)
}

func guard(fn DescriptorFunc) DescriptorFunc {
	return func(m *Molecule) (float64, error) {
		if m == nil {
			return 0, errors.New(errors.ErrCodeMoleculeNil, "no molecule")
		}
		return fn(m)
	}
}

func unsupported(m *Molecule, i int) error {
	return errors.Newf(errors.ErrCodeUnsupportedElement, "unsupported element %q", m.Atoms[i].Element).
		WithDetail("smiles=" + m.SMILES)
}

func isHeavy(a Atom) bool { return a.Element != "H" && a.Element != "*" }

// MolWt is the average molecular weight including hydrogens.
func MolWt(m *Molecule) (float64, error) {
	return weight(m, true, false)
}

// HeavyAtomMolWt is the average molecular weight ignoring hydrogens.
func HeavyAtomMolWt(m *Molecule) (float64, error) {
	return weight(m, false, false)
}

// ExactMolWt is the monoisotopic mass corrected for charge.
func ExactMolWt(m *Molecule) (float64, error) {
	return weight(m, true, true)
}

func weight(m *Molecule, withH, mono bool) (float64, error) {
	h, _ := LookupElement("H")
	hMass := h.AvgMass
	if mono {
		hMass = h.MonoMass
	}
	total := 0.0
	for i, a := range m.Atoms {
		if a.Element == "H" && !withH {
			continue
		}
		el, ok := LookupElement(a.Element)
		if !ok {
			return 0, unsupported(m, i)
		}
		switch {
		case a.Isotope > 0:
			total += float64(a.Isotope)
		case mono:
			total += el.MonoMass
		default:
			total += el.AvgMass
		}
		if withH {
			total += float64(a.TotalH()) * hMass
		}
		if mono {
			total -= float64(a.Charge) * electronMass
		}
	}
	return total, nil
}

// HeavyAtomCount counts non-hydrogen atoms.
func HeavyAtomCount(m *Molecule) (float64, error) {
	n := 0
	for _, a := range m.Atoms {
		if isHeavy(a) {
			n++
		}
	}
	return float64(n), nil
}

// NumHeteroatoms counts atoms other than carbon and hydrogen.
func NumHeteroatoms(m *Molecule) (float64, error) {
	n := 0
	for _, a := range m.Atoms {
		if isHeavy(a) && a.Element != "C" {
			n++
		}
	}
	return float64(n), nil
}

// NHOHCount counts hydrogens on nitrogen and oxygen.
func NHOHCount(m *Molecule) (float64, error) {
	n := 0
	for i, a := range m.Atoms {
		if a.Element == "N" || a.Element == "O" {
			n += m.HydrogenCount(i)
		}
	}
	return float64(n), nil
}

// NOCount counts nitrogen and oxygen atoms.
func NOCount(m *Molecule) (float64, error) {
	n := 0
	for _, a := range m.Atoms {
		if a.Element == "N" || a.Element == "O" {
			n++
		}
	}
	return float64(n), nil
}

// NumHDonors follows the Lipinski donor definition: NH with valence 3, NH+
// with valence 4, neutral OH and SH, and neutral aromatic [nH].
func NumHDonors(m *Molecule) (float64, error) {
	n := 0
	for i, a := range m.Atoms {
		h := m.HydrogenCount(i)
		if h == 0 {
			continue
		}
		switch {
		case a.Aromatic:
			if a.Element == "N" && a.Charge == 0 && h == 1 {
				n++
			}
		case a.Element == "N":
			v := m.valence(i)
			if (a.Charge == 0 && v == 3) || (a.Charge == 1 && v == 4) {
				n++
			}
		case a.Element == "O" || a.Element == "S":
			if a.Charge == 0 && h == 1 {
				n++
			}
		}
	}
	return float64(n), nil
}

// NumHAcceptors follows the Lipinski acceptor definition.  Counted: O and S
// as ethers, carbonyls, anions, or hydroxyls not on an acid carbon; N with
// valence 3 that is not amide-like; unprotonated aromatic n, o and s; every F.
func NumHAcceptors(m *Molecule) (float64, error) {
	n := 0
	for i := range m.Atoms {
		if m.isAcceptor(i) {
			n++
		}
	}
	return float64(n), nil
}

func (m *Molecule) isAcceptor(i int) bool {
	a := m.Atoms[i]
	if a.Element == "F" {
		return true
	}
	if a.Aromatic {
		switch a.Element {
		case "N":
			return a.Charge == 0 && m.HydrogenCount(i) == 0
		case "O", "S":
			return a.Charge == 0
		}
		return false
	}

	switch a.Element {
	case "O", "S":
		if a.Charge == -1 {
			return true
		}
		if m.valence(i) != 2 {
			return false
		}
		switch m.HydrogenCount(i) {
		case 0:
			return true
		case 1:
			for _, bi := range m.adj[i] {
				b := m.Bonds[bi]
				if b.Order == BondSingle && !m.doubleBondedToHetero(b.Other(i), -1, false) {
					return true
				}
			}
		}
	case "N":
		if m.valence(i) != 3 {
			return false
		}
		for _, nb := range m.neighbours(i) {
			if nb.order == BondSingle && m.doubleBondedToHetero(nb.atom, i, true) {
				return false
			}
		}
		return true
	}
	return false
}

// doubleBondedToHetero reports whether atom j carries a double bond to an
// aliphatic O, N, P or S other than skip.  acyclic restricts the search to
// non-ring bonds.
func (m *Molecule) doubleBondedToHetero(j, skip int, acyclic bool) bool {
	for _, bi := range m.adj[j] {
		b := m.Bonds[bi]
		if b.Order != BondDouble || (acyclic && b.Ring) {
			continue
		}
		k := b.Other(j)
		if k == skip || m.Atoms[k].Aromatic {
			continue
		}
		switch m.Atoms[k].Element {
		case "O", "N", "P", "S":
			return true
		}
	}
	return false
}

// NumRotatableBonds counts acyclic single bonds between non-terminal heavy
// atoms.  Atoms next to a triple bond, CX3 and tert-butyl centres cannot
// anchor a rotor, and at least one end must sit outside an amide, ester or
// thioester linkage.
func NumRotatableBonds(m *Molecule) (float64, error) {
	n := 0
	for _, b := range m.Bonds {
		if b.Ring || b.Order != BondSingle {
			continue
		}
		x, y := b.Begin, b.End
		if !m.rotorEnd(x) || !m.rotorEnd(y) {
			continue
		}
		if m.inLinkage(x) && m.inLinkage(y) {
			continue
		}
		n++
	}
	return float64(n), nil
}

// rotorEnd reports whether atom i can anchor a rotatable bond.
func (m *Molecule) rotorEnd(i int) bool {
	if !isHeavy(m.Atoms[i]) || m.HeavyDegree(i) < 2 || m.hasTriple(i) {
		return false
	}
	if m.Atoms[i].Element != "C" || m.Atoms[i].Aromatic {
		return true
	}
	halogens := map[string]int{}
	methyls := 0
	for _, nb := range m.neighbours(i) {
		o := m.Atoms[nb.atom]
		switch o.Element {
		case "F", "Cl", "Br":
			halogens[o.Element]++
		case "C":
			if !o.Aromatic && m.HydrogenCount(nb.atom) == 3 {
				methyls++
			}
		}
	}
	for _, c := range halogens {
		if c >= 3 {
			return false
		}
	}
	return methyls < 3
}

func (m *Molecule) hasTriple(i int) bool {
	for _, b := range m.adj[i] {
		if m.Bonds[b].Order == BondTriple {
			return true
		}
	}
	return false
}

// inLinkage reports whether atom i is the acyl carbon or the heteroatom of
// an acyclic amide, ester or thioester style linkage.
func (m *Molecule) inLinkage(i int) bool {
	if m.acylCarbon(i) {
		for _, nb := range m.neighbours(i) {
			if nb.order == BondSingle && !m.bondInRing(i, nb.atom) && m.linkageHetero(nb.atom) {
				return true
			}
		}
	}
	if m.linkageHetero(i) {
		for _, nb := range m.neighbours(i) {
			if nb.order == BondSingle && !m.bondInRing(i, nb.atom) && m.acylCarbon(nb.atom) {
				return true
			}
		}
	}
	return false
}

// acylCarbon is a three-connected aliphatic carbon double bonded to an
// aliphatic N, O or S.
func (m *Molecule) acylCarbon(i int) bool {
	a := m.Atoms[i]
	if a.Element != "C" || a.Aromatic || m.HeavyDegree(i) != 3 {
		return false
	}
	for _, nb := range m.neighbours(i) {
		o := m.Atoms[nb.atom]
		if nb.order == BondDouble && !o.Aromatic && (o.Element == "N" || o.Element == "O" || o.Element == "S") {
			return true
		}
	}
	return false
}

func (m *Molecule) linkageHetero(i int) bool {
	a := m.Atoms[i]
	switch {
	case a.Element == "N":
		return true
	case a.Aromatic:
		return false
	case a.Element == "O":
		return true
	case a.Element == "S":
		return m.HeavyDegree(i) != 1
	}
	return false
}

func (m *Molecule) bondInRing(i, j int) bool {
	for _, bi := range m.adj[i] {
		if b := m.Bonds[bi]; b.Other(i) == j {
			return b.Ring
		}
	}
	return false
}

// RingCount is the cyclomatic number of the graph.
func RingCount(m *Molecule) (float64, error) {
	return float64(len(m.Bonds) - len(m.Atoms) + m.components), nil
}

// FractionCSP3 is the share of carbons that are sp3.
func FractionCSP3(m *Molecule) (float64, error) {
	carbons, sp3 := 0, 0
	for i, a := range m.Atoms {
		if a.Element != "C" {
			continue
		}
		carbons++
		if a.Aromatic {
			continue
		}
		saturated := true
		for _, b := range m.adj[i] {
			if m.Bonds[b].Order != BondSingle {
				saturated = false
				break
			}
		}
		if saturated {
			sp3++
		}
	}
	if carbons == 0 {
		return 0, nil
	}
	return float64(sp3) / float64(carbons), nil
}

// bondProfile counts bonds of atom i to heavy neighbours by order.
type bondProfile struct {
	single, double, triple, aromatic int
}

func (m *Molecule) profile(i int) bondProfile {
	var p bondProfile
	for _, bi := range m.adj[i] {
		b := m.Bonds[bi]
		if m.IsHydrogen(b.Other(i)) {
			continue
		}
		switch b.Order {
		case BondDouble:
			p.double++
		case BondTriple:
			p.triple++
		case BondAromatic:
			p.aromatic++
		default:
			p.single++
		}
	}
	return p
}

// TPSA is the topological polar surface area from N and O contributions.
func TPSA(m *Molecule) (float64, error) {
	total := 0.0
	for i, a := range m.Atoms {
		switch a.Element {
		case "N":
			total += nitrogenPSA(m, i)
		case "O":
			total += oxygenPSA(m, i)
		}
	}
	return total, nil
}

func nitrogenPSA(m *Molecule, i int) float64 {
	a := m.Atoms[i]
	p := m.profile(i)
	h := m.HydrogenCount(i)

	if a.Aromatic {
		switch {
		case a.Charge == 0 && h == 0 && p.aromatic == 2 && p.single+p.double == 0:
			return 12.89
		case a.Charge == 0 && h == 0 && p.aromatic == 3:
			return 4.41
		case a.Charge == 0 && h == 0 && p.aromatic == 2 && p.single == 1:
			return 4.93
		case a.Charge == 0 && h == 0 && p.aromatic == 2 && p.double == 1:
			return 8.39
		case a.Charge == 0 && h == 1 && p.aromatic == 2:
			return 15.79
		case a.Charge == 1 && h == 0 && p.aromatic == 3:
			return 4.10
		case a.Charge == 1 && h == 0 && p.aromatic == 2 && p.single == 1:
			return 3.88
		case a.Charge == 1 && h == 1 && p.aromatic == 2:
			return 14.14
		}
	} else {
		switch a.Charge {
		case 0:
			switch {
			case h == 0 && p.single == 3:
				if m.InThreeRing(i) {
					return 3.01
				}
				return 3.24
			case h == 0 && p.single == 1 && p.double == 1:
				return 12.36
			case h == 0 && p.triple == 1:
				return 23.79
			case h == 0 && p.single == 1 && p.double == 2:
				return 11.68
			case h == 0 && p.double == 2:
				return 13.60
			case h == 1 && p.single == 2:
				if m.InThreeRing(i) {
					return 21.94
				}
				return 12.03
			case h == 1 && p.double == 1:
				return 23.85
			case h == 2 && p.single == 1:
				return 26.02
			}
		case 1:
			switch {
			case h == 0 && p.single == 4:
				return 0.00
			case h == 0 && p.single == 2 && p.double == 1:
				return 3.01
			case h == 0 && p.single == 1 && p.triple == 1:
				return 4.36
			case h == 1 && p.single == 3:
				return 4.44
			case h == 1 && p.single == 1 && p.double == 1:
				return 13.97
			case h == 2 && p.single == 2:
				return 16.61
			case h == 2 && p.double == 1:
				return 25.59
			case h == 3 && p.single == 1:
				return 27.64
			}
		}
	}
	return clampPSA(30.5 - 8.2*float64(m.HeavyDegree(i)) + 1.5*float64(h))
}

func oxygenPSA(m *Molecule, i int) float64 {
	a := m.Atoms[i]
	p := m.profile(i)
	h := m.HydrogenCount(i)

	switch {
	case a.Aromatic && a.Charge == 0 && p.aromatic == 2:
		return 13.14
	case a.Charge == 0 && h == 0 && p.single == 2:
		if m.InThreeRing(i) {
			return 12.53
		}
		return 9.23
	case a.Charge == 0 && h == 0 && p.double == 1:
		return 17.07
	case a.Charge == 0 && h == 1 && p.single == 1:
		return 20.23
	case a.Charge == -1 && h == 0 && p.single == 1:
		return 23.06
	}
	return clampPSA(28.5 - 8.6*float64(m.HeavyDegree(i)) + 1.5*float64(h))
}

func clampPSA(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
