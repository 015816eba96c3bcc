package molecule

// Wildman-Crippen atom contributions.  Every heavy atom takes the first type
// it matches; each hydrogen is typed by the atom carrying it.
const (
	crippenCS = 0.08129
	crippenNS = -0.4806
	crippenOS = -0.1188
	crippenHS = 0.1125

	crippenHonC     = 0.1230  // H1
	crippenHPolar   = -0.2677 // H2: alcohol, phenol and non-CNO hosts
	crippenHonN     = 0.2142  // H3
	crippenHAcidic  = 0.2980  // H4
	crippenHalide   = -2.996
	crippenMetalI   = -0.3808
	crippenMetalII  = -0.0025
	crippenPhosphor = 0.8612
)

var crippenHalogen = map[string]float64{"F": 0.4202, "Cl": 0.6895, "Br": 0.8456, "I": 0.8857}

var crippenMetal = map[string]float64{
	"Li": crippenMetalI, "Na": crippenMetalI, "K": crippenMetalI,
	"B": crippenMetalII, "Mg": crippenMetalII, "Al": crippenMetalII, "Si": crippenMetalII,
	"Ca": crippenMetalII, "Fe": crippenMetalII, "Cu": crippenMetalII, "Zn": crippenMetalII,
	"Se": crippenMetalII, "Ag": crippenMetalII, "Pt": crippenMetalII, "Au": crippenMetalII,
}

// MolLogP is the Wildman-Crippen octanol/water partition coefficient.
func MolLogP(m *Molecule) (float64, error) {
	total := 0.0
	for i, a := range m.Atoms {
		if a.Element == "H" {
			total += m.loneHydrogenLogP(i)
			continue
		}
		v, ok := m.heavyLogP(i)
		if !ok {
			return 0, unsupported(m, i)
		}
		total += v + float64(m.HydrogenCount(i))*m.hydrogenLogP(i)
	}
	return total, nil
}

// loneHydrogenLogP types graph hydrogens that no heavy atom accounts for.
func (m *Molecule) loneHydrogenLogP(i int) float64 {
	hydrogenPartner := false
	for _, bi := range m.adj[i] {
		if !m.IsHydrogen(m.Bonds[bi].Other(i)) {
			return 0
		}
		hydrogenPartner = true
	}
	if hydrogenPartner {
		return crippenHonC
	}
	return crippenHS
}

func (m *Molecule) heavyLogP(i int) (float64, bool) {
	a := m.Atoms[i]
	switch a.Element {
	case "C":
		if a.Aromatic {
			return m.aromaticCarbonLogP(i), true
		}
		return m.carbonLogP(i), true
	case "N":
		return m.nitrogenLogP(i), true
	case "O":
		return m.oxygenLogP(i), true
	case "S":
		switch {
		case a.Aromatic:
			return 0.6237, true
		case a.Charge == 0:
			return 0.6482, true
		}
		return -0.0024, true
	case "P":
		return crippenPhosphor, true
	}
	if v, ok := crippenHalogen[a.Element]; ok {
		if a.Charge != 0 {
			return crippenHalide, true
		}
		return v, true
	}
	v, ok := crippenMetal[a.Element]
	return v, ok
}

// hydrogenLogP is the contribution of one hydrogen carried by atom i.
func (m *Molecule) hydrogenLogP(i int) float64 {
	switch m.Atoms[i].Element {
	case "C":
		return crippenHonC
	case "N":
		return crippenHonN
	case "O":
	default:
		return crippenHPolar
	}

	nbs := m.neighbours(i)
	if len(nbs) == 0 {
		if m.HydrogenCount(i) >= 2 {
			return crippenHPolar
		}
		return crippenHS
	}
	j := nbs[0].atom
	o := m.Atoms[j]
	switch {
	case o.Element == "C" && o.Aromatic:
		return crippenHPolar
	case o.Element == "C" && m.connectivity(j) == 4:
		return crippenHPolar
	case o.Element == "C":
		for _, nb := range m.neighbours(j) {
			if nb.order != BondDouble {
				continue
			}
			switch p := m.Atoms[nb.atom]; {
			case p.Element == "C" || p.Element == "N":
				return crippenHAcidic
			case !p.Aromatic && (p.Element == "O" || p.Element == "S"):
				return crippenHAcidic
			}
		}
		return crippenHS
	case o.Element == "N":
		return crippenHonN
	case o.Element == "O" || o.Element == "S":
		return crippenHAcidic
	}
	return crippenHPolar
}

// env summarises the heavy neighbours of an atom for atom typing.  Plain
// bonds are single or aromatic.
type env struct {
	h, conns int

	plainAliphatic int // aliphatic heavy atoms over plain bonds
	plainCarbon    int // aliphatic carbons over plain bonds
	plainHetero    int // aliphatic N, O, P, S or halogen over plain bonds
	plainAromatic  int // aromatic atoms over plain bonds
	plainAromaticC int
	plainOdd       int // aliphatic atoms outside C N O P S and halogens

	doubleCarbon  int // aliphatic carbons over double bonds
	doubleArC     int // aromatic carbons over double bonds
	doubleHetero  int // aliphatic non-carbons over double bonds
	tripleHeavy   int
	aromaticBonds int
}

func (m *Molecule) environment(i int) env {
	e := env{h: m.HydrogenCount(i), conns: m.connectivity(i)}
	for _, nb := range m.neighbours(i) {
		o := m.Atoms[nb.atom]
		switch nb.order {
		case BondSingle, BondAromatic:
			if nb.order == BondAromatic {
				e.aromaticBonds++
			}
			if o.Aromatic {
				e.plainAromatic++
				if o.Element == "C" {
					e.plainAromaticC++
				}
				continue
			}
			e.plainAliphatic++
			switch o.Element {
			case "C":
				e.plainCarbon++
			case "N", "O", "P", "S", "F", "Cl", "Br", "I":
				e.plainHetero++
			default:
				e.plainOdd++
			}
		case BondDouble:
			switch {
			case o.Aromatic && o.Element == "C":
				e.doubleArC++
			case o.Aromatic:
			case o.Element == "C":
				e.doubleCarbon++
			default:
				e.doubleHetero++
			}
		case BondTriple:
			if !o.Aromatic {
				e.tripleHeavy++
			}
		}
	}
	return e
}

func (m *Molecule) carbonLogP(i int) float64 {
	e := m.environment(i)
	x4 := e.conns == 4
	switch {
	case e.h == 4, e.h == 3 && e.plainCarbon >= 1, e.h == 2 && e.plainCarbon >= 2:
		return 0.1441 // C1
	case e.h == 1 && e.plainCarbon >= 3, e.h == 0 && e.plainCarbon >= 4:
		return 0.0 // C2
	case e.h == 3 && e.plainHetero >= 1,
		e.h == 2 && x4 && e.plainHetero >= 1 && e.plainAliphatic >= 2:
		return -0.2035 // C3
	case e.h == 1 && x4 && e.plainHetero >= 1 && e.plainAliphatic >= 3,
		e.h == 0 && x4 && e.plainHetero >= 1 && e.plainAliphatic >= 4:
		return -0.2051 // C4
	case e.doubleHetero >= 1:
		return -0.2783 // C5
	case e.h == 2 && e.doubleCarbon >= 1,
		e.h == 1 && e.doubleCarbon >= 1 && e.plainAliphatic >= 1,
		e.h == 0 && e.doubleCarbon >= 1 && e.plainAliphatic >= 2,
		e.doubleCarbon >= 2:
		return 0.1551 // C6
	case e.conns == 2 && e.tripleHeavy >= 1:
		return 0.0017 // C7
	case e.h == 3 && e.plainAromaticC >= 1:
		return 0.08452 // C8
	case e.h == 3 && e.plainAromatic >= 1:
		return -0.1444 // C9
	case e.h == 2 && x4 && e.plainAromatic >= 1:
		return -0.0516 // C10
	case e.h == 1 && x4 && e.plainAromatic >= 1:
		return 0.1193 // C11
	case e.h == 0 && x4 && e.plainAromatic >= 1:
		return -0.0967 // C12
	case e.doubleCarbon >= 1 && e.plainAromatic >= 1 && e.plainAliphatic >= 1,
		e.doubleCarbon >= 1 && e.plainAromaticC >= 1 && e.plainAromatic >= 2,
		e.h == 1 && e.doubleCarbon >= 1 && e.plainAromatic >= 1,
		e.doubleArC >= 1:
		return 0.264 // C26
	case x4 && e.plainOdd >= 1:
		return 0.2148 // C27
	}
	return crippenCS
}

func (m *Molecule) aromaticCarbonLogP(i int) float64 {
	e := m.environment(i)
	var single []Atom
	for _, nb := range m.neighbours(i) {
		if nb.order == BondSingle {
			single = append(single, m.Atoms[nb.atom])
		}
	}
	has := func(pred func(Atom) bool) bool {
		for _, a := range single {
			if pred(a) {
				return true
			}
		}
		return false
	}
	aliphatic := func(el string) func(Atom) bool {
		return func(a Atom) bool { return !a.Aromatic && a.Element == el }
	}

	switch {
	case e.h == 0 && has(func(a Atom) bool {
		switch a.Element {
		case "C", "N", "O", "S", "F", "Cl", "Br", "I", "H":
			return false
		}
		return !a.Aromatic
	}):
		return -0.5443 // C13
	case has(aliphatic("F")):
		return 0.0 // C14
	case has(aliphatic("Cl")):
		return 0.245 // C15
	case has(aliphatic("Br")):
		return 0.198 // C16
	case has(aliphatic("I")):
		return 0.0 // C17
	case e.h == 1:
		return 0.1581 // C18
	case e.aromaticBonds >= 3:
		return 0.2955 // C19
	case e.aromaticBonds < 2:
		return crippenCS
	case has(func(a Atom) bool { return a.Aromatic }):
		return 0.2713 // C20
	case has(aliphatic("C")):
		return 0.136 // C21
	case has(aliphatic("N")):
		return 0.4619 // C22
	case has(aliphatic("O")):
		return 0.5437 // C23
	case has(aliphatic("S")):
		return 0.1893 // C24
	case e.doubleCarbon+e.doubleHetero >= 1:
		for _, nb := range m.neighbours(i) {
			if nb.order != BondDouble {
				continue
			}
			switch m.Atoms[nb.atom].Element {
			case "C", "N", "O":
				return -0.8186 // C25
			}
		}
	}
	return crippenCS
}

func (m *Molecule) nitrogenLogP(i int) float64 {
	a := m.Atoms[i]
	if a.Aromatic {
		if a.Charge == 0 {
			return -0.3239 // N11
		}
		return -1.119 // N12
	}

	e := m.environment(i)
	heavyPlain := e.plainAliphatic + e.plainAromatic
	doubles := e.doubleCarbon + e.doubleHetero + e.doubleArC
	if a.Charge == 0 {
		switch {
		case e.h == 2 && e.plainAliphatic >= 1:
			return -1.019 // N1
		case e.h == 1 && e.plainAliphatic >= 2:
			return -0.7096 // N2
		case e.h == 2 && e.plainAromatic >= 1:
			return -1.027 // N3
		case e.h == 1 && e.plainAromatic >= 1 && heavyPlain >= 2:
			return -0.5188 // N4
		case e.h == 1 && doubles >= 1:
			return 0.08387 // N5
		case doubles >= 1 && heavyPlain >= 1:
			return 0.1836 // N6
		case e.plainAliphatic >= 3:
			return -0.3187 // N7
		case e.plainAromatic >= 1 && heavyPlain >= 3 && e.plainAliphatic >= 1,
			e.plainAromatic >= 3:
			return -0.4458 // N8
		case e.tripleHeavy >= 1:
			return 0.01508 // N9
		}
		return crippenNS
	}

	switch {
	case a.Charge > 0 && e.h >= 1 && e.h <= 3:
		return -1.950 // N10
	case a.Charge > 0 && e.h == 0 && e.plainAliphatic >= 4,
		a.Charge > 0 && e.h == 0 && e.doubleCarbon+e.doubleHetero >= 1 && e.plainAliphatic >= 1 && heavyPlain >= 2,
		a.Charge > 0 && e.h == 0 && e.doubleCarbon >= 1 && m.doubleBondedTo(i, "N"):
		return -0.3396 // N13
	case a.Charge > 0 && e.tripleHeavy >= 1, a.Charge < 0,
		a.Charge > 0 && e.doubleHetero >= 2 && m.doubleBondedTo(i, "N"):
		return 0.2887 // N14
	}
	return crippenNS
}

func (m *Molecule) oxygenLogP(i int) float64 {
	a := m.Atoms[i]
	if a.Aromatic {
		return 0.1552 // O1
	}
	e := m.environment(i)
	switch {
	case e.h == 1 || e.h == 2:
		return -0.2893 // O2
	case e.h == 0 && e.plainAliphatic >= 2:
		return -0.0684 // O3
	case e.plainAromatic >= 1 && e.plainAliphatic+e.plainAromatic >= 2:
		return -0.4195 // O4
	case m.doubleBondedTo(i, "N") || m.doubleBondedTo(i, "O"):
		return 0.0335 // O5
	}

	nbs := m.neighbours(i)
	if a.Charge == -1 && e.conns == 1 && len(nbs) == 1 {
		o := m.Atoms[nbs[0].atom]
		switch {
		case o.Element == "N":
			return 0.0335 // O5
		case o.Element == "S":
			return -0.3339 // O6
		case o.Element == "C" && !o.Aromatic && m.doubleBondedTo(nbs[0].atom, "O"):
			return -1.326 // O12
		}
		return -1.189 // O7
	}

	if len(nbs) != 1 || nbs[0].order != BondDouble {
		return crippenOS
	}
	c := nbs[0].atom
	ca := m.Atoms[c]
	if ca.Element != "C" {
		return crippenOS
	}
	if ca.Aromatic {
		return 0.1788 // O8
	}
	return m.carbonylLogP(i, c)
}

// carbonylLogP types the oxygen o of carbonyl carbon c by c's other
// substituents.
func (m *Molecule) carbonylLogP(o, c int) float64 {
	var others []Atom
	for _, nb := range m.neighbours(c) {
		if nb.atom != o {
			others = append(others, m.Atoms[nb.atom])
		}
	}
	h := m.HydrogenCount(c)
	count := func(pred func(Atom) bool) int {
		n := 0
		for _, a := range others {
			if pred(a) {
				n++
			}
		}
		return n
	}
	aliphC := count(func(a Atom) bool { return !a.Aromatic && a.Element == "C" })
	aromC := count(func(a Atom) bool { return a.Aromatic && a.Element == "C" })
	aliph := count(func(a Atom) bool { return !a.Aromatic })
	arom := count(func(a Atom) bool { return a.Aromatic })
	nonC := count(func(a Atom) bool { return a.Element != "C" })
	aliphEl := func(el string) bool {
		return count(func(a Atom) bool { return !a.Aromatic && a.Element == el }) > 0
	}

	switch {
	case h == 1 && aliphC >= 1,
		aliphC >= 2,
		aliphC >= 1 && aliph >= 2,
		h == 1 && (aliphEl("N") || aliphEl("O")),
		h == 2,
		len(others) == 1 && others[0].Element == "O" && m.connectivity(c) == 2:
		return -0.1526 // O9
	case h == 1 && aromC >= 1,
		aliphC+aromC >= 1 && arom >= 2,
		aliphC >= 1 && arom >= 1,
		aromC >= 1 && aliph >= 1:
		return 0.1129 // O10
	case nonC >= 2:
		return 0.4833 // O11
	}
	return crippenOS
}

// doubleBondedTo reports whether atom i has a double bond to element el,
// ignoring aromaticity.
func (m *Molecule) doubleBondedTo(i int, el string) bool {
	for _, nb := range m.neighbours(i) {
		if nb.order == BondDouble && m.Atoms[nb.atom].Element == el {
			return true
		}
	}
	return false
}
