package molecule

import "strings"

// Element holds the per-element data used by the descriptor functions.
type Element struct {
	Symbol   string
	Number   int
	AvgMass  float64 // standard atomic weight
	MonoMass float64 // most abundant isotope
	Valences []int   // allowed neutral valences, ascending; nil means no implicit H
}

// elements is the table of elements with known masses.  Symbols that parse
// but are missing here make mass-based descriptors fail.
var elements = map[string]Element{
	"H":  {"H", 1, 1.008, 1.0078250319, []int{1}},
	"He": {"He", 2, 4.003, 4.0026032500, nil},
	"Li": {"Li", 3, 6.941, 7.0160040, nil},
	"B":  {"B", 5, 10.812, 11.0093055, []int{3}},
	"C":  {"C", 6, 12.011, 12.0, []int{4}},
	"N":  {"N", 7, 14.007, 14.0030740052, []int{3, 5}},
	"O":  {"O", 8, 15.999, 15.9949146221, []int{2}},
	"F":  {"F", 9, 18.998, 18.99840320, []int{1}},
	"Na": {"Na", 11, 22.990, 22.98976966, nil},
	"Mg": {"Mg", 12, 24.305, 23.98504190, nil},
	"Al": {"Al", 13, 26.982, 26.98153844, nil},
	"Si": {"Si", 14, 28.086, 27.9769265327, nil},
	"P":  {"P", 15, 30.974, 30.97376151, []int{3, 5}},
	"S":  {"S", 16, 32.067, 31.97207069, []int{2, 4, 6}},
	"Cl": {"Cl", 17, 35.453, 34.96885271, []int{1}},
	"K":  {"K", 19, 39.098, 38.9637069, nil},
	"Ca": {"Ca", 20, 40.078, 39.9625912, nil},
	"Fe": {"Fe", 26, 55.845, 55.9349421, nil},
	"Cu": {"Cu", 29, 63.546, 62.9296011, nil},
	"Zn": {"Zn", 30, 65.39, 63.9291466, nil},
	"Se": {"Se", 34, 78.96, 79.9165218, nil},
	"Br": {"Br", 35, 79.904, 78.9183376, []int{1}},
	"Ag": {"Ag", 47, 107.868, 106.905093, nil},
	"I":  {"I", 53, 126.904, 126.904468, []int{1}},
	"Gd": {"Gd", 64, 157.25, 157.924101, nil},
	"Pt": {"Pt", 78, 195.078, 194.964774, nil},
	"Au": {"Au", 79, 196.967, 196.966552, nil},
}

// LookupElement returns the table entry for symbol.
func LookupElement(symbol string) (Element, bool) {
	e, ok := elements[symbol]
	return e, ok
}

// periodicSymbols lists every element symbol accepted inside brackets.
var periodicSymbols = func() map[string]bool {
	const all = "H He Li Be B C N O F Ne Na Mg Al Si P S Cl Ar K Ca Sc Ti V Cr Mn Fe Co Ni Cu Zn " +
		"Ga Ge As Se Br Kr Rb Sr Y Zr Nb Mo Tc Ru Rh Pd Ag Cd In Sn Sb Te I Xe Cs Ba La Ce Pr Nd " +
		"Pm Sm Eu Gd Tb Dy Ho Er Tm Yb Lu Hf Ta W Re Os Ir Pt Au Hg Tl Pb Bi Po At Rn Fr Ra Ac Th " +
		"Pa U Np Pu Am Cm Bk Cf Es Fm Md No Lr Rf Db Sg Bh Hs Mt Ds Rg Cn Nh Fl Mc Lv Ts Og"
	m := map[string]bool{}
	for _, s := range strings.Fields(all) {
		m[s] = true
	}
	return m
}()

// aromaticBracketSymbols are the lowercase symbols allowed inside brackets.
var aromaticBracketSymbols = map[string]string{
	"b": "B", "c": "C", "n": "N", "o": "O", "p": "P", "s": "S", "se": "Se", "as": "As", "te": "Te",
}
