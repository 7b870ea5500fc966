package molecule

import "strings"

// element describes the per-element data needed for hydrogen filling and
// aromaticity.
type element struct {
	Symbol   string
	Number   int
	Valences []int

	// Organic marks members of the SMILES organic subset, which may be
	// written without brackets.
	Organic bool
}

var elements = map[string]element{}
var elementsByNumber = map[int]element{}

func init() {
	table := []element{
		{"*", 0, nil, true},
		{"H", 1, []int{1}, false},
		{"He", 2, nil, false},
		{"Li", 3, []int{1}, false},
		{"Be", 4, []int{2}, false},
		{"B", 5, []int{3}, true},
		{"C", 6, []int{4}, true},
		{"N", 7, []int{3, 5}, true},
		{"O", 8, []int{2}, true},
		{"F", 9, []int{1}, true},
		{"Ne", 10, nil, false},
		{"Na", 11, []int{1}, false},
		{"Mg", 12, []int{2}, false},
		{"Al", 13, []int{3}, false},
		{"Si", 14, []int{4}, false},
		{"P", 15, []int{3, 5}, true},
		{"S", 16, []int{2, 4, 6}, true},
		{"Cl", 17, []int{1, 3, 5, 7}, true},
		{"Ar", 18, nil, false},
		{"K", 19, []int{1}, false},
		{"Ca", 20, []int{2}, false},
		{"Sc", 21, nil, false},
		{"Ti", 22, nil, false},
		{"V", 23, nil, false},
		{"Cr", 24, nil, false},
		{"Mn", 25, nil, false},
		{"Fe", 26, nil, false},
		{"Co", 27, nil, false},
		{"Ni", 28, nil, false},
		{"Cu", 29, nil, false},
		{"Zn", 30, nil, false},
		{"Ga", 31, []int{3}, false},
		{"Ge", 32, []int{4}, false},
		{"As", 33, []int{3, 5}, false},
		{"Se", 34, []int{2, 4, 6}, false},
		{"Br", 35, []int{1, 3, 5, 7}, true},
		{"Kr", 36, nil, false},
		{"Rb", 37, []int{1}, false},
		{"Sr", 38, []int{2}, false},
		{"Mo", 42, nil, false},
		{"Ag", 47, nil, false},
		{"Cd", 48, nil, false},
		{"Sn", 50, []int{2, 4}, false},
		{"Sb", 51, []int{3, 5}, false},
		{"Te", 52, []int{2, 4, 6}, false},
		{"I", 53, []int{1, 3, 5, 7}, true},
		{"Xe", 54, nil, false},
		{"Cs", 55, []int{1}, false},
		{"Ba", 56, []int{2}, false},
		{"Gd", 64, nil, false},
		{"W", 74, nil, false},
		{"Pt", 78, nil, false},
		{"Au", 79, nil, false},
		{"Hg", 80, nil, false},
		{"Tl", 81, nil, false},
		{"Pb", 82, nil, false},
		{"Bi", 83, []int{3, 5}, false},
		{"Ra", 88, nil, false},
		{"U", 92, nil, false},
	}
	for _, e := range table {
		elements[e.Symbol] = e
		elementsByNumber[e.Number] = e
	}
}

// lookupElement resolves a symbol, accepting lowercase aromatic spellings.
func lookupElement(sym string) (element, bool) {
	if e, ok := elements[sym]; ok {
		return e, true
	}
	if sym == "" {
		return element{}, false
	}
	e, ok := elements[strings.ToUpper(sym[:1])+sym[1:]]
	return e, ok
}

// aromaticSymbols are the element symbols allowed in lowercase form.
var aromaticSymbols = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true, "S": true,
	"Se": true, "As": true, "Te": true,
}

// aromaticOrganic are the aromatic symbols that may be written unbracketed.
var aromaticOrganic = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true, "S": true,
}

// piDonorElements contribute a lone pair, rather than a single electron, to an
// aromatic ring when they carry no double bond.
var piDonorElements = map[string]bool{
	"O": true, "S": true, "Se": true, "Te": true,
}

// effectiveValences shifts the default valences of e by formal charge using
// the isoelectronic rule: N+ behaves like C, O- like F, C- like N.
func effectiveValences(e element, charge int) []int {
	if charge == 0 || len(e.Valences) == 0 {
		return e.Valences
	}
	out := make([]int, 0, len(e.Valences))
	for _, v := range e.Valences {
		var shifted int
		switch e.Symbol {
		case "C", "Si", "Ge", "Sn":
			shifted = v - abs(charge)
		case "B", "Al", "Ga":
			shifted = v - charge
		default:
			shifted = v + charge
		}
		if shifted >= 0 {
			out = append(out, shifted)
		}
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
