package molecule

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/turtacn/keggminer/pkg/errors"
)

// molCharge maps the V2000 atom-block charge code to a formal charge. Code 4
// is a doublet radical and carries no charge.
var molCharge = map[int]int{1: 3, 2: 2, 3: 1, 5: -1, 6: -2, 7: -3}

// ParseMolBlock reads an MDL V2000 molfile. Explicit hydrogens are folded into
// their heavy neighbour's H count unless they carry information of their own
// (isotope, charge, no neighbour). R groups and unknown symbols become dummy
// atoms written as "*".
func ParseMolBlock(text string) (*Molecule, error) {
	m, err := parseMolBlock(text)
	if err != nil {
		return nil, errors.New(errors.ErrCodeMoleculeParsingFailed, "invalid molfile").WithCause(err)
	}
	return m, nil
}

func parseMolBlock(text string) (*Molecule, error) {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) < 4 {
		return nil, fmt.Errorf("expected header and counts line, got %d lines", len(lines))
	}

	counts := lines[3]
	if strings.Contains(counts, "V3000") {
		return nil, fmt.Errorf("V3000 molfiles are not supported")
	}
	nAtoms, nBonds, err := parseCounts(counts)
	if err != nil {
		return nil, err
	}
	if nAtoms <= 0 {
		return nil, fmt.Errorf("molfile has no atoms")
	}
	if len(lines) < 4+nAtoms+nBonds {
		return nil, fmt.Errorf("truncated molfile: need %d atom and %d bond lines", nAtoms, nBonds)
	}

	m := NewMolecule()
	m.HasCoords = true
	for i := 0; i < nAtoms; i++ {
		a, err := parseAtomLine(lines[4+i])
		if err != nil {
			return nil, fmt.Errorf("atom %d: %w", i+1, err)
		}
		m.AddAtom(a)
	}
	for i := 0; i < nBonds; i++ {
		from, to, order, err := parseBondLine(lines[4+nAtoms+i])
		if err != nil {
			return nil, fmt.Errorf("bond %d: %w", i+1, err)
		}
		if from < 1 || to < 1 || from > nAtoms || to > nAtoms {
			return nil, fmt.Errorf("bond %d references atom outside 1..%d", i+1, nAtoms)
		}
		if err := m.AddBond(from-1, to-1, order); err != nil {
			return nil, fmt.Errorf("bond %d: %w", i+1, err)
		}
	}

	if err := parseProperties(m, lines[4+nAtoms+nBonds:]); err != nil {
		return nil, err
	}

	allZero := true
	for _, a := range m.Atoms {
		if a.X != 0 || a.Y != 0 {
			allZero = false
			break
		}
	}
	if allZero && len(m.Atoms) > 1 {
		m.HasCoords = false
	}

	if err := finishMolfile(m); err != nil {
		return nil, err
	}
	if m.NumAtoms() == 0 {
		return nil, fmt.Errorf("molfile has no atoms after hydrogen folding")
	}
	return m, nil
}

func parseCounts(line string) (int, int, error) {
	if len(line) >= 6 {
		a, errA := strconv.Atoi(strings.TrimSpace(line[0:3]))
		b, errB := strconv.Atoi(strings.TrimSpace(line[3:6]))
		if errA == nil && errB == nil {
			if a < 0 || b < 0 {
				return 0, 0, fmt.Errorf("negative counts in %q", line)
			}
			return a, b, nil
		}
	}
	f := strings.Fields(line)
	if len(f) < 2 {
		return 0, 0, fmt.Errorf("bad counts line %q", line)
	}
	a, err := strconv.Atoi(f[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad atom count %q", f[0])
	}
	b, err := strconv.Atoi(f[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad bond count %q", f[1])
	}
	if a < 0 || b < 0 {
		return 0, 0, fmt.Errorf("negative counts in %q", line)
	}
	return a, b, nil
}

// parseAtomLine reads xxxxx.xxxxyyyyy.yyyyzzzzz.zzzz aaaddcccsss... using the
// fixed columns when the line is long enough and whitespace fields otherwise.
func parseAtomLine(line string) (Atom, error) {
	var xs, ys, sym, dd, ccc string
	if len(line) >= 34 {
		xs, ys = line[0:10], line[10:20]
		sym = line[31:34]
		if len(line) >= 36 {
			dd = line[34:36]
		}
		if len(line) >= 39 {
			ccc = line[36:39]
		}
	} else {
		f := strings.Fields(line)
		if len(f) < 4 {
			return Atom{}, fmt.Errorf("bad atom line %q", line)
		}
		xs, ys, sym = f[0], f[1], f[3]
		if len(f) > 4 {
			dd = f[4]
		}
		if len(f) > 5 {
			ccc = f[5]
		}
	}

	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return Atom{}, fmt.Errorf("bad x coordinate %q", xs)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return Atom{}, fmt.Errorf("bad y coordinate %q", ys)
	}

	sym = strings.TrimSpace(sym)
	if sym == "" {
		return Atom{}, fmt.Errorf("missing element symbol in %q", line)
	}
	e, ok := elements[sym]
	if !ok || sym == "*" {
		// R, R#, A, Q, L, LP and anything else we do not know.
		e = elements["*"]
		sym = "*"
	}

	a := Atom{Element: sym, Number: e.Number, X: x, Y: y}
	if v := atoiField(dd); v != 0 && sym != "*" {
		a.Isotope = nominalMass(e.Number) + v
	}
	if v := atoiField(ccc); v != 0 {
		a.Charge = molCharge[v]
	}
	return a, nil
}

func parseBondLine(line string) (int, int, BondOrder, error) {
	var fs, ts, ks string
	if len(line) >= 9 {
		fs, ts, ks = line[0:3], line[3:6], line[6:9]
	} else {
		f := strings.Fields(line)
		if len(f) < 3 {
			return 0, 0, 0, fmt.Errorf("bad bond line %q", line)
		}
		fs, ts, ks = f[0], f[1], f[2]
	}
	from, err := strconv.Atoi(strings.TrimSpace(fs))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad bond line %q", line)
	}
	to, err := strconv.Atoi(strings.TrimSpace(ts))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad bond line %q", line)
	}
	typ, err := strconv.Atoi(strings.TrimSpace(ks))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad bond type in %q", line)
	}
	switch typ {
	case 1:
		return from, to, BondSingle, nil
	case 2:
		return from, to, BondDouble, nil
	case 3:
		return from, to, BondTriple, nil
	case 4:
		return from, to, BondAromatic, nil
	default:
		// Query bond types (any, single-or-double, ...) degrade to single.
		return from, to, BondSingle, nil
	}
}

func parseProperties(m *Molecule, lines []string) error {
	sawCHG, sawISO := false, false
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, "M  END"):
			return nil
		case strings.HasPrefix(line, "A  "), strings.HasPrefix(line, "V  "):
			// Alias or value text follows on the next line.
			i++
		case strings.HasPrefix(line, "M  CHG"), strings.HasPrefix(line, "M  ISO"):
			pairs, err := propertyPairs(line, len(m.Atoms))
			if err != nil {
				return err
			}
			isCharge := strings.HasPrefix(line, "M  CHG")
			// The first CHG or ISO line supersedes the atom-block values.
			if isCharge && !sawCHG {
				for k := range m.Atoms {
					m.Atoms[k].Charge = 0
				}
				sawCHG = true
			}
			if !isCharge && !sawISO {
				for k := range m.Atoms {
					m.Atoms[k].Isotope = 0
				}
				sawISO = true
			}
			for _, p := range pairs {
				if isCharge {
					m.Atoms[p[0]].Charge = p[1]
				} else if m.Atoms[p[0]].Element != "*" {
					m.Atoms[p[0]].Isotope = p[1]
				}
			}
		}
	}
	// Some writers omit M  END; the properties read so far stand.
	return nil
}

func propertyPairs(line string, nAtoms int) ([][2]int, error) {
	f := strings.Fields(line)
	if len(f) < 3 {
		return nil, fmt.Errorf("bad property line %q", line)
	}
	n, err := strconv.Atoi(f[2])
	if err != nil || n < 0 || len(f) < 3+2*n {
		return nil, fmt.Errorf("bad property line %q", line)
	}
	out := make([][2]int, 0, n)
	for k := 0; k < n; k++ {
		idx, err1 := strconv.Atoi(f[3+2*k])
		val, err2 := strconv.Atoi(f[4+2*k])
		if err1 != nil || err2 != nil || idx < 1 || idx > nAtoms {
			return nil, fmt.Errorf("bad property entry in %q", line)
		}
		out = append(out, [2]int{idx - 1, val})
	}
	return out, nil
}

// finishMolfile fills implicit hydrogens, folds removable explicit hydrogens
// into their neighbours, checks valences and perceives aromaticity.
func finishMolfile(m *Molecule) error {
	// Type 4 bonds mark their atoms aromatic up front so perception keeps them.
	for i := range m.Atoms {
		if m.hasAromaticBond(i) && aromaticCapable[m.Atoms[i].Element] {
			m.Atoms[i].Aromatic = true
		}
	}

	// Implicit H is computed with explicit H bonds still present so they count
	// towards the neighbour's valence.
	implicit := make([]int, len(m.Atoms))
	for i, a := range m.Atoms {
		if a.Element == "H" {
			continue
		}
		implicit[i] = m.DefaultHCount(i)
	}

	keep := make([]bool, len(m.Atoms))
	extraH := make([]int, len(m.Atoms))
	for i, a := range m.Atoms {
		if a.Element != "H" {
			keep[i] = true
			continue
		}
		if a.Isotope != 0 || a.Charge != 0 || m.Degree(i) != 1 {
			keep[i] = true
			continue
		}
		b := m.Bonds[m.adj[i][0]]
		nb := b.Other(i)
		if b.Order != BondSingle || m.Atoms[nb].Element == "H" || m.Atoms[nb].Element == "*" {
			keep[i] = true
			continue
		}
		extraH[nb]++
	}

	out := NewMolecule()
	out.HasCoords = m.HasCoords
	remap := make([]int, len(m.Atoms))
	for i, a := range m.Atoms {
		if !keep[i] {
			remap[i] = -1
			continue
		}
		a.HCount = implicit[i] + extraH[i]
		remap[i] = out.AddAtom(a)
	}
	for _, b := range m.Bonds {
		f, t := remap[b.From], remap[b.To]
		if f < 0 || t < 0 {
			continue
		}
		// Duplicates were already rejected on the source graph.
		_ = out.AddBond(f, t, b.Order)
	}
	if err := out.checkValences(); err != nil {
		return err
	}
	out.Aromatize()
	*m = *out
	return nil
}

func atoiField(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}

// nominalMass is the mass number of the most common isotope, used to turn a
// V2000 mass difference into an absolute isotope.
func nominalMass(number int) int {
	if m, ok := nominalMasses[number]; ok {
		return m
	}
	// Rough fallback for heavier elements.
	return 2*number + number/3
}

var nominalMasses = map[int]int{
	1: 1, 5: 11, 6: 12, 7: 14, 8: 16, 9: 19, 11: 23, 12: 24, 14: 28, 15: 31,
	16: 32, 17: 35, 19: 39, 20: 40, 26: 56, 29: 63, 30: 64, 34: 80, 35: 79,
	53: 127,
}
