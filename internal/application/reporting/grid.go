package reporting

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/turtacn/keggminer/internal/domain/compound"
	"github.com/turtacn/keggminer/internal/domain/molecule"
	"github.com/turtacn/keggminer/pkg/errors"
)

// GridOptions controls the structure grid layout.
type GridOptions struct {
	// Limit is the maximum number of cells.
	Limit int
	// PerRow is the number of cells per row.
	PerRow int
	// CellSize is the edge length of a square cell in pixels.
	CellSize int
}

func DefaultGridOptions() GridOptions {
	return GridOptions{Limit: 6, PerRow: 3, CellSize: 200}
}

// GridItem is one depicted structure.
type GridItem struct {
	Molecule *molecule.Molecule
	Legend   string
}

const (
	cellMargin   = 14.0
	legendHeight = 18.0
	bondWidth    = 1.6
	bondGap      = 3.0
	maxBondPx    = 32.0
)

var (
	inkColor  = color.RGBA{A: 0xff}
	atomColor = map[string]color.RGBA{
		"O":  {R: 0xe0, A: 0xff},
		"N":  {B: 0xe0, A: 0xff},
		"S":  {R: 0xb0, G: 0x90, A: 0xff},
		"P":  {R: 0xff, G: 0x80, A: 0xff},
		"F":  {G: 0x90, A: 0xff},
		"Cl": {G: 0x90, A: 0xff},
		"Br": {R: 0x90, G: 0x20, A: 0xff},
		"I":  {R: 0x80, B: 0x80, A: 0xff},
	}
)

// GridItems picks the first limit results and pairs them with their
// structures. A result without a recorded structure is rebuilt from its
// SMILES, which yields a layout without source coordinates.
func GridItems(results []compound.Result, structures map[compound.ID]*molecule.Molecule, limit int) []GridItem {
	if limit > len(results) || limit <= 0 {
		limit = len(results)
	}
	items := make([]GridItem, 0, limit)
	for _, r := range results[:limit] {
		m := structures[r.ID]
		if m == nil {
			parsed, err := molecule.ParseSMILES(r.SMILES)
			if err != nil {
				continue
			}
			m = parsed
		}
		items = append(items, GridItem{
			Molecule: m,
			Legend:   fmt.Sprintf("%s (%.2f)", r.ID, r.Similarity),
		})
	}
	return items
}

// RenderGrid draws items into a PNG written to w.
func RenderGrid(w io.Writer, items []GridItem, opt GridOptions) error {
	img, err := DrawGrid(items, opt)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return errors.Wrap(err, errors.ErrCodeRenderFailed, "failed to encode grid image")
	}
	return nil
}

// DrawGrid lays items out row by row on a white canvas.
func DrawGrid(items []GridItem, opt GridOptions) (*image.RGBA, error) {
	if opt.PerRow < 1 || opt.CellSize < 50 {
		return nil, errors.New(errors.ErrCodeRenderFailed, "invalid grid options").
			WithDetailf("per_row=%d cell_size=%d", opt.PerRow, opt.CellSize)
	}
	if opt.Limit > 0 && len(items) > opt.Limit {
		items = items[:opt.Limit]
	}
	if len(items) == 0 {
		return nil, errors.New(errors.ErrCodeRenderFailed, "nothing to draw")
	}

	cols := opt.PerRow
	if len(items) < cols {
		cols = len(items)
	}
	rows := (len(items) + opt.PerRow - 1) / opt.PerRow
	size := opt.CellSize

	img := image.NewRGBA(image.Rect(0, 0, cols*size, rows*size))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	for i, it := range items {
		origin := image.Pt((i%opt.PerRow)*size, (i/opt.PerRow)*size)
		drawCell(img, origin, size, it)
	}
	return img, nil
}

type point struct{ x, y float64 }

func drawCell(img *image.RGBA, origin image.Point, size int, it GridItem) {
	cell := float64(size)
	if it.Molecule != nil && it.Molecule.NumAtoms() > 0 {
		pts := placeAtoms(it.Molecule, point{float64(origin.X), float64(origin.Y)}, cell)
		drawBonds(img, it.Molecule, pts)
		drawLabels(img, it.Molecule, pts)
	}
	drawLegend(img, origin, size, it.Legend)
}

// layout returns depiction coordinates with y pointing up. Records without
// usable coordinates get atoms spread on a circle.
func layout(m *molecule.Molecule) []point {
	pts := make([]point, m.NumAtoms())
	if m.HasCoords {
		for i, a := range m.Atoms {
			pts[i] = point{a.X, a.Y}
		}
		if !degenerate(pts) {
			return pts
		}
	}
	n := len(pts)
	if n == 1 {
		pts[0] = point{}
		return pts
	}
	for i := range pts {
		theta := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = point{math.Cos(theta), math.Sin(theta)}
	}
	return pts
}

func degenerate(pts []point) bool {
	if len(pts) < 2 {
		return false
	}
	minX, minY, maxX, maxY := bounds(pts)
	return maxX-minX < 1e-6 && maxY-minY < 1e-6
}

func bounds(pts []point) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
		minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
	}
	return
}

// placeAtoms maps depiction coordinates into the drawing area of a cell,
// centred and uniformly scaled, never stretching bonds past maxBondPx.
func placeAtoms(m *molecule.Molecule, origin point, cell float64) []point {
	pts := layout(m)
	minX, minY, maxX, maxY := bounds(pts)

	areaW := cell - 2*cellMargin
	areaH := cell - 2*cellMargin - legendHeight
	spanX, spanY := maxX-minX, maxY-minY

	scale := math.Inf(1)
	if spanX > 0 {
		scale = areaW / spanX
	}
	if spanY > 0 {
		scale = math.Min(scale, areaH/spanY)
	}
	if bl := meanBondLength(m, pts); bl > 0 {
		scale = math.Min(scale, maxBondPx/bl)
	}
	if math.IsInf(scale, 1) {
		scale = 1
	}

	cx := origin.x + cellMargin + areaW/2
	cy := origin.y + cellMargin + areaH/2
	midX, midY := (minX+maxX)/2, (minY+maxY)/2

	out := make([]point, len(pts))
	for i, p := range pts {
		out[i] = point{cx + (p.x-midX)*scale, cy - (p.y-midY)*scale}
	}
	return out
}

func meanBondLength(m *molecule.Molecule, pts []point) float64 {
	if len(m.Bonds) == 0 {
		return 0
	}
	var sum float64
	for _, b := range m.Bonds {
		sum += math.Hypot(pts[b.To].x-pts[b.From].x, pts[b.To].y-pts[b.From].y)
	}
	return sum / float64(len(m.Bonds))
}

func drawBonds(img *image.RGBA, m *molecule.Molecule, pts []point) {
	b := img.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	for _, bond := range m.Bonds {
		p, q := pts[bond.From], pts[bond.To]
		switch bond.Order {
		case molecule.BondDouble, molecule.BondAromatic:
			strokeOffset(z, p, q, -bondGap/2)
			strokeOffset(z, p, q, bondGap/2)
		case molecule.BondTriple:
			strokeOffset(z, p, q, -bondGap)
			strokeOffset(z, p, q, 0)
			strokeOffset(z, p, q, bondGap)
		default:
			strokeOffset(z, p, q, 0)
		}
	}
	z.Draw(img, b, image.NewUniform(inkColor), image.Point{})
}

// strokeOffset adds a bondWidth wide quad parallel to p-q, shifted by off
// pixels along the normal.
func strokeOffset(z *vector.Rasterizer, p, q point, off float64) {
	dx, dy := q.x-p.x, q.y-p.y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l, dx/l
	ox, oy := nx*off, ny*off
	hx, hy := nx*bondWidth/2, ny*bondWidth/2

	z.MoveTo(float32(p.x+ox+hx), float32(p.y+oy+hy))
	z.LineTo(float32(q.x+ox+hx), float32(q.y+oy+hy))
	z.LineTo(float32(q.x+ox-hx), float32(q.y+oy-hy))
	z.LineTo(float32(p.x+ox-hx), float32(p.y+oy-hy))
	z.ClosePath()
}

// atomLabel returns the text drawn over an atom; plain carbons stay bare.
func atomLabel(m *molecule.Molecule, i int) string {
	a := m.Atoms[i]
	if a.Element == "C" && a.Charge == 0 && a.Isotope == 0 && m.Degree(i) > 0 {
		return ""
	}
	label := a.Element
	switch {
	case a.HCount == 1:
		label += "H"
	case a.HCount > 1:
		label += "H" + strconv.Itoa(a.HCount)
	}
	switch {
	case a.Charge == 1:
		label += "+"
	case a.Charge == -1:
		label += "-"
	case a.Charge > 1:
		label += strconv.Itoa(a.Charge) + "+"
	case a.Charge < -1:
		label += strconv.Itoa(-a.Charge) + "-"
	}
	return label
}

func drawLabels(img *image.RGBA, m *molecule.Molecule, pts []point) {
	face := basicfont.Face7x13
	for i := range m.Atoms {
		label := atomLabel(m, i)
		if label == "" {
			continue
		}
		col, ok := atomColor[m.Atoms[i].Element]
		if !ok {
			col = inkColor
		}
		d := &font.Drawer{Dst: img, Src: image.NewUniform(col), Face: face}
		w := d.MeasureString(label).Ceil()
		x := int(math.Round(pts[i].x)) - w/2
		y := int(math.Round(pts[i].y))

		bg := image.Rect(x-1, y-face.Ascent/2-2, x+w+1, y+face.Ascent/2+2)
		draw.Draw(img, bg, image.White, image.Point{}, draw.Src)
		d.Dot = fixed.P(x, y+face.Ascent/2)
		d.DrawString(label)
	}
}

func drawLegend(img *image.RGBA, origin image.Point, size int, legend string) {
	if legend == "" {
		return
	}
	d := &font.Drawer{Dst: img, Src: image.NewUniform(inkColor), Face: basicfont.Face7x13}
	w := d.MeasureString(legend).Ceil()
	x := origin.X + (size-w)/2
	if x < origin.X {
		x = origin.X
	}
	d.Dot = fixed.P(x, origin.Y+size-int(legendHeight/2)+basicfont.Face7x13.Ascent/2)
	d.DrawString(legend)
}
