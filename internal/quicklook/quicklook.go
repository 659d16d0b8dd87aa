// Package quicklook renders a mesh (optionally colored by a dataset) to a
// PNG for a fast visual sanity check of an import.
package quicklook

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/coastalkit/adcirc/internal/models"
)

const captionHeight = 20

var (
	background = color.RGBA{250, 250, 250, 255}
	edgeColor  = color.RGBA{120, 130, 140, 255}
	textColor  = color.RGBA{30, 30, 30, 255}
)

// Render draws the mesh wireframe scaled into an image of the given width.
// When dset is non-nil its first timestep colors the nodes on a blue-to-red
// ramp (vector datasets use the component magnitude); null values are left
// uncolored. The aspect ratio follows the mesh extents.
func Render(mesh *models.Mesh, dset *models.Dataset, width int) (*image.RGBA, error) {
	if len(mesh.Points) == 0 {
		return nil, errors.New("quicklook: mesh has no points")
	}
	if width < 64 {
		width = 64
	}

	min, max := mesh.Extents()
	spanX := max.X - min.X
	spanY := max.Y - min.Y
	if spanX <= 0 {
		spanX = 1
	}
	if spanY <= 0 {
		spanY = 1
	}
	height := int(float64(width) * spanY / spanX)
	if height < 64 {
		height = 64
	}
	if height > 4*width {
		height = 4 * width
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height+captionHeight))
	fill(img, background)

	// Project points to pixel space, y flipped.
	px := make([]image.Point, len(mesh.Points))
	for i, p := range mesh.Points {
		x := int(float64(width-1) * (p.X - min.X) / spanX)
		y := int(float64(height-1) * (1 - (p.Y-min.Y)/spanY))
		px[i] = image.Point{X: x, Y: y}
	}

	for _, c := range mesh.Cells {
		drawLine(img, px[c[0]], px[c[1]], edgeColor)
		drawLine(img, px[c[1]], px[c[2]], edgeColor)
		drawLine(img, px[c[2]], px[c[0]], edgeColor)
	}

	caption := mesh.Name
	if dset != nil {
		if err := colorNodes(img, px, dset); err != nil {
			return nil, err
		}
		caption = fmt.Sprintf("%s - %s", mesh.Name, dset.Name)
	}

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, height+captionHeight-6),
	}
	d.DrawString(caption)
	return img, nil
}

// WritePNG renders to a file.
func WritePNG(path string, mesh *models.Mesh, dset *models.Dataset, width int) error {
	img, err := Render(mesh, dset, width)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func colorNodes(img *image.RGBA, px []image.Point, dset *models.Dataset) error {
	if len(dset.Values) == 0 {
		return errors.New("quicklook: dataset has no timesteps")
	}
	vals := nodeValues(dset, 0)
	if len(vals) != len(px) {
		return fmt.Errorf("quicklook: dataset has %d values for %d mesh nodes", len(vals), len(px))
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo > hi { // all null
		return nil
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		c := ramp((v - lo) / span)
		pt := px[i]
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				img.Set(pt.X+dx, pt.Y+dy, c)
			}
		}
	}
	return nil
}

// nodeValues returns the per-node scalar to color by at timestep ts:
// the value itself, or the magnitude for vector data. Nulls become NaN.
func nodeValues(dset *models.Dataset, ts int) []float64 {
	row := dset.Values[ts]
	if dset.NumComponents == 1 {
		out := make([]float64, len(row))
		copy(out, row)
		models.NullsToNaN(out, dset.NullValue)
		return out
	}
	n := len(row) / dset.NumComponents
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		u := row[dset.NumComponents*i]
		v := row[dset.NumComponents*i+1]
		if u == dset.NullValue || v == dset.NullValue {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Hypot(u, v)
	}
	return out
}

// ramp maps t in [0,1] to a blue-to-red gradient.
func ramp(t float64) color.RGBA {
	t = math.Max(0, math.Min(1, t))
	return color.RGBA{
		R: uint8(255 * t),
		G: uint8(64 * (1 - math.Abs(2*t-1))),
		B: uint8(255 * (1 - t)),
		A: 255,
	}
}

func fill(img *image.RGBA, c color.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// drawLine is integer Bresenham.
func drawLine(img *image.RGBA, a, b image.Point, c color.RGBA) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	err := dx + dy
	x, y := a.X, a.Y
	for {
		img.SetRGBA(x, y, c)
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
