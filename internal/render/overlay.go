// Package render composites the mask over its source for previews and draws
// the editor canvas decorations.
package render

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

// DefaultTint is the translucent red used to show the selected region.
var DefaultTint = color.RGBA{255, 0, 0, 128}

// Overlay composites the selected pixels of m over src using tint, whose
// alpha is straight as written in theme files. The result has the bounds of
// src rebased to the origin. A nil mask yields a plain copy.
func Overlay(src image.Image, m *image.Alpha, tint color.RGBA) *image.RGBA {
	if src == nil {
		return nil
	}
	b := src.Bounds()
	dst := image.NewRGBA(b.Sub(b.Min))
	UpdateOverlay(dst, src, m, tint, dst.Bounds())
	return dst
}

// UpdateOverlay recomposites only r of an image produced by Overlay.
func UpdateOverlay(dst *image.RGBA, src image.Image, m *image.Alpha, tint color.RGBA, r image.Rectangle) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(dst, r, src, src.Bounds().Min.Add(r.Min), draw.Src)
	if m == nil || tint.A == 0 {
		return
	}
	fill := color.NRGBA{R: tint.R, G: tint.G, B: tint.B, A: tint.A}
	draw.DrawMask(dst, r, image.NewUniform(fill), image.Point{}, m, m.Bounds().Min.Add(r.Min), draw.Over)
}

// ChangedRect returns the smallest rectangle holding every pixel that
// differs between a and b, or b's bounds when their bounds differ.
func ChangedRect(a, b *image.Alpha) image.Rectangle {
	if a == nil || b == nil || a.Bounds() != b.Bounds() {
		if b == nil {
			return image.Rectangle{}
		}
		return b.Bounds()
	}
	bounds := b.Bounds()
	var out image.Rectangle
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		ra := a.Pix[a.PixOffset(bounds.Min.X, y):a.PixOffset(bounds.Max.X, y)]
		rb := b.Pix[b.PixOffset(bounds.Min.X, y):b.PixOffset(bounds.Max.X, y)]
		if bytes.Equal(ra, rb) {
			continue
		}
		lo, hi := 0, len(ra)-1
		for ra[lo] == rb[lo] {
			lo++
		}
		for ra[hi] == rb[hi] {
			hi--
		}
		row := image.Rect(bounds.Min.X+lo, y, bounds.Min.X+hi+1, y+1)
		out = out.Union(row)
	}
	return out
}

// Checkerboard fills rect of dst with squares of the given size.
func Checkerboard(dst *image.RGBA, rect image.Rectangle, size int, light, dark color.Color) {
	if size <= 0 {
		size = 8
	}
	rect = rect.Intersect(dst.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if ((x/size)+(y/size))%2 == 0 {
				dst.Set(x, y, light)
			} else {
				dst.Set(x, y, dark)
			}
		}
	}
}

// BrushRing outlines the brush footprint centred at c.
func BrushRing(dst *image.RGBA, c image.Point, radius float64, col color.Color) {
	r := int(math.Round(radius))
	if r < 1 {
		r = 1
	}
	x, y := r, 0
	e := 1 - r
	for x >= y {
		for _, p := range [8][2]int{{x, y}, {y, x}, {-y, x}, {-x, y}, {-x, -y}, {-y, -x}, {y, -x}, {x, -y}} {
			pt := image.Pt(c.X+p[0], c.Y+p[1])
			if pt.In(dst.Bounds()) {
				dst.Set(pt.X, pt.Y, col)
			}
		}
		y++
		if e < 0 {
			e += 2*y + 1
		} else {
			x--
			e += 2*(y-x) + 1
		}
	}
}

// Scale draws src into rect of dst. Enlargements use nearest neighbour so
// mask edges stay crisp; reductions are smoothed.
func Scale(dst draw.Image, rect image.Rectangle, src image.Image) {
	if rect.Dx() >= src.Bounds().Dx() {
		xdraw.NearestNeighbor.Scale(dst, rect, src, src.Bounds(), draw.Over, nil)
		return
	}
	xdraw.ApproxBiLinear.Scale(dst, rect, src, src.Bounds(), draw.Over, nil)
}
