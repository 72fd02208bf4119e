package mask

import (
	"image"
	"math"
)

const (
	unselected uint8 = 0x00
	selected   uint8 = 0xFF
)

// layer is the editable coverage buffer. Every byte is either selected or
// unselected; nothing in between is ever written.
type layer struct {
	width  int
	height int
	pix    []uint8
}

func newLayer(width, height int) *layer {
	return &layer{width: width, height: height, pix: make([]uint8, width*height)}
}

func (l *layer) reset() {
	for i := range l.pix {
		l.pix[i] = unselected
	}
}

// stamp writes v into every pixel whose offset from (cx, cy) lies within r.
func (l *layer) stamp(cx, cy, r float64, v uint8) {
	if !finite(cx) || !finite(cy) {
		return
	}
	if cx+r < 0 || cy+r < 0 || cx-r > float64(l.width-1) || cy-r > float64(l.height-1) {
		return
	}
	minX := int(math.Ceil(cx - r))
	maxX := int(math.Floor(cx + r))
	minY := int(math.Ceil(cy - r))
	maxY := int(math.Floor(cy + r))
	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX >= l.width {
		maxX = l.width - 1
	}
	if maxY >= l.height {
		maxY = l.height - 1
	}
	r2 := r * r
	for y := minY; y <= maxY; y++ {
		dy := float64(y) - cy
		row := y * l.width
		for x := minX; x <= maxX; x++ {
			dx := float64(x) - cx
			if dx*dx+dy*dy <= r2 {
				l.pix[row+x] = v
			}
		}
	}
}

// segment stamps footprints from a to b, both ends included, spaced no
// further apart than half the radius so fast pointer motion leaves no gaps.
// Only the part of the segment whose footprints can reach the layer is
// walked; non-finite endpoints stamp nothing.
func (l *layer) segment(a, b Point, r float64, v uint8) {
	if !finite(a.X) || !finite(a.Y) || !finite(b.X) || !finite(b.Y) {
		return
	}
	a, b, ok := clipSegment(a, b, -r, -r, float64(l.width-1)+r, float64(l.height-1)+r)
	if !ok {
		return
	}
	dist := math.Hypot(b.X-a.X, b.Y-a.Y)
	step := r / 2
	if step < 0.5 {
		step = 0.5
	}
	n := int(math.Ceil(dist / step))
	if n == 0 {
		l.stamp(b.X, b.Y, r, v)
		return
	}
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		l.stamp(a.X+(b.X-a.X)*t, a.Y+(b.Y-a.Y)*t, r, v)
	}
}

// clipSegment trims a-b to the rectangle [minX, maxX] x [minY, maxY]
// (Liang-Barsky). It reports false when no part of the segment is inside.
func clipSegment(a, b Point, minX, minY, maxX, maxY float64) (Point, Point, bool) {
	dx, dy := b.X-a.X, b.Y-a.Y
	if !finite(dx) || !finite(dy) {
		return a, b, false
	}
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, a.X - minX},
		{dx, maxX - a.X},
		{-dy, a.Y - minY},
		{dy, maxY - a.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return a, b, false
			}
			t0 = max(t0, t)
		} else {
			if t < t0 {
				return a, b, false
			}
			t1 = min(t1, t)
		}
	}
	return Point{a.X + t0*dx, a.Y + t0*dy}, Point{a.X + t1*dx, a.Y + t1*dy}, true
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func (l *layer) count() int {
	n := 0
	for _, p := range l.pix {
		if p != unselected {
			n++
		}
	}
	return n
}

func (l *layer) alpha() *image.Alpha {
	img := image.NewAlpha(image.Rect(0, 0, l.width, l.height))
	copy(img.Pix, l.pix)
	return img
}

// binary thresholds the layer: any coverage becomes white, the rest black.
func (l *layer) binary() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, l.width, l.height))
	for i, p := range l.pix {
		if p != unselected {
			img.Pix[i] = 0xFF
		}
	}
	return img
}
