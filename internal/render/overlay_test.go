package render

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

func TestOverlayTintsSelectedPixelsOnly(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	fill := color.RGBA{R: 0, G: 0, B: 200, A: 255}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, fill)
		}
	}
	m := image.NewAlpha(src.Bounds())
	m.SetAlpha(1, 1, color.Alpha{A: 0xFF})

	out := Overlay(src, m, DefaultTint)
	if got := out.RGBAAt(0, 0); got != fill {
		t.Fatalf("unselected pixel changed: %+v", got)
	}
	got := out.RGBAAt(1, 1)
	if got.R == 0 || got.B >= fill.B {
		t.Fatalf("selected pixel not tinted: %+v", got)
	}
}

func TestOverlayRebasesBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 14, 13))
	out := Overlay(src, nil, DefaultTint)
	if out.Bounds() != image.Rect(0, 0, 4, 3) {
		t.Fatalf("bounds = %v", out.Bounds())
	}
}

func TestUpdateOverlayMatchesFullRebuild(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 7)
	}
	m := image.NewAlpha(src.Bounds())
	out := Overlay(src, m, DefaultTint)

	m.SetAlpha(2, 3, color.Alpha{A: 0xFF})
	m.SetAlpha(5, 4, color.Alpha{A: 0xFF})
	UpdateOverlay(out, src, m, DefaultTint, image.Rect(2, 3, 6, 5))

	if want := Overlay(src, m, DefaultTint); !bytes.Equal(out.Pix, want.Pix) {
		t.Errorf("partial update differs from a full rebuild")
	}
}

func TestChangedRect(t *testing.T) {
	a := image.NewAlpha(image.Rect(0, 0, 10, 10))
	b := image.NewAlpha(a.Bounds())
	if r := ChangedRect(a, b); !r.Empty() {
		t.Fatalf("identical masks changed %v", r)
	}
	b.SetAlpha(3, 2, color.Alpha{A: 0xFF})
	b.SetAlpha(7, 5, color.Alpha{A: 0xFF})
	if r, want := ChangedRect(a, b), image.Rect(3, 2, 8, 6); r != want {
		t.Errorf("ChangedRect = %v, want %v", r, want)
	}
	c := image.NewAlpha(image.Rect(0, 0, 4, 4))
	if r := ChangedRect(a, c); r != c.Bounds() {
		t.Errorf("resized mask: ChangedRect = %v, want %v", r, c.Bounds())
	}
}

func TestBrushRingStaysInBounds(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	BrushRing(dst, image.Pt(1, 1), 5, color.White)
	if dst.RGBAAt(6, 1).A == 0 {
		t.Fatalf("expected ring pixel at (6,1)")
	}
	if dst.RGBAAt(1, 1).A != 0 {
		t.Fatalf("ring should not fill the centre")
	}
}

func TestScaleNearestKeepsHardEdges(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 1))
	src.Pix[1] = 0xFF
	dst := image.NewRGBA(image.Rect(0, 0, 8, 4))
	Scale(dst, dst.Bounds(), src)
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			v := dst.RGBAAt(x, y).R
			if v != 0 && v != 0xFF {
				t.Fatalf("scaled pixel (%d,%d) = %d, want hard edge", x, y, v)
			}
		}
	}
}
