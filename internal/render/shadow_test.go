package render

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func TestDrawShadowDarkensOffsetArea(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 60, 60))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	canvas := image.Rect(10, 10, 40, 40)
	DrawShadow(dst, canvas, ShadowOptions{Radius: 4, Offset: image.Pt(6, 6), Opacity: 0.5})

	// Under the shifted canvas the shadow is at full strength.
	if got := dst.RGBAAt(43, 43).R; got >= 0xFF {
		t.Errorf("expected shadow at (43,43), got R=%d", got)
	}
	// Far from the canvas nothing changes.
	if got := dst.RGBAAt(2, 2); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("unexpected change at (2,2): %v", got)
	}
}

func TestDrawShadowNoOpWhenOpacityZero(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 20, 20))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	DrawShadow(dst, image.Rect(2, 2, 10, 10), ShadowOptions{Radius: 3, Opacity: 0})
	for i, v := range dst.Pix {
		if v != 0xFF {
			t.Fatalf("pixel byte %d changed to %d", i, v)
		}
	}
}

func TestBoxBlurPreservesUniformArea(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 9, 9))
	for i := range src.Pix {
		src.Pix[i] = 200
	}
	out := boxBlur(src, 2)
	for i, v := range out.Pix {
		if v != 200 {
			t.Fatalf("pixel %d = %d, want 200", i, v)
		}
	}
}

func TestBoxBlurSpreadsEdge(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 10, 1))
	for x := 5; x < 10; x++ {
		src.Pix[x] = 0xFF
	}
	out := boxBlur(src, 2)
	if out.Pix[0] != 0 || out.Pix[9] != 0xFF {
		t.Errorf("ends changed: %d %d", out.Pix[0], out.Pix[9])
	}
	if out.Pix[4] == 0 || out.Pix[4] == 0xFF {
		t.Errorf("edge pixel not blended: %d", out.Pix[4])
	}
}
