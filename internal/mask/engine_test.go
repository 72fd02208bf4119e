package mask

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newSource(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 90, 255})
		}
	}
	return img
}

func loaded(t *testing.T, w, h int, opts ...Option) *Engine {
	t.Helper()
	e := New(opts...)
	if _, err := e.LoadSource(newSource(w, h)); err != nil {
		t.Fatalf("load source: %v", err)
	}
	return e
}

// disk returns the expected coverage of a footprint centred at (cx, cy).
func disk(w, h, cx, cy, r int) []uint8 {
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				out[y*w+x] = 0xFF
			}
		}
	}
	return out
}

func union(a, b []uint8) []uint8 {
	out := make([]uint8, len(a))
	for i := range a {
		out[i] = a[i] | b[i]
	}
	return out
}

func exported(t *testing.T, e *Engine) []uint8 {
	t.Helper()
	g, err := e.ExportBinaryMask()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	return g.Pix
}

func TestLoadSourceRejectsInvalidImages(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
	}{
		{"nil", nil},
		{"zero width", image.NewRGBA(image.Rect(0, 0, 0, 10))},
		{"zero height", image.NewRGBA(image.Rect(0, 0, 10, 0))},
		{"too wide", image.NewRGBA(image.Rect(0, 0, 65, 1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(WithMaxDimension(64))
			_, err := e.LoadSource(tt.img)
			if !errors.Is(err, ErrInvalidImage) {
				t.Fatalf("expected ErrInvalidImage, got %v", err)
			}
			var ie *InvalidImageError
			if !errors.As(err, &ie) {
				t.Fatalf("expected *InvalidImageError, got %T", err)
			}
			if e.Loaded() {
				t.Fatalf("engine should not have a session")
			}
		})
	}
}

func TestFailedLoadKeepsPreviousSession(t *testing.T) {
	e := loaded(t, 20, 20, WithMaxDimension(32))
	e.BeginStroke(Pt(10, 10), Paint)
	e.EndStroke()
	before := exported(t, e)

	if _, err := e.LoadSource(image.NewRGBA(image.Rect(0, 0, 100, 100))); err == nil {
		t.Fatalf("expected error")
	}
	if !bytes.Equal(before, exported(t, e)) {
		t.Fatalf("mask changed after failed load")
	}
	if e.HistoryLen() != 2 {
		t.Fatalf("history length = %d, want 2", e.HistoryLen())
	}
}

func TestLoadSourceResetsState(t *testing.T) {
	e := loaded(t, 10, 10)
	e.BeginStroke(Pt(5, 5), Paint)
	e.EndStroke()
	s, err := e.LoadSource(newSource(30, 20))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	want := Session{Width: 30, Height: 20, Generation: 2}
	if diff := cmp.Diff(want, *s); diff != "" {
		t.Fatalf("session mismatch (-want +got):\n%s", diff)
	}
	if e.HistoryLen() != 1 || e.Cursor() != 0 {
		t.Fatalf("history = %d/%d, want 1/0", e.HistoryLen(), e.Cursor())
	}
	if e.Coverage() != 0 {
		t.Fatalf("coverage = %d, want 0", e.Coverage())
	}
}

func TestSourceIsCopied(t *testing.T) {
	src := newSource(4, 4)
	e := New()
	if _, err := e.LoadSource(src); err != nil {
		t.Fatal(err)
	}
	src.Set(0, 0, color.RGBA{1, 2, 3, 4})
	if got := e.Source().NRGBAAt(0, 0); got == (color.NRGBA{1, 2, 3, 4}) {
		t.Fatalf("engine source aliases caller image")
	}
}

func TestPaintDiskScenario(t *testing.T) {
	e := loaded(t, 100, 100)
	e.SetBrushRadius(20)
	e.BeginStroke(Pt(50, 50), Paint)
	e.EndStroke()

	g, err := e.ExportBinaryMask()
	if err != nil {
		t.Fatal(err)
	}
	if g.Bounds() != image.Rect(0, 0, 100, 100) {
		t.Fatalf("bounds = %v", g.Bounds())
	}
	if !bytes.Equal(g.Pix, disk(100, 100, 50, 50, 20)) {
		t.Fatalf("exported mask is not a radius 20 disk at (50,50)")
	}
}

func TestExportIsBinary(t *testing.T) {
	e := loaded(t, 40, 40)
	e.SetBrushRadius(7.3)
	e.BeginStroke(Pt(3.7, 4.1), Paint)
	e.ExtendStroke(Pt(33.2, 29.9))
	e.EndStroke()
	for i, p := range exported(t, e) {
		if p != 0 && p != 0xFF {
			t.Fatalf("pixel %d has partial value %d", i, p)
		}
	}
}

func TestDisjointPaintIsUnion(t *testing.T) {
	e := loaded(t, 80, 40)
	e.SetBrushRadius(8)
	e.BeginStroke(Pt(15, 20), Paint)
	e.EndStroke()
	e.BeginStroke(Pt(60, 20), Paint)
	e.EndStroke()
	// Repainting the same footprint changes nothing.
	e.BeginStroke(Pt(15, 20), Paint)
	e.EndStroke()

	want := union(disk(80, 40, 15, 20, 8), disk(80, 40, 60, 20, 8))
	if !bytes.Equal(exported(t, e), want) {
		t.Fatalf("mask is not the union of the stroked footprints")
	}
}

func TestEraseClearsPaintedRegion(t *testing.T) {
	e := loaded(t, 60, 60)
	e.SetBrushRadius(12)
	e.BeginStroke(Pt(20, 20), Paint)
	e.ExtendStroke(Pt(40, 35))
	e.EndStroke()
	if e.Coverage() == 0 {
		t.Fatalf("expected painted pixels")
	}
	e.BeginStroke(Pt(20, 20), Erase)
	e.ExtendStroke(Pt(40, 35))
	e.EndStroke()
	for i, p := range exported(t, e) {
		if p != 0 {
			t.Fatalf("pixel %d still white after erase", i)
		}
	}
}

func TestEraseOnEmptyMaskStaysEmpty(t *testing.T) {
	e := loaded(t, 10, 10)
	e.BeginStroke(Pt(5, 5), Erase)
	e.EndStroke()
	e.BeginStroke(Pt(5, 5), Erase)
	e.EndStroke()
	if e.Coverage() != 0 {
		t.Fatalf("coverage = %d", e.Coverage())
	}
}

func TestFastStrokeLeavesNoGaps(t *testing.T) {
	e := loaded(t, 200, 20)
	e.SetBrushRadius(2)
	e.BeginStroke(Pt(5, 10), Paint)
	e.ExtendStroke(Pt(195, 10))
	e.EndStroke()
	m := e.Mask()
	for x := 5; x <= 195; x++ {
		if m.AlphaAt(x, 10).A != 0xFF {
			t.Fatalf("gap at x=%d along stroke centre line", x)
		}
		for _, dy := range []int{-1, 1} {
			if m.AlphaAt(x, 10+dy).A != 0xFF {
				t.Fatalf("gap at (%d,%d) within brush band", x, 10+dy)
			}
		}
	}
}

func TestZoomMapsToNativeResolution(t *testing.T) {
	e := loaded(t, 100, 100)
	e.SetBrushRadius(3)
	e.SetZoom(2.0)
	e.BeginStroke(Pt(100, 100), Paint)
	e.EndStroke()
	if !bytes.Equal(exported(t, e), disk(100, 100, 50, 50, 3)) {
		t.Fatalf("footprint not stamped at native (50,50)")
	}
	if got := e.ToLogical(Pt(100, 100)); got != Pt(50, 50) {
		t.Fatalf("ToLogical = %v", got)
	}
}

func TestZoomAndRadiusClamp(t *testing.T) {
	e := New()
	e.SetZoom(100)
	if e.Zoom() != MaxZoom {
		t.Fatalf("zoom = %v, want %v", e.Zoom(), MaxZoom)
	}
	e.SetZoom(0.0001)
	if e.Zoom() != MinZoom {
		t.Fatalf("zoom = %v, want %v", e.Zoom(), MinZoom)
	}
	e.SetZoom(-1)
	if e.Zoom() != MinZoom {
		t.Fatalf("negative zoom should be ignored, got %v", e.Zoom())
	}
	e.SetBrushRadius(0)
	if e.BrushRadius() != MinBrushRadius {
		t.Fatalf("radius = %v, want %v", e.BrushRadius(), MinBrushRadius)
	}
	e.SetBrushRadius(1e6)
	if e.BrushRadius() != MaxBrushRadius {
		t.Fatalf("radius = %v, want %v", e.BrushRadius(), MaxBrushRadius)
	}
}

func TestZoomSteps(t *testing.T) {
	e := New()
	for i := 0; i < 5; i++ {
		e.ZoomIn()
	}
	if e.Zoom() != 1.5 {
		t.Fatalf("zoom = %v, want 1.5", e.Zoom())
	}
	for i := 0; i < 10; i++ {
		e.ZoomOut()
	}
	if e.Zoom() != 0.5 {
		t.Fatalf("zoom = %v, want 0.5", e.Zoom())
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	e := loaded(t, 50, 50)
	e.BeginStroke(Pt(10, 10), Paint)
	e.ExtendStroke(Pt(40, 30))
	e.EndStroke()
	before := exported(t, e)

	if !e.Undo() {
		t.Fatalf("undo did not move")
	}
	if e.Coverage() != 0 {
		t.Fatalf("undo did not restore the empty mask")
	}
	if !e.Redo() {
		t.Fatalf("redo did not move")
	}
	if !bytes.Equal(before, exported(t, e)) {
		t.Fatalf("redo did not restore the stroke")
	}
}

func TestUndoAtStartIsNoop(t *testing.T) {
	e := loaded(t, 10, 10)
	if e.Undo() {
		t.Fatalf("undo at cursor 0 moved")
	}
	if e.Cursor() != 0 || e.Coverage() != 0 {
		t.Fatalf("state changed: cursor=%d coverage=%d", e.Cursor(), e.Coverage())
	}
	if e.Redo() {
		t.Fatalf("redo at end moved")
	}
}

func TestUndoRedoKeepConfiguration(t *testing.T) {
	e := loaded(t, 10, 10)
	e.BeginStroke(Pt(5, 5), Paint)
	e.EndStroke()
	e.SetZoom(1.7)
	e.SetBrushRadius(4)
	src := e.Source()
	e.Undo()
	e.Redo()
	if e.Zoom() != 1.7 || e.BrushRadius() != 4 || e.Source() != src {
		t.Fatalf("undo/redo touched configuration or source")
	}
}

func TestBranchDiscardsForwardHistory(t *testing.T) {
	e := loaded(t, 60, 20)
	e.SetBrushRadius(4)

	e.BeginStroke(Pt(10, 10), Paint) // A
	e.EndStroke()
	afterA := exported(t, e)
	e.BeginStroke(Pt(30, 10), Paint) // B
	e.EndStroke()
	e.Undo()
	e.BeginStroke(Pt(50, 10), Paint) // C
	e.EndStroke()
	afterC := exported(t, e)

	if e.HistoryLen() != 3 {
		t.Fatalf("history length = %d, want 3", e.HistoryLen())
	}
	want := [][]uint8{make([]uint8, 60*20), afterA, afterC}
	for i := range want {
		if got := e.Snapshot(i); !bytes.Equal(got.Pix, want[i]) {
			t.Fatalf("snapshot %d mismatch", i)
		}
	}
	if e.Redo() {
		t.Fatalf("stroke B should be unreachable")
	}
}

func TestClearIsUndoable(t *testing.T) {
	e := loaded(t, 20, 20)
	e.BeginStroke(Pt(10, 10), Paint)
	e.EndStroke()
	painted := exported(t, e)
	if err := e.Clear(); err != nil {
		t.Fatal(err)
	}
	if e.Coverage() != 0 || e.HistoryLen() != 3 {
		t.Fatalf("clear: coverage=%d history=%d", e.Coverage(), e.HistoryLen())
	}
	e.Undo()
	if !bytes.Equal(painted, exported(t, e)) {
		t.Fatalf("undo after clear did not restore the mask")
	}
}

func TestOperationsWithoutSession(t *testing.T) {
	e := New()
	e.BeginStroke(Pt(1, 1), Paint)
	e.ExtendStroke(Pt(2, 2))
	e.EndStroke()
	if e.Stroking() {
		t.Fatalf("stroke started without a session")
	}
	if _, err := e.ExportBinaryMask(); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("export err = %v", err)
	}
	if err := e.Clear(); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("clear err = %v", err)
	}
	if e.Undo() || e.Redo() {
		t.Fatalf("history moved without a session")
	}
}

func TestEndStrokeWithoutStrokeIsNoop(t *testing.T) {
	e := loaded(t, 10, 10)
	e.EndStroke()
	if e.HistoryLen() != 1 {
		t.Fatalf("history length = %d", e.HistoryLen())
	}
	e.ExtendStroke(Pt(5, 5))
	if e.Coverage() != 0 {
		t.Fatalf("extend without begin painted pixels")
	}
}

func TestUndoDuringStrokeCommitsThenUndoes(t *testing.T) {
	e := loaded(t, 20, 20)
	e.BeginStroke(Pt(10, 10), Paint)
	if !e.Undo() {
		t.Fatalf("undo during stroke did not move")
	}
	if e.Coverage() != 0 || e.Stroking() {
		t.Fatalf("in-progress stroke survived undo")
	}
	if !e.Redo() || e.Coverage() == 0 {
		t.Fatalf("redo did not bring the stroke back")
	}
}

func TestStrokeRadiusFixedAtBegin(t *testing.T) {
	e := loaded(t, 100, 20)
	e.SetBrushRadius(2)
	e.BeginStroke(Pt(10, 10), Paint)
	e.SetBrushRadius(9)
	e.ExtendStroke(Pt(10, 10))
	e.EndStroke()
	if !bytes.Equal(exported(t, e), disk(100, 20, 10, 10, 2)) {
		t.Fatalf("radius changed mid-stroke")
	}
}

func TestResetDropsSession(t *testing.T) {
	e := loaded(t, 10, 10)
	e.Reset()
	if e.Loaded() || e.Session() != nil || e.Mask() != nil || e.HistoryLen() != 0 {
		t.Fatalf("reset left session state behind")
	}
}

func TestStrokeToFarOffCanvasPoint(t *testing.T) {
	for _, far := range []float64{1e13, 1e300} {
		e := loaded(t, 100, 100, WithBrushRadius(4))
		done := make(chan struct{})
		go func() {
			defer close(done)
			e.BeginStroke(Pt(50, 50), Paint)
			e.ExtendStroke(Pt(far, 50))
			e.EndStroke()
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("stroke to x=%g did not finish", far)
		}
		got := exported(t, e)
		for x := 50; x < 100; x++ {
			if got[50*100+x] != 0xFF {
				t.Fatalf("x=%g: pixel (%d,50) not painted", far, x)
			}
		}
		if got[50*100+40] != 0 || got[60*100+70] != 0 {
			t.Errorf("x=%g: paint outside the brush path", far)
		}
	}
}

func TestStrokeCrossingCanvasFromOutside(t *testing.T) {
	e := loaded(t, 20, 20, WithBrushRadius(1))
	e.BeginStroke(Pt(-1000, -1000), Paint)
	if c := e.Coverage(); c != 0 {
		t.Fatalf("off-canvas dab painted %d pixels", c)
	}
	e.ExtendStroke(Pt(1000, 1000))
	e.EndStroke()
	got := exported(t, e)
	for i := 0; i < 20; i++ {
		if got[i*20+i] != 0xFF {
			t.Errorf("diagonal pixel (%d,%d) not painted", i, i)
		}
	}
	if got[19] != 0 || got[19*20] != 0 {
		t.Errorf("corners off the diagonal painted")
	}
	if e.HistoryLen() != 2 {
		t.Errorf("history len = %d, want 2", e.HistoryLen())
	}
}

func TestStrokeMissingCanvasPaintsNothing(t *testing.T) {
	e := loaded(t, 20, 20, WithBrushRadius(3))
	e.BeginStroke(Pt(-50, 5), Paint)
	e.ExtendStroke(Pt(-50, 1e9))
	e.ExtendStroke(Pt(100, 1e9))
	e.EndStroke()
	if c := e.Coverage(); c != 0 {
		t.Errorf("coverage = %d, want 0", c)
	}
}

func TestNonFinitePointsAreIgnored(t *testing.T) {
	e := loaded(t, 20, 20, WithBrushRadius(2))
	e.BeginStroke(Pt(math.NaN(), 5), Paint)
	if e.Stroking() {
		t.Fatalf("NaN point started a stroke")
	}
	e.BeginStroke(Pt(5, 5), Paint)
	e.ExtendStroke(Pt(math.Inf(1), 5))
	e.ExtendStroke(Pt(5, math.NaN()))
	e.EndStroke()
	if diff := cmp.Diff(disk(20, 20, 5, 5, 2), exported(t, e)); diff != "" {
		t.Errorf("mask mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckDimensions(t *testing.T) {
	tests := []struct {
		w, h, max int
		ok        bool
	}{
		{100, 100, 100, true},
		{101, 100, 100, false},
		{100, 4000, 100, false},
		{0, 10, 100, false},
		{8192, 8192, 0, true},
		{8193, 1, 0, false},
	}
	for _, tt := range tests {
		err := CheckDimensions(tt.w, tt.h, tt.max)
		if tt.ok != (err == nil) {
			t.Errorf("CheckDimensions(%d, %d, %d) = %v", tt.w, tt.h, tt.max, err)
		}
		if err != nil && !errors.Is(err, ErrInvalidImage) {
			t.Errorf("error %v does not wrap ErrInvalidImage", err)
		}
	}
}
