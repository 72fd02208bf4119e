// Package mask implements the region-of-interest painter used to build
// inpainting stencils: a source image, a binary coverage layer edited with a
// circular brush, linear undo/redo history and a hard black/white export.
//
// An Engine has exactly one writer. It performs no locking; callers that
// share an engine between goroutines must serialise access themselves.
package mask

import (
	"image"
	"image/draw"
	"math"
)

// Mode selects what a stroke does to the layer.
type Mode int

const (
	// Paint marks pixels as selected for editing.
	Paint Mode = iota
	// Erase unconditionally clears pixels.
	Erase
)

func (m Mode) String() string {
	switch m {
	case Paint:
		return "paint"
	case Erase:
		return "erase"
	default:
		return "unknown"
	}
}

func (m Mode) value() uint8 {
	if m == Erase {
		return unselected
	}
	return selected
}

// Point is a pointer position. Points handed to the engine are in viewport
// space; the engine divides them by the active zoom.
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) finite() bool { return finite(p.X) && finite(p.Y) }

const (
	MinBrushRadius     = 1.0
	MaxBrushRadius     = 256.0
	DefaultBrushRadius = 10.0

	MinZoom         = 0.1
	MaxZoom         = 8.0
	DefaultZoomStep = 0.1

	// DefaultMaxDimension bounds either side of a source image.
	DefaultMaxDimension = 8192
)

// Session identifies one loaded source. Generation increases with every
// successful load so stale handles can be detected.
type Session struct {
	Width      int
	Height     int
	Generation uint64
}

type stroke struct {
	mode   Mode
	radius float64
	last   Point
}

// Engine owns the source image, the mask layer and its history.
type Engine struct {
	source     *image.NRGBA
	layer      *layer
	hist       history
	active     *stroke
	zoom       float64
	zoomStep   float64
	radius     float64
	maxDim     int
	generation uint64
}

// Option configures an Engine during creation.
type Option func(*Engine)

// WithMaxDimension limits the width and height of loadable sources.
func WithMaxDimension(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDim = n
		}
	}
}

// WithBrushRadius sets the initial brush radius.
func WithBrushRadius(r float64) Option { return func(e *Engine) { e.SetBrushRadius(r) } }

// WithZoomStep sets the increment used by ZoomIn and ZoomOut.
func WithZoomStep(step float64) Option {
	return func(e *Engine) {
		if step > 0 && !math.IsNaN(step) {
			e.zoomStep = step
		}
	}
}

// New creates an engine with no session loaded.
func New(opts ...Option) *Engine {
	e := &Engine{
		zoom:     1,
		zoomStep: DefaultZoomStep,
		radius:   DefaultBrushRadius,
		maxDim:   DefaultMaxDimension,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// LoadSource starts a new session for img. The mask is cleared and history
// holds a single empty snapshot. On error the previous session, if any, is
// left untouched.
func (e *Engine) LoadSource(img image.Image) (*Session, error) {
	if img == nil {
		return nil, &InvalidImageError{Reason: "no image"}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if err := CheckDimensions(w, h, e.maxDim); err != nil {
		return nil, err
	}
	src := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)

	e.source = src
	e.layer = newLayer(w, h)
	e.hist.reset(takeSnapshot(e.layer))
	e.active = nil
	e.generation++
	return e.session(), nil
}

// CheckDimensions reports whether a w by h source is loadable under a
// maxDim limit, with the same error LoadSource would return. Callers use it
// on decoded image headers before allocating pixels. A non-positive maxDim
// means DefaultMaxDimension.
func CheckDimensions(w, h, maxDim int) error {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	if w <= 0 || h <= 0 {
		return &InvalidImageError{Width: w, Height: h, Reason: "empty bounds"}
	}
	if w > maxDim || h > maxDim {
		return &InvalidImageError{Width: w, Height: h, Reason: "exceeds maximum dimension"}
	}
	return nil
}

// MaxDimension returns the largest width or height LoadSource accepts.
func (e *Engine) MaxDimension() int { return e.maxDim }

func (e *Engine) session() *Session {
	return &Session{Width: e.layer.width, Height: e.layer.height, Generation: e.generation}
}

// Session returns the handle of the loaded source, or nil.
func (e *Engine) Session() *Session {
	if e.layer == nil {
		return nil
	}
	return e.session()
}

// Loaded reports whether a source is loaded.
func (e *Engine) Loaded() bool { return e.layer != nil }

// Reset ends the session and drops the mask and its history.
func (e *Engine) Reset() {
	e.source = nil
	e.layer = nil
	e.active = nil
	e.hist = history{}
}

// ToLogical maps a viewport point to native source coordinates.
func (e *Engine) ToLogical(p Point) Point {
	return Point{X: p.X / e.zoom, Y: p.Y / e.zoom}
}

// BeginStroke starts a stroke at p and stamps the first footprint. It is
// ignored when no session is loaded or p is not finite. A stroke already in
// progress is committed first. Points off the canvas are valid; only the
// part of the brush that overlaps the source is painted.
func (e *Engine) BeginStroke(p Point, mode Mode) {
	if e.layer == nil || !p.finite() {
		return
	}
	if e.active != nil {
		e.EndStroke()
	}
	lp := e.ToLogical(p)
	e.active = &stroke{mode: mode, radius: e.radius, last: lp}
	e.layer.stamp(lp.X, lp.Y, e.radius, mode.value())
}

// ExtendStroke stamps the brush along the segment from the previous point
// to p. It is ignored when no stroke is in progress or p is not finite.
func (e *Engine) ExtendStroke(p Point) {
	if e.layer == nil || e.active == nil || !p.finite() {
		return
	}
	lp := e.ToLogical(p)
	e.layer.segment(e.active.last, lp, e.active.radius, e.active.mode.value())
	e.active.last = lp
}

// EndStroke commits the stroke in progress to history.
func (e *Engine) EndStroke() {
	if e.layer == nil || e.active == nil {
		return
	}
	e.active = nil
	e.hist.commit(takeSnapshot(e.layer))
}

// Stroking reports whether a stroke is in progress.
func (e *Engine) Stroking() bool { return e.active != nil }

// Clear deselects every pixel and records the cleared state in history.
func (e *Engine) Clear() error {
	if e.layer == nil {
		return ErrNoActiveSession
	}
	e.active = nil
	e.layer.reset()
	e.hist.commit(takeSnapshot(e.layer))
	return nil
}

// Undo steps the history cursor back. It reports whether the cursor moved.
func (e *Engine) Undo() bool {
	if e.layer == nil {
		return false
	}
	if e.active != nil {
		e.EndStroke()
	}
	s, ok := e.hist.back()
	if !ok {
		return false
	}
	s.restore(e.layer)
	return true
}

// Redo steps the history cursor forward. It reports whether the cursor moved.
func (e *Engine) Redo() bool {
	if e.layer == nil || e.active != nil {
		return false
	}
	s, ok := e.hist.forward()
	if !ok {
		return false
	}
	s.restore(e.layer)
	return true
}

// CanUndo reports whether Undo would move the cursor.
func (e *Engine) CanUndo() bool { return e.layer != nil && (e.hist.cursor > 0 || e.active != nil) }

// CanRedo reports whether Redo would move the cursor.
func (e *Engine) CanRedo() bool {
	return e.layer != nil && e.active == nil && e.hist.cursor < len(e.hist.entries)-1
}

// HistoryLen returns the number of snapshots.
func (e *Engine) HistoryLen() int { return len(e.hist.entries) }

// Cursor returns the index of the snapshot currently shown.
func (e *Engine) Cursor() int { return e.hist.cursor }

// Snapshot decodes history entry i. It returns nil when i is out of range.
func (e *Engine) Snapshot(i int) *image.Alpha {
	if e.layer == nil || i < 0 || i >= len(e.hist.entries) {
		return nil
	}
	tmp := newLayer(e.layer.width, e.layer.height)
	e.hist.entries[i].restore(tmp)
	return tmp.alpha()
}

// SetZoom sets the display scale used to map pointer coordinates. Values are
// clamped to [MinZoom, MaxZoom]; NaN and non-positive values are ignored.
func (e *Engine) SetZoom(f float64) {
	if math.IsNaN(f) || f <= 0 {
		return
	}
	e.zoom = clamp(f, MinZoom, MaxZoom)
}

// ZoomIn increases the zoom by one step.
func (e *Engine) ZoomIn() { e.SetZoom(roundZoom(e.zoom + e.zoomStep)) }

// ZoomOut decreases the zoom by one step.
func (e *Engine) ZoomOut() { e.SetZoom(roundZoom(e.zoom - e.zoomStep)) }

// Zoom returns the active display scale.
func (e *Engine) Zoom() float64 { return e.zoom }

// SetBrushRadius sets the radius used by the next stroke, clamped to
// [MinBrushRadius, MaxBrushRadius].
func (e *Engine) SetBrushRadius(r float64) {
	if math.IsNaN(r) {
		return
	}
	e.radius = clamp(r, MinBrushRadius, MaxBrushRadius)
}

// BrushRadius returns the configured brush radius.
func (e *Engine) BrushRadius() float64 { return e.radius }

// Source returns the loaded source image. Callers must not modify it.
func (e *Engine) Source() *image.NRGBA { return e.source }

// Mask returns a copy of the current coverage layer.
func (e *Engine) Mask() *image.Alpha {
	if e.layer == nil {
		return nil
	}
	return e.layer.alpha()
}

// Coverage returns the number of selected pixels.
func (e *Engine) Coverage() int {
	if e.layer == nil {
		return 0
	}
	return e.layer.count()
}

// ExportBinaryMask thresholds the layer into a black/white image at source
// resolution. Selected pixels are white, all others black.
func (e *Engine) ExportBinaryMask() (*image.Gray, error) {
	if e.layer == nil {
		return nil, ErrNoActiveSession
	}
	return e.layer.binary(), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// roundZoom keeps repeated steps from accumulating float error.
func roundZoom(z float64) float64 {
	return math.Round(z*1000) / 1000
}
