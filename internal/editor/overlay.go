package editor

import (
	"image"
	"image/color"

	"github.com/example/flyermask/internal/mask"
	"github.com/example/flyermask/internal/render"
)

// overlayCache keeps the composited canvas between frames. A full rebuild
// happens only for a new source or tint; mask edits recomposite the
// rectangle that changed since the last frame.
type overlayCache struct {
	img      *image.RGBA
	shown    *image.Alpha
	gen      uint64
	tint     color.RGBA
	rebuilds int
}

// update returns the overlay for e. changed reports whether the mask may
// have been edited since the previous call.
func (c *overlayCache) update(e *mask.Engine, tint color.RGBA, changed bool) *image.RGBA {
	sess := e.Session()
	if sess == nil {
		return c.img
	}
	if c.img == nil || sess.Generation != c.gen || tint != c.tint {
		c.shown = e.Mask()
		c.img = render.Overlay(e.Source(), c.shown, tint)
		c.gen, c.tint = sess.Generation, tint
		c.rebuilds++
		return c.img
	}
	if changed {
		m := e.Mask()
		if r := render.ChangedRect(c.shown, m); !r.Empty() {
			render.UpdateOverlay(c.img, e.Source(), m, tint, r)
			c.shown = m
		}
	}
	return c.img
}
