package editor

import (
	"image"
	"image/color"
	"image/draw"
	"log"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/example/flyermask/internal/mask"
	"github.com/example/flyermask/internal/render"
	"github.com/example/flyermask/internal/theme"
)

const (
	toolbarHeight = 24
	statusHeight  = 24
	canvasMargin  = 16
	checkerSize   = 8
)

var messageFace font.Face

func init() {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		log.Fatalf("parse font: %v", err)
	}
	messageFace, err = opentype.NewFace(f, &opentype.FaceOptions{Size: 28, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		log.Fatalf("font face: %v", err)
	}
}

// ButtonState describes the visual state of a toolbar button.
type ButtonState int

const (
	StateDefault ButtonState = iota
	StateHover
	StatePressed
)

type button struct {
	label string
	cmd   string
	rect  image.Rectangle
}

var toolbarCommands = []struct{ label, cmd string }{
	{"B:Paint", cmdPaint},
	{"E:Erase", cmdErase},
	{"[:Smaller", cmdSmaller},
	{"]:Larger", cmdLarger},
	{"Undo", cmdUndo},
	{"Redo", cmdRedo},
	{"C:Clear", cmdClear},
	{"^S:Save", cmdSave},
	{"^C:Copy", cmdCopy},
	{"P:Prompt", cmdPrompt},
	{"^Enter:Inpaint", cmdSubmit},
}

// layoutToolbar places the buttons left to right, each sized to its label.
func layoutToolbar() []button {
	d := &font.Drawer{Face: basicfont.Face7x13}
	x := 0
	out := make([]button, 0, len(toolbarCommands))
	for _, tc := range toolbarCommands {
		w := d.MeasureString(tc.label).Ceil() + 12
		out = append(out, button{label: tc.label, cmd: tc.cmd, rect: image.Rect(x, 0, x+w, toolbarHeight)})
		x += w
	}
	return out
}

func buttonAt(bs []button, p image.Point) int {
	for i, b := range bs {
		if p.In(b.rect) {
			return i
		}
	}
	return -1
}

func (b button) draw(dst *image.RGBA, th *theme.Theme, state ButtonState, selected bool) {
	bg := th.ButtonBackground
	switch {
	case state == StatePressed || selected:
		bg = th.ButtonBackgroundPress
	case state == StateHover:
		bg = th.ButtonBackgroundHover
	}
	draw.Draw(dst, b.rect, &image.Uniform{bg}, image.Point{}, draw.Src)
	drawRect(dst, b.rect, th.ButtonBorder)
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(th.ButtonText), Face: basicfont.Face7x13,
		Dot: fixed.P(b.rect.Min.X+6, b.rect.Min.Y+16)}
	d.DrawString(b.label)
}

func drawRect(dst *image.RGBA, r image.Rectangle, col color.Color) {
	u := &image.Uniform{col}
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), u, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), u, image.Point{}, draw.Src)
}

// frameState is what one frame needs; overlay is the tinted source at
// native resolution.
type frameState struct {
	width, height int
	theme         *theme.Theme
	ctrl          *Controller
	overlay       *image.RGBA
	buttons       []button
	hover         int
	pressed       int
}

func drawFrame(dst *image.RGBA, st frameState) {
	th := st.theme
	c := st.ctrl
	draw.Draw(dst, dst.Bounds(), &image.Uniform{th.Background}, image.Point{}, draw.Src)

	canvas := c.CanvasRect()
	view := image.Rect(0, toolbarHeight, st.width, st.height-statusHeight)
	if st.overlay != nil && !canvas.Empty() {
		render.DrawShadow(dst, canvas.Intersect(view), render.DefaultShadowOptions())
		render.Checkerboard(dst, canvas.Intersect(view), checkerSize, th.CheckerLight, th.CheckerDark)
		render.Scale(dst.SubImage(view).(*image.RGBA), canvas, st.overlay)
	}
	if p, ok := c.Pointer(); ok && p.In(view) {
		col := th.BrushPaint
		if c.Mode == mask.Erase {
			col = th.BrushErase
		}
		render.BrushRing(dst, p, c.Engine.BrushRadius()*c.Engine.Zoom(), col)
	}

	draw.Draw(dst, image.Rect(0, 0, st.width, toolbarHeight), &image.Uniform{th.ToolbarBackground}, image.Point{}, draw.Src)
	for i, b := range st.buttons {
		state := StateDefault
		switch i {
		case st.pressed:
			state = StatePressed
		case st.hover:
			state = StateHover
		}
		selected := (b.cmd == cmdPaint && c.Mode == mask.Paint) || (b.cmd == cmdErase && c.Mode == mask.Erase)
		b.draw(dst, th, state, selected)
	}

	status := image.Rect(0, st.height-statusHeight, st.width, st.height)
	draw.Draw(dst, status, &image.Uniform{th.StatusBackground}, image.Point{}, draw.Src)
	text := c.Status()
	if c.PromptActive() {
		text = "prompt: " + c.Prompt + "|"
	} else if c.Prompt != "" {
		text += "  prompt: " + c.Prompt
	}
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(th.StatusText), Face: basicfont.Face7x13,
		Dot: fixed.P(6, status.Min.Y+16)}
	d.DrawString(text)

	if msg := c.Message(); msg != "" {
		drawMessage(dst, st.width, st.height, msg, th)
	}
}

func drawMessage(dst *image.RGBA, width, height int, msg string, th *theme.Theme) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(th.MessageText), Face: messageFace}
	wmsg := d.MeasureString(msg).Ceil()
	ascent := messageFace.Metrics().Ascent.Ceil()
	descent := messageFace.Metrics().Descent.Ceil()
	px := (width - wmsg) / 2
	py := (height-ascent-descent)/2 + ascent
	rect := image.Rect(px-8, py-ascent-8, px+wmsg+8, py+descent+8)
	// Theme alpha is straight, not premultiplied.
	draw.Draw(dst, rect, image.NewUniform(color.NRGBA(th.MessageBackground)), image.Point{}, draw.Over)
	drawRect(dst, rect, th.MessageText)
	d.Dot = fixed.P(px, py)
	d.DrawString(msg)
}
