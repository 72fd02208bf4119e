// Package editor is the interactive mask painter. Controller turns window
// events into engine calls and is independent of any display; Window hosts
// it in a shiny event loop.
package editor

import (
	"fmt"
	"image"
	"strings"
	"time"
	"unicode"

	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/mouse"

	"github.com/example/flyermask/internal/mask"
)

// Action is a request from the controller to its host.
type Action int

const (
	ActionNone Action = iota
	// ActionRedraw asks for a new frame.
	ActionRedraw
	ActionSave
	ActionCopy
	ActionSubmit
	ActionQuit
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionRedraw:
		return "redraw"
	case ActionSave:
		return "save"
	case ActionCopy:
		return "copy"
	case ActionSubmit:
		return "submit"
	case ActionQuit:
		return "quit"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// KeyShortcut describes a keyboard combination that triggers a command.
type KeyShortcut struct {
	Rune      rune
	Code      key.Code
	Modifiers key.Modifiers
}

// command names shared by shortcuts and toolbar buttons.
const (
	cmdPaint   = "paint"
	cmdErase   = "erase"
	cmdSmaller = "smaller"
	cmdLarger  = "larger"
	cmdZoomIn  = "zoom-in"
	cmdZoomOut = "zoom-out"
	cmdZoomFit = "zoom-reset"
	cmdClear   = "clear"
	cmdUndo    = "undo"
	cmdRedo    = "redo"
	cmdSave    = "save"
	cmdCopy    = "copy"
	cmdSubmit  = "submit"
	cmdPrompt  = "prompt"
	cmdQuit    = "quit"
)

var keyboardCommand = map[KeyShortcut]string{
	{Rune: 'b'}: cmdPaint,
	{Rune: 'e'}: cmdErase,
	{Rune: '['}: cmdSmaller,
	{Rune: ']'}: cmdLarger,
	{Rune: '+'}: cmdZoomIn,
	{Rune: '='}: cmdZoomIn,
	{Rune: '-'}: cmdZoomOut,
	{Rune: '0'}: cmdZoomFit,
	{Rune: 'c'}: cmdClear,
	{Rune: 'p'}: cmdPrompt,
	{Rune: 'q'}: cmdQuit,

	{Code: key.CodeZ, Modifiers: key.ModControl}:                cmdUndo,
	{Code: key.CodeY, Modifiers: key.ModControl}:                cmdRedo,
	{Code: key.CodeZ, Modifiers: key.ModControl | key.ModShift}: cmdRedo,
	{Code: key.CodeS, Modifiers: key.ModControl}:                cmdSave,
	{Code: key.CodeC, Modifiers: key.ModControl}:                cmdCopy,
	{Code: key.CodeReturnEnter, Modifiers: key.ModControl}:      cmdSubmit,
	{Code: key.CodeKeypadEnter, Modifiers: key.ModControl}:      cmdSubmit,
}

// radiusStep is how much [ and ] change the brush radius.
const radiusStep = 2.0

// Controller owns the interaction state around an engine. All methods must
// be called from the goroutine that owns the engine.
type Controller struct {
	Engine *mask.Engine
	Mode   mask.Mode
	// Origin is the window position of the canvas's top-left corner.
	Origin image.Point
	// Prompt is the instruction sent with a submission.
	Prompt string
	// Busy is set while a submission is in flight.
	Busy bool

	pointer      image.Point
	hover        bool
	fitZoom      float64
	promptActive bool
	message      string
	messageUntil time.Time
	now          func() time.Time
}

// NewController wraps e. The engine should already hold a source.
func NewController(e *mask.Engine) *Controller {
	return &Controller{Engine: e, fitZoom: 1, now: time.Now}
}

// CanvasRect is the window rectangle covered by the zoomed source.
func (c *Controller) CanvasRect() image.Rectangle {
	s := c.Engine.Session()
	if s == nil {
		return image.Rectangle{Min: c.Origin, Max: c.Origin}
	}
	z := c.Engine.Zoom()
	w := int(float64(s.Width)*z + 0.5)
	h := int(float64(s.Height)*z + 0.5)
	return image.Rect(c.Origin.X, c.Origin.Y, c.Origin.X+w, c.Origin.Y+h)
}

// FitZoom picks the zoom at which the source fits in avail and remembers it
// for the reset command.
func (c *Controller) FitZoom(avail image.Point) {
	s := c.Engine.Session()
	if s == nil || avail.X <= 0 || avail.Y <= 0 {
		return
	}
	z := min(float64(avail.X)/float64(s.Width), float64(avail.Y)/float64(s.Height), 1)
	c.fitZoom = z
	c.Engine.SetZoom(z)
}

// Pointer returns the last pointer position and whether it is over the canvas.
func (c *Controller) Pointer() (image.Point, bool) { return c.pointer, c.hover }

// PromptActive reports whether keystrokes are being typed into the prompt.
func (c *Controller) PromptActive() bool { return c.promptActive }

// SetMessage shows msg for d.
func (c *Controller) SetMessage(msg string, d time.Duration) {
	c.message = msg
	c.messageUntil = c.now().Add(d)
}

// Message returns the transient message if it has not expired.
func (c *Controller) Message() string {
	if c.message == "" || !c.now().Before(c.messageUntil) {
		return ""
	}
	return c.message
}

func (c *Controller) viewport(p image.Point) mask.Point {
	d := p.Sub(c.Origin)
	return mask.Pt(float64(d.X), float64(d.Y))
}

// Mouse handles a pointer event. The left button paints with the current
// mode and the right button always erases. Leaving the canvas ends a stroke.
func (c *Controller) Mouse(e mouse.Event) Action {
	p := image.Pt(int(e.X), int(e.Y))
	c.pointer = p
	inside := p.In(c.CanvasRect())
	c.hover = inside

	switch e.Direction {
	case mouse.DirPress:
		if c.Message() != "" {
			c.messageUntil = time.Time{}
		}
		if !inside {
			return ActionRedraw
		}
		switch e.Button {
		case mouse.ButtonLeft:
			c.Engine.BeginStroke(c.viewport(p), c.Mode)
		case mouse.ButtonRight:
			c.Engine.BeginStroke(c.viewport(p), mask.Erase)
		case mouse.ButtonWheelUp:
			c.Engine.ZoomIn()
		case mouse.ButtonWheelDown:
			c.Engine.ZoomOut()
		}
		return ActionRedraw
	case mouse.DirRelease:
		c.Engine.EndStroke()
		return ActionRedraw
	default:
		if c.Engine.Stroking() {
			if !inside {
				c.Engine.EndStroke()
			} else {
				c.Engine.ExtendStroke(c.viewport(p))
			}
		}
		return ActionRedraw
	}
}

// Key handles a key event. Only presses act.
func (c *Controller) Key(e key.Event) Action {
	if e.Direction != key.DirPress {
		return ActionNone
	}
	if c.promptActive {
		return c.promptKey(e)
	}
	// Plain keys match on the rune so shifted symbols like '+' work on any
	// layout; control chords match on the physical key.
	ks := KeyShortcut{Rune: unicode.ToLower(e.Rune)}
	if e.Modifiers&key.ModControl != 0 {
		ks = KeyShortcut{Code: e.Code, Modifiers: e.Modifiers & (key.ModControl | key.ModShift)}
	}
	cmd, ok := keyboardCommand[ks]
	if !ok {
		return ActionNone
	}
	return c.Run(cmd)
}

// Run executes a named command, from a shortcut or a toolbar button.
func (c *Controller) Run(cmd string) Action {
	e := c.Engine
	switch cmd {
	case cmdPaint:
		c.Mode = mask.Paint
	case cmdErase:
		c.Mode = mask.Erase
	case cmdSmaller:
		e.SetBrushRadius(e.BrushRadius() - radiusStep)
	case cmdLarger:
		e.SetBrushRadius(e.BrushRadius() + radiusStep)
	case cmdZoomIn:
		e.ZoomIn()
	case cmdZoomOut:
		e.ZoomOut()
	case cmdZoomFit:
		e.SetZoom(c.fitZoom)
	case cmdClear:
		if err := e.Clear(); err != nil {
			c.SetMessage(err.Error(), 2*time.Second)
		}
	case cmdUndo:
		if !e.Undo() {
			c.SetMessage("nothing to undo", time.Second)
		}
	case cmdRedo:
		if !e.Redo() {
			c.SetMessage("nothing to redo", time.Second)
		}
	case cmdSave:
		return ActionSave
	case cmdCopy:
		return ActionCopy
	case cmdSubmit:
		return c.submit()
	case cmdPrompt:
		c.promptActive = true
	case cmdQuit:
		e.EndStroke()
		return ActionQuit
	default:
		return ActionNone
	}
	return ActionRedraw
}

func (c *Controller) submit() Action {
	if c.Busy {
		c.SetMessage("inpainting already running", 2*time.Second)
		return ActionRedraw
	}
	if strings.TrimSpace(c.Prompt) == "" {
		c.promptActive = true
		c.SetMessage("type a prompt, then press Enter", 2*time.Second)
		return ActionRedraw
	}
	c.Engine.EndStroke()
	return ActionSubmit
}

func (c *Controller) promptKey(e key.Event) Action {
	switch e.Code {
	case key.CodeReturnEnter, key.CodeKeypadEnter:
		c.promptActive = false
		if e.Modifiers&key.ModControl != 0 {
			return c.submit()
		}
		return ActionRedraw
	case key.CodeEscape:
		c.promptActive = false
		return ActionRedraw
	case key.CodeDeleteBackspace:
		if r := []rune(c.Prompt); len(r) > 0 {
			c.Prompt = string(r[:len(r)-1])
		}
		return ActionRedraw
	}
	if e.Rune > 0 && unicode.IsPrint(e.Rune) {
		c.Prompt += string(e.Rune)
		return ActionRedraw
	}
	return ActionNone
}

// Status summarises the editor state for the status bar.
func (c *Controller) Status() string {
	e := c.Engine
	s := fmt.Sprintf("%s  r=%g  zoom %d%%  history %d/%d",
		c.Mode, e.BrushRadius(), int(e.Zoom()*100+0.5), e.Cursor()+1, e.HistoryLen())
	if c.Busy {
		s += "  inpainting..."
	}
	return s
}
