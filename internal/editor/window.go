package editor

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/example/flyermask/internal/mask"
	"github.com/example/flyermask/internal/notify"
	"github.com/example/flyermask/internal/theme"
	"github.com/example/flyermask/internal/workflow"
)

const (
	maxWindowWidth  = 1280
	maxWindowHeight = 900
)

// Options configures a Window.
type Options struct {
	Title  string
	Output string
	// Owner names stored artefacts of submissions.
	Owner     string
	Prompt    string
	Theme     *theme.Theme
	Notifier  *notify.Notifier
	Submitter Submitter
	Log       *zap.Logger
}

// Window is the desktop mask editor.
type Window struct {
	opts Options
	ctrl *Controller
	log  *zap.Logger

	overlay overlayCache
	dirty   bool
}

type submitResult struct {
	out *workflow.Outcome
	err error
}

// New creates an editor for e, which must hold a source.
func New(e *mask.Engine, opts Options) *Window {
	if opts.Theme == nil {
		opts.Theme = theme.Default()
	}
	if opts.Title == "" {
		opts.Title = "FlyerMask"
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	c := NewController(e)
	c.Prompt = opts.Prompt
	return &Window{opts: opts, ctrl: c, log: log, dirty: true}
}

// Controller exposes the interaction state, mainly for tests.
func (w *Window) Controller() *Controller { return w.ctrl }

// Run executes the UI loop using shiny's driver. It returns when the window
// is closed.
func (w *Window) Run() { driver.Main(w.Main) }

// Main runs the event loop on s.
func (w *Window) Main(s screen.Screen) {
	src := w.ctrl.Engine.Session()
	if src == nil {
		w.log.Error("editor started without a source image")
		return
	}
	width := min(src.Width+2*canvasMargin, maxWindowWidth)
	height := min(src.Height+2*canvasMargin+toolbarHeight+statusHeight, maxWindowHeight)
	win, err := s.NewWindow(&screen.NewWindowOptions{Width: width, Height: height, Title: w.opts.Title})
	if err != nil {
		w.log.Error("new window", zap.Error(err))
		return
	}
	defer win.Release()

	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.ctrl.Origin = image.Pt(canvasMargin, toolbarHeight+canvasMargin)
	w.ctrl.FitZoom(image.Pt(width-2*canvasMargin, height-2*canvasMargin-toolbarHeight-statusHeight))

	buttons := layoutToolbar()
	hover, pressed := -1, -1

	perform := func(a Action) bool {
		switch a {
		case ActionNone:
			return false
		case ActionQuit:
			return true
		case ActionSave:
			w.save()
		case ActionCopy:
			w.copy()
		case ActionSubmit:
			w.submit(ctx, &wg, win)
		}
		w.dirty = true
		win.Send(paint.Event{})
		return false
	}

	for {
		switch e := win.NextEvent().(type) {
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				return
			}
		case size.Event:
			width, height = e.WidthPx, e.HeightPx
			win.Send(paint.Event{})
		case paint.Event:
			if e.External {
				w.dirty = true
			}
			w.paint(s, win, frameState{
				width:   width,
				height:  height,
				theme:   w.opts.Theme,
				ctrl:    w.ctrl,
				buttons: buttons,
				hover:   hover,
				pressed: pressed,
			})
		case mouse.Event:
			p := image.Pt(int(e.X), int(e.Y))
			if p.Y < toolbarHeight && !w.ctrl.Engine.Stroking() {
				hover = buttonAt(buttons, p)
				if e.Button == mouse.ButtonLeft && e.Direction == mouse.DirPress {
					pressed = hover
				}
				if e.Direction == mouse.DirRelease && pressed >= 0 {
					i := pressed
					pressed = -1
					if i == hover {
						if perform(w.ctrl.Run(buttons[i].cmd)) {
							return
						}
						continue
					}
				}
				win.Send(paint.Event{})
				continue
			}
			hover, pressed = -1, -1
			if e.Direction != mouse.DirNone || w.ctrl.Engine.Stroking() {
				w.dirty = true
			}
			if perform(w.ctrl.Mouse(e)) {
				return
			}
		case key.Event:
			w.dirty = true
			if perform(w.ctrl.Key(e)) {
				return
			}
		case submitResult:
			w.ctrl.Busy = false
			if e.err != nil {
				w.log.Warn("inpaint failed", zap.Error(e.err))
				w.ctrl.SetMessage(fmt.Sprintf("inpaint failed: %v", e.err), 4*time.Second)
			} else {
				w.ctrl.SetMessage("result stored: "+e.out.ResultURL, 4*time.Second)
			}
			win.Send(paint.Event{})
		case error:
			w.log.Error("window event", zap.Error(e))
		}
	}
}

func (w *Window) paint(s screen.Screen, win screen.Window, st frameState) {
	st.overlay = w.overlay.update(w.ctrl.Engine, w.opts.Theme.MaskTint, w.dirty)
	w.dirty = false

	b, err := s.NewBuffer(image.Point{st.width, st.height})
	if err != nil {
		w.log.Error("new buffer", zap.Error(err))
		return
	}
	defer b.Release()
	drawFrame(b.RGBA(), st)
	win.Upload(image.Point{}, b, b.Bounds())
	win.Publish()
}

func (w *Window) save() {
	if w.opts.Output == "" {
		w.ctrl.SetMessage("no output file set", 2*time.Second)
		return
	}
	if err := SaveMask(w.ctrl.Engine, w.opts.Output); err != nil {
		w.log.Warn("save mask", zap.String("path", w.opts.Output), zap.Error(err))
		w.ctrl.SetMessage("save failed: "+err.Error(), 3*time.Second)
		return
	}
	w.log.Info("saved mask", zap.String("path", w.opts.Output))
	w.ctrl.SetMessage("saved "+w.opts.Output, 2*time.Second)
	w.opts.Notifier.Export(w.opts.Output)
}

func (w *Window) copy() {
	if err := CopyMask(w.ctrl.Engine); err != nil {
		w.log.Warn("copy mask", zap.Error(err))
		w.ctrl.SetMessage("copy failed: "+err.Error(), 3*time.Second)
		return
	}
	w.ctrl.SetMessage("copied mask", 2*time.Second)
	w.opts.Notifier.Copy("mask")
}

// submit hands the current mask to the workflow on its own goroutine; the
// outcome comes back through the window's event queue.
func (w *Window) submit(ctx context.Context, wg *sync.WaitGroup, win screen.Window) {
	if w.opts.Submitter == nil {
		w.ctrl.SetMessage("inpainting is not configured", 3*time.Second)
		return
	}
	job, err := jobFor(w.ctrl, w.opts.Owner)
	if err != nil {
		w.ctrl.SetMessage(err.Error(), 3*time.Second)
		return
	}
	w.ctrl.Busy = true
	w.ctrl.SetMessage("inpainting...", 2*time.Second)
	wg.Add(1)
	go func() {
		defer wg.Done()
		out, err := w.opts.Submitter.Submit(ctx, job)
		win.Send(submitResult{out: out, err: err})
	}()
}
