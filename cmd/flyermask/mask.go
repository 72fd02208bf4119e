package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/example/flyermask/internal/editor"
	"github.com/example/flyermask/internal/mask"
	"github.com/example/flyermask/internal/render"
	"github.com/example/flyermask/internal/script"
)

// maskCmd replays edits on an image without a window.
type maskCmd struct {
	file          string
	output        string
	preview       string
	scriptPath    string
	fromClipboard bool
	toClipboard   bool
	erase         bool
	radius        float64
	zoom          float64
	points        [][]float64
	*root
	fs *flag.FlagSet
}

func (m *maskCmd) FlagSet() *flag.FlagSet {
	return m.fs
}

func parseMaskCmd(args []string, r *root) (*maskCmd, error) {
	if r != nil {
		r = r.subcommand("mask")
	}
	fs := flag.NewFlagSet("mask", flag.ExitOnError)
	m := &maskCmd{root: r, fs: fs}
	fs.Usage = usageFunc(m)
	radius := mask.DefaultBrushRadius
	if r != nil && r.config != nil && r.config.Brush.Radius > 0 {
		radius = r.config.Brush.Radius
	}
	fs.StringVar(&m.file, "file", "", "input image file (png, jpeg or webp)")
	fs.StringVar(&m.output, "output", "", "mask output path (defaults to <file>-mask.png)")
	fs.StringVar(&m.preview, "preview", "", "also write the tinted overlay preview to this path")
	fs.StringVar(&m.scriptPath, "script", "", "YAML edit script to replay")
	fs.BoolVar(&m.fromClipboard, "from-clipboard", false, "read the input image from the clipboard")
	fs.BoolVar(&m.fromClipboard, "from-clip", false, "read the input image from the clipboard (alias)")
	fs.BoolVar(&m.toClipboard, "to-clipboard", false, "copy the mask to the clipboard")
	fs.BoolVar(&m.toClipboard, "to-clip", false, "copy the mask to the clipboard (alias)")
	fs.BoolVar(&m.erase, "erase", false, "erase along the path instead of painting")
	fs.Float64Var(&m.radius, "radius", radius, "brush radius in source pixels")
	fs.Float64Var(&m.zoom, "zoom", 1, "zoom the coordinates were recorded at")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if m.scriptPath == "" && fs.NArg() == 0 {
		return nil, &UsageError{of: m}
	}
	if m.scriptPath != "" && fs.NArg() > 0 {
		return nil, fmt.Errorf("coordinates cannot be combined with -script")
	}
	if fs.NArg() > 0 {
		pts, err := parsePoints(fs.Args())
		if err != nil {
			return nil, err
		}
		m.points = pts
	}
	if m.file == "" && !m.fromClipboard {
		return nil, fmt.Errorf("input file is required")
	}
	if m.output == "" {
		if m.fromClipboard && m.file == "" {
			return nil, fmt.Errorf("output file is required when reading from the clipboard")
		}
		m.output = siblingPath(m.file, "-mask")
	}
	if m.radius <= 0 {
		return nil, fmt.Errorf("radius must be positive")
	}
	if m.zoom <= 0 {
		return nil, fmt.Errorf("zoom must be positive")
	}
	return m, nil
}

// parsePoints reads "x y x y ..." into a stroke path.
func parsePoints(args []string) ([][]float64, error) {
	if len(args)%2 != 0 {
		return nil, fmt.Errorf("coordinates must come in x y pairs")
	}
	pts := make([][]float64, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		x, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q", args[i])
		}
		y, err := strconv.ParseFloat(args[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q", args[i+1])
		}
		pts = append(pts, []float64{x, y})
	}
	return pts, nil
}

func (m *maskCmd) loadScript() (*script.Script, error) {
	if m.scriptPath == "" {
		mode := mask.Paint
		if m.erase {
			mode = mask.Erase
		}
		s := script.Stroke(mode, m.radius, m.points)
		s.Zoom = m.zoom
		return s, nil
	}
	f, err := os.Open(m.scriptPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := script.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.scriptPath, err)
	}
	return s, nil
}

func (m *maskCmd) engine() *mask.Engine {
	opts := []mask.Option{mask.WithBrushRadius(m.radius)}
	if m.root != nil && m.config != nil && m.config.Editor.MaxDimension > 0 {
		opts = append(opts, mask.WithMaxDimension(m.config.Editor.MaxDimension))
	}
	return mask.New(opts...)
}

func (m *maskCmd) Run() error {
	log := m.root.logger()
	s, err := m.loadScript()
	if err != nil {
		return err
	}
	src, err := loadImage(m.file, m.fromClipboard, m.root.maxDimension())
	if err != nil {
		return err
	}
	e := m.engine()
	if _, err := e.LoadSource(src); err != nil {
		return err
	}
	if err := s.Apply(e); err != nil {
		return err
	}
	log.Debug("script applied",
		zap.Int("steps", len(s.Steps)),
		zap.Int("coverage", e.Coverage()),
		zap.Int("history", e.HistoryLen()))

	if err := editor.SaveMask(e, m.output); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "saved %s\n", m.output)
	m.root.notifyExport(m.output)

	if m.preview != "" {
		tint := render.DefaultTint
		if m.root != nil && m.activeTheme != nil {
			tint = m.activeTheme.MaskTint
		}
		if err := writePNG(m.preview, render.Overlay(e.Source(), e.Mask(), tint)); err != nil {
			return fmt.Errorf("write preview: %w", err)
		}
		fmt.Fprintf(os.Stderr, "saved preview %s\n", m.preview)
	}
	if m.toClipboard {
		bin, err := e.ExportBinaryMask()
		if err != nil {
			return err
		}
		if err := writeClipboardFn(bin); err != nil {
			return fmt.Errorf("copy mask to clipboard: %w", err)
		}
		m.root.notifyCopy("mask")
	}
	return nil
}
