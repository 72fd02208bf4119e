package main

import (
	"errors"
	"flag"
	"fmt"
	"os/user"

	"go.uber.org/zap"

	"github.com/example/flyermask/internal/editor"
	"github.com/example/flyermask/internal/mask"
)

// editCmd opens the interactive editor.
type editCmd struct {
	file          string
	output        string
	prompt        string
	owner         string
	fromClipboard bool
	*root
	fs *flag.FlagSet
}

func (e *editCmd) FlagSet() *flag.FlagSet {
	return e.fs
}

func parseEditCmd(args []string, r *root) (*editCmd, error) {
	if r != nil {
		r = r.subcommand("edit")
	}
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	e := &editCmd{root: r, fs: fs}
	fs.Usage = usageFunc(e)
	fs.StringVar(&e.file, "file", "", "input image file (png, jpeg or webp)")
	fs.StringVar(&e.output, "output", "", "path used by Ctrl+S (defaults to <file>-mask.png)")
	fs.StringVar(&e.prompt, "prompt", "", "initial inpainting prompt")
	fs.StringVar(&e.owner, "user", "", "owner name recorded in stored file names")
	fs.BoolVar(&e.fromClipboard, "from-clipboard", false, "read the input image from the clipboard")
	fs.BoolVar(&e.fromClipboard, "from-clip", false, "read the input image from the clipboard (alias)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, &UsageError{of: e}
	}
	if e.file == "" && !e.fromClipboard {
		return nil, fmt.Errorf("input file is required")
	}
	if e.output == "" {
		if e.file == "" {
			return nil, fmt.Errorf("output file is required when reading from the clipboard")
		}
		e.output = siblingPath(e.file, "-mask")
	}
	if e.owner == "" {
		e.owner = currentUser()
	}
	return e, nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

func (e *editCmd) engine() *mask.Engine {
	var opts []mask.Option
	if e.config != nil {
		opts = append(opts,
			mask.WithBrushRadius(e.config.Brush.Radius),
			mask.WithZoomStep(e.config.Brush.ZoomStep))
		if e.config.Editor.MaxDimension > 0 {
			opts = append(opts, mask.WithMaxDimension(e.config.Editor.MaxDimension))
		}
	}
	return mask.New(opts...)
}

func (e *editCmd) Run() error {
	log := e.root.logger()
	src, err := loadImage(e.file, e.fromClipboard, e.root.maxDimension())
	if err != nil {
		return err
	}
	eng := e.engine()
	if _, err := eng.LoadSource(src); err != nil {
		return err
	}

	opts := editor.Options{
		Title:    "FlyerMask - " + e.output,
		Output:   e.output,
		Owner:    e.owner,
		Prompt:   e.prompt,
		Theme:    e.activeTheme,
		Notifier: e.notifier,
		Log:      log.Named("editor"),
	}
	sub, _, err := e.root.newSubmitter(nil)
	switch {
	case err == nil:
		opts.Submitter = sub
	case errors.Is(err, errNoAPIKey):
		log.Info("inpainting disabled", zap.Error(err))
	default:
		return err
	}
	editor.New(eng, opts).Run()
	return nil
}
