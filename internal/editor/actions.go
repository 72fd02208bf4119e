package editor

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/example/flyermask/internal/clipboard"
	"github.com/example/flyermask/internal/mask"
	"github.com/example/flyermask/internal/workflow"
)

// writeClipboard is swapped in tests.
var writeClipboard = clipboard.WriteImage

// Submitter runs inpaint jobs off the UI goroutine.
type Submitter interface {
	Submit(ctx context.Context, job workflow.Job) (*workflow.Outcome, error)
}

// SaveMask writes the binary mask of e to path as PNG.
func SaveMask(e *mask.Engine, path string) error {
	m, err := e.ExportBinaryMask()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, m); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// CopyMask places the binary mask of e on the clipboard.
func CopyMask(e *mask.Engine) error {
	m, err := e.ExportBinaryMask()
	if err != nil {
		return err
	}
	return writeClipboard(m)
}

// jobFor captures everything a submission needs so it can run while the
// user keeps editing.
func jobFor(c *Controller, owner string) (workflow.Job, error) {
	m, err := c.Engine.ExportBinaryMask()
	if err != nil {
		return workflow.Job{}, err
	}
	var src image.Image = c.Engine.Source()
	return workflow.Job{
		Source: src,
		Mask:   m,
		Owner:  owner,
		Prompt: c.Prompt,
	}, nil
}
