package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/example/flyermask/internal/inpaint"
	"github.com/example/flyermask/internal/storage"
	"github.com/example/flyermask/internal/workflow"
)

var errNoAPIKey = errors.New("no inpainting API key: set api_key in [inpaint] or FLYERMASK_API_KEY")

// saveDir is where uploads and results are kept when save_dir is unset.
func (r *root) saveDir() string {
	if r.config != nil && r.config.SaveDir != "" {
		return r.config.SaveDir
	}
	return filepath.Join(os.TempDir(), "flyermask")
}

func (r *root) inpaintOptions() inpaint.Options {
	c := r.config.Inpaint
	return inpaint.Options{
		Endpoint:      c.Endpoint,
		APIKey:        c.APIKey,
		Scheduler:     c.Scheduler,
		GuidanceScale: c.GuidanceScale,
		Steps:         c.Steps,
		Strength:      c.Strength,
		Samples:       c.Samples,
		Timeout:       c.Timeout,
	}
}

// newSubmitter wires the file store and the inpainting client. wrap, when
// set, decorates the DirStore handed to the workflow.
func (r *root) newSubmitter(wrap func(storage.Store) storage.Store) (*workflow.Submitter, *storage.DirStore, error) {
	if r.config == nil || r.config.Inpaint.APIKey == "" {
		return nil, nil, errNoAPIKey
	}
	dir, err := storage.NewDirStore(r.saveDir(), r.config.PublicURL)
	if err != nil {
		return nil, nil, err
	}
	var store storage.Store = dir
	if wrap != nil {
		store = wrap(dir)
	}
	return &workflow.Submitter{
		Store:     store,
		Inpainter: inpaint.NewClient(r.inpaintOptions(), nil),
		Notifier:  r.notifier,
		Log:       r.logger().Named("workflow"),
	}, dir, nil
}
