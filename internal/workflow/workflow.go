// Package workflow submits a painted mask for inpainting: it uploads the
// source and mask, calls the inpainting service and stores the result.
package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/flyermask/internal/inpaint"
	"github.com/example/flyermask/internal/notify"
	"github.com/example/flyermask/internal/storage"
)

// Inpainter is the generative collaborator.
type Inpainter interface {
	Inpaint(ctx context.Context, req inpaint.Request) (*inpaint.Result, error)
}

// Job is one submission. Source may be omitted when SourceURL already points
// at an uploaded copy.
type Job struct {
	Source         image.Image
	SourceURL      string
	Mask           *image.Gray
	Owner          string
	Prompt         string
	NegativePrompt string
	Seed           *int
}

// Outcome holds the URLs of the three artefacts.
type Outcome struct {
	SourceURL string `json:"source_url"`
	MaskURL   string `json:"mask_url"`
	ResultURL string `json:"result_url"`
	Seed      int    `json:"seed"`
}

// Submitter runs jobs. Notifier may be nil.
type Submitter struct {
	Store     storage.Store
	Inpainter Inpainter
	Notifier  *notify.Notifier
	Log       *zap.Logger
	Now       func() time.Time
	// NewID names one submission's artefacts; defaults to a short random id.
	NewID func() string
}

func shortID() string { return uuid.NewString()[:8] }

// Submit runs job to completion. Errors name the failing stage.
func (s *Submitter) Submit(ctx context.Context, job Job) (*Outcome, error) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	newID := shortID
	if s.NewID != nil {
		newID = s.NewID
	}

	if strings.TrimSpace(job.Prompt) == "" {
		return nil, inpaint.ErrEmptyPrompt
	}
	if job.Mask == nil {
		return nil, errors.New("no mask to submit")
	}
	if job.Source == nil && job.SourceURL == "" {
		return nil, errors.New("no source image to submit")
	}

	at := now()
	id := newID()
	out := &Outcome{SourceURL: job.SourceURL}

	g, gctx := errgroup.WithContext(ctx)
	if out.SourceURL == "" {
		g.Go(func() error {
			u, err := s.putPNG(gctx, storage.Name(storage.KindOriginal, job.Owner, at, id), job.Source)
			if err != nil {
				return fmt.Errorf("upload source: %w", err)
			}
			out.SourceURL = u
			return nil
		})
	}
	g.Go(func() error {
		u, err := s.putPNG(gctx, storage.Name(storage.KindMask, job.Owner, at, id), job.Mask)
		if err != nil {
			return fmt.Errorf("upload mask: %w", err)
		}
		out.MaskURL = u
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Debug("uploaded inpaint inputs", zap.String("source", out.SourceURL), zap.String("mask", out.MaskURL))

	res, err := s.Inpainter.Inpaint(ctx, inpaint.Request{
		ImageURL:       out.SourceURL,
		MaskURL:        out.MaskURL,
		Prompt:         job.Prompt,
		NegativePrompt: job.NegativePrompt,
		Seed:           job.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("inpaint: %w", err)
	}
	out.Seed = res.Seed

	u, err := s.Store.Put(ctx, storage.Name(storage.KindResult, job.Owner, at, id), res.Data, res.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store result: %w", err)
	}
	out.ResultURL = u

	log.Info("inpaint finished",
		zap.String("owner", job.Owner),
		zap.String("result", out.ResultURL),
		zap.Int("seed", out.Seed),
		zap.Duration("elapsed", now().Sub(at)))
	s.Notifier.Submit(out.ResultURL)
	return out, nil
}

func (s *Submitter) putPNG(ctx context.Context, name string, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return s.Store.Put(ctx, name, buf.Bytes(), "image/png")
}
