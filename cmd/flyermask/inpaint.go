package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/draw"
	"os"
	"os/signal"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/example/flyermask/internal/storage"
	"github.com/example/flyermask/internal/workflow"
)

// inpaintCmd submits an existing image and mask to the inpainting service.
type inpaintCmd struct {
	file     string
	maskPath string
	prompt   string
	negative string
	output   string
	owner    string
	seed     int
	asJSON   bool
	*root
	fs *flag.FlagSet
}

func (i *inpaintCmd) FlagSet() *flag.FlagSet {
	return i.fs
}

func parseInpaintCmd(args []string, r *root) (*inpaintCmd, error) {
	if r != nil {
		r = r.subcommand("inpaint")
	}
	fs := flag.NewFlagSet("inpaint", flag.ExitOnError)
	i := &inpaintCmd{root: r, fs: fs}
	fs.Usage = usageFunc(i)
	fs.StringVar(&i.file, "file", "", "source image file")
	fs.StringVar(&i.maskPath, "mask", "", "black/white mask file; white marks the region to regenerate")
	fs.StringVar(&i.prompt, "prompt", "", "what to paint into the masked region")
	fs.StringVar(&i.negative, "negative", "", "what to avoid")
	fs.StringVar(&i.output, "output", "", "also write the generated image to this path")
	fs.StringVar(&i.owner, "user", "", "owner name recorded in stored file names")
	fs.IntVar(&i.seed, "seed", -1, "generation seed (-1 picks one at random)")
	fs.BoolVar(&i.asJSON, "json", false, "print the outcome as JSON")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 || i.file == "" || i.maskPath == "" {
		return nil, &UsageError{of: i}
	}
	if strings.TrimSpace(i.prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	if i.owner == "" {
		i.owner = currentUser()
	}
	return i, nil
}

// binaryMask thresholds any decoded mask image at mid grey.
func binaryMask(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	for i, v := range g.Pix {
		if v >= 128 {
			g.Pix[i] = 255
		} else {
			g.Pix[i] = 0
		}
	}
	return g
}

// resultStore keeps a copy of the generated image while forwarding every
// object to the underlying store.
type resultStore struct {
	storage.Store
	mu     sync.Mutex
	result []byte
}

func (s *resultStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	u, err := s.Store.Put(ctx, name, data, contentType)
	if err == nil && strings.HasPrefix(name, "inpaint-"+string(storage.KindResult)+"-") {
		s.mu.Lock()
		s.result = data
		s.mu.Unlock()
	}
	return u, err
}

func (i *inpaintCmd) Run() error {
	log := i.root.logger()
	src, err := loadImage(i.file, false, i.root.maxDimension())
	if err != nil {
		return err
	}
	mimg, err := loadImage(i.maskPath, false, i.root.maxDimension())
	if err != nil {
		return err
	}
	if src.Bounds().Size() != mimg.Bounds().Size() {
		return fmt.Errorf("mask is %v but image is %v", mimg.Bounds().Size(), src.Bounds().Size())
	}

	rs := &resultStore{}
	sub, _, err := i.root.newSubmitter(func(s storage.Store) storage.Store {
		rs.Store = s
		return rs
	})
	if err != nil {
		return err
	}
	if i.config.PublicURL == "" {
		log.Warn("public_url is not set; the inpainting service cannot fetch file:// URLs")
	}

	job := workflow.Job{
		Source:         src,
		Mask:           binaryMask(mimg),
		Owner:          i.owner,
		Prompt:         i.prompt,
		NegativePrompt: i.negative,
	}
	if i.seed >= 0 {
		seed := i.seed
		job.Seed = &seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	out, err := sub.Submit(ctx, job)
	if err != nil {
		return err
	}

	if i.output != "" {
		if err := os.WriteFile(i.output, rs.result, 0o644); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		log.Debug("result written", zap.String("path", i.output))
	}
	if i.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	fmt.Println(out.ResultURL)
	return nil
}
