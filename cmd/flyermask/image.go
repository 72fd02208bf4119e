package main

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/example/flyermask/internal/clipboard"
	"github.com/example/flyermask/internal/mask"
)

// readClipboardFn is swapped in tests.
var readClipboardFn = clipboard.ReadImage

// writeClipboardFn is swapped in tests.
var writeClipboardFn = clipboard.WriteImage

// loadImage decodes a PNG, JPEG or WebP file, or reads the clipboard when
// fromClipboard is set. Files whose header declares a side larger than
// maxDim are refused before their pixels are decoded.
func loadImage(path string, fromClipboard bool, maxDim int) (image.Image, error) {
	if fromClipboard {
		img, err := readClipboardFn()
		if err != nil {
			return nil, fmt.Errorf("read clipboard image: %w", err)
		}
		return img, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := mask.CheckDimensions(cfg.Width, cfg.Height, maxDim); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func writePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// siblingPath returns path with its extension replaced by suffix+".png".
func siblingPath(path, suffix string) string {
	if path == "" {
		return suffix[1:] + ".png"
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ".png"
}
