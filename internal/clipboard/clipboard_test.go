//go:build linux || freebsd || openbsd || netbsd || dragonfly

package clipboard

import (
	"errors"
	"image"
	"sync"
	"testing"
)

func resetInit(t *testing.T) {
	t.Helper()
	initOnce = sync.Once{}
	initErr = nil
	active = nil
	t.Cleanup(func() {
		initOnce = sync.Once{}
		initErr = nil
		active = nil
	})
}

func TestWriteImageWithoutDisplay(t *testing.T) {
	t.Setenv("DISPLAY", "")
	t.Setenv("WAYLAND_DISPLAY", "")
	resetInit(t)

	err := WriteImage(image.NewGray(image.Rect(0, 0, 2, 2)))
	if !errors.Is(err, errNoDisplay) {
		t.Fatalf("expected errNoDisplay, got %v", err)
	}
}

type memBackend struct{ data []byte }

func (m *memBackend) write(data []byte) error { m.data = data; return nil }
func (m *memBackend) read() ([]byte, error)   { return m.data, nil }

func TestImageRoundTripThroughBackend(t *testing.T) {
	resetInit(t)
	initOnce.Do(func() { active = &memBackend{} })

	src := image.NewGray(image.Rect(0, 0, 3, 2))
	src.Pix[4] = 0xFF
	if err := WriteImage(src); err != nil {
		t.Fatalf("WriteImage: %v", err)
	}
	got, err := ReadImage()
	if err != nil {
		t.Fatalf("ReadImage: %v", err)
	}
	if got.Bounds() != src.Bounds() {
		t.Fatalf("bounds %v, want %v", got.Bounds(), src.Bounds())
	}
	if r, _, _, _ := got.At(1, 1).RGBA(); r != 0xFFFF {
		t.Errorf("pixel (1,1) = %d, want white", r)
	}
}

func TestReadImageEmpty(t *testing.T) {
	resetInit(t)
	initOnce.Do(func() { active = &memBackend{} })
	if _, err := ReadImage(); err == nil {
		t.Fatal("expected error for empty clipboard")
	}
}
