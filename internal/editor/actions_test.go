package editor

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/mobile/event/mouse"

	"github.com/example/flyermask/internal/mask"
	"github.com/example/flyermask/internal/theme"
)

func TestSaveMaskWritesBinaryPNG(t *testing.T) {
	c := newTestController(t, 30, 20)
	c.Mouse(press(10+15, 30+10, mouse.ButtonLeft))
	c.Mouse(release(10+15, 30+10))

	path := filepath.Join(t.TempDir(), "out", "mask.png")
	if err := SaveMask(c.Engine, path); err != nil {
		t.Fatalf("SaveMask: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 30, 20) {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if r, _, _, _ := img.At(15, 10).RGBA(); r != 0xFFFF {
		t.Error("centre should be white")
	}
	if r, _, _, _ := img.At(0, 0).RGBA(); r != 0 {
		t.Error("corner should be black")
	}
}

func TestSaveMaskWithoutSession(t *testing.T) {
	err := SaveMask(mask.New(), filepath.Join(t.TempDir(), "x.png"))
	if !errors.Is(err, mask.ErrNoActiveSession) {
		t.Errorf("error = %v, want ErrNoActiveSession", err)
	}
}

func TestCopyMaskUsesClipboard(t *testing.T) {
	var got image.Image
	orig := writeClipboard
	writeClipboard = func(img image.Image) error { got = img; return nil }
	t.Cleanup(func() { writeClipboard = orig })

	c := newTestController(t, 8, 8)
	if err := CopyMask(c.Engine); err != nil {
		t.Fatal(err)
	}
	if _, ok := got.(*image.Gray); !ok {
		t.Errorf("clipboard got %T, want *image.Gray", got)
	}
}

func TestJobForCapturesPromptAndMask(t *testing.T) {
	c := newTestController(t, 8, 8)
	c.Prompt = "blue sky"
	job, err := jobFor(c, "me")
	if err != nil {
		t.Fatal(err)
	}
	if job.Prompt != "blue sky" || job.Owner != "me" || job.Mask == nil || job.Source == nil {
		t.Errorf("job = %+v", job)
	}
}

func TestDrawFrame(t *testing.T) {
	c := newTestController(t, 40, 20)
	c.Mouse(press(10+20, 30+10, mouse.ButtonLeft))
	c.Mouse(release(10+20, 30+10))
	c.SetMessage("saved", 0)

	th := theme.Default()
	dst := image.NewRGBA(image.Rect(0, 0, 200, 120))
	buttons := layoutToolbar()
	drawFrame(dst, frameState{
		width:   200,
		height:  120,
		theme:   th,
		ctrl:    c,
		overlay: image.NewRGBA(image.Rect(0, 0, 40, 20)),
		buttons: buttons,
		hover:   0,
		pressed: -1,
	})

	if got := dst.RGBAAt(1, toolbarHeight/2); got == th.Background {
		t.Error("toolbar was not drawn")
	}
	if got := dst.RGBAAt(199, 119); got != th.StatusBackground {
		t.Errorf("status bar pixel = %v, want %v", got, th.StatusBackground)
	}
	if got := dst.RGBAAt(150, 60); got != th.Background {
		t.Errorf("background pixel = %v, want %v", got, th.Background)
	}
}

func TestLayoutToolbar(t *testing.T) {
	bs := layoutToolbar()
	if len(bs) != len(toolbarCommands) {
		t.Fatalf("got %d buttons", len(bs))
	}
	for i := 1; i < len(bs); i++ {
		if bs[i].rect.Min.X != bs[i-1].rect.Max.X {
			t.Errorf("button %d not adjacent to %d", i, i-1)
		}
	}
	if i := buttonAt(bs, bs[3].rect.Min.Add(image.Pt(1, 1))); i != 3 {
		t.Errorf("buttonAt = %d, want 3", i)
	}
	if i := buttonAt(bs, image.Pt(-1, 5)); i != -1 {
		t.Errorf("buttonAt outside = %d", i)
	}
}
