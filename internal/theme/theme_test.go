package theme

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseKeepsDefaultsForMissingKeys(t *testing.T) {
	th, err := Parse(strings.NewReader("Name: Mine\nmasktint: #00FF0040\nUnknownKey: #FFFFFF\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if th.Name != "Mine" {
		t.Errorf("name = %q", th.Name)
	}
	if want := (color.RGBA{0, 255, 0, 64}); th.MaskTint != want {
		t.Errorf("MaskTint = %+v, want %+v", th.MaskTint, want)
	}
	if th.Background != Default().Background {
		t.Errorf("Background lost its default: %+v", th.Background)
	}
}

func TestParseRejectsBadColor(t *testing.T) {
	_, err := Parse(strings.NewReader("BrushPaint: red\n"))
	if err == nil || !strings.Contains(err.Error(), "BrushPaint") {
		t.Fatalf("expected error naming the key, got %v", err)
	}
}

func TestColorRoundTrip(t *testing.T) {
	for _, s := range []string{"#112233", "#11223344"} {
		c, err := ParseColor(s)
		if err != nil {
			t.Fatalf("ParseColor(%q): %v", s, err)
		}
		if got := FormatColor(c); got != s {
			t.Errorf("FormatColor = %q, want %q", got, s)
		}
	}
}

func TestLoaderFindsEmbeddedAndFiles(t *testing.T) {
	l := &Loader{}
	dark, err := l.Load("dark")
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	if dark.Name != "Dark" {
		t.Errorf("name = %q", dark.Name)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mine.theme"), []byte("Name: Mine\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	l.ConfigDir = dir
	mine, err := l.Load("mine")
	if err != nil {
		t.Fatalf("load from config dir: %v", err)
	}
	if mine.Name != "Mine" {
		t.Errorf("name = %q", mine.Name)
	}
	if _, err := l.Load("missing"); err == nil {
		t.Fatalf("expected error for missing theme")
	}
}

func TestNamesListsEmbedded(t *testing.T) {
	names := Names()
	want := []string{"dark", "default", "high_contrast"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("Names = %v, want %v", names, want)
	}
}
