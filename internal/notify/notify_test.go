package notify

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/example/flyermask/internal/platform"
)

type sent struct {
	Title, Body, Icon string
}

func captureSends(t *testing.T) *[]sent {
	t.Helper()
	var got []sent
	orig := send
	send = func(title, body string, opts platform.Options) error {
		got = append(got, sent{title, body, opts.IconPath})
		return nil
	}
	t.Cleanup(func() { send = orig })
	return &got
}

func TestDisabledEventsAreSilent(t *testing.T) {
	got := captureSends(t)
	n := New(DefaultPreferences(), zap.NewNop())
	n.Export("mask.png")
	n.Submit("https://example.com/r.png")
	n.Copy("")

	var nilNotifier *Notifier
	nilNotifier.Copy("mask")

	if len(*got) != 0 {
		t.Fatalf("expected no notifications, got %+v", *got)
	}
}

func TestEnabledEvents(t *testing.T) {
	got := captureSends(t)
	dir := t.TempDir()
	maskPath := filepath.Join(dir, "mask.png")
	if err := os.WriteFile(maskPath, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	n := New(DefaultPreferences(), nil)
	n.Enable(EventExport, true)
	n.Enable(EventSubmit, true)
	n.Enable(EventCopy, true)

	n.Export(maskPath)
	n.Submit("file:///tmp/result.png")
	n.Copy("")

	want := []sent{
		{"FlyerMask", "Mask saved to " + maskPath, maskPath},
		{"FlyerMask", "Inpainting finished: file:///tmp/result.png", "/tmp/result.png"},
		{"FlyerMask", "Copied mask to clipboard", ""},
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPreferencesFromEnv(t *testing.T) {
	t.Setenv("FLYERMASK_NOTIFY_TITLE", "Flyers")
	t.Setenv("FLYERMASK_NOTIFY_SUBMIT_TEXT", "Done %s")
	prefs := LoadPreferences()
	if prefs.Title != "Flyers" {
		t.Errorf("title = %q", prefs.Title)
	}
	if prefs.Events[EventSubmit].Template != "Done %s" {
		t.Errorf("submit template = %q", prefs.Events[EventSubmit].Template)
	}
	if prefs.Events[EventExport].Template != DefaultPreferences().Events[EventExport].Template {
		t.Error("export template should keep its default")
	}
}

func TestDeliveryErrorIsNotFatal(t *testing.T) {
	orig := send
	send = func(string, string, platform.Options) error { return errors.New("no bus") }
	t.Cleanup(func() { send = orig })

	n := New(DefaultPreferences(), zap.NewNop())
	n.Enable(EventCopy, true)
	n.Copy("mask")
}
