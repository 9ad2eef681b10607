package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/GideonRubin/sensory-feedback/device"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Mode != device.ModeAccordion {
		t.Errorf("mode: got=%d want=%d", s.Mode, device.ModeAccordion)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	in := &Settings{Mode: device.ModeSong}
	if err := in.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.Mode != device.ModeSong {
		t.Errorf("mode: got=%d want=%d", out.Mode, device.ModeSong)
	}
}

func TestLoadCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{mode:"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("expected a decode error")
	}
}

func TestLoadUnknownModeFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"mode": 7}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Mode != device.ModeAccordion {
		t.Errorf("unknown mode should fall back to Accordion, got %d", s.Mode)
	}
}
