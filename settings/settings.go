// Package settings persists the handful of runtime selections that survive
// power cycles. Storage is a small JSON key/value file written on change and
// read once at startup.
package settings

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/GideonRubin/sensory-feedback/device"
)

// File is the on-disk schema.
type File struct {
	Mode int `json:"mode"`
}

// Settings is the decoded persisted state.
type Settings struct {
	Mode device.Mode
}

// Defaults returns the factory settings.
func Defaults() *Settings {
	return &Settings{Mode: device.ModeAccordion}
}

// Load reads the settings file. A missing file yields defaults; a corrupt
// one is an error so a bad flash sector is noticed rather than silently
// reset.
func Load(path string) (*Settings, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	s := Defaults()
	if f.Mode == int(device.ModeSong) {
		s.Mode = device.ModeSong
	}
	return s, nil
}

// Save writes the settings file.
func (s *Settings) Save(path string) error {
	b, err := json.MarshalIndent(&File{Mode: int(s.Mode)}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
