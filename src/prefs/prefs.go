// Package prefs stores the small set of user preferences that survive restarts.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const FileName = "prefs.yaml"

// Prefs is re-read at startup to decide whether the overlay button is shown.
type Prefs struct {
	OverlayEnabled bool `yaml:"overlay_enabled"`
}

func Default() Prefs {
	return Prefs{OverlayEnabled: true}
}

// Load reads path. A missing file yields Default.
func Load(path string) (Prefs, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read prefs: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Default(), fmt.Errorf("parse prefs %s: %w", path, err)
	}
	return p, nil
}

// Save writes p through a temp file and rename so a crash never leaves a
// truncated file behind.
func Save(path string, p Prefs) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp prefs: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close prefs: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

// Toggle flips OverlayEnabled, persists it, and returns the new value.
func Toggle(path string) (bool, error) {
	p, err := Load(path)
	if err != nil {
		return false, err
	}
	p.OverlayEnabled = !p.OverlayEnabled
	if err := Save(path, p); err != nil {
		return !p.OverlayEnabled, err
	}
	return p.OverlayEnabled, nil
}
