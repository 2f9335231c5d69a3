package config

import (
	"os"
	"path/filepath"
	"testing"

	"breastimage/pkg/roi"
)

// TestLoadMissingConfig verifies that a missing file yields defaults
func TestLoadMissingConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Flip.Workers != 1 {
		t.Errorf("Expected 1 worker, got %d", cfg.Flip.Workers)
	}
	if cfg.DegeneratePolicy() != roi.DegenerateWarn {
		t.Errorf("Expected warn policy, got %v", cfg.DegeneratePolicy())
	}
}

// TestSaveLoadConfig verifies that saved values are read back
func TestSaveLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Locator.DegeneratePolicy = "reject"
	cfg.Flip.Workers = 4
	cfg.Output.SliceFormat = "tiff"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.DegeneratePolicy() != roi.DegenerateReject {
		t.Errorf("Expected reject policy, got %v", loaded.DegeneratePolicy())
	}
	if loaded.Flip.Workers != 4 || loaded.Output.SliceFormat != "tiff" {
		t.Errorf("Unexpected loaded config %+v", loaded)
	}
}

// TestPartialConfig verifies that unspecified keys keep their defaults
func TestPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("flip:\n  workers: 8\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Flip.Workers != 8 {
		t.Errorf("Expected 8 workers, got %d", cfg.Flip.Workers)
	}
	if cfg.Output.SliceFormat != "png" {
		t.Errorf("Expected default slice format png, got %q", cfg.Output.SliceFormat)
	}
}

// TestInvalidConfig verifies validation of loaded values
func TestInvalidConfig(t *testing.T) {
	tests := map[string]string{
		"policy":  "locator:\n  degeneratePolicy: ignore\n",
		"workers": "flip:\n  workers: -2\n",
		"format":  "output:\n  sliceFormat: bmp\n",
		"yaml":    "flip: [unclosed\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("Expected error for invalid config")
			}
		})
	}
}

// TestCreateDefaultConfigFile verifies the generated file is loadable
func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "breastimage.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}
	if _, err := LoadConfig(path); err != nil {
		t.Errorf("Failed to load generated config: %v", err)
	}
}
