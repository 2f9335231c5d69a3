// Package config provides configuration loading and management for breastimage.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"breastimage/pkg/roi"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Locator parameters
	Locator struct {
		// DegeneratePolicy decides what happens when an ROI lies outside the
		// volume: allow, warn or reject
		DegeneratePolicy string `yaml:"degeneratePolicy"`
	} `yaml:"locator"`

	// Flip parameters
	Flip struct {
		// Workers is the number of slices flipped concurrently
		Workers int `yaml:"workers"`

		// ReportProgress prints the fraction of slices done while flipping
		ReportProgress bool `yaml:"reportProgress"`
	} `yaml:"flip"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// SliceFormat is the image format for exported slices: png, tiff or jpg
		SliceFormat string `yaml:"sliceFormat"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Locator.DegeneratePolicy = roi.DegenerateWarn.String()

	// Single-threaded unless asked otherwise
	cfg.Flip.Workers = 1
	cfg.Flip.ReportProgress = true

	cfg.Output.Verbose = true
	cfg.Output.SliceFormat = "png"

	return cfg
}

// Validate checks values that cannot be expressed by the YAML types alone
func (c *Config) Validate() error {
	if _, err := roi.ParseDegeneratePolicy(c.Locator.DegeneratePolicy); err != nil {
		return err
	}
	if c.Flip.Workers < 0 {
		return fmt.Errorf("flip workers must be non-negative, got %d", c.Flip.Workers)
	}
	switch strings.ToLower(c.Output.SliceFormat) {
	case "png", "tif", "tiff", "jpg", "jpeg":
	default:
		return fmt.Errorf("unsupported slice format %q", c.Output.SliceFormat)
	}
	return nil
}

// DegeneratePolicy returns the parsed locator policy
func (c *Config) DegeneratePolicy() roi.DegeneratePolicy {
	p, _ := roi.ParseDegeneratePolicy(c.Locator.DegeneratePolicy)
	return p
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
