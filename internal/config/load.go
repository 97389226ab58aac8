package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	a := c.Acquisition
	switch a.Source {
	case SourceSynthetic, SourceOpenElevation:
	default:
		return fmt.Errorf("unknown elevation source %q", a.Source)
	}
	if a.MaxFetchResolution < 2 {
		return fmt.Errorf("max_fetch_resolution must be at least 2, got %d", a.MaxFetchResolution)
	}
	if a.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive, got %d", a.BatchSize)
	}
	if a.BatchInterval < 0 {
		return fmt.Errorf("batch_interval must not be negative, got %s", a.BatchInterval)
	}
	if c.Model.FootprintMM <= 0 || c.Model.VerticalScaleRatio <= 0 {
		return fmt.Errorf("model footprint and vertical scale ratio must be positive")
	}
	if c.Cache.MaxTerrains < 1 {
		return fmt.Errorf("cache.max_terrains must be positive, got %d", c.Cache.MaxTerrains)
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./terraprint.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Terraprint")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Terraprint")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "terraprint")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "terraprint")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
