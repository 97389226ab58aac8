// Package config handles terraprint configuration loading and management.
package config

import "time"

// Pipeline constants. Each is the default for the matching config field.
const (
	// MaxFetchResolution caps samples per axis requested from the elevation source.
	MaxFetchResolution = 64
	// BatchSize is the maximum number of points per elevation request.
	BatchSize = 500
	// BatchInterval spaces batch starts to stay under the source rate limit.
	BatchInterval = 600 * time.Millisecond
	// RequestTimeout bounds a single elevation request.
	RequestTimeout = 60 * time.Second
	// FootprintMM is the square model side before horizontal scaling.
	FootprintMM = 100.0
	// VerticalScaleRatio is the full relief height as a fraction of FootprintMM.
	VerticalScaleRatio = 0.3
	// BaseThicknessMM is the default base plate thickness.
	BaseThicknessMM = 5.0
	// MaxCachedTerrains bounds the in-memory terrain cache.
	MaxCachedTerrains = 100
)

// Elevation source names.
const (
	SourceSynthetic     = "synthetic"
	SourceOpenElevation = "open-elevation"
)

// Config holds all terraprint settings.
type Config struct {
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Model       ModelConfig       `yaml:"model"`
	Cache       CacheConfig       `yaml:"cache"`
	Export      ExportConfig      `yaml:"export"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// AcquisitionConfig holds elevation source settings.
type AcquisitionConfig struct {
	Source             string        `yaml:"source"`   // synthetic or open-elevation
	Endpoint           string        `yaml:"endpoint"` // Lookup URL for open-elevation
	MaxFetchResolution int           `yaml:"max_fetch_resolution"`
	BatchSize          int           `yaml:"batch_size"`
	BatchInterval      time.Duration `yaml:"batch_interval"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
}

// ModelConfig holds physical model geometry.
type ModelConfig struct {
	FootprintMM        float64 `yaml:"footprint_mm"`
	VerticalScaleRatio float64 `yaml:"vertical_scale_ratio"`
	BaseThicknessMM    float64 `yaml:"base_thickness_mm"`
}

// VerticalScale returns the full relief height in millimeters.
func (m ModelConfig) VerticalScale() float64 {
	return m.FootprintMM * m.VerticalScaleRatio
}

// CacheConfig holds terrain cache settings.
type CacheConfig struct {
	MaxTerrains int `yaml:"max_terrains"`
}

// ExportConfig holds output settings.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Acquisition: AcquisitionConfig{
			Source:             SourceSynthetic,
			Endpoint:           "https://api.open-elevation.com/api/v1/lookup",
			MaxFetchResolution: MaxFetchResolution,
			BatchSize:          BatchSize,
			BatchInterval:      BatchInterval,
			RequestTimeout:     RequestTimeout,
		},
		Model: ModelConfig{
			FootprintMM:        FootprintMM,
			VerticalScaleRatio: VerticalScaleRatio,
			BaseThicknessMM:    BaseThicknessMM,
		},
		Cache: CacheConfig{
			MaxTerrains: MaxCachedTerrains,
		},
		Export: ExportConfig{
			OutputDir: ".",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
