package model

import (
	"fmt"
	"runtime"
)

// Config holds all run parameters for the decontamination pipeline
type Config struct {
	Index       IndexConfig       `yaml:"index"`
	Match       MatchConfig       `yaml:"match"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Cache       CacheConfig       `yaml:"cache"`
	Output      OutputConfig      `yaml:"output"`

	// Trainset holds the training corpus roots (files or directories)
	Trainset []string `yaml:"trainset,omitempty"`
}

// IndexConfig describes where the suffix-array index lives
type IndexConfig struct {
	// Dir is the index directory (text.bin, table.bin, .size)
	Dir string `yaml:"dir"`
}

// MatchConfig controls match collection and contamination marking
type MatchConfig struct {
	// Size is the fixed match window width in bytes
	Size int `yaml:"size"`

	// Threshold is the coverage fraction in [0, 1] above which a
	// validation document counts as contaminated
	Threshold float64 `yaml:"threshold"`

	// Location is the matches.bin.gz path consumed by mark-contaminates
	Location string `yaml:"location,omitempty"`
}

// ConcurrencyConfig controls parallel fan-out
type ConcurrencyConfig struct {
	// Workers is the number of concurrent workers per stage
	Workers int `yaml:"workers"`
}

// CacheConfig controls the in-memory occurrence-query cache
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
}

// OutputConfig controls artifacts and reporting
type OutputConfig struct {
	// Dir is the output directory for run artifacts
	Dir string `yaml:"dir"`

	// Verbose enables phase banners and timing on stderr
	Verbose bool `yaml:"verbose"`

	// Progress enables per-stage progress bars on stderr
	Progress bool `yaml:"progress"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Match: MatchConfig{
			Size:      10,
			Threshold: 0.8,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Output: OutputConfig{
			Progress: true,
		},
	}
}

// Validate checks the run parameters. Invalid combinations are rejected
// here, before any work starts.
func (c *Config) Validate() error {
	if c.Match.Size < 1 {
		return fmt.Errorf("%w: match size must be >= 1, got %d", ErrConfig, c.Match.Size)
	}
	if c.Match.Threshold < 0 || c.Match.Threshold > 1 {
		return fmt.Errorf("%w: threshold must be in [0, 1], got %v", ErrConfig, c.Match.Threshold)
	}
	if c.Concurrency.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrConfig, c.Concurrency.Workers)
	}
	return nil
}
