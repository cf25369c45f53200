package ecs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Config holds the engine tunables of a World.
type Config struct {
	// ChunkCapacity is the number of rows in every chunk.
	ChunkCapacity int `toml:"chunk_capacity" yaml:"chunk_capacity"`
	// IndexSegmentSize is the size of the first entity index segment, rounded
	// up to a power of two. Later segments double.
	IndexSegmentSize int `toml:"index_segment_size" yaml:"index_segment_size"`
	// MaxDisposalDepth caps how many follow-up passes disposal callbacks may
	// trigger within one playback.
	MaxDisposalDepth int `toml:"max_disposal_depth" yaml:"max_disposal_depth"`
	// Workers is the worker count of World.Pool; 0 means GOMAXPROCS.
	Workers int `toml:"workers" yaml:"workers"`

	Logging LoggingConfig `toml:"logging" yaml:"logging"`
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // "json" or "console"
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		ChunkCapacity:    1024,
		IndexSegmentSize: 1024,
		MaxDisposalDepth: 16,
		Workers:          0,
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// LoadConfig reads a .toml or .yaml file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	switch filepath.Ext(path) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return cfg, fmt.Errorf("config %s: unsupported extension", path)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	switch {
	case c.ChunkCapacity <= 0:
		return eris.Wrapf(ErrInvalidConfig, "chunk_capacity must be positive, got %d", c.ChunkCapacity)
	case c.IndexSegmentSize <= 0:
		return eris.Wrapf(ErrInvalidConfig, "index_segment_size must be positive, got %d", c.IndexSegmentSize)
	case c.MaxDisposalDepth <= 0:
		return eris.Wrapf(ErrInvalidConfig, "max_disposal_depth must be positive, got %d", c.MaxDisposalDepth)
	case c.Workers < 0:
		return eris.Wrapf(ErrInvalidConfig, "workers must not be negative, got %d", c.Workers)
	}
	return nil
}
