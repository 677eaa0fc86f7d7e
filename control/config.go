// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Program configuration: defaults, YAML file loading and validation.

package control

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/momentics/hioload-omp/api"
	"gopkg.in/yaml.v3"
)

// MaxThreads bounds the team size accepted from configuration.
const MaxThreads = 4096

// Config holds parameters immutable per run.
type Config struct {
	Threads        int    `yaml:"threads"`         // Team size N
	Constructs     int    `yaml:"constructs"`      // Number of successive single constructs per region
	Pooled         bool   `yaml:"pooled"`          // Run members on persistent pooled workers
	Pin            bool   `yaml:"pin"`             // Pin member threads to CPUs
	CPUs           []int  `yaml:"cpus"`            // CPUs to pin to; empty means the allowed set
	StrictAffinity bool   `yaml:"strict_affinity"` // Pin failure aborts team creation
	LogLevel       string `yaml:"log_level"`       // debug, info, warn or error
	Metrics        bool   `yaml:"metrics"`         // Dump metrics to stderr after the run
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		Threads:    10,     // Team of ten, as the reference program uses
		Constructs: 1,      // One single construct
		LogLevel:   "warn", // Keep stderr quiet
	}
}

// LoadConfig reads a YAML file over the defaults. Keys missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("control: reading config %q: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("control: parsing config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Threads < 1 || c.Threads > MaxThreads {
		return fmt.Errorf("%w: threads=%d, want 1..%d", api.ErrInvalidTeamSize, c.Threads, MaxThreads)
	}
	if c.Constructs < 1 {
		return fmt.Errorf("%w: constructs=%d, want >= 1", api.ErrInvalidArgument, c.Constructs)
	}
	for _, cpu := range c.CPUs {
		if cpu < 0 {
			return fmt.Errorf("%w: cpu %d", api.ErrInvalidArgument, cpu)
		}
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level. The empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("%w: log level %q", api.ErrInvalidArgument, s)
	}
	return l, nil
}
