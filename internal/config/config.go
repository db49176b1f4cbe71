// Package config loads simulator settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting of the simulator.
type Config struct {
	City       CityConfig       `yaml:"city"`
	Simulation SimulationConfig `yaml:"simulation"`
	Storage    StorageConfig    `yaml:"storage"`
	API        APIConfig        `yaml:"api"`
	Log        LogConfig        `yaml:"log"`
}

// CityConfig sizes and seeds a fresh city.
type CityConfig struct {
	Width    int     `yaml:"width"`
	Height   int     `yaml:"height"`
	Seed     int64   `yaml:"seed"` // 0 = random
	Funds    int     `yaml:"funds"`
	Generate bool    `yaml:"generate"` // Seed a starter city instead of an empty grid
	Density  float64 `yaml:"density"`
}

// SimulationConfig controls the tick driver.
type SimulationConfig struct {
	Interval Duration `yaml:"interval"`
	Speed    float64  `yaml:"speed"`
}

// StorageConfig locates the save database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// APIConfig controls the HTTP server.
type APIConfig struct {
	Port     int    `yaml:"port"`
	AdminKey string `yaml:"admin_key"` // Empty disables POST endpoints
	Metrics  bool   `yaml:"metrics"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json, or auto
}

// Duration is a time.Duration written as "3s" in YAML.
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML writes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		City: CityConfig{
			Width:    41,
			Height:   41,
			Seed:     42,
			Funds:    50000,
			Generate: true,
			Density:  0.6,
		},
		Simulation: SimulationConfig{
			Interval: Duration(3 * time.Second),
			Speed:    1,
		},
		Storage: StorageConfig{Path: "data/cityscape.db"},
		API:     APIConfig{Port: 8080, Metrics: true},
		Log:     LogConfig{Level: "info", Format: "auto"},
	}
}

// Load reads a config file over the defaults. A missing file yields the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config YAML: %w", err)
			}
		}
	}
	if key := os.Getenv("CITYSIM_ADMIN_KEY"); key != "" {
		cfg.API.AdminKey = key
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings for values the simulator cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.City.Width <= 0 || c.City.Height <= 0 {
		errs = append(errs, fmt.Errorf("city: dimensions %dx%d must be positive", c.City.Width, c.City.Height))
	}
	if c.City.Density < 0 || c.City.Density > 1 {
		errs = append(errs, fmt.Errorf("city: density %v outside [0,1]", c.City.Density))
	}
	if c.Simulation.Interval <= 0 {
		errs = append(errs, fmt.Errorf("simulation: interval must be positive"))
	}
	if c.Simulation.Speed < 0 {
		errs = append(errs, fmt.Errorf("simulation: speed %v is negative", c.Simulation.Speed))
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api: port %d out of range", c.API.Port))
	}
	switch c.Log.Format {
	case "text", "json", "auto":
	default:
		errs = append(errs, fmt.Errorf("log: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
