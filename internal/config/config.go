// Package config loads printcore's runtime configuration: connection
// defaults, rendering floors/ceilings, and debug capture settings,
// following cmd/airprint-bridge/main.go's ConfigFile + applyFileConfig
// two-stage pattern (file defaults overridden by command-line flags).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration, analogous to the
// teacher's daemon.Config.
type Config struct {
	PrinterAddr string
	PrinterPort int
	URIPath     string
	Scheme      string
	TimeoutMS   int

	PollInterval time.Duration

	StripHeightMin int
	StripHeightMax int

	DebugDir string

	// OptOutMakes lists additional printer makes for the custom-paper-range
	// opt-out, supplied at deploy time. Apply fills it from the config file;
	// nothing outside this package reads it, so the capability parser uses
	// only its built-in list (internal/capabilities.customRangeOptOutMakes).
	OptOutMakes []string
}

// DefaultConfig returns sensible defaults, mirroring daemon.DefaultConfig.
func DefaultConfig() Config {
	return Config{
		PrinterAddr:    "localhost",
		PrinterPort:    631,
		URIPath:        "/ipp/print",
		Scheme:         "ipp",
		TimeoutMS:      15000,
		PollInterval:   1 * time.Second,
		StripHeightMin: 1,
		StripHeightMax: 256,
		DebugDir:       "",
	}
}

// File is the YAML on-disk shape, unmarshalled separately from Config so
// zero-value fields can be told apart from "not present in the file".
type File struct {
	Printer struct {
		Addr      string `yaml:"addr"`
		Port      int    `yaml:"port"`
		URIPath   string `yaml:"uri_path"`
		Scheme    string `yaml:"scheme"`
		TimeoutMS int    `yaml:"timeout_ms"`
	} `yaml:"printer"`

	Monitor struct {
		PollInterval string `yaml:"poll_interval"`
	} `yaml:"monitor"`

	Rendering struct {
		StripHeightMin int `yaml:"strip_height_min"`
		StripHeightMax int `yaml:"strip_height_max"`
	} `yaml:"rendering"`

	Debug struct {
		Dir string `yaml:"dir"`
	} `yaml:"debug"`

	OptOut struct {
		Makes []string `yaml:"makes"`
	} `yaml:"opt_out"`
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return &f, nil
}

// Apply merges a parsed File's non-zero fields into cfg, following
// applyFileConfig's merge-if-set convention.
func Apply(cfg *Config, f *File) {
	if f.Printer.Addr != "" {
		cfg.PrinterAddr = f.Printer.Addr
	}
	if f.Printer.Port != 0 {
		cfg.PrinterPort = f.Printer.Port
	}
	if f.Printer.URIPath != "" {
		cfg.URIPath = f.Printer.URIPath
	}
	if f.Printer.Scheme != "" {
		cfg.Scheme = f.Printer.Scheme
	}
	if f.Printer.TimeoutMS != 0 {
		cfg.TimeoutMS = f.Printer.TimeoutMS
	}
	if f.Monitor.PollInterval != "" {
		if d, err := time.ParseDuration(f.Monitor.PollInterval); err == nil {
			cfg.PollInterval = d
		}
	}
	if f.Rendering.StripHeightMin != 0 {
		cfg.StripHeightMin = f.Rendering.StripHeightMin
	}
	if f.Rendering.StripHeightMax != 0 {
		cfg.StripHeightMax = f.Rendering.StripHeightMax
	}
	if f.Debug.Dir != "" {
		cfg.DebugDir = f.Debug.Dir
	}
	if len(f.OptOut.Makes) > 0 {
		cfg.OptOutMakes = append(cfg.OptOutMakes, f.OptOut.Makes...)
	}
}

// ClampStripHeight bounds a requested strip height to [StripHeightMin,
// StripHeightMax], coercing a zero request to 16
func (c Config) ClampStripHeight(requested int) int {
	if requested <= 0 {
		requested = 16
	}
	if requested < c.StripHeightMin {
		requested = c.StripHeightMin
	}
	if requested > c.StripHeightMax {
		requested = c.StripHeightMax
	}
	return requested
}
