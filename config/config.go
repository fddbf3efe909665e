// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/lasercool/components"
	"github.com/pthm-cable/lasercool/species"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every validation failure of a loaded config.
var ErrInvalid = errors.New("config: invalid")

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Console    ConsoleConfig    `yaml:"console"`
	Atoms      AtomsConfig      `yaml:"atoms"`
	Input      InputConfig      `yaml:"input"`
	Gravity    GravityConfig    `yaml:"gravity"`
	Lasers     LasersConfig     `yaml:"lasers"`
	Output     OutputConfig     `yaml:"output"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Profile    ProfileConfig    `yaml:"profile"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds tick loop parameters.
type SimulationConfig struct {
	Timestep float64 `yaml:"timestep"` // Integration step in seconds
	Steps    int     `yaml:"steps"`    // Ticks to run
	Workers  int     `yaml:"workers"`  // Worker pool size (0 = GOMAXPROCS)
	Seed     int64   `yaml:"seed"`     // RNG seed for generated atoms
}

// ConsoleConfig holds progress logging parameters.
type ConsoleConfig struct {
	Interval uint64 `yaml:"interval"` // Steps between progress logs
}

// AtomsConfig describes the generated atom cloud.
type AtomsConfig struct {
	Species       string  `yaml:"species"`        // Transition name, see species.Names
	Mass          float64 `yaml:"mass"`           // Atomic mass units
	Count         int     `yaml:"count"`          // Atoms to generate when no input file is given
	PositionSigma float64 `yaml:"position_sigma"` // Gaussian cloud radius in metres
	VelocitySigma float64 `yaml:"velocity_sigma"` // Gaussian velocity spread in m/s
	Lifetime      float64 `yaml:"lifetime"`       // Seconds until removal (0 = forever)
}

// InputConfig points at an optional initial-state CSV.
type InputConfig struct {
	Path      string `yaml:"path"`
	HasHeader bool   `yaml:"has_header"`
}

// GravityConfig toggles the gravity plugin.
type GravityConfig struct {
	Enabled bool    `yaml:"enabled"`
	G       float64 `yaml:"g"` // m/s^2 (0 = standard gravity)
}

// LasersConfig lists the cooling beams. At most components.BeamLimit lanes.
type LasersConfig struct {
	Lanes []LaneConfig `yaml:"lanes"`
}

// LaneConfig is one cooling beam.
type LaneConfig struct {
	Rate   float64 `yaml:"rate"`   // Excitation rate in 1/s
	Active bool    `yaml:"active"` // Whether the lane is filled
}

// OutputConfig holds CSV output parameters.
type OutputConfig struct {
	Dir      string `yaml:"dir"`      // Output directory (empty = no output)
	Interval uint64 `yaml:"interval"` // Steps between trajectory rows
}

// TelemetryConfig holds statistics and performance parameters.
type TelemetryConfig struct {
	StatsInterval uint64 `yaml:"stats_interval"` // Steps between population stats
	PerfWindow    int    `yaml:"perf_window"`    // Ticks in the perf rolling window
}

// ProfileConfig selects a pprof profile for the run.
type ProfileConfig struct {
	Mode string `yaml:"mode"` // "", cpu, mem, block, mutex, trace
	Dir  string `yaml:"dir"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Transition species.Transition
	Masks      components.CoolingLaserSamplerMasks
	LaneRates  [components.BeamLimit]float64
	ActiveRate float64 // Sum of the rates of active lanes
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate re-checks the config and recomputes Derived. Call it after
// changing fields of a loaded config.
func (c *Config) Validate() error {
	return c.computeDerived()
}

// computeDerived validates the config and calculates values derived from it.
func (c *Config) computeDerived() error {
	if c.Simulation.Timestep <= 0 {
		return fmt.Errorf("%w: simulation.timestep must be positive, got %v", ErrInvalid, c.Simulation.Timestep)
	}
	if c.Atoms.Mass <= 0 {
		return fmt.Errorf("%w: atoms.mass must be positive, got %v", ErrInvalid, c.Atoms.Mass)
	}
	if len(c.Lasers.Lanes) > components.BeamLimit {
		return fmt.Errorf("%w: %d laser lanes, at most %d supported", ErrInvalid, len(c.Lasers.Lanes), components.BeamLimit)
	}

	t, err := species.Lookup(c.Atoms.Species)
	if err != nil {
		return fmt.Errorf("%w: atoms.species: %w", ErrInvalid, err)
	}
	c.Derived.Transition = t

	c.Derived.Masks = components.CoolingLaserSamplerMasks{}
	c.Derived.LaneRates = [components.BeamLimit]float64{}
	c.Derived.ActiveRate = 0
	for i, lane := range c.Lasers.Lanes {
		if lane.Rate < 0 {
			return fmt.Errorf("%w: lasers.lanes[%d].rate is negative", ErrInvalid, i)
		}
		c.Derived.LaneRates[i] = lane.Rate
		c.Derived.Masks.Contents[i].Filled = lane.Active
		if lane.Active {
			c.Derived.ActiveRate += lane.Rate
		}
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
