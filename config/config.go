// Package config provides configuration loading and access for the
// simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/plume/systems"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Simulation SimulationConfig `yaml:"simulation"`
	Cache      CacheConfig      `yaml:"cache"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Viewer     ViewerConfig     `yaml:"viewer"`

	// Scene description: applied to the engine at startup and on reload.
	Emitters    []systems.EmitterConfig    `yaml:"emitters"`
	Fields      []systems.FieldConfig      `yaml:"fields"`
	SubEmitters []systems.SubEmitterConfig `yaml:"sub_emitters"`
	Bindings    []systems.Binding          `yaml:"bindings"`
	Flocking    systems.FlockingConfig     `yaml:"flocking"`
	Collision   systems.CollisionConfig    `yaml:"collision"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// SimulationConfig holds core engine parameters.
type SimulationConfig struct {
	Capacity     int     `yaml:"capacity"`
	Seed         int64   `yaml:"seed"`
	FPS          float64 `yaml:"fps"` // simulation step rate
	GridCellSize float64 `yaml:"grid_cell_size"`
}

// CacheConfig holds frame cache tuning.
type CacheConfig struct {
	Interval int `yaml:"interval"` // frames between automatic snapshots
	Capacity int `yaml:"capacity"` // max snapshots held
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow int `yaml:"stats_window"` // frames per stats window
	PerfWindow  int `yaml:"perf_window"`  // steps per perf window
}

// ViewerConfig holds interactive viewer parameters.
type ViewerConfig struct {
	PointSize      float64 `yaml:"point_size"`
	ShowGrid       bool    `yaml:"show_grid"`
	ShowHUD        bool    `yaml:"show_hud"`
	CameraDistance float64 `yaml:"camera_distance"`
	TimelineFrames int     `yaml:"timeline_frames"` // scrub range
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32    float32 // 1 / Simulation.FPS as float32
	FPS32   float32
	ScreenW int32
	ScreenH int32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults
// if path is empty. Must be called before Cfg().
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

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	if c.Simulation.FPS <= 0 {
		c.Simulation.FPS = 60
	}
	c.Derived.FPS32 = float32(c.Simulation.FPS)
	c.Derived.DT32 = 1 / c.Derived.FPS32
	c.Derived.ScreenW = int32(c.Screen.Width)
	c.Derived.ScreenH = int32(c.Screen.Height)
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
