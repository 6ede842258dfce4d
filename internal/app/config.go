// Package app provides configuration management for c64view.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/andrewimm/wasm-c64/internal/display"
)

// ErrUnsupportedConfigFormat is returned for config files that are not JSON, TOML or YAML
var ErrUnsupportedConfigFormat = errors.New("unsupported config format")

// Config holds all application configuration
type Config struct {
	Window WindowConfig `json:"window" toml:"window" yaml:"window"`
	Video  VideoConfig  `json:"video" toml:"video" yaml:"video"`
	Engine EngineConfig `json:"engine" toml:"engine" yaml:"engine"`
	ROM    ROMConfig    `json:"rom" toml:"rom" yaml:"rom"`
	Input  InputConfig  `json:"input" toml:"input" yaml:"input"`
	Debug  DebugConfig  `json:"debug" toml:"debug" yaml:"debug"`
	Script ScriptConfig `json:"script" toml:"script" yaml:"script"`

	// Internal state
	configPath string
	loaded     bool
}

// WindowConfig contains window-related configuration
type WindowConfig struct {
	Width      int  `json:"width" toml:"width" yaml:"width"`
	Height     int  `json:"height" toml:"height" yaml:"height"`
	Fullscreen bool `json:"fullscreen" toml:"fullscreen" yaml:"fullscreen"`
	Scale      int  `json:"scale" toml:"scale" yaml:"scale"` // frame multiplier
}

// VideoConfig contains presentation configuration
type VideoConfig struct {
	VSync       bool   `json:"vsync" toml:"vsync" yaml:"vsync"`
	Filter      string `json:"filter" toml:"filter" yaml:"filter"`    // always "nearest"; frames are presented pixel exact
	Backend     string `json:"backend" toml:"backend" yaml:"backend"` // "ebitengine", "headless", "terminal"
	ShowOverlay bool   `json:"show_overlay" toml:"show_overlay" yaml:"show_overlay"`
	MaxFrames   int    `json:"max_frames" toml:"max_frames" yaml:"max_frames"` // headless only, 0 = until stopped
}

// EngineConfig locates the engine module and sets frame timing
type EngineConfig struct {
	Path       string `json:"path" toml:"path" yaml:"path"`
	MaxDeltaMS int    `json:"max_delta_ms" toml:"max_delta_ms" yaml:"max_delta_ms"`
}

// ROMConfig holds the paths of the three ROM images
type ROMConfig struct {
	Character string `json:"character" toml:"character" yaml:"character"`
	Kernal    string `json:"kernal" toml:"kernal" yaml:"kernal"`
	Basic     string `json:"basic" toml:"basic" yaml:"basic"`
}

// InputConfig contains typed-text timing, in frames
type InputConfig struct {
	HoldFrames int `json:"hold_frames" toml:"hold_frames" yaml:"hold_frames"`
	GapFrames  int `json:"gap_frames" toml:"gap_frames" yaml:"gap_frames"`
}

// DebugConfig contains debugging and development options
type DebugConfig struct {
	EnableLogging bool   `json:"enable_logging" toml:"enable_logging" yaml:"enable_logging"`
	DumpFrames    bool   `json:"dump_frames" toml:"dump_frames" yaml:"dump_frames"`
	DumpDir       string `json:"dump_dir" toml:"dump_dir" yaml:"dump_dir"`
	DumpInterval  int    `json:"dump_interval" toml:"dump_interval" yaml:"dump_interval"`
	MaxDumps      int    `json:"max_dumps" toml:"max_dumps" yaml:"max_dumps"`
	DumpFormat    string `json:"dump_format" toml:"dump_format" yaml:"dump_format"` // "png", "bmp"
}

// ScriptConfig names an optional automation script
type ScriptConfig struct {
	Path string `json:"path" toml:"path" yaml:"path"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Width:      display.FrameWidth * 2,
			Height:     display.FrameHeight * 2,
			Fullscreen: false,
			Scale:      2,
		},
		Video: VideoConfig{
			VSync:       true,
			Filter:      "nearest",
			Backend:     "ebitengine",
			ShowOverlay: false,
		},
		Engine: EngineConfig{
			Path:       "./c64.wasm",
			MaxDeltaMS: 100,
		},
		ROM: ROMConfig{
			Character: "./roms/char.rom",
			Kernal:    "./roms/kernal.rom",
			Basic:     "./roms/basic.rom",
		},
		Input: InputConfig{
			HoldFrames: 2,
			GapFrames:  1,
		},
		Debug: DebugConfig{
			EnableLogging: false,
			DumpDir:       "./frames",
			DumpInterval:  1,
			MaxDumps:      10,
			DumpFormat:    "png",
		},
	}
}

// LoadFromFile loads configuration from a JSON, TOML or YAML file, chosen
// by extension. A missing file is created with the current values.
func (c *Config) LoadFromFile(path string) error {
	c.configPath = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c.SaveToFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := unmarshalConfig(path, data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c.loaded = true
	return nil
}

// SaveToFile saves configuration in the format named by the file extension
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := marshalConfig(path, c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	c.configPath = path
	return nil
}

// Save saves the configuration to the current config file
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("no config file path set")
	}

	return c.SaveToFile(c.configPath)
}

func configFormat(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json", "":
		return "json", nil
	case ".toml":
		return "toml", nil
	case ".yaml", ".yml":
		return "yaml", nil
	default:
		return "", &ConfigError{Field: "path", Value: path, Err: ErrUnsupportedConfigFormat}
	}
}

func unmarshalConfig(path string, data []byte, c *Config) error {
	format, err := configFormat(path)
	if err != nil {
		return err
	}
	switch format {
	case "toml":
		return toml.Unmarshal(data, c)
	case "yaml":
		return yaml.Unmarshal(data, c)
	default:
		return json.Unmarshal(data, c)
	}
}

func marshalConfig(path string, c *Config) ([]byte, error) {
	format, err := configFormat(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case "toml":
		return toml.Marshal(c)
	case "yaml":
		return yaml.Marshal(c)
	default:
		return json.MarshalIndent(c, "", "  ")
	}
}

// validate rejects unusable values and replaces out-of-range ones with defaults
func (c *Config) validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return &ConfigError{
			Field: "window",
			Value: fmt.Sprintf("%dx%d", c.Window.Width, c.Window.Height),
			Err:   errors.New("invalid window dimensions"),
		}
	}

	if c.Window.Scale <= 0 {
		c.Window.Scale = 1
	}

	switch c.Video.Backend {
	case "", "ebitengine", "headless", "terminal":
	default:
		return &ConfigError{Field: "video.backend", Value: c.Video.Backend, Err: errors.New("unknown backend")}
	}

	if c.Video.Filter != "nearest" {
		c.Video.Filter = "nearest"
	}

	if c.Video.MaxFrames < 0 {
		c.Video.MaxFrames = 0
	}

	if c.Engine.MaxDeltaMS <= 0 {
		c.Engine.MaxDeltaMS = 100
	}

	if c.Input.HoldFrames < 1 {
		c.Input.HoldFrames = 2
	}

	if c.Input.GapFrames < 0 {
		c.Input.GapFrames = 1
	}

	switch strings.ToLower(c.Debug.DumpFormat) {
	case "png", "bmp":
	case "":
		c.Debug.DumpFormat = "png"
	default:
		return &ConfigError{Field: "debug.dump_format", Value: c.Debug.DumpFormat, Err: errors.New("expected png or bmp")}
	}

	if c.Debug.DumpInterval <= 0 {
		c.Debug.DumpInterval = 1
	}

	if c.Debug.MaxDumps < 0 {
		c.Debug.MaxDumps = 0
	}

	return nil
}

// Validate checks the configuration after command-line overrides
func (c *Config) Validate() error {
	return c.validate()
}

// GetWindowResolution returns the window resolution based on scale
func (c *Config) GetWindowResolution() (int, int) {
	return display.FrameWidth * c.Window.Scale, display.FrameHeight * c.Window.Scale
}

// MaxDelta returns the scheduler clamp
func (c *Config) MaxDelta() time.Duration {
	return time.Duration(c.Engine.MaxDeltaMS) * time.Millisecond
}

// IsLoaded returns whether the configuration was loaded from file
func (c *Config) IsLoaded() bool {
	return c.loaded
}

// GetConfigPath returns the path to the config file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return "./config/c64view.json"
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%v': %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
