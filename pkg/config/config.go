// Package config provides configuration loading and management for volumeviewer.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Synthesis parameters for the reference heat map
	Synthesis struct {
		// Size is the edge length of the synthesized cube
		Size int `yaml:"size"`

		// Sharpness is the exponential falloff of every source
		Sharpness float64 `yaml:"sharpness"`

		// NumCores specifies how many CPU cores to use for synthesis
		NumCores int `yaml:"numCores"`
	} `yaml:"synthesis"`

	// Volume selects a raw scan instead of the heat map
	Volume struct {
		// Path is the raw file; its sidecar is Path + ".dat". Empty means heat map mode.
		Path string `yaml:"path"`
	} `yaml:"volume"`

	// Render holds the initial shader controls
	Render struct {
		Alpha float32 `yaml:"alpha"`
		Min   float32 `yaml:"min"`
		Max   float32 `yaml:"max"`
		Steps float32 `yaml:"steps"`
		Dist  float32 `yaml:"dist"`
		Zoom  float32 `yaml:"zoom"`
		Light float32 `yaml:"light"`

		// LinearFilter samples the volume texture with linear instead of nearest filtering
		LinearFilter bool `yaml:"linearFilter"`
	} `yaml:"render"`

	// Camera describes the view volume used for visibility queries
	Camera struct {
		Far    float64 `yaml:"far"`
		Near   float64 `yaml:"near"`
		Left   float64 `yaml:"left"`
		Right  float64 `yaml:"right"`
		Top    float64 `yaml:"top"`
		Bottom float64 `yaml:"bottom"`

		// Eye is the viewer position used for the look-at view matrix
		Eye [3]float32 `yaml:"eye"`
	} `yaml:"camera"`

	// Viewer parameters for the interactive window
	Viewer struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`

		// CubeFactor is the number of cubes along each axis of the proxy mesh
		CubeFactor int `yaml:"cubeFactor"`

		// RotationScale converts dragged pixels into degrees
		RotationScale float32 `yaml:"rotationScale"`
	} `yaml:"viewer"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Synthesis.Size = 256
	cfg.Synthesis.Sharpness = 5.0
	cfg.Synthesis.NumCores = runtime.NumCPU()

	cfg.Render.Alpha = 1
	cfg.Render.Min = 0
	cfg.Render.Max = 1
	cfg.Render.Steps = 100
	cfg.Render.Dist = 100
	cfg.Render.Zoom = 1
	cfg.Render.Light = 0
	cfg.Render.LinearFilter = true

	cfg.Camera.Far = 100
	cfg.Camera.Near = 1
	cfg.Camera.Left = 1
	cfg.Camera.Right = 1
	cfg.Camera.Top = 1
	cfg.Camera.Bottom = 1
	cfg.Camera.Eye = [3]float32{0, 0, 10}

	cfg.Viewer.Width = 1024
	cfg.Viewer.Height = 768
	cfg.Viewer.CubeFactor = 1
	cfg.Viewer.RotationScale = 0.5

	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
