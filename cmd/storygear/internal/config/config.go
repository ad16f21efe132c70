// Package config loads and stores the storygear CLI configuration.
//
// Configuration lives under os.UserConfigDir()/storygear/config.yaml:
//
//	~/Library/Application Support/storygear/config.yaml   (macOS)
//	~/.config/storygear/config.yaml                       (Linux)
//	%AppData%/storygear/config.yaml                       (Windows)
//
// A missing file yields the defaults; flags override loaded values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	// appDir is the directory name under os.UserConfigDir().
	appDir = "storygear"

	configFile = "config.yaml"
)

// Config is the root CLI configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Capture  CaptureConfig  `yaml:"capture"`
	Playback PlaybackConfig `yaml:"playback"`
}

// ServerConfig locates the story peer.
type ServerConfig struct {
	// URL is the websocket endpoint of the story peer.
	URL string `yaml:"url"`
}

// CaptureConfig tunes the uplink capture pipeline.
type CaptureConfig struct {
	// SampleRate is the uplink rate in Hz.
	SampleRate int `yaml:"sample_rate"`
	// BufferMS is the per-read frame size in milliseconds.
	BufferMS int `yaml:"buffer_ms"`

	EchoCancellation bool `yaml:"echo_cancellation"`
	NoiseSuppression bool `yaml:"noise_suppression"`
	AutoGainControl  bool `yaml:"auto_gain_control"`
}

// PlaybackConfig tunes the downlink rendering pipeline.
type PlaybackConfig struct {
	// SampleRate is the downlink rate in Hz.
	SampleRate int `yaml:"sample_rate"`
	// BufferMS is the device buffer size in milliseconds.
	BufferMS int `yaml:"buffer_ms"`
}

// Default returns the built-in configuration: 16 kHz capture with all
// voice processing on, 24 kHz playback, a local peer endpoint.
func Default() *Config {
	return &Config{
		Server: ServerConfig{URL: "ws://localhost:8000/ws"},
		Capture: CaptureConfig{
			SampleRate:       16000,
			BufferMS:         20,
			EchoCancellation: true,
			NoiseSuppression: true,
			AutoGainControl:  true,
		},
		Playback: PlaybackConfig{
			SampleRate: 24000,
			BufferMS:   50,
		},
	}
}

// BufferDuration returns the capture frame size as a duration.
func (c CaptureConfig) BufferDuration() time.Duration {
	return time.Duration(c.BufferMS) * time.Millisecond
}

// BufferDuration returns the playback buffer size as a duration.
func (c PlaybackConfig) BufferDuration() time.Duration {
	return time.Duration(c.BufferMS) * time.Millisecond
}

// Path returns the config file location.
func Path() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(base, appDir, configFile), nil
}

// Load reads the configuration from the default location. A missing
// file is not an error; defaults are returned.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from a specific file. Fields absent
// from the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to the default location, creating the
// directory if needed.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to a specific file.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
