// SPDX-License-Identifier: MIT
// Package config loads the YAML configuration and applies environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"spectro/internal/log"
	"spectro/internal/spectrogram"
	"spectro/internal/window"
)

// Config is the application configuration.
type Config struct {
	LogLevel    string            `yaml:"log_level"` // debug, info, warn, error or fatal.
	Workers     int               `yaml:"workers"`   // Concurrent tile renders; 0 uses every CPU.
	Spectrogram SpectrogramConfig `yaml:"spectrogram"`
	Playback    PlaybackConfig    `yaml:"playback"`
	Transport   TransportConfig   `yaml:"transport"`
}

// SpectrogramConfig controls tile rendering.
type SpectrogramConfig struct {
	Window     string  `yaml:"window"`       // Window function name, e.g. "hann".
	WindowSize int     `yaml:"window_size"`  // Samples per analysis window.
	MaxDFTSize int     `yaml:"max_dft_size"` // Upper bound on the transform length.
	TileWidth  int     `yaml:"tile_width"`   // Pixels per tile, horizontally.
	TileHeight int     `yaml:"tile_height"`  // Pixels per tile, vertically.
	Depth      int     `yaml:"depth"`        // Quad-tree levels below the root to render.
	FloorDB    float64 `yaml:"floor_db"`     // Magnitude mapped to the bottom of the gradient.
	Gradient   string  `yaml:"gradient"`     // Gradient preset name.
}

// PlaybackConfig controls audio output.
type PlaybackConfig struct {
	Enabled         bool `yaml:"enabled"`
	OutputDevice    int  `yaml:"output_device"`     // PortAudio device index (-1 for default).
	FramesPerBuffer int  `yaml:"frames_per_buffer"` // Frames per PortAudio callback.
	LowLatency      bool `yaml:"low_latency"`
}

// TransportConfig controls delivery of tiles and the playhead to viewers.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddress string        `yaml:"websocket_address"` // host:port to serve /ws on.
	UDPEnabled       bool          `yaml:"udp_enabled"`       // Also send the playhead as UDP datagrams.
	UDPAddress       string        `yaml:"udp_address"`
	PositionInterval time.Duration `yaml:"position_interval"` // Playhead publish period.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Workers:  0,
		Spectrogram: SpectrogramConfig{
			Window:     window.Hann.String(),
			WindowSize: 1024,
			MaxDFTSize: spectrogram.DefaultMaxDFTSize,
			TileWidth:  256,
			TileHeight: 256,
			Depth:      2,
			FloorDB:    spectrogram.DefaultFloorDB,
			Gradient:   spectrogram.DefaultGradient,
		},
		Playback: PlaybackConfig{
			Enabled:         true,
			OutputDevice:    -1,
			FramesPerBuffer: 512,
			LowLatency:      false,
		},
		Transport: TransportConfig{
			WebSocketEnabled: true,
			WebSocketAddress: "127.0.0.1:8080",
			UDPEnabled:       false,
			UDPAddress:       "127.0.0.1:9090",
			PositionInterval: 16 * time.Millisecond, // ~60Hz.
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults. An empty path
// tries "config.yaml" in the working directory and falls back to the
// defaults when it does not exist. Environment overrides are applied last,
// then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}

	s := c.Spectrogram
	if _, err := window.Parse(s.Window); err != nil {
		errs = append(errs, fmt.Errorf("spectrogram.window: %w", err))
	}
	if s.WindowSize <= 0 {
		errs = append(errs, fmt.Errorf("spectrogram.window_size must be positive, got %d", s.WindowSize))
	}
	if s.MaxDFTSize <= 0 {
		errs = append(errs, fmt.Errorf("spectrogram.max_dft_size must be positive, got %d", s.MaxDFTSize))
	}
	if s.TileWidth <= 0 || s.TileHeight <= 0 {
		errs = append(errs, fmt.Errorf("spectrogram tile size %dx%d must be positive", s.TileWidth, s.TileHeight))
	}
	if s.Depth < 0 {
		errs = append(errs, fmt.Errorf("spectrogram.depth must not be negative, got %d", s.Depth))
	}
	if s.FloorDB >= 0 {
		errs = append(errs, fmt.Errorf("spectrogram.floor_db must be negative, got %g", s.FloorDB))
	}
	if _, err := spectrogram.Preset(s.Gradient); err != nil {
		errs = append(errs, fmt.Errorf("spectrogram.gradient: %w", err))
	}

	if c.Playback.OutputDevice < -1 {
		errs = append(errs, fmt.Errorf("playback.output_device must be -1 or a device index, got %d", c.Playback.OutputDevice))
	}
	if c.Playback.FramesPerBuffer <= 0 {
		errs = append(errs, fmt.Errorf("playback.frames_per_buffer must be positive, got %d", c.Playback.FramesPerBuffer))
	}

	t := c.Transport
	if t.WebSocketEnabled && !strings.Contains(t.WebSocketAddress, ":") {
		errs = append(errs, fmt.Errorf("transport.websocket_address %q appears invalid (missing port?)", t.WebSocketAddress))
	}
	if t.UDPEnabled && !strings.Contains(t.UDPAddress, ":") {
		errs = append(errs, fmt.Errorf("transport.udp_address %q appears invalid (missing port?)", t.UDPAddress))
	}
	if t.PositionInterval <= 0 {
		errs = append(errs, fmt.Errorf("transport.position_interval must be positive, got %v", t.PositionInterval))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides reads ENV_{...} variables. Malformed values are
// ignored with a warning.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		log.Debugf("configuration: overriding log_level from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_WORKERS"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Workers = n
			log.Debugf("configuration: overriding workers from env: %d", n)
		} else {
			log.Warnf("configuration: ignoring ENV_WORKERS=%q: %v", val, err)
		}
	}
	if val, ok := os.LookupEnv("ENV_WEBSOCKET_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
		log.Debugf("configuration: overriding transport.websocket_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_POSITION_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.PositionInterval = d
			log.Debugf("configuration: overriding transport.position_interval from env: %s", d)
		} else {
			log.Warnf("configuration: ignoring ENV_POSITION_INTERVAL=%q: %v", val, err)
		}
	}
}

// WindowFunc returns the parsed window function. Valid after Validate.
func (s SpectrogramConfig) WindowFunc() window.Func {
	w, _ := window.Parse(s.Window)
	return w
}

// Scaling returns the decibel scaling for FloorDB.
func (s SpectrogramConfig) Scaling() spectrogram.Scaling {
	return spectrogram.Decibel(s.FloorDB)
}

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() log.Level {
	if l, ok := log.ParseLevel(c.LogLevel); ok {
		return l
	}
	return log.LevelInfo
}
