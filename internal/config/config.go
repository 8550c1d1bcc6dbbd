// Package config handles configuration loading and validation for
// screenrec.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete recorder configuration.
type Config struct {
	// Version is the configuration schema version. Zero means current.
	Version int `toml:"version"`

	// Record configures the recording session.
	Record RecordConfig `toml:"record"`

	// Capture configures the frame-capture loop.
	Capture CaptureConfig `toml:"capture"`

	// Replay configures playback.
	Replay ReplayConfig `toml:"replay"`

	// Library configures the recording catalog.
	Library LibraryConfig `toml:"library"`

	// Logging configures diagnostics output.
	Logging LoggingConfig `toml:"logging"`
}

// RecordConfig holds recording session configuration.
type RecordConfig struct {
	// OutDir receives recording artifacts.
	OutDir string `toml:"out_dir"`

	// Screen is the display index to record.
	Screen int `toml:"screen"`

	// MoveThrottleMs is the minimum interval between recorded mouse
	// moves, in milliseconds.
	MoveThrottleMs int `toml:"move_throttle_ms"`
}

// CaptureConfig holds frame-capture configuration.
type CaptureConfig struct {
	// FPS is the capture rate.
	FPS int `toml:"fps"`

	// Quality is a preset name (low, medium, high) or a scale factor
	// in (0, 1].
	Quality string `toml:"quality"`

	// Codec is the requested sink encoding.
	Codec string `toml:"codec"`

	// MaxConsecutiveFailures aborts the session when this many frame
	// grabs fail in a row.
	MaxConsecutiveFailures int `toml:"max_consecutive_failures"`
}

// ReplayConfig holds playback configuration.
type ReplayConfig struct {
	// Speed is the default playback multiplier.
	Speed float64 `toml:"speed"`

	// StartDelaySec is honored before the first replayed event.
	StartDelaySec float64 `toml:"start_delay_sec"`

	// PollIntervalMs bounds cancellation latency during waits.
	PollIntervalMs int `toml:"poll_interval_ms"`

	// StopKey cancels a running replay when double-tapped.
	StopKey string `toml:"stop_key"`

	// StopWindowMs is how close together the two taps must land.
	StopWindowMs int `toml:"stop_window_ms"`
}

// LibraryConfig holds recording catalog configuration.
type LibraryConfig struct {
	// Path is the catalog database file.
	Path string `toml:"path"`

	// Watch keeps the catalog in sync with the output directory.
	Watch bool `toml:"watch"`
}

// LoggingConfig holds diagnostics configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format"`

	// FilePath mirrors log output to a file when set.
	FilePath string `toml:"file_path"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version: Version,
		Record: RecordConfig{
			OutDir:         filepath.Join(PlatformDataDir(), "recordings"),
			Screen:         0,
			MoveThrottleMs: 50,
		},
		Capture: CaptureConfig{
			FPS:                    25,
			Quality:                "high",
			Codec:                  "mjpeg",
			MaxConsecutiveFailures: 5,
		},
		Replay: ReplayConfig{
			Speed:          1.0,
			StartDelaySec:  0,
			PollIntervalMs: 10,
			StopKey:        "esc",
			StopWindowMs:   500,
		},
		Library: LibraryConfig{
			Path:  filepath.Join(PlatformDataDir(), "library.db"),
			Watch: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// Load reads the TOML file at path, falling back to defaults when the
// file does not exist. Environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies SCREENREC_-prefixed environment variables
// on top of the loaded values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SCREENREC_OUT_DIR"); v != "" {
		c.Record.OutDir = v
	}
	if v := os.Getenv("SCREENREC_FPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Capture.FPS = n
		}
	}
	if v := os.Getenv("SCREENREC_QUALITY"); v != "" {
		c.Capture.Quality = v
	}
	if v := os.Getenv("SCREENREC_LIBRARY_PATH"); v != "" {
		c.Library.Path = v
	}
	if v := os.Getenv("SCREENREC_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// EnsureDirectories creates the directories the recorder writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Record.OutDir,
		filepath.Dir(c.Library.Path),
	}
	if c.Logging.FilePath != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
