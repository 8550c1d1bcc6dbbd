package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// QualityScale resolves a quality setting to a frame scale factor.
// Presets: low=0.5, medium=0.75, high=1.0. Anything else must parse as
// a float in (0, 1].
func QualityScale(quality string) (float64, error) {
	switch strings.ToLower(quality) {
	case "", "high":
		return 1.0, nil
	case "medium":
		return 0.75, nil
	case "low":
		return 0.5, nil
	}
	f, err := strconv.ParseFloat(quality, 64)
	if err != nil || f <= 0 || f > 1 {
		return 0, fmt.Errorf("quality must be low, medium, high, or a factor in (0, 1], got %q", quality)
	}
	return f, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Version < 0 || c.Version > Version {
		errs = append(errs, ValidationError{Field: "version", Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version)})
	}

	if c.Record.OutDir == "" {
		errs = append(errs, ValidationError{Field: "record.out_dir", Message: "must not be empty"})
	}
	if c.Record.Screen < 0 {
		errs = append(errs, ValidationError{Field: "record.screen", Message: "must not be negative"})
	}
	if c.Record.MoveThrottleMs < 0 {
		errs = append(errs, ValidationError{Field: "record.move_throttle_ms", Message: "must not be negative"})
	}

	if c.Capture.FPS <= 0 {
		errs = append(errs, ValidationError{Field: "capture.fps", Message: "must be positive"})
	}
	if _, err := QualityScale(c.Capture.Quality); err != nil {
		errs = append(errs, ValidationError{Field: "capture.quality", Message: err.Error()})
	}
	if c.Capture.MaxConsecutiveFailures <= 0 {
		errs = append(errs, ValidationError{Field: "capture.max_consecutive_failures", Message: "must be positive"})
	}

	if c.Replay.Speed <= 0 {
		errs = append(errs, ValidationError{Field: "replay.speed", Message: "must be positive"})
	}
	if c.Replay.StartDelaySec < 0 {
		errs = append(errs, ValidationError{Field: "replay.start_delay_sec", Message: "must not be negative"})
	}
	if c.Replay.PollIntervalMs <= 0 {
		errs = append(errs, ValidationError{Field: "replay.poll_interval_ms", Message: "must be positive"})
	}
	if c.Replay.StopWindowMs <= 0 {
		errs = append(errs, ValidationError{Field: "replay.stop_window_ms", Message: "must be positive"})
	}

	if c.Library.Path == "" {
		errs = append(errs, ValidationError{Field: "library.path", Message: "must not be empty"})
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)})
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
