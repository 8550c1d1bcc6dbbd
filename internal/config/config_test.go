package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Capture.FPS)
	assert.Equal(t, "esc", cfg.Replay.StopKey)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[record]
out_dir = "/tmp/rec"

[capture]
fps = 60
quality = "low"

[logging]
level = "debug"
format = "json"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/rec", cfg.Record.OutDir)
	assert.Equal(t, 60, cfg.Capture.FPS)
	assert.Equal(t, "low", cfg.Capture.Quality)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, 1.0, cfg.Replay.Speed)
	assert.Equal(t, 50, cfg.Record.MoveThrottleMs)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[capture]
fps = 0
`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capture.fps")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SCREENREC_OUT_DIR", "/tmp/override")
	t.Setenv("SCREENREC_FPS", "30")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override", cfg.Record.OutDir)
	assert.Equal(t, 30, cfg.Capture.FPS)
}

func TestQualityScale(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"low", 0.5},
		{"medium", 0.75},
		{"high", 1.0},
		{"", 1.0},
		{"0.6", 0.6},
		{"1", 1.0},
	}
	for _, tc := range cases {
		got, err := QualityScale(tc.in)
		require.NoError(t, err, "quality %q", tc.in)
		assert.Equal(t, tc.want, got, "quality %q", tc.in)
	}

	for _, bad := range []string{"0", "-0.5", "1.5", "ultra"} {
		_, err := QualityScale(bad)
		assert.Error(t, err, "quality %q", bad)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Capture.FPS = -1
	cfg.Replay.Speed = 0
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 3)
}
