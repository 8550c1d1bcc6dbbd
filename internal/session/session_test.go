package session

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenrec/internal/capture"
	"screenrec/internal/geometry"
	"screenrec/internal/hook"
	"screenrec/internal/recorder"
	"screenrec/internal/recording"
)

type failingSource struct{}

func (failingSource) Grab() (*image.RGBA, error) { return nil, errors.New("grab refused") }
func (failingSource) Close() error               { return nil }

type unavailableHook struct{}

func (unavailableHook) Subscribe(hook.Callbacks, hook.Options) (hook.Subscription, error) {
	return nil, hook.ErrNotAvailable
}
func (unavailableHook) Available() (bool, string) { return false, "no input devices" }

func testGeom() geometry.Geometry {
	return geometry.Geometry{Left: 0, Top: 0, Width: 640, Height: 480}
}

func newTestSession(t *testing.T, hk hook.Hook, src capture.Source, dir string) *Session {
	t.Helper()
	s, err := New(Config{
		Recorder: recorder.New(recorder.Config{Hook: hk}),
		Capture:  capture.NewLoop(capture.Config{Source: src}),
		OutDir:   dir,
		FPS:      25,
	})
	require.NoError(t, err)
	return s
}

func TestSessionProducesPairedArtifacts(t *testing.T) {
	dir := t.TempDir()
	hk := hook.NewSimulated()
	src, err := capture.NewSimulatedSource(testGeom())
	require.NoError(t, err)

	s := newTestSession(t, hk, src, dir)
	require.NoError(t, s.Start(testGeom()))

	hk.KeyPress("a")
	hk.KeyRelease("a")
	hk.MouseMove(320, 240)

	res, err := s.Stop()
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.False(t, res.Aborted)
	assert.Equal(t, 3, res.Events)

	// Paired base name: <base>.frames next to <base>.json.
	assert.Equal(t, res.BaseName+".frames", filepath.Base(res.VideoPath))
	assert.Equal(t, res.BaseName+".json", filepath.Base(res.RecordingPath))
	_, err = time.Parse(recording.BaseNameLayout, res.BaseName)
	assert.NoError(t, err, "base name follows the timestamp layout")

	rec, err := recording.Load(res.RecordingPath, nil)
	require.NoError(t, err)
	assert.Equal(t, testGeom(), rec.Meta.Screen)
	assert.Equal(t, 25, rec.Meta.FPS)
	assert.Equal(t, res.BaseName, rec.Meta.StartedAt)
	require.Len(t, rec.Events, 3)
	assert.Equal(t, 0.5, rec.Events[2].X)

	// The sink directory exists with its manifest.
	_, err = os.Stat(filepath.Join(res.VideoPath, "manifest.json"))
	assert.NoError(t, err)
}

func TestSessionFailsFastWithoutHook(t *testing.T) {
	dir := t.TempDir()
	src, err := capture.NewSimulatedSource(testGeom())
	require.NoError(t, err)

	s := newTestSession(t, unavailableHook{}, src, dir)
	err = s.Start(testGeom())
	require.ErrorIs(t, err, recorder.ErrCaptureUnavailable)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no artifacts before a successful start")
}

func TestSessionRejectsDegenerateGeometry(t *testing.T) {
	dir := t.TempDir()
	hk := hook.NewSimulated()
	src, err := capture.NewSimulatedSource(testGeom())
	require.NoError(t, err)

	s := newTestSession(t, hk, src, dir)
	err = s.Start(geometry.Geometry{Width: 0, Height: 480})
	require.ErrorIs(t, err, geometry.ErrDegenerateGeometry)
}

func TestSessionNotReusable(t *testing.T) {
	dir := t.TempDir()
	hk := hook.NewSimulated()
	src, err := capture.NewSimulatedSource(testGeom())
	require.NoError(t, err)

	s := newTestSession(t, hk, src, dir)
	require.NoError(t, s.Start(testGeom()))
	assert.Error(t, s.Start(testGeom()))

	_, err = s.Stop()
	require.NoError(t, err)
	_, err = s.Stop()
	assert.Error(t, err)
	assert.Error(t, s.Start(testGeom()))
}

func TestSessionFlushesEventsAfterCaptureAbort(t *testing.T) {
	dir := t.TempDir()
	hk := hook.NewSimulated()

	s, err := New(Config{
		Recorder: recorder.New(recorder.Config{Hook: hk}),
		Capture: capture.NewLoop(capture.Config{
			Source:                 failingSource{},
			MaxConsecutiveFailures: 1,
		}),
		OutDir: dir,
		FPS:    25,
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(testGeom()))

	hk.KeyPress("x")

	select {
	case err := <-s.Aborted():
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("capture failure never surfaced")
	}

	res, err := s.Stop()
	require.NoError(t, err)
	assert.True(t, res.Aborted)
	assert.Equal(t, 1, res.Events)

	rec, err := recording.Load(res.RecordingPath, nil)
	require.NoError(t, err)
	require.Len(t, rec.Events, 1)
	assert.Equal(t, "x", rec.Events[0].Key)
}
