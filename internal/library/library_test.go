package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenrec/internal/eventlog"
	"screenrec/internal/geometry"
	"screenrec/internal/recording"
)

func writeRecording(t *testing.T, dir, base string, events ...eventlog.Event) string {
	t.Helper()
	rec := &recording.Recording{
		Meta: recording.Meta{
			Screen:    geometry.Geometry{Width: 1920, Height: 1080},
			FPS:       25,
			StartedAt: base,
		},
		Events: events,
	}
	path := filepath.Join(dir, base+".json")
	require.NoError(t, rec.Save(path))
	return path
}

func openTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := Open(filepath.Join(t.TempDir(), "library.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })
	return lib
}

func TestScanIndexesRecordings(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, dir, "2026-08-30_10-00-00",
		eventlog.Event{TRel: 0, Kind: eventlog.KindKeyPress, Key: "a"},
		eventlog.Event{TRel: 2.5, Kind: eventlog.KindKeyRelease, Key: "a"},
	)
	writeRecording(t, dir, "2026-08-30_11-00-00")

	lib := openTestLibrary(t)
	n, err := lib.Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := lib.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first.
	assert.Equal(t, "2026-08-30_11-00-00", entries[0].BaseName)

	e, err := lib.Get("2026-08-30_10-00-00")
	require.NoError(t, err)
	assert.Equal(t, 2, e.Events)
	assert.Equal(t, 2.5, e.Duration)
	assert.Equal(t, 25, e.FPS)
	assert.Len(t, e.Digest, 64)
	assert.Empty(t, e.FramesPath)
}

func TestRescanSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := writeRecording(t, dir, "2026-08-30_10-00-00")

	lib := openTestLibrary(t)
	n, err := lib.Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = lib.Scan(dir)
	require.NoError(t, err)
	assert.Zero(t, n, "unchanged digest is a no-op")

	// A changed file is picked up again.
	writeRecording(t, dir, "2026-08-30_10-00-00",
		eventlog.Event{TRel: 1, Kind: eventlog.KindKeyPress, Key: "b"})
	n, err = lib.Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	e, err := lib.Get("2026-08-30_10-00-00")
	require.NoError(t, err)
	assert.Equal(t, 1, e.Events)
	_ = path
}

func TestScanPrunesVanished(t *testing.T) {
	dir := t.TempDir()
	path := writeRecording(t, dir, "2026-08-30_10-00-00")

	lib := openTestLibrary(t)
	_, err := lib.Scan(dir)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	_, err = lib.Scan(dir)
	require.NoError(t, err)

	entries, err := lib.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestScanSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, dir, "2026-08-30_10-00-00")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{"), 0o644))

	lib := openTestLibrary(t)
	n, err := lib.Scan(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndexDetectsFramesDir(t *testing.T) {
	dir := t.TempDir()
	path := writeRecording(t, dir, "2026-08-30_10-00-00")
	framesDir := filepath.Join(dir, "2026-08-30_10-00-00.frames")
	require.NoError(t, os.Mkdir(framesDir, 0o755))

	lib := openTestLibrary(t)
	changed, err := lib.Index(path)
	require.NoError(t, err)
	assert.True(t, changed)

	e, err := lib.Get("2026-08-30_10-00-00")
	require.NoError(t, err)
	assert.Equal(t, framesDir, e.FramesPath)
}

func TestWatcherIndexesNewRecordings(t *testing.T) {
	dir := t.TempDir()
	lib := openTestLibrary(t)

	w, err := lib.Watch(dir, 50*time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	writeRecording(t, dir, "2026-08-30_12-00-00",
		eventlog.Event{TRel: 0, Kind: eventlog.KindKeyPress, Key: "a"})

	require.Eventually(t, func() bool {
		_, err := lib.Get("2026-08-30_12-00-00")
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcherForgetsRemoved(t *testing.T) {
	dir := t.TempDir()
	path := writeRecording(t, dir, "2026-08-30_12-00-00")

	lib := openTestLibrary(t)
	w, err := lib.Watch(dir, 50*time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	_, err = lib.Get("2026-08-30_12-00-00")
	require.NoError(t, err, "initial scan indexes existing files")

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		_, err := lib.Get("2026-08-30_12-00-00")
		return err != nil
	}, 5*time.Second, 20*time.Millisecond)
}
