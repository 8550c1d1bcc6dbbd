package capture

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out.frames")
	sink, err := OpenSink(dir, CodecMJPEG, 16, 8, 25)
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	require.NoError(t, sink.WriteFrame(img))
	require.NoError(t, sink.WriteFrame(img))
	require.NoError(t, sink.Close())
	// Close is idempotent.
	require.NoError(t, sink.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "frame_000001.jpg")
	assert.Contains(t, names, "frame_000002.jpg")
	assert.Contains(t, names, "manifest.json")

	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	var m sinkManifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, CodecMJPEG, m.Codec)
	assert.Equal(t, 16, m.Width)
	assert.Equal(t, 8, m.Height)
	assert.Equal(t, 25, m.FPS)
	assert.Equal(t, 2, m.FrameCount)
}

func TestOpenSinkRejectsUnknownCodec(t *testing.T) {
	_, err := OpenSink(t.TempDir(), "xvid", 16, 8, 25)
	require.Error(t, err)
}

func TestOpenSinkRejectsDegenerateSize(t *testing.T) {
	_, err := OpenSink(t.TempDir(), CodecPNG, 0, 8, 25)
	require.Error(t, err)
}

func TestWriteFrameSizeMismatch(t *testing.T) {
	sink, err := OpenSink(filepath.Join(t.TempDir(), "f"), CodecPNG, 16, 8, 25)
	require.NoError(t, err)
	defer sink.Close()

	err = sink.WriteFrame(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	require.Error(t, err)
}

func TestSimulatedSourceFrames(t *testing.T) {
	src, err := NewSimulatedSource(loopGeom)
	require.NoError(t, err)
	defer src.Close()

	a, err := src.Grab()
	require.NoError(t, err)
	b, err := src.Grab()
	require.NoError(t, err)

	assert.Equal(t, image.Pt(16, 8), a.Bounds().Size())
	// Consecutive frames differ so encoded output is not static.
	assert.NotEqual(t, a.Pix, b.Pix)
}
