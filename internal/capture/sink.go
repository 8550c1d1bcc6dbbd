package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
)

// ErrSinkUnavailable indicates the encoder sink could not be opened, even
// after the fallback encoding attempt.
var ErrSinkUnavailable = errors.New("encoder sink unavailable")

// Sink consumes frames already sized to the sink's dimensions.
type Sink interface {
	// WriteFrame encodes one frame. The frame must match the size the
	// sink was opened with.
	WriteFrame(img *image.RGBA) error

	// Close finalizes the artifact. Idempotent.
	Close() error
}

// SinkOpener opens an encoder sink at the given size. The default is
// OpenSink; tests substitute fakes.
type SinkOpener func(path, codec string, width, height, fps int) (Sink, error)

// Supported sink codecs. Real video encoders are external capability
// providers; the built-in sink encodes individual frames into a directory
// with a manifest so any muxer can assemble them afterwards.
const (
	CodecMJPEG = "mjpeg"
	CodecPNG   = "png"
)

// sinkManifest describes a finished frame-directory artifact.
type sinkManifest struct {
	Codec      string `json:"codec"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FPS        int    `json:"fps"`
	FrameCount int    `json:"frame_count"`
}

// OpenSink opens the built-in frame-directory sink at path (a directory
// created by the sink). Unknown codecs fail so the caller can try its
// fallback.
func OpenSink(path, codec string, width, height, fps int) (Sink, error) {
	var encode func(f *os.File, img *image.RGBA) error
	var ext string
	switch codec {
	case CodecMJPEG:
		ext = ".jpg"
		encode = func(f *os.File, img *image.RGBA) error {
			return jpeg.Encode(f, img, &jpeg.Options{Quality: 85})
		}
	case CodecPNG:
		ext = ".png"
		encode = func(f *os.File, img *image.RGBA) error {
			return png.Encode(f, img)
		}
	default:
		return nil, fmt.Errorf("unknown codec %q", codec)
	}

	if width < 1 || height < 1 {
		return nil, fmt.Errorf("invalid sink size %dx%d", width, height)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create sink directory: %w", err)
	}

	return &frameDirSink{
		dir:    path,
		ext:    ext,
		encode: encode,
		manifest: sinkManifest{
			Codec:  codec,
			Width:  width,
			Height: height,
			FPS:    fps,
		},
	}, nil
}

type frameDirSink struct {
	dir      string
	ext      string
	encode   func(*os.File, *image.RGBA) error
	manifest sinkManifest
	closed   bool
}

func (s *frameDirSink) WriteFrame(img *image.RGBA) error {
	b := img.Bounds()
	if b.Dx() != s.manifest.Width || b.Dy() != s.manifest.Height {
		return fmt.Errorf("frame size %dx%d does not match sink %dx%d",
			b.Dx(), b.Dy(), s.manifest.Width, s.manifest.Height)
	}

	name := fmt.Sprintf("frame_%06d%s", s.manifest.FrameCount+1, s.ext)
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("create frame file: %w", err)
	}
	if err := s.encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close frame file: %w", err)
	}
	s.manifest.FrameCount++
	return nil
}

func (s *frameDirSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	data, err := json.MarshalIndent(s.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, "manifest.json"), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
