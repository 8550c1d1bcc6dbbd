// Package capture grabs display frames at a fixed cadence and hands them
// to an encoder sink. The scheduling loop anchors ticks to an absolute
// advancing deadline so transient slowdowns never accumulate drift.
package capture

import (
	"errors"
	"image"
	"image/color"

	"screenrec/internal/geometry"
)

// ErrSourceUnavailable indicates no frame-grab capability on this host.
var ErrSourceUnavailable = errors.New("frame capture unavailable")

// Source is the frame-grab capability for one display region.
type Source interface {
	// Grab captures the region as RGBA pixels.
	Grab() (*image.RGBA, error)

	// Close releases the underlying device or connection.
	Close() error
}

// SourceOpener opens a frame source for a region. The platform constructor
// is NewSource; tests substitute their own.
type SourceOpener func(geom geometry.Geometry) (Source, error)

// SimulatedSource renders a synthetic gradient that changes per frame.
// Used by tests and the --simulate recording path.
type SimulatedSource struct {
	geom  geometry.Geometry
	frame int
}

// NewSimulatedSource returns a source producing synthetic frames sized to
// the region.
func NewSimulatedSource(geom geometry.Geometry) (Source, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	return &SimulatedSource{geom: geom}, nil
}

// Grab renders the next synthetic frame.
func (s *SimulatedSource) Grab() (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, s.geom.Width, s.geom.Height))
	shift := uint8(s.frame * 7)
	s.frame++
	for y := 0; y < s.geom.Height; y++ {
		for x := 0; x < s.geom.Width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x) + shift,
				G: uint8(y),
				B: shift,
				A: 0xff,
			})
		}
	}
	return img, nil
}

// Close is a no-op for the simulated source.
func (s *SimulatedSource) Close() error { return nil }
