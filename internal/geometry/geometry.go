// Package geometry describes the rectangular display region a recording
// session captures and a replay targets. Both the recorder and the replay
// engine share one Geometry: the recorder normalizes raw pointer
// coordinates against it, the replay engine reverses that mapping.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateGeometry indicates a region with a non-positive extent.
// Normalization against such a region yields (0,0) rather than dividing by
// zero, but a recording session must not start against it.
var ErrDegenerateGeometry = errors.New("degenerate geometry: non-positive width or height")

// Geometry is a captured region: origin in virtual-screen coordinates plus
// extent in pixels. Immutable once a session starts.
type Geometry struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Validate reports whether the region can back an active capture.
func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrDegenerateGeometry, g.Width, g.Height)
	}
	return nil
}

// Normalize maps an absolute pixel position into [0,1] fractions of the
// region. Positions outside the region clamp to the nearest edge. A
// degenerate region normalizes everything to (0,0).
func (g Geometry) Normalize(x, y int) (xn, yn float64) {
	if g.Width <= 0 || g.Height <= 0 {
		return 0, 0
	}
	xn = clamp01(float64(x-g.Left) / float64(g.Width))
	yn = clamp01(float64(y-g.Top) / float64(g.Height))
	return xn, yn
}

// Denormalize reverses Normalize: origin + fraction*extent, truncated to
// an integer pixel coordinate.
func (g Geometry) Denormalize(xn, yn float64) (x, y int) {
	x = g.Left + int(xn*float64(g.Width))
	y = g.Top + int(yn*float64(g.Height))
	return x, y
}

// Scaled returns the extent multiplied by scale and rounded, never smaller
// than 1x1. Used to size the encoder sink for downscaled captures.
func (g Geometry) Scaled(scale float64) (w, h int) {
	w = int(math.Round(float64(g.Width) * scale))
	h = int(math.Round(float64(g.Height) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// String formats the region the way the screens listing prints it.
func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d left=%d top=%d", g.Width, g.Height, g.Left, g.Top)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
