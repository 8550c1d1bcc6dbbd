//go:build !linux

package replay

import (
	"fmt"

	"screenrec/internal/geometry"
)

// newPlatformSynthesizer has no backend on this platform.
func newPlatformSynthesizer(geometry.Geometry) (Synthesizer, error) {
	return nil, fmt.Errorf("%w: no synthesis backend for this platform", ErrReplayUnavailable)
}

// SynthesisAvailable reports the missing backend.
func SynthesisAvailable() (bool, string) {
	return false, "input synthesis not implemented for this platform"
}
