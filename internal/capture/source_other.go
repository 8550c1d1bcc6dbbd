//go:build !linux

package capture

import (
	"fmt"

	"screenrec/internal/geometry"
)

// NewSource has no backend on this platform.
func NewSource(geom geometry.Geometry) (Source, error) {
	return nil, fmt.Errorf("%w: no frame-grab backend for this platform", ErrSourceUnavailable)
}

// SourceAvailable reports the missing backend.
func SourceAvailable() (bool, string) {
	return false, "frame capture not implemented for this platform"
}
