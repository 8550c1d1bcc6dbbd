// Package display enumerates attached screens. The platform backend
// asks the desktop compositor; an environment override and a static
// fallback keep enumeration working on headless hosts and in tests.
package display

import (
	"fmt"
	"os"
	"strings"

	"screenrec/internal/geometry"
)

// EnvOverride names the environment variable that short-circuits
// enumeration: a semicolon-separated list of WIDTHxHEIGHT+LEFT+TOP
// geometries, e.g. "1920x1080+0+0;1280x1024+1920+0".
const EnvOverride = "SCREENREC_DISPLAYS"

// Provider enumerates screens. Index 0 is the primary display.
type Provider interface {
	// List returns attached displays in index order.
	List() ([]geometry.Geometry, error)

	// Available reports whether enumeration can work, with a reason.
	Available() (bool, string)
}

// New returns the display provider for this host: the environment
// override when set, otherwise the platform backend, otherwise a
// single-screen static fallback.
func New() Provider {
	if v := os.Getenv(EnvOverride); v != "" {
		return envProvider{raw: v}
	}
	if p := newPlatformProvider(); p != nil {
		if ok, _ := p.Available(); ok {
			return p
		}
	}
	return NewStatic(geometry.Geometry{Left: 0, Top: 0, Width: 1920, Height: 1080})
}

// Static always reports a fixed display list.
type Static struct {
	screens []geometry.Geometry
}

// NewStatic builds a provider over a fixed list.
func NewStatic(screens ...geometry.Geometry) *Static {
	return &Static{screens: screens}
}

func (s *Static) List() ([]geometry.Geometry, error) {
	out := make([]geometry.Geometry, len(s.screens))
	copy(out, s.screens)
	return out, nil
}

func (s *Static) Available() (bool, string) {
	if len(s.screens) == 0 {
		return false, "no displays configured"
	}
	return true, fmt.Sprintf("static display list (%d screens)", len(s.screens))
}

type envProvider struct {
	raw string
}

func (p envProvider) List() ([]geometry.Geometry, error) {
	return ParseList(p.raw)
}

func (p envProvider) Available() (bool, string) {
	if _, err := ParseList(p.raw); err != nil {
		return false, err.Error()
	}
	return true, EnvOverride + " override"
}

// ParseList parses a semicolon-separated geometry list in X geometry
// syntax, WIDTHxHEIGHT+LEFT+TOP.
func ParseList(raw string) ([]geometry.Geometry, error) {
	var out []geometry.Geometry
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		g, err := Parse(part)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no geometries in %q", raw)
	}
	return out, nil
}

// Parse parses one WIDTHxHEIGHT+LEFT+TOP geometry. Offsets may be
// negative, written with a second sign, e.g. "1920x1080+-1920+0".
func Parse(s string) (geometry.Geometry, error) {
	var g geometry.Geometry
	if _, err := fmt.Sscanf(s, "%dx%d+%d+%d", &g.Width, &g.Height, &g.Left, &g.Top); err != nil {
		return geometry.Geometry{}, fmt.Errorf("malformed display geometry %q: %w", s, err)
	}
	if err := g.Validate(); err != nil {
		return geometry.Geometry{}, err
	}
	return g, nil
}
