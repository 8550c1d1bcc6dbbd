package geometry

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	g := Geometry{Left: 0, Top: 0, Width: 1920, Height: 1080}

	tests := []struct {
		name   string
		x, y   int
		xn, yn float64
	}{
		{"center", 960, 540, 0.5, 0.5},
		{"origin", 0, 0, 0.0, 0.0},
		{"bottom right", 1920, 1080, 1.0, 1.0},
		{"left of region clamps", -200, 540, 0.0, 0.5},
		{"below region clamps", 960, 5000, 0.5, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xn, yn := g.Normalize(tt.x, tt.y)
			if xn != tt.xn || yn != tt.yn {
				t.Errorf("Normalize(%d,%d) = (%v,%v), want (%v,%v)", tt.x, tt.y, xn, yn, tt.xn, tt.yn)
			}
		})
	}
}

func TestNormalizeOffsetMonitor(t *testing.T) {
	// Secondary monitor to the right of a 1920-wide primary.
	g := Geometry{Left: 1920, Top: 0, Width: 1280, Height: 720}

	xn, yn := g.Normalize(1920+640, 360)
	if xn != 0.5 || yn != 0.5 {
		t.Errorf("got (%v,%v), want (0.5,0.5)", xn, yn)
	}
}

func TestNormalizeDegenerate(t *testing.T) {
	g := Geometry{Width: 0, Height: 1080}
	xn, yn := g.Normalize(500, 500)
	if xn != 0 || yn != 0 {
		t.Errorf("degenerate geometry should normalize to (0,0), got (%v,%v)", xn, yn)
	}
}

func TestDenormalizeRoundTrip(t *testing.T) {
	g := Geometry{Left: 100, Top: 50, Width: 1920, Height: 1080}

	for _, p := range []struct{ x, y int }{
		{100, 50}, {1060, 590}, {2019, 1129}, {1234, 777},
	} {
		xn, yn := g.Normalize(p.x, p.y)
		x, y := g.Denormalize(xn, yn)
		if abs(x-p.x) > 1 || abs(y-p.y) > 1 {
			t.Errorf("round trip (%d,%d) -> (%v,%v) -> (%d,%d)", p.x, p.y, xn, yn, x, y)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := (Geometry{Width: 1920, Height: 1080}).Validate(); err != nil {
		t.Errorf("valid geometry rejected: %v", err)
	}
	err := (Geometry{Width: 0, Height: 1080}).Validate()
	if !errors.Is(err, ErrDegenerateGeometry) {
		t.Errorf("want ErrDegenerateGeometry, got %v", err)
	}
	err = (Geometry{Width: 1920, Height: -1}).Validate()
	if !errors.Is(err, ErrDegenerateGeometry) {
		t.Errorf("want ErrDegenerateGeometry, got %v", err)
	}
}

func TestScaled(t *testing.T) {
	g := Geometry{Width: 1920, Height: 1080}

	w, h := g.Scaled(0.5)
	if w != 960 || h != 540 {
		t.Errorf("Scaled(0.5) = %dx%d, want 960x540", w, h)
	}

	w, h = g.Scaled(0.75)
	if w != 1440 || h != 810 {
		t.Errorf("Scaled(0.75) = %dx%d, want 1440x810", w, h)
	}

	// Tiny scales never collapse below 1x1.
	w, h = (Geometry{Width: 3, Height: 3}).Scaled(0.01)
	if w != 1 || h != 1 {
		t.Errorf("Scaled floor = %dx%d, want 1x1", w, h)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
