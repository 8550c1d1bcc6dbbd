//go:build linux

package display

import (
	"fmt"
	"math"

	"github.com/godbus/dbus/v5"

	"screenrec/internal/geometry"
)

const (
	mutterBusName    = "org.gnome.Mutter.DisplayConfig"
	mutterObjectPath = "/org/gnome/Mutter/DisplayConfig"
	mutterMethod     = "org.gnome.Mutter.DisplayConfig.GetCurrentState"
)

func newPlatformProvider() Provider {
	return &mutterProvider{}
}

// mutterProvider asks the GNOME compositor for the current monitor
// layout over the session bus.
type mutterProvider struct{}

type monitorSpec struct {
	Connector string
	Vendor    string
	Product   string
	Serial    string
}

type monitorMode struct {
	ID             string
	Width          int32
	Height         int32
	RefreshRate    float64
	PreferredScale float64
	Scales         []float64
	Properties     map[string]dbus.Variant
}

type monitor struct {
	Spec       monitorSpec
	Modes      []monitorMode
	Properties map[string]dbus.Variant
}

type logicalMonitor struct {
	X          int32
	Y          int32
	Scale      float64
	Transform  uint32
	Primary    bool
	Monitors   []monitorSpec
	Properties map[string]dbus.Variant
}

func (p *mutterProvider) Available() (bool, string) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return false, fmt.Sprintf("session bus: %v", err)
	}
	var owner string
	if err := conn.BusObject().Call("org.freedesktop.DBus.GetNameOwner", 0, mutterBusName).Store(&owner); err != nil {
		return false, "compositor does not expose " + mutterBusName
	}
	return true, "GNOME display config on session bus"
}

func (p *mutterProvider) List() ([]geometry.Geometry, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}

	var (
		serial   uint32
		monitors []monitor
		logical  []logicalMonitor
		props    map[string]dbus.Variant
	)
	obj := conn.Object(mutterBusName, mutterObjectPath)
	if err := obj.Call(mutterMethod, 0).Store(&serial, &monitors, &logical, &props); err != nil {
		return nil, fmt.Errorf("query monitor layout: %w", err)
	}

	current := currentModes(monitors)
	var out []geometry.Geometry
	// Primary first, everything else in bus order.
	for _, pass := range []bool{true, false} {
		for _, lm := range logical {
			if lm.Primary != pass {
				continue
			}
			g, err := lm.geometry(current)
			if err != nil {
				return nil, err
			}
			out = append(out, g)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("compositor reported no logical monitors")
	}
	return out, nil
}

// currentModes maps connector names to the mode each monitor is in.
func currentModes(monitors []monitor) map[string]monitorMode {
	out := make(map[string]monitorMode, len(monitors))
	for _, m := range monitors {
		for _, mode := range m.Modes {
			v, ok := mode.Properties["is-current"]
			if !ok {
				continue
			}
			if cur, ok := v.Value().(bool); ok && cur {
				out[m.Spec.Connector] = mode
				break
			}
		}
	}
	return out
}

func (lm logicalMonitor) geometry(current map[string]monitorMode) (geometry.Geometry, error) {
	for _, spec := range lm.Monitors {
		mode, ok := current[spec.Connector]
		if !ok {
			continue
		}
		scale := lm.Scale
		if scale <= 0 {
			scale = 1.0
		}
		g := geometry.Geometry{
			Left:   int(lm.X),
			Top:    int(lm.Y),
			Width:  int(math.Round(float64(mode.Width) / scale)),
			Height: int(math.Round(float64(mode.Height) / scale)),
		}
		if err := g.Validate(); err != nil {
			return geometry.Geometry{}, err
		}
		return g, nil
	}
	return geometry.Geometry{}, fmt.Errorf("logical monitor at (%d, %d) has no active mode", lm.X, lm.Y)
}
