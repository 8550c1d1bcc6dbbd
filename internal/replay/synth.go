// Package replay reconstructs the timing of a recorded session and
// synthesizes equivalent input events through the host's input-synthesis
// capability, honoring a speed multiplier and cooperative cancellation.
package replay

import (
	"errors"
	"fmt"
	"sync"

	"screenrec/internal/geometry"
)

// ErrReplayUnavailable indicates no input-synthesis capability on this
// host.
var ErrReplayUnavailable = errors.New("input synthesis unavailable")

// Synthesizer is the input-synthesis capability. Coordinates are absolute
// pixels, already denormalized against the recording geometry.
type Synthesizer interface {
	// Available reports whether synthesis can work, with a reason.
	Available() (bool, string)

	KeyPress(key string) error
	KeyRelease(key string) error
	MouseMove(x, y int) error
	MouseClick(x, y int, button string, pressed bool) error
	MouseScroll(dx, dy int) error

	// Close releases the synthesis device.
	Close() error
}

// NewSynthesizer opens the platform synthesis backend. bound is the
// region pointer coordinates may travel, typically the recording's screen
// geometry.
func NewSynthesizer(bound geometry.Geometry) (Synthesizer, error) {
	return newPlatformSynthesizer(bound)
}

func formatXY(action string, x, y int) string {
	return fmt.Sprintf("%s (%d,%d)", action, x, y)
}

// SimulatedSynthesizer records dispatched actions for tests.
type SimulatedSynthesizer struct {
	mu      sync.Mutex
	Actions []string
	onEach  func()
}

// NewSimulatedSynthesizer returns an empty simulated synthesizer. onEach,
// when non-nil, runs after every recorded action.
func NewSimulatedSynthesizer(onEach func()) *SimulatedSynthesizer {
	return &SimulatedSynthesizer{onEach: onEach}
}

// Available always reports true.
func (s *SimulatedSynthesizer) Available() (bool, string) {
	return true, "simulated input synthesis"
}

func (s *SimulatedSynthesizer) record(action string) error {
	s.mu.Lock()
	s.Actions = append(s.Actions, action)
	s.mu.Unlock()
	if s.onEach != nil {
		s.onEach()
	}
	return nil
}

func (s *SimulatedSynthesizer) KeyPress(key string) error {
	return s.record("key_press " + key)
}

func (s *SimulatedSynthesizer) KeyRelease(key string) error {
	return s.record("key_release " + key)
}

func (s *SimulatedSynthesizer) MouseMove(x, y int) error {
	return s.record(formatXY("move", x, y))
}

func (s *SimulatedSynthesizer) MouseClick(x, y int, button string, pressed bool) error {
	phase := "release"
	if pressed {
		phase = "press"
	}
	return s.record(formatXY("click "+button+" "+phase, x, y))
}

func (s *SimulatedSynthesizer) MouseScroll(dx, dy int) error {
	return s.record(formatXY("scroll", dx, dy))
}

// Close is a no-op.
func (s *SimulatedSynthesizer) Close() error { return nil }

// Snapshot copies the recorded actions.
func (s *SimulatedSynthesizer) Snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Actions))
	copy(out, s.Actions)
	return out
}
