// Package hook abstracts the host's global input hook facility. The
// recorder and the replay stop-key never talk to an OS mechanism directly;
// they subscribe callbacks through the Hook interface and the platform
// backend invokes them on whatever thread the host facility uses.
//
// Platform support:
//   - Linux: reads /dev/input/event* devices (requires membership in the
//     'input' group or root)
//   - other platforms: no backend yet; Available reports why
//
// A Simulated hook exists for tests and the --simulate recording path.
package hook

import "errors"

// ErrNotAvailable is returned when the host offers no usable global input
// hook backend.
var ErrNotAvailable = errors.New("global input hooks not available on this platform")

// Callbacks receive raw hook events. Nil members are skipped. Callbacks
// run on the backend's dispatch goroutine and must not block.
type Callbacks struct {
	OnKeyPress    func(key string)
	OnKeyRelease  func(key string)
	OnMouseMove   func(x, y int)
	OnMouseClick  func(x, y int, button string, pressed bool)
	OnMouseScroll func(x, y int, dx, dy int)
}

// Options tune a subscription. Bound tells backends that track pointer
// position from relative motion where the cursor may travel; a zero bound
// leaves the backend's default in place.
type Options struct {
	BoundLeft, BoundTop     int
	BoundWidth, BoundHeight int
}

// Subscription is a live hook registration.
type Subscription interface {
	// Unsubscribe detaches the callbacks and releases backend resources.
	// Safe to call more than once.
	Unsubscribe() error
}

// Hook is the global input hook capability.
type Hook interface {
	// Subscribe attaches callbacks and starts delivery. Returns
	// ErrNotAvailable when no backend is usable.
	Subscribe(cb Callbacks, opts Options) (Subscription, error)

	// Available reports whether subscribing can succeed, with a
	// human-readable reason.
	Available() (bool, string)
}

// New returns the hook backend for the current platform.
func New() Hook {
	return newPlatformHook()
}
