// Package recorder captures global keyboard and mouse activity into an
// event log. Each hook callback stamps the event with wall-clock and
// monotonic-relative times, normalizes pointer coordinates against the
// session geometry, and appends to the log. High-frequency mouse motion is
// sampled at a fixed minimum interval.
package recorder

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"screenrec/internal/eventlog"
	"screenrec/internal/geometry"
	"screenrec/internal/hook"
)

// ErrCaptureUnavailable indicates the host has no global input hook
// capability, so recording cannot start.
var ErrCaptureUnavailable = errors.New("input capture unavailable")

// DefaultMoveThrottle is the minimum interval between recorded mouse
// moves. Moves arriving sooner are dropped, not merged or delayed.
const DefaultMoveThrottle = 50 * time.Millisecond

// Config assembles a Recorder.
type Config struct {
	// Hook is the global input hook capability. Required.
	Hook hook.Hook

	// MoveThrottle overrides DefaultMoveThrottle when positive.
	MoveThrottle time.Duration

	// Clock overrides time.Now for tests.
	Clock func() time.Time

	// Logger receives capture diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

// Recorder owns the hook subscription and the event log for one session.
type Recorder struct {
	hk       hook.Hook
	throttle time.Duration
	clock    func() time.Time
	logger   *slog.Logger

	mu         sync.Mutex
	running    bool
	sub        hook.Subscription
	geom       geometry.Geometry
	start      time.Time
	log        *eventlog.Log
	lastMove   time.Duration
	hasMove    bool
}

// New builds a recorder around the given hook capability.
func New(cfg Config) *Recorder {
	throttle := cfg.MoveThrottle
	if throttle <= 0 {
		throttle = DefaultMoveThrottle
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		hk:       cfg.Hook,
		throttle: throttle,
		clock:    clock,
		logger:   logger,
		log:      eventlog.New(),
	}
}

// Start subscribes keyboard and mouse hooks and begins appending events.
// Fails with ErrCaptureUnavailable when no hook backend is usable and
// geometry.ErrDegenerateGeometry when the region cannot back a capture.
func (r *Recorder) Start(geom geometry.Geometry) error {
	if err := geom.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("recorder already started")
	}

	if ok, reason := r.hk.Available(); !ok {
		return fmt.Errorf("%w: %s", ErrCaptureUnavailable, reason)
	}

	// Backends begin delivery inside Subscribe, so the session state the
	// callbacks stamp against must be in place first.
	r.geom = geom
	r.start = r.clock()
	r.log = eventlog.New()
	r.hasMove = false

	sub, err := r.hk.Subscribe(hook.Callbacks{
		OnKeyPress:    r.onKeyPress,
		OnKeyRelease:  r.onKeyRelease,
		OnMouseMove:   r.onMouseMove,
		OnMouseClick:  r.onMouseClick,
		OnMouseScroll: r.onMouseScroll,
	}, hook.Options{
		BoundLeft:   geom.Left,
		BoundTop:    geom.Top,
		BoundWidth:  geom.Width,
		BoundHeight: geom.Height,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	r.sub = sub
	r.running = true
	r.logger.Info("event recorder started", "geometry", geom.String(), "move_throttle", r.throttle)
	return nil
}

// Stop unsubscribes all hooks. Idempotent: stopping a recorder that never
// started is a no-op. The recorded events stay available via Snapshot.
func (r *Recorder) Stop() {
	r.mu.Lock()
	sub := r.sub
	running := r.running
	r.sub = nil
	r.running = false
	r.mu.Unlock()

	if !running || sub == nil {
		return
	}
	if err := sub.Unsubscribe(); err != nil {
		// Reported, not retried.
		r.logger.Warn("hook unsubscribe failed", "error", err)
	}
	r.logger.Info("event recorder stopped", "events", r.log.Len())
}

// Snapshot returns a copy of all events recorded so far. Callable at any
// time, including while capture is active.
func (r *Recorder) Snapshot() []eventlog.Event {
	return r.log.Snapshot()
}

// Running reports whether hooks are currently subscribed.
func (r *Recorder) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// stamp captures the dual timestamps for an event arriving now.
func (r *Recorder) stamp() (epoch float64, tRel time.Duration) {
	now := r.clock()
	return float64(now.UnixNano()) / 1e9, now.Sub(r.start)
}

func (r *Recorder) onKeyPress(key string) {
	r.appendKey(eventlog.KindKeyPress, key)
}

func (r *Recorder) onKeyRelease(key string) {
	r.appendKey(eventlog.KindKeyRelease, key)
}

func (r *Recorder) appendKey(kind eventlog.Kind, key string) {
	epoch, tRel := r.stamp()
	r.log.Append(eventlog.Event{
		Timestamp: epoch,
		TRel:      tRel.Seconds(),
		Kind:      kind,
		Key:       key,
	})
}

func (r *Recorder) onMouseMove(x, y int) {
	epoch, tRel := r.stamp()

	// Sample moves: drop anything arriving before the throttle interval
	// has elapsed since the last recorded move.
	r.mu.Lock()
	if r.hasMove && tRel-r.lastMove < r.throttle {
		r.mu.Unlock()
		return
	}
	r.lastMove = tRel
	r.hasMove = true
	geom := r.geom
	r.mu.Unlock()

	xn, yn := geom.Normalize(x, y)
	r.log.Append(eventlog.Event{
		Timestamp: epoch,
		TRel:      tRel.Seconds(),
		Kind:      eventlog.KindMouseMove,
		X:         xn,
		Y:         yn,
	})
}

func (r *Recorder) onMouseClick(x, y int, button string, pressed bool) {
	epoch, tRel := r.stamp()
	xn, yn := r.normalize(x, y)
	r.log.Append(eventlog.Event{
		Timestamp: epoch,
		TRel:      tRel.Seconds(),
		Kind:      eventlog.KindMouseClick,
		X:         xn,
		Y:         yn,
		Button:    button,
		Pressed:   pressed,
	})
}

func (r *Recorder) onMouseScroll(x, y, dx, dy int) {
	epoch, tRel := r.stamp()
	xn, yn := r.normalize(x, y)
	r.log.Append(eventlog.Event{
		Timestamp: epoch,
		TRel:      tRel.Seconds(),
		Kind:      eventlog.KindMouseScroll,
		X:         xn,
		Y:         yn,
		ScrollDX:  dx,
		ScrollDY:  dy,
	})
}

func (r *Recorder) normalize(x, y int) (float64, float64) {
	r.mu.Lock()
	geom := r.geom
	r.mu.Unlock()
	return geom.Normalize(x, y)
}
