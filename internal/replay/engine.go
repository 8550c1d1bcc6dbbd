package replay

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"screenrec/internal/eventlog"
	"screenrec/internal/recording"
)

// State tracks one replay invocation. Terminal states are mutually
// exclusive; Cancelled is reachable only from Delaying or Dispatching.
type State int32

const (
	StateIdle State = iota
	StateDelaying
	StateDispatching
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDelaying:
		return "delaying"
	case StateDispatching:
		return "dispatching"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Token is a cooperative cancellation signal shared between the replay
// loop and whatever triggers cancellation (the stop key, a UI action).
type Token struct {
	flag atomic.Bool
}

// NewToken returns an untriggered token.
func NewToken() *Token {
	return &Token{}
}

// Cancel triggers the token. Idempotent.
func (t *Token) Cancel() {
	t.flag.Store(true)
}

// Cancelled reports whether Cancel was called.
func (t *Token) Cancelled() bool {
	return t.flag.Load()
}

// DefaultPollInterval bounds cancellation latency: all waits happen in
// slices of at most this width.
const DefaultPollInterval = 10 * time.Millisecond

// Options tune one Run invocation.
type Options struct {
	// Speed is the playback multiplier; non-positive values mean 1.0.
	Speed float64

	// DryRun describes intended actions instead of synthesizing input.
	// No synthesis capability is required for a dry run.
	DryRun bool

	// StartDelay is honored before the first event, in polling slices.
	StartDelay time.Duration

	// PollInterval overrides DefaultPollInterval when positive.
	PollInterval time.Duration

	// Token cancels the replay cooperatively. Optional.
	Token *Token

	// DryRunOut receives dry-run descriptions. Defaults to os.Stdout.
	DryRunOut io.Writer
}

// Config assembles an Engine.
type Config struct {
	// Synth is the input-synthesis capability. May be nil when only dry
	// runs are intended.
	Synth Synthesizer

	// Clock and Sleep override real time for tests.
	Clock func() time.Time
	Sleep func(time.Duration)

	// Logger receives replay diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

// Engine drives one replay invocation at a time.
type Engine struct {
	synth  Synthesizer
	clock  func() time.Time
	sleep  func(time.Duration)
	logger *slog.Logger

	state   atomic.Int32
	running atomic.Bool
}

// NewEngine builds a replay engine.
func NewEngine(cfg Config) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		synth:  cfg.Synth,
		clock:  clock,
		sleep:  sleep,
		logger: logger,
	}
}

// State reports the current replay state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// Run replays the recording: honors the start delay, then dispatches each
// event at t_rel/speed measured from a monotonic reference captured at
// loop entry. Cancellation is observed at the next polling slice and is a
// clean stop, not an error.
func (e *Engine) Run(rec *recording.Recording, opts Options) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("replay already running")
	}
	defer e.running.Store(false)

	speed := opts.Speed
	if speed <= 0 {
		speed = 1.0
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	tok := opts.Token
	if tok == nil {
		tok = NewToken()
	}
	out := opts.DryRunOut
	if out == nil {
		out = os.Stdout
	}

	if !opts.DryRun {
		if e.synth == nil {
			e.setState(StateFailed)
			return fmt.Errorf("%w: no synthesizer configured", ErrReplayUnavailable)
		}
		if ok, reason := e.synth.Available(); !ok {
			e.setState(StateFailed)
			return fmt.Errorf("%w: %s", ErrReplayUnavailable, reason)
		}
	}

	e.logger.Info("replay starting",
		"events", len(rec.Events), "speed", speed,
		"dry_run", opts.DryRun, "start_delay", opts.StartDelay)

	e.setState(StateDelaying)
	if cancelled := e.wait(opts.StartDelay, poll, tok); cancelled {
		e.setState(StateCancelled)
		e.logger.Info("replay cancelled during start delay")
		return nil
	}

	e.setState(StateDispatching)
	start := e.clock()
	dispatched := 0
	for _, ev := range rec.Events {
		target := time.Duration(ev.TRel / speed * float64(time.Second))
		if cancelled := e.waitUntil(start, target, poll, tok); cancelled {
			e.setState(StateCancelled)
			e.logger.Info("replay cancelled", "dispatched", dispatched, "remaining", len(rec.Events)-dispatched)
			return nil
		}
		if err := e.dispatch(ev, rec, opts.DryRun, out); err != nil {
			// A single synthesis failure is logged, not fatal.
			e.logger.Warn("dispatch failed", "type", string(ev.Kind), "error", err)
		}
		dispatched++
	}

	e.setState(StateCompleted)
	e.logger.Info("replay completed", "dispatched", dispatched)
	return nil
}

// wait sleeps d in polling slices, reporting early cancellation.
func (e *Engine) wait(d time.Duration, poll time.Duration, tok *Token) bool {
	if d <= 0 {
		return tok.Cancelled()
	}
	deadline := e.clock().Add(d)
	return e.waitDeadline(deadline, poll, tok)
}

// waitUntil sleeps until start+target in polling slices.
func (e *Engine) waitUntil(start time.Time, target, poll time.Duration, tok *Token) bool {
	return e.waitDeadline(start.Add(target), poll, tok)
}

func (e *Engine) waitDeadline(deadline time.Time, poll time.Duration, tok *Token) bool {
	for {
		if tok.Cancelled() {
			return true
		}
		remaining := deadline.Sub(e.clock())
		if remaining <= 0 {
			return false
		}
		slice := poll
		if remaining < slice {
			slice = remaining
		}
		e.sleep(slice)
	}
}

func (e *Engine) dispatch(ev eventlog.Event, rec *recording.Recording, dryRun bool, out io.Writer) error {
	geom := rec.Meta.Screen
	switch ev.Kind {
	case eventlog.KindKeyPress:
		if dryRun {
			fmt.Fprintf(out, "[KEY press] %s\n", ev.Key)
			return nil
		}
		return e.synth.KeyPress(ev.Key)
	case eventlog.KindKeyRelease:
		if dryRun {
			fmt.Fprintf(out, "[KEY release] %s\n", ev.Key)
			return nil
		}
		return e.synth.KeyRelease(ev.Key)
	case eventlog.KindMouseMove:
		x, y := geom.Denormalize(ev.X, ev.Y)
		if dryRun {
			fmt.Fprintf(out, "[MOUSE move] (%d, %d)\n", x, y)
			return nil
		}
		return e.synth.MouseMove(x, y)
	case eventlog.KindMouseClick:
		x, y := geom.Denormalize(ev.X, ev.Y)
		if dryRun {
			phase := "UP"
			if ev.Pressed {
				phase = "DOWN"
			}
			fmt.Fprintf(out, "[MOUSE click] %s %s at (%d, %d)\n", ev.Button, phase, x, y)
			return nil
		}
		return e.synth.MouseClick(x, y, ev.Button, ev.Pressed)
	case eventlog.KindMouseScroll:
		x, y := geom.Denormalize(ev.X, ev.Y)
		if dryRun {
			fmt.Fprintf(out, "[MOUSE scroll] dx=%d dy=%d at (%d, %d)\n", ev.ScrollDX, ev.ScrollDY, x, y)
			return nil
		}
		return e.synth.MouseScroll(ev.ScrollDX, ev.ScrollDY)
	default:
		return fmt.Errorf("unknown event type %q", ev.Kind)
	}
}
