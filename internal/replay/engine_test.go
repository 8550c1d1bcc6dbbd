package replay

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenrec/internal/eventlog"
	"screenrec/internal/geometry"
	"screenrec/internal/recording"
)

// replayClock advances only when the engine sleeps, making timing
// assertions exact.
type replayClock struct {
	mu  sync.Mutex
	now time.Time
}

func newReplayClock() *replayClock {
	return &replayClock{now: time.Unix(1700000000, 0)}
}

func (c *replayClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *replayClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testRecording(events ...eventlog.Event) *recording.Recording {
	return &recording.Recording{
		Meta: recording.Meta{
			Screen:    geometry.Geometry{Left: 0, Top: 0, Width: 1920, Height: 1080},
			FPS:       25,
			StartedAt: "2026-08-30_14-22-10",
		},
		Events: events,
	}
}

func TestDryRunDescribesActions(t *testing.T) {
	rec := testRecording(
		eventlog.Event{TRel: 0, Kind: eventlog.KindKeyPress, Key: "ctrl"},
		eventlog.Event{TRel: 0, Kind: eventlog.KindMouseMove, X: 0.5, Y: 0.5},
		eventlog.Event{TRel: 0, Kind: eventlog.KindMouseClick, X: 0.5, Y: 0.5, Button: "left", Pressed: true},
		eventlog.Event{TRel: 0, Kind: eventlog.KindMouseScroll, X: 0.5, Y: 0.5, ScrollDY: -2},
	)

	clock := newReplayClock()
	engine := NewEngine(Config{Clock: clock.Now, Sleep: clock.Sleep})

	var out bytes.Buffer
	require.NoError(t, engine.Run(rec, Options{DryRun: true, DryRunOut: &out}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "[KEY press] ctrl", lines[0])
	assert.Equal(t, "[MOUSE move] (960, 540)", lines[1])
	assert.Equal(t, "[MOUSE click] left DOWN at (960, 540)", lines[2])
	assert.Equal(t, "[MOUSE scroll] dx=0 dy=-2 at (960, 540)", lines[3])
	assert.Equal(t, StateCompleted, engine.State())
}

func TestRunWithoutSynthesizer(t *testing.T) {
	engine := NewEngine(Config{})
	err := engine.Run(testRecording(), Options{})
	require.ErrorIs(t, err, ErrReplayUnavailable)
	assert.Equal(t, StateFailed, engine.State())
}

func TestSpeedScalesDispatchTimes(t *testing.T) {
	rec := testRecording(
		eventlog.Event{TRel: 10.0, Kind: eventlog.KindKeyPress, Key: "a"},
	)

	clock := newReplayClock()
	var dispatchedAt time.Time
	synth := NewSimulatedSynthesizer(func() {
		dispatchedAt = clock.Now()
	})
	engine := NewEngine(Config{Synth: synth, Clock: clock.Now, Sleep: clock.Sleep})

	start := clock.Now()
	require.NoError(t, engine.Run(rec, Options{Speed: 2.0}))

	elapsed := dispatchedAt.Sub(start)
	// t_rel=10.0 at speed 2.0 lands at 5.0s, within one polling slice.
	assert.InDelta(t, 5.0, elapsed.Seconds(), DefaultPollInterval.Seconds())
	assert.Equal(t, []string{"key_press a"}, synth.Snapshot())
}

func TestDispatchOrderAndActions(t *testing.T) {
	rec := testRecording(
		eventlog.Event{TRel: 0.00, Kind: eventlog.KindKeyPress, Key: "h"},
		eventlog.Event{TRel: 0.05, Kind: eventlog.KindKeyRelease, Key: "h"},
		eventlog.Event{TRel: 0.10, Kind: eventlog.KindMouseMove, X: 0.25, Y: 0.25},
		eventlog.Event{TRel: 0.15, Kind: eventlog.KindMouseClick, X: 0.25, Y: 0.25, Button: "right", Pressed: false},
		eventlog.Event{TRel: 0.20, Kind: eventlog.KindMouseScroll, X: 0.25, Y: 0.25, ScrollDX: 1, ScrollDY: 0},
	)

	clock := newReplayClock()
	synth := NewSimulatedSynthesizer(nil)
	engine := NewEngine(Config{Synth: synth, Clock: clock.Now, Sleep: clock.Sleep})

	require.NoError(t, engine.Run(rec, Options{}))
	assert.Equal(t, []string{
		"key_press h",
		"key_release h",
		"move (480,270)",
		"click right release (480,270)",
		"scroll (1,0)",
	}, synth.Snapshot())
	assert.Equal(t, StateCompleted, engine.State())
}

func TestCancelDuringStartDelay(t *testing.T) {
	rec := testRecording(
		eventlog.Event{TRel: 0, Kind: eventlog.KindKeyPress, Key: "a"},
	)

	clock := newReplayClock()
	tok := NewToken()
	start := clock.Now()

	synth := NewSimulatedSynthesizer(nil)
	engine := NewEngine(Config{
		Synth: synth,
		Clock: clock.Now,
		Sleep: func(d time.Duration) {
			clock.Sleep(d)
			if clock.Now().Sub(start) >= time.Second {
				tok.Cancel()
			}
		},
	})

	require.NoError(t, engine.Run(rec, Options{StartDelay: 5 * time.Second, Token: tok}))

	assert.Equal(t, StateCancelled, engine.State())
	assert.Empty(t, synth.Snapshot(), "no events may dispatch after cancellation during delay")
	// The engine noticed within one polling slice of the trigger.
	assert.LessOrEqual(t, clock.Now().Sub(start), time.Second+DefaultPollInterval)
}

func TestCancelDuringDispatch(t *testing.T) {
	rec := testRecording(
		eventlog.Event{TRel: 0.0, Kind: eventlog.KindKeyPress, Key: "a"},
		eventlog.Event{TRel: 10.0, Kind: eventlog.KindKeyPress, Key: "b"},
	)

	clock := newReplayClock()
	tok := NewToken()
	synth := NewSimulatedSynthesizer(func() {
		tok.Cancel() // cancel right after the first dispatch
	})
	engine := NewEngine(Config{Synth: synth, Clock: clock.Now, Sleep: clock.Sleep})

	require.NoError(t, engine.Run(rec, Options{Token: tok}))

	assert.Equal(t, StateCancelled, engine.State())
	assert.Equal(t, []string{"key_press a"}, synth.Snapshot())
}

func TestNonPositiveSpeedDefaultsToRealTime(t *testing.T) {
	rec := testRecording(
		eventlog.Event{TRel: 1.0, Kind: eventlog.KindKeyPress, Key: "a"},
	)

	clock := newReplayClock()
	var dispatchedAt time.Time
	synth := NewSimulatedSynthesizer(func() { dispatchedAt = clock.Now() })
	engine := NewEngine(Config{Synth: synth, Clock: clock.Now, Sleep: clock.Sleep})

	start := clock.Now()
	require.NoError(t, engine.Run(rec, Options{Speed: -3}))
	assert.InDelta(t, 1.0, dispatchedAt.Sub(start).Seconds(), DefaultPollInterval.Seconds())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "dispatching", StateDispatching.String())
	assert.Equal(t, "cancelled", StateCancelled.String())
}
