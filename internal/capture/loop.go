package capture

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/image/draw"

	"screenrec/internal/geometry"
)

// DefaultMaxConsecutiveFailures bounds per-frame grab/write failures
// before the loop aborts and surfaces a fatal capture error.
const DefaultMaxConsecutiveFailures = 5

// Config assembles a capture Loop.
type Config struct {
	// Source supplies frames for the session region. Required; the
	// caller opens and closes it.
	Source Source

	// OpenSink opens the encoder sink. Defaults to OpenSink.
	OpenSink SinkOpener

	// Codec is the requested sink encoding. Defaults to CodecMJPEG.
	Codec string

	// FallbackCodec is tried once when Codec fails to open. Defaults to
	// CodecPNG.
	FallbackCodec string

	// MaxConsecutiveFailures overrides DefaultMaxConsecutiveFailures
	// when positive.
	MaxConsecutiveFailures int

	// Clock and Sleep override real time for tests. Sleep must return
	// early when stop closes.
	Clock func() time.Time
	Sleep func(d time.Duration, stop <-chan struct{})

	// Logger receives per-frame diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

// Loop grabs one frame per scheduling tick and writes it to the sink,
// compensating for per-iteration drift with an absolute advancing
// deadline.
type Loop struct {
	source   Source
	openSink SinkOpener
	codec    string
	fallback string
	maxFails int
	clock    func() time.Time
	sleep    func(time.Duration, <-chan struct{})
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	sink    Sink

	frames atomic.Int64
	fatal  chan error
}

// NewLoop builds a capture loop around an open frame source.
func NewLoop(cfg Config) *Loop {
	openSink := cfg.OpenSink
	if openSink == nil {
		openSink = OpenSink
	}
	codec := cfg.Codec
	if codec == "" {
		codec = CodecMJPEG
	}
	fallback := cfg.FallbackCodec
	if fallback == "" {
		fallback = CodecPNG
	}
	maxFails := cfg.MaxConsecutiveFailures
	if maxFails <= 0 {
		maxFails = DefaultMaxConsecutiveFailures
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepInterruptible
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		source:   cfg.Source,
		openSink: openSink,
		codec:    codec,
		fallback: fallback,
		maxFails: maxFails,
		clock:    clock,
		sleep:    sleep,
		logger:   logger,
		fatal:    make(chan error, 1),
	}
}

// Start opens the sink sized to the scaled region and launches the
// scheduling goroutine. One fallback encoding is attempted before
// surfacing ErrSinkUnavailable.
func (l *Loop) Start(geom geometry.Geometry, fps int, scale float64, outPath string) error {
	if fps <= 0 {
		return fmt.Errorf("fps must be positive, got %d", fps)
	}
	if err := geom.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return errors.New("capture loop already started")
	}

	w, h := geom.Scaled(scale)
	sink, err := l.openSink(outPath, l.codec, w, h, fps)
	if err != nil {
		l.logger.Warn("sink open failed, trying fallback codec",
			"codec", l.codec, "fallback", l.fallback, "error", err)
		sink, err = l.openSink(outPath, l.fallback, w, h, fps)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
		}
	}

	l.sink = sink
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	l.frames.Store(0)
	l.running = true

	go l.run(fps, w, h)
	l.logger.Info("capture loop started", "fps", fps, "size", fmt.Sprintf("%dx%d", w, h), "out", outPath)
	return nil
}

// Stop signals the loop, waits for the in-flight frame to finish, and
// releases the sink. Idempotent.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	stop, done := l.stop, l.done
	l.mu.Unlock()

	close(stop)
	<-done

	// The sink stays reachable until the join: an in-flight tick still
	// writes its frame.
	l.mu.Lock()
	sink := l.sink
	l.sink = nil
	l.mu.Unlock()
	if err := sink.Close(); err != nil {
		l.logger.Warn("sink close failed", "error", err)
	}
	l.logger.Info("capture loop stopped", "frames", l.frames.Load())
}

// Fatal delivers at most one fatal capture error: repeated consecutive
// frame failures beyond the configured bound.
func (l *Loop) Fatal() <-chan error {
	return l.fatal
}

// FramesWritten reports frames written to the sink so far.
func (l *Loop) FramesWritten() int {
	return int(l.frames.Load())
}

func (l *Loop) run(fps, w, h int) {
	defer close(l.done)

	period := time.Second / time.Duration(fps)
	next := l.clock()
	failures := 0

	for {
		select {
		case <-l.stop:
			return
		default:
		}

		if err := l.tick(w, h); err != nil {
			failures++
			l.logger.Warn("frame capture failed", "error", err, "consecutive", failures)
			if failures >= l.maxFails {
				l.fatal <- fmt.Errorf("capture aborted after %d consecutive frame failures: %w", failures, err)
				return
			}
		} else {
			failures = 0
		}

		// Fixed cadence: the deadline advances by exactly one period
		// per iteration. A deadline already in the past means the loop
		// is behind schedule and proceeds immediately; frames are never
		// skipped to catch up.
		next = next.Add(period)
		if d := next.Sub(l.clock()); d > 0 {
			l.sleep(d, l.stop)
		}
	}
}

func (l *Loop) tick(w, h int) error {
	img, err := l.source.Grab()
	if err != nil {
		return fmt.Errorf("grab frame: %w", err)
	}

	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)
		img = scaled
	}

	if err := l.sink.WriteFrame(img); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	l.frames.Add(1)
	return nil
}

func sleepInterruptible(d time.Duration, stop <-chan struct{}) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-stop:
	}
}
