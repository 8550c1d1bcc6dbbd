// Package session orchestrates one recording: the input recorder and
// the frame-capture loop start together against the same screen region
// and stop together, producing a video artifact and an event-log JSON
// that share a timestamp-derived base name.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"screenrec/internal/capture"
	"screenrec/internal/geometry"
	"screenrec/internal/recorder"
	"screenrec/internal/recording"
)

// Config assembles a Session.
type Config struct {
	// Recorder captures input events. Required.
	Recorder *recorder.Recorder

	// Capture paces frame grabs. Required.
	Capture *capture.Loop

	// OutDir receives the artifacts. Created if missing.
	OutDir string

	// FPS is the capture rate. Must be positive.
	FPS int

	// Scale shrinks captured frames; values outside (0, 1] mean 1.0.
	Scale float64

	// Clock overrides real time for tests.
	Clock func() time.Time

	// Logger receives session diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

// Result describes the artifacts of a finished session.
type Result struct {
	ID            string
	BaseName      string
	VideoPath     string
	RecordingPath string
	Events        int
	Frames        int
	Duration      time.Duration
	Aborted       bool
}

// Session is a single start/stop recording run. Not reusable.
type Session struct {
	rec    *recorder.Recorder
	cap    *capture.Loop
	outDir string
	fps    int
	scale  float64
	clock  func() time.Time
	logger *slog.Logger

	mu        sync.Mutex
	id        string
	base      string
	geom      geometry.Geometry
	startedAt time.Time
	running   bool
	stopped   bool

	abortOnce  sync.Once
	wasAborted atomic.Bool
	aborted    chan error
	closing    chan struct{}
}

// New builds a session. The recorder and capture loop are started by
// Start, not here.
func New(cfg Config) (*Session, error) {
	if cfg.Recorder == nil {
		return nil, errors.New("session requires a recorder")
	}
	if cfg.Capture == nil {
		return nil, errors.New("session requires a capture loop")
	}
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("fps must be positive, got %d", cfg.FPS)
	}
	scale := cfg.Scale
	if scale <= 0 || scale > 1 {
		scale = 1.0
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		rec:     cfg.Recorder,
		cap:     cfg.Capture,
		outDir:  cfg.OutDir,
		fps:     cfg.FPS,
		scale:   scale,
		clock:   clock,
		logger:  logger,
		aborted: make(chan error, 1),
		closing: make(chan struct{}),
	}, nil
}

// Start launches both engines against geom. It fails fast: if either
// engine cannot start, anything already started is stopped and the
// error surfaces unchanged.
func (s *Session) Start(geom geometry.Geometry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.stopped {
		return errors.New("session already used")
	}
	if err := geom.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	s.id = uuid.NewString()
	s.startedAt = s.clock()
	s.base = s.startedAt.Format(recording.BaseNameLayout)
	s.geom = geom

	if err := s.rec.Start(geom); err != nil {
		return err
	}
	if err := s.cap.Start(geom, s.fps, s.scale, s.videoPath()); err != nil {
		s.rec.Stop()
		return err
	}

	s.running = true
	go s.watchCapture()

	s.logger.Info("session started",
		"session_id", s.id, "base", s.base,
		"screen", s.geom.String(), "fps", s.fps, "scale", s.scale)
	return nil
}

// watchCapture aborts the session when the capture loop reports a fatal
// error. The recorder keeps running until Stop so events up to the
// abort are preserved.
func (s *Session) watchCapture() {
	select {
	case err := <-s.cap.Fatal():
		if err == nil {
			return
		}
		s.abortOnce.Do(func() {
			s.wasAborted.Store(true)
			s.logger.Error("capture failed, session aborting", "session_id", s.id, "error", err)
			s.aborted <- err
		})
	case <-s.closing:
	}
}

// Aborted delivers at most one fatal capture error. Callers typically
// select on it alongside their stop signal and call Stop either way.
func (s *Session) Aborted() <-chan error {
	return s.aborted
}

// Stop joins both engines and serializes the event log next to the
// video artifact. Artifacts are flushed best-effort even after an
// abort; partial output is valid output.
func (s *Session) Stop() (*Result, error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil, errors.New("session not running")
	}
	s.running = false
	s.stopped = true
	s.mu.Unlock()

	close(s.closing)
	s.cap.Stop()
	s.rec.Stop()

	aborted := s.wasAborted.Load()
	events := s.rec.Snapshot()
	rec := &recording.Recording{
		Meta: recording.Meta{
			Screen:    s.geom,
			FPS:       s.fps,
			StartedAt: s.base,
		},
		Events: events,
	}

	res := &Result{
		ID:            s.id,
		BaseName:      s.base,
		VideoPath:     s.videoPath(),
		RecordingPath: s.recordingPath(),
		Events:        len(events),
		Frames:        s.cap.FramesWritten(),
		Duration:      s.clock().Sub(s.startedAt),
		Aborted:       aborted,
	}

	if err := rec.Save(res.RecordingPath); err != nil {
		return res, fmt.Errorf("save recording: %w", err)
	}

	s.logger.Info("session stopped",
		"session_id", s.id, "events", res.Events, "frames", res.Frames,
		"duration", res.Duration.Round(time.Millisecond), "aborted", aborted)
	return res, nil
}

func (s *Session) videoPath() string {
	return filepath.Join(s.outDir, s.base+".frames")
}

func (s *Session) recordingPath() string {
	return filepath.Join(s.outDir, s.base+".json")
}
