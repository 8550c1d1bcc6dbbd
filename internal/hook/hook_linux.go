//go:build linux

package hook

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// inputEvent matches the Linux input_event struct layout.
type inputEvent struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// linuxHook reads keyboard and pointer devices under /dev/input. Pointer
// position is tracked from relative motion, seeded at the center of the
// subscription bound and clamped to it; compositors own the real cursor,
// so this is a best-effort reconstruction.
type linuxHook struct{}

func newPlatformHook() Hook {
	return &linuxHook{}
}

func (l *linuxHook) Available() (bool, string) {
	devices, err := findInputDevices()
	if err != nil {
		return false, fmt.Sprintf("cannot enumerate input devices: %v", err)
	}
	if len(devices) == 0 {
		return false, "no keyboard or pointer devices found"
	}
	for _, dev := range devices {
		if unix.Access(dev.path, unix.R_OK) == nil {
			return true, fmt.Sprintf("readable input device: %s", dev.path)
		}
	}
	return false, "cannot read input devices (join the 'input' group or run as root)"
}

func (l *linuxHook) Subscribe(cb Callbacks, opts Options) (Subscription, error) {
	devices, err := findInputDevices()
	if err != nil || len(devices) == 0 {
		return nil, ErrNotAvailable
	}

	sub := &linuxSubscription{
		cb:   cb,
		stop: make(chan struct{}),
	}
	sub.cursor.left = opts.BoundLeft
	sub.cursor.top = opts.BoundTop
	sub.cursor.width = opts.BoundWidth
	sub.cursor.height = opts.BoundHeight
	if sub.cursor.width <= 0 || sub.cursor.height <= 0 {
		sub.cursor.width = 1920
		sub.cursor.height = 1080
	}
	sub.cursor.x = sub.cursor.left + sub.cursor.width/2
	sub.cursor.y = sub.cursor.top + sub.cursor.height/2

	opened := 0
	for _, dev := range devices {
		f, err := openNonblock(dev.path)
		if err != nil {
			continue
		}
		opened++
		sub.wg.Add(1)
		go sub.readLoop(f)
	}
	if opened == 0 {
		return nil, ErrNotAvailable
	}
	return sub, nil
}

type linuxSubscription struct {
	cb   Callbacks
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once

	// cursor state reconstructed from relative motion, guarded by mu
	// because multiple device loops may feed it.
	mu     sync.Mutex
	cursor struct {
		x, y                    int
		left, top               int
		width, height           int
	}
}

func (s *linuxSubscription) Unsubscribe() error {
	s.once.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
	return nil
}

func (s *linuxSubscription) readLoop(f *os.File) {
	defer s.wg.Done()
	defer f.Close()

	eventSize := binary.Size(inputEvent{})
	buf := make([]byte, eventSize)

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		// Short deadline so the loop notices Unsubscribe promptly.
		_ = f.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
		n, err := f.Read(buf)
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			return
		}
		if n < eventSize {
			continue
		}

		var ev inputEvent
		ev.Type = binary.LittleEndian.Uint16(buf[16:18])
		ev.Code = binary.LittleEndian.Uint16(buf[18:20])
		ev.Value = int32(binary.LittleEndian.Uint32(buf[20:24]))
		s.dispatch(ev)
	}
}

func (s *linuxSubscription) dispatch(ev inputEvent) {
	switch ev.Type {
	case evKey:
		if ev.Value == keyValueRepeat {
			return
		}
		if button, ok := buttonNames[ev.Code]; ok {
			if s.cb.OnMouseClick != nil {
				x, y := s.position()
				s.cb.OnMouseClick(x, y, button, ev.Value == keyValuePress)
			}
			return
		}
		name, ok := keyNames[ev.Code]
		if !ok {
			name = fmt.Sprintf("key_%d", ev.Code)
		}
		if ev.Value == keyValuePress {
			if s.cb.OnKeyPress != nil {
				s.cb.OnKeyPress(name)
			}
		} else if s.cb.OnKeyRelease != nil {
			s.cb.OnKeyRelease(name)
		}
	case evRel:
		switch ev.Code {
		case relX, relY:
			x, y := s.moveBy(ev.Code, int(ev.Value))
			if s.cb.OnMouseMove != nil {
				s.cb.OnMouseMove(x, y)
			}
		case relWheel:
			if s.cb.OnMouseScroll != nil {
				x, y := s.position()
				s.cb.OnMouseScroll(x, y, 0, int(ev.Value))
			}
		case relHWheel:
			if s.cb.OnMouseScroll != nil {
				x, y := s.position()
				s.cb.OnMouseScroll(x, y, int(ev.Value), 0)
			}
		}
	}
}

func (s *linuxSubscription) position() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.x, s.cursor.y
}

func (s *linuxSubscription) moveBy(axis uint16, delta int) (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.cursor
	if axis == relX {
		c.x = clampInt(c.x+delta, c.left, c.left+c.width)
	} else {
		c.y = clampInt(c.y+delta, c.top, c.top+c.height)
	}
	return c.x, c.y
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// inputDevice is one handler under /dev/input.
type inputDevice struct {
	path    string
	pointer bool
}

// findInputDevices parses /proc/bus/input/devices for keyboard and pointer
// event handlers.
func findInputDevices() ([]inputDevice, error) {
	f, err := os.Open("/proc/bus/input/devices")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var devices []inputDevice
	scanner := bufio.NewScanner(f)
	var handler string
	var isKeyboard, isPointer bool

	flush := func() {
		if handler != "" && (isKeyboard || isPointer) {
			devices = append(devices, inputDevice{path: handler, pointer: isPointer})
		}
		handler = ""
		isKeyboard = false
		isPointer = false
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "H: Handlers="):
			for _, part := range strings.Fields(line) {
				if strings.HasPrefix(part, "event") {
					handler = "/dev/input/" + part
				}
				if strings.HasPrefix(part, "mouse") {
					isPointer = true
				}
			}
		case strings.HasPrefix(line, "B: KEY="):
			if len(line) > 10 {
				isKeyboard = true
			}
		case line == "":
			flush()
		}
	}
	flush()

	// Stable symlinks catch devices the /proc parse missed.
	for _, pattern := range []string{"/dev/input/by-id/*-kbd", "/dev/input/by-id/*-mouse"} {
		matches, _ := filepath.Glob(pattern)
		for _, m := range matches {
			resolved, err := filepath.EvalSymlinks(m)
			if err != nil {
				continue
			}
			seen := false
			for _, d := range devices {
				if d.path == resolved {
					seen = true
					break
				}
			}
			if !seen {
				devices = append(devices, inputDevice{path: resolved, pointer: strings.HasSuffix(m, "-mouse")})
			}
		}
	}

	return devices, scanner.Err()
}

// openNonblock opens a device pollable so read deadlines work.
func openNonblock(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
