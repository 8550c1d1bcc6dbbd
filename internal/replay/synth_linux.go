//go:build linux

package replay

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"screenrec/internal/geometry"
	"screenrec/internal/hook"
)

// uinput ioctls from <linux/uinput.h>, precomputed for the 64-bit ABI.
const (
	uiSetEvBit   = 0x40045564 // _IOW('U', 100, int)
	uiSetKeyBit  = 0x40045565 // _IOW('U', 101, int)
	uiSetRelBit  = 0x40045566 // _IOW('U', 102, int)
	uiSetAbsBit  = 0x40045567 // _IOW('U', 103, int)
	uiDevSetup   = 0x405c5503 // _IOW('U', 3, struct uinput_setup)
	uiAbsSetup   = 0x401c5504 // _IOW('U', 4, struct uinput_abs_setup)
	uiDevCreate  = 0x5501     // _IO('U', 1)
	uiDevDestroy = 0x5502     // _IO('U', 2)

	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02
	evAbs = 0x03

	synReport = 0
	absX      = 0x00
	absY      = 0x01
	relWheel  = 0x08
	relHWheel = 0x06

	uinputDevice = "/dev/uinput"
)

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputSetup struct {
	ID           inputID
	Name         [80]byte
	FFEffectsMax uint32
}

type inputAbsinfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

type uinputAbsSetup struct {
	Code uint16
	_    uint16
	Info inputAbsinfo
}

// uinputSynthesizer injects events through a virtual uinput device that
// exposes the canonical key vocabulary, the three mouse buttons, wheel
// axes, and an absolute pointer spanning the configured bound.
type uinputSynthesizer struct {
	f *os.File
}

func newPlatformSynthesizer(bound geometry.Geometry) (Synthesizer, error) {
	f, err := os.OpenFile(uinputDevice, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrReplayUnavailable, uinputDevice, err)
	}

	s := &uinputSynthesizer{f: f}
	if err := s.setup(bound); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrReplayUnavailable, err)
	}
	return s, nil
}

func (s *uinputSynthesizer) setup(bound geometry.Geometry) error {
	fd := s.f.Fd()

	if err := uiIoctlInt(fd, uiSetEvBit, evKey); err != nil {
		return fmt.Errorf("enable EV_KEY: %w", err)
	}
	for _, code := range hook.AllKeyCodes() {
		if err := uiIoctlInt(fd, uiSetKeyBit, int(code)); err != nil {
			return fmt.Errorf("register keycode %d: %w", code, err)
		}
	}
	for _, button := range []string{"left", "right", "middle"} {
		code, _ := hook.ButtonCodeFor(button)
		if err := uiIoctlInt(fd, uiSetKeyBit, int(code)); err != nil {
			return fmt.Errorf("register button %s: %w", button, err)
		}
	}

	if err := uiIoctlInt(fd, uiSetEvBit, evRel); err != nil {
		return fmt.Errorf("enable EV_REL: %w", err)
	}
	for _, axis := range []int{relWheel, relHWheel} {
		if err := uiIoctlInt(fd, uiSetRelBit, axis); err != nil {
			return fmt.Errorf("register wheel axis: %w", err)
		}
	}

	if err := uiIoctlInt(fd, uiSetEvBit, evAbs); err != nil {
		return fmt.Errorf("enable EV_ABS: %w", err)
	}
	for axis, limit := range map[int]struct{ min, max int32 }{
		absX: {int32(bound.Left), int32(bound.Left + bound.Width)},
		absY: {int32(bound.Top), int32(bound.Top + bound.Height)},
	} {
		if err := uiIoctlInt(fd, uiSetAbsBit, axis); err != nil {
			return fmt.Errorf("register abs axis: %w", err)
		}
		abs := uinputAbsSetup{Code: uint16(axis)}
		abs.Info.Minimum = limit.min
		abs.Info.Maximum = limit.max
		if err := uiIoctlPtr(fd, uiAbsSetup, unsafe.Pointer(&abs)); err != nil {
			return fmt.Errorf("configure abs axis: %w", err)
		}
	}

	setup := uinputSetup{ID: inputID{Bustype: 0x03, Vendor: 0x1, Product: 0x1, Version: 1}}
	copy(setup.Name[:], "screenrec replay")
	if err := uiIoctlPtr(fd, uiDevSetup, unsafe.Pointer(&setup)); err != nil {
		return fmt.Errorf("device setup: %w", err)
	}
	if err := uiIoctlInt(fd, uiDevCreate, 0); err != nil {
		return fmt.Errorf("device create: %w", err)
	}

	// The compositor needs a moment to pick up the new device before
	// events land anywhere.
	time.Sleep(150 * time.Millisecond)
	return nil
}

// Available probes /dev/uinput writability.
func (s *uinputSynthesizer) Available() (bool, string) {
	return true, "uinput virtual device"
}

// SynthesisAvailable probes the platform backend without opening it.
func SynthesisAvailable() (bool, string) {
	if err := unix.Access(uinputDevice, unix.W_OK); err != nil {
		return false, fmt.Sprintf("cannot write %s: %v (need the 'input' group or root)", uinputDevice, err)
	}
	return true, fmt.Sprintf("uinput device: %s", uinputDevice)
}

func (s *uinputSynthesizer) KeyPress(key string) error {
	return s.key(key, 1)
}

func (s *uinputSynthesizer) KeyRelease(key string) error {
	return s.key(key, 0)
}

func (s *uinputSynthesizer) key(key string, value int32) error {
	code, ok := hook.KeyCodeFor(key)
	if !ok {
		return fmt.Errorf("no keycode for %q", key)
	}
	if err := s.emit(evKey, code, value); err != nil {
		return err
	}
	return s.sync()
}

func (s *uinputSynthesizer) MouseMove(x, y int) error {
	if err := s.emit(evAbs, absX, int32(x)); err != nil {
		return err
	}
	if err := s.emit(evAbs, absY, int32(y)); err != nil {
		return err
	}
	return s.sync()
}

func (s *uinputSynthesizer) MouseClick(_, _ int, button string, pressed bool) error {
	code, ok := hook.ButtonCodeFor(button)
	if !ok {
		return fmt.Errorf("no button code for %q", button)
	}
	value := int32(0)
	if pressed {
		value = 1
	}
	if err := s.emit(evKey, code, value); err != nil {
		return err
	}
	return s.sync()
}

func (s *uinputSynthesizer) MouseScroll(dx, dy int) error {
	if dx != 0 {
		if err := s.emit(evRel, relHWheel, int32(dx)); err != nil {
			return err
		}
	}
	if dy != 0 {
		if err := s.emit(evRel, relWheel, int32(dy)); err != nil {
			return err
		}
	}
	return s.sync()
}

func (s *uinputSynthesizer) Close() error {
	_ = uiIoctlInt(s.f.Fd(), uiDevDestroy, 0)
	return s.f.Close()
}

func (s *uinputSynthesizer) sync() error {
	return s.emit(evSyn, synReport, 0)
}

// emit writes one input_event struct (zeroed timestamp; the kernel fills
// it in).
func (s *uinputSynthesizer) emit(typ, code uint16, value int32) error {
	var buf [24]byte
	binary.LittleEndian.PutUint16(buf[16:18], typ)
	binary.LittleEndian.PutUint16(buf[18:20], code)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(value))
	if _, err := s.f.Write(buf[:]); err != nil {
		return fmt.Errorf("emit input event: %w", err)
	}
	return nil
}

func uiIoctlInt(fd uintptr, req uint, arg int) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func uiIoctlPtr(fd uintptr, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
