//go:build linux

package capture

import (
	"fmt"
	"image"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"screenrec/internal/geometry"
)

// Framebuffer ioctls from <linux/fb.h>.
const (
	fbioGetVScreeninfo = 0x4600
	fbioGetFScreeninfo = 0x4602

	fbDevice = "/dev/fb0"
)

type fbBitfield struct {
	Offset   uint32
	Length   uint32
	MSBRight uint32
}

type fbVarScreeninfo struct {
	XRes         uint32
	YRes         uint32
	XResVirtual  uint32
	YResVirtual  uint32
	XOffset      uint32
	YOffset      uint32
	BitsPerPixel uint32
	Grayscale    uint32
	Red          fbBitfield
	Green        fbBitfield
	Blue         fbBitfield
	Transp       fbBitfield
	Nonstd       uint32
	Activate     uint32
	Height       uint32
	Width        uint32
	AccelFlags   uint32
	Pixclock     uint32
	LeftMargin   uint32
	RightMargin  uint32
	UpperMargin  uint32
	LowerMargin  uint32
	HsyncLen     uint32
	VsyncLen     uint32
	Sync         uint32
	Vmode        uint32
	Rotate       uint32
	Colorspace   uint32
	Reserved     [4]uint32
}

type fbFixScreeninfo struct {
	ID           [16]byte
	SmemStart    uint64
	SmemLen      uint32
	Type         uint32
	TypeAux      uint32
	Visual       uint32
	XPanstep     uint16
	YPanstep     uint16
	YWrapstep    uint16
	_            uint16
	LineLength   uint32
	MmioStart    uint64
	MmioLen      uint32
	Accel        uint32
	Capabilities uint16
	Reserved     [2]uint16
}

// fbSource grabs frames from the kernel framebuffer. Works on consoles
// and KMS setups that expose /dev/fb0; compositors that bypass the
// framebuffer need a dedicated capture backend instead.
type fbSource struct {
	f    *os.File
	mem  []byte
	geom geometry.Geometry
	vi   fbVarScreeninfo
	fi   fbFixScreeninfo
}

// NewSource opens the platform frame-grab backend for the region.
func NewSource(geom geometry.Geometry) (Source, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(fbDevice, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrSourceUnavailable, fbDevice, err)
	}

	src := &fbSource{f: f, geom: geom}
	if err := src.readInfo(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if src.vi.BitsPerPixel != 32 {
		f.Close()
		return nil, fmt.Errorf("%w: unsupported framebuffer depth %d bpp", ErrSourceUnavailable, src.vi.BitsPerPixel)
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, int(src.fi.SmemLen), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: mmap framebuffer: %v", ErrSourceUnavailable, err)
	}
	src.mem = mem
	return src, nil
}

// SourceAvailable probes the platform backend without opening a session.
func SourceAvailable() (bool, string) {
	if err := unix.Access(fbDevice, unix.R_OK); err != nil {
		return false, fmt.Sprintf("cannot read %s: %v", fbDevice, err)
	}
	return true, fmt.Sprintf("framebuffer device: %s", fbDevice)
}

func (s *fbSource) readInfo() error {
	if err := fbIoctl(s.f.Fd(), fbioGetVScreeninfo, unsafe.Pointer(&s.vi)); err != nil {
		return fmt.Errorf("read var screeninfo: %w", err)
	}
	if err := fbIoctl(s.f.Fd(), fbioGetFScreeninfo, unsafe.Pointer(&s.fi)); err != nil {
		return fmt.Errorf("read fix screeninfo: %w", err)
	}
	return nil
}

// Grab copies the region out of the framebuffer, converting the device
// pixel order (commonly BGRX) to RGBA via the reported channel offsets.
func (s *fbSource) Grab() (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, s.geom.Width, s.geom.Height))
	stride := int(s.fi.LineLength)
	rOff := int(s.vi.Red.Offset / 8)
	gOff := int(s.vi.Green.Offset / 8)
	bOff := int(s.vi.Blue.Offset / 8)

	for y := 0; y < s.geom.Height; y++ {
		srcRow := (s.geom.Top + y) * stride
		for x := 0; x < s.geom.Width; x++ {
			px := srcRow + (s.geom.Left+x)*4
			if px+4 > len(s.mem) {
				return nil, fmt.Errorf("region (%d,%d) outside framebuffer", s.geom.Left+x, s.geom.Top+y)
			}
			dst := img.PixOffset(x, y)
			img.Pix[dst+0] = s.mem[px+rOff]
			img.Pix[dst+1] = s.mem[px+gOff]
			img.Pix[dst+2] = s.mem[px+bOff]
			img.Pix[dst+3] = 0xff
		}
	}
	return img, nil
}

func (s *fbSource) Close() error {
	if s.mem != nil {
		_ = unix.Munmap(s.mem)
		s.mem = nil
	}
	return s.f.Close()
}

func fbIoctl(fd uintptr, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
