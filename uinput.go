package main

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

const uinputPath = "/dev/uinput"

// Virtual pads carry the X360 identity so that every consumer enumerates
// them like a plain stock gamepad.
const (
	padVendor  = 0x045e
	padProduct = 0x028e
	padName    = "gamepad-slotter virtual pad"
)

// VirtualPad is a handle to one virtual gamepad registered with uinput.
// It is owned by the PadBus that created it; the slot table only keeps a
// back-reference.
type VirtualPad struct {
	file *os.File
}

// PadBus wraps the uinput device. It tracks every virtual pad it created so
// that all of them can be released at teardown, whatever the exit path.
type PadBus struct {
	probe *os.File
	pads  []*VirtualPad
}

// OpenPadBus verifies that the uinput device is present and writable. The
// probe fd is kept open for the process lifetime.
func OpenPadBus() (*PadBus, error) {
	f, err := os.OpenFile(uinputPath, os.O_WRONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBusUnavailable, err)
	}
	return &PadBus{probe: f}, nil
}

// AddPad registers a new virtual pad and returns its handle. The kernel does
// not report which player slot the pad landed in; the caller has to discover
// it by other means.
func (b *PadBus) AddPad() (*VirtualPad, error) {
	f, err := os.OpenFile(uinputPath, os.O_WRONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPadAllocation, err)
	}

	if err := setupPad(f.Fd()); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrPadAllocation, err)
	}
	if err := ioctl(f.Fd(), uiDevCreate, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: UI_DEV_CREATE: %v", ErrPadRegistration, err)
	}

	pad := &VirtualPad{file: f}
	b.pads = append(b.pads, pad)
	return pad, nil
}

// RemovePad unregisters and releases a pad previously created with AddPad.
func (b *PadBus) RemovePad(pad *VirtualPad) error {
	at := -1
	for i := range b.pads {
		if b.pads[i] == pad {
			at = i
			break
		}
	}
	if at == -1 {
		return ErrUnknownPad
	}

	b.pads = append(b.pads[:at], b.pads[at+1:]...)
	return destroyPad(pad)
}

// Close releases every still-owned pad, then the bus itself. It runs on all
// exit paths: a pad left registered would keep its slot occupied.
func (b *PadBus) Close() {
	for _, pad := range b.pads {
		if err := destroyPad(pad); err != nil {
			warn.Printf("WARNING: releasing virtual pad: %v", err)
		}
	}
	b.pads = nil
	if b.probe != nil {
		b.probe.Close()
		b.probe = nil
	}
}

func destroyPad(pad *VirtualPad) error {
	err := ioctl(pad.file.Fd(), uiDevDestroy, 0)
	if cerr := pad.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// setupPad declares the pad profile on a fresh uinput fd: X360-style button
// set and four absolute axes.
func setupPad(fd uintptr) error {
	for _, ev := range []uintptr{evKey, evAbs, evSyn} {
		if err := ioctl(fd, uiSetEvBit, ev); err != nil {
			return fmt.Errorf("UI_SET_EVBIT: %v", err)
		}
	}

	buttons := []uint16{
		btnSouth, btnEast, btnNorth, btnWest,
		btnTL, btnTR, btnTL2, btnTR2,
		btnSelect, btnStart, btnMode,
		btnThumbL, btnThumbR,
		btnDpadUp, btnDpadDown, btnDpadLeft, btnDpadRight,
	}
	for _, btn := range buttons {
		if err := ioctl(fd, uiSetKeyBit, uintptr(btn)); err != nil {
			return fmt.Errorf("UI_SET_KEYBIT: %v", err)
		}
	}

	axes := []uint16{absX, absY, absRX, absRY}
	for _, ax := range axes {
		if err := ioctl(fd, uiSetAbsBit, uintptr(ax)); err != nil {
			return fmt.Errorf("UI_SET_ABSBIT: %v", err)
		}
	}

	var usetup uinputSetup
	copy(usetup.name[:], padName)
	usetup.id.bustype = busUsb
	usetup.id.vendor = padVendor
	usetup.id.product = padProduct
	usetup.id.version = 1
	if err := ioctlSetup(fd, uiDevSetup, unsafe.Pointer(&usetup)); err != nil {
		return fmt.Errorf("UI_DEV_SETUP: %v", err)
	}

	for _, ax := range axes {
		absSetup := uinputAbsSetup{
			code: ax,
			info: inputAbsinfo{min: -32768, max: 32767, fuzz: 16, flat: 128},
		}
		if err := ioctlSetup(fd, uiAbsSetup, unsafe.Pointer(&absSetup)); err != nil {
			return fmt.Errorf("UI_ABS_SETUP: %v", err)
		}
	}

	return nil
}

// --- UInput Constants ---
const (
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetAbsBit  = 0x40045567
	uiDevSetup   = 0x405c5503
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
	uiAbsSetup   = 0x401c5504

	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	btnSouth     = 0x130
	btnEast      = 0x131
	btnNorth     = 0x133
	btnWest      = 0x134
	btnTL        = 0x136
	btnTR        = 0x137
	btnTL2       = 0x138
	btnTR2       = 0x139
	btnSelect    = 0x13a
	btnStart     = 0x13b
	btnMode      = 0x13c
	btnThumbL    = 0x13d
	btnThumbR    = 0x13e
	btnDpadUp    = 0x220
	btnDpadDown  = 0x221
	btnDpadLeft  = 0x222
	btnDpadRight = 0x223

	absX   = 0x00
	absY   = 0x01
	absRX  = 0x03
	absRY  = 0x04
	busUsb = 0x03
)

// UInput Structs
type inputId struct {
	bustype, vendor, product, version uint16
}
type inputAbsinfo struct {
	value, min, max, fuzz, flat, resolution int32
}
type uinputAbsSetup struct {
	code uint16
	_    [2]byte
	info inputAbsinfo
	_    [4]byte
}
type uinputSetup struct {
	id           inputId
	name         [80]byte
	ffEffectsMax uint32
	absinfo      [0x40]uinputAbsSetup
}

func ioctl(fd uintptr, request uintptr, arg uintptr) error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd, request, arg)
	if errno != 0 {
		return errno
	}
	return nil
}
func ioctlSetup(fd uintptr, request uintptr, arg unsafe.Pointer) error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd, request, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
