// Package engine defines the contract between the presentation layer and the
// separately compiled C64 emulation engine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Region identifies a fixed-size memory region owned by the engine
type Region int

const (
	RegionCharacter Region = iota // character generator ROM, 256 glyphs x 8 rows
	RegionScreen                  // 40x25 video matrix
	RegionColor                   // color attribute RAM
	RegionKernal                  // KERNAL ROM mirror
	RegionBasic                   // BASIC ROM mirror
)

// Region sizes in bytes. These never change for the lifetime of a session.
const (
	CharacterSize = 0x1000
	ScreenSize    = 1000
	ColorSize     = 0x400
	KernalSize    = 0x2000
	BasicSize     = 0x2000
)

// ScreenRAMOffset is the offset of the default video matrix inside system RAM.
const ScreenRAMOffset = 0x400

// Regions lists every region in resolution order.
var Regions = []Region{RegionCharacter, RegionScreen, RegionColor, RegionKernal, RegionBasic}

// Size returns the exact byte length of the region
func (r Region) Size() uint32 {
	switch r {
	case RegionCharacter:
		return CharacterSize
	case RegionScreen:
		return ScreenSize
	case RegionColor:
		return ColorSize
	case RegionKernal:
		return KernalSize
	case RegionBasic:
		return BasicSize
	default:
		return 0
	}
}

func (r Region) String() string {
	switch r {
	case RegionCharacter:
		return "character"
	case RegionScreen:
		return "screen"
	case RegionColor:
		return "color"
	case RegionKernal:
		return "kernal"
	case RegionBasic:
		return "basic"
	default:
		return fmt.Sprintf("region(%d)", int(r))
	}
}

// Register identifies a CPU register readable through the engine
type Register int

const (
	RegisterA Register = iota
	RegisterX
	RegisterY
	RegisterStatus
	RegisterSP
	RegisterPC
)

// Registers lists the registers in engine index order (0..5).
var Registers = []Register{RegisterA, RegisterX, RegisterY, RegisterStatus, RegisterSP, RegisterPC}

func (r Register) String() string {
	switch r {
	case RegisterA:
		return "A"
	case RegisterX:
		return "X"
	case RegisterY:
		return "Y"
	case RegisterStatus:
		return "Status"
	case RegisterSP:
		return "SP"
	case RegisterPC:
		return "PC"
	default:
		return fmt.Sprintf("register(%d)", int(r))
	}
}

// ParseRegister resolves a register name case-insensitively. "P" is accepted
// as an alias for the status register.
func ParseRegister(name string) (Register, error) {
	for _, r := range Registers {
		if strings.EqualFold(name, r.String()) {
			return r, nil
		}
	}
	if strings.EqualFold(name, "p") {
		return RegisterStatus, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRegister, name)
}

// ErrUnknownRegister is returned by ParseRegister.
var ErrUnknownRegister = errors.New("unknown register")

// Memory is the engine's linear memory.
//
// Read returns a slice that aliases the engine's memory rather than a copy.
// The slice stays valid only while Size reports the value observed when it was
// taken; growing the memory may move the backing buffer.
type Memory interface {
	Size() uint32
	Read(offset, length uint32) ([]byte, bool)
	Write(offset uint32, data []byte) bool
}

// Session is one engine instance created by the engine's create() export.
type Session interface {
	// Reset reinitializes CPU and video state. Call once after ROM install.
	Reset(ctx context.Context) error

	// Step advances exactly one instruction.
	Step(ctx context.Context) error

	// Advance runs the engine for the given number of emulated time units (ms).
	Advance(ctx context.Context, units uint32) error

	// Register reads one CPU register.
	Register(ctx context.Context, r Register) (uint16, error)

	BorderColor(ctx context.Context) (uint8, error)
	BackgroundColor(ctx context.Context) (uint8, error)

	// RegionOffset returns the offset of a region inside Memory.
	RegionOffset(ctx context.Context, r Region) (uint32, error)

	KeyPressed(ctx context.Context, code uint8) error
	KeyReleased(ctx context.Context, code uint8) error

	Memory() Memory

	Close(ctx context.Context) error
}

// ExtendedColors is implemented by engines that expose the extra background
// color registers used by multicolor text mode.
type ExtendedColors interface {
	BackgroundColors(ctx context.Context) (bg2, bg3 uint8, err error)
}

// ModeReporter is implemented by engines that report the current text mode.
// 0 is hires, 1 is multicolor.
type ModeReporter interface {
	DisplayMode(ctx context.Context) (uint8, error)
}
