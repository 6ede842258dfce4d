// Package enginetest provides an in-memory engine.Session for tests.
package enginetest

import (
	"context"
	"fmt"

	"github.com/andrewimm/wasm-c64/internal/engine"
)

// Default region layout used by New. Offsets never overlap and leave
// offset 0 unused so a zero pointer is always distinguishable.
const (
	DefaultCharacterOffset = 0x1000
	DefaultRAMOffset       = 0x2000 // screen lives at RAM+0x400
	DefaultColorOffset     = 0x12000
	DefaultKernalOffset    = 0x13000
	DefaultBasicOffset     = 0x15000
	DefaultMemorySize      = 0x20000
)

// Memory is a growable byte slice that satisfies engine.Memory.
type Memory struct {
	buf []byte
}

// NewMemory allocates size zeroed bytes.
func NewMemory(size uint32) *Memory {
	return &Memory{buf: make([]byte, size)}
}

func (m *Memory) Size() uint32 { return uint32(len(m.buf)) }

func (m *Memory) Read(offset, length uint32) ([]byte, bool) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.buf)) {
		return nil, false
	}
	return m.buf[offset:end:end], true
}

func (m *Memory) Write(offset uint32, data []byte) bool {
	end := uint64(offset) + uint64(len(data))
	if end > uint64(len(m.buf)) {
		return false
	}
	copy(m.buf[offset:end], data)
	return true
}

// Grow extends the memory by n bytes into a fresh backing array, invalidating
// every view previously returned by Read.
func (m *Memory) Grow(n uint32) {
	next := make([]byte, len(m.buf)+int(n))
	copy(next, m.buf)
	m.buf = next
}

// Bytes exposes the backing buffer.
func (m *Memory) Bytes() []byte { return m.buf }

// Session records every call made to it. The zero value is not usable; use New.
type Session struct {
	Mem *Memory

	Offsets   map[engine.Region]uint32
	Registers [6]uint16

	Border      uint8
	Background  uint8
	Background2 uint8
	Background3 uint8
	Mode        uint8

	Advances []uint32
	Pressed  []uint8
	Released []uint8
	Resets   int
	Steps    int
	Closed   bool

	// AdvanceErr, when set, is returned by Advance.
	AdvanceErr error
	// OnAdvance runs inside Advance, after the call is recorded.
	OnAdvance func(units uint32)
}

// New returns a session with the default layout and the C64's
// power-on colors.
func New() *Session {
	return &Session{
		Mem: NewMemory(DefaultMemorySize),
		Offsets: map[engine.Region]uint32{
			engine.RegionCharacter: DefaultCharacterOffset,
			engine.RegionScreen:    DefaultRAMOffset + engine.ScreenRAMOffset,
			engine.RegionColor:     DefaultColorOffset,
			engine.RegionKernal:    DefaultKernalOffset,
			engine.RegionBasic:     DefaultBasicOffset,
		},
		Border:     14,
		Background: 6,
	}
}

func (s *Session) Reset(ctx context.Context) error {
	s.Resets++
	return nil
}

func (s *Session) Step(ctx context.Context) error {
	s.Steps++
	return nil
}

func (s *Session) Advance(ctx context.Context, units uint32) error {
	s.Advances = append(s.Advances, units)
	if s.OnAdvance != nil {
		s.OnAdvance(units)
	}
	return s.AdvanceErr
}

func (s *Session) Register(ctx context.Context, r engine.Register) (uint16, error) {
	if int(r) < 0 || int(r) >= len(s.Registers) {
		return 0, fmt.Errorf("%w: %d", engine.ErrUnknownRegister, int(r))
	}
	return s.Registers[r], nil
}

func (s *Session) BorderColor(ctx context.Context) (uint8, error)     { return s.Border, nil }
func (s *Session) BackgroundColor(ctx context.Context) (uint8, error) { return s.Background, nil }

func (s *Session) BackgroundColors(ctx context.Context) (uint8, uint8, error) {
	return s.Background2, s.Background3, nil
}

func (s *Session) DisplayMode(ctx context.Context) (uint8, error) { return s.Mode, nil }

func (s *Session) RegionOffset(ctx context.Context, r engine.Region) (uint32, error) {
	return s.Offsets[r], nil
}

func (s *Session) KeyPressed(ctx context.Context, code uint8) error {
	s.Pressed = append(s.Pressed, code)
	return nil
}

func (s *Session) KeyReleased(ctx context.Context, code uint8) error {
	s.Released = append(s.Released, code)
	return nil
}

func (s *Session) Memory() engine.Memory { return s.Mem }

func (s *Session) Close(ctx context.Context) error {
	s.Closed = true
	return nil
}

// Region returns the live bytes of a region.
func (s *Session) Region(r engine.Region) []byte {
	view, ok := s.Mem.Read(s.Offsets[r], r.Size())
	if !ok {
		return nil
	}
	return view
}

var (
	_ engine.Session        = (*Session)(nil)
	_ engine.ExtendedColors = (*Session)(nil)
	_ engine.ModeReporter   = (*Session)(nil)
)
