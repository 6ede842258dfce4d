package display

import "fmt"

// Frame geometry
const (
	FrameWidth  = 384
	FrameHeight = 272

	BorderLeft = 32
	BorderTop  = 36

	VisibleWidth  = 320
	VisibleHeight = 200

	CellSize = 8
	Columns  = VisibleWidth / CellSize  // 40
	Rows     = VisibleHeight / CellSize // 25
)

// Mode selects how glyph row bytes are decoded
type Mode uint8

const (
	// ModeHires decodes one bit per output pixel
	ModeHires Mode = iota
	// ModeMulticolor decodes one bit pair per two output pixels
	ModeMulticolor
)

func (m Mode) String() string {
	switch m {
	case ModeHires:
		return "hires"
	case ModeMulticolor:
		return "multicolor"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// State is the color and mode state sampled once per frame from the engine.
// It is passed by value; the compositor never observes a partially updated state.
type State struct {
	Border      uint8
	Background  uint8
	Background2 uint8
	Background3 uint8
	Mode        Mode
}

// NewState builds a State, keeping only the low nibble of each color register
// and treating any non-zero mode as multicolor.
func NewState(border, bg, bg2, bg3 uint8, mode uint8) State {
	s := State{
		Border:      border & 0x0F,
		Background:  bg & 0x0F,
		Background2: bg2 & 0x0F,
		Background3: bg3 & 0x0F,
		Mode:        ModeHires,
	}
	if mode != 0 {
		s.Mode = ModeMulticolor
	}
	return s
}

// Snapshot holds read-only views of the three regions the compositor reads.
// The slices may alias engine memory and are only valid for the current frame.
type Snapshot struct {
	CharacterGenerator []byte // 256 glyphs x 8 rows
	Screen             []byte // 40x25 character indices
	ColorAttributes    []byte // per-tile foreground color, 1024 slots
}

// Valid reports whether every view is at least as long as the compositor reads.
func (s Snapshot) Valid() bool {
	return len(s.CharacterGenerator) >= 256*CellSize &&
		len(s.Screen) >= Columns*Rows &&
		len(s.ColorAttributes) >= Columns*Rows
}
