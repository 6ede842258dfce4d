package display

import (
	"image"
	"image/color"
)

// PixelIndex returns the palette index of output pixel (x, y).
// This is the reference decode; Compositor.Compose must agree with it for
// every pixel of the frame. snap must be Valid.
func PixelIndex(x, y int, state State, snap Snapshot) uint8 {
	lx := x - BorderLeft
	ly := y - BorderTop
	if lx < 0 || lx >= VisibleWidth || ly < 0 || ly >= VisibleHeight {
		return state.Border
	}

	col, row := lx/CellSize, ly/CellSize
	withinCol, withinRow := lx%CellSize, ly%CellSize
	tile := row*Columns + col

	charIndex := int(snap.Screen[tile])
	rowByte := snap.CharacterGenerator[charIndex*CellSize+withinRow]

	switch state.Mode {
	case ModeMulticolor:
		shift := 6 - 2*(withinCol/2)
		switch (rowByte >> shift) & 0x03 {
		case 0:
			return state.Background
		case 1:
			return state.Background2
		case 2:
			return state.Background3
		default:
			return snap.ColorAttributes[tile] & 0x0F
		}
	default:
		if (rowByte>>(7-withinCol))&1 == 1 {
			return snap.ColorAttributes[tile] & 0x0F
		}
		return state.Background
	}
}

// Compositor renders full frames into one reusable surface
type Compositor struct {
	palette Palette
	frame   *image.RGBA
}

// NewCompositor creates a compositor with its 384x272 output surface.
// A nil palette selects DefaultPalette.
func NewCompositor(palette *Palette) *Compositor {
	c := &Compositor{
		palette: DefaultPalette,
		frame:   image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight)),
	}
	if palette != nil {
		c.palette = *palette
	}
	return c
}

// Frame returns the output surface. Its contents change on every Compose.
func (c *Compositor) Frame() *image.RGBA {
	return c.frame
}

// Palette returns the palette in use
func (c *Compositor) Palette() Palette {
	return c.palette
}

// Compose redraws the whole frame in place and returns the surface.
// An invalid snapshot renders as border only.
func (c *Compositor) Compose(state State, snap Snapshot) *image.RGBA {
	border := c.palette.Color(state.Border)
	if !snap.Valid() {
		for y := 0; y < FrameHeight; y++ {
			c.fill(y, 0, FrameWidth, border)
		}
		return c.frame
	}

	for y := 0; y < FrameHeight; y++ {
		ly := y - BorderTop
		if ly < 0 || ly >= VisibleHeight {
			c.fill(y, 0, FrameWidth, border)
			continue
		}
		c.fill(y, 0, BorderLeft, border)
		c.fill(y, BorderLeft+VisibleWidth, FrameWidth, border)

		row, withinRow := ly/CellSize, ly%CellSize
		x := BorderLeft
		for col := 0; col < Columns; col++ {
			tile := row*Columns + col
			rowByte := snap.CharacterGenerator[int(snap.Screen[tile])*CellSize+withinRow]
			fg := snap.ColorAttributes[tile] & 0x0F

			if state.Mode == ModeMulticolor {
				c.multicolorCell(y, x, rowByte, fg, state)
			} else {
				c.hiresCell(y, x, rowByte, fg, state.Background)
			}
			x += CellSize
		}
	}
	return c.frame
}

func (c *Compositor) hiresCell(y, x int, rowByte, fg, bg uint8) {
	for bit := 0; bit < CellSize; bit++ {
		index := bg
		if (rowByte>>(7-bit))&1 == 1 {
			index = fg
		}
		c.set(x+bit, y, c.palette.Color(index))
	}
}

func (c *Compositor) multicolorCell(y, x int, rowByte, fg uint8, state State) {
	for pair := 0; pair < CellSize/2; pair++ {
		var index uint8
		switch (rowByte >> (6 - 2*pair)) & 0x03 {
		case 0:
			index = state.Background
		case 1:
			index = state.Background2
		case 2:
			index = state.Background3
		default:
			index = fg
		}
		rgba := c.palette.Color(index)
		c.set(x+2*pair, y, rgba)
		c.set(x+2*pair+1, y, rgba)
	}
}

func (c *Compositor) fill(y, x0, x1 int, rgba color.RGBA) {
	for x := x0; x < x1; x++ {
		c.set(x, y, rgba)
	}
}

func (c *Compositor) set(x, y int, rgba color.RGBA) {
	i := y*c.frame.Stride + x*4
	p := c.frame.Pix[i : i+4 : i+4]
	p[0] = rgba.R
	p[1] = rgba.G
	p[2] = rgba.B
	p[3] = 0xff
}
