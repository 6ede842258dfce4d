package debug

import (
	"fmt"
	"image"
	"image/color"
)

// PaletteReport summarizes how a frame's pixels map onto a fixed palette
type PaletteReport struct {
	Pixels     int
	OffPalette int
	FirstOff   image.Point // valid only when OffPalette > 0
	Used       [16]int     // pixel count per palette index
}

// String renders the report as one log line
func (r PaletteReport) String() string {
	used := 0
	for _, n := range r.Used {
		if n > 0 {
			used++
		}
	}
	if r.OffPalette == 0 {
		return fmt.Sprintf("%d pixels, %d palette colors", r.Pixels, used)
	}
	return fmt.Sprintf("%d pixels, %d palette colors, %d off-palette (first at %d,%d)",
		r.Pixels, used, r.OffPalette, r.FirstOff.X, r.FirstOff.Y)
}

// CheckPalette verifies that every pixel of frame is one of the palette's
// colors. Alpha is ignored.
func CheckPalette(frame *image.RGBA, palette [16]color.RGBA) PaletteReport {
	index := make(map[uint32]int, len(palette))
	for i := len(palette) - 1; i >= 0; i-- {
		c := palette[i]
		index[uint32(c.R)<<16|uint32(c.G)<<8|uint32(c.B)] = i
	}

	var r PaletteReport
	b := frame.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := frame.RGBAAt(x, y)
			r.Pixels++
			i, ok := index[uint32(c.R)<<16|uint32(c.G)<<8|uint32(c.B)]
			if !ok {
				if r.OffPalette == 0 {
					r.FirstOff = image.Pt(x, y)
				}
				r.OffPalette++
				continue
			}
			r.Used[i]++
		}
	}
	return r
}
