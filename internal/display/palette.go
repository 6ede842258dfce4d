// Package display reconstructs C64 text-mode video output from engine memory.
package display

import "image/color"

// Palette holds the 16 fixed colors of the video chip
type Palette [16]color.RGBA

// DefaultPalette is the standard 16-color VIC-II palette
var DefaultPalette = Palette{
	{0x00, 0x00, 0x00, 0xff}, // black
	{0xff, 0xff, 0xff, 0xff}, // white
	{0x68, 0x37, 0x2b, 0xff}, // red
	{0x70, 0xa4, 0xb2, 0xff}, // cyan
	{0x6f, 0x3d, 0x86, 0xff}, // purple
	{0x58, 0x8d, 0x43, 0xff}, // green
	{0x35, 0x28, 0x79, 0xff}, // blue
	{0xb8, 0xc7, 0x6f, 0xff}, // yellow
	{0x6f, 0x4f, 0x25, 0xff}, // orange
	{0x43, 0x39, 0x00, 0xff}, // brown
	{0x9a, 0x67, 0x59, 0xff}, // light red
	{0x44, 0x44, 0x44, 0xff}, // dark grey
	{0x6c, 0x6c, 0x6c, 0xff}, // grey
	{0x9a, 0xd2, 0x84, 0xff}, // light green
	{0x6c, 0x5e, 0xb5, 0xff}, // light blue
	{0x95, 0x95, 0x95, 0xff}, // light grey
}

// Color resolves a color index. Only the low nibble is significant.
func (p *Palette) Color(index uint8) color.RGBA {
	return p[index&0x0F]
}
