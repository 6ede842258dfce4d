package display

import "strings"

// ScreenCodeRune converts a screen code from the uppercase/graphics character
// set to the closest printable rune. Reversed characters (bit 7) decode as
// their normal form; graphics glyphs without an ASCII equivalent become '?'.
func ScreenCodeRune(code uint8) rune {
	c := code & 0x7F
	switch {
	case c < 0x20:
		return rune('@' + c) // @ A..Z [ \ ] ^ _
	case c < 0x40:
		return rune(c) // space, punctuation and digits match ASCII
	case c == 0x60:
		return ' '
	default:
		return '?'
	}
}

// ScreenText decodes one row of the screen buffer, without trailing spaces.
// Rows outside [0, 25) decode to the empty string.
func ScreenText(snap Snapshot, row int) string {
	if row < 0 || row >= Rows || len(snap.Screen) < (row+1)*Columns {
		return ""
	}
	var b strings.Builder
	b.Grow(Columns)
	for _, code := range snap.Screen[row*Columns : (row+1)*Columns] {
		b.WriteRune(ScreenCodeRune(code))
	}
	return strings.TrimRight(b.String(), " ")
}
