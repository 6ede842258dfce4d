package input

// MatrixCode is a keyboard matrix position (row*8 + column), 0..63
type MatrixCode = uint8

// CodeLeftShift is the matrix code of the left shift key
const CodeLeftShift MatrixCode = 15

// KeyMap maps W3C KeyboardEvent.code identifiers to matrix codes
var KeyMap = map[string]MatrixCode{
	"Escape":       63, // RUN/STOP
	"Backquote":    57, // left arrow
	"Digit1":       56,
	"Digit2":       59,
	"Digit3":       8,
	"Digit4":       11,
	"Digit5":       16,
	"Digit6":       19,
	"Digit7":       24,
	"Digit8":       27,
	"Digit9":       32,
	"Digit0":       35,
	"Minus":        40, // +
	"Equal":        53, // =
	"Backspace":    0,  // INST/DEL
	"Tab":          58, // CTRL
	"KeyQ":         62,
	"KeyW":         9,
	"KeyE":         14,
	"KeyR":         17,
	"KeyT":         22,
	"KeyY":         25,
	"KeyU":         30,
	"KeyI":         33,
	"KeyO":         38,
	"KeyP":         41,
	"BracketLeft":  46, // @
	"BracketRight": 49, // *
	"Enter":        1,
	"CapsLock":     52, // right shift
	"KeyA":         10,
	"KeyS":         13,
	"KeyD":         18,
	"KeyF":         21,
	"KeyG":         26,
	"KeyH":         29,
	"KeyJ":         34,
	"KeyK":         37,
	"KeyL":         42,
	"Semicolon":    45, // :
	"Quote":        50, // ;
	"ShiftLeft":    15,
	"KeyZ":         12,
	"KeyX":         23,
	"KeyC":         20,
	"KeyV":         31,
	"KeyB":         28,
	"KeyN":         39,
	"KeyM":         36,
	"Comma":        47,
	"Period":       44,
	"Slash":        55,
	"ControlLeft":  61, // C=
	"Space":        60,
}

// glyph is one typed character as a matrix code, optionally shifted
type glyph struct {
	code    MatrixCode
	shifted bool
}

var glyphs = map[rune]glyph{
	' ':  {60, false},
	'\n': {1, false},
	'\r': {1, false},
	'\b': {0, false},
	'0':  {35, false},
	'1':  {56, false},
	'2':  {59, false},
	'3':  {8, false},
	'4':  {11, false},
	'5':  {16, false},
	'6':  {19, false},
	'7':  {24, false},
	'8':  {27, false},
	'9':  {32, false},
	'+':  {40, false},
	'-':  {43, false},
	'.':  {44, false},
	':':  {45, false},
	'@':  {46, false},
	',':  {47, false},
	'*':  {49, false},
	';':  {50, false},
	'=':  {53, false},
	'/':  {55, false},

	'!':  {56, true},
	'"':  {59, true},
	'#':  {8, true},
	'$':  {11, true},
	'%':  {16, true},
	'&':  {19, true},
	'\'': {24, true},
	'(':  {27, true},
	')':  {32, true},
	'[':  {45, true},
	']':  {50, true},
	'<':  {47, true},
	'>':  {44, true},
	'?':  {55, true},
}

func init() {
	for r := 'A'; r <= 'Z'; r++ {
		g := glyph{code: KeyMap["Key"+string(r)]}
		glyphs[r] = g
		glyphs[r+('a'-'A')] = g
	}
}

// lookupGlyph resolves a typed rune. Lower and upper case letters both type
// the unshifted letter key.
func lookupGlyph(r rune) (glyph, bool) {
	g, ok := glyphs[r]
	return g, ok
}
