package display

import "testing"

func TestScreenCodeRune_ShouldDecodeUppercaseSet(t *testing.T) {
	tests := []struct {
		code uint8
		want rune
	}{
		{0x00, '@'},
		{0x01, 'A'},
		{0x1A, 'Z'},
		{0x20, ' '},
		{0x30, '0'},
		{0x39, '9'},
		{0x2E, '.'},
		{0x81, 'A'}, // reversed
		{0x60, ' '},
		{0x51, '?'},
	}
	for _, tt := range tests {
		if got := ScreenCodeRune(tt.code); got != tt.want {
			t.Errorf("ScreenCodeRune(%#02x) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestScreenText_ShouldDecodeRowWithoutTrailingSpaces(t *testing.T) {
	snap := newTestSnapshot()
	for i := range snap.Screen {
		snap.Screen[i] = 0x20
	}
	// READY.
	copy(snap.Screen[Columns*5:], []byte{0x12, 0x05, 0x01, 0x04, 0x19, 0x2E})

	if got := ScreenText(snap, 5); got != "READY." {
		t.Errorf("expected READY., got %q", got)
	}
	if got := ScreenText(snap, 0); got != "" {
		t.Errorf("expected blank row, got %q", got)
	}
	if got := ScreenText(snap, 25); got != "" {
		t.Errorf("expected out of range row to be empty, got %q", got)
	}
}
