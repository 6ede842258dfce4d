package graphics

import (
	"image"
	"image/color"
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestSampleCell_ShouldPickNearestRows(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			frame.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 0xff})
		}
	}

	// 2x2 cells cover the 4x4 frame: each cell shows rows 2cy and 2cy+1
	top, bottom := sampleCell(frame, 1, 1, 2, 2)
	if top.R != 2 || top.G != 2 {
		t.Errorf("unexpected top %+v", top)
	}
	if bottom.R != 2 || bottom.G != 3 {
		t.Errorf("unexpected bottom %+v", bottom)
	}

	// 4x1 cells: one character row spans the whole frame
	top, bottom = sampleCell(frame, 3, 0, 4, 1)
	if top.R != 3 || top.G != 0 || bottom.G != 2 {
		t.Errorf("unexpected stretch %+v %+v", top, bottom)
	}
}

func TestTranslateKey_ShouldMapTerminalKeys(t *testing.T) {
	ev := translateKey(tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone))
	if len(ev) != 1 || ev[0].Type != InputEventTypeText || ev[0].Text != "a" {
		t.Errorf("rune: unexpected %v", ev)
	}

	ev = translateKey(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	if len(ev) != 1 || ev[0].Text != "\n" {
		t.Errorf("enter: unexpected %v", ev)
	}

	ev = translateKey(tcell.NewEventKey(tcell.KeyF9, 0, tcell.ModNone))
	if len(ev) != 2 || ev[0].Code != "F9" || !ev[0].Pressed || ev[1].Pressed {
		t.Errorf("F9: expected press and release, got %v", ev)
	}

	ev = translateKey(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl))
	if len(ev) != 1 || ev[0].Type != InputEventTypeQuit {
		t.Errorf("ctrl-c: unexpected %v", ev)
	}
}
