package graphics

import (
	"testing"
	"time"
)

func TestCreateBackend_ShouldSelectByType(t *testing.T) {
	cases := map[BackendType]string{
		BackendHeadless: "Headless",
		BackendTerminal: "Terminal",
	}
	for kind, name := range cases {
		b, err := CreateBackend(kind)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if b.GetName() != name {
			t.Errorf("%s: expected %s, got %s", kind, name, b.GetName())
		}
	}

	if b, err := CreateBackend(""); err != nil || b == nil {
		t.Errorf("empty type should select the default backend, got %v", err)
	}
}

func TestCreateBackend_UnknownType_ShouldFail(t *testing.T) {
	if _, err := CreateBackend("opengl"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestInputEventType_String(t *testing.T) {
	want := map[InputEventType]string{
		InputEventTypeKey:       "key",
		InputEventTypeText:      "text",
		InputEventTypeFocusLost: "focus-lost",
		InputEventTypeQuit:      "quit",
		InputEventType(9):       "event(9)",
	}
	for typ, s := range want {
		if typ.String() != s {
			t.Errorf("expected %q, got %q", s, typ.String())
		}
	}
}

func TestFrameQueue_ShouldFireOnce(t *testing.T) {
	var q frameQueue
	if q.fire(0) {
		t.Fatal("empty queue should not fire")
	}

	var got []time.Duration
	q.request(func(now time.Duration) { got = append(got, now) })
	if !q.fire(5 * time.Millisecond) {
		t.Fatal("expected pending callback to fire")
	}
	if q.fire(10 * time.Millisecond) {
		t.Error("callback should be consumed by the first fire")
	}
	if len(got) != 1 || got[0] != 5*time.Millisecond {
		t.Errorf("unexpected calls %v", got)
	}
}

func TestFitFrame_ShouldUseWholeScaleFactors(t *testing.T) {
	tests := []struct {
		name          string
		ww, wh        int
		scale, ox, oy float64
	}{
		{"exact double", 768, 544, 2, 0, 0},
		{"wider window", 1000, 544, 2, 116, 0},
		{"between factors", 1000, 700, 2, 116, 78},
		{"just under triple", 1151, 815, 2, 191, 135},
		{"smaller than frame", 192, 136, 0.5, 0, 0},
	}
	for _, tt := range tests {
		scale, ox, oy := fitFrame(tt.ww, tt.wh, 384, 272)
		if scale != tt.scale || ox != tt.ox || oy != tt.oy {
			t.Errorf("%s: expected %v at (%v,%v), got %v at (%v,%v)", tt.name, tt.scale, tt.ox, tt.oy, scale, ox, oy)
		}
	}
}
