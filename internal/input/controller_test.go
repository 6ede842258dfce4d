package input

import (
	"context"
	"errors"
	"testing"

	"github.com/andrewimm/wasm-c64/internal/engine/enginetest"
)

func TestKeyMap_ShouldHaveAllMatrixCodesInRange(t *testing.T) {
	if len(KeyMap) != 54 {
		t.Errorf("expected 54 mapped keys, got %d", len(KeyMap))
	}
	seen := make(map[MatrixCode]string)
	for id, code := range KeyMap {
		if code > 63 {
			t.Errorf("%s maps to out of range code %d", id, code)
		}
		if other, dup := seen[code]; dup {
			t.Errorf("%s and %s share matrix code %d", id, other, code)
		}
		seen[code] = id
	}
}

func TestKeyDown_MappedKey_ShouldForwardExactlyOnePress(t *testing.T) {
	session := enginetest.New()
	r := NewRouter(session)

	handled, err := r.KeyDown(context.Background(), "KeyA")
	if err != nil {
		t.Fatalf("KeyDown failed: %v", err)
	}
	if !handled {
		t.Error("mapped key should be handled")
	}
	if len(session.Pressed) != 1 || session.Pressed[0] != 10 {
		t.Errorf("expected one press of code 10, got %v", session.Pressed)
	}
	if len(session.Released) != 0 {
		t.Errorf("expected no releases, got %v", session.Released)
	}
}

func TestKeyDown_UnmappedKey_ShouldBeIgnored(t *testing.T) {
	session := enginetest.New()
	r := NewRouter(session)

	for _, id := range []string{"F1", "NumpadEnter", "", "keya"} {
		handled, err := r.KeyDown(context.Background(), id)
		if err != nil {
			t.Errorf("%q: unexpected error %v", id, err)
		}
		if handled {
			t.Errorf("%q: unmapped key should not be handled", id)
		}
	}
	if len(session.Pressed) != 0 {
		t.Errorf("expected no forwarded presses, got %v", session.Pressed)
	}
}

func TestKeyUp_ShouldForwardRelease(t *testing.T) {
	session := enginetest.New()
	r := NewRouter(session)
	ctx := context.Background()

	r.KeyDown(ctx, "Space")
	handled, err := r.KeyUp(ctx, "Space")
	if err != nil || !handled {
		t.Fatalf("KeyUp: handled=%t err=%v", handled, err)
	}
	if len(session.Released) != 1 || session.Released[0] != 60 {
		t.Errorf("expected one release of code 60, got %v", session.Released)
	}
	if r.Held() != 0 {
		t.Errorf("expected no held keys, got %d", r.Held())
	}
}

func TestReleaseAll_ShouldReleaseHeldKeys(t *testing.T) {
	session := enginetest.New()
	r := NewRouter(session)
	ctx := context.Background()

	r.KeyDown(ctx, "ShiftLeft")
	r.KeyDown(ctx, "KeyQ")
	if err := r.ReleaseAll(ctx); err != nil {
		t.Fatal(err)
	}
	if len(session.Released) != 2 {
		t.Errorf("expected 2 releases, got %v", session.Released)
	}
	if r.Held() != 0 {
		t.Errorf("expected no held keys after ReleaseAll, got %d", r.Held())
	}
}

type failingSink struct{ err error }

func (f failingSink) KeyPressed(ctx context.Context, code uint8) error  { return f.err }
func (f failingSink) KeyReleased(ctx context.Context, code uint8) error { return f.err }

func TestKeyDown_SinkError_ShouldBeReturned(t *testing.T) {
	trap := errors.New("trap")
	r := NewRouter(failingSink{err: trap})

	handled, err := r.KeyDown(context.Background(), "Enter")
	if !errors.Is(err, trap) {
		t.Fatalf("expected wrapped trap error, got %v", err)
	}
	if !handled {
		t.Error("mapped key should still report handled")
	}
}
