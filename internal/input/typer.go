package input

import (
	"context"
	"fmt"
)

// Default stroke timing, in scheduler ticks. The keyboard matrix is scanned
// by the KERNAL once per jiffy, so a key must stay down across a scan.
const (
	DefaultHoldFrames = 2
	DefaultGapFrames  = 1
)

// Typer types text into the keyboard matrix one stroke at a time.
// Step must be called once per scheduler tick.
type Typer struct {
	sink KeySink

	holdFrames int
	gapFrames  int

	queue   []glyph
	current *glyph
	down    bool
	wait    int
}

// NewTyper creates a typer with the default timing
func NewTyper(sink KeySink) *Typer {
	return &Typer{
		sink:       sink,
		holdFrames: DefaultHoldFrames,
		gapFrames:  DefaultGapFrames,
	}
}

// SetTiming changes how many ticks a key is held and how many ticks pass
// between strokes. Values below 1 and 0 respectively are clamped.
func (t *Typer) SetTiming(hold, gap int) {
	if hold < 1 {
		hold = 1
	}
	if gap < 0 {
		gap = 0
	}
	t.holdFrames = hold
	t.gapFrames = gap
}

// Type queues every typeable rune of text and returns how many were skipped
func (t *Typer) Type(text string) (skipped int) {
	for _, r := range text {
		g, ok := lookupGlyph(r)
		if !ok {
			skipped++
			continue
		}
		t.queue = append(t.queue, g)
	}
	return skipped
}

// Pending reports whether strokes remain queued or in progress
func (t *Typer) Pending() bool {
	return t.current != nil || len(t.queue) > 0
}

// Clear drops queued strokes. A key that is down is still released on the
// next Step.
func (t *Typer) Clear() {
	t.queue = t.queue[:0]
}

// Step advances the stroke state machine by one tick
func (t *Typer) Step(ctx context.Context) error {
	if t.wait > 0 {
		t.wait--
		return nil
	}

	if t.current == nil {
		if len(t.queue) == 0 {
			return nil
		}
		g := t.queue[0]
		t.queue = t.queue[1:]
		t.current = &g
	}

	if !t.down {
		if t.current.shifted {
			if err := t.sink.KeyPressed(ctx, CodeLeftShift); err != nil {
				return fmt.Errorf("typer: %w", err)
			}
		}
		if err := t.sink.KeyPressed(ctx, t.current.code); err != nil {
			return fmt.Errorf("typer: %w", err)
		}
		t.down = true
		t.wait = t.holdFrames - 1
		return nil
	}

	g := t.current
	t.current = nil
	t.down = false
	t.wait = t.gapFrames
	if err := t.sink.KeyReleased(ctx, g.code); err != nil {
		return fmt.Errorf("typer: %w", err)
	}
	if g.shifted {
		if err := t.sink.KeyReleased(ctx, CodeLeftShift); err != nil {
			return fmt.Errorf("typer: %w", err)
		}
	}
	return nil
}
