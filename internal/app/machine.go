package app

import (
	"context"
	"fmt"
	"image"
	"log"

	"github.com/andrewimm/wasm-c64/internal/debug"
	"github.com/andrewimm/wasm-c64/internal/display"
	"github.com/andrewimm/wasm-c64/internal/engine"
	"github.com/andrewimm/wasm-c64/internal/graphics"
	"github.com/andrewimm/wasm-c64/internal/input"
	"github.com/andrewimm/wasm-c64/internal/memory"
)

// Machine is the scheduler's target: it advances the engine and turns the
// engine's display state into a presented frame.
type Machine struct {
	session    engine.Session
	bridge     *memory.Bridge
	compositor *display.Compositor
	typer      *input.Typer
	window     graphics.Window
	dumper     *debug.FrameDumper

	lastFrame *image.RGBA
	lastState display.State
	drawn     uint64

	debugEnabled bool
}

// NewMachine wires a session to its presentation. window and dumper may be nil.
func NewMachine(session engine.Session, bridge *memory.Bridge, typer *input.Typer, window graphics.Window, dumper *debug.FrameDumper) *Machine {
	return &Machine{
		session:    session,
		bridge:     bridge,
		compositor: display.NewCompositor(nil),
		typer:      typer,
		window:     window,
		dumper:     dumper,
	}
}

// SetDebug enables per-dump logging
func (m *Machine) SetDebug(enabled bool) {
	m.debugEnabled = enabled
}

// Advance feeds one typed-text step and runs the engine for units milliseconds
func (m *Machine) Advance(ctx context.Context, units uint32) error {
	if m.typer != nil {
		if err := m.typer.Step(ctx); err != nil {
			return err
		}
	}
	return m.session.Advance(ctx, units)
}

// Draw reads the display state, composes the frame, and presents it
func (m *Machine) Draw(ctx context.Context) error {
	state, err := m.probeState(ctx)
	if err != nil {
		return err
	}
	m.lastState = state

	frame := m.compositor.Compose(state, m.bridge.Snapshot())
	m.lastFrame = frame
	m.drawn++

	if m.window != nil {
		if err := m.window.RenderFrame(frame); err != nil {
			return fmt.Errorf("failed to present frame: %w", err)
		}
	}

	if m.dumper != nil {
		path, err := m.dumper.DumpFrame(frame, m.drawn)
		if err != nil {
			log.Printf("[APP] Frame dump failed: %v", err)
		} else if path != "" && m.debugEnabled {
			hist := debug.ColorHistogram(frame)
			log.Printf("[APP] Dumped frame %d to %s (%s, dominant #%06X)",
				m.drawn, path, debug.CheckPalette(frame, m.compositor.Palette()), hist[0].RGB)
		}
	}
	return nil
}

// probeState builds this frame's display state. Engines without the
// extended color or mode exports display hires with zero extra colors.
func (m *Machine) probeState(ctx context.Context) (display.State, error) {
	border, err := m.session.BorderColor(ctx)
	if err != nil {
		return display.State{}, fmt.Errorf("failed to read border color: %w", err)
	}
	bg, err := m.session.BackgroundColor(ctx)
	if err != nil {
		return display.State{}, fmt.Errorf("failed to read background color: %w", err)
	}

	var bg2, bg3, mode uint8
	if ec, ok := m.session.(engine.ExtendedColors); ok {
		if bg2, bg3, err = ec.BackgroundColors(ctx); err != nil {
			return display.State{}, fmt.Errorf("failed to read background colors: %w", err)
		}
	}
	if mr, ok := m.session.(engine.ModeReporter); ok {
		if mode, err = mr.DisplayMode(ctx); err != nil {
			return display.State{}, fmt.Errorf("failed to read display mode: %w", err)
		}
	}

	return display.NewState(border, bg, bg2, bg3, mode), nil
}

// LastFrame returns the most recently composed frame, or nil before the first Draw
func (m *Machine) LastFrame() *image.RGBA {
	return m.lastFrame
}

// LastState returns the display state of the most recent frame
func (m *Machine) LastState() display.State {
	return m.lastState
}

// ScreenText decodes one row of the current screen
func (m *Machine) ScreenText(row int) string {
	return display.ScreenText(m.bridge.Snapshot(), row)
}
