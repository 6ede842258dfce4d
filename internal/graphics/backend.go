// Package graphics provides the presentation hosts the composed frames are shown on
package graphics

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"
)

// Backend represents a presentation backend (Ebitengine, terminal, headless)
type Backend interface {
	// Initialize initializes the graphics backend
	Initialize(config Config) error

	// CreateWindow creates the surface frames are presented on
	CreateWindow(title string, width, height int) (Window, error)

	// Cleanup releases all resources
	Cleanup() error

	// IsHeadless returns true if nothing is shown to a user
	IsHeadless() bool

	// GetName returns the backend name for identification
	GetName() string
}

// Window is one presentation surface with its own frame clock.
//
// RequestAnimationFrame registers a callback for the next host frame; Run
// drives those callbacks until the window closes or ctx is cancelled.
// RenderFrame and PollEvents are only called from inside a frame callback.
type Window interface {
	// SetTitle sets the window title
	SetTitle(title string)

	// GetSize returns window dimensions
	GetSize() (width, height int)

	// ShouldClose returns true if window should close
	ShouldClose() bool

	// PollEvents returns and clears input events gathered since the last call
	PollEvents() []InputEvent

	// RenderFrame presents a composed 384x272 frame
	RenderFrame(frame *image.RGBA) error

	// RequestAnimationFrame schedules callback for the next host frame
	RequestAnimationFrame(callback func(now time.Duration))

	// Run drives the frame clock; it blocks until the window closes
	Run(ctx context.Context) error

	// ToggleFullscreen switches fullscreen where supported
	ToggleFullscreen()

	// ToggleOverlay shows or hides the status overlay where supported
	ToggleOverlay()

	// SetStatusFunc sets the source of overlay lines
	SetStatusFunc(status func() []string)

	// Cleanup closes the window; Run returns after the current frame
	Cleanup() error
}

// Config contains configuration for graphics backends
type Config struct {
	// Window configuration
	WindowTitle  string
	WindowWidth  int
	WindowHeight int
	Fullscreen   bool
	VSync        bool

	// Rendering configuration; frames are always scaled with nearest filtering
	ShowOverlay bool

	// Headless options
	Headless  bool
	MaxFrames int // 0 runs until closed
	FrameRate int // virtual clock rate, default 60

	Debug bool
}

// InputEvent represents an input event from the window
type InputEvent struct {
	Type    InputEventType
	Code    string // KeyboardEvent.code style identifier, for key events
	Pressed bool
	Text    string // for text events
}

// InputEventType represents the type of input event
type InputEventType int

const (
	// InputEventTypeKey is a physical key transition
	InputEventTypeKey InputEventType = iota
	// InputEventTypeText is text to be typed, e.g. a clipboard paste
	InputEventTypeText
	// InputEventTypeFocusLost means held keys will not see a release
	InputEventTypeFocusLost
	// InputEventTypeQuit asks the application to stop
	InputEventTypeQuit
)

func (t InputEventType) String() string {
	switch t {
	case InputEventTypeKey:
		return "key"
	case InputEventTypeText:
		return "text"
	case InputEventTypeFocusLost:
		return "focus-lost"
	case InputEventTypeQuit:
		return "quit"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// BackendType represents different graphics backend types
type BackendType string

const (
	BackendEbitengine BackendType = "ebitengine"
	BackendHeadless   BackendType = "headless"
	BackendTerminal   BackendType = "terminal"
)

// CreateBackend creates a graphics backend of the specified type
func CreateBackend(backendType BackendType) (Backend, error) {
	switch backendType {
	case BackendEbitengine, "":
		return NewEbitengineBackend(), nil
	case BackendHeadless:
		return NewHeadlessBackend(), nil
	case BackendTerminal:
		return NewTerminalBackend(), nil
	default:
		return nil, fmt.Errorf("unknown graphics backend %q", backendType)
	}
}

// clock converts wall-clock time to frame timestamps relative to a start
type clock struct {
	start time.Time
}

func newClock() clock {
	return clock{start: time.Now()}
}

func (c clock) now() time.Duration {
	return time.Since(c.start)
}

// frameQueue holds the single pending animation-frame callback
type frameQueue struct {
	pending func(now time.Duration)
}

func (q *frameQueue) request(cb func(now time.Duration)) {
	q.pending = cb
}

// fire runs the pending callback, if any, and reports whether one ran
func (q *frameQueue) fire(now time.Duration) bool {
	cb := q.pending
	if cb == nil {
		return false
	}
	q.pending = nil
	cb(now)
	return true
}

// fitFrame centres a frameW x frameH frame in a windowW x windowH window.
// The scale is a whole number whenever the frame fits at least once, so
// every source pixel covers the same number of window pixels.
func fitFrame(windowW, windowH, frameW, frameH int) (scale, offsetX, offsetY float64) {
	if frameW <= 0 || frameH <= 0 {
		return 1, 0, 0
	}
	scale = float64(windowW) / float64(frameW)
	if s := float64(windowH) / float64(frameH); s < scale {
		scale = s
	}
	if scale >= 1 {
		scale = math.Floor(scale)
	}
	offsetX = math.Floor((float64(windowW) - float64(frameW)*scale) / 2)
	offsetY = math.Floor((float64(windowH) - float64(frameH)*scale) / 2)
	return scale, offsetX, offsetY
}
