package graphics

import (
	"context"
	"fmt"
	"image"
	"time"
)

// DefaultFrameRate is the virtual clock rate of the headless host
const DefaultFrameRate = 60

// HeadlessBackend implements the Backend interface for headless operation
type HeadlessBackend struct {
	initialized bool
	config      Config
}

// HeadlessWindow presents nothing. Its clock is virtual: frame n is stamped
// n/FrameRate seconds after start and frames run back to back.
type HeadlessWindow struct {
	title     string
	width     int
	height    int
	running   bool
	maxFrames int
	interval  time.Duration

	frames     frameQueue
	frameCount int
	lastFrame  *image.RGBA
	events     []InputEvent
}

// NewHeadlessBackend creates a new headless graphics backend
func NewHeadlessBackend() Backend {
	return &HeadlessBackend{}
}

// Initialize initializes the headless backend
func (b *HeadlessBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("headless backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates a headless "window" (no actual window)
func (b *HeadlessBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	rate := b.config.FrameRate
	if rate <= 0 {
		rate = DefaultFrameRate
	}
	return &HeadlessWindow{
		title:     title,
		width:     width,
		height:    height,
		running:   true,
		maxFrames: b.config.MaxFrames,
		interval:  time.Second / time.Duration(rate),
	}, nil
}

// Cleanup releases all headless resources
func (b *HeadlessBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true (this is a headless backend)
func (b *HeadlessBackend) IsHeadless() bool {
	return true
}

// GetName returns the backend name
func (b *HeadlessBackend) GetName() string {
	return "Headless"
}

// SetTitle sets the window title (for logging purposes)
func (w *HeadlessWindow) SetTitle(title string) {
	w.title = title
}

// GetSize returns window dimensions
func (w *HeadlessWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *HeadlessWindow) ShouldClose() bool {
	return !w.running
}

// Inject queues an event for the next PollEvents, standing in for a user
func (w *HeadlessWindow) Inject(ev InputEvent) {
	w.events = append(w.events, ev)
}

// PollEvents returns injected events
func (w *HeadlessWindow) PollEvents() []InputEvent {
	events := w.events
	w.events = nil
	return events
}

// RenderFrame records the frame; nothing is presented
func (w *HeadlessWindow) RenderFrame(frame *image.RGBA) error {
	w.frameCount++
	w.lastFrame = frame
	return nil
}

// RequestAnimationFrame schedules callback for the next virtual frame
func (w *HeadlessWindow) RequestAnimationFrame(callback func(now time.Duration)) {
	w.frames.request(callback)
}

// Run fires frame callbacks until MaxFrames host frames have elapsed, the
// window is closed, ctx is cancelled, or no callback is pending.
func (w *HeadlessWindow) Run(ctx context.Context) error {
	for tick := 0; w.maxFrames == 0 || tick < w.maxFrames; tick++ {
		if !w.running {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !w.frames.fire(time.Duration(tick) * w.interval) {
			return nil
		}
	}
	return nil
}

// ToggleFullscreen does nothing in headless mode
func (w *HeadlessWindow) ToggleFullscreen() {}

// ToggleOverlay does nothing in headless mode
func (w *HeadlessWindow) ToggleOverlay() {}

// SetStatusFunc does nothing in headless mode
func (w *HeadlessWindow) SetStatusFunc(status func() []string) {}

// Cleanup releases window resources
func (w *HeadlessWindow) Cleanup() error {
	w.running = false
	return nil
}

// GetFrameCount returns how many frames were rendered
func (w *HeadlessWindow) GetFrameCount() int {
	return w.frameCount
}

// LastFrame returns the most recently rendered frame
func (w *HeadlessWindow) LastFrame() *image.RGBA {
	return w.lastFrame
}
