package graphics

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/term"
)

// TerminalBackend implements the Backend interface for terminal-based rendering
type TerminalBackend struct {
	initialized bool
	config      Config
}

// TerminalWindow draws frames with half-block cells, two pixel rows per
// character row. Terminals report no key releases, so typed characters are
// delivered as text events and special keys as a press followed by a release.
type TerminalWindow struct {
	title    string
	width    int
	height   int
	running  atomic.Bool
	screen   tcell.Screen
	interval time.Duration

	clock  clock
	frames frameQueue

	mu     sync.Mutex
	events []InputEvent

	showOverlay bool
	status      func() []string
	finiOnce    sync.Once
}

// NewTerminalBackend creates a new terminal graphics backend
func NewTerminalBackend() Backend {
	return &TerminalBackend{}
}

// Initialize initializes the terminal backend
func (b *TerminalBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("terminal backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow takes over the controlling terminal
func (b *TerminalBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf("terminal backend requires an interactive terminal")
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create terminal screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal screen: %w", err)
	}
	screen.HideCursor()
	screen.EnablePaste()

	rate := b.config.FrameRate
	if rate <= 0 {
		rate = DefaultFrameRate
	}

	w := &TerminalWindow{
		title:       title,
		width:       width,
		height:      height,
		screen:      screen,
		interval:    time.Second / time.Duration(rate),
		showOverlay: b.config.ShowOverlay,
	}
	w.running.Store(true)
	screen.SetTitle(title)
	return w, nil
}

// Cleanup releases all terminal resources
func (b *TerminalBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns false (terminal has basic output)
func (b *TerminalBackend) IsHeadless() bool {
	return false
}

// GetName returns the backend name
func (b *TerminalBackend) GetName() string {
	return "Terminal"
}

// TerminalWindow implementation

// SetTitle sets the terminal title
func (w *TerminalWindow) SetTitle(title string) {
	w.title = title
	w.screen.SetTitle(title)
}

// GetSize returns window dimensions
func (w *TerminalWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *TerminalWindow) ShouldClose() bool {
	return !w.running.Load()
}

// PollEvents returns and clears the events read from the terminal
func (w *TerminalWindow) PollEvents() []InputEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := w.events
	w.events = nil
	return events
}

// RenderFrame draws the frame fitted to the terminal size
func (w *TerminalWindow) RenderFrame(frame *image.RGBA) error {
	if frame == nil {
		return fmt.Errorf("nil frame")
	}

	cols, rows := w.screen.Size()
	var lines []string
	if w.showOverlay && w.status != nil {
		lines = w.status()
	}
	frameRows := rows - len(lines)
	if cols <= 0 || frameRows <= 0 {
		return nil
	}

	for cy := 0; cy < frameRows; cy++ {
		for cx := 0; cx < cols; cx++ {
			top, bottom := sampleCell(frame, cx, cy, cols, frameRows)
			style := tcell.StyleDefault.Foreground(rgb(top)).Background(rgb(bottom))
			w.screen.SetContent(cx, cy, '▀', nil, style)
		}
	}

	for i, line := range lines {
		drawString(w.screen, 0, frameRows+i, cols, line)
	}

	w.screen.Show()
	return nil
}

// RequestAnimationFrame schedules callback for the next tick
func (w *TerminalWindow) RequestAnimationFrame(callback func(now time.Duration)) {
	w.frames.request(callback)
}

// Run reads terminal events in the background and fires frame callbacks at
// the configured rate until the window closes or ctx is cancelled.
func (w *TerminalWindow) Run(ctx context.Context) error {
	go w.readEvents()

	w.clock = newClock()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for w.running.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.frames.fire(w.clock.now())
		}
	}
	return nil
}

func (w *TerminalWindow) readEvents() {
	for {
		ev := w.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventResize:
			w.screen.Sync()
		case *tcell.EventKey:
			w.push(translateKey(ev)...)
		}
	}
}

func (w *TerminalWindow) push(events ...InputEvent) {
	if len(events) == 0 {
		return
	}
	w.mu.Lock()
	w.events = append(w.events, events...)
	w.mu.Unlock()
}

// ToggleFullscreen does nothing; the terminal is always filled
func (w *TerminalWindow) ToggleFullscreen() {}

// ToggleOverlay shows or hides the status lines
func (w *TerminalWindow) ToggleOverlay() {
	w.showOverlay = !w.showOverlay
}

// SetStatusFunc sets the source of status lines
func (w *TerminalWindow) SetStatusFunc(status func() []string) {
	w.status = status
}

// Cleanup restores the terminal
func (w *TerminalWindow) Cleanup() error {
	w.running.Store(false)
	w.finiOnce.Do(w.screen.Fini)
	return nil
}

var terminalKeyCodes = map[tcell.Key]string{
	tcell.KeyUp:    "ArrowUp",
	tcell.KeyDown:  "ArrowDown",
	tcell.KeyLeft:  "ArrowLeft",
	tcell.KeyRight: "ArrowRight",
	tcell.KeyHome:  "Home",
	tcell.KeyF1:    "F1",
	tcell.KeyF2:    "F2",
	tcell.KeyF3:    "F3",
	tcell.KeyF4:    "F4",
	tcell.KeyF5:    "F5",
	tcell.KeyF6:    "F6",
	tcell.KeyF7:    "F7",
	tcell.KeyF8:    "F8",
	tcell.KeyF9:    "F9",
	tcell.KeyF10:   "F10",
	tcell.KeyF11:   "F11",
	tcell.KeyF12:   "F12",
}

// translateKey maps one terminal key event to input events
func translateKey(ev *tcell.EventKey) []InputEvent {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return []InputEvent{{Type: InputEventTypeQuit, Pressed: true}}
	case tcell.KeyEnter:
		return []InputEvent{{Type: InputEventTypeText, Text: "\n"}}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return []InputEvent{{Type: InputEventTypeText, Text: "\b"}}
	case tcell.KeyRune:
		return []InputEvent{{Type: InputEventTypeText, Text: string(ev.Rune())}}
	}
	if code, ok := terminalKeyCodes[ev.Key()]; ok {
		return []InputEvent{
			{Type: InputEventTypeKey, Code: code, Pressed: true},
			{Type: InputEventTypeKey, Code: code, Pressed: false},
		}
	}
	return nil
}

// sampleCell picks the two pixels shown by character cell (cx, cy) when the
// frame is stretched over cols x rows cells with nearest-neighbour sampling.
func sampleCell(frame *image.RGBA, cx, cy, cols, rows int) (top, bottom color.RGBA) {
	b := frame.Bounds()
	x := b.Min.X + cx*b.Dx()/cols
	yTop := b.Min.Y + (2*cy)*b.Dy()/(2*rows)
	yBottom := b.Min.Y + (2*cy+1)*b.Dy()/(2*rows)
	return frame.RGBAAt(x, yTop), frame.RGBAAt(x, yBottom)
}

func rgb(c color.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

func drawString(screen tcell.Screen, x, y, maxWidth int, s string) {
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	col := 0
	for _, r := range s {
		if col >= maxWidth {
			break
		}
		screen.SetContent(x+col, y, r, nil, style)
		col++
	}
	for ; col < maxWidth; col++ {
		screen.SetContent(x+col, y, ' ', nil, style)
	}
}
