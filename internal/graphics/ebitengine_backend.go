//go:build !headless
// +build !headless

package graphics

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"
)

// EbitengineBackend implements the Backend interface using Ebitengine
type EbitengineBackend struct {
	initialized bool
	config      Config
	game        *EbitengineGame

	clipboardOnce sync.Once
	clipboardErr  error
}

// EbitengineWindow implements the Window interface for Ebitengine
type EbitengineWindow struct {
	backend *EbitengineBackend
	title   string
	width   int
	height  int
	game    *EbitengineGame
	running bool
	events  []InputEvent

	ctx    context.Context
	clock  clock
	frames frameQueue

	showOverlay bool
	status      func() []string
}

// EbitengineGame implements ebiten.Game for the frame viewer
type EbitengineGame struct {
	window       *EbitengineWindow
	frameImage   *ebiten.Image
	windowWidth  int
	windowHeight int

	focused  bool
	pasting  bool
	pressed  []ebiten.Key
	released []ebiten.Key
}

// NewEbitengineBackend creates a new Ebitengine graphics backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

// Initialize initializes the Ebitengine backend
func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("Ebitengine backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates an Ebitengine window
func (b *EbitengineBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	if b.config.Headless {
		return nil, fmt.Errorf("cannot create window in headless mode")
	}

	game := &EbitengineGame{
		windowWidth:  width,
		windowHeight: height,
		focused:      true,
	}

	window := &EbitengineWindow{
		backend:     b,
		title:       title,
		width:       width,
		height:      height,
		game:        game,
		running:     true,
		ctx:         context.Background(),
		showOverlay: b.config.ShowOverlay,
	}

	game.window = window
	b.game = game

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetVsyncEnabled(b.config.VSync)

	if b.config.Fullscreen {
		ebiten.SetFullscreen(true)
	}

	return window, nil
}

// Cleanup releases all Ebitengine resources
func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true if running in headless mode
func (b *EbitengineBackend) IsHeadless() bool {
	return b.config.Headless
}

// GetName returns the backend name
func (b *EbitengineBackend) GetName() string {
	return "Ebitengine"
}

// readClipboard returns the clipboard text, initializing the clipboard on
// first use. Failure is logged once and yields "".
func (b *EbitengineBackend) readClipboard() string {
	b.clipboardOnce.Do(func() {
		b.clipboardErr = clipboard.Init()
		if b.clipboardErr != nil {
			log.Printf("[Ebitengine] clipboard unavailable: %v", b.clipboardErr)
		}
	})
	if b.clipboardErr != nil {
		return ""
	}
	return string(clipboard.Read(clipboard.FmtText))
}

// EbitengineWindow implementation

// SetTitle sets the window title
func (w *EbitengineWindow) SetTitle(title string) {
	w.title = title
	ebiten.SetWindowTitle(title)
}

// GetSize returns window dimensions
func (w *EbitengineWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *EbitengineWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents returns and clears the events gathered by Update
func (w *EbitengineWindow) PollEvents() []InputEvent {
	events := w.events
	w.events = nil
	return events
}

// RenderFrame uploads a composed frame; it is drawn on the next Draw
func (w *EbitengineWindow) RenderFrame(frame *image.RGBA) error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	if frame == nil {
		return fmt.Errorf("nil frame")
	}

	b := frame.Bounds()
	if img := w.game.frameImage; img == nil || img.Bounds().Dx() != b.Dx() || img.Bounds().Dy() != b.Dy() {
		w.game.frameImage = ebiten.NewImage(b.Dx(), b.Dy())
	}
	w.game.frameImage.WritePixels(frame.Pix)
	return nil
}

// RequestAnimationFrame schedules callback for the next Update
func (w *EbitengineWindow) RequestAnimationFrame(callback func(now time.Duration)) {
	w.frames.request(callback)
}

// Run starts the Ebitengine game loop
func (w *EbitengineWindow) Run(ctx context.Context) error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}

	w.ctx = ctx
	w.clock = newClock()
	return ebiten.RunGame(w.game)
}

// ToggleFullscreen switches between windowed and fullscreen
func (w *EbitengineWindow) ToggleFullscreen() {
	ebiten.SetFullscreen(!ebiten.IsFullscreen())
}

// ToggleOverlay shows or hides the status overlay
func (w *EbitengineWindow) ToggleOverlay() {
	w.showOverlay = !w.showOverlay
}

// SetStatusFunc sets the source of overlay lines
func (w *EbitengineWindow) SetStatusFunc(status func() []string) {
	w.status = status
}

// Cleanup releases window resources
func (w *EbitengineWindow) Cleanup() error {
	w.running = false
	return nil
}

// EbitengineGame implementation

// Update implements ebiten.Game.Update
func (g *EbitengineGame) Update() error {
	w := g.window
	if w == nil {
		return nil
	}
	if !w.running || w.ctx.Err() != nil {
		return ebiten.Termination
	}

	if ebiten.IsWindowBeingClosed() {
		w.events = append(w.events, InputEvent{Type: InputEventTypeQuit, Pressed: true})
	}

	focused := ebiten.IsFocused()
	if g.focused && !focused {
		w.events = append(w.events, InputEvent{Type: InputEventTypeFocusLost})
	}
	g.focused = focused

	g.processInput()

	w.frames.fire(w.clock.now())
	return nil
}

// Draw implements ebiten.Game.Draw
func (g *EbitengineGame) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 0, G: 0, B: 0, A: 255})

	if g.frameImage != nil {
		b := g.frameImage.Bounds()
		scale, offsetX, offsetY := fitFrame(g.windowWidth, g.windowHeight, b.Dx(), b.Dy())

		op := &ebiten.DrawImageOptions{Filter: ebiten.FilterNearest}
		op.GeoM.Scale(scale, scale)
		op.GeoM.Translate(offsetX, offsetY)
		screen.DrawImage(g.frameImage, op)
	}

	if g.window != nil && g.window.showOverlay && g.window.status != nil {
		g.drawOverlay(screen, g.window.status())
	}
}

func (g *EbitengineGame) drawOverlay(screen *ebiten.Image, lines []string) {
	if len(lines) == 0 {
		return
	}
	const lineHeight = 16
	face := basicfont.Face7x13
	ebitenutil.DrawRect(screen, 0, 0, float64(g.windowWidth), float64(len(lines)*lineHeight+6),
		color.RGBA{0, 0, 0, 180})
	for i, line := range lines {
		text.Draw(screen, line, face, 6, 16+i*lineHeight, color.RGBA{0xee, 0xee, 0x77, 0xff})
	}
}

// Layout implements ebiten.Game.Layout
func (g *EbitengineGame) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	g.windowWidth = outsideWidth
	g.windowHeight = outsideHeight
	return outsideWidth, outsideHeight
}

// processInput turns this tick's key transitions into events. Ctrl+Shift+V
// becomes a text event carrying the clipboard and the V itself is dropped.
func (g *EbitengineGame) processInput() {
	w := g.window
	paste := ebiten.IsKeyPressed(ebiten.KeyControl) && ebiten.IsKeyPressed(ebiten.KeyShift)

	g.pressed = inpututil.AppendJustPressedKeys(g.pressed[:0])
	for _, k := range g.pressed {
		if k == ebiten.KeyV && paste {
			g.pasting = true
			if clip := w.backend.readClipboard(); clip != "" {
				w.events = append(w.events, InputEvent{Type: InputEventTypeText, Text: clip})
			}
			continue
		}
		if code, ok := ebitenKeyCodes[k]; ok {
			w.events = append(w.events, InputEvent{Type: InputEventTypeKey, Code: code, Pressed: true})
		}
	}

	g.released = inpututil.AppendJustReleasedKeys(g.released[:0])
	for _, k := range g.released {
		if k == ebiten.KeyV && g.pasting {
			g.pasting = false
			continue
		}
		if code, ok := ebitenKeyCodes[k]; ok {
			w.events = append(w.events, InputEvent{Type: InputEventTypeKey, Code: code, Pressed: false})
		}
	}
}

// ebitenKeyCodes names Ebitengine keys by their KeyboardEvent.code
var ebitenKeyCodes = map[ebiten.Key]string{
	ebiten.KeyA: "KeyA", ebiten.KeyB: "KeyB", ebiten.KeyC: "KeyC", ebiten.KeyD: "KeyD",
	ebiten.KeyE: "KeyE", ebiten.KeyF: "KeyF", ebiten.KeyG: "KeyG", ebiten.KeyH: "KeyH",
	ebiten.KeyI: "KeyI", ebiten.KeyJ: "KeyJ", ebiten.KeyK: "KeyK", ebiten.KeyL: "KeyL",
	ebiten.KeyM: "KeyM", ebiten.KeyN: "KeyN", ebiten.KeyO: "KeyO", ebiten.KeyP: "KeyP",
	ebiten.KeyQ: "KeyQ", ebiten.KeyR: "KeyR", ebiten.KeyS: "KeyS", ebiten.KeyT: "KeyT",
	ebiten.KeyU: "KeyU", ebiten.KeyV: "KeyV", ebiten.KeyW: "KeyW", ebiten.KeyX: "KeyX",
	ebiten.KeyY: "KeyY", ebiten.KeyZ: "KeyZ",

	ebiten.KeyDigit0: "Digit0", ebiten.KeyDigit1: "Digit1", ebiten.KeyDigit2: "Digit2",
	ebiten.KeyDigit3: "Digit3", ebiten.KeyDigit4: "Digit4", ebiten.KeyDigit5: "Digit5",
	ebiten.KeyDigit6: "Digit6", ebiten.KeyDigit7: "Digit7", ebiten.KeyDigit8: "Digit8",
	ebiten.KeyDigit9: "Digit9",

	ebiten.KeyBackquote:    "Backquote",
	ebiten.KeyMinus:        "Minus",
	ebiten.KeyEqual:        "Equal",
	ebiten.KeyBracketLeft:  "BracketLeft",
	ebiten.KeyBracketRight: "BracketRight",
	ebiten.KeyBackslash:    "Backslash",
	ebiten.KeySemicolon:    "Semicolon",
	ebiten.KeyQuote:        "Quote",
	ebiten.KeyComma:        "Comma",
	ebiten.KeyPeriod:       "Period",
	ebiten.KeySlash:        "Slash",
	ebiten.KeySpace:        "Space",

	ebiten.KeyEscape:       "Escape",
	ebiten.KeyBackspace:    "Backspace",
	ebiten.KeyTab:          "Tab",
	ebiten.KeyEnter:        "Enter",
	ebiten.KeyCapsLock:     "CapsLock",
	ebiten.KeyShiftLeft:    "ShiftLeft",
	ebiten.KeyShiftRight:   "ShiftRight",
	ebiten.KeyControlLeft:  "ControlLeft",
	ebiten.KeyControlRight: "ControlRight",
	ebiten.KeyAltLeft:      "AltLeft",
	ebiten.KeyAltRight:     "AltRight",

	ebiten.KeyArrowUp:    "ArrowUp",
	ebiten.KeyArrowDown:  "ArrowDown",
	ebiten.KeyArrowLeft:  "ArrowLeft",
	ebiten.KeyArrowRight: "ArrowRight",
	ebiten.KeyHome:       "Home",
	ebiten.KeyEnd:        "End",
	ebiten.KeyInsert:     "Insert",
	ebiten.KeyDelete:     "Delete",

	ebiten.KeyF1: "F1", ebiten.KeyF2: "F2", ebiten.KeyF3: "F3", ebiten.KeyF4: "F4",
	ebiten.KeyF5: "F5", ebiten.KeyF6: "F6", ebiten.KeyF7: "F7", ebiten.KeyF8: "F8",
	ebiten.KeyF9: "F9", ebiten.KeyF10: "F10", ebiten.KeyF11: "F11", ebiten.KeyF12: "F12",
}
