// Package app implements the c64view application: it loads the engine,
// installs ROMs, and runs the frame loop on a presentation host.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/andrewimm/wasm-c64/internal/debug"
	"github.com/andrewimm/wasm-c64/internal/engine"
	"github.com/andrewimm/wasm-c64/internal/engine/wasm"
	"github.com/andrewimm/wasm-c64/internal/graphics"
	"github.com/andrewimm/wasm-c64/internal/input"
	"github.com/andrewimm/wasm-c64/internal/memory"
	"github.com/andrewimm/wasm-c64/internal/rom"
	"github.com/andrewimm/wasm-c64/internal/scheduler"
	"github.com/andrewimm/wasm-c64/internal/script"
	"github.com/andrewimm/wasm-c64/internal/version"
)

// EngineLoader opens an engine session
type EngineLoader func(ctx context.Context, cfg EngineConfig) (engine.Session, error)

// LoadWasmEngine reads the engine module named by cfg.Path and instantiates it
func LoadWasmEngine(ctx context.Context, cfg EngineConfig) (engine.Session, error) {
	data, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read engine module: %w", err)
	}
	return wasm.Load(ctx, data)
}

// Application represents the main application
type Application struct {
	config *Config
	loader EngineLoader

	// Presentation
	graphicsBackend graphics.Backend
	window          graphics.Window

	// Machine
	session   engine.Session
	bridge    *memory.Bridge
	machine   *Machine
	router    *input.Router
	typer     *input.Typer
	scheduler *scheduler.Scheduler
	dumper    *debug.FrameDumper
	script    *script.Runner
	frameHook bool

	// Control flags
	ctx         context.Context
	running     bool
	initialized bool
	loaded      bool
	runErr      error

	startTime time.Time
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("Application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// NewApplication creates an application that loads its engine from a WASM file
func NewApplication(config *Config) (*Application, error) {
	return NewApplicationWithLoader(config, LoadWasmEngine)
}

// NewApplicationWithLoader creates an application with a custom engine source
func NewApplicationWithLoader(config *Config, loader EngineLoader) (*Application, error) {
	if config == nil {
		config = NewConfig()
	}

	app := &Application{
		config:    config,
		loader:    loader,
		ctx:       context.Background(),
		startTime: time.Now(),
	}

	if err := app.initializeGraphicsBackend(); err != nil {
		return nil, &ApplicationError{
			Component: "initialization",
			Operation: "graphics setup",
			Err:       err,
		}
	}

	app.dumper = debug.NewFrameDumper(config.Debug.DumpDir)
	app.dumper.SetDumpInterval(config.Debug.DumpInterval)
	app.dumper.SetMaxDumps(config.Debug.MaxDumps)
	if err := app.dumper.SetFormat(config.Debug.DumpFormat); err != nil {
		return nil, &ApplicationError{Component: "debug", Operation: "frame dump setup", Err: err}
	}
	if config.Debug.DumpFrames {
		if err := app.dumper.Enable(); err != nil {
			return nil, &ApplicationError{Component: "debug", Operation: "frame dump setup", Err: err}
		}
	}

	app.initialized = true
	return app, nil
}

// initializeGraphicsBackend creates the backend named by the configuration
func (app *Application) initializeGraphicsBackend() error {
	backendType := graphics.BackendType(app.config.Video.Backend)

	var err error
	app.graphicsBackend, err = graphics.CreateBackend(backendType)
	if err != nil {
		return fmt.Errorf("failed to create graphics backend: %w", err)
	}

	width, height := app.config.Window.Width, app.config.Window.Height
	if width <= 0 || height <= 0 {
		width, height = app.config.GetWindowResolution()
	}

	graphicsConfig := graphics.Config{
		WindowTitle:  fmt.Sprintf("c64view %s", version.GetVersion()),
		WindowWidth:  width,
		WindowHeight: height,
		Fullscreen:   app.config.Window.Fullscreen,
		VSync:        app.config.Video.VSync,
		ShowOverlay:  app.config.Video.ShowOverlay,
		Headless:     backendType == graphics.BackendHeadless,
		MaxFrames:    app.config.Video.MaxFrames,
		Debug:        app.config.Debug.EnableLogging,
	}

	if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
		return fmt.Errorf("failed to initialize graphics backend: %w", err)
	}

	app.window, err = app.graphicsBackend.CreateWindow(graphicsConfig.WindowTitle, width, height)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	if app.config.Debug.EnableLogging {
		log.Printf("[APP] Using %s backend (%dx%d)", app.graphicsBackend.GetName(), width, height)
	}
	return nil
}

// Load opens the engine, installs the ROM images, resets the machine and
// loads the automation script if one is configured.
func (app *Application) Load(ctx context.Context) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}
	if app.loaded {
		return errors.New("engine already loaded")
	}

	session, err := app.loader(ctx, app.config.Engine)
	if err != nil {
		return &ApplicationError{Component: "engine", Operation: "load", Err: err}
	}
	app.session = session

	app.bridge, err = memory.NewBridge(ctx, session)
	if err != nil {
		return &ApplicationError{Component: "memory", Operation: "resolve regions", Err: err}
	}

	roms, err := rom.LoadSet(app.config.ROM.Character, app.config.ROM.Kernal, app.config.ROM.Basic)
	if err != nil {
		return &ApplicationError{Component: "rom", Operation: "load", Err: err}
	}
	if err := app.bridge.InstallROMs(roms); err != nil {
		return &ApplicationError{Component: "rom", Operation: "install", Err: err}
	}

	if err := session.Reset(ctx); err != nil {
		return &ApplicationError{Component: "engine", Operation: "reset", Err: err}
	}
	app.logRegisters(ctx)

	app.router = input.NewRouter(session)
	app.router.SetDebug(app.config.Debug.EnableLogging)
	app.typer = input.NewTyper(session)
	app.typer.SetTiming(app.config.Input.HoldFrames, app.config.Input.GapFrames)

	app.machine = NewMachine(session, app.bridge, app.typer, app.window, app.dumper)
	app.machine.SetDebug(app.config.Debug.EnableLogging)

	app.scheduler = scheduler.New(frameHost{app}, app.machine,
		scheduler.WithMaxDelta(app.config.MaxDelta()),
		scheduler.WithObserver(app.onFrame),
	)

	app.window.SetStatusFunc(app.statusLines)
	app.loaded = true

	if path := app.config.Script.Path; path != "" {
		app.script = script.NewRunner(ctx, app)
		if err := app.script.DoFile(path); err != nil {
			return &ApplicationError{Component: "script", Operation: "load", Err: err}
		}
		app.frameHook = app.script.HasFrameHook()
		if app.config.Debug.EnableLogging {
			log.Printf("[APP] Loaded script %s (on_frame: %t)", path, app.frameHook)
		}
	}

	return nil
}

// logRegisters prints the CPU register table
func (app *Application) logRegisters(ctx context.Context) {
	line := ""
	for _, r := range engine.Registers {
		v, err := app.session.Register(ctx, r)
		if err != nil {
			log.Printf("[APP] Failed to read register %s: %v", r, err)
			return
		}
		line += fmt.Sprintf(" %s=$%04X", r, v)
	}
	log.Printf("[APP] Registers:%s", line)
}

// frameHost hands the scheduler's requests to the window and processes the
// window's input first on every frame.
type frameHost struct{ app *Application }

func (h frameHost) RequestAnimationFrame(callback func(now time.Duration)) {
	app := h.app
	app.window.RequestAnimationFrame(func(now time.Duration) {
		if err := app.processInput(app.ctx); err != nil {
			app.fail(&ApplicationError{Component: "input", Operation: "process events", Err: err})
			return
		}
		if !app.scheduler.Running() {
			return
		}
		callback(now)
		if !app.scheduler.Running() {
			app.window.Cleanup()
		}
	})
}

// Run starts the frame loop and blocks until the window closes, the
// application is stopped, ctx is cancelled, or the engine fails.
func (app *Application) Run(ctx context.Context) error {
	if !app.loaded {
		return errors.New("engine not loaded")
	}

	app.ctx = ctx
	app.running = true
	app.startTime = time.Now()

	if err := app.scheduler.Start(ctx); err != nil {
		return &ApplicationError{Component: "scheduler", Operation: "start", Err: err}
	}

	windowErr := app.window.Run(ctx)
	app.scheduler.Stop()
	app.running = false

	if app.runErr != nil {
		return app.runErr
	}
	if err := app.scheduler.Err(); err != nil && !errors.Is(err, scheduler.ErrStopped) && !errors.Is(err, context.Canceled) {
		return &ApplicationError{Component: "engine", Operation: "run", Err: err}
	}
	if windowErr != nil && !errors.Is(windowErr, context.Canceled) {
		return &ApplicationError{Component: "graphics", Operation: "run", Err: windowErr}
	}
	return nil
}

func (app *Application) fail(err error) {
	log.Printf("[APP] %v", err)
	if app.runErr == nil {
		app.runErr = err
	}
	app.Stop()
}

// processInput routes window events to the keyboard matrix and shortcuts.
// Keys the keyboard map does not claim are offered to the shortcuts.
func (app *Application) processInput(ctx context.Context) error {
	for _, event := range app.window.PollEvents() {
		switch event.Type {
		case graphics.InputEventTypeQuit:
			app.Stop()
		case graphics.InputEventTypeFocusLost:
			app.typer.Clear()
			if err := app.router.ReleaseAll(ctx); err != nil {
				return err
			}
		case graphics.InputEventTypeText:
			if skipped := app.typer.Type(event.Text); skipped > 0 && app.config.Debug.EnableLogging {
				log.Printf("[APP] Skipped %d untypeable characters", skipped)
			}
		case graphics.InputEventTypeKey:
			if !event.Pressed {
				if _, err := app.router.KeyUp(ctx, event.Code); err != nil {
					return err
				}
				continue
			}
			handled, err := app.router.KeyDown(ctx, event.Code)
			if err != nil {
				return err
			}
			if !handled {
				if err := app.handleSpecialInput(ctx, event.Code); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// handleSpecialInput handles host shortcuts
func (app *Application) handleSpecialInput(ctx context.Context, code string) error {
	switch code {
	case "F8":
		if app.scheduler.Paused() {
			return app.Step(ctx)
		}
	case "F9":
		app.TogglePause()
	case "F10":
		return app.Reset(ctx)
	case "F11":
		app.window.ToggleFullscreen()
	case "F12":
		app.window.ToggleOverlay()
	}
	return nil
}

// onFrame runs the script hook after every drawn frame
func (app *Application) onFrame(frame uint64) {
	if app.script == nil || !app.frameHook {
		return
	}
	if err := app.script.OnFrame(frame); err != nil {
		app.fail(&ApplicationError{Component: "script", Operation: "on_frame", Err: err})
	}
}

// statusLines feeds the overlay
func (app *Application) statusLines() []string {
	state := "running"
	if app.scheduler.Paused() {
		state = "paused"
	}
	lines := []string{
		fmt.Sprintf("c64view %s  frame %d  %.1f fps (jitter %.1fms)  %s", version.GetVersion(), app.scheduler.Frames(),
			app.scheduler.FrameRate(), float64(app.scheduler.Jitter())/float64(time.Millisecond), state),
	}

	regs := ""
	for _, r := range engine.Registers {
		v, err := app.session.Register(app.ctx, r)
		if err != nil {
			return lines
		}
		regs += fmt.Sprintf("%s:%04X ", r, v)
	}
	lines = append(lines, regs)

	s := app.machine.LastState()
	lines = append(lines, fmt.Sprintf("border %d  bg %d/%d/%d  %s", s.Border, s.Background, s.Background2, s.Background3, s.Mode))
	return lines
}

// Stop stops the application after the current frame
func (app *Application) Stop() {
	app.running = false
	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	if app.window != nil {
		app.window.Cleanup()
	}
}

// Pause pauses the engine; frames are still drawn
func (app *Application) Pause() {
	app.scheduler.Pause()
}

// Resume resumes the engine
func (app *Application) Resume() {
	app.scheduler.Resume()
}

// TogglePause toggles pause state
func (app *Application) TogglePause() {
	if app.scheduler.Paused() {
		app.Resume()
	} else {
		app.Pause()
	}
}

// Reset resets the machine and releases every held key
func (app *Application) Reset(ctx context.Context) error {
	if !app.loaded {
		return errors.New("engine not loaded")
	}
	app.typer.Clear()
	if err := app.router.ReleaseAll(ctx); err != nil {
		return err
	}
	if err := app.session.Reset(ctx); err != nil {
		return &ApplicationError{Component: "engine", Operation: "reset", Err: err}
	}
	app.logRegisters(ctx)
	return nil
}

// Step executes one CPU instruction
func (app *Application) Step(ctx context.Context) error {
	if !app.loaded {
		return errors.New("engine not loaded")
	}
	if err := app.session.Step(ctx); err != nil {
		return &ApplicationError{Component: "engine", Operation: "step", Err: err}
	}
	if app.config.Debug.EnableLogging {
		app.logRegisters(ctx)
	}
	return nil
}

// IsRunning returns whether the application is running
func (app *Application) IsRunning() bool {
	return app.running
}

// IsPaused returns whether the engine is paused
func (app *Application) IsPaused() bool {
	return app.scheduler != nil && app.scheduler.Paused()
}

// GetFrameCount returns the total frame count
func (app *Application) GetFrameCount() uint64 {
	if app.scheduler == nil {
		return 0
	}
	return app.scheduler.Frames()
}

// GetUptime returns the application uptime
func (app *Application) GetUptime() time.Duration {
	return time.Since(app.startTime)
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *Config {
	return app.config
}

// GetWindow returns the presentation window
func (app *Application) GetWindow() graphics.Window {
	return app.window
}

// GetMachine returns the machine, or nil before Load
func (app *Application) GetMachine() *Machine {
	return app.machine
}

// Cleanup releases all resources and shuts down the application
func (app *Application) Cleanup() error {
	if app.config != nil && app.config.Debug.EnableLogging {
		log.Println("[APP] Cleaning up application resources...")
	}

	var lastErr error

	if app.script != nil {
		app.script.Close()
	}

	if app.router != nil && app.session != nil {
		if err := app.router.ReleaseAll(context.Background()); err != nil {
			log.Printf("[APP] Failed to release keys: %v", err)
		}
	}

	if app.session != nil {
		if err := app.session.Close(context.Background()); err != nil {
			lastErr = err
			log.Printf("[APP] Engine close error: %v", err)
		}
	}

	if app.window != nil {
		if err := app.window.Cleanup(); err != nil {
			lastErr = err
			log.Printf("[APP] Window cleanup error: %v", err)
		}
	}

	if app.graphicsBackend != nil {
		if err := app.graphicsBackend.Cleanup(); err != nil {
			lastErr = err
			log.Printf("[APP] Graphics backend cleanup error: %v", err)
		}
	}

	app.initialized = false
	app.loaded = false
	return lastErr
}
