package app

import (
	"context"
	"errors"

	"github.com/andrewimm/wasm-c64/internal/debug"
	"github.com/andrewimm/wasm-c64/internal/engine"
)

// The Application is the host of its automation script.

// KeyDown presses a key by KeyboardEvent.code
func (app *Application) KeyDown(ctx context.Context, id string) (bool, error) {
	return app.router.KeyDown(ctx, id)
}

// KeyUp releases a key by KeyboardEvent.code
func (app *Application) KeyUp(ctx context.Context, id string) (bool, error) {
	return app.router.KeyUp(ctx, id)
}

// TypeText queues text on the typer
func (app *Application) TypeText(text string) int {
	return app.typer.Type(text)
}

// Register reads a CPU register
func (app *Application) Register(ctx context.Context, r engine.Register) (uint16, error) {
	return app.session.Register(ctx, r)
}

// BorderColor reads the border color index
func (app *Application) BorderColor(ctx context.Context) (uint8, error) {
	return app.session.BorderColor(ctx)
}

// ScreenText decodes one screen row
func (app *Application) ScreenText(row int) string {
	return app.machine.ScreenText(row)
}

// Frame returns the number of frames drawn
func (app *Application) Frame() uint64 {
	return app.GetFrameCount()
}

// SaveFrame writes the last composed frame to path
func (app *Application) SaveFrame(path string) error {
	frame := app.machine.LastFrame()
	if frame == nil {
		return errors.New("no frame drawn yet")
	}
	return debug.SaveImage(path, frame)
}
