// Package script runs Lua automation scripts against the running machine.
//
// Scripts see a small global API:
//
//	key_down(id) / key_up(id)   press or release a key by KeyboardEvent.code
//	type_text(s)                queue text on the keyboard typer
//	register(name)              read a CPU register ("A", "X", "Y", "Status", "SP", "PC")
//	border()                    current border color index
//	screen_text(row)            decoded text of a screen row (0..24)
//	frame()                     number of frames drawn so far
//	save_frame(path)            write the last composed frame (.png or .bmp)
//	stop()                      end the session
//
// If the script defines on_frame(n) it is called after every drawn frame.
package script

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/andrewimm/wasm-c64/internal/engine"
)

// ErrClosed is returned by calls on a closed Runner
var ErrClosed = errors.New("script runner closed")

// FrameHook is the optional global a script defines to observe frames
const FrameHook = "on_frame"

// Host is the machine surface exposed to scripts
type Host interface {
	KeyDown(ctx context.Context, id string) (bool, error)
	KeyUp(ctx context.Context, id string) (bool, error)
	TypeText(text string) (skipped int)
	Register(ctx context.Context, r engine.Register) (uint16, error)
	BorderColor(ctx context.Context) (uint8, error)
	ScreenText(row int) string
	Frame() uint64
	SaveFrame(path string) error
	Stop()
}

// Runner owns one sandboxed Lua state bound to a Host.
// gopher-lua states are single-threaded; the mutex serializes Go callers.
type Runner struct {
	L    *lua.LState
	host Host
	ctx  context.Context

	mu     sync.Mutex
	closed bool
}

// NewRunner creates a sandboxed state with the machine API installed
func NewRunner(ctx context.Context, host Host) *Runner {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)

	r := &Runner{L: L, host: host, ctx: ctx}
	r.install()
	return r
}

// openSafeLibraries opens base, table, string and math only; io, os, debug
// and package stay closed.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
}

func (r *Runner) install() {
	funcs := map[string]lua.LGFunction{
		"print":       r.luaPrint,
		"key_down":    r.luaKeyDown,
		"key_up":      r.luaKeyUp,
		"type_text":   r.luaTypeText,
		"register":    r.luaRegister,
		"border":      r.luaBorder,
		"screen_text": r.luaScreenText,
		"frame":       r.luaFrame,
		"save_frame":  r.luaSaveFrame,
		"stop":        r.luaStop,
	}
	for name, fn := range funcs {
		r.L.SetGlobal(name, r.L.NewFunction(fn))
	}
}

// DoFile executes a script file
func (r *Runner) DoFile(path string) error {
	return r.do(func() error { return r.L.DoFile(path) })
}

// DoString executes script source
func (r *Runner) DoString(code string) error {
	return r.do(func() error { return r.L.DoString(code) })
}

func (r *Runner) do(fn func() error) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("lua panic: %v", rec)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("script failed: %w", err)
	}
	return nil
}

// HasFrameHook reports whether the script defined on_frame
func (r *Runner) HasFrameHook() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	return r.L.GetGlobal(FrameHook).Type() == lua.LTFunction
}

// OnFrame calls the script's on_frame(n) if defined
func (r *Runner) OnFrame(frame uint64) error {
	return r.do(func() error {
		fn := r.L.GetGlobal(FrameHook)
		if fn.Type() != lua.LTFunction {
			return nil
		}
		return r.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, lua.LNumber(frame))
	})
}

// Close releases the Lua state
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.L.Close()
	r.closed = true
}

func (r *Runner) luaPrint(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	log.Printf("[SCRIPT] %s", strings.Join(parts, "\t"))
	return 0
}

func (r *Runner) luaKeyDown(L *lua.LState) int {
	handled, err := r.host.KeyDown(r.ctx, L.CheckString(1))
	if err != nil {
		L.RaiseError("key_down: %v", err)
	}
	L.Push(lua.LBool(handled))
	return 1
}

func (r *Runner) luaKeyUp(L *lua.LState) int {
	handled, err := r.host.KeyUp(r.ctx, L.CheckString(1))
	if err != nil {
		L.RaiseError("key_up: %v", err)
	}
	L.Push(lua.LBool(handled))
	return 1
}

func (r *Runner) luaTypeText(L *lua.LState) int {
	L.Push(lua.LNumber(r.host.TypeText(L.CheckString(1))))
	return 1
}

func (r *Runner) luaRegister(L *lua.LState) int {
	reg, err := engine.ParseRegister(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
	}
	v, err := r.host.Register(r.ctx, reg)
	if err != nil {
		L.RaiseError("register: %v", err)
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (r *Runner) luaBorder(L *lua.LState) int {
	v, err := r.host.BorderColor(r.ctx)
	if err != nil {
		L.RaiseError("border: %v", err)
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (r *Runner) luaScreenText(L *lua.LState) int {
	L.Push(lua.LString(r.host.ScreenText(L.CheckInt(1))))
	return 1
}

func (r *Runner) luaFrame(L *lua.LState) int {
	L.Push(lua.LNumber(r.host.Frame()))
	return 1
}

func (r *Runner) luaSaveFrame(L *lua.LState) int {
	if err := r.host.SaveFrame(L.CheckString(1)); err != nil {
		L.RaiseError("save_frame: %v", err)
	}
	return 0
}

func (r *Runner) luaStop(L *lua.LState) int {
	r.host.Stop()
	return 0
}
