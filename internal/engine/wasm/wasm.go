// Package wasm hosts the separately compiled C64 engine module with wazero.
package wasm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/andrewimm/wasm-c64/internal/engine"
)

var (
	// ErrMissingExport is returned when the module lacks required exports
	ErrMissingExport = errors.New("engine module is missing exports")
	// ErrNoMemory is returned when the module does not export a linear memory
	ErrNoMemory = errors.New("engine module exports no memory")
)

// HostModule is the import namespace the engine's console functions live in
const HostModule = "env"

// Export names used by the engine module
const (
	exportCreate      = "create_vm"
	exportReset       = "reset"
	exportStep        = "step_vm"
	exportRun         = "run_vm"
	exportRegister    = "get_register"
	exportBorder      = "get_border_color"
	exportBackground  = "get_bg_color"
	exportBackground2 = "get_bg_color_2"
	exportBackground3 = "get_bg_color_3"
	exportMode        = "get_display_mode"
	exportChar        = "get_char_pointer"
	exportRAM         = "get_ram_pointer"
	exportColor       = "get_color_pointer"
	exportKernal      = "get_kernal_pointer"
	exportBasic       = "get_basic_pointer"
	exportKeyDown     = "keydown"
	exportKeyUp       = "keyup"
)

var requiredExports = []string{
	exportCreate, exportReset, exportStep, exportRun, exportRegister,
	exportBorder, exportBackground,
	exportChar, exportRAM, exportColor, exportKernal, exportBasic,
	exportKeyDown, exportKeyUp,
}

// Session is one engine instance inside a wazero runtime
type Session struct {
	runtime wazero.Runtime
	module  api.Module
	handle  uint64

	fns map[string]api.Function
}

// Load compiles and instantiates the engine module and creates one VM.
// Cancelling ctx aborts the load and any engine call made with it.
func Load(ctx context.Context, wasmBytes []byte) (*Session, error) {
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))

	s, err := load(ctx, r, wasmBytes)
	if err != nil {
		r.Close(context.Background())
		return nil, err
	}
	return s, nil
}

func load(ctx context.Context, r wazero.Runtime, wasmBytes []byte) (*Session, error) {
	compiled, err := r.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile engine module: %w", err)
	}

	if err := linkHostImports(ctx, r, compiled); err != nil {
		return nil, err
	}

	mod, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("c64").WithStartFunctions())
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate engine module: %w", err)
	}

	s := &Session{
		runtime: r,
		module:  mod,
		fns:     make(map[string]api.Function),
	}

	var missing []string
	for _, name := range requiredExports {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			missing = append(missing, name)
			continue
		}
		s.fns[name] = fn
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingExport, strings.Join(missing, ", "))
	}
	for _, name := range []string{exportBackground2, exportBackground3, exportMode} {
		if fn := mod.ExportedFunction(name); fn != nil {
			s.fns[name] = fn
		}
	}
	if mod.Memory() == nil {
		return nil, ErrNoMemory
	}

	results, err := s.fns[exportCreate].Call(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vm: %w", err)
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("failed to create vm: %s returned %d values", exportCreate, len(results))
	}
	s.handle = results[0]
	log.Printf("[WASM] Engine instantiated, vm handle %#x, memory %d bytes", api.DecodeU32(s.handle), mod.Memory().Size())
	return s, nil
}

// linkHostImports satisfies every function the module imports from HostModule.
// Signatures are taken from the module itself so any numeric arguments link.
func linkHostImports(ctx context.Context, r wazero.Runtime, compiled wazero.CompiledModule) error {
	builder := r.NewHostModuleBuilder(HostModule)
	count := 0
	for _, def := range compiled.ImportedFunctions() {
		moduleName, name, isImport := def.Import()
		if !isImport || moduleName != HostModule {
			continue
		}
		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(consoleFunc(name, def.ParamTypes(), len(def.ResultTypes())), def.ParamTypes(), def.ResultTypes()).
			Export(name)
		count++
	}
	if count == 0 {
		return nil
	}
	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("failed to link %s imports: %w", HostModule, err)
	}
	return nil
}

func consoleFunc(name string, params []api.ValueType, results int) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		args := formatArgs(name, params, stack)
		switch name {
		case "console_error":
			log.Printf("[WASM] error: %s", args)
		default:
			log.Printf("[WASM] %s", args)
		}
		for i := 0; i < results; i++ {
			stack[i] = 0
		}
	}
}

// formatArgs renders arguments the way the engine's console helpers expect:
// console_log_b prints binary, everything else decimal.
func formatArgs(name string, params []api.ValueType, stack []uint64) string {
	parts := make([]string, 0, len(params))
	for i, t := range params {
		if i >= len(stack) {
			break
		}
		var v int64
		switch t {
		case api.ValueTypeI32:
			v = int64(api.DecodeI32(stack[i]))
		case api.ValueTypeF32:
			parts = append(parts, strconv.FormatFloat(float64(api.DecodeF32(stack[i])), 'g', -1, 32))
			continue
		case api.ValueTypeF64:
			parts = append(parts, strconv.FormatFloat(api.DecodeF64(stack[i]), 'g', -1, 64))
			continue
		default:
			v = int64(stack[i])
		}
		if name == "console_log_b" {
			parts = append(parts, strconv.FormatUint(uint64(v)&0xFFFFFFFF, 2))
		} else {
			parts = append(parts, strconv.FormatInt(v, 10))
		}
	}
	return strings.Join(parts, " ")
}

func (s *Session) call(ctx context.Context, name string, params ...uint64) (uint64, error) {
	fn, ok := s.fns[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingExport, name)
	}
	args := append([]uint64{s.handle}, params...)
	results, err := fn.Call(ctx, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0], nil
}

func (s *Session) Reset(ctx context.Context) error {
	_, err := s.call(ctx, exportReset)
	return err
}

func (s *Session) Step(ctx context.Context) error {
	_, err := s.call(ctx, exportStep)
	return err
}

func (s *Session) Advance(ctx context.Context, units uint32) error {
	_, err := s.call(ctx, exportRun, api.EncodeU32(units))
	return err
}

func (s *Session) Register(ctx context.Context, r engine.Register) (uint16, error) {
	v, err := s.call(ctx, exportRegister, api.EncodeU32(uint32(r)))
	return uint16(api.DecodeU32(v)), err
}

func (s *Session) color(ctx context.Context, name string) (uint8, error) {
	v, err := s.call(ctx, name)
	return uint8(api.DecodeU32(v)) & 0x0F, err
}

func (s *Session) BorderColor(ctx context.Context) (uint8, error) {
	return s.color(ctx, exportBorder)
}

func (s *Session) BackgroundColor(ctx context.Context) (uint8, error) {
	return s.color(ctx, exportBackground)
}

// BackgroundColors returns the multicolor background registers, or zero
// when the module predates them.
func (s *Session) BackgroundColors(ctx context.Context) (uint8, uint8, error) {
	if _, ok := s.fns[exportBackground2]; !ok {
		return 0, 0, nil
	}
	bg2, err := s.color(ctx, exportBackground2)
	if err != nil {
		return 0, 0, err
	}
	if _, ok := s.fns[exportBackground3]; !ok {
		return bg2, 0, nil
	}
	bg3, err := s.color(ctx, exportBackground3)
	return bg2, bg3, err
}

// DisplayMode returns 0 (hires) when the module does not report a mode
func (s *Session) DisplayMode(ctx context.Context) (uint8, error) {
	if _, ok := s.fns[exportMode]; !ok {
		return 0, nil
	}
	v, err := s.call(ctx, exportMode)
	return uint8(api.DecodeU32(v)), err
}

func (s *Session) RegionOffset(ctx context.Context, r engine.Region) (uint32, error) {
	var name string
	var base uint32
	switch r {
	case engine.RegionCharacter:
		name = exportChar
	case engine.RegionScreen:
		name, base = exportRAM, engine.ScreenRAMOffset
	case engine.RegionColor:
		name = exportColor
	case engine.RegionKernal:
		name = exportKernal
	case engine.RegionBasic:
		name = exportBasic
	default:
		return 0, fmt.Errorf("unknown region %s", r)
	}
	v, err := s.call(ctx, name)
	if err != nil {
		return 0, err
	}
	ptr := api.DecodeU32(v)
	if ptr == 0 {
		return 0, nil
	}
	return ptr + base, nil
}

func (s *Session) KeyPressed(ctx context.Context, code uint8) error {
	_, err := s.call(ctx, exportKeyDown, api.EncodeU32(uint32(code)))
	return err
}

func (s *Session) KeyReleased(ctx context.Context, code uint8) error {
	_, err := s.call(ctx, exportKeyUp, api.EncodeU32(uint32(code)))
	return err
}

// Memory returns the module's linear memory. wazero's Read already returns
// a view into the live buffer.
func (s *Session) Memory() engine.Memory {
	return s.module.Memory()
}

// Close releases the runtime and everything instantiated in it
func (s *Session) Close(ctx context.Context) error {
	return s.runtime.Close(ctx)
}

var (
	_ engine.Session        = (*Session)(nil)
	_ engine.ExtendedColors = (*Session)(nil)
	_ engine.ModeReporter   = (*Session)(nil)
)
