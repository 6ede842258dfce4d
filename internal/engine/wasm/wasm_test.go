package wasm

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/andrewimm/wasm-c64/internal/engine"
	"github.com/andrewimm/wasm-c64/internal/memory"
)

// Minimal WebAssembly binary encoder for building engine fixtures

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if done {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func vec(items ...[]byte) []byte {
	out := uleb(uint32(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func section(id byte, body []byte) []byte {
	return append(append([]byte{id}, uleb(uint32(len(body)))...), body...)
}

func cat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

const (
	i32 = 0x7f

	opEnd      = 0x0b
	opCall     = 0x10
	opLocalGet = 0x20
	opLoad     = 0x28
	opLoad8U   = 0x2d
	opStore    = 0x36
	opStore8   = 0x3a
	opConst    = 0x41
	opAdd      = 0x6a
)

func constI32(v int32) []byte { return append([]byte{opConst}, sleb(v)...) }
func local(i byte) []byte     { return []byte{opLocalGet, i} }

// Fixture memory layout
const (
	fixtureHandle    = 8
	fixtureBorder    = 16
	fixtureBG        = 17
	fixtureKeyDown   = 20
	fixtureKeyUp     = 21
	fixtureRunTotal  = 24
	fixtureStepCount = 28

	fixtureChar   = 0x1000
	fixtureRAM    = 0x2000
	fixtureColor  = 0x6000
	fixtureKernal = 0x7000
	fixtureBasic  = 0x9000
)

type fixtureFunc struct {
	export string
	typ    byte
	body   []byte // without trailing end
	noMem  []byte // body used when the module has no memory
}

// buildEngine assembles a module that imports env.console_log and exports the
// engine ABI. With memory, getters and mutators touch fixed fixture slots.
func buildEngine(withMemory bool, omit ...string) []byte {
	// Types: 0 ()->i32, 1 (i32)->(), 2 (i32,i32)->(), 3 (i32,i32)->i32, 4 (i32)->i32
	types := section(1, vec(
		[]byte{0x60, 0x00, 0x01, i32},
		[]byte{0x60, 0x01, i32, 0x00},
		[]byte{0x60, 0x02, i32, i32, 0x00},
		[]byte{0x60, 0x02, i32, i32, 0x01, i32},
		[]byte{0x60, 0x01, i32, 0x01, i32},
	))
	imports := section(2, vec(cat(name("env"), name("console_log"), []byte{0x00, 0x01})))

	counter := func(slot int32) []byte {
		return cat(constI32(slot), constI32(slot), []byte{opLoad, 2, 0}, constI32(1), []byte{opAdd, opStore, 2, 0})
	}
	funcs := []fixtureFunc{
		{"create_vm", 0, constI32(fixtureHandle), nil},
		{"reset", 1, cat(local(0), []byte{opCall, 0}), nil},
		{"step_vm", 1, counter(fixtureStepCount), []byte{}},
		{"run_vm", 2, cat(constI32(fixtureRunTotal), constI32(fixtureRunTotal), []byte{opLoad, 2, 0}, local(1), []byte{opAdd, opStore, 2, 0}), []byte{}},
		{"get_register", 3, cat(local(1), constI32(0x100), []byte{opAdd}), nil},
		{"get_border_color", 4, cat(constI32(fixtureBorder), []byte{opLoad8U, 0, 0}), constI32(0)},
		{"get_bg_color", 4, cat(constI32(fixtureBG), []byte{opLoad8U, 0, 0}), constI32(0)},
		{"get_char_pointer", 4, constI32(fixtureChar), nil},
		{"get_ram_pointer", 4, constI32(fixtureRAM), nil},
		{"get_color_pointer", 4, constI32(fixtureColor), nil},
		{"get_kernal_pointer", 4, constI32(fixtureKernal), nil},
		{"get_basic_pointer", 4, constI32(fixtureBasic), nil},
		{"keydown", 2, cat(constI32(fixtureKeyDown), local(1), []byte{opStore8, 0, 0}), []byte{}},
		{"keyup", 2, cat(constI32(fixtureKeyUp), local(1), []byte{opStore8, 0, 0}), []byte{}},
	}

	skip := make(map[string]bool)
	for _, o := range omit {
		skip[o] = true
	}

	var typeIdx, exports, codes [][]byte
	index := uint32(1) // function 0 is the import
	for _, f := range funcs {
		if skip[f.export] {
			continue
		}
		body := f.body
		if !withMemory && f.noMem != nil {
			body = f.noMem
		}
		code := cat([]byte{0x00}, body, []byte{opEnd}) // no locals
		typeIdx = append(typeIdx, []byte{f.typ})
		exports = append(exports, cat(name(f.export), []byte{0x00}, uleb(index)))
		codes = append(codes, cat(uleb(uint32(len(code))), code))
		index++
	}

	var mem []byte
	if withMemory {
		mem = section(5, vec([]byte{0x00, 0x01}))
		exports = append(exports, cat(name("memory"), []byte{0x02, 0x00}))
	}

	return cat(
		[]byte("\x00asm\x01\x00\x00\x00"),
		types,
		imports,
		section(3, vec(typeIdx...)),
		mem,
		section(7, vec(exports...)),
		section(10, vec(codes...)),
	)
}

func loadFixture(t *testing.T) *Session {
	t.Helper()
	ctx := context.Background()
	s, err := Load(ctx, buildEngine(true))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	t.Cleanup(func() { s.Close(ctx) })
	return s
}

func TestLoad_InvalidBytes_ShouldFailToCompile(t *testing.T) {
	_, err := Load(context.Background(), []byte("not a wasm module"))
	if err == nil {
		t.Fatal("expected compile error")
	}
	if !strings.Contains(err.Error(), "compile") {
		t.Errorf("expected compile failure, got %v", err)
	}
}

func TestLoad_EmptyModule_ShouldListMissingExports(t *testing.T) {
	_, err := Load(context.Background(), []byte("\x00asm\x01\x00\x00\x00"))
	if !errors.Is(err, ErrMissingExport) {
		t.Fatalf("expected ErrMissingExport, got %v", err)
	}
	for _, name := range requiredExports {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should name %s: %v", name, err)
		}
	}
}

func TestLoad_PartialModule_ShouldNameOnlyMissingExports(t *testing.T) {
	_, err := Load(context.Background(), buildEngine(true, "keyup", "get_basic_pointer"))
	if !errors.Is(err, ErrMissingExport) {
		t.Fatalf("expected ErrMissingExport, got %v", err)
	}
	if !strings.HasSuffix(err.Error(), "get_basic_pointer, keyup") {
		t.Errorf("unexpected missing list: %v", err)
	}
}

func TestLoad_WithoutMemory_ShouldFail(t *testing.T) {
	_, err := Load(context.Background(), buildEngine(false))
	if !errors.Is(err, ErrNoMemory) {
		t.Fatalf("expected ErrNoMemory, got %v", err)
	}
}

func TestSession_ShouldCallEngineExports(t *testing.T) {
	s := loadFixture(t)
	ctx := context.Background()

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	pc, err := s.Register(ctx, engine.RegisterPC)
	if err != nil {
		t.Fatal(err)
	}
	if pc != 0x105 {
		t.Errorf("expected register 5 to read 0x105, got %#x", pc)
	}

	mem := s.Memory()
	mem.Write(fixtureBorder, []byte{0x1E, 0x06})
	border, _ := s.BorderColor(ctx)
	bg, _ := s.BackgroundColor(ctx)
	if border != 14 || bg != 6 {
		t.Errorf("expected colors 14/6, got %d/%d", border, bg)
	}

	s.Advance(ctx, 50)
	s.Advance(ctx, 25)
	total, _ := mem.Read(fixtureRunTotal, 4)
	if got := binary.LittleEndian.Uint32(total); got != 75 {
		t.Errorf("expected 75 units advanced, got %d", got)
	}

	s.Step(ctx)
	s.Step(ctx)
	steps, _ := mem.Read(fixtureStepCount, 4)
	if got := binary.LittleEndian.Uint32(steps); got != 2 {
		t.Errorf("expected 2 steps, got %d", got)
	}

	s.KeyPressed(ctx, 10)
	s.KeyReleased(ctx, 60)
	keys, _ := mem.Read(fixtureKeyDown, 2)
	if keys[0] != 10 || keys[1] != 60 {
		t.Errorf("expected key slots 10/60, got %v", keys)
	}
}

func TestSession_OptionalExports_ShouldDefaultToZero(t *testing.T) {
	s := loadFixture(t)
	ctx := context.Background()

	bg2, bg3, err := s.BackgroundColors(ctx)
	if err != nil || bg2 != 0 || bg3 != 0 {
		t.Errorf("expected 0/0 without extended color exports, got %d/%d (%v)", bg2, bg3, err)
	}
	mode, err := s.DisplayMode(ctx)
	if err != nil || mode != 0 {
		t.Errorf("expected hires without mode export, got %d (%v)", mode, err)
	}
}

func TestSession_ScreenRegion_ShouldOffsetFromRAM(t *testing.T) {
	s := loadFixture(t)
	off, err := s.RegionOffset(context.Background(), engine.RegionScreen)
	if err != nil {
		t.Fatal(err)
	}
	if off != fixtureRAM+engine.ScreenRAMOffset {
		t.Errorf("expected screen at %#x, got %#x", fixtureRAM+engine.ScreenRAMOffset, off)
	}
}

func TestSession_ShouldBackMemoryBridge(t *testing.T) {
	s := loadFixture(t)
	b, err := memory.NewBridge(context.Background(), s)
	if err != nil {
		t.Fatalf("NewBridge failed: %v", err)
	}

	s.Memory().Write(fixtureRAM+engine.ScreenRAMOffset, []byte{0x08, 0x09})
	snap := b.Snapshot()
	if snap.Screen[0] != 0x08 || snap.Screen[1] != 0x09 {
		t.Errorf("bridge view should alias module memory, got %v", snap.Screen[:2])
	}
}

func TestFormatArgs_ShouldRenderBinaryForLogB(t *testing.T) {
	got := formatArgs("console_log_b", []api.ValueType{api.ValueTypeI32}, []uint64{5})
	if got != "101" {
		t.Errorf("expected 101, got %q", got)
	}
}
