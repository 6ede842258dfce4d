package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/andrewimm/wasm-c64/internal/engine"
	"github.com/andrewimm/wasm-c64/internal/engine/enginetest"
	"github.com/andrewimm/wasm-c64/internal/rom"
)

func fill(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}

func TestNewBridge_ShouldResolveRegions(t *testing.T) {
	session := enginetest.New()
	b, err := NewBridge(context.Background(), session)
	if err != nil {
		t.Fatalf("NewBridge failed: %v", err)
	}
	for _, r := range engine.Regions {
		if b.Offset(r) != session.Offsets[r] {
			t.Errorf("%s: expected offset %#x, got %#x", r, session.Offsets[r], b.Offset(r))
		}
	}

	snap := b.Snapshot()
	if len(snap.CharacterGenerator) != 4096 || len(snap.Screen) != 1000 || len(snap.ColorAttributes) != 1024 {
		t.Errorf("unexpected view sizes: %d %d %d", len(snap.CharacterGenerator), len(snap.Screen), len(snap.ColorAttributes))
	}
}

func TestNewBridge_ShouldRejectNullPointer(t *testing.T) {
	session := enginetest.New()
	session.Offsets[engine.RegionColor] = 0

	_, err := NewBridge(context.Background(), session)
	if !errors.Is(err, ErrNullRegion) {
		t.Fatalf("expected ErrNullRegion, got %v", err)
	}
	var be *BridgeError
	if !errors.As(err, &be) || be.Region != engine.RegionColor {
		t.Errorf("expected error for color region, got %v", err)
	}
}

func TestNewBridge_ShouldRejectSmallMemory(t *testing.T) {
	session := enginetest.New()
	session.Offsets[engine.RegionBasic] = enginetest.DefaultMemorySize - 100

	_, err := NewBridge(context.Background(), session)
	if !errors.Is(err, ErrRegionOutOfBounds) {
		t.Fatalf("expected ErrRegionOutOfBounds, got %v", err)
	}
}

func TestSnapshot_ShouldAliasEngineMemory(t *testing.T) {
	session := enginetest.New()
	b, err := NewBridge(context.Background(), session)
	if err != nil {
		t.Fatal(err)
	}
	snap := b.Snapshot()

	session.Region(engine.RegionScreen)[10] = 0x42
	if snap.Screen[10] != 0x42 {
		t.Error("snapshot view should observe engine writes without copying")
	}
}

func TestSnapshot_ShouldRereadViewsAfterGrowth(t *testing.T) {
	session := enginetest.New()
	b, err := NewBridge(context.Background(), session)
	if err != nil {
		t.Fatal(err)
	}
	stale := b.Snapshot()

	session.Mem.Grow(0x10000)
	session.Region(engine.RegionScreen)[3] = 0x99

	if stale.Screen[3] == 0x99 {
		t.Fatal("stale view unexpectedly observed write to grown memory")
	}
	fresh := b.Snapshot()
	if fresh.Screen[3] != 0x99 {
		t.Error("snapshot after growth should read the new backing buffer")
	}
	if b.Remaps() != 1 {
		t.Errorf("expected 1 remap, got %d", b.Remaps())
	}

	b.Snapshot()
	if b.Remaps() != 1 {
		t.Errorf("unchanged memory should not remap again, got %d", b.Remaps())
	}
}

func TestInstallROMs_ShouldCopyExactBytes(t *testing.T) {
	session := enginetest.New()
	b, err := NewBridge(context.Background(), session)
	if err != nil {
		t.Fatal(err)
	}

	set := rom.Set{
		Character: fill(0x1000, 1),
		Kernal:    fill(0x2000, 2),
		Basic:     fill(0x2000, 3),
	}
	if err := b.InstallROMs(set); err != nil {
		t.Fatalf("InstallROMs failed: %v", err)
	}

	if !bytes.Equal(session.Region(engine.RegionKernal), set.Kernal) {
		t.Error("kernal region differs from image")
	}
	if !bytes.Equal(session.Region(engine.RegionBasic), set.Basic) {
		t.Error("basic region differs from image")
	}
	if !bytes.Equal(b.Snapshot().CharacterGenerator, set.Character) {
		t.Error("character region differs from image")
	}
}

func TestInstallROMs_ShouldRejectWrongSize(t *testing.T) {
	session := enginetest.New()
	b, err := NewBridge(context.Background(), session)
	if err != nil {
		t.Fatal(err)
	}

	err = b.InstallROMs(rom.Set{Character: fill(10, 0), Kernal: fill(0x2000, 0), Basic: fill(0x2000, 0)})
	if !errors.Is(err, rom.ErrSize) {
		t.Fatalf("expected rom.ErrSize, got %v", err)
	}
	if session.Region(engine.RegionKernal)[1] != 0 {
		t.Error("no image should be written when validation fails")
	}
}

func TestRegion_ShouldExposeROMMirrors(t *testing.T) {
	session := enginetest.New()
	b, err := NewBridge(context.Background(), session)
	if err != nil {
		t.Fatal(err)
	}
	view, err := b.Region(engine.RegionKernal)
	if err != nil {
		t.Fatal(err)
	}
	if len(view) != 0x2000 {
		t.Errorf("expected 8192 byte view, got %d", len(view))
	}
}
