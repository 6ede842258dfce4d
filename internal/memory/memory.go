// Package memory bridges the engine's linear memory to the display.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/andrewimm/wasm-c64/internal/display"
	"github.com/andrewimm/wasm-c64/internal/engine"
	"github.com/andrewimm/wasm-c64/internal/rom"
)

var (
	// ErrNullRegion is returned when the engine reports a zero offset for a region
	ErrNullRegion = errors.New("engine reported null region pointer")
	// ErrRegionOutOfBounds is returned when a region does not fit in engine memory
	ErrRegionOutOfBounds = errors.New("region exceeds engine memory")
)

// BridgeError describes a failure on a specific region
type BridgeError struct {
	Region engine.Region
	Err    error
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("memory bridge: %s region: %v", e.Region, e.Err)
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

// Bridge holds borrowed views over the engine's character generator, screen
// and color regions.
//
// Region offsets are resolved once and never change. The views themselves
// alias engine memory and are re-taken whenever the memory size changes,
// since growth may move the backing buffer.
type Bridge struct {
	mem     engine.Memory
	offsets map[engine.Region]uint32

	// Views and the memory size they were taken at
	viewSize  uint32
	character []byte
	screen    []byte
	color     []byte

	remaps int
}

// NewBridge resolves every region of the session and takes the initial views
func NewBridge(ctx context.Context, session engine.Session) (*Bridge, error) {
	mem := session.Memory()
	if mem == nil {
		return nil, errors.New("memory bridge: engine has no memory")
	}

	b := &Bridge{
		mem:     mem,
		offsets: make(map[engine.Region]uint32, len(engine.Regions)),
	}

	size := mem.Size()
	for _, region := range engine.Regions {
		offset, err := session.RegionOffset(ctx, region)
		if err != nil {
			return nil, &BridgeError{Region: region, Err: err}
		}
		if offset == 0 {
			return nil, &BridgeError{Region: region, Err: ErrNullRegion}
		}
		if uint64(offset)+uint64(region.Size()) > uint64(size) {
			return nil, &BridgeError{
				Region: region,
				Err:    fmt.Errorf("%w: offset %#x + %d bytes > memory size %d", ErrRegionOutOfBounds, offset, region.Size(), size),
			}
		}
		b.offsets[region] = offset
	}

	if err := b.takeViews(); err != nil {
		return nil, err
	}
	return b, nil
}

// Offset returns the resolved offset of a region
func (b *Bridge) Offset(region engine.Region) uint32 {
	return b.offsets[region]
}

// Remaps returns how many times the views were re-taken after a memory size change
func (b *Bridge) Remaps() int {
	return b.remaps
}

// InstallROMs copies the KERNAL, BASIC and character images into their
// regions byte for byte.
func (b *Bridge) InstallROMs(set rom.Set) error {
	if err := set.Validate(); err != nil {
		return fmt.Errorf("failed to install roms: %w", err)
	}

	installs := []struct {
		region engine.Region
		data   []byte
	}{
		{engine.RegionKernal, set.Kernal},
		{engine.RegionBasic, set.Basic},
		{engine.RegionCharacter, set.Character},
	}
	for _, in := range installs {
		if !b.mem.Write(b.offsets[in.region], in.data) {
			return &BridgeError{Region: in.region, Err: ErrRegionOutOfBounds}
		}
	}
	return nil
}

// Region returns a borrowed view of any region, valid until the next engine call
func (b *Bridge) Region(region engine.Region) ([]byte, error) {
	offset, ok := b.offsets[region]
	if !ok {
		return nil, &BridgeError{Region: region, Err: ErrNullRegion}
	}
	view, ok := b.mem.Read(offset, region.Size())
	if !ok {
		return nil, &BridgeError{Region: region, Err: ErrRegionOutOfBounds}
	}
	return view, nil
}

// Snapshot returns this frame's views of the three display regions.
// If the engine memory changed size since the views were taken they are
// re-read first. The slices must not be retained past the next engine call.
func (b *Bridge) Snapshot() display.Snapshot {
	if b.mem.Size() != b.viewSize {
		log.Printf("[BRIDGE] Engine memory resized from %d to %d bytes, re-reading views", b.viewSize, b.mem.Size())
		if err := b.takeViews(); err != nil {
			log.Printf("[BRIDGE] Failed to re-read views: %v", err)
			return display.Snapshot{}
		}
		b.remaps++
	}
	return display.Snapshot{
		CharacterGenerator: b.character,
		Screen:             b.screen,
		ColorAttributes:    b.color,
	}
}

func (b *Bridge) takeViews() error {
	size := b.mem.Size()
	views := []struct {
		region engine.Region
		dst    *[]byte
	}{
		{engine.RegionCharacter, &b.character},
		{engine.RegionScreen, &b.screen},
		{engine.RegionColor, &b.color},
	}
	for _, v := range views {
		view, ok := b.mem.Read(b.offsets[v.region], v.region.Size())
		if !ok {
			return &BridgeError{Region: v.region, Err: ErrRegionOutOfBounds}
		}
		*v.dst = view
	}
	b.viewSize = size
	return nil
}
