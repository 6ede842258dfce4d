// Package input routes host keyboard events into the emulated keyboard matrix.
package input

import (
	"context"
	"fmt"
	"log"
)

// KeySink receives keyboard matrix transitions. engine.Session satisfies it.
type KeySink interface {
	KeyPressed(ctx context.Context, code uint8) error
	KeyReleased(ctx context.Context, code uint8) error
}

// Router forwards press and release transitions for mapped host keys
type Router struct {
	sink  KeySink
	table map[string]MatrixCode

	// Keys currently held down, by host identifier
	held map[string]MatrixCode

	debugEnabled bool
}

// NewRouter creates a router using the default KeyMap
func NewRouter(sink KeySink) *Router {
	return NewRouterWithTable(sink, KeyMap)
}

// NewRouterWithTable creates a router using a custom identifier table
func NewRouterWithTable(sink KeySink, table map[string]MatrixCode) *Router {
	return &Router{
		sink:  sink,
		table: table,
		held:  make(map[string]MatrixCode),
	}
}

// SetDebug enables per-event logging
func (r *Router) SetDebug(enabled bool) {
	r.debugEnabled = enabled
}

// Code returns the matrix code for a host key identifier
func (r *Router) Code(id string) (MatrixCode, bool) {
	code, ok := r.table[id]
	return code, ok
}

// KeyDown forwards a press for a mapped identifier. Unmapped identifiers are
// ignored; handled reports whether the host should suppress its own handling.
func (r *Router) KeyDown(ctx context.Context, id string) (handled bool, err error) {
	code, ok := r.table[id]
	if !ok {
		return false, nil
	}
	if r.debugEnabled {
		log.Printf("[INPUT] key down %s -> %d", id, code)
	}
	if err := r.sink.KeyPressed(ctx, code); err != nil {
		return true, fmt.Errorf("failed to press %s: %w", id, err)
	}
	r.held[id] = code
	return true, nil
}

// KeyUp forwards a release for a mapped identifier
func (r *Router) KeyUp(ctx context.Context, id string) (handled bool, err error) {
	code, ok := r.table[id]
	if !ok {
		return false, nil
	}
	if r.debugEnabled {
		log.Printf("[INPUT] key up %s -> %d", id, code)
	}
	delete(r.held, id)
	if err := r.sink.KeyReleased(ctx, code); err != nil {
		return true, fmt.Errorf("failed to release %s: %w", id, err)
	}
	return true, nil
}

// Held returns the number of mapped keys currently down
func (r *Router) Held() int {
	return len(r.held)
}

// ReleaseAll releases every held key, e.g. when the host window loses focus
// and the matching key-up events will never arrive.
func (r *Router) ReleaseAll(ctx context.Context) error {
	for id, code := range r.held {
		delete(r.held, id)
		if err := r.sink.KeyReleased(ctx, code); err != nil {
			return fmt.Errorf("failed to release %s: %w", id, err)
		}
	}
	return nil
}
