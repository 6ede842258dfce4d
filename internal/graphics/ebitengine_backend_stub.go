//go:build headless

package graphics

import "errors"

// ErrNoWindowSystem is returned by the window backend in headless builds
var ErrNoWindowSystem = errors.New("ebitengine backend not compiled in (built with -tags headless)")

// EbitengineBackend is a placeholder so headless builds still link CreateBackend
type EbitengineBackend struct{}

// NewEbitengineBackend returns the placeholder backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

func (b *EbitengineBackend) Initialize(Config) error { return ErrNoWindowSystem }

func (b *EbitengineBackend) CreateWindow(string, int, int) (Window, error) {
	return nil, ErrNoWindowSystem
}

func (b *EbitengineBackend) Cleanup() error   { return nil }
func (b *EbitengineBackend) IsHeadless() bool { return true }
func (b *EbitengineBackend) GetName() string  { return "Ebitengine (unavailable)" }
