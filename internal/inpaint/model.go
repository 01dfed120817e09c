// Package inpaint owns the inpainting model lifecycle: lazily constructed,
// device scoped engines kept in a bounded LRU cache, and the model backends
// those engines run.
package inpaint

import (
	"context"
	"errors"
	"image"
)

// Model is a constructed inpainting network bound to one device. Inpaint
// receives zero-origin bitmaps of equal size and must not retain them.
// Implementations that cannot be invoked concurrently must say so through
// ConcurrentSafe; the engine then serialises calls.
type Model interface {
	Inpaint(ctx context.Context, img *image.NRGBA, mask *image.Gray) (image.Image, error)
	Close() error
}

// Factory constructs a model for a device. It is called lazily, at most
// once per successful engine initialisation.
type Factory func(ctx context.Context, device string) (Model, error)

// concurrencyReporter is implemented by models that are safe for concurrent
// Inpaint calls.
type concurrencyReporter interface {
	ConcurrentSafe() bool
}

var (
	ErrEngineClosed      = errors.New("inpaint: engine is closed")
	ErrUnsupportedDevice = errors.New("inpaint: device not supported by backend")
	ErrMaskSize          = errors.New("inpaint: mask size does not match image")
)
