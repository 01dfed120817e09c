package inpaint

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/singleflight"

	"github.com/yokitheyo/watermarkremover/internal/domain"
	"github.com/yokitheyo/watermarkremover/internal/infrastructure/processor"
)

// Engine wraps a lazily constructed Model for one device.
//
// The model is built on the first Inpaint call. Concurrent first calls share a
// single construction attempt; if it fails every waiting caller gets
// domain.ErrModelUnavailable and the next call tries again.
type Engine struct {
	device  string
	factory Factory

	model  atomic.Pointer[modelHolder]
	initMu sync.Mutex
	group  singleflight.Group
	closed atomic.Bool

	// gate serialises Inpaint on models that are not concurrency safe and
	// keeps Close from racing an in-flight call.
	gate           sync.RWMutex
	concurrentSafe bool
}

type modelHolder struct {
	Model
	serial bool
}

// NewEngine returns an engine for device. No model is built until the first
// Inpaint call. When concurrentSafe is false every call is serialised unless
// the model itself reports that it is safe.
func NewEngine(device string, factory Factory, concurrentSafe bool) *Engine {
	return &Engine{
		device:         device,
		factory:        factory,
		concurrentSafe: concurrentSafe,
	}
}

func (e *Engine) Device() string {
	return e.device
}

// Initialized reports whether the model has been constructed.
func (e *Engine) Initialized() bool {
	return e.model.Load() != nil
}

func (e *Engine) ensureModel(ctx context.Context) (*modelHolder, error) {
	if h := e.model.Load(); h != nil {
		return h, nil
	}

	v, err, _ := e.group.Do(e.device, func() (any, error) {
		e.initMu.Lock()
		defer e.initMu.Unlock()

		if h := e.model.Load(); h != nil {
			return h, nil
		}
		if e.closed.Load() {
			return nil, ErrEngineClosed
		}

		start := time.Now()
		// construction outlives the caller that triggered it
		m, err := e.factory(context.WithoutCancel(ctx), e.device)
		if err != nil {
			zlog.Logger.Error().
				Err(err).
				Str("device", e.device).
				Msg("failed to construct inpainting model")
			return nil, err
		}

		h := &modelHolder{Model: m, serial: !e.concurrentSafe}
		if r, ok := m.(concurrencyReporter); ok && r.ConcurrentSafe() {
			h.serial = false
		}
		e.model.Store(h)

		zlog.Logger.Info().
			Str("device", e.device).
			Bool("serial", h.serial).
			Dur("duration", time.Since(start)).
			Msg("inpainting model initialized")
		return h, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: device %s: %w", domain.ErrModelUnavailable, e.device, err)
	}
	return v.(*modelHolder), nil
}

// Inpaint runs the model on img with mask. It blocks for the duration of the
// inference and must be called from a worker, not from request scheduling.
func (e *Engine) Inpaint(ctx context.Context, img image.Image, mask *image.Gray) (image.Image, error) {
	if e.closed.Load() {
		return nil, fmt.Errorf("%w: %w", domain.ErrModelUnavailable, ErrEngineClosed)
	}
	if img.Bounds().Size() != mask.Bounds().Size() {
		return nil, fmt.Errorf("%w: image %v, mask %v", ErrMaskSize, img.Bounds().Size(), mask.Bounds().Size())
	}

	h, err := e.ensureModel(ctx)
	if err != nil {
		return nil, err
	}

	if h.serial {
		e.gate.Lock()
		defer e.gate.Unlock()
	} else {
		e.gate.RLock()
		defer e.gate.RUnlock()
	}

	// Close may have run while we waited on the gate
	if e.closed.Load() {
		return nil, fmt.Errorf("%w: %w", domain.ErrModelUnavailable, ErrEngineClosed)
	}

	rgb := processor.ToRGB(img)
	out, err := h.Inpaint(ctx, rgb, mask)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("model returned no image")
	}
	return out, nil
}

// Close releases the model once in-flight calls have finished. Later calls
// fail with domain.ErrModelUnavailable.
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}

	e.initMu.Lock()
	defer e.initMu.Unlock()
	e.gate.Lock()
	defer e.gate.Unlock()

	h := e.model.Swap(nil)
	if h == nil {
		return nil
	}
	if err := h.Close(); err != nil {
		zlog.Logger.Error().Err(err).Str("device", e.device).Msg("failed to release inpainting model")
		return fmt.Errorf("close model for %s: %w", e.device, err)
	}
	zlog.Logger.Info().Str("device", e.device).Msg("inpainting model released")
	return nil
}
