package inpaint

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/watermarkremover/internal/domain"
)

// Cache keeps at most size engines, one per device, evicting the least
// recently used. Evicted engines are closed once the cache lock is released.
type Cache struct {
	mu             sync.Mutex
	engines        *lru.Cache[string, *Engine]
	evicted        []*Engine
	factory        Factory
	concurrentSafe bool
}

func NewCache(size int, factory Factory, concurrentSafe bool) (*Cache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("inpaint: cache size must be positive, got %d", size)
	}
	if factory == nil {
		return nil, fmt.Errorf("inpaint: factory is required")
	}

	c := &Cache{factory: factory, concurrentSafe: concurrentSafe}
	engines, err := lru.NewWithEvict(size, func(device string, e *Engine) {
		// runs under c.mu
		c.evicted = append(c.evicted, e)
	})
	if err != nil {
		return nil, fmt.Errorf("inpaint: create cache: %w", err)
	}
	c.engines = engines
	return c, nil
}

// Get returns the engine for device, creating it on first use. The engine
// builds its model lazily on its first Inpaint call.
func (c *Cache) Get(device string) *Engine {
	c.mu.Lock()
	e, ok := c.engines.Get(device)
	if !ok {
		e = NewEngine(device, c.factory, c.concurrentSafe)
		c.engines.Add(device, e)
		zlog.Logger.Debug().Str("device", device).Msg("inpainting engine created")
	}
	evicted := c.takeEvicted()
	c.mu.Unlock()

	c.closeAll(evicted)
	return e
}

// Engine implements domain.EngineProvider.
func (c *Cache) Engine(device string) (domain.Inpainter, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil, &domain.ValidationError{Field: "device", Reason: "must not be empty"}
	}
	return c.Get(device), nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engines.Len()
}

// Close evicts and closes every cached engine.
func (c *Cache) Close() error {
	c.mu.Lock()
	c.engines.Purge()
	evicted := c.takeEvicted()
	c.mu.Unlock()

	return c.closeAll(evicted)
}

func (c *Cache) takeEvicted() []*Engine {
	evicted := c.evicted
	c.evicted = nil
	return evicted
}

func (c *Cache) closeAll(engines []*Engine) error {
	var errs []error
	for _, e := range engines {
		zlog.Logger.Info().Str("device", e.Device()).Msg("evicting inpainting engine")
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
