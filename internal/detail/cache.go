// Package detail holds the single-slot lookahead cache for item display
// detail.
//
// After the session renders the item at position p it calls Prefetch for the
// item at p+1. When the next render asks for an item, the slot is consumed if
// its identity matches; anything else is a miss, which clears the slot and
// fetches synchronously. A prefetch superseded by a newer one, or by a miss for
// the same item, is discarded by a generation check. Since the slot is keyed by
// item, an entry is never served for the wrong item.
package detail

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/scry-kanji/internal/domain"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds each provider call when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Provider fetches display detail for one item.
type Provider interface {
	FetchDetail(ctx context.Context, itemID string) (*domain.Detail, error)
}

type entry struct {
	itemID string
	detail *domain.Detail
}

// Cache is the single-slot prefetch cache. It is safe for concurrent use.
type Cache struct {
	provider Provider
	logger   *slog.Logger
	metrics  *Metrics
	timeout  time.Duration
	prefetch bool

	mu         sync.Mutex
	slot       *entry
	generation uint64
	inflight   string // item of the current-generation prefetch, if any

	group singleflight.Group
	wg    sync.WaitGroup
}

// Option configures a Cache.
type Option func(*Cache)

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPrefetch enables or disables lookahead. A disabled cache fetches every
// render synchronously.
func WithPrefetch(enabled bool) Option {
	return func(c *Cache) { c.prefetch = enabled }
}

// WithMetrics overrides the metrics set.
func WithMetrics(m *Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// NewCache creates a Cache over provider.
func NewCache(provider Provider, logger *slog.Logger, opts ...Option) *Cache {
	if provider == nil {
		panic("provider cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		provider: provider,
		logger:   logger.With("component", "detail_cache"),
		timeout:  DefaultTimeout,
		prefetch: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics()
	}
	return c
}

// PrefetchEnabled reports whether lookahead is on.
func (c *Cache) PrefetchEnabled() bool {
	return c.prefetch
}

// Prefetch starts a background fetch of itemID and returns immediately.
// Any slot content or earlier in-flight prefetch is superseded.
func (c *Cache) Prefetch(itemID string) {
	if !c.prefetch || itemID == "" {
		return
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.slot = nil
	c.inflight = itemID
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		detail, err := c.fetch(ctx, itemID, "prefetch")

		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.generation {
			return
		}
		c.inflight = ""
		if err != nil {
			c.logger.Debug("prefetch failed", slog.String("item", itemID), slog.String("error", err.Error()))
			return
		}
		c.slot = &entry{itemID: itemID, detail: detail}
	}()
}

// Get returns display detail for itemID. A matching slot is consumed without a
// provider call; otherwise the slot is cleared and the detail is fetched
// synchronously. A prefetch of itemID still in flight is joined and will not
// refill the slot; one for another item is left to land. Fetch failures yield
// an unavailable detail, never an error.
func (c *Cache) Get(ctx context.Context, itemID string) *domain.Detail {
	c.mu.Lock()
	if c.slot != nil && c.slot.itemID == itemID {
		detail := c.slot.detail
		c.slot = nil
		c.mu.Unlock()
		c.metrics.RecordHit()
		return detail
	}
	c.slot = nil
	if c.inflight == itemID {
		c.generation++
		c.inflight = ""
	}
	c.mu.Unlock()

	c.metrics.RecordMiss()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	detail, err := c.fetch(ctx, itemID, "sync")
	if err != nil {
		c.logger.Warn("detail unavailable",
			slog.String("item", itemID),
			slog.String("error", err.Error()))
		return domain.UnavailableDetail(itemID)
	}
	return detail
}

// Peek reports whether the slot currently holds itemID.
func (c *Cache) Peek(itemID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot != nil && c.slot.itemID == itemID
}

// Wait blocks until every in-flight prefetch has finished.
func (c *Cache) Wait() {
	c.wg.Wait()
}

// fetch calls the provider, joining a concurrent call for the same item.
func (c *Cache) fetch(ctx context.Context, itemID, mode string) (*domain.Detail, error) {
	v, err, _ := c.group.Do(itemID, func() (interface{}, error) {
		start := time.Now()
		detail, err := c.provider.FetchDetail(ctx, itemID)
		if err == nil && detail == nil {
			err = fmt.Errorf("%w: empty response for %s", domain.ErrDetailUnavailable, itemID)
		}
		c.metrics.RecordFetch(mode, time.Since(start).Seconds(), err != nil)
		return detail, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Detail), nil
}
