// Package cache provides a process-wide read-through cache with per-entry TTL,
// explicit invalidation and collapsing of concurrent misses.
//
// Entries live in a bounded LRU. A miss computes the value through the caller's
// function; concurrent misses for the same key share one computation. Errors
// are never cached.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Chirantan-Dey/quiz-master/internal/config"
)

// Well-known keys.
const (
	KeySubjectList  = "subject_list"
	KeySubjectStats = "subject_stats"
	prefixScores    = "scores:"
)

// ScoresKey returns the key of one account's score list.
func ScoresKey(accountID int64) string {
	return prefixScores + strconv.FormatInt(accountID, 10)
}

type entry struct {
	value     any
	expiresAt time.Time
}

// pending tracks the callers currently missing on one key.
type pending struct {
	// gen advances on every invalidation of the key. A computation started
	// under an older generation neither stores its result nor accepts new
	// joiners.
	gen     uint64
	callers int
}

// Cache is safe for concurrent use.
type Cache struct {
	log     *slog.Logger
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
	group   singleflight.Group

	mu      sync.Mutex
	entries *lru.Cache[string, entry]
	pending map[string]*pending
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithComputeTimeout bounds every computation. Zero leaves it unbounded.
func WithComputeTimeout(d time.Duration) Option {
	return func(c *Cache) { c.timeout = d }
}

// New creates a cache bounded to cfg.MaxKeys entries.
func New(cfg config.CacheConfig, log *slog.Logger, opts ...Option) (*Cache, error) {
	entries, err := lru.New[string, entry](cfg.MaxKeys)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	c := &Cache{
		log:     log.With("component", "cache"),
		ttl:     cfg.TTL,
		now:     time.Now,
		entries: entries,
		pending: make(map[string]*pending),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetOrCompute returns the cached value for key or computes, stores and
// returns it. A zero ttl uses the configured default.
//
// The computation ignores the caller's cancellation and is bounded by the
// compute timeout instead. Each caller stops waiting when its own ctx ends.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) (any, error)) (any, error) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	if e, ok := c.entries.Get(key); ok {
		if c.now().Before(e.expiresAt) {
			c.mu.Unlock()
			return e.value, nil
		}
		c.entries.Remove(key)
	}
	p, ok := c.pending[key]
	if !ok {
		p = &pending{}
		c.pending[key] = p
	}
	p.callers++
	gen := p.gen
	c.mu.Unlock()

	flight := strconv.FormatUint(gen, 10) + "|" + key
	ch := c.group.DoChan(flight, func() (value any, err error) {
		cctx, cancel := c.computeContext(ctx)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				value, err = nil, fmt.Errorf("cache: compute %q panicked: %v", key, r)
			}
		}()

		value, err = fn(cctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if p.gen == gen {
			c.entries.Add(key, entry{value: value, expiresAt: c.now().Add(ttl)})
		}
		c.mu.Unlock()
		return value, nil
	})

	select {
	case res := <-ch:
		c.release(key, p)
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.log.DebugContext(ctx, "cache miss collapsed", slog.String("key", key))
		}
		return res.Val, nil
	case <-ctx.Done():
		// The key stays pending until the shared computation ends.
		go func() {
			<-ch
			c.release(key, p)
		}()
		return nil, ctx.Err()
	}
}

func (c *Cache) release(key string, p *pending) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p.callers--; p.callers == 0 {
		delete(c.pending, key)
	}
}

func (c *Cache) computeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Invalidate removes key. Any read after Invalidate returns observes a value
// computed after it.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pending[key]; ok {
		p.gen++
	}
	c.entries.Remove(key)
}

// InvalidatePrefix removes every key starting with prefix.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, p := range c.pending {
		if strings.HasPrefix(k, prefix) {
			p.gen++
		}
	}
	for _, k := range c.entries.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.entries.Remove(k)
		}
	}
}

// InvalidateScores drops the score lists of every account.
func (c *Cache) InvalidateScores() {
	c.InvalidatePrefix(prefixScores)
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Fetch is the typed form of GetOrCompute.
func Fetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.GetOrCompute(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: key %q holds %T", key, v)
	}
	return t, nil
}
