// Package cache is the keyed, deduplicating, retrying store behind every
// portal query. Each entry records its value, last error, fetch time and
// state; the policy governing dedup, refresh and retry is passed per call.
package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/portal/storage"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "cache").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l
}

// ErrNoKey is returned when loading a gated query
var ErrNoKey = errors.New("cache: query has no key")

// Fetcher produces the value of one entry
type Fetcher func(ctx context.Context) (any, error)

// Entry is the cached record of one key
type Entry struct {
	Value     any
	HasValue  bool
	Err       error
	FetchedAt time.Time
	UpdatedAt time.Time
	State     State
}

// Cache holds entries for the lifetime of the process. Entries are evicted
// only by Sweep.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	group    singleflight.Group
	broker   *storage.Broker
	now      func() time.Time
	newTimer func() backoff.Timer
	metrics  *Metrics
}

// Option configures a Cache
type Option func(*Cache)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithTimer replaces the timer that waits between retry attempts. newTimer
// is called once per load.
func WithTimer(newTimer func() backoff.Timer) Option {
	return func(c *Cache) { c.newTimer = newTimer }
}

// WithMetrics records cache activity
func WithMetrics(m *Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New creates an empty cache
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]*Entry),
		broker:  storage.NewBroker(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Peek returns a copy of the entry for key without fetching
func (c *Cache) Peek(key Key) (Entry, bool) {
	if key.IsZero() {
		return Entry{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Subscribe calls fn whenever the entry for key changes state
func (c *Cache) Subscribe(key Key, fn func()) func() {
	return c.broker.Subscribe(key.String(), fn)
}

// Load returns the value for key. A ready entry younger than the dedup
// window is returned as is; otherwise concurrent callers share a single
// fetch. The caller's ctx only bounds its own wait: a shared fetch keeps
// running for the other callers when one of them gives up.
func (c *Cache) Load(ctx context.Context, key Key, p Policy, fetch Fetcher) (any, error) {
	return c.load(ctx, key, p, fetch, false)
}

// Revalidate is Load bypassing the dedup window
func (c *Cache) Revalidate(ctx context.Context, key Key, p Policy, fetch Fetcher) (any, error) {
	return c.load(ctx, key, p, fetch, true)
}

func (c *Cache) load(ctx context.Context, key Key, p Policy, fetch Fetcher, force bool) (any, error) {
	if key.IsZero() {
		return nil, ErrNoKey
	}
	k := key.String()

	c.mu.Lock()
	if e := c.entries[k]; !force && e != nil && e.State == StateReady && c.now().Sub(e.FetchedAt) < p.DedupWindow {
		v := e.Value
		c.mu.Unlock()
		c.metrics.hit()
		return v, nil
	}
	c.mu.Unlock()
	c.metrics.miss()

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(k, func() (any, error) {
		return c.run(fetchCtx, k, p, fetch)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run performs the fetch with the policy's retries and records the outcome
func (c *Cache) run(ctx context.Context, k string, p Policy, fetch Fetcher) (any, error) {
	c.update(k, func(e *Entry) {
		e.State = StateLoading
	})

	b := &policyBackOff{policy: p}
	operation := func() (any, error) {
		v, err := fetch(ctx)
		c.metrics.fetched(err)
		if err == nil {
			return v, nil
		}
		b.last = err
		if !p.retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	notify := func(err error, delay time.Duration) {
		log.Debug().
			Err(err).
			Str("key", k).
			Dur("delay", delay).
			Msg("Fetch failed, retrying")
	}

	var timer backoff.Timer
	if c.newTimer != nil {
		timer = c.newTimer()
	}
	retries := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.attempts()-1)), ctx)
	v, err := backoff.RetryNotifyWithTimerAndData(operation, retries, notify, timer)
	if err == nil {
		c.update(k, func(e *Entry) {
			e.Value = v
			e.HasValue = true
			e.Err = nil
			e.FetchedAt = c.now()
			e.State = StateReady
		})
		return v, nil
	}

	log.Warn().Err(err).Str("key", k).Msg("Fetch failed")
	c.update(k, func(e *Entry) {
		e.Err = err
		e.State = StateError
	})
	return nil, err
}

func (c *Cache) update(k string, fn func(e *Entry)) {
	c.mu.Lock()
	e := c.entries[k]
	if e == nil {
		e = &Entry{}
		c.entries[k] = e
	}
	fn(e)
	e.UpdatedAt = c.now()
	c.mu.Unlock()

	c.broker.Publish(k)
}

// Sweep removes entries that have not changed for longer than maxAge and
// are not being loaded. It returns the number of evicted entries.
func (c *Cache) Sweep(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for k, e := range c.entries {
		if e.State == StateLoading {
			continue
		}
		if now.Sub(e.UpdatedAt) > maxAge {
			delete(c.entries, k)
			evicted++
		}
	}
	c.metrics.evicted(evicted)
	return evicted
}

// StartJanitor sweeps every interval until ctx is done
func (c *Cache) StartJanitor(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.Sweep(maxAge); n > 0 {
					log.Debug().Int("evicted", n).Msg("Swept stale cache entries")
				}
			}
		}
	}()
}
