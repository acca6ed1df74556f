package cache

import (
	"context"
	"time"
)

// Snapshot is what a consumer renders: the last value if any, plus flags.
// A failed refresh keeps the previous Data with IsError set.
type Snapshot[T any] struct {
	Data      T
	HasData   bool
	State     State
	IsLoading bool
	IsError   bool
	Err       error
	FetchedAt time.Time
}

// Query binds a key, a policy and a typed fetcher to a cache. Queries are
// cheap to create; two queries with the same key share one entry.
type Query[T any] struct {
	cache  *Cache
	key    Key
	policy Policy
	fetch  func(ctx context.Context) (T, error)
}

// NewQuery creates a query. A zero key makes the query inert.
func NewQuery[T any](c *Cache, key Key, p Policy, fetch func(ctx context.Context) (T, error)) *Query[T] {
	return &Query[T]{cache: c, key: key, policy: p, fetch: fetch}
}

// Key returns the query key
func (q *Query[T]) Key() Key { return q.key }

// Policy returns the query policy
func (q *Query[T]) Policy() Policy { return q.policy }

func (q *Query[T]) fetcher() Fetcher {
	return func(ctx context.Context) (any, error) {
		v, err := q.fetch(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Snapshot reads the current entry without fetching
func (q *Query[T]) Snapshot() Snapshot[T] {
	e, ok := q.cache.Peek(q.key)
	if !ok {
		return Snapshot[T]{State: StateIdle}
	}
	s := Snapshot[T]{
		State:     e.State,
		IsLoading: e.State == StateLoading,
		IsError:   e.Err != nil,
		Err:       e.Err,
		FetchedAt: e.FetchedAt,
	}
	if e.HasValue {
		if v, ok := e.Value.(T); ok {
			s.Data = v
			s.HasData = true
		}
	}
	return s
}

// Load fetches if needed and returns the resulting snapshot
func (q *Query[T]) Load(ctx context.Context) Snapshot[T] {
	if q.key.IsZero() {
		return Snapshot[T]{State: StateIdle}
	}
	_, _ = q.cache.Load(ctx, q.key, q.policy, q.fetcher())
	return q.Snapshot()
}

// Revalidate refetches regardless of the dedup window
func (q *Query[T]) Revalidate(ctx context.Context) Snapshot[T] {
	if q.key.IsZero() {
		return Snapshot[T]{State: StateIdle}
	}
	_, _ = q.cache.Revalidate(ctx, q.key, q.policy, q.fetcher())
	return q.Snapshot()
}

// Get is Load returning the value and error directly
func (q *Query[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if q.key.IsZero() {
		return zero, ErrNoKey
	}
	v, err := q.cache.Load(ctx, q.key, q.policy, q.fetcher())
	if err != nil {
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}

// Watch loads the query and calls fn with a fresh snapshot every time the
// entry changes, revalidating on the policy's refresh interval. It blocks
// until ctx is done; cancelling ctx is the unmount.
func (q *Query[T]) Watch(ctx context.Context, fn func(Snapshot[T])) {
	if q.key.IsZero() {
		fn(Snapshot[T]{State: StateIdle})
		<-ctx.Done()
		return
	}

	changed := make(chan struct{}, 1)
	unsubscribe := q.cache.Subscribe(q.key, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	if s := q.Snapshot(); s.State != StateIdle {
		fn(s)
	}
	go q.Load(ctx)

	var tick <-chan time.Time
	if q.policy.RefreshInterval > 0 {
		ticker := time.NewTicker(q.policy.RefreshInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
			fn(q.Snapshot())
		case <-tick:
			go q.Revalidate(ctx)
		}
	}
}
