package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection settings of a RedisStore
type RedisConfig struct {
	URL      string `toml:"url"`
	Password string `toml:"password"`
	// Prefix namespaces keys and channels, e.g. "soroswap:<wallet>"
	Prefix string `toml:"prefix"`
}

// RedisStore keeps values in redis and broadcasts writes over one pub/sub
// channel per key, so separate processes sharing the same prefix observe
// each other's writes. Local subscribers are notified synchronously on Set,
// remote writes arrive asynchronously from the channel.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	origin string
	broker *Broker

	mu      sync.Mutex
	watched map[string]*redis.PubSub
	closed  bool
}

// NewRedisStore connects to redis and verifies the connection
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreFromClient(rdb, cfg.Prefix), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "soroswap"
	}
	return &RedisStore{
		rdb:     rdb,
		prefix:  prefix,
		origin:  fmt.Sprintf("%d", time.Now().UnixNano()),
		broker:  NewBroker(),
		watched: make(map[string]*redis.PubSub),
	}
}

func (r *RedisStore) valueKey(key string) string { return r.prefix + ":" + key }
func (r *RedisStore) channel(key string) string  { return r.prefix + ":changes:" + key }

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, r.valueKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.rdb.Set(ctx, r.valueKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	r.broker.Publish(key)
	r.announce(ctx, key)
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.valueKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	r.broker.Publish(key)
	r.announce(ctx, key)
	return nil
}

// announce tells other processes about a write. The payload is the origin id
// so the writer can ignore its own echo.
func (r *RedisStore) announce(ctx context.Context, key string) {
	if err := r.rdb.Publish(ctx, r.channel(key), r.origin).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to publish change notification")
	}
}

func (r *RedisStore) Subscribe(key string, fn func()) func() {
	unsubscribe := r.broker.Subscribe(key, fn)
	r.watch(key)
	return func() {
		unsubscribe()
		if r.broker.Subscribers(key) == 0 {
			r.unwatch(key)
		}
	}
}

// watch starts relaying the redis channel of key into the local broker
func (r *RedisStore) watch(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.watched[key] != nil {
		return
	}

	ps := r.rdb.Subscribe(context.Background(), r.channel(key))
	r.watched[key] = ps

	go func() {
		for msg := range ps.Channel() {
			if msg.Payload == r.origin {
				continue
			}
			log.Debug().Str("key", key).Msg("Remote change notification")
			r.broker.Publish(key)
		}
	}()
}

func (r *RedisStore) unwatch(key string) {
	r.mu.Lock()
	ps := r.watched[key]
	delete(r.watched, key)
	r.mu.Unlock()
	if ps != nil {
		if err := ps.Close(); err != nil {
			log.Debug().Err(err).Str("key", key).Msg("Failed to close subscription")
		}
	}
}

// Close stops every channel relay and closes the client
func (r *RedisStore) Close() error {
	r.mu.Lock()
	r.closed = true
	watched := r.watched
	r.watched = make(map[string]*redis.PubSub)
	r.mu.Unlock()

	for _, ps := range watched {
		_ = ps.Close()
	}
	return r.rdb.Close()
}
