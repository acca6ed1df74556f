// Package app wires the portal data layer from a PortalConfig: storage,
// the gateway client, the query cache and the token, pool and settings
// components on top of them.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/cache"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/config"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/fetch"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/pools"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/queries"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/settings"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/storage"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/tokens"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "app").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l
}

// App holds every portal component
type App struct {
	Config     *config.PortalConfig
	Store      storage.Store
	Cache      *cache.Cache
	Queries    *queries.Service
	UserTokens *tokens.UserTokens
	Swap       *settings.SwapManager
	Pool       *settings.PoolManager
	Pools      *pools.Aggregator
	Registry   *prometheus.Registry

	reader *tokens.Reader
	memo   tokens.Memo
	cancel context.CancelFunc
	close  func() error
}

// Option customizes New
type Option func(*options)

type options struct {
	store     storage.Store
	cacheOpts []cache.Option
	fetchOpts []fetch.Option
	noJanitor bool
}

// WithStore uses store instead of the configured backend
func WithStore(store storage.Store) Option {
	return func(o *options) { o.store = store }
}

// WithCacheOptions passes options to the query cache
func WithCacheOptions(opts ...cache.Option) Option {
	return func(o *options) { o.cacheOpts = append(o.cacheOpts, opts...) }
}

// WithFetchOptions passes options to the gateway client
func WithFetchOptions(opts ...fetch.Option) Option {
	return func(o *options) { o.fetchOpts = append(o.fetchOpts, opts...) }
}

// WithoutJanitor disables background cache sweeping
func WithoutJanitor() Option {
	return func(o *options) { o.noJanitor = true }
}

// New builds the portal. Close releases the storage backend and stops the
// cache janitor.
func New(ctx context.Context, cfg *config.PortalConfig, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store, closeStore, err := openStore(ctx, cfg.Storage, o.store)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	cacheOpts := append([]cache.Option{cache.WithMetrics(cache.NewMetrics(registry))}, o.cacheOpts...)
	c := cache.New(cacheOpts...)

	fetchOpts := []fetch.Option{fetch.WithHTTPClient(newHTTPClient(cfg.RequestTimeout()))}
	if cfg.Origin != "" {
		fetchOpts = append(fetchOpts, fetch.WithOrigin(cfg.Origin))
	}
	fetchOpts = append(fetchOpts, o.fetchOpts...)
	client := fetch.NewClient(cfg.GatewayURL, fetchOpts...)

	q := queries.New(client, c, cfg.ParsedNetwork())
	userTokens := tokens.NewUserTokens(store)
	reader := userTokens.NewReader(ctx, func(list []models.Token) {
		log.Debug().Int("tokens", len(list)).Msg("User tokens changed")
	})

	runCtx, cancel := context.WithCancel(ctx)
	if !o.noJanitor {
		c.StartJanitor(runCtx, cfg.Cache.SweepInterval(), cfg.Cache.MaxAge())
	}

	log.Info().
		Str("gateway", cfg.GatewayURL).
		Str("network", cfg.Network).
		Str("storage", cfg.Storage.Backend).
		Msg("Portal ready")

	return &App{
		Config:     cfg,
		Store:      store,
		Cache:      c,
		Queries:    q,
		UserTokens: userTokens,
		Swap:       settings.NewSwapManager(store),
		Pool:       settings.NewPoolManager(),
		Pools:      pools.NewAggregator(q, reader, cfg.FallbackPools),
		Registry:   registry,
		reader:     reader,
		cancel:     cancel,
		close:      closeStore,
	}, nil
}

func openStore(ctx context.Context, cfg config.StorageConfig, override storage.Store) (storage.Store, func() error, error) {
	noop := func() error { return nil }
	if override != nil {
		return override, noop, nil
	}

	switch cfg.Backend {
	case config.StorageMemory:
		return storage.NewMemoryStore(), noop, nil
	case config.StorageRedis:
		store, err := storage.NewRedisStore(ctx, storage.RedisConfig{
			URL:      cfg.RedisURL,
			Password: cfg.RedisPassword,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open redis storage: %w", err)
		}
		return store, store.Close, nil
	default:
		store, err := storage.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file storage: %w", err)
		}
		return store, noop, nil
	}
}

// Tokens merges the curated list with the user's tokens. A curated list
// that fails to load counts as empty.
func (a *App) Tokens(ctx context.Context) tokens.Lookup {
	snap := a.Queries.TokenList().Load(ctx)
	if snap.IsError {
		log.Warn().Err(snap.Err).Msg("Curated token list unavailable")
	}
	return a.memo.Get(queries.TokensOrEmpty(snap), a.reader.Tokens())
}

// AddToken resolves contract through the gateway and stores it as a user
// token
func (a *App) AddToken(ctx context.Context, contract string) (models.Token, error) {
	token, err := a.Queries.TokenMetadata(contract).Get(ctx)
	if err != nil {
		return models.Token{}, fmt.Errorf("failed to resolve token %s: %w", contract, err)
	}
	if err := a.UserTokens.Add(ctx, token); err != nil {
		return models.Token{}, err
	}
	return token, nil
}

// Close stops background work and releases storage
func (a *App) Close() error {
	a.cancel()
	a.reader.Close()
	return a.close()
}
