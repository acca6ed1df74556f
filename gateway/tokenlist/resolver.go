// Package tokenlist resolves the curated token list of a network.
package tokenlist

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "tokenlist").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l
}

const (
	// MaxAttempts bounds the calls made to the authenticated source
	MaxAttempts = 3
	// RateLimitDelay is the wait after a rate-limited call
	RateLimitDelay = 2 * time.Second
)

// AuthenticatedSource is the aggregator API used on mainnet
type AuthenticatedSource interface {
	TokenList(ctx context.Context, network models.Network) (models.TokenList, error)
}

// PublicSource returns the unauthenticated list of every network
type PublicSource interface {
	Fetch(ctx context.Context) ([]models.TokenList, error)
}

// PublicSourceFunc adapts a function to PublicSource
type PublicSourceFunc func(ctx context.Context) ([]models.TokenList, error)

func (f PublicSourceFunc) Fetch(ctx context.Context) ([]models.TokenList, error) {
	return f(ctx)
}

// Resolver picks the source for a network and post-processes the list
type Resolver struct {
	authenticated AuthenticatedSource
	public        PublicSource
	native        map[models.Network]models.Token
	newTimer      func() backoff.Timer
}

// Option configures a Resolver
type Option func(*Resolver)

// WithTimer replaces the timer waiting between rate-limited attempts
func WithTimer(newTimer func() backoff.Timer) Option {
	return func(r *Resolver) { r.newTimer = newTimer }
}

// NewResolver creates a resolver. native is the entry prepended per network
// when the resolved list lacks it.
func NewResolver(authenticated AuthenticatedSource, public PublicSource, native map[models.Network]models.Token, opts ...Option) *Resolver {
	r := &Resolver{
		authenticated: authenticated,
		public:        public,
		native:        native,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the effective list of network. Testnet reads the public
// list, every other network the authenticated source.
func (r *Resolver) Resolve(ctx context.Context, network models.Network) (models.TokenList, error) {
	var (
		list models.TokenList
		err  error
	)
	if network == models.Testnet {
		list, err = r.fromPublic(ctx, network)
	} else {
		list, err = r.fromAuthenticated(ctx, network)
	}
	if err != nil {
		return models.TokenList{}, err
	}

	list.Network = string(network)
	list.Assets = r.withNative(network, list.Assets)
	return list, nil
}

func (r *Resolver) fromPublic(ctx context.Context, network models.Network) (models.TokenList, error) {
	lists, err := r.public.Fetch(ctx)
	if err != nil {
		return models.TokenList{}, err
	}
	for _, l := range lists {
		if l.Network == string(network) {
			return l, nil
		}
	}
	return models.TokenList{}, models.NewError(models.KindNotFound, fmt.Sprintf("token list for %s not found", network))
}

// fromAuthenticated retries rate-limited calls only; every other error is
// returned as is
func (r *Resolver) fromAuthenticated(ctx context.Context, network models.Network) (models.TokenList, error) {
	attempt := 0
	operation := func() (models.TokenList, error) {
		attempt++
		list, err := r.authenticated.TokenList(ctx, network)
		if err != nil && !models.IsRateLimited(err) {
			return models.TokenList{}, backoff.Permanent(err)
		}
		return list, err
	}
	notify := func(err error, delay time.Duration) {
		log.Warn().
			Err(err).
			Str("network", string(network)).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Token list rate limited, retrying")
	}

	var timer backoff.Timer
	if r.newTimer != nil {
		timer = r.newTimer()
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(RateLimitDelay), MaxAttempts-1), ctx)
	return backoff.RetryNotifyWithTimerAndData(operation, b, notify, timer)
}

// withNative prepends the native entry unless an asset has its contract
func (r *Resolver) withNative(network models.Network, assets []models.Token) []models.Token {
	native, ok := r.native[network]
	if !ok || native.Contract == "" {
		return assets
	}
	for _, a := range assets {
		if a.Contract == native.Contract {
			return assets
		}
	}
	out := make([]models.Token, 0, len(assets)+1)
	out = append(out, native)
	return append(out, assets...)
}
