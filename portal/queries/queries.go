// Package queries instantiates the cache engine for every gateway resource.
// A Service is constructed once per network and passed to consumers.
package queries

import (
	"context"
	"os"
	"slices"
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/cache"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/fetch"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "queries").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l
}

// Gateway endpoint paths
const (
	PathTokens       = "/api/tokens"
	PathPrice        = "/api/price"
	PathToken        = "/api/token"
	PathVault        = "/api/vault"
	PathVaultBalance = "/api/vault/balance"
	PathPools        = "/api/pools"
	PathPoolPair     = "/api/pools/pair"
	PathPositions    = "/api/positions"
	PathBalances     = "/api/balances"
)

// Service builds the queries of one network over a shared cache
type Service struct {
	Fetch   *fetch.Client
	Cache   *cache.Cache
	Network models.Network
}

// New creates a query service
func New(f *fetch.Client, c *cache.Cache, network models.Network) *Service {
	return &Service{Fetch: f, Cache: c, Network: network}
}

func (s *Service) net() string {
	return string(s.Network)
}

func (s *Service) header(kv ...string) map[string]string {
	h := map[string]string{"network": s.net()}
	for i := 0; i+1 < len(kv); i += 2 {
		h[kv[i]] = kv[i+1]
	}
	return h
}

// key returns nil when any identifying part is empty, gating the query
func (s *Service) key(name string, parts ...string) cache.Key {
	for _, p := range parts {
		if p == "" {
			return nil
		}
	}
	return append(cache.Key{name, s.net()}, parts...)
}

// TokenList is the curated list of the network
func (s *Service) TokenList() *cache.Query[models.TokenList] {
	return cache.NewQuery(s.Cache, s.key("tokens"), TokensPolicy, func(ctx context.Context) (models.TokenList, error) {
		return fetch.Get[models.TokenList](ctx, s.Fetch, PathTokens, s.header())
	})
}

// TokensOrEmpty returns the assets of a token list snapshot, or an empty
// slice before the first successful load
func TokensOrEmpty(snap cache.Snapshot[models.TokenList]) []models.Token {
	if !snap.HasData || snap.Data.Assets == nil {
		return []models.Token{}
	}
	return snap.Data.Assets
}

// Price is the USD unit price of one token contract
func (s *Service) Price(asset string) *cache.Query[float64] {
	return cache.NewQuery(s.Cache, s.key("price", asset), PricePolicy, func(ctx context.Context) (float64, error) {
		entry, err := fetch.Get[models.PriceEntry](ctx, s.Fetch, PathPrice, s.header("asset", asset))
		if err != nil {
			return 0, err
		}
		return entry.Price, nil
	})
}

// TokenMetadata describes one token contract
func (s *Service) TokenMetadata(contract string) *cache.Query[models.Token] {
	return cache.NewQuery(s.Cache, s.key("token", contract), TokenPolicy, func(ctx context.Context) (models.Token, error) {
		return fetch.Get[models.Token](ctx, s.Fetch, PathToken, s.header("contract", contract))
	})
}

// VaultInfo is the opaque description of one vault
func (s *Service) VaultInfo(vaultID string) *cache.Query[models.VaultInfo] {
	return cache.NewQuery(s.Cache, s.key("vault-info", vaultID), VaultInfoPolicy, func(ctx context.Context) (models.VaultInfo, error) {
		return s.fetchVaultInfo(ctx, vaultID)
	})
}

func (s *Service) fetchVaultInfo(ctx context.Context, vaultID string) (models.VaultInfo, error) {
	return fetch.Get[models.VaultInfo](ctx, s.Fetch, PathVault, s.header("vaultId", vaultID))
}

// VaultBalance is the position of user in one vault. The query waits until
// both the vault and the wallet address are known.
func (s *Service) VaultBalance(vaultID, user string) *cache.Query[models.VaultBalance] {
	return cache.NewQuery(s.Cache, s.key("vault-balance", user, vaultID), VaultBalancePolicy, func(ctx context.Context) (models.VaultBalance, error) {
		return s.fetchVaultBalance(ctx, vaultID, user)
	})
}

func (s *Service) fetchVaultBalance(ctx context.Context, vaultID, user string) (models.VaultBalance, error) {
	return fetch.Get[models.VaultBalance](ctx, s.Fetch, PathVaultBalance, s.header("vaultId", vaultID, "userAddress", user))
}

// Pools lists every pool of the network
func (s *Service) Pools() *cache.Query[[]models.Pool] {
	return cache.NewQuery(s.Cache, s.key("pools"), PoolsPolicy, func(ctx context.Context) ([]models.Pool, error) {
		return fetch.Get[[]models.Pool](ctx, s.Fetch, PathPools, s.header())
	})
}

// PoolByPair is the pool between two token contracts
func (s *Service) PoolByPair(tokenA, tokenB string) *cache.Query[models.Pool] {
	return cache.NewQuery(s.Cache, s.key("pool", tokenA, tokenB), PoolPairPolicy, func(ctx context.Context) (models.Pool, error) {
		return fetch.Get[models.Pool](ctx, s.Fetch, PathPoolPair, s.header("tokenA", tokenA, "tokenB", tokenB))
	})
}

// UserPositions lists the pool positions of a wallet
func (s *Service) UserPositions(user string) *cache.Query[[]models.Position] {
	return cache.NewQuery(s.Cache, s.key("positions", user), PositionsPolicy, func(ctx context.Context) ([]models.Position, error) {
		return fetch.Get[[]models.Position](ctx, s.Fetch, PathPositions, s.header("userAddress", user))
	})
}

// Balances lists the token balances of a wallet
func (s *Service) Balances(user string) *cache.Query[[]models.TokenBalance] {
	return cache.NewQuery(s.Cache, s.key("balances", user), BalancesPolicy, func(ctx context.Context) ([]models.TokenBalance, error) {
		return fetch.Get[[]models.TokenBalance](ctx, s.Fetch, PathBalances, s.header("userAddress", user))
	})
}

// normalizeIDs drops blanks and duplicates and sorts, so that the same set
// of identifiers always maps to the same key
func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
