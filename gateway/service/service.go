// Package service implements the gateway operations on top of the upstream
// clients. Handlers in gateway/rpc only validate input and encode output.
package service

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"sync"
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/gateway/upstream"
	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/Cogwheel-Validator/soroswap-portal/units"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "service").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l
}

// TokenResolver resolves curated token lists
type TokenResolver interface {
	Resolve(ctx context.Context, network models.Network) (models.TokenList, error)
}

// Aggregator is the subset of the Soroswap API the gateway proxies
type Aggregator interface {
	Price(ctx context.Context, network models.Network, asset string) (models.PriceEntry, error)
	Asset(ctx context.Context, network models.Network, contract string) (models.Token, error)
	Pools(ctx context.Context, network models.Network) ([]models.Pool, error)
	PoolByPair(ctx context.Context, network models.Network, tokenA, tokenB string) (models.Pool, error)
	Positions(ctx context.Context, network models.Network, user string) ([]models.Position, error)
	Balances(ctx context.Context, network models.Network, user string) ([]upstream.RawBalance, error)
}

// Vaults is the vault API
type Vaults interface {
	VaultInfo(ctx context.Context, network models.Network, vaultID string) (models.VaultInfo, error)
	VaultBalance(ctx context.Context, network models.Network, vaultID, user string) (models.VaultBalance, error)
}

// Config holds the service knobs
type Config struct {
	// TokenListTTL is how long a resolved list is served from memory
	TokenListTTL time.Duration
	// Native is the native asset of each network
	Native map[models.Network]models.Token
	// NativeReserve is the unspendable part of a native balance, in stroops
	NativeReserve int64
}

type cachedList struct {
	list      models.TokenList
	fetchedAt time.Time
}

// Service implements every proxy operation
type Service struct {
	tokens     TokenResolver
	aggregator Aggregator
	vaults     Vaults
	config     Config
	now        func() time.Time

	mu    sync.RWMutex
	lists map[models.Network]cachedList
	group singleflight.Group
}

// New creates the gateway service
func New(tokens TokenResolver, aggregator Aggregator, vaults Vaults, config Config) *Service {
	return &Service{
		tokens:     tokens,
		aggregator: aggregator,
		vaults:     vaults,
		config:     config,
		now:        time.Now,
		lists:      make(map[models.Network]cachedList),
	}
}

// TokenList returns the curated list of network, resolving it at most once
// per TokenListTTL
func (s *Service) TokenList(ctx context.Context, network models.Network) (models.TokenList, error) {
	s.mu.RLock()
	cached, ok := s.lists[network]
	s.mu.RUnlock()
	if ok && s.now().Sub(cached.fetchedAt) < s.config.TokenListTTL {
		return cached.list, nil
	}

	// the resolve outlives the caller that started it, other requests may be
	// waiting on it
	resolveCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(string(network), func() (any, error) {
		list, err := s.tokens.Resolve(resolveCtx, network)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.lists[network] = cachedList{list: list, fetchedAt: s.now()}
		s.mu.Unlock()
		log.Debug().Str("network", string(network)).Int("assets", len(list.Assets)).Msg("Resolved token list")
		return list, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return models.TokenList{}, res.Err
		}
		return res.Val.(models.TokenList), nil
	case <-ctx.Done():
		return models.TokenList{}, ctx.Err()
	}
}

// Price returns the USD price of asset
func (s *Service) Price(ctx context.Context, network models.Network, asset string) (models.PriceEntry, error) {
	return s.aggregator.Price(ctx, network, asset)
}

// TokenMetadata looks contract up in the curated list first and falls back
// to the aggregator
func (s *Service) TokenMetadata(ctx context.Context, network models.Network, contract string) (models.Token, error) {
	list, err := s.TokenList(ctx, network)
	if err != nil {
		log.Warn().Err(err).Str("network", string(network)).Msg("Token list unavailable for metadata lookup")
	} else if token, ok := list.FindByContract(contract); ok {
		return token, nil
	}

	token, err := s.aggregator.Asset(ctx, network, contract)
	if err != nil {
		return models.Token{}, err
	}
	if token.Contract == "" {
		return models.Token{}, models.NewError(models.KindNotFound, fmt.Sprintf("token %s not found", contract))
	}
	return token, nil
}

// VaultInfo passes the vault description through
func (s *Service) VaultInfo(ctx context.Context, network models.Network, vaultID string) (models.VaultInfo, error) {
	return s.vaults.VaultInfo(ctx, network, vaultID)
}

// VaultBalance passes the vault position of user through
func (s *Service) VaultBalance(ctx context.Context, network models.Network, vaultID, user string) (models.VaultBalance, error) {
	return s.vaults.VaultBalance(ctx, network, vaultID, user)
}

// Pools lists the pools of network
func (s *Service) Pools(ctx context.Context, network models.Network) ([]models.Pool, error) {
	pools, err := s.aggregator.Pools(ctx, network)
	if pools == nil && err == nil {
		pools = []models.Pool{}
	}
	return pools, err
}

// PoolByPair returns the pool between two tokens
func (s *Service) PoolByPair(ctx context.Context, network models.Network, tokenA, tokenB string) (models.Pool, error) {
	return s.aggregator.PoolByPair(ctx, network, tokenA, tokenB)
}

// Positions lists the pool positions of user
func (s *Service) Positions(ctx context.Context, network models.Network, user string) ([]models.Position, error) {
	positions, err := s.aggregator.Positions(ctx, network, user)
	if positions == nil && err == nil {
		positions = []models.Position{}
	}
	return positions, err
}

// Balances lists the balances of user with human readable amounts. The
// native balance also reports what is spendable above the reserve.
func (s *Service) Balances(ctx context.Context, network models.Network, user string) ([]models.TokenBalance, error) {
	raw, err := s.aggregator.Balances(ctx, network, user)
	if err != nil {
		return nil, err
	}

	var list models.TokenList
	if l, err := s.TokenList(ctx, network); err != nil {
		log.Warn().Err(err).Str("network", string(network)).Msg("Token list unavailable, using default decimals")
	} else {
		list = l
	}
	native := s.config.Native[network]

	balances := make([]models.TokenBalance, 0, len(raw))
	for _, b := range raw {
		amount, ok := new(big.Int).SetString(b.Balance, 10)
		if !ok {
			log.Warn().Str("contract", b.Contract).Str("balance", b.Balance).Msg("Skipping unparsable balance")
			continue
		}

		token, found := list.FindByContract(b.Contract)
		if !found {
			token = models.Token{Contract: b.Contract, Decimals: models.DefaultDecimals}
			if b.Contract == native.Contract {
				token = native
			}
		}

		balance := models.TokenBalance{
			Token:     token,
			Amount:    units.FormatUnits(amount, token.Decimals),
			RawAmount: amount.String(),
		}
		if native.Contract != "" && b.Contract == native.Contract {
			available := new(big.Int).Sub(amount, big.NewInt(s.config.NativeReserve))
			if available.Sign() < 0 {
				available.SetInt64(0)
			}
			balance.Available = units.FormatUnits(available, token.Decimals)
			balance.AvailableRaw = available.String()
		}
		balances = append(balances, balance)
	}
	return balances, nil
}
