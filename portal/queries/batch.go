package queries

import (
	"context"
	"sync"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/cache"
	"golang.org/x/sync/errgroup"
)

// PriceBatch maps token contracts to USD prices. A lookup that failed is
// reported as 0 in Prices and also listed in Unknown, so a zero price can
// be told apart from a missing one.
type PriceBatch struct {
	Prices  map[string]float64
	Unknown map[string]bool
}

// Known reports whether the price of asset was resolved
func (b PriceBatch) Known(asset string) bool {
	_, ok := b.Prices[asset]
	return ok && !b.Unknown[asset]
}

// Prices fetches the price of every asset concurrently. It never fails as a
// whole: a failed member defaults to 0. Members go through the single price
// cache so they share entries with Price queries.
func (s *Service) Prices(assets []string) *cache.Query[PriceBatch] {
	ids := normalizeIDs(assets)
	var key cache.Key
	if len(ids) > 0 {
		key = s.key("prices", ids...)
	}
	return cache.NewQuery(s.Cache, key, PricePolicy, func(ctx context.Context) (PriceBatch, error) {
		batch := PriceBatch{
			Prices:  make(map[string]float64, len(ids)),
			Unknown: make(map[string]bool),
		}
		var mu sync.Mutex
		var g errgroup.Group
		for _, id := range ids {
			g.Go(func() error {
				price, err := s.Price(id).Get(ctx)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					log.Warn().Err(err).Str("asset", id).Msg("Price lookup failed, defaulting to zero")
					batch.Prices[id] = 0
					batch.Unknown[id] = true
					return nil
				}
				batch.Prices[id] = price
				return nil
			})
		}
		_ = g.Wait()
		return batch, nil
	})
}

// VaultInfos fetches several vaults concurrently. One failing vault fails
// the whole batch and no partial result is kept.
func (s *Service) VaultInfos(vaultIDs []string) *cache.Query[map[string]models.VaultInfo] {
	ids := normalizeIDs(vaultIDs)
	var key cache.Key
	if len(ids) > 0 {
		key = s.key("vault-infos", ids...)
	}
	return cache.NewQuery(s.Cache, key, VaultInfoPolicy, func(ctx context.Context) (map[string]models.VaultInfo, error) {
		return fanOut(ctx, ids, s.fetchVaultInfo)
	})
}

// VaultBalances fetches the position of user in several vaults with the
// same all-or-nothing semantics as VaultInfos
func (s *Service) VaultBalances(vaultIDs []string, user string) *cache.Query[map[string]models.VaultBalance] {
	ids := normalizeIDs(vaultIDs)
	var key cache.Key
	if len(ids) > 0 && user != "" {
		key = s.key("vault-balances", append([]string{user}, ids...)...)
	}
	return cache.NewQuery(s.Cache, key, VaultBalancePolicy, func(ctx context.Context) (map[string]models.VaultBalance, error) {
		return fanOut(ctx, ids, func(ctx context.Context, id string) (models.VaultBalance, error) {
			return s.fetchVaultBalance(ctx, id, user)
		})
	})
}

func fanOut[T any](ctx context.Context, ids []string, fetch func(context.Context, string) (T, error)) (map[string]T, error) {
	results := make([]T, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			v, err := fetch(gctx, id)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]T, len(ids))
	for i, id := range ids {
		out[id] = results[i]
	}
	return out, nil
}
