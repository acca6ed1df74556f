package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/gateway/upstream"
	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/zeebo/assert"
)

const (
	xlm  = "CAS3J7GYLGXMF6TDJBBYYSE3HQ6BBSMLNUQ34T6TZMYMW2EVH34XOWMA"
	usdc = "CCW67TSZV3SSS2HXMBQ5JFGCKJNXKZM7UQUWUZPUTHXSTZLEO7SJMI75"
	user = "GBUSERACCOUNT"
)

type fakeResolver struct {
	calls atomic.Int32
	err   error
	// when set, Resolve signals started and blocks until release or ctx is done
	started chan struct{}
	release chan struct{}
}

func (f *fakeResolver) Resolve(ctx context.Context, network models.Network) (models.TokenList, error) {
	f.calls.Add(1)
	if f.release != nil {
		close(f.started)
		select {
		case <-f.release:
		case <-ctx.Done():
			return models.TokenList{}, ctx.Err()
		}
	}
	if f.err != nil {
		return models.TokenList{}, f.err
	}
	return models.TokenList{
		Name:    "Soroswap",
		Network: string(network),
		Assets: []models.Token{
			{Code: "XLM", Contract: xlm, Decimals: 7},
			{Code: "USDC", Contract: usdc, Decimals: 7},
		},
	}, nil
}

type fakeAggregator struct {
	assetCalls int
	balances   []upstream.RawBalance
	asset      models.Token
	assetErr   error
}

func (f *fakeAggregator) Price(_ context.Context, _ models.Network, asset string) (models.PriceEntry, error) {
	return models.PriceEntry{Asset: asset, Price: 0.12}, nil
}

func (f *fakeAggregator) Asset(_ context.Context, _ models.Network, _ string) (models.Token, error) {
	f.assetCalls++
	return f.asset, f.assetErr
}

func (f *fakeAggregator) Pools(context.Context, models.Network) ([]models.Pool, error) {
	return nil, nil
}

func (f *fakeAggregator) PoolByPair(_ context.Context, _ models.Network, a, b string) (models.Pool, error) {
	return models.Pool{TokenA: a, TokenB: b, ReserveA: "1", ReserveB: "2"}, nil
}

func (f *fakeAggregator) Positions(context.Context, models.Network, string) ([]models.Position, error) {
	return nil, nil
}

func (f *fakeAggregator) Balances(context.Context, models.Network, string) ([]upstream.RawBalance, error) {
	return f.balances, nil
}

type fakeVaults struct{}

func (fakeVaults) VaultInfo(_ context.Context, _ models.Network, id string) (models.VaultInfo, error) {
	return json.RawMessage(`{"id":"` + id + `"}`), nil
}

func (fakeVaults) VaultBalance(context.Context, models.Network, string, string) (models.VaultBalance, error) {
	return json.RawMessage(`{"underlyingBalance":["10"]}`), nil
}

func newService(resolver *fakeResolver, agg *fakeAggregator) *Service {
	return New(resolver, agg, fakeVaults{}, Config{
		TokenListTTL:  5 * time.Minute,
		Native:        map[models.Network]models.Token{models.Mainnet: {Code: "XLM", Contract: xlm, Decimals: 7}},
		NativeReserve: 10_000_000,
	})
}

func TestTokenListIsCachedForTTL(t *testing.T) {
	resolver := &fakeResolver{}
	s := newService(resolver, &fakeAggregator{})
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	for range 3 {
		list, err := s.TokenList(t.Context(), models.Mainnet)
		assert.NoError(t, err)
		assert.Equal(t, len(list.Assets), 2)
	}
	assert.Equal(t, resolver.calls.Load(), int32(1))

	now = now.Add(6 * time.Minute)
	_, err := s.TokenList(t.Context(), models.Mainnet)
	assert.NoError(t, err)
	assert.Equal(t, resolver.calls.Load(), int32(2))

	// networks are cached separately
	_, err = s.TokenList(t.Context(), models.Testnet)
	assert.NoError(t, err)
	assert.Equal(t, resolver.calls.Load(), int32(3))
}

func TestTokenListErrorIsNotCached(t *testing.T) {
	resolver := &fakeResolver{err: models.NewError(models.KindRateLimited, "slow down")}
	s := newService(resolver, &fakeAggregator{})

	_, err := s.TokenList(t.Context(), models.Mainnet)
	assert.Error(t, err)
	resolver.err = nil
	_, err = s.TokenList(t.Context(), models.Mainnet)
	assert.NoError(t, err)
	assert.Equal(t, resolver.calls.Load(), int32(2))
}

func TestTokenListSharedResolveSurvivesCallerCancel(t *testing.T) {
	resolver := &fakeResolver{started: make(chan struct{}), release: make(chan struct{})}
	s := newService(resolver, &fakeAggregator{})

	firstCtx, cancel := context.WithCancel(t.Context())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.TokenList(firstCtx, models.Mainnet)
		firstErr <- err
	}()
	<-resolver.started

	type result struct {
		list models.TokenList
		err  error
	}
	second := make(chan result, 1)
	go func() {
		list, err := s.TokenList(t.Context(), models.Mainnet)
		second <- result{list, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.True(t, errors.Is(<-firstErr, context.Canceled))

	close(resolver.release)
	res := <-second
	assert.NoError(t, res.err)
	assert.Equal(t, len(res.list.Assets), 2)
	assert.Equal(t, resolver.calls.Load(), int32(1))

	// the shared resolve still filled the cache
	_, err := s.TokenList(t.Context(), models.Mainnet)
	assert.NoError(t, err)
	assert.Equal(t, resolver.calls.Load(), int32(1))
}

func TestTokenMetadataPrefersCuratedList(t *testing.T) {
	agg := &fakeAggregator{}
	s := newService(&fakeResolver{}, agg)

	token, err := s.TokenMetadata(t.Context(), models.Mainnet, usdc)
	assert.NoError(t, err)
	assert.Equal(t, token.Code, "USDC")
	assert.Equal(t, agg.assetCalls, 0)
}

func TestTokenMetadataFallsBackToAggregator(t *testing.T) {
	agg := &fakeAggregator{asset: models.Token{Code: "AQUA", Contract: "CAQUA", Decimals: 7}}
	s := newService(&fakeResolver{}, agg)

	token, err := s.TokenMetadata(t.Context(), models.Mainnet, "CAQUA")
	assert.NoError(t, err)
	assert.Equal(t, token.Code, "AQUA")
	assert.Equal(t, token.Decimals, 7)
	assert.Equal(t, agg.assetCalls, 1)
}

func TestTokenMetadataKeepsZeroDecimals(t *testing.T) {
	agg := &fakeAggregator{asset: models.Token{Code: "NFT", Contract: "CNFT", Decimals: 0}}
	s := newService(&fakeResolver{}, agg)

	token, err := s.TokenMetadata(t.Context(), models.Mainnet, "CNFT")
	assert.NoError(t, err)
	assert.Equal(t, token.Decimals, 0)
}

func TestTokenMetadataUnknownIsNotFound(t *testing.T) {
	s := newService(&fakeResolver{}, &fakeAggregator{})

	_, err := s.TokenMetadata(t.Context(), models.Mainnet, "CMISSING")
	assert.True(t, models.IsKind(err, models.KindNotFound))
}

func TestTokenMetadataSurvivesListOutage(t *testing.T) {
	agg := &fakeAggregator{asset: models.Token{Code: "USDC", Contract: usdc, Decimals: 7}}
	s := newService(&fakeResolver{err: models.NewError(models.KindUpstream, "down")}, agg)

	token, err := s.TokenMetadata(t.Context(), models.Mainnet, usdc)
	assert.NoError(t, err)
	assert.Equal(t, token.Contract, usdc)
	assert.Equal(t, agg.assetCalls, 1)
}

func TestBalancesFormatsAndReservesNative(t *testing.T) {
	agg := &fakeAggregator{balances: []upstream.RawBalance{
		{Contract: xlm, Balance: "25000000"},
		{Contract: usdc, Balance: "1234500"},
		{Contract: "CUNKNOWN", Balance: "10"},
		{Contract: "CBROKEN", Balance: "lots"},
	}}
	s := newService(&fakeResolver{}, agg)

	balances, err := s.Balances(t.Context(), models.Mainnet, user)
	assert.NoError(t, err)
	assert.Equal(t, len(balances), 3)

	assert.Equal(t, balances[0].Token.Code, "XLM")
	assert.Equal(t, balances[0].Amount, "2.5")
	assert.Equal(t, balances[0].Available, "1.5")
	assert.Equal(t, balances[0].AvailableRaw, "15000000")

	assert.Equal(t, balances[1].Amount, "0.12345")
	assert.Equal(t, balances[1].Available, "")

	assert.Equal(t, balances[2].Token.Decimals, models.DefaultDecimals)
	assert.Equal(t, balances[2].Amount, "0.000001")
}

func TestBalancesNativeBelowReserve(t *testing.T) {
	agg := &fakeAggregator{balances: []upstream.RawBalance{{Contract: xlm, Balance: "5000000"}}}
	s := newService(&fakeResolver{}, agg)

	balances, err := s.Balances(t.Context(), models.Mainnet, user)
	assert.NoError(t, err)
	assert.Equal(t, balances[0].Available, "0")
	assert.Equal(t, balances[0].AvailableRaw, "0")
}

func TestEmptyCollectionsAreNotNil(t *testing.T) {
	s := newService(&fakeResolver{}, &fakeAggregator{})

	pools, err := s.Pools(t.Context(), models.Mainnet)
	assert.NoError(t, err)
	assert.NotNil(t, pools)

	positions, err := s.Positions(t.Context(), models.Mainnet, user)
	assert.NoError(t, err)
	assert.NotNil(t, positions)
}
