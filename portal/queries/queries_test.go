package queries_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/cache"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/fetch"
	"github.com/Cogwheel-Validator/soroswap-portal/portal/queries"
	"github.com/cenkalti/backoff/v4"
	"github.com/zeebo/assert"
)

func writeEnvelope(w http.ResponseWriter, status int, code string, data any, message string) {
	env := models.Envelope{Code: code, Message: message}
	if data != nil {
		raw, _ := json.Marshal(data)
		env.Data = raw
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

type delayRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *delayRecorder) timer() backoff.Timer {
	return &recordedTimer{rec: r, c: make(chan time.Time, 1)}
}

// recordedTimer fires at once so retries do not wait in tests
type recordedTimer struct {
	rec *delayRecorder
	c   chan time.Time
}

func (t *recordedTimer) Start(d time.Duration) {
	t.rec.mu.Lock()
	t.rec.delays = append(t.rec.delays, d)
	t.rec.mu.Unlock()
	t.c <- time.Now()
}

func (t *recordedTimer) Stop() {}

func (t *recordedTimer) C() <-chan time.Time { return t.c }

func newService(t *testing.T, handler http.HandlerFunc) (*queries.Service, *delayRecorder) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	rec := &delayRecorder{}
	c := cache.New(cache.WithTimer(rec.timer))
	return queries.New(fetch.NewClient(server.URL), c, models.Mainnet), rec
}

func TestPriceBatchDefaultsFailuresToZero(t *testing.T) {
	var missingCalls atomic.Int32
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Path, queries.PathPrice)
		assert.Equal(t, r.Header.Get("network"), "mainnet")
		switch r.Header.Get("asset") {
		case "C_VALID":
			writeEnvelope(w, http.StatusOK, "PRICE_SUCCESS", models.PriceEntry{Asset: "C_VALID", Price: 1.25}, "")
		default:
			missingCalls.Add(1)
			writeEnvelope(w, http.StatusNotFound, "PRICE_ERROR", nil, "asset not found")
		}
	})

	snap := svc.Prices([]string{"C_VALID", "C_404"}).Load(context.Background())
	assert.False(t, snap.IsError)
	assert.True(t, snap.HasData)
	assert.DeepEqual(t, snap.Data.Prices, map[string]float64{"C_VALID": 1.25, "C_404": 0})
	assert.DeepEqual(t, snap.Data.Unknown, map[string]bool{"C_404": true})
	assert.True(t, snap.Data.Known("C_VALID"))
	assert.False(t, snap.Data.Known("C_404"))
	// a 404 is terminal and is not retried
	assert.Equal(t, missingCalls.Load(), int32(1))
}

func TestPriceBatchSharesSinglePriceEntries(t *testing.T) {
	var calls atomic.Int32
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusOK, "PRICE_SUCCESS", models.PriceEntry{Asset: r.Header.Get("asset"), Price: 2}, "")
	})

	price, err := svc.Price("CA").Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, price, 2.0)

	batch, err := svc.Prices([]string{"CB", "CA", "CA"}).Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, len(batch.Prices), 2)
	assert.Equal(t, calls.Load(), int32(2))

	assert.DeepEqual(t, svc.Prices([]string{"CA", "CB"}).Key(), svc.Prices([]string{"CB", "CA"}).Key())
}

func TestVaultInfosAllOrNothing(t *testing.T) {
	svc, rec := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Path, queries.PathVault)
		switch r.Header.Get("vaultId") {
		case "V1":
			writeEnvelope(w, http.StatusOK, "VAULT_INFO_SUCCESS", map[string]string{"name": "Vault One"}, "")
		default:
			writeEnvelope(w, http.StatusInternalServerError, "VAULT_INFO_ERROR", nil, "vault lookup failed")
		}
	})

	snap := svc.VaultInfos([]string{"V1", "V2"}).Load(context.Background())
	assert.True(t, snap.IsError)
	assert.False(t, snap.HasData)
	assert.True(t, snap.Data == nil)
	assert.Equal(t, models.MessageOf(snap.Err), "vault lookup failed")
	assert.DeepEqual(t, rec.delays, []time.Duration{time.Second, time.Second})
}

func TestVaultBalancesKeyedByUser(t *testing.T) {
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Path, queries.PathVaultBalance)
		assert.Equal(t, r.Header.Get("userAddress"), "GUSER")
		writeEnvelope(w, http.StatusOK, "VAULT_BALANCE_SUCCESS", map[string]string{"vault": r.Header.Get("vaultId")}, "")
	})

	balances, err := svc.VaultBalances([]string{"V2", "V1"}, "GUSER").Get(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, len(balances), 2)
	assert.Equal(t, string(balances["V1"]), `{"vault":"V1"}`)

	assert.True(t, svc.VaultBalances([]string{"V1"}, "").Key().IsZero())
	assert.True(t, svc.VaultBalances(nil, "GUSER").Key().IsZero())
}

func TestTokenListRateLimitExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	svc, rec := newService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusTooManyRequests, "TOKENS_ERROR", nil, "rate limit exceeded")
	})

	snap := svc.TokenList().Load(context.Background())
	assert.True(t, snap.IsError)
	assert.True(t, models.IsRateLimited(snap.Err))
	assert.Equal(t, models.MessageOf(snap.Err), "rate limit exceeded")
	assert.Equal(t, calls.Load(), int32(3))
	assert.DeepEqual(t, rec.delays, []time.Duration{2 * time.Second, 2 * time.Second})
	assert.Equal(t, len(queries.TokensOrEmpty(snap)), 0)
}

func TestTokenListAndFallback(t *testing.T) {
	list := models.TokenList{
		Name:     "Soroswap Token List",
		Provider: "Soroswap",
		Network:  "mainnet",
		Assets:   []models.Token{{Code: "XLM", Contract: "CNATIVE", Decimals: 7}},
	}
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, "TOKENS_SUCCESS", list, "")
	})

	q := svc.TokenList()
	assert.NotNil(t, queries.TokensOrEmpty(q.Snapshot()))
	assert.Equal(t, len(queries.TokensOrEmpty(q.Snapshot())), 0)

	snap := q.Load(context.Background())
	assert.DeepEqual(t, queries.TokensOrEmpty(snap), list.Assets)
	assert.Equal(t, snap.Data.Provider, "Soroswap")
}

func TestGatedQueriesStayIdle(t *testing.T) {
	var calls atomic.Int32
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusOK, "OK", []any{}, "")
	})
	ctx := context.Background()

	assert.Equal(t, svc.Balances("").Load(ctx).State, cache.StateIdle)
	assert.Equal(t, svc.UserPositions("").Load(ctx).State, cache.StateIdle)
	assert.Equal(t, svc.VaultBalance("V1", "").Load(ctx).State, cache.StateIdle)
	assert.Equal(t, svc.VaultInfo("").Load(ctx).State, cache.StateIdle)
	assert.Equal(t, svc.PoolByPair("CA", "").Load(ctx).State, cache.StateIdle)
	assert.Equal(t, svc.Prices(nil).Load(ctx).State, cache.StateIdle)
	assert.Equal(t, calls.Load(), int32(0))
}

func TestHeadersCarryIdentifiers(t *testing.T) {
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.Header.Get("network"), "mainnet")
		switch r.URL.Path {
		case queries.PathPoolPair:
			assert.Equal(t, r.Header.Get("tokenA"), "CA")
			assert.Equal(t, r.Header.Get("tokenB"), "CB")
			writeEnvelope(w, http.StatusOK, "POOL_PAIR_SUCCESS", models.Pool{TokenA: "CA", TokenB: "CB", ReserveA: "10", ReserveB: "20"}, "")
		case queries.PathBalances:
			assert.Equal(t, r.Header.Get("userAddress"), "GUSER")
			writeEnvelope(w, http.StatusOK, "BALANCES_SUCCESS", []models.TokenBalance{{Amount: "1", RawAmount: "10000000"}}, "")
		case queries.PathToken:
			assert.Equal(t, r.Header.Get("contract"), "CA")
			writeEnvelope(w, http.StatusOK, "TOKEN_METADATA_SUCCESS", models.Token{Code: "USDC", Contract: "CA", Decimals: 7}, "")
		default:
			writeEnvelope(w, http.StatusNotFound, "NOT_FOUND", nil, "unknown path")
		}
	})
	ctx := context.Background()

	pool, err := svc.PoolByPair("CA", "CB").Get(ctx)
	assert.NoError(t, err)
	assert.Equal(t, pool.ReserveB, "20")

	balances, err := svc.Balances("GUSER").Get(ctx)
	assert.NoError(t, err)
	assert.Equal(t, len(balances), 1)

	token, err := svc.TokenMetadata("CA").Get(ctx)
	assert.NoError(t, err)
	assert.Equal(t, token.Code, "USDC")
}
