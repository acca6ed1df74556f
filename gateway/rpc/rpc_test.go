package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/zeebo/assert"
)

const (
	account  = "GAAACAQDAQCQMBYIBEFAWDANBYHRAEISCMKBKFQXDAMRUGY4DUPB7JZX"
	contract = "CAS3J7GYLGXMF6TDJBBYYSE3HQ6BBSMLNUQ34T6TZMYMW2EVH34XOWMA"
	tokenB   = "CCW67TSZV3SSS2HXMBQ5JFGCKJNXKZM7UQUWUZPUTHXSTZLEO7SJMI75"
	origin   = "https://app.soroswap.finance"
)

type fakeBackend struct {
	network models.Network
	err     error
}

func (f *fakeBackend) TokenList(_ context.Context, network models.Network) (models.TokenList, error) {
	f.network = network
	return models.TokenList{Name: "Soroswap", Network: string(network), Assets: []models.Token{{Code: "XLM", Contract: contract, Decimals: 7}}}, f.err
}

func (f *fakeBackend) Price(_ context.Context, network models.Network, asset string) (models.PriceEntry, error) {
	f.network = network
	return models.PriceEntry{Asset: asset, Price: 0.25}, f.err
}

func (f *fakeBackend) TokenMetadata(_ context.Context, _ models.Network, c string) (models.Token, error) {
	return models.Token{Code: "XLM", Contract: c, Decimals: 7}, f.err
}

func (f *fakeBackend) VaultInfo(context.Context, models.Network, string) (models.VaultInfo, error) {
	return json.RawMessage(`{"name":"vault"}`), f.err
}

func (f *fakeBackend) VaultBalance(context.Context, models.Network, string, string) (models.VaultBalance, error) {
	return json.RawMessage(`{"dfTokens":"1"}`), f.err
}

func (f *fakeBackend) Pools(context.Context, models.Network) ([]models.Pool, error) {
	return []models.Pool{}, f.err
}

func (f *fakeBackend) PoolByPair(_ context.Context, _ models.Network, a, b string) (models.Pool, error) {
	return models.Pool{TokenA: a, TokenB: b}, f.err
}

func (f *fakeBackend) Positions(context.Context, models.Network, string) ([]models.Position, error) {
	return []models.Position{}, f.err
}

func (f *fakeBackend) Balances(context.Context, models.Network, string) ([]models.TokenBalance, error) {
	return []models.TokenBalance{}, f.err
}

func newTestServer(t *testing.T, backend Backend, origins ...string) *httptest.Server {
	t.Helper()
	if len(origins) == 0 {
		origins = []string{origin}
	}
	config := DefaultServerConfig()
	config.AllowedOrigins = origins
	config.EnableMetrics = false
	config.OTelConfig = nil

	server, err := NewServer(t.Context(), config, backend)
	assert.NoError(t, err)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func call(t *testing.T, ts *httptest.Server, path string, headers map[string]string) (int, models.Envelope) {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, ts.URL+path, nil)
	assert.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := ts.Client().Do(req)
	assert.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var env models.Envelope
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestTokensSuccess(t *testing.T) {
	backend := &fakeBackend{}
	ts := newTestServer(t, backend)

	status, env := call(t, ts, "/api/tokens", map[string]string{"Origin": origin})
	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, env.Code, "TOKENS_SUCCESS")
	assert.Equal(t, backend.network, models.Mainnet)

	var list models.TokenList
	assert.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, list.Assets[0].Contract, contract)
}

func TestNetworkHeaderSelectsNetwork(t *testing.T) {
	backend := &fakeBackend{}
	ts := newTestServer(t, backend)

	status, _ := call(t, ts, "/api/tokens", map[string]string{"Origin": origin, "network": "TESTNET"})
	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, backend.network, models.Testnet)

	status, env := call(t, ts, "/api/tokens", map[string]string{"Origin": origin, "network": "futurenet"})
	assert.Equal(t, status, http.StatusBadRequest)
	assert.Equal(t, env.Code, "TOKENS_ERROR_INVALID_PARAM")
}

func TestOriginGuard(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{})

	cases := []struct {
		name    string
		headers map[string]string
		status  int
	}{
		{"allowed origin", map[string]string{"Origin": origin}, http.StatusOK},
		{"allowed referer", map[string]string{"Referer": origin + "/swap?from=XLM"}, http.StatusOK},
		{"foreign origin", map[string]string{"Origin": "https://evil.example"}, http.StatusForbidden},
		{"foreign referer", map[string]string{"Referer": "https://evil.example/page"}, http.StatusForbidden},
		{"no origin", map[string]string{}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := call(t, ts, "/api/pools", tc.headers)
			assert.Equal(t, status, tc.status)
			if tc.status == http.StatusForbidden {
				assert.Equal(t, env.Code, "POOLS_ERROR_CORS")
			}
		})
	}
}

func TestWildcardOriginAllowsAll(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{}, "*")

	status, env := call(t, ts, "/api/pools", nil)
	assert.Equal(t, status, http.StatusOK)
	assert.Equal(t, env.Code, "POOLS_SUCCESS")
}

func TestParameterValidation(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{})

	cases := []struct {
		name    string
		path    string
		headers map[string]string
		status  int
		code    string
	}{
		{"price ok", "/api/price", map[string]string{"asset": contract}, http.StatusOK, "PRICE_SUCCESS"},
		{"price missing asset", "/api/price", nil, http.StatusBadRequest, "PRICE_ERROR_MISSING_PARAM"},
		{"price bad asset", "/api/price", map[string]string{"asset": "XLM"}, http.StatusBadRequest, "PRICE_ERROR_INVALID_PARAM"},
		{"token ok", "/api/token", map[string]string{"contract": contract}, http.StatusOK, "TOKEN_METADATA_SUCCESS"},
		{"token with account", "/api/token", map[string]string{"contract": account}, http.StatusBadRequest, "TOKEN_METADATA_ERROR_INVALID_PARAM"},
		{"vault ok", "/api/vault", map[string]string{"vaultId": contract}, http.StatusOK, "VAULT_INFO_SUCCESS"},
		{"vault balance missing user", "/api/vault/balance", map[string]string{"vaultId": contract}, http.StatusBadRequest, "VAULT_BALANCE_ERROR_MISSING_PARAM"},
		{"vault balance ok", "/api/vault/balance", map[string]string{"vaultId": contract, "userAddress": account}, http.StatusOK, "VAULT_BALANCE_SUCCESS"},
		{"pair ok", "/api/pools/pair", map[string]string{"tokenA": contract, "tokenB": tokenB}, http.StatusOK, "POOL_PAIR_SUCCESS"},
		{"pair missing b", "/api/pools/pair", map[string]string{"tokenA": contract}, http.StatusBadRequest, "POOL_PAIR_ERROR_MISSING_PARAM"},
		{"positions ok", "/api/positions", map[string]string{"userAddress": account}, http.StatusOK, "POSITIONS_SUCCESS"},
		{"positions bad checksum", "/api/positions", map[string]string{"userAddress": account[:55] + "A"}, http.StatusBadRequest, "POSITIONS_ERROR_INVALID_PARAM"},
		{"balances contract as user", "/api/balances", map[string]string{"userAddress": contract}, http.StatusBadRequest, "BALANCES_ERROR_INVALID_PARAM"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			headers := map[string]string{"Origin": origin}
			for k, v := range tc.headers {
				headers[k] = v
			}
			status, env := call(t, ts, tc.path, headers)
			assert.Equal(t, status, tc.status)
			assert.Equal(t, env.Code, tc.code)
		})
	}
}

func TestBackendErrorsKeepUpstreamStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"rate limited", models.NewFetchError(http.StatusTooManyRequests, "", "slow down"), http.StatusTooManyRequests},
		{"not found", models.NewError(models.KindNotFound, "token not found"), http.StatusNotFound},
		{"upstream status", &models.Error{Kind: models.KindUpstream, Message: "bad gateway", Status: http.StatusBadGateway}, http.StatusBadGateway},
		{"no status", models.NewError(models.KindUpstream, "connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, &fakeBackend{err: tc.err})
			status, env := call(t, ts, "/api/tokens", map[string]string{"Origin": origin})
			assert.Equal(t, status, tc.status)
			assert.Equal(t, env.Code, "TOKENS_ERROR")
			assert.Equal(t, env.Message, models.MessageOf(tc.err))
		})
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{})

	resp, err := ts.Client().Get(ts.URL + "/server/health")
	assert.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, resp.StatusCode, http.StatusOK)
}

func TestValidateStrkey(t *testing.T) {
	assert.NoError(t, validateAccount(account))
	assert.NoError(t, validateContract(contract))
	assert.NoError(t, validateContract(tokenB))
	assert.NoError(t, validateAsset(account))

	assert.Error(t, validateAccount(contract))
	assert.Error(t, validateContract(""))
	assert.Error(t, validateContract(contract[:55]))
	assert.Error(t, validateContract("CAS3J7GYLGXMF6TDJBBYYSE3HQ6BBSMLNUQ34T6TZMYMW2EVH34XOWMB"))
	assert.Error(t, validateContract("cas3j7gylgxmf6tdjbbyyse3hq6bbsmlnuq34t6tzmymw2evh34xowma"))
}
