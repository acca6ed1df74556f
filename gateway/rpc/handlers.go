package rpc

import (
	"context"
	"net/http"
	"strings"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/go-chi/chi/v5"
)

// Backend is what the handlers proxy to
type Backend interface {
	TokenList(ctx context.Context, network models.Network) (models.TokenList, error)
	Price(ctx context.Context, network models.Network, asset string) (models.PriceEntry, error)
	TokenMetadata(ctx context.Context, network models.Network, contract string) (models.Token, error)
	VaultInfo(ctx context.Context, network models.Network, vaultID string) (models.VaultInfo, error)
	VaultBalance(ctx context.Context, network models.Network, vaultID, user string) (models.VaultBalance, error)
	Pools(ctx context.Context, network models.Network) ([]models.Pool, error)
	PoolByPair(ctx context.Context, network models.Network, tokenA, tokenB string) (models.Pool, error)
	Positions(ctx context.Context, network models.Network, user string) ([]models.Position, error)
	Balances(ctx context.Context, network models.Network, user string) ([]models.TokenBalance, error)
}

// Response code prefixes
const (
	PrefixTokens        = "TOKENS"
	PrefixPrice         = "PRICE"
	PrefixTokenMetadata = "TOKEN_METADATA"
	PrefixVaultInfo     = "VAULT_INFO"
	PrefixVaultBalance  = "VAULT_BALANCE"
	PrefixPools         = "POOLS"
	PrefixPoolPair      = "POOL_PAIR"
	PrefixPositions     = "POSITIONS"
	PrefixBalances      = "BALANCES"
)

// param is one required header and how to validate it
type param struct {
	name     string
	validate func(string) error
}

// request is the parsed header set of a call
type request struct {
	network models.Network
	values  map[string]string
}

func (r request) get(name string) string { return r.values[name] }

type handlers struct {
	backend        Backend
	guard          *originGuard
	defaultNetwork models.Network
}

func (h *handlers) register(mux chi.Router) {
	mux.Get("/api/tokens", h.endpoint(PrefixTokens, nil,
		func(ctx context.Context, r request) (any, error) {
			return h.backend.TokenList(ctx, r.network)
		}))
	mux.Get("/api/price", h.endpoint(PrefixPrice, []param{{"asset", validateAsset}},
		func(ctx context.Context, r request) (any, error) {
			return h.backend.Price(ctx, r.network, r.get("asset"))
		}))
	mux.Get("/api/token", h.endpoint(PrefixTokenMetadata, []param{{"contract", validateContract}},
		func(ctx context.Context, r request) (any, error) {
			return h.backend.TokenMetadata(ctx, r.network, r.get("contract"))
		}))
	mux.Get("/api/vault", h.endpoint(PrefixVaultInfo, []param{{"vaultId", validateContract}},
		func(ctx context.Context, r request) (any, error) {
			return h.backend.VaultInfo(ctx, r.network, r.get("vaultId"))
		}))
	mux.Get("/api/vault/balance", h.endpoint(PrefixVaultBalance,
		[]param{{"vaultId", validateContract}, {"userAddress", validateAccount}},
		func(ctx context.Context, r request) (any, error) {
			return h.backend.VaultBalance(ctx, r.network, r.get("vaultId"), r.get("userAddress"))
		}))
	mux.Get("/api/pools", h.endpoint(PrefixPools, nil,
		func(ctx context.Context, r request) (any, error) {
			return h.backend.Pools(ctx, r.network)
		}))
	mux.Get("/api/pools/pair", h.endpoint(PrefixPoolPair,
		[]param{{"tokenA", validateContract}, {"tokenB", validateContract}},
		func(ctx context.Context, r request) (any, error) {
			return h.backend.PoolByPair(ctx, r.network, r.get("tokenA"), r.get("tokenB"))
		}))
	mux.Get("/api/positions", h.endpoint(PrefixPositions, []param{{"userAddress", validateAccount}},
		func(ctx context.Context, r request) (any, error) {
			return h.backend.Positions(ctx, r.network, r.get("userAddress"))
		}))
	mux.Get("/api/balances", h.endpoint(PrefixBalances, []param{{"userAddress", validateAccount}},
		func(ctx context.Context, r request) (any, error) {
			return h.backend.Balances(ctx, r.network, r.get("userAddress"))
		}))
}

// endpoint builds a handler that checks the origin, parses the network and
// the required headers, then calls fn
func (h *handlers) endpoint(prefix string, params []param, fn func(context.Context, request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.guard.allows(r) {
			Logger.Debug().
				Str("origin", r.Header.Get("Origin")).
				Str("referer", r.Header.Get("Referer")).
				Str("path", r.URL.Path).
				Msg("Rejected origin")
			writeCORS(w, prefix)
			return
		}

		req := request{network: h.defaultNetwork, values: make(map[string]string, len(params))}
		if raw := strings.TrimSpace(r.Header.Get("network")); raw != "" {
			network, err := models.ParseNetwork(raw)
			if err != nil {
				writeInvalidParam(w, prefix, "network", err)
				return
			}
			req.network = network
		}

		for _, p := range params {
			value := strings.TrimSpace(r.Header.Get(p.name))
			if value == "" {
				writeMissingParam(w, prefix, p.name)
				return
			}
			if p.validate != nil {
				if err := p.validate(value); err != nil {
					writeInvalidParam(w, prefix, p.name, err)
					return
				}
			}
			req.values[p.name] = value
		}

		data, err := fn(r.Context(), req)
		if err != nil {
			writeError(w, prefix, err)
			return
		}
		writeSuccess(w, prefix, data)
	}
}
