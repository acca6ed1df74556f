package config

import "github.com/Cogwheel-Validator/soroswap-portal/models"

const (
	DefaultSoroswapURL     = "https://api.soroswap.finance"
	DefaultDefindexURL     = "https://api.defindex.io"
	DefaultPublicTokenList = "https://raw.githubusercontent.com/soroswap/core/refs/heads/main/public/tokens.json"

	DefaultUpstreamTimeoutSeconds = 10
	DefaultTokenListTTLSeconds    = 300
	DefaultRequestTimeoutSeconds  = 30
	// one XLM, the base reserve of an account
	DefaultNativeReserveStroops = 10_000_000
)

// DefaultNative holds the native XLM asset contract of each network
var DefaultNative = map[string]models.Token{
	string(models.Mainnet): {
		Code:     "XLM",
		Contract: "CAS3J7GYLGXMF6TDJBBYYSE3HQ6BBSMLNUQ34T6TZMYMW2EVH34XOWMA",
		Name:     "Stellar Lumens",
		Org:      "Stellar Development Foundation",
		Domain:   "stellar.org",
		Decimals: models.DefaultDecimals,
	},
	string(models.Testnet): {
		Code:     "XLM",
		Contract: "CDLZFC3SYJYDZT7K67VZ75HPJVIEUVNIXF47ZG2FB2RMQQVU2HHGCYSC",
		Name:     "Stellar Lumens",
		Org:      "Stellar Development Foundation",
		Domain:   "stellar.org",
		Decimals: models.DefaultDecimals,
	},
}

// applyDefaults fills every optional field left empty
func applyDefaults(config *GatewayConfig) {
	if config.DefaultNetwork == "" {
		config.DefaultNetwork = string(models.Mainnet)
	}
	if config.RequestTimeoutSeconds <= 0 {
		config.RequestTimeoutSeconds = DefaultRequestTimeoutSeconds
	}
	if config.ServiceName == "" {
		config.ServiceName = "soroswap-gateway"
	}
	if len(config.Soroswap.URLs) == 0 {
		config.Soroswap.URLs = []string{DefaultSoroswapURL}
	}
	if config.Soroswap.TimeoutSeconds <= 0 {
		config.Soroswap.TimeoutSeconds = DefaultUpstreamTimeoutSeconds
	}
	if config.Defindex.URL == "" {
		config.Defindex.URL = DefaultDefindexURL
	}
	if config.Defindex.TimeoutSeconds <= 0 {
		config.Defindex.TimeoutSeconds = DefaultUpstreamTimeoutSeconds
	}
	if config.TokenList.PublicURL == "" {
		config.TokenList.PublicURL = DefaultPublicTokenList
	}
	if config.TokenList.TimeoutSeconds <= 0 {
		config.TokenList.TimeoutSeconds = DefaultUpstreamTimeoutSeconds
	}
	if config.TokenList.TTLSeconds <= 0 {
		config.TokenList.TTLSeconds = DefaultTokenListTTLSeconds
	}
	if config.NativeReserveStroops <= 0 {
		config.NativeReserveStroops = DefaultNativeReserveStroops
	}
	if config.Native == nil {
		config.Native = make(map[string]models.Token, len(DefaultNative))
	}
	for network, token := range DefaultNative {
		if _, ok := config.Native[network]; !ok {
			config.Native[network] = token
		}
	}
}
