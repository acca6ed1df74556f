package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Network identifies the Stellar network a request targets
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// ParseNetwork normalizes a network label, accepting only mainnet and testnet
func ParseNetwork(s string) (Network, error) {
	switch Network(strings.ToLower(strings.TrimSpace(s))) {
	case Mainnet:
		return Mainnet, nil
	case Testnet:
		return Testnet, nil
	default:
		return "", NewError(KindValidation, fmt.Sprintf("unknown network %q", s))
	}
}

// DefaultDecimals is the fixed-point scale used by Stellar classic assets
const DefaultDecimals = 7

// Token identifies a fungible asset. Contract is the unique key for every
// lookup, Code is only a display hint and may collide across issuers.
type Token struct {
	Code     string `json:"code" toml:"code"`
	Issuer   string `json:"issuer,omitempty" toml:"issuer"`
	Contract string `json:"contract" toml:"contract"`
	Name     string `json:"name,omitempty" toml:"name"`
	Org      string `json:"org,omitempty" toml:"org"`
	Domain   string `json:"domain,omitempty" toml:"domain"`
	Icon     string `json:"icon,omitempty" toml:"icon"`
	Decimals int    `json:"decimals" toml:"decimals"`
}

// UnmarshalJSON decodes a token. Zero is a valid scale, so only a missing
// or null decimals field falls back to DefaultDecimals.
func (t *Token) UnmarshalJSON(data []byte) error {
	type plain Token
	aux := struct {
		*plain
		Decimals *int `json:"decimals"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.Decimals = DefaultDecimals
	if aux.Decimals != nil {
		t.Decimals = *aux.Decimals
	}
	return nil
}

// TokenList is a curated asset list together with its metadata
type TokenList struct {
	Name     string  `json:"name"`
	Provider string  `json:"provider"`
	Version  string  `json:"version,omitempty"`
	Network  string  `json:"network"`
	Assets   []Token `json:"assets"`
}

// FindByContract returns the asset with the given contract id
func (l TokenList) FindByContract(contract string) (Token, bool) {
	for _, t := range l.Assets {
		if t.Contract == contract {
			return t, true
		}
	}
	return Token{}, false
}

// TokenBalance pairs a token with the holdings of a wallet.
// Available and AvailableRaw are only set for the native asset.
type TokenBalance struct {
	Token        Token  `json:"token"`
	Amount       string `json:"amount"`
	RawAmount    string `json:"rawAmount"`
	Available    string `json:"available,omitempty"`
	AvailableRaw string `json:"availableRaw,omitempty"`
}

// PriceEntry maps a token contract to its USD unit price
type PriceEntry struct {
	Asset string  `json:"asset"`
	Price float64 `json:"price"`
}
