package models

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// Pool is a liquidity pool between two tokens. Reserves are integer amounts
// in the smallest unit and may exceed 64 bits.
type Pool struct {
	Protocol string `json:"protocol,omitempty" toml:"protocol"`
	Address  string `json:"address,omitempty" toml:"address"`
	TokenA   string `json:"tokenA" toml:"token_a"`
	TokenB   string `json:"tokenB" toml:"token_b"`
	ReserveA string `json:"reserveA" toml:"reserve_a"`
	ReserveB string `json:"reserveB" toml:"reserve_b"`
}

// ReserveAInt parses ReserveA as an arbitrary precision integer
func (p Pool) ReserveAInt() (*big.Int, error) {
	return parseReserve(p.ReserveA)
}

// ReserveBInt parses ReserveB as an arbitrary precision integer
func (p Pool) ReserveBInt() (*big.Int, error) {
	return parseReserve(p.ReserveB)
}

func parseReserve(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, NewError(KindParse, fmt.Sprintf("invalid reserve %q", s))
	}
	return v, nil
}

// Position is a user's share of a liquidity pool
type Position struct {
	Pool        Pool   `json:"pool"`
	UserShares  string `json:"userShares"`
	TotalShares string `json:"totalShares,omitempty"`
}

// VaultInfo is passed through untouched from the vault API
type VaultInfo = json.RawMessage

// VaultBalance is passed through untouched from the vault API
type VaultBalance = json.RawMessage
