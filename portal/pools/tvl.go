// Package pools values liquidity pools in USD and assembles the pool view
// consumed by the liquidity screens.
package pools

import (
	"math/big"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/shopspring/decimal"
)

// TVL returns the USD value locked in a pool, rounded to the nearest
// integer. A side whose price or token is absent from the maps contributes
// nothing, so a zero result does not mean the value was computable; check
// the maps for presence first.
func TVL(tokenA, tokenB string, reserveA, reserveB *big.Int, tokenMap map[string]models.Token, priceMap map[string]float64) int64 {
	total := side(tokenA, reserveA, tokenMap, priceMap).Add(side(tokenB, reserveB, tokenMap, priceMap))
	return total.Round(0).IntPart()
}

func side(contract string, reserve *big.Int, tokenMap map[string]models.Token, priceMap map[string]float64) decimal.Decimal {
	if reserve == nil {
		return decimal.Zero
	}
	tok, ok := tokenMap[contract]
	if !ok {
		return decimal.Zero
	}
	price, ok := priceMap[contract]
	if !ok {
		return decimal.Zero
	}
	amount := decimal.NewFromBigInt(reserve, -int32(tok.Decimals))
	return amount.Mul(decimal.NewFromFloat(price))
}
