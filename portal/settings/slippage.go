// Package settings holds the user's trade parameters: swap settings that
// persist across sessions and pool settings that live for one session.
package settings

import (
	"fmt"
	"math/big"
	"regexp"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/shopspring/decimal"
)

// SlippageMode selects between the automatic and a user chosen tolerance
type SlippageMode string

const (
	SlippageAuto   SlippageMode = "auto"
	SlippageCustom SlippageMode = "custom"
)

// AutoSlippage is the tolerance in percent used in auto mode
const AutoSlippage = "0.5"

// MaxSlippage is the highest accepted tolerance in percent
var MaxSlippage = decimal.NewFromInt(100)

// slippageInput matches what a slippage field may hold while being typed,
// including "" and a trailing "."
var slippageInput = regexp.MustCompile(`^\d{0,3}(\.\d{0,2})?$`)

// ValidateSlippageInput rejects a keystroke that would leave the slippage
// field outside 0-100 or with more than two decimals
func ValidateSlippageInput(input string) error {
	if !slippageInput.MatchString(input) {
		return models.NewError(models.KindValidation, fmt.Sprintf("invalid slippage %q", input))
	}
	if input == "" || input == "." {
		return nil
	}
	v, err := decimal.NewFromString(trimDot(input))
	if err != nil {
		return models.WrapError(models.KindValidation, fmt.Sprintf("invalid slippage %q", input), err)
	}
	if v.GreaterThan(MaxSlippage) {
		return models.NewError(models.KindValidation, fmt.Sprintf("slippage %s exceeds 100%%", input))
	}
	return nil
}

func trimDot(s string) string {
	if s != "" && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	if s != "" && s[0] == '.' {
		s = "0" + s
	}
	return s
}

// parseSlippage returns the percent held by a custom slippage field. An
// empty or partial field falls back to the auto tolerance.
func parseSlippage(mode SlippageMode, custom string) decimal.Decimal {
	auto := decimal.RequireFromString(AutoSlippage)
	if mode != SlippageCustom {
		return auto
	}
	s := trimDot(custom)
	if s == "" || ValidateSlippageInput(custom) != nil {
		return auto
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return auto
	}
	return v
}

// MinOutput returns the minimum amount to receive for an expected output
// under slippageBps basis points: expected * (10000 - bps) / 10000,
// rounded down
func MinOutput(expected string, slippageBps uint32) (string, error) {
	if slippageBps > 10000 {
		return "", models.NewError(models.KindValidation, fmt.Sprintf("slippage %d bps exceeds 10000", slippageBps))
	}
	amount, ok := new(big.Int).SetString(expected, 10)
	if !ok || amount.Sign() < 0 {
		return "", models.NewError(models.KindValidation, fmt.Sprintf("failed to parse expected output %q", expected))
	}

	minOutput := new(big.Int).Mul(amount, big.NewInt(int64(10000-slippageBps)))
	minOutput.Quo(minOutput, big.NewInt(10000))
	return minOutput.String(), nil
}
