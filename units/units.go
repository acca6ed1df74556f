// Package units converts between human readable decimal amounts and integer
// amounts in the smallest unit of a token. All arithmetic is arbitrary
// precision; floating point is never involved.
package units

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
	"github.com/shopspring/decimal"
)

// MaxDecimals bounds the scale accepted by ParseUnits and FormatUnits
const MaxDecimals = 38

var amountPattern = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)$`)

// ParseUnits converts a decimal string such as "1.5" into its integer
// representation with the given number of decimals. A fraction longer than
// decimals is truncated, never rounded: ParseUnits("1.23456", 2) is 123.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, models.NewError(models.KindValidation, fmt.Sprintf("decimals %d out of range", decimals))
	}
	s = strings.TrimSpace(s)
	if !amountPattern.MatchString(s) {
		return nil, models.NewError(models.KindValidation, fmt.Sprintf("invalid amount %q", s))
	}

	d, err := decimal.NewFromString(normalize(s))
	if err != nil {
		return nil, models.WrapError(models.KindValidation, fmt.Sprintf("invalid amount %q", s), err)
	}
	return d.Shift(int32(decimals)).Truncate(0).BigInt(), nil
}

// FormatUnits converts an integer amount back into a decimal string.
// Trailing zeros of the fraction are stripped and an all-zero fraction
// drops the decimal point.
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}
	if decimals <= 0 {
		return v.String()
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}

// MustParseUnits is ParseUnits for constants known to be valid
func MustParseUnits(s string, decimals int) *big.Int {
	v, err := ParseUnits(s, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

// normalize turns ".5" into "0.5" and "1." into "1"
func normalize(s string) string {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")
	if neg {
		return "-" + s
	}
	return s
}
