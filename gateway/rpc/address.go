package rpc

import (
	"fmt"

	"github.com/stellar/go/strkey"
)

// validateAccount checks a G... account id
func validateAccount(s string) error {
	if _, err := strkey.Decode(strkey.VersionByteAccountID, s); err != nil {
		return fmt.Errorf("invalid account id: %w", err)
	}
	return nil
}

// validateContract checks a C... contract id
func validateContract(s string) error {
	if _, err := strkey.Decode(strkey.VersionByteContract, s); err != nil {
		return fmt.Errorf("invalid contract id: %w", err)
	}
	return nil
}

// validateAsset accepts a contract id or an account id, which is how
// classic assets are referred to by some upstream endpoints
func validateAsset(s string) error {
	if err := validateContract(s); err == nil {
		return nil
	}
	return validateAccount(s)
}
