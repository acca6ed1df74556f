package queries

import (
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/portal/cache"
)

// retried is the common retry shape: three attempts one second apart
func retried(dedup, refresh time.Duration) cache.Policy {
	return cache.Policy{
		DedupWindow:     dedup,
		RefreshInterval: refresh,
		MaxAttempts:     3,
		RetryDelay:      time.Second,
	}
}

// Per resource policies. Volatile resources such as balances refresh while
// watched; prices and token metadata are held for tens of minutes.
var (
	TokensPolicy = cache.Policy{
		DedupWindow:    50 * time.Minute,
		MaxAttempts:    3,
		RetryDelay:     time.Second,
		RateLimitDelay: 2 * time.Second,
	}
	PricePolicy        = retried(30*time.Minute, 0)
	TokenPolicy        = retried(50*time.Minute, 0)
	VaultInfoPolicy    = retried(5*time.Minute, 0)
	VaultBalancePolicy = retried(30*time.Second, 30*time.Second)
	PoolsPolicy        = retried(time.Minute, time.Minute)
	PoolPairPolicy     = retried(time.Minute, 0)
	PositionsPolicy    = retried(30*time.Second, 30*time.Second)
	BalancesPolicy     = retried(30*time.Second, 30*time.Second)
)
