package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Cogwheel-Validator/soroswap-portal/models"
)

// State is the lifecycle position of a cache entry
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Key identifies a cached resource, e.g. {"vault-info", "mainnet", vaultID}.
// An empty key means the query must not fetch, which is how queries wait
// for prerequisites such as a connected wallet.
type Key []string

// IsZero reports whether the key gates fetching
func (k Key) IsZero() bool {
	return len(k) == 0
}

func (k Key) String() string {
	return strings.Join(k, "|")
}

// Policy is the per-resource cache behavior
type Policy struct {
	// DedupWindow is how long a ready entry is served without refetching
	DedupWindow time.Duration
	// RefreshInterval triggers a background revalidation while watched; 0 disables it
	RefreshInterval time.Duration
	// MaxAttempts bounds the number of fetch attempts per load
	MaxAttempts int
	// RetryDelay is the fixed wait between attempts
	RetryDelay time.Duration
	// RateLimitDelay, when set, replaces RetryDelay after a rate-limit error
	RateLimitDelay time.Duration
	// ShouldRetry narrows which errors are retried; nil retries every non-terminal error
	ShouldRetry func(error) bool
}

// DefaultPolicy retries three times one second apart
func DefaultPolicy() Policy {
	return Policy{
		DedupWindow: 2 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  time.Second,
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// a rate limit may carry a 4xx status but is transient
	if models.IsRateLimited(err) {
		if p.ShouldRetry != nil {
			return p.ShouldRetry(err)
		}
		return true
	}
	if models.IsTerminal(err) {
		return false
	}
	if p.ShouldRetry != nil {
		return p.ShouldRetry(err)
	}
	return true
}

func (p Policy) delay(err error) time.Duration {
	if p.RateLimitDelay > 0 && models.IsRateLimited(err) {
		return p.RateLimitDelay
	}
	return p.RetryDelay
}

// policyBackOff waits RetryDelay between attempts, or RateLimitDelay after
// a rate-limit error
type policyBackOff struct {
	policy Policy
	last   error
}

func (b *policyBackOff) NextBackOff() time.Duration {
	return b.policy.delay(b.last)
}

func (b *policyBackOff) Reset() {
	b.last = nil
}
