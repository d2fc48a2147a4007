package mongostore

import (
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// RetryConfig parameterizes CalculateRetryDelay: exponential backoff
// between BaseDelay and MaxDelay. This is not part of the core's own
// invisibility-timeout recovery (which needs no backoff), but is exposed
// for a host-side scheduler layering retry scheduling on top of
// WriteTransaction/JobQueue.
type RetryConfig struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// CalculateRetryDelay computes exponential backoff with full jitter:
// random(0, min(MaxDelay, BaseDelay*2^(attempt-1))).
func CalculateRetryDelay(attempt int, cfg RetryConfig) time.Duration {
	backoff := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt-1))
	if backoff > float64(cfg.MaxDelay) {
		backoff = float64(cfg.MaxDelay)
	}

	maxJitter := int64(backoff)
	if maxJitter <= 0 {
		return cfg.BaseDelay
	}

	jitter, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
	if err != nil {
		return cfg.BaseDelay
	}
	return time.Duration(jitter.Int64())
}
