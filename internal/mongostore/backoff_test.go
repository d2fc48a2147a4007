package mongostore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateRetryDelay_BoundedByMaxDelay(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	for attempt := 1; attempt <= 10; attempt++ {
		delay := CalculateRetryDelay(attempt, cfg)
		assert.GreaterOrEqual(t, delay, time.Duration(0))
		assert.LessOrEqual(t, delay, cfg.MaxDelay)
	}
}

func TestCalculateRetryDelay_GrowsWithAttempt(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 10 * time.Millisecond, MaxDelay: time.Hour}

	// Full jitter means any single sample can be small, but the ceiling
	// (the backoff before jitter) strictly grows until capped; sample many
	// times and assert the maximum observed delay increases across attempts.
	maxAt := func(attempt int) time.Duration {
		var max time.Duration
		for i := 0; i < 200; i++ {
			if d := CalculateRetryDelay(attempt, cfg); d > max {
				max = d
			}
		}
		return max
	}

	assert.Greater(t, maxAt(5), maxAt(1))
}

func TestCalculateRetryDelay_ZeroBackoffFallsBackToBaseDelay(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 50 * time.Millisecond, MaxDelay: 0}
	assert.Equal(t, cfg.BaseDelay, CalculateRetryDelay(1, cfg))
}
