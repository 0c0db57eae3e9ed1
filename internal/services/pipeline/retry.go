package pipeline

import (
	"math/rand"
	"time"
)

// retryConfig governs the Document Pipeline's transient-error retry policy
// (§4.2: "transient upstream errors ... are retried with exponential
// backoff + jitter up to a bounded attempt count"). Mirrors the shape of
// llm.GeminiRetryConfig but with constants suited to an in-pipeline retry
// rather than a quota-window wait.
type retryConfig struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		MaxAttempts:       4,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// backoff returns the jittered wait before retry attempt (0-indexed).
func (c retryConfig) backoff(attempt int) time.Duration {
	d := c.InitialBackoff
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * c.BackoffMultiplier)
	}
	if d > c.MaxBackoff {
		d = c.MaxBackoff
	}
	factor := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(d) * factor)
}
