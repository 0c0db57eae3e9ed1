package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryConfig_BackoffGrowsAndCaps(t *testing.T) {
	cfg := defaultRetryConfig()

	first := cfg.backoff(0)
	assert.True(t, first > 0)
	assert.True(t, first <= cfg.MaxBackoff)

	late := cfg.backoff(10)
	assert.True(t, late <= cfg.MaxBackoff)
}
