package taskflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultExecutionConfig(t *testing.T) {
	config := DefaultExecutionConfig

	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 0, config.RetryDelayMs)
	assert.Equal(t, BackoffNone, config.RetryBackoff)
}

func TestWithExecutionConfig(t *testing.T) {
	cfg := ExecutionConfig{MaxRetries: 1, RetryDelayMs: 50, RetryBackoff: BackoffLinear}
	task := NewTask("t", doubleHandler, WithExecutionConfig(cfg))

	assert.Equal(t, cfg, task.Config())
}

func TestCalculateBackoff_FirstAttempt(t *testing.T) {
	strategies := []BackoffStrategy{BackoffExponential, BackoffLinear, BackoffNone, "unknown"}

	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			assert.Equal(t, time.Duration(0), CalculateBackoff(100, 0, strategy))
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		name     string
		base     int
		attempt  int
		strategy BackoffStrategy
		want     time.Duration
	}{
		{"exponential 1", 100, 1, BackoffExponential, 100 * time.Millisecond},
		{"exponential 2", 100, 2, BackoffExponential, 200 * time.Millisecond},
		{"exponential 4", 100, 4, BackoffExponential, 800 * time.Millisecond},
		{"linear 1", 100, 1, BackoffLinear, 100 * time.Millisecond},
		{"linear 3", 100, 3, BackoffLinear, 300 * time.Millisecond},
		{"none", 100, 3, BackoffNone, 0},
		{"unknown defaults to linear", 100, 2, "unknown", 200 * time.Millisecond},
		{"zero base", 0, 3, BackoffExponential, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateBackoff(tt.base, tt.attempt, tt.strategy))
		})
	}
}

func TestExecutionConfig_Delay(t *testing.T) {
	cfg := ExecutionConfig{MaxRetries: 3, RetryDelayMs: 10, RetryBackoff: BackoffExponential}

	assert.Equal(t, 10*time.Millisecond, cfg.Delay(1))
	assert.Equal(t, 20*time.Millisecond, cfg.Delay(2))
	assert.Equal(t, time.Duration(0), DefaultExecutionConfig.Delay(1))
}
