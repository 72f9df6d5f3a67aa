package taskflow

import "time"

// ExecutionConfig holds task-level execution parameters
type ExecutionConfig struct {
	// Retry policy
	MaxRetries   int             `json:"maxRetries" yaml:"max_retries" validate:"gte=0"`
	RetryDelayMs int             `json:"retryDelayMs" yaml:"retry_delay_ms" validate:"gte=0"`
	RetryBackoff BackoffStrategy `json:"retryBackoff" yaml:"retry_backoff" validate:"omitempty,oneof=LINEAR EXPONENTIAL NONE"`
}

// BackoffStrategy defines retry backoff behavior
type BackoffStrategy string

const (
	BackoffLinear      BackoffStrategy = "LINEAR"
	BackoffExponential BackoffStrategy = "EXPONENTIAL"
	BackoffNone        BackoffStrategy = "NONE"
)

// DefaultExecutionConfig retries three times and re-invokes immediately
var DefaultExecutionConfig = ExecutionConfig{
	MaxRetries:   3,
	RetryDelayMs: 0,
	RetryBackoff: BackoffNone,
}

// Delay returns the wait before the given retry (1-based)
func (c ExecutionConfig) Delay(retry int) time.Duration {
	return CalculateBackoff(c.RetryDelayMs, retry, c.RetryBackoff)
}

// TaskOption configures a FuncTask
type TaskOption func(*FuncTask)

// WithDescription sets the task description
func WithDescription(description string) TaskOption {
	return func(t *FuncTask) {
		t.description = description
	}
}

// WithInputs declares the task's inputs
func WithInputs(decls ...InputDecl) TaskOption {
	return func(t *FuncTask) {
		t.inputs = append(t.inputs, decls...)
	}
}

// WithRetries sets the maximum retry attempts
func WithRetries(max int) TaskOption {
	return func(t *FuncTask) {
		if max < 0 {
			max = 0
		}
		t.config.MaxRetries = max
	}
}

// WithRetryDelay sets the base retry delay
func WithRetryDelay(d time.Duration) TaskOption {
	return func(t *FuncTask) {
		t.config.RetryDelayMs = int(d.Milliseconds())
	}
}

// WithBackoff sets the retry backoff strategy
func WithBackoff(strategy BackoffStrategy) TaskOption {
	return func(t *FuncTask) {
		t.config.RetryBackoff = strategy
	}
}

// WithExecutionConfig replaces the whole execution config
func WithExecutionConfig(config ExecutionConfig) TaskOption {
	return func(t *FuncTask) {
		t.config = config
	}
}

// CalculateBackoff calculates the backoff delay for a retry attempt.
// It supports three strategies:
//   - EXPONENTIAL: baseDelay * 2^(attempt-1)
//   - LINEAR: baseDelay * attempt
//   - NONE: no backoff delay
//
// Returns 0 for attempt 0 (the first invocation).
func CalculateBackoff(baseDelayMs int, attempt int, strategy BackoffStrategy) time.Duration {
	if attempt <= 0 || baseDelayMs <= 0 {
		return 0
	}

	baseDelay := time.Duration(baseDelayMs) * time.Millisecond

	switch strategy {
	case BackoffExponential:
		multiplier := 1 << (attempt - 1)
		return baseDelay * time.Duration(multiplier)
	case BackoffLinear:
		return baseDelay * time.Duration(attempt)
	case BackoffNone:
		return 0
	default:
		// Default to linear
		return baseDelay * time.Duration(attempt)
	}
}
