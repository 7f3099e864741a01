package engine

import (
	"fmt"
	"time"
)

// EngineConfig contains configuration for the rule engine.
type EngineConfig struct {
	// DefaultActionTimeout bounds a rule's action batch when the rule does
	// not set its own execution timeout.
	// Default: 30s.
	DefaultActionTimeout time.Duration

	// RetryBaseDelay is the base delay for exponential backoff on transient
	// collaborator failures. Delay for attempt n is
	// RetryBaseDelay * backoffMultiplier^(n-1).
	// Default: 100ms.
	RetryBaseDelay time.Duration

	// RetryMaxDelay caps a single backoff delay so retries cannot stall a
	// rule indefinitely.
	// Default: 60s.
	RetryMaxDelay time.Duration

	// DefaultMaxAttempts applies when a rule has no retry policy.
	// Default: 1 (no retries).
	DefaultMaxAttempts int

	// AsyncQueueSize is the buffer size of the async action queue.
	// Default: 256.
	AsyncQueueSize int

	// AsyncWorkers is the number of goroutines draining the async queue.
	// Default: 4.
	AsyncWorkers int
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		DefaultActionTimeout: 30 * time.Second,
		RetryBaseDelay:       100 * time.Millisecond,
		RetryMaxDelay:        60 * time.Second,
		DefaultMaxAttempts:   1,
		AsyncQueueSize:       256,
		AsyncWorkers:         4,
	}
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	if c.DefaultActionTimeout <= 0 {
		return fmt.Errorf("%w: default action timeout must be positive", ErrInvalidConfig)
	}
	if c.RetryBaseDelay <= 0 {
		return fmt.Errorf("%w: retry base delay must be positive", ErrInvalidConfig)
	}
	if c.RetryMaxDelay < c.RetryBaseDelay {
		return fmt.Errorf("%w: retry max delay cannot be below base delay", ErrInvalidConfig)
	}
	if c.DefaultMaxAttempts < 1 {
		return fmt.Errorf("%w: default max attempts must be at least 1", ErrInvalidConfig)
	}
	if c.AsyncQueueSize <= 0 {
		return fmt.Errorf("%w: async queue size must be positive", ErrInvalidConfig)
	}
	if c.AsyncWorkers <= 0 {
		return fmt.Errorf("%w: async workers must be positive", ErrInvalidConfig)
	}
	return nil
}

// WithDefaultActionTimeout sets the default action batch timeout.
func (c *EngineConfig) WithDefaultActionTimeout(timeout time.Duration) *EngineConfig {
	c.DefaultActionTimeout = timeout
	return c
}

// WithRetryBaseDelay sets the base backoff delay.
func (c *EngineConfig) WithRetryBaseDelay(delay time.Duration) *EngineConfig {
	c.RetryBaseDelay = delay
	return c
}

// WithRetryMaxDelay sets the backoff delay ceiling.
func (c *EngineConfig) WithRetryMaxDelay(delay time.Duration) *EngineConfig {
	c.RetryMaxDelay = delay
	return c
}

// WithAsyncQueueSize sets the async action queue buffer size.
func (c *EngineConfig) WithAsyncQueueSize(size int) *EngineConfig {
	c.AsyncQueueSize = size
	return c
}

// WithAsyncWorkers sets the async worker count.
func (c *EngineConfig) WithAsyncWorkers(n int) *EngineConfig {
	c.AsyncWorkers = n
	return c
}
