// Package retry provides exponential backoff retry for catalog and
// download requests.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NonRetryableError wraps errors that should not be retried, such as HTTP
// client errors.
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps an error to indicate it should not be retried.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable checks if an error is marked as non-retryable.
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}

// Config provides retry configuration.
type Config struct {
	MaxAttempts  int           `yaml:"max_attempts"`  // 0 = run once
	InitialDelay time.Duration `yaml:"initial_delay"` // delay before the second attempt
	MaxDelay     time.Duration `yaml:"max_delay"`     // backoff ceiling
	Multiplier   float64       `yaml:"multiplier"`    // typically 2.0
	AddJitter    bool          `yaml:"add_jitter"`    // randomize delays
}

// UnmarshalYAML accepts delays as duration strings like "500ms".
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		MaxAttempts  int     `yaml:"max_attempts"`
		InitialDelay string  `yaml:"initial_delay"`
		MaxDelay     string  `yaml:"max_delay"`
		Multiplier   float64 `yaml:"multiplier"`
		AddJitter    bool    `yaml:"add_jitter"`
	}{
		MaxAttempts: c.MaxAttempts,
		Multiplier:  c.Multiplier,
		AddJitter:   c.AddJitter,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.MaxAttempts = raw.MaxAttempts
	c.Multiplier = raw.Multiplier
	c.AddJitter = raw.AddJitter
	if raw.InitialDelay != "" {
		d, err := time.ParseDuration(raw.InitialDelay)
		if err != nil {
			return fmt.Errorf("retry initial_delay: %w", err)
		}
		c.InitialDelay = d
	}
	if raw.MaxDelay != "" {
		d, err := time.ParseDuration(raw.MaxDelay)
		if err != nil {
			return fmt.Errorf("retry max_delay: %w", err)
		}
		c.MaxDelay = d
	}
	return nil
}

// DefaultConfig returns sensible defaults for remote catalog requests.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// Do executes fn with exponential backoff. A NonRetryableError or context
// cancellation stops the attempts immediately.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = 2.0
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		return errors.New("retry: MaxDelay must be >= InitialDelay")
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if IsNonRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled before attempt %d: %w", attempt, ctx.Err())
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		sleep := delay
		if j := int64(delay / 4); cfg.AddJitter && j > 0 {
			randMu.Lock()
			sleep += time.Duration(randSource.Int63n(j))
			randMu.Unlock()
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled during backoff for attempt %d: %w", attempt+1, ctx.Err())
		case <-timer.C:
		}

		next := float64(delay) * cfg.Multiplier
		if next > float64(cfg.MaxDelay) {
			delay = cfg.MaxDelay
		} else {
			delay = time.Duration(next)
		}
	}

	return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}
