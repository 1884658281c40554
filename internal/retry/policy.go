// Package retry describes the wait between attempts of an operation that failed for a
// transient reason. ezvcpkg only retries lock contention; everything else fails fast.
package retry

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/ezvcpkg/internal/config"
)

// Unlimited disables the attempt cap.
const Unlimited = -1

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode       config.RetryBackoffMode // fixed|linear|exponential
	Initial    time.Duration           // base delay
	Max        time.Duration           // cap for growth
	MaxRetries int                     // maximum retries after the first failure, Unlimited for none
}

// DefaultPolicy waits a fixed ten seconds between attempts, forever.
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffFixed, Initial: 10 * time.Second, Max: 10 * time.Second, MaxRetries: Unlimited}
}

// NewPolicy builds a policy from raw config fields; zero/invalid values fall back to defaults.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDuration time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 || maxRetries == Unlimited {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
		if maxDuration <= 0 && p.Max < initial {
			p.Max = initial
		}
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	switch mode {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = mode
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the backoff delay for the given retry attempt number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffExponential:
		if retryCount > 32 {
			return p.Max
		}
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	default: // linear
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Exhausted reports whether retryCount retries already used up the policy.
func (p Policy) Exhausted(retryCount int) bool {
	return p.MaxRetries != Unlimited && retryCount >= p.MaxRetries
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxRetries < 0 && p.MaxRetries != Unlimited {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}
