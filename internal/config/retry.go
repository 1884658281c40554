package config

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/ezvcpkg/internal/foundation/normalization"
)

// RetryBackoffMode enumerates supported backoff strategies for retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

var retryBackoffNormalizer = normalization.NewNormalizer(map[string]RetryBackoffMode{
	"fixed":       RetryBackoffFixed,
	"linear":      RetryBackoffLinear,
	"exponential": RetryBackoffExponential,
}, "")

// NormalizeRetryBackoff converts arbitrary user input (case-insensitive) into a typed mode, returning empty string for unknown.
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	return retryBackoffNormalizer.Normalize(raw)
}

// RetryDelays parses the lock retry interval and cap.
func (l LockConfig) RetryDelays() (initial, maxDelay time.Duration, err error) {
	if l.RetryInterval != "" {
		if initial, err = time.ParseDuration(l.RetryInterval); err != nil {
			return 0, 0, fmt.Errorf("invalid lock retry_interval %q: %w", l.RetryInterval, err)
		}
	}
	if l.RetryMaxDelay != "" {
		if maxDelay, err = time.ParseDuration(l.RetryMaxDelay); err != nil {
			return 0, 0, fmt.Errorf("invalid lock retry_max_delay %q: %w", l.RetryMaxDelay, err)
		}
	}
	return initial, maxDelay, nil
}
