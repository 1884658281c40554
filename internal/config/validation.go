package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// commitPattern accepts hex object names and plain ref names (tags, branches).
var commitPattern = regexp.MustCompile(`^([0-9a-fA-F]{7,40}|[A-Za-z0-9][A-Za-z0-9._/-]*)$`)

// ValidateConfig validates the complete configuration. Run it after defaults
// and command line flags were merged.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}
	validator := newConfigurationValidator(cfg)
	return validator.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateVcpkg(); err != nil {
		return err
	}
	if err := cv.validateBuild(); err != nil {
		return err
	}
	if err := cv.validateLock(); err != nil {
		return err
	}
	return cv.validateLogging()
}

func (cv *configurationValidator) validateVcpkg() error {
	v := cv.config.Vcpkg
	if v.URL == "" {
		return errors.New("vcpkg url is required")
	}
	if v.Commit == "" {
		return errors.New("vcpkg commit is required")
	}
	if !commitPattern.MatchString(v.Commit) || strings.Contains(v.Commit, "..") {
		return fmt.Errorf("invalid vcpkg commit %q", v.Commit)
	}
	if v.CacheDir == "" {
		return errors.New("vcpkg cache dir is required")
	}
	if len(v.Packages) == 0 {
		return errors.New("at least one vcpkg package is required")
	}
	for _, p := range v.Packages {
		if strings.TrimSpace(p) == "" {
			return errors.New("vcpkg package names cannot be empty")
		}
		if strings.HasPrefix(p, "-") {
			return fmt.Errorf("invalid vcpkg package name %q", p)
		}
	}
	return nil
}

func (cv *configurationValidator) validateBuild() error {
	if cv.config.Build.Root == "" {
		return errors.New("build root is required")
	}
	return nil
}

func (cv *configurationValidator) validateLock() error {
	l := cv.config.Lock
	if l.Path == "" {
		return errors.New("lock path is required")
	}
	if _, err := lockVariantNormalizer.NormalizeWithError(string(l.Variant)); err != nil {
		return fmt.Errorf("lock variant: %w", err)
	}
	if _, err := retryBackoffNormalizer.NormalizeWithError(string(l.RetryBackoff)); err != nil {
		return fmt.Errorf("lock retry_backoff: %w", err)
	}
	initial, maxDelay, err := l.RetryDelays()
	if err != nil {
		return err
	}
	if initial < 0 || maxDelay < 0 {
		return errors.New("lock retry delays cannot be negative")
	}
	return nil
}

func (cv *configurationValidator) validateLogging() error {
	if _, err := logLevelNormalizer.NormalizeWithError(string(cv.config.Logging.Level)); err != nil {
		return fmt.Errorf("logging level: %w", err)
	}
	if _, err := logFormatNormalizer.NormalizeWithError(string(cv.config.Logging.Format)); err != nil {
		return fmt.Errorf("logging format: %w", err)
	}
	return nil
}
