package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// VcpkgDefaultApplier handles vcpkg distribution defaults.
type VcpkgDefaultApplier struct{}

func (v *VcpkgDefaultApplier) Domain() string { return "vcpkg" }

func (v *VcpkgDefaultApplier) ApplyDefaults(cfg *Config) error {
	cfg.Vcpkg.URL = strings.TrimSpace(cfg.Vcpkg.URL)
	cfg.Vcpkg.Commit = strings.TrimSpace(cfg.Vcpkg.Commit)
	cfg.Vcpkg.Packages = NormalizePackages(cfg.Vcpkg.Packages)

	if cfg.Vcpkg.CacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory for cache dir: %w", err)
		}
		cfg.Vcpkg.CacheDir = filepath.Join(home, ".ezvcpkg")
	}
	dir, err := expandHome(cfg.Vcpkg.CacheDir)
	if err != nil {
		return err
	}
	cfg.Vcpkg.CacheDir = filepath.Clean(dir)
	return nil
}

// LockDefaultApplier handles lock path and contention backoff defaults.
type LockDefaultApplier struct{}

func (l *LockDefaultApplier) Domain() string { return "lock" }

func (l *LockDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Lock.Path == "" {
		cfg.Lock.Path = filepath.Join(cfg.Vcpkg.CacheDir, "ezvcpkg.lock")
	}

	if cfg.Lock.Variant == "" {
		cfg.Lock.Variant = LockVariantAuto
	} else if v, err := lockVariantNormalizer.NormalizeWithError(string(cfg.Lock.Variant)); err == nil {
		cfg.Lock.Variant = v
	} // unknown values are left for Validate to report

	if cfg.Lock.RetryBackoff == "" {
		cfg.Lock.RetryBackoff = RetryBackoffFixed
	} else {
		cfg.Lock.RetryBackoff = NormalizeRetryBackoff(string(cfg.Lock.RetryBackoff))
		if cfg.Lock.RetryBackoff == "" { // fallback to default if unknown
			cfg.Lock.RetryBackoff = RetryBackoffFixed
		}
	}

	if cfg.Lock.RetryInterval == "" {
		cfg.Lock.RetryInterval = "10s"
	}
	if cfg.Lock.RetryMaxDelay == "" {
		cfg.Lock.RetryMaxDelay = cfg.Lock.RetryInterval
	}
	return nil
}

// LoggingDefaultApplier handles log level and format defaults.
type LoggingDefaultApplier struct{}

func (l *LoggingDefaultApplier) Domain() string { return "logging" }

func (l *LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	if lvl, err := logLevelNormalizer.NormalizeWithError(string(cfg.Logging.Level)); err == nil {
		cfg.Logging.Level = lvl
	}
	if f, err := logFormatNormalizer.NormalizeWithError(string(cfg.Logging.Format)); err == nil {
		cfg.Logging.Format = f
	}
	return nil
}

// defaultAppliers run in order; lock defaults depend on the resolved cache dir.
var defaultAppliers = []DefaultApplier{
	&VcpkgDefaultApplier{},
	&LockDefaultApplier{},
	&LoggingDefaultApplier{},
}

// ApplyDefaults fills every unset field. It is safe to call more than once.
func ApplyDefaults(cfg *Config) error {
	for _, applier := range defaultAppliers {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("%s: %w", applier.Domain(), err)
		}
	}
	return nil
}

// NormalizePackages trims names and drops empties and duplicates, keeping the
// first occurrence so install order follows the caller.
func NormalizePackages(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", p, err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
