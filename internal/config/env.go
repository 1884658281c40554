package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "EZVCPKG_"

// envFiles are tried in order; values already present in the environment win.
var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads .env/.env.local when present. Missing files are not an error.
func loadEnvFiles() {
	for _, envPath := range envFiles {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		_ = godotenv.Load(envPath)
	}
}

// applyEnvOverrides copies EZVCPKG_* variables over file values.
func applyEnvOverrides(cfg *Config) {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}

	str("VCPKG_URL", &cfg.Vcpkg.URL)
	str("VCPKG_COMMIT", &cfg.Vcpkg.Commit)
	str("VCPKG_ROOT", &cfg.Vcpkg.CacheDir)
	str("TRIPLET", &cfg.Vcpkg.Triplet)
	str("BUILD_ROOT", &cfg.Build.Root)
	str("LOCK_FILE", &cfg.Lock.Path)
	str("METRICS_TEXTFILE", &cfg.Metrics.Textfile)
	flag("FORCE_BOOTSTRAP", &cfg.Vcpkg.ForceBootstrap)
	flag("FORCE_BUILD", &cfg.Vcpkg.ForceBuild)

	var variant, backoff, interval, level, format string
	str("LOCK_VARIANT", &variant)
	str("LOCK_RETRY_BACKOFF", &backoff)
	str("LOCK_RETRY_INTERVAL", &interval)
	str("LOG_LEVEL", &level)
	str("LOG_FORMAT", &format)
	if variant != "" {
		cfg.Lock.Variant = LockVariant(variant)
	}
	if backoff != "" {
		cfg.Lock.RetryBackoff = RetryBackoffMode(backoff)
	}
	if interval != "" {
		cfg.Lock.RetryInterval = interval
	}
	if level != "" {
		cfg.Logging.Level = LogLevel(level)
	}
	if format != "" {
		cfg.Logging.Format = LogFormat(format)
	}

	// Packages are separated by commas, semicolons (CMake lists) or whitespace.
	if v, ok := os.LookupEnv(EnvPrefix + "VCPKG_PACKAGES"); ok {
		if pkgs := SplitPackageList(v); len(pkgs) > 0 {
			cfg.Vcpkg.Packages = pkgs
		}
	}
}

// SplitPackageList splits a package list written as "a,b", "a;b" or "a b".
func SplitPackageList(raw string) []string {
	return NormalizePackages(strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	}))
}
