package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the ezvcpkg configuration. Every field may also be supplied via
// EZVCPKG_* environment variables or command line flags; flags win.
type Config struct {
	Vcpkg   VcpkgConfig   `yaml:"vcpkg"`
	Build   BuildConfig   `yaml:"build"`
	Lock    LockConfig    `yaml:"lock"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// VcpkgConfig selects the vcpkg distribution and the packages installed into it.
type VcpkgConfig struct {
	URL            string   `yaml:"url"`               // vcpkg git repository
	Commit         string   `yaml:"commit"`            // exact commit to check out
	CacheDir       string   `yaml:"cache_dir"`         // parent of the per-commit installation roots
	Packages       []string `yaml:"packages"`          // packages passed to vcpkg install
	Triplet        string   `yaml:"triplet,omitempty"` // optional --triplet value
	ForceBootstrap bool     `yaml:"force_bootstrap"`   // rerun bootstrap even when the tag is current
	ForceBuild     bool     `yaml:"force_build"`       // rebuild the vcpkg tool itself
}

// BuildConfig describes the consuming build tree.
type BuildConfig struct {
	Root string `yaml:"root"` // CMake build directory receiving ezvcpkg.cmake
}

// LockConfig controls the cross-process lock guarding the installation.
type LockConfig struct {
	Path          string           `yaml:"path,omitempty"`
	Variant       LockVariant      `yaml:"variant,omitempty"`
	RetryBackoff  RetryBackoffMode `yaml:"retry_backoff,omitempty"`
	RetryInterval string           `yaml:"retry_interval,omitempty"` // duration string, default 10s
	RetryMaxDelay string           `yaml:"retry_max_delay,omitempty"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig configures the optional node-exporter textfile.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Load reads configuration from configPath when it is non-empty, then applies
// .env files and EZVCPKG_* environment overrides. Defaults and validation are
// left to Finalize so that callers can merge command line flags first.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	var config Config
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("configuration file not found: %s", configPath)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyEnvOverrides(&config)
	return &config, nil
}

// Finalize applies defaults and validates the merged configuration.
func Finalize(cfg *Config) error {
	if err := ApplyDefaults(cfg); err != nil {
		return fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// InstallRoot is the per-commit vcpkg installation directory.
func (c *Config) InstallRoot() string {
	return filepath.Join(c.Vcpkg.CacheDir, c.Vcpkg.Commit)
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		Vcpkg: VcpkgConfig{
			URL:      "https://github.com/microsoft/vcpkg.git",
			Commit:   "f990dfaa5ba82155f95b75021453c075816fd4be",
			CacheDir: "${HOME}/.ezvcpkg",
			Packages: []string{"glm", "zlib"},
		},
		Build: BuildConfig{Root: "./build"},
		Lock: LockConfig{
			Variant:       LockVariantAuto,
			RetryBackoff:  RetryBackoffFixed,
			RetryInterval: "10s",
		},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
