package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ezvcpkg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("EZVCPKG_TEST_CACHE", "/var/cache/ezvcpkg")
	path := writeConfig(t, "vcpkg:\n"+
		"  url: https://github.com/microsoft/vcpkg.git\n"+
		"  commit: f990dfaa5ba82155f95b75021453c075816fd4be\n"+
		"  cache_dir: ${EZVCPKG_TEST_CACHE}\n"+
		"  packages: [glm, zlib, glm, \" \"]\n"+
		"  triplet: x64-linux\n"+
		"build:\n"+
		"  root: /tmp/build\n"+
		"lock:\n"+
		"  variant: Exclusive-Create\n"+
		"  retry_interval: 2s\n"+
		"logging:\n"+
		"  level: DEBUG\n"+
		"  format: json\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Finalize(cfg))

	require.Equal(t, "/var/cache/ezvcpkg", cfg.Vcpkg.CacheDir)
	require.Equal(t, []string{"glm", "zlib"}, cfg.Vcpkg.Packages)
	require.Equal(t, "x64-linux", cfg.Vcpkg.Triplet)
	require.Equal(t, filepath.Join("/var/cache/ezvcpkg", "ezvcpkg.lock"), cfg.Lock.Path)
	require.Equal(t, LockVariantExclusiveCreate, cfg.Lock.Variant)
	require.Equal(t, RetryBackoffFixed, cfg.Lock.RetryBackoff)
	require.Equal(t, LogLevelDebug, cfg.Logging.Level)
	require.Equal(t, LogFormatJSON, cfg.Logging.Format)
	require.Equal(t, filepath.Join("/var/cache/ezvcpkg", "f990dfaa5ba82155f95b75021453c075816fd4be"), cfg.InstallRoot())

	initial, maxDelay, err := cfg.Lock.RetryDelays()
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, initial)
	require.Equal(t, 2*time.Second, maxDelay)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "configuration file not found")
}

func TestLoadWithoutFileUsesEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EZVCPKG_VCPKG_URL", "https://example.com/vcpkg.git")
	t.Setenv("EZVCPKG_VCPKG_COMMIT", "abc1234")
	t.Setenv("EZVCPKG_VCPKG_PACKAGES", "glm;zlib, fmt")
	t.Setenv("EZVCPKG_VCPKG_ROOT", "/opt/ezvcpkg")
	t.Setenv("EZVCPKG_BUILD_ROOT", "/tmp/build")
	t.Setenv("EZVCPKG_FORCE_BUILD", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, Finalize(cfg))
	require.Equal(t, "https://example.com/vcpkg.git", cfg.Vcpkg.URL)
	require.Equal(t, []string{"glm", "zlib", "fmt"}, cfg.Vcpkg.Packages)
	require.True(t, cfg.Vcpkg.ForceBuild)
	require.Equal(t, "/opt/ezvcpkg/ezvcpkg.lock", cfg.Lock.Path)
}

func TestDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("EZVCPKG_TRIPLET=from-dotenv\nEZVCPKG_BUILD_ROOT=/from/dotenv\n"), 0o600))
	t.Setenv("EZVCPKG_TRIPLET", "from-env")
	// Registered so the variable set by godotenv is removed after the test.
	t.Setenv("EZVCPKG_BUILD_ROOT", "")
	require.NoError(t, os.Unsetenv("EZVCPKG_BUILD_ROOT"))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Vcpkg.Triplet)
	require.Equal(t, "/from/dotenv", cfg.Build.Root)
}

func TestDefaultCacheDirIsUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg := &Config{}
	require.NoError(t, ApplyDefaults(cfg))
	require.Equal(t, filepath.Join(home, ".ezvcpkg"), cfg.Vcpkg.CacheDir)
	require.Equal(t, filepath.Join(home, ".ezvcpkg", "ezvcpkg.lock"), cfg.Lock.Path)
	require.Equal(t, LockVariantAuto, cfg.Lock.Variant)
	require.Equal(t, "10s", cfg.Lock.RetryInterval)
	require.Equal(t, LogLevelInfo, cfg.Logging.Level)
	require.Equal(t, LogFormatText, cfg.Logging.Format)

	cfg = &Config{Vcpkg: VcpkgConfig{CacheDir: "~/cache"}}
	require.NoError(t, ApplyDefaults(cfg))
	require.Equal(t, filepath.Join(home, "cache"), cfg.Vcpkg.CacheDir)
}

func validConfig() *Config {
	return &Config{
		Vcpkg: VcpkgConfig{
			URL:      "https://github.com/microsoft/vcpkg.git",
			Commit:   "f990dfaa5ba8",
			CacheDir: "/cache",
			Packages: []string{"glm"},
		},
		Build: BuildConfig{Root: "/build"},
	}
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing url", func(c *Config) { c.Vcpkg.URL = "" }, "url is required"},
		{"missing commit", func(c *Config) { c.Vcpkg.Commit = "" }, "commit is required"},
		{"bad commit", func(c *Config) { c.Vcpkg.Commit = "--upload-pack=x" }, "invalid vcpkg commit"},
		{"range commit", func(c *Config) { c.Vcpkg.Commit = "main..dev" }, "invalid vcpkg commit"},
		{"no packages", func(c *Config) { c.Vcpkg.Packages = nil }, "at least one"},
		{"flag package", func(c *Config) { c.Vcpkg.Packages = []string{"--evil"} }, "invalid vcpkg package"},
		{"missing build root", func(c *Config) { c.Build.Root = "" }, "build root"},
		{"bad variant", func(c *Config) { c.Lock.Variant = "mutex" }, "lock variant"},
		{"bad interval", func(c *Config) { c.Lock.RetryInterval = "soon" }, "retry_interval"},
		{"bad level", func(c *Config) { c.Logging.Level = "chatty" }, "logging level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := Finalize(cfg)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestInitWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ezvcpkg.yaml")
	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	t.Setenv("HOME", t.TempDir())
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Finalize(cfg))
	require.Equal(t, []string{"glm", "zlib"}, cfg.Vcpkg.Packages)
}

func TestSplitPackageList(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, SplitPackageList(" a;b,,c a "))
	require.Empty(t, SplitPackageList(" ; "))
}

func TestNormalizeEnums(t *testing.T) {
	require.Equal(t, RetryBackoffExponential, NormalizeRetryBackoff(" Exponential "))
	require.Equal(t, RetryBackoffMode(""), NormalizeRetryBackoff("sometimes"))
	require.Equal(t, LockVariantFlock, NormalizeLockVariant("FLOCK"))
	require.Equal(t, LockVariantAuto, NormalizeLockVariant("unknown"))
	require.Equal(t, LogLevelWarn, NormalizeLogLevel("warn"))
	require.Equal(t, LogFormatText, NormalizeLogFormat(""))
}
