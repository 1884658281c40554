package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/ezvcpkg/internal/config"
	"git.home.luguber.info/inful/ezvcpkg/internal/foundation/errors"
	"git.home.luguber.info/inful/ezvcpkg/internal/lock"
	"git.home.luguber.info/inful/ezvcpkg/internal/retry"
)

// Global carries process wide state into subcommands.
type Global struct {
	Ctx    context.Context
	Logger *slog.Logger
	Out    io.Writer
}

// CLI definition & global flags. Flags override the configuration file and
// EZVCPKG_* environment variables.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path (optional)" type:"path"`
	Debug     bool             `short:"v" name:"debug" help:"Enable debug logging"`
	LogFormat string           `name:"log-format" help:"Log format (text or json)"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	VcpkgURL        string `name:"vcpkg-url" help:"vcpkg git repository URL"`
	VcpkgCommit     string `name:"vcpkg-commit" help:"vcpkg commit to check out"`
	VcpkgRoot       string `name:"vcpkg-root" help:"Cache directory holding per-commit installations" type:"path"`
	VcpkgPackages   string `name:"vcpkg-packages" help:"Packages to install, separated by ';', ',' or spaces"`
	BuildRoot       string `name:"build-root" help:"CMake build directory receiving ezvcpkg.cmake" type:"path"`
	Triplet         string `help:"vcpkg target triplet"`
	ForceBootstrap  bool   `name:"force-bootstrap" help:"Rerun the bootstrap even if the installation is current"`
	ForceBuild      bool   `name:"force-build" help:"Rebuild the vcpkg tool"`
	LockFile        string `name:"lock-file" help:"Lock file path (default <vcpkg-root>/ezvcpkg.lock)" type:"path"`
	LockVariant     string `name:"lock-variant" help:"Lock strategy: auto, flock or exclusive-create"`
	MetricsTextfile string `name:"metrics-textfile" help:"Write Prometheus metrics to this file after the run" type:"path"`

	Prepare PrepareCmd `cmd:"" default:"1" help:"Bootstrap vcpkg, install packages and write the CMake configuration (default)"`
	Status  StatusCmd  `cmd:"" help:"Show the state of the installation without changing it"`
	Unlock  UnlockCmd  `cmd:"" help:"Remove a lock file left behind by a crashed run"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; sets up logging from the flags. The
// configuration may refine the level and format once it is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := config.LogLevelInfo
	if c.Debug {
		level = config.LogLevelDebug
	}
	setupLogging(level, config.NormalizeLogFormat(c.LogFormat))
	return nil
}

func setupLogging(level config.LogLevel, format config.LogFormat) {
	opts := &slog.HandlerOptions{Level: slogLevel(level)}
	var handler slog.Handler
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// applyFlags merges explicitly set flags over cfg. Boolean flags can only switch features on.
func (c *CLI) applyFlags(cfg *config.Config) {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&cfg.Vcpkg.URL, c.VcpkgURL)
	setString(&cfg.Vcpkg.Commit, c.VcpkgCommit)
	setString(&cfg.Vcpkg.CacheDir, c.VcpkgRoot)
	setString(&cfg.Vcpkg.Triplet, c.Triplet)
	setString(&cfg.Build.Root, c.BuildRoot)
	setString(&cfg.Lock.Path, c.LockFile)
	setString(&cfg.Metrics.Textfile, c.MetricsTextfile)
	if c.VcpkgPackages != "" {
		cfg.Vcpkg.Packages = config.SplitPackageList(c.VcpkgPackages)
	}
	if c.LockVariant != "" {
		cfg.Lock.Variant = config.LockVariant(c.LockVariant)
	}
	if c.ForceBootstrap {
		cfg.Vcpkg.ForceBootstrap = true
	}
	if c.ForceBuild {
		cfg.Vcpkg.ForceBuild = true
	}
	if c.Debug {
		cfg.Logging.Level = config.LogLevelDebug
	}
	if c.LogFormat != "" {
		cfg.Logging.Format = config.LogFormat(c.LogFormat)
	}
}

// loadConfig layers file, environment and flags, then finalizes the result.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := c.loadRaw()
	if err != nil {
		return nil, err
	}
	if err := config.Finalize(cfg); err != nil {
		return nil, errors.ValidationError("invalid configuration").WithCause(err).Build()
	}
	setupLogging(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

// loadRaw returns the merged configuration without defaults or validation.
func (c *CLI) loadRaw() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, errors.ConfigError("failed to load configuration").
			WithCause(err).
			WithContext("path", c.Config).
			Build()
	}
	c.applyFlags(cfg)
	return cfg, nil
}

// newLocker builds the process lock from the lock configuration.
func newLocker(cfg *config.Config, notice io.Writer) (*lock.Locker, error) {
	initial, maxDelay, err := cfg.Lock.RetryDelays()
	if err != nil {
		return nil, errors.ValidationError("invalid lock retry settings").WithCause(err).Build()
	}
	policy := retry.NewPolicy(cfg.Lock.RetryBackoff, initial, maxDelay, retry.Unlimited)
	return lock.New(
		lock.WithVariant(cfg.Lock.Variant),
		lock.WithPolicy(policy),
		lock.WithNotice(notice),
	), nil
}
