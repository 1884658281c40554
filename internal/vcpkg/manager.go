package vcpkg

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/ezvcpkg/internal/config"
	"git.home.luguber.info/inful/ezvcpkg/internal/git"
	"git.home.luguber.info/inful/ezvcpkg/internal/lock"
	"git.home.luguber.info/inful/ezvcpkg/internal/metrics"
	"git.home.luguber.info/inful/ezvcpkg/internal/toolchain"
	"git.home.luguber.info/inful/ezvcpkg/internal/version"
)

// Fetcher checks out a repository at an exact commit.
type Fetcher interface {
	Sync(ctx context.Context, url, repoPath, commit string) (git.SyncResult, error)
}

// Tool runs the vcpkg executables of one installation root.
type Tool interface {
	HasExecutable() bool
	ExecutablePath() string
	Bootstrap(ctx context.Context) error
	Install(ctx context.Context, pkg string) error
}

// Locker serializes runs across processes.
type Locker interface {
	With(ctx context.Context, path string, fn func(ctx context.Context) error) error
}

// Options selects the installation a Manager prepares.
type Options struct {
	URL            string
	Commit         string
	CacheDir       string
	Packages       []string
	Triplet        string
	BuildRoot      string
	LockPath       string
	ForceBootstrap bool
	ForceBuild     bool
	ToolVersion    string
}

// OptionsFromConfig maps a finalized configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		URL:            cfg.Vcpkg.URL,
		Commit:         cfg.Vcpkg.Commit,
		CacheDir:       cfg.Vcpkg.CacheDir,
		Packages:       cfg.Vcpkg.Packages,
		Triplet:        cfg.Vcpkg.Triplet,
		BuildRoot:      cfg.Build.Root,
		LockPath:       cfg.Lock.Path,
		ForceBootstrap: cfg.Vcpkg.ForceBootstrap,
		ForceBuild:     cfg.Vcpkg.ForceBuild,
		ToolVersion:    version.Version,
	}
}

// Manager owns the state of one installation root. Its steps must only run
// while the lock is held; Run and Status take care of that.
type Manager struct {
	opts     Options
	root     string
	fetcher  Fetcher
	tool     Tool
	locker   Locker
	recorder metrics.Recorder
	out      io.Writer
	now      func() time.Time

	tag       *Tag // set by WriteTag
	upToDate  bool
	bootstrap bool
	removed   []string
	config    string
	changed   bool
}

// NewManager returns a Manager using go-git, the vcpkg toolchain and a flock
// based lock with default retry. Duplicate packages are dropped, first
// occurrence wins.
func NewManager(opts Options) *Manager {
	opts.Packages = config.NormalizePackages(opts.Packages)
	root := filepath.Join(opts.CacheDir, opts.Commit)
	if opts.LockPath == "" {
		opts.LockPath = filepath.Join(opts.CacheDir, "ezvcpkg.lock")
	}
	return &Manager{
		opts:     opts,
		root:     root,
		fetcher:  git.NewClient(),
		tool:     toolchain.New(root, toolchain.WithTriplet(opts.Triplet)),
		locker:   lock.New(),
		recorder: metrics.NoopRecorder{},
		out:      os.Stdout,
		now:      time.Now,
	}
}

// WithFetcher replaces the git backend.
func (m *Manager) WithFetcher(f Fetcher) *Manager { m.fetcher = f; return m }

// WithTool replaces the vcpkg toolchain.
func (m *Manager) WithTool(t Tool) *Manager { m.tool = t; return m }

// WithLocker replaces the cross-process lock.
func (m *Manager) WithLocker(l Locker) *Manager { m.locker = l; return m }

// WithRecorder attaches a metrics recorder.
func (m *Manager) WithRecorder(r metrics.Recorder) *Manager {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	m.recorder = r
	return m
}

// WithOutput redirects the "<step> took N secs" progress lines (stdout by default).
func (m *Manager) WithOutput(w io.Writer) *Manager {
	if w == nil {
		w = io.Discard
	}
	m.out = w
	return m
}

// WithClock overrides the time source used for the tag timestamp.
func (m *Manager) WithClock(now func() time.Time) *Manager { m.now = now; return m }

// Root is the per-commit installation root.
func (m *Manager) Root() string { return m.root }

// Options returns the options the manager was built with.
func (m *Manager) Options() Options { return m.opts }
