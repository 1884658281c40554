package vcpkg

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"git.home.luguber.info/inful/ezvcpkg/internal/git"
	"git.home.luguber.info/inful/ezvcpkg/internal/metrics"
)

// journal records collaborator calls in order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(e string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type fakeFetcher struct {
	j       *journal
	err     error
	changed bool
}

func (f *fakeFetcher) Sync(_ context.Context, url, repoPath, commit string) (git.SyncResult, error) {
	f.j.add("sync " + commit)
	if f.err != nil {
		return git.SyncResult{}, f.err
	}
	if err := os.MkdirAll(repoPath, 0o755); err != nil {
		return git.SyncResult{}, err
	}
	res := git.SyncResult{Path: repoPath, Commit: commit, Previous: commit}
	if f.changed {
		res.Previous = "0000000"
	}
	return res, nil
}

type fakeTool struct {
	j            *journal
	root         string
	bootstrapErr error
	installErr   map[string]error
}

func (t *fakeTool) ExecutablePath() string { return filepath.Join(t.root, "vcpkg") }

func (t *fakeTool) HasExecutable() bool {
	_, err := os.Stat(t.ExecutablePath())
	return err == nil
}

func (t *fakeTool) Bootstrap(context.Context) error {
	t.j.add("bootstrap")
	if t.bootstrapErr != nil {
		return t.bootstrapErr
	}
	return os.WriteFile(t.ExecutablePath(), []byte("vcpkg"), 0o755)
}

func (t *fakeTool) Install(_ context.Context, pkg string) error {
	t.j.add("install " + pkg)
	if err := t.installErr[pkg]; err != nil {
		return err
	}
	// vcpkg touches the package build tree while installing.
	return os.MkdirAll(filepath.Join(t.root, "buildtrees", pkg), 0o755)
}

type fakeLocker struct {
	j   *journal
	err error
}

func (l *fakeLocker) With(ctx context.Context, path string, fn func(ctx context.Context) error) error {
	if l.err != nil {
		return l.err
	}
	l.j.add("lock")
	defer l.j.add("unlock")
	return fn(ctx)
}

// stepRecorder captures step results.
type stepRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	results  map[string]metrics.ResultLabel
	outcome  metrics.RunOutcomeLabel
	removed  int
	installs map[string]bool
}

func newStepRecorder() *stepRecorder {
	return &stepRecorder{results: map[string]metrics.ResultLabel{}, installs: map[string]bool{}}
}

func (r *stepRecorder) IncStepResult(step string, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[step] = result
}

func (r *stepRecorder) IncRunOutcome(o metrics.RunOutcomeLabel) { r.outcome = o }
func (r *stepRecorder) IncBuildDirsRemoved(n int)                { r.removed += n }
func (r *stepRecorder) IncPackageInstall(pkg string, ok bool)     { r.installs[pkg] = ok }

type fixture struct {
	j        *journal
	fetcher  *fakeFetcher
	tool     *fakeTool
	locker   *fakeLocker
	recorder *stepRecorder
	out      *syncBuffer
	clock    time.Time
	opts     Options
}

func newFixture(cacheDir, buildRoot string, packages ...string) *fixture {
	j := &journal{}
	opts := Options{
		URL:         "https://github.com/microsoft/vcpkg.git",
		Commit:      "f990dfaa5ba82155f95b75021453c075816fd4be",
		CacheDir:    cacheDir,
		Packages:    packages,
		BuildRoot:   buildRoot,
		ToolVersion: "test",
	}
	return &fixture{
		j:        j,
		fetcher:  &fakeFetcher{j: j, changed: true},
		tool:     &fakeTool{j: j, root: filepath.Join(cacheDir, opts.Commit), installErr: map[string]error{}},
		locker:   &fakeLocker{j: j},
		recorder: newStepRecorder(),
		out:      &syncBuffer{},
		clock:    time.Date(2026, 10, 16, 10, 11, 12, 0, time.UTC),
		opts:     opts,
	}
}

func (f *fixture) manager() *Manager {
	return NewManager(f.opts).
		WithFetcher(f.fetcher).
		WithTool(f.tool).
		WithLocker(f.locker).
		WithRecorder(f.recorder).
		WithOutput(f.out).
		WithClock(func() time.Time { return f.clock })
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
