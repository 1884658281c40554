package lock

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/ezvcpkg/internal/config"
	"git.home.luguber.info/inful/ezvcpkg/internal/foundation/errors"
	"git.home.luguber.info/inful/ezvcpkg/internal/logfields"
	"git.home.luguber.info/inful/ezvcpkg/internal/observability"
	"git.home.luguber.info/inful/ezvcpkg/internal/retry"
)

// ErrContended reports that another holder owns the lock. Acquire retries on it
// and never returns it unless the retry policy is bounded.
var ErrContended = stderrors.New("lock is held by another process")

// ErrHeld is returned by Remove when a live process still holds the lock.
var ErrHeld = stderrors.New("lock file is held by a running process")

// State is the lifecycle position of a lock.
type State int

const (
	StateUnlocked State = iota
	StateAcquiring
	StateHeld
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateUnlocked:
		return "unlocked"
	case StateAcquiring:
		return "acquiring"
	case StateHeld:
		return "held"
	case StateReleased:
		return "released"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Handle is a held lock. Release it exactly once; further calls are no-ops.
type Handle struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	variant config.LockVariant
	state   State
}

// Path returns the lock file path.
func (h *Handle) Path() string { return h.path }

// Variant reports which strategy produced the handle.
func (h *Handle) Variant() config.LockVariant { return h.variant }

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Release unlocks, closes and removes the lock file. It is idempotent.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateHeld {
		return nil
	}
	h.state = StateReleased

	var errs []error
	if h.variant == config.LockVariantFlock {
		if err := unlockFile(h.file); err != nil {
			errs = append(errs, fmt.Errorf("unlock: %w", err))
		}
	}
	if err := h.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	if err := os.Remove(h.path); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		errs = append(errs, fmt.Errorf("remove: %w", err))
	}
	if len(errs) > 0 {
		return errors.LockError("failed to release lock").
			WithCause(stderrors.Join(errs...)).
			WithContext("path", h.path).
			Build()
	}
	return nil
}

// Locker acquires locks using one variant and retry policy.
type Locker struct {
	variant config.LockVariant
	policy  retry.Policy
	notice  io.Writer
	watch   bool
}

// Option configures a Locker.
type Option func(*Locker)

// WithVariant selects the locking strategy. Auto resolves to flock when supported.
func WithVariant(v config.LockVariant) Option {
	return func(l *Locker) { l.variant = v }
}

// WithPolicy sets the backoff used between contended attempts.
func WithPolicy(p retry.Policy) Option {
	return func(l *Locker) { l.policy = p }
}

// WithNotice redirects the user facing contention message (stdout by default).
func WithNotice(w io.Writer) Option {
	return func(l *Locker) {
		if w == nil {
			w = io.Discard
		}
		l.notice = w
	}
}

// WithWatch toggles the fsnotify wake-up when the lock file is removed.
func WithWatch(enabled bool) Option {
	return func(l *Locker) { l.watch = enabled }
}

// New returns a Locker. Without options it waits a fixed 10s between attempts, forever.
func New(opts ...Option) *Locker {
	l := &Locker{
		variant: config.LockVariantAuto,
		policy:  retry.DefaultPolicy(),
		notice:  os.Stdout,
		watch:   true,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.variant = resolveVariant(l.variant)
	return l
}

// Variant returns the resolved strategy.
func (l *Locker) Variant() config.LockVariant { return l.variant }

func resolveVariant(v config.LockVariant) config.LockVariant {
	switch v {
	case config.LockVariantExclusiveCreate:
		return v
	case config.LockVariantFlock:
		if flockSupported {
			return v
		}
		return config.LockVariantExclusiveCreate
	default:
		if flockSupported {
			return config.LockVariantFlock
		}
		return config.LockVariantExclusiveCreate
	}
}

// Acquire blocks until the lock at path is held or ctx is done. Failures other
// than contention are returned immediately as lock category errors.
func (l *Locker) Acquire(ctx context.Context, path string) (*Handle, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = observability.WithLockPath(ctx, path)
	h := &Handle{path: path, variant: l.variant, state: StateAcquiring}

	for attempt := 0; ; attempt++ {
		f, err := l.try(path)
		if err == nil {
			h.file = f
			h.state = StateHeld
			observability.DebugContext(ctx, "Lock acquired", logfields.Attempt(attempt+1))
			return h, nil
		}
		if !stderrors.Is(err, ErrContended) {
			return nil, errors.WrapError(err, errors.CategoryLock, "failed to acquire lock").
				WithContext("path", path).
				Build()
		}
		if l.policy.Exhausted(attempt) {
			return nil, errors.WrapError(err, errors.CategoryLock, "gave up waiting for lock").
				WithContext("path", path).
				WithContext("attempts", attempt+1).
				Build()
		}

		delay := l.policy.Delay(attempt + 1)
		_, _ = fmt.Fprintf(l.notice, "Couldn't acquire lock %s, retrying in %s\n", path, delay)
		observability.WarnContext(ctx, "Lock contended, retrying",
			logfields.Attempt(attempt+1),
			slog.Duration("delay", delay))

		if err := l.wait(ctx, path, delay); err != nil {
			return nil, errors.WrapError(err, errors.CategoryLock, "interrupted while waiting for lock").
				WithContext("path", path).
				Build()
		}
	}
}

// try performs a single acquisition attempt. Partially opened files are closed
// before a contention error is returned.
func (l *Locker) try(path string) (*os.File, error) {
	if l.variant == config.LockVariantExclusiveCreate {
		// Best effort: succeeds for stale files and, where the OS allows it, for live ones too.
		_ = os.Remove(path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		if stderrors.Is(err, fs.ErrExist) {
			return nil, ErrContended
		}
		return nil, err
	}
	if l.variant != config.LockVariantFlock {
		return f, nil
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		if isContention(err) {
			return nil, ErrContended
		}
		_ = os.Remove(path)
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}
	return f, nil
}

// wait sleeps for delay, returning early when the lock file is removed or ctx ends.
func (l *Locker) wait(ctx context.Context, path string, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	var events <-chan fsnotify.Event
	if l.watch {
		if w, err := fsnotify.NewWatcher(); err == nil {
			defer func() { _ = w.Close() }()
			if err := w.Add(filepath.Dir(path)); err == nil {
				events = w.Events
				// Released between the failed attempt and the watch being installed.
				if _, err := os.Stat(path); stderrors.Is(err, fs.ErrNotExist) {
					return nil
				}
			}
		}
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == target && ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				return nil
			}
		}
	}
}

// With runs fn while holding the lock at path. The lock is released on every
// exit path, including panics. fn's error takes precedence over a release error.
func (l *Locker) With(ctx context.Context, path string, fn func(ctx context.Context) error) (err error) {
	h, err := l.Acquire(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := h.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return fn(observability.WithLockPath(ctx, path))
}

var defaultLocker = sync.OnceValue(func() *Locker { return New() })

// Acquire uses the default Locker.
func Acquire(ctx context.Context, path string) (*Handle, error) {
	return defaultLocker().Acquire(ctx, path)
}

// With uses the default Locker.
func With(ctx context.Context, path string, fn func(ctx context.Context) error) error {
	return defaultLocker().With(ctx, path, fn)
}

// Remove deletes an orphaned lock file left behind by a crashed process. It
// returns ErrHeld when flock shows a live holder. A missing file is not an error.
func Remove(path string) error {
	err := removeOrphan(path)
	switch {
	case err == nil, stderrors.Is(err, fs.ErrNotExist):
		return nil
	case stderrors.Is(err, ErrHeld):
		return errors.LockError("lock is in use").
			WithCause(err).
			WithContext("path", path).
			UserAction().
			Build()
	default:
		return errors.WrapError(err, errors.CategoryLock, "failed to remove lock file").
			WithContext("path", path).
			Build()
	}
}
