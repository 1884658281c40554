package vcpkg

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"

	"git.home.luguber.info/inful/ezvcpkg/internal/cmake"
	"git.home.luguber.info/inful/ezvcpkg/internal/foundation/errors"
	"git.home.luguber.info/inful/ezvcpkg/internal/logfields"
	"git.home.luguber.info/inful/ezvcpkg/internal/observability"
	"git.home.luguber.info/inful/ezvcpkg/internal/util/sets"
)

// IsUpToDate reports whether the tag marker records the requested commit and
// exactly the requested package set. A missing or unreadable tag means false.
func (m *Manager) IsUpToDate() bool {
	tag, err := ReadTag(m.root)
	if err != nil {
		if !stderrors.Is(err, fs.ErrNotExist) {
			observability.WarnContext(context.Background(), "Ignoring unreadable tag",
				logfields.Path(TagPath(m.root)), logfields.Error(err))
		}
		return false
	}
	return tag.Matches(m.opts.Commit, m.opts.Packages)
}

// needsBootstrap decides whether the bootstrap step has work to do.
func (m *Manager) needsBootstrap(upToDate bool) bool {
	return !upToDate || m.opts.ForceBootstrap || m.opts.ForceBuild
}

// Bootstrap checks out the requested commit into the root and builds the vcpkg
// tool when it is missing, the checkout moved or a rebuild was forced.
func (m *Manager) Bootstrap(ctx context.Context) error {
	res, err := m.fetcher.Sync(ctx, m.opts.URL, m.root, m.opts.Commit)
	if err != nil {
		return errors.BootstrapError("failed to check out vcpkg").
			WithCause(err).
			WithContext("url", m.opts.URL).
			WithContext("commit", m.opts.Commit).
			Build()
	}

	if m.opts.ForceBuild {
		if err := os.Remove(m.tool.ExecutablePath()); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return errors.BootstrapError("failed to remove vcpkg executable for rebuild").
				WithCause(err).
				Build()
		}
	}

	if m.tool.HasExecutable() && !res.Changed() && !m.opts.ForceBootstrap {
		observability.DebugContext(ctx, "vcpkg executable present, skipping bootstrap script", logfields.Root(m.root))
		return nil
	}
	if err := m.tool.Bootstrap(ctx); err != nil {
		if _, ok := errors.AsClassified(err); ok {
			return err
		}
		return errors.BootstrapError("bootstrap failed").WithCause(err).Build()
	}
	m.bootstrap = true
	return nil
}

// WriteTag records the requested commit and packages with the current time.
// It runs on every invocation so that the marker reflects last use.
func (m *Manager) WriteTag() error {
	tag := NewTag(m.opts.Commit, m.opts.Packages, m.now(), m.opts.ToolVersion)
	if err := writeTag(m.root, tag); err != nil {
		return errors.FileSystemError("failed to write tag").
			WithCause(err).
			WithContext("path", TagPath(m.root)).
			Fatal().
			Build()
	}
	m.tag = tag
	return nil
}

// SetupDependencies installs every requested package in order. The first
// failure aborts the remaining installs.
func (m *Manager) SetupDependencies(ctx context.Context) error {
	for _, pkg := range m.opts.Packages {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := m.tool.Install(ctx, pkg)
		m.recorder.IncPackageInstall(pkg, err == nil)
		if err != nil {
			if _, ok := errors.AsClassified(err); ok {
				return err
			}
			return errors.PackageError(fmt.Sprintf("failed to install %s", pkg)).
				WithCause(err).
				WithContext("package", pkg).
				Build()
		}
	}
	return nil
}

// CleanBuilds removes build trees last modified strictly before the tag was
// written. Trees touched at or after that moment are kept. Every stale tree is
// attempted; failures are reported together.
func (m *Manager) CleanBuilds() error {
	tag := m.tag
	if tag == nil {
		var err error
		if tag, err = ReadTag(m.root); err != nil {
			return errors.CleanupError("cannot clean builds without a tag").WithCause(err).Build()
		}
	}
	marker := tag.ModTime
	if marker.IsZero() {
		marker = tag.WrittenAt
	}

	dirs, err := ListBuildDirs(m.root)
	if err != nil {
		return errors.CleanupError("failed to list build trees").WithCause(err).Build()
	}
	var errs []error
	for _, d := range dirs {
		if !d.StaleAt(marker) {
			continue
		}
		if err := os.RemoveAll(d.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		m.removed = append(m.removed, d.Path)
		observability.DebugContext(context.Background(), "Removed out of date build tree", logfields.Path(d.Path))
	}
	m.recorder.IncBuildDirsRemoved(len(m.removed))
	if len(errs) > 0 {
		return errors.CleanupError("failed to remove out of date build trees").
			WithCause(stderrors.Join(errs...)).
			WithContext("failed", len(errs)).
			Build()
	}
	return nil
}

// WriteConfig writes ezvcpkg.cmake into the build root.
func (m *Manager) WriteConfig() error {
	path, changed, err := cmake.Write(m.opts.BuildRoot, cmake.Data{
		Root:        m.root,
		Commit:      m.opts.Commit,
		Triplet:     m.opts.Triplet,
		Packages:    sortedPackages(m.opts.Packages),
		ToolVersion: m.opts.ToolVersion,
		WrittenAt:   m.now(),
	})
	if err != nil {
		return errors.FileSystemError("failed to write CMake configuration").
			WithCause(err).
			WithContext("build_root", m.opts.BuildRoot).
			Fatal().
			Build()
	}
	m.config, m.changed = path, changed
	return nil
}

func sortedPackages(pkgs []string) []string {
	return sets.Sorted(sets.New(pkgs...))
}
