package vcpkg

import (
	"context"
	"time"
)

// Status is a read-only view of an installation root.
type Status struct {
	Root          string
	Commit        string
	Packages      []string
	UpToDate      bool
	Tag           *Tag // nil when the root has no readable tag
	HasExecutable bool
	BuildDirs     []BuildDir
}

// Status reports the installation state under the lock without changing it.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	st := &Status{Root: m.root, Commit: m.opts.Commit, Packages: sortedPackages(m.opts.Packages)}
	err := m.withLock(ctx, func(context.Context, time.Duration) error {
		st.UpToDate = m.IsUpToDate()
		if tag, err := ReadTag(m.root); err == nil {
			st.Tag = tag
		}
		st.HasExecutable = m.tool.HasExecutable()
		dirs, err := ListBuildDirs(m.root)
		if err != nil {
			return err
		}
		st.BuildDirs = dirs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// StaleBuildDirs lists build trees a run would remove given the current tag.
func (s *Status) StaleBuildDirs() []BuildDir {
	if s.Tag == nil {
		return nil
	}
	marker := s.Tag.ModTime
	if marker.IsZero() {
		marker = s.Tag.WrittenAt
	}
	var out []BuildDir
	for _, d := range s.BuildDirs {
		if d.StaleAt(marker) {
			out = append(out, d)
		}
	}
	return out
}
