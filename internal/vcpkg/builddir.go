package vcpkg

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// BuildDir is a vcpkg build tree under <root>/buildtrees.
type BuildDir struct {
	Path    string
	ModTime time.Time
}

// StaleAt reports whether the build tree was last touched strictly before marker.
func (b BuildDir) StaleAt(marker time.Time) bool {
	return b.ModTime.Before(marker)
}

// BuildTreesDir is the directory vcpkg keeps per-port build trees in.
func BuildTreesDir(root string) string {
	return filepath.Join(root, "buildtrees")
}

// ListBuildDirs returns the build trees of root sorted by path. A missing
// buildtrees directory yields no entries.
func ListBuildDirs(root string) ([]BuildDir, error) {
	base := BuildTreesDir(root)
	entries, err := os.ReadDir(base)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", base, err)
	}
	dirs := make([]BuildDir, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		dirs = append(dirs, BuildDir{Path: filepath.Join(base, e.Name()), ModTime: info.ModTime()})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Path < dirs[j].Path })
	return dirs, nil
}
