package vcpkg

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewTagSortsAndDedups(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	tag := NewTag("abc1234", []string{"zlib", "glm", "zlib"}, at, "1.0.0")
	require.Equal(t, []string{"glm", "zlib"}, tag.Packages)
	require.Equal(t, time.UTC, tag.WrittenAt.Location())
	require.True(t, tag.WrittenAt.Equal(at))
}

func TestTagMatches(t *testing.T) {
	tag := NewTag("abc1234", []string{"glm", "zlib"}, time.Now(), "")
	require.True(t, tag.Matches("abc1234", []string{"zlib", "glm", "glm"}))
	require.False(t, tag.Matches("abc1234", []string{"glm"}))
	require.False(t, tag.Matches("abc1234", []string{"glm", "zlib", "fmt"}))
	require.False(t, tag.Matches("def5678", []string{"glm", "zlib"}))

	var missing *Tag
	require.False(t, missing.Matches("abc1234", nil))
}

func TestReadTagMissing(t *testing.T) {
	_, err := ReadTag(t.TempDir())
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestWriteAndReadTag(t *testing.T) {
	root := t.TempDir()
	at := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	tag := NewTag("abc1234", []string{"zlib", "glm"}, at, "1.2.3")
	require.NoError(t, writeTag(root, tag))
	require.False(t, tag.ModTime.IsZero())

	got, err := ReadTag(root)
	require.NoError(t, err)
	require.Equal(t, "abc1234", got.Commit)
	require.Equal(t, []string{"glm", "zlib"}, got.Packages)
	require.True(t, got.WrittenAt.Equal(at))
	require.Equal(t, "1.2.3", got.ToolVersion)
	require.True(t, got.ModTime.Equal(tag.ModTime))

	data, err := os.ReadFile(TagPath(root))
	require.NoError(t, err)
	require.NotContains(t, string(data), "modtime")
}

func TestReadTagSortsHandEditedPackages(t *testing.T) {
	root := t.TempDir()
	path := TagPath(root)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("commit: abc1234\npackages:\n  - zlib\n  - glm\n"), 0o644))

	got, err := ReadTag(root)
	require.NoError(t, err)
	require.Equal(t, []string{"glm", "zlib"}, got.Packages)
	require.True(t, got.WrittenAt.IsZero())
}

func TestListBuildDirs(t *testing.T) {
	root := t.TempDir()
	dirs, err := ListBuildDirs(root)
	require.NoError(t, err)
	require.Empty(t, dirs)

	for _, name := range []string{"zlib", "glm"} {
		require.NoError(t, os.MkdirAll(filepath.Join(BuildTreesDir(root), name), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(BuildTreesDir(root), "log.txt"), nil, 0o644))

	dirs, err = ListBuildDirs(root)
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	require.Equal(t, filepath.Join(BuildTreesDir(root), "glm"), dirs[0].Path)
	require.Equal(t, filepath.Join(BuildTreesDir(root), "zlib"), dirs[1].Path)

	marker := dirs[0].ModTime
	require.False(t, dirs[0].StaleAt(marker))
	require.True(t, dirs[0].StaleAt(marker.Add(time.Nanosecond)))
}
