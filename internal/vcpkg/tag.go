package vcpkg

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/ezvcpkg/internal/util/sets"
)

const (
	tagDir  = ".ezvcpkg"
	tagFile = "tag.yaml"
)

// Tag is the marker recording which commit and packages an installation root holds.
type Tag struct {
	Commit      string    `yaml:"commit"`
	Packages    []string  `yaml:"packages"`
	WrittenAt   time.Time `yaml:"written_at"`
	ToolVersion string    `yaml:"tool_version,omitempty"`

	// ModTime is the tag file's modification time. Build tree staleness is
	// judged against it because it comes from the same clock as directory mtimes.
	ModTime time.Time `yaml:"-"`
}

// NewTag returns a tag with a sorted, de-duplicated package list.
func NewTag(commit string, packages []string, at time.Time, toolVersion string) *Tag {
	return &Tag{
		Commit:      commit,
		Packages:    sets.Sorted(sets.New(packages...)),
		WrittenAt:   at.UTC(),
		ToolVersion: toolVersion,
	}
}

// Matches reports whether the tag covers commit and exactly the given packages (as a set).
func (t *Tag) Matches(commit string, packages []string) bool {
	if t == nil || t.Commit != commit {
		return false
	}
	return sets.New(t.Packages...).Equal(sets.New(packages...))
}

// TagPath is the location of the tag marker inside root.
func TagPath(root string) string {
	return filepath.Join(root, tagDir, tagFile)
}

// ReadTag loads the tag marker of root. A missing marker yields an error
// satisfying os.IsNotExist.
func ReadTag(root string) (*Tag, error) {
	path := TagPath(root)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tag Tag
	if err := yaml.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("parse tag %s: %w", path, err)
	}
	if tag.Commit == "" {
		return nil, fmt.Errorf("parse tag %s: missing commit", path)
	}
	slices.Sort(tag.Packages)
	if info, err := os.Stat(path); err == nil {
		tag.ModTime = info.ModTime()
	}
	return &tag, nil
}

// writeTag stores tag under root via a temporary file and rename, then records
// the resulting file mtime on tag.
func writeTag(root string, tag *Tag) error {
	dir := filepath.Join(root, tagDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create tag dir: %w", err)
	}
	data, err := yaml.Marshal(tag)
	if err != nil {
		return fmt.Errorf("marshal tag: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tagFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp tag: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp tag: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp tag: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp tag: %w", err)
	}
	path := TagPath(root)
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename tag: %w", err)
	}
	// Rename keeps the mtime set by the write above, stamped by the filesystem clock.
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat tag: %w", err)
	}
	tag.ModTime = info.ModTime()
	return nil
}
