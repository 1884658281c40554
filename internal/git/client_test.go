package git

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/ezvcpkg/internal/foundation/errors"
)

// upstream is a local repository standing in for the vcpkg remote.
type upstream struct {
	t    *testing.T
	dir  string
	repo *git.Repository
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err, "failed to initialize git repo")
	return &upstream{t: t, dir: dir, repo: repo}
}

// commit writes files and commits them, returning the full hash.
func (u *upstream) commit(msg string, files map[string]string) string {
	u.t.Helper()
	w, err := u.repo.Worktree()
	require.NoError(u.t, err)
	for name, content := range files {
		path := filepath.Join(u.dir, name)
		require.NoError(u.t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(u.t, os.WriteFile(path, []byte(content), 0o644))
		_, err = w.Add(name)
		require.NoError(u.t, err)
	}
	h, err := w.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(u.t, err, "failed to create commit")
	return h.String()
}

func (u *upstream) tag(name, hash string) {
	u.t.Helper()
	h, err := u.repo.ResolveRevision("HEAD")
	require.NoError(u.t, err)
	if hash != "" {
		require.Equal(u.t, hash, h.String())
	}
	_, err = u.repo.CreateTag(name, *h, nil)
	require.NoError(u.t, err)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestSyncClonesAtCommit(t *testing.T) {
	up := newUpstream(t)
	c1 := up.commit("first", map[string]string{"bootstrap-vcpkg.sh": "v1"})
	up.commit("second", map[string]string{"bootstrap-vcpkg.sh": "v2"})

	dest := filepath.Join(t.TempDir(), c1)
	res, err := NewClient().Sync(context.Background(), up.dir, dest, c1)
	require.NoError(t, err)
	require.True(t, res.Cloned)
	require.True(t, res.Changed())
	require.Equal(t, c1, res.Commit)
	require.Equal(t, "v1", readFile(t, filepath.Join(dest, "bootstrap-vcpkg.sh")))

	head, err := HeadCommit(dest)
	require.NoError(t, err)
	require.Equal(t, c1, head)
}

func TestSyncReplacesInterruptedClone(t *testing.T) {
	up := newUpstream(t)
	c1 := up.commit("first", map[string]string{"README.md": "hello"})

	dest := filepath.Join(t.TempDir(), "root")
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "half"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "half", "junk"), []byte("x"), 0o644))

	_, err := NewClient().Sync(context.Background(), up.dir, dest, c1)
	require.NoError(t, err)
	require.NoFileExists(t, filepath.Join(dest, "half", "junk"))
	require.Equal(t, "hello", readFile(t, filepath.Join(dest, "README.md")))
}

func TestSyncUpdatesExistingCheckout(t *testing.T) {
	up := newUpstream(t)
	c1 := up.commit("first", map[string]string{"ports.txt": "glm"})
	c2 := up.commit("second", map[string]string{"ports.txt": "glm zlib"})

	dest := filepath.Join(t.TempDir(), "root")
	client := NewClient()
	_, err := client.Sync(context.Background(), up.dir, dest, c1)
	require.NoError(t, err)

	// c2 came with the clone, no fetch needed.
	res, err := client.Sync(context.Background(), up.dir, dest, c2)
	require.NoError(t, err)
	require.False(t, res.Cloned)
	require.False(t, res.Fetched)
	require.Equal(t, c1, res.Previous)
	require.Equal(t, c2, res.Commit)
	require.True(t, res.Changed())
	require.Equal(t, "glm zlib", readFile(t, filepath.Join(dest, "ports.txt")))

	// A commit made upstream after the clone requires a fetch.
	c3 := up.commit("third", map[string]string{"ports.txt": "fmt"})
	res, err = client.Sync(context.Background(), up.dir, dest, c3)
	require.NoError(t, err)
	require.True(t, res.Fetched)
	require.Equal(t, "fmt", readFile(t, filepath.Join(dest, "ports.txt")))

	// Syncing again is a no-op.
	res, err = client.Sync(context.Background(), up.dir, dest, c3)
	require.NoError(t, err)
	require.False(t, res.Changed())
}

func TestSyncDiscardsLocalModifications(t *testing.T) {
	up := newUpstream(t)
	c1 := up.commit("first", map[string]string{"scripts/buildsystems/vcpkg.cmake": "orig"})

	dest := filepath.Join(t.TempDir(), "root")
	client := NewClient()
	_, err := client.Sync(context.Background(), up.dir, dest, c1)
	require.NoError(t, err)

	target := filepath.Join(dest, "scripts", "buildsystems", "vcpkg.cmake")
	require.NoError(t, os.WriteFile(target, []byte("edited"), 0o644))

	_, err = client.Sync(context.Background(), up.dir, dest, c1)
	require.NoError(t, err)
	require.Equal(t, "orig", readFile(t, target))
}

func TestSyncKeepsUntrackedFilesWhenUnchanged(t *testing.T) {
	up := newUpstream(t)
	c1 := up.commit("first", map[string]string{"bootstrap-vcpkg.sh": "v1"})

	dest := filepath.Join(t.TempDir(), "root")
	client := NewClient()
	_, err := client.Sync(context.Background(), up.dir, dest, c1)
	require.NoError(t, err)

	tool := filepath.Join(dest, "vcpkg")
	require.NoError(t, os.WriteFile(tool, []byte("binary"), 0o755))

	res, err := client.Sync(context.Background(), up.dir, dest, c1)
	require.NoError(t, err)
	require.False(t, res.Changed())
	require.Equal(t, "binary", readFile(t, tool))
}

func TestSyncResolvesTags(t *testing.T) {
	up := newUpstream(t)
	c1 := up.commit("first", map[string]string{"VERSION": "2024.01"})
	up.tag("2024.01.12", c1)
	up.commit("second", map[string]string{"VERSION": "next"})

	dest := filepath.Join(t.TempDir(), "root")
	res, err := NewClient().Sync(context.Background(), up.dir, dest, "2024.01.12")
	require.NoError(t, err)
	require.Equal(t, c1, res.Commit)
	require.Equal(t, "2024.01", readFile(t, filepath.Join(dest, "VERSION")))
}

func TestSyncUnknownCommit(t *testing.T) {
	up := newUpstream(t)
	up.commit("first", map[string]string{"a": "a"})

	dest := filepath.Join(t.TempDir(), "root")
	_, err := NewClient().Sync(context.Background(), up.dir, dest, "0123456789abcdef0123456789abcdef01234567")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUnknownCommit)
	require.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestSyncFollowsChangedURL(t *testing.T) {
	first := newUpstream(t)
	c1 := first.commit("first", map[string]string{"a": "one"})

	dest := filepath.Join(t.TempDir(), "root")
	client := NewClient()
	_, err := client.Sync(context.Background(), first.dir, dest, c1)
	require.NoError(t, err)

	mirror := newUpstream(t)
	m1 := mirror.commit("mirror", map[string]string{"a": "mirror"})
	res, err := client.Sync(context.Background(), mirror.dir, dest, m1)
	require.NoError(t, err)
	require.True(t, res.Fetched)
	require.Equal(t, "mirror", readFile(t, filepath.Join(dest, "a")))

	repo, err := git.PlainOpen(dest)
	require.NoError(t, err)
	remote, err := repo.Remote("origin")
	require.NoError(t, err)
	require.Equal(t, []string{mirror.dir}, remote.Config().URLs)
}

func TestSyncMissingRemoteIsClassified(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "root")
	_, err := NewClient().Sync(context.Background(), filepath.Join(t.TempDir(), "nope"), dest, "main")
	require.Error(t, err)
	_, ok := errors.AsClassified(err)
	require.True(t, ok, "expected classified error, got %T", err)
}

func TestClassifyGitError(t *testing.T) {
	cases := []struct {
		err  error
		want errors.ErrorCategory
	}{
		{stderrors.New("authentication required"), errors.CategoryGit},
		{stderrors.New("repository not found"), errors.CategoryNotFound},
		{stderrors.New("read: connection reset by peer"), errors.CategoryNetwork},
		{stderrors.New("unsupported protocol scheme"), errors.CategoryConfig},
		{stderrors.New("object not found"), errors.CategoryGit},
	}
	for _, tc := range cases {
		err := ClassifyGitError(tc.err, "fetch", "https://example.com/vcpkg.git")
		require.Equal(t, tc.want, errors.GetCategory(err), tc.err.Error())
		require.ErrorIs(t, err, tc.err)
	}
	require.NoError(t, ClassifyGitError(nil, "fetch", ""))

	already := errors.BootstrapError("x").Build()
	require.Same(t, already, ClassifyGitError(already, "fetch", ""))
}
