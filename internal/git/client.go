package git

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/ezvcpkg/internal/logfields"
)

// SyncResult describes what Sync did to the checkout.
type SyncResult struct {
	Path     string
	Commit   string // full hash now checked out
	Previous string // hash checked out before the sync, empty after a clone
	Cloned   bool
	Fetched  bool
}

// Changed reports whether the checked out commit moved.
func (r SyncResult) Changed() bool { return r.Cloned || r.Previous != r.Commit }

// Client handles Git operations for one checkout.
type Client struct {
	progress io.Writer
}

// NewClient creates a Git client. Transfer progress is discarded unless a writer is set.
func NewClient() *Client { return &Client{progress: io.Discard} }

// WithProgress streams clone/fetch progress to w (fluent helper).
func (c *Client) WithProgress(w io.Writer) *Client {
	if w == nil {
		w = io.Discard
	}
	c.progress = w
	return c
}

// Sync makes repoPath a checkout of url at commit. An existing checkout is reused;
// the remote is only contacted when commit is not yet known locally.
func (c *Client) Sync(ctx context.Context, url, repoPath, commit string) (SyncResult, error) {
	if _, err := os.Stat(filepath.Join(repoPath, ".git")); err != nil {
		return c.clone(ctx, url, repoPath, commit)
	}
	return c.update(ctx, url, repoPath, commit)
}

func (c *Client) clone(ctx context.Context, url, repoPath, commit string) (SyncResult, error) {
	slog.Info("Cloning vcpkg", logfields.URL(url), logfields.Path(repoPath), logfields.Commit(commit))
	// A directory without .git is a leftover from an interrupted clone.
	if err := os.RemoveAll(repoPath); err != nil {
		return SyncResult{}, fmt.Errorf("failed to remove existing directory: %w", err)
	}

	repository, err := git.PlainCloneContext(ctx, repoPath, false, &git.CloneOptions{
		URL:        url,
		NoCheckout: true,
		Tags:       git.AllTags,
		Progress:   c.progress,
	})
	if err != nil {
		return SyncResult{}, ClassifyGitError(err, "clone", url)
	}

	hash, err := resolveCommit(repository, commit)
	if err != nil {
		return SyncResult{}, ClassifyGitError(err, "resolve", url)
	}
	if err := checkout(repository, hash); err != nil {
		return SyncResult{}, ClassifyGitError(err, "checkout", url)
	}
	slog.Info("Repository cloned successfully", logfields.URL(url), logfields.Commit(hash.String()))
	return SyncResult{Path: repoPath, Commit: hash.String(), Cloned: true, Fetched: true}, nil
}

func (c *Client) update(ctx context.Context, url, repoPath, commit string) (SyncResult, error) {
	repository, err := git.PlainOpen(repoPath)
	if err != nil {
		return SyncResult{}, ClassifyGitError(fmt.Errorf("open repo: %w", err), "open", url)
	}
	res := SyncResult{Path: repoPath}
	if head, herr := repository.Head(); herr == nil {
		res.Previous = head.Hash().String()
	}

	if err := ensureOrigin(repository, url); err != nil {
		return SyncResult{}, ClassifyGitError(err, "remote", url)
	}

	hash, err := resolveCommit(repository, commit)
	if err != nil {
		slog.Debug("Commit not available locally, fetching", logfields.Commit(commit), logfields.URL(url))
		if ferr := c.fetchOrigin(ctx, repository); ferr != nil {
			return SyncResult{}, ClassifyGitError(ferr, "fetch", url)
		}
		res.Fetched = true
		if hash, err = resolveCommit(repository, commit); err != nil {
			return SyncResult{}, ClassifyGitError(err, "resolve", url)
		}
	}

	res.Commit = hash.String()
	if res.Previous == res.Commit {
		dirty, derr := dirtyTracked(repository)
		if derr != nil {
			return SyncResult{}, ClassifyGitError(derr, "status", url)
		}
		if !dirty {
			slog.Debug("Repository already at requested commit", logfields.Path(repoPath), logfields.Commit(res.Commit))
			return res, nil
		}
	}
	if err := checkout(repository, hash); err != nil {
		return SyncResult{}, ClassifyGitError(err, "checkout", url)
	}
	if res.Changed() {
		slog.Info("Repository updated", logfields.Path(repoPath), slog.String("from", abbrev(res.Previous)), slog.String("to", abbrev(res.Commit)))
	} else {
		slog.Info("Restored modified files", logfields.Path(repoPath), logfields.Commit(res.Commit))
	}
	return res, nil
}

// fetchOrigin fetches all branches and tags from origin.
func (c *Client) fetchOrigin(ctx context.Context, repository *git.Repository) error {
	err := repository.FetchContext(ctx, &git.FetchOptions{
		RemoteName: git.DefaultRemoteName,
		RefSpecs:   []ggitcfg.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
		Tags:       git.AllTags,
		Force:      true,
		Progress:   c.progress,
	})
	if err != nil && !stderrors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

// ensureOrigin points origin at url, creating or rewriting the remote when needed.
func ensureOrigin(repository *git.Repository, url string) error {
	remote, err := repository.Remote(git.DefaultRemoteName)
	if err == nil {
		urls := remote.Config().URLs
		if len(urls) > 0 && urls[0] == url {
			return nil
		}
		slog.Warn("Origin URL changed, updating remote", logfields.URL(url))
		if err := repository.DeleteRemote(git.DefaultRemoteName); err != nil {
			return fmt.Errorf("delete remote: %w", err)
		}
	} else if !stderrors.Is(err, git.ErrRemoteNotFound) {
		return fmt.Errorf("remote: %w", err)
	}
	_, err = repository.CreateRemote(&ggitcfg.RemoteConfig{Name: git.DefaultRemoteName, URLs: []string{url}})
	if err != nil {
		return fmt.Errorf("create remote: %w", err)
	}
	return nil
}

// dirtyTracked reports whether tracked files differ from HEAD. Untracked files
// such as the built tool, build trees and the tag marker do not count.
func dirtyTracked(repository *git.Repository) (bool, error) {
	wt, err := repository.Worktree()
	if err != nil {
		return false, fmt.Errorf("worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("status: %w", err)
	}
	for _, st := range status {
		if st.Worktree == git.Untracked {
			continue
		}
		if st.Worktree != git.Unmodified || st.Staging != git.Unmodified {
			return true, nil
		}
	}
	return false, nil
}

// checkout detaches HEAD at hash and discards tracked modifications.
func checkout(repository *git.Repository, hash plumbing.Hash) error {
	wt, err := repository.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: hash, Force: true}); err != nil {
		return fmt.Errorf("checkout %s: %w", abbrev(hash.String()), err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: hash, Mode: git.HardReset}); err != nil {
		return fmt.Errorf("hard reset: %w", err)
	}
	return nil
}

func abbrev(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
