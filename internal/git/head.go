package git

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var fullHash = regexp.MustCompile(`^[0-9a-f]{40}$`)

// ErrUnknownCommit is the cause when a revision cannot be found in the repository.
var ErrUnknownCommit = fmt.Errorf("commit not found")

// resolveCommit turns a full hash, abbreviated hash, tag or branch into a commit hash.
func resolveCommit(repository *git.Repository, rev string) (plumbing.Hash, error) {
	rev = strings.TrimSpace(rev)
	if fullHash.MatchString(strings.ToLower(rev)) {
		h := plumbing.NewHash(strings.ToLower(rev))
		if _, err := repository.CommitObject(h); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrUnknownCommit, rev)
		}
		return h, nil
	}
	for _, candidate := range []string{rev, "refs/remotes/origin/" + rev, "refs/tags/" + rev} {
		h, err := repository.ResolveRevision(plumbing.Revision(candidate))
		if err == nil {
			return *h, nil
		}
	}
	return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrUnknownCommit, rev)
}

// HeadCommit returns the commit currently checked out in repoPath.
func HeadCommit(repoPath string) (string, error) {
	repository, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	ref, err := repository.Head()
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	return ref.Hash().String(), nil
}
