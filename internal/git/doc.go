// Package git keeps a vcpkg checkout pinned to an exact commit.
//
// The checkout is cloned when missing and otherwise fetched and hard reset,
// so local modifications to tracked files never survive a sync. Failures are
// returned as classified errors in the git, network or not-found categories.
package git
