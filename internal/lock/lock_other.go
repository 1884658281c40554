//go:build !unix

package lock

import (
	stderrors "errors"
	"os"
)

const flockSupported = false

var errUnsupported = stderrors.New("flock is not supported on this platform")

func lockFile(*os.File) error   { return errUnsupported }
func unlockFile(*os.File) error { return nil }
func isContention(error) bool   { return false }

// removeOrphan relies on the platform refusing to unlink files that are still open.
func removeOrphan(path string) error {
	return os.Remove(path)
}
