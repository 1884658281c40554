//go:build unix

package lock

import (
	stderrors "errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const flockSupported = true

func lockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

func isContention(err error) bool {
	return stderrors.Is(err, unix.EWOULDBLOCK) || stderrors.Is(err, unix.EAGAIN)
}

// removeOrphan probes the file with a non-blocking flock before unlinking it.
func removeOrphan(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := lockFile(f); err != nil {
		if isContention(err) {
			return ErrHeld
		}
		return fmt.Errorf("probe %s: %w", path, err)
	}
	defer func() { _ = unlockFile(f) }()
	return os.Remove(path)
}
