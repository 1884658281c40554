// Package lock provides cross-process mutual exclusion on a filesystem path.
//
// A lock is an empty file created with O_EXCL. On platforms with flock(2) the
// creating process additionally holds an exclusive advisory lock on it for as
// long as the Handle lives, which lets Remove tell an orphaned file from a live
// one. Where flock is unavailable the exclusive-create variant unlinks any
// existing file before every attempt. That variant cannot detect a live holder
// on platforms that allow unlinking open files and is therefore weaker.
//
// Contention is never an error: Acquire prints a notice, waits for the retry
// interval (or until the lock file disappears) and tries again until the
// context is cancelled.
package lock
