package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStep       = "step"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyLockPath   = "lock_path"
	KeyAttempt    = "attempt"
	KeyURL        = "url"
	KeyCommit     = "commit"
	KeyPackage    = "package"
	KeyPackages   = "packages"
	KeyRoot       = "vcpkg_root"
	KeyBuildRoot  = "build_root"
	KeyError      = "error"
	KeyWaited     = "waited"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr          { return slog.String(KeyRunID, id) }
func Step(name string) slog.Attr         { return slog.String(KeyStep, name) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func LockPath(p string) slog.Attr        { return slog.String(KeyLockPath, p) }
func Attempt(n int) slog.Attr            { return slog.Int(KeyAttempt, n) }
func URL(u string) slog.Attr             { return slog.String(KeyURL, u) }
func Package(name string) slog.Attr      { return slog.String(KeyPackage, name) }
func Packages(names []string) slog.Attr  { return slog.Any(KeyPackages, names) }
func Root(p string) slog.Attr            { return slog.String(KeyRoot, p) }
func BuildRoot(p string) slog.Attr       { return slog.String(KeyBuildRoot, p) }
func Waited(d time.Duration) slog.Attr   { return slog.Duration(KeyWaited, d) }

// Commit logs the abbreviated form of a commit id.
func Commit(sha string) slog.Attr {
	if len(sha) > 12 {
		sha = sha[:12]
	}
	return slog.String(KeyCommit, sha)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
