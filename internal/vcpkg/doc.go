// Package vcpkg prepares a shared, per-commit vcpkg installation for a build.
//
// A Manager runs a fixed sequence while holding the installation lock:
//
//  1. IsUpToDate compares the tag marker with the requested commit and packages.
//  2. Bootstrap checks out the commit and builds the vcpkg tool, unless up to date.
//  3. WriteTag records the commit, packages and time, even when nothing changed.
//  4. SetupDependencies runs vcpkg install for each package.
//  5. CleanBuilds removes build trees older than the tag.
//  6. WriteConfig writes ezvcpkg.cmake into the build root.
//
// The first failing step aborts the remaining ones. The lock is released on
// every path.
package vcpkg
