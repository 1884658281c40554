// Package errors provides the classified error primitives used across ezvcpkg.
//
// Every failure that can end a run is reported as a ClassifiedError so the CLI can
// pick an exit code and log it with structured context:
//   - ErrorCategory: lock, bootstrap, package, cleanup, config, git, filesystem, ...
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: whether a caller may try again
//   - ErrorBuilder: fluent construction with context and cause
//
// Example usage:
//
//	err := errors.BootstrapError("checkout failed").
//		WithContext("commit", commit).
//		WithCause(originalErr).
//		Build()
package errors
