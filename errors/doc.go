// Package errors provides the structured error type shared by tailpipe
// packages. Every error carries a machine-readable code so callers can
// branch with errors.Is against code-only sentinels, regardless of the
// stage or message attached to a particular occurrence.
package errors
