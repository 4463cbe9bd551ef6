// Package version reports the build of the running tailpipe binary.
//
// The release fields are stamped at link time:
//
//	go build -ldflags "-X github.com/kbukum/tailpipe/version.Version=1.2.0" ./cmd/tailpipe
//
// Anything left unset falls back to the VCS settings the Go toolchain embeds.
package version
