package pipeline

import (
	"github.com/kbukum/tailpipe/errors"
)

// Sentinels for errors.Is. Every error returned by this package that carries
// one of these codes matches the corresponding sentinel.
var (
	// ErrStageClosed is returned when pushing into a closed Stage.
	ErrStageClosed = errors.New(errors.ErrCodeStageClosed, "stage is closed")
	// ErrNotPrimed is returned when pushing into a Stage before Prime.
	ErrNotPrimed = errors.New(errors.ErrCodeNotPrimed, "stage has not been primed")
	// ErrIO is returned when a Sink or the Source cannot use its handle.
	ErrIO = errors.New(errors.ErrCodeIO, "i/o failure")
	// ErrInjectedFault wraps errors delivered through InjectFault.
	ErrInjectedFault = errors.New(errors.ErrCodeInjectedFault, "injected fault")
)
