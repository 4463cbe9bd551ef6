package bootstrap

import (
	"io"
	"os"
	"time"

	"github.com/kbukum/tailpipe/logger"
)

// Option configures the App during creation.
// Options are non-generic so they can be used with any config type.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout time.Duration
	summary         io.Writer
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{
		gracefulTimeout: 15 * time.Second,
		summary:         os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the application logger. Without it the global logger is
// initialized from the config's logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout bounds the shutdown phase.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = d
	}
}

// WithSummary sets where the startup summary is printed. It defaults to
// stderr, since stdout may carry pipeline output. nil disables the summary.
func WithSummary(w io.Writer) Option {
	return func(o *appOptions) {
		o.summary = w
	}
}
