package pipeline

import (
	"context"
	stderrors "errors"

	"github.com/kbukum/tailpipe/errors"
)

// Status is the lifecycle position of a single Stage.
type Status int32

const (
	StatusUnprimed Status = iota
	StatusPrimed
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusUnprimed:
		return "unprimed"
	case StatusPrimed:
		return "primed"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stage is a pipeline node that accepts items one at a time.
// A Stage is driven by a single goroutine and is not safe for concurrent use.
type Stage[T any] interface {
	// Name identifies the Stage in errors and logs.
	Name() string
	// Status reports the lifecycle position.
	Status() Status
	// Prime readies the Stage and its subtree. No-op when already primed.
	Prime() error
	// Push delivers one item. It returns only after every forward it
	// triggers has returned.
	Push(ctx context.Context, item T) error
	// Close closes the subtree post-order, running cleanup exactly once.
	Close() error
	// InjectFault delivers err as if it occurred while the Stage waited
	// for its next item.
	InjectFault(err error) error
}

// Faultable is anything that accepts injected faults.
type Faultable interface {
	InjectFault(err error) error
}

// lifecycle is the part of a Stage its owner drives regardless of item type.
type lifecycle interface {
	Prime() error
	Close() error
}

// Option configures any Stage.
type Option func(*options)

type options struct {
	name    string
	onClose []func()
	onFault func(error) error
	policy  Policy
}

// WithName sets the Stage name used in errors and logs.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// OnClose registers a hook run once when the Stage closes, after its
// children have closed.
func OnClose(fn func()) Option {
	return func(o *options) { o.onClose = append(o.onClose, fn) }
}

// WithFaultHandler lets a Stage handle injected faults. Returning nil
// absorbs the fault and leaves the Stage primed; returning an error closes
// the Stage and propagates that error instead.
func WithFaultHandler(fn func(error) error) Option {
	return func(o *options) { o.onFault = fn }
}

// node carries the lifecycle shared by every Stage variant.
type node struct {
	name     string
	status   Status
	cause    error
	children []lifecycle
	cleanup  func() error
	onClose  []func()
	onFault  func(error) error
}

func newNode(kind string, children []lifecycle, opts []Option) (node, options) {
	o := options{name: kind}
	for _, opt := range opts {
		opt(&o)
	}
	for _, c := range children {
		if c == nil {
			panic("pipeline: nil downstream stage for " + o.name)
		}
	}
	return node{
		name:     o.name,
		children: children,
		onClose:  o.onClose,
		onFault:  o.onFault,
	}, o
}

// Name returns the Stage name.
func (n *node) Name() string { return n.name }

// Status returns the lifecycle status.
func (n *node) Status() Status { return n.status }

// Prime primes the children first, then the Stage itself.
func (n *node) Prime() error {
	switch n.status {
	case StatusPrimed:
		return nil
	case StatusClosed:
		return errors.StageClosed(n.name, n.cause)
	}
	for _, c := range n.children {
		if err := c.Prime(); err != nil {
			return err
		}
	}
	n.status = StatusPrimed
	return nil
}

// Close closes the children in order, then runs the Stage's own cleanup and
// hooks. Only the first call does anything.
func (n *node) Close() error {
	if n.status == StatusClosed {
		return nil
	}
	n.status = StatusClosed

	var errs []error
	for _, c := range n.children {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if n.cleanup != nil {
		if err := n.cleanup(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, fn := range n.onClose {
		fn()
	}
	return stderrors.Join(errs...)
}

// InjectFault runs the fault handler if there is one, otherwise closes the
// Stage and returns an INJECTED_FAULT error wrapping err.
func (n *node) InjectFault(err error) error {
	if rerr := n.ready(); rerr != nil {
		return rerr
	}
	if n.onFault != nil {
		handled := n.onFault(err)
		if handled == nil {
			return nil
		}
		err = handled
	}
	return n.fail(errors.InjectedFault(n.name, err))
}

func (n *node) ready() error {
	switch n.status {
	case StatusUnprimed:
		return errors.NotPrimed(n.name)
	case StatusClosed:
		return errors.StageClosed(n.name, n.cause)
	}
	return nil
}

// fail records err as the reason the Stage closed, runs cleanup, and
// returns err for the caller to propagate.
func (n *node) fail(err error) error {
	n.cause = err
	if cerr := n.Close(); cerr != nil {
		return stderrors.Join(err, cerr)
	}
	return err
}
