package pipeline

import (
	"context"
	stderrors "errors"
)

// Policy selects how a Broadcast reacts to a failing downstream.
type Policy int

const (
	// FailFast stops at the first failing downstream; later downstreams do
	// not see the item.
	FailFast Policy = iota
	// CollectAll delivers the item to every downstream, then fails with all
	// of their errors joined.
	CollectAll
)

func (p Policy) String() string {
	switch p {
	case FailFast:
		return "fail_fast"
	case CollectAll:
		return "collect_all"
	default:
		return "unknown"
	}
}

// WithPolicy sets the Broadcast failure policy. Other Stages ignore it.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// Broadcast forwards every item to each downstream, in list order.
type Broadcast[T any] struct {
	node
	targets []Stage[T]
	policy  Policy
}

// NewBroadcast returns an unprimed Broadcast owning downstreams. An empty
// list is allowed and absorbs every item.
func NewBroadcast[T any](downstreams []Stage[T], opts ...Option) *Broadcast[T] {
	targets := make([]Stage[T], len(downstreams))
	copy(targets, downstreams)
	children := make([]lifecycle, len(targets))
	for i, t := range targets {
		children[i] = asLifecycle(t)
	}
	n, o := newNode("broadcast", children, opts)
	return &Broadcast[T]{node: n, targets: targets, policy: o.policy}
}

// Policy returns the failure policy.
func (b *Broadcast[T]) Policy() Policy { return b.policy }

// Len returns the number of downstreams.
func (b *Broadcast[T]) Len() int { return len(b.targets) }

// Push forwards item to every downstream in order.
func (b *Broadcast[T]) Push(ctx context.Context, item T) error {
	if err := b.ready(); err != nil {
		return err
	}
	var errs []error
	for _, t := range b.targets {
		if err := t.Push(ctx, item); err != nil {
			if b.policy == FailFast {
				return b.fail(err)
			}
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return b.fail(stderrors.Join(errs...))
	}
	return nil
}
