package pipeline

import (
	"context"
)

// Filter forwards items that satisfy its predicate to a single downstream
// Stage and drops the rest.
type Filter[T any] struct {
	node
	match Predicate[T]
	next  Stage[T]
}

// NewFilter returns an unprimed Filter owning downstream.
func NewFilter[T any](match Predicate[T], downstream Stage[T], opts ...Option) *Filter[T] {
	if match == nil {
		panic("pipeline: nil predicate")
	}
	n, _ := newNode("filter", []lifecycle{asLifecycle(downstream)}, opts)
	return &Filter[T]{node: n, match: match, next: downstream}
}

// Push forwards item when the predicate holds. A downstream failure closes
// the Filter and is returned unchanged.
func (f *Filter[T]) Push(ctx context.Context, item T) error {
	if err := f.ready(); err != nil {
		return err
	}
	if !f.match(item) {
		return nil
	}
	if err := f.next.Push(ctx, item); err != nil {
		return f.fail(err)
	}
	return nil
}

// asLifecycle keeps a typed nil Stage from becoming a non-nil interface.
func asLifecycle[T any](s Stage[T]) lifecycle {
	if s == nil {
		return nil
	}
	return s
}
