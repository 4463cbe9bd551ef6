package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/kbukum/tailpipe/errors"
)

type flusher interface {
	Flush() error
}

// Sink writes each item followed by a newline to a writer it does not own.
// On close it flushes the writer when the writer supports it; it never
// closes the writer.
type Sink[T any] struct {
	node
	w       io.Writer
	written int64
}

// NewSink returns an unprimed Sink writing to w.
func NewSink[T any](w io.Writer, opts ...Option) *Sink[T] {
	if w == nil {
		panic("pipeline: nil writer")
	}
	n, _ := newNode("sink", nil, opts)
	s := &Sink[T]{node: n, w: w}
	s.cleanup = s.flush
	return s
}

// NewDiscard returns a Sink that drops every item.
func NewDiscard[T any](opts ...Option) *Sink[T] {
	return NewSink[T](io.Discard, append([]Option{WithName("discard")}, opts...)...)
}

// Push writes one record. A write failure closes the Sink and returns an
// IO_ERROR.
func (s *Sink[T]) Push(_ context.Context, item T) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(s.w, item); err != nil {
		return s.fail(errors.IOFailure(s.name, err))
	}
	s.written++
	return nil
}

// Written returns the number of records written.
func (s *Sink[T]) Written() int64 { return s.written }

func (s *Sink[T]) flush() error {
	f, ok := s.w.(flusher)
	if !ok {
		return nil
	}
	if err := f.Flush(); err != nil {
		return errors.IOFailure(s.name, err)
	}
	return nil
}
