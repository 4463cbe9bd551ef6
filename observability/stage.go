package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/tailpipe/errors"
	"github.com/kbukum/tailpipe/pipeline"
)

// InstrumentedStage wraps a Stage with a span per push and push metrics.
// It shares the wrapped Stage's lifecycle; it adds no state of its own.
type InstrumentedStage[T any] struct {
	next    pipeline.Stage[T]
	metrics *Metrics
	tracer  trace.Tracer
	attrs   []attribute.KeyValue
}

// InstrumentOption configures an InstrumentedStage.
type InstrumentOption func(*instrumentOptions)

type instrumentOptions struct {
	runID string
}

// WithRunID tags every span with the Source run the Stage belongs to.
func WithRunID(id string) InstrumentOption {
	return func(o *instrumentOptions) { o.runID = id }
}

// Instrument wraps next. A nil metrics skips metric recording; a nil tracer
// uses the global provider.
func Instrument[T any](next pipeline.Stage[T], metrics *Metrics, tracer trace.Tracer, opts ...InstrumentOption) *InstrumentedStage[T] {
	if tracer == nil {
		tracer = Tracer(defaultTracerName)
	}
	var o instrumentOptions
	for _, opt := range opts {
		opt(&o)
	}
	s := &InstrumentedStage[T]{next: next, metrics: metrics, tracer: tracer}
	s.attrs = append(s.attrs, AttrStage.String(next.Name()))
	if o.runID != "" {
		s.attrs = append(s.attrs, AttrRunID.String(o.runID))
	}
	return s
}

func (s *InstrumentedStage[T]) Name() string            { return s.next.Name() }
func (s *InstrumentedStage[T]) Status() pipeline.Status { return s.next.Status() }
func (s *InstrumentedStage[T]) Prime() error            { return s.next.Prime() }

// Push forwards to the wrapped Stage inside a pipeline.push span.
func (s *InstrumentedStage[T]) Push(ctx context.Context, item T) error {
	name := s.next.Name()
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, SpanPush, trace.WithAttributes(s.attrs...))

	err := s.next.Push(ctx, item)

	status := "ok"
	if err != nil {
		status = "error"
		s.recordError(ctx, span, name, err)
	}
	span.SetAttributes(AttrStatus.String(status))
	span.End()

	if s.metrics != nil {
		s.metrics.RecordPush(ctx, name, status, time.Since(start))
	}
	return err
}

// Close closes the wrapped Stage and counts the transition.
func (s *InstrumentedStage[T]) Close() error {
	wasOpen := s.next.Status() != pipeline.StatusClosed
	err := s.next.Close()
	if wasOpen && s.metrics != nil {
		s.metrics.RecordClose(context.Background(), s.next.Name())
	}
	return err
}

// InjectFault forwards the fault inside a pipeline.fault span.
func (s *InstrumentedStage[T]) InjectFault(fault error) error {
	name := s.next.Name()
	ctx, span := s.tracer.Start(context.Background(), SpanFault, trace.WithAttributes(s.attrs...))
	defer span.End()

	err := s.next.InjectFault(fault)
	if err != nil {
		s.recordError(ctx, span, name, err)
	}
	return err
}

func (s *InstrumentedStage[T]) recordError(ctx context.Context, span trace.Span, stage string, err error) {
	code := string(errors.CodeOf(err))
	if code == "" {
		code = string(errors.ErrCodeInternal)
	}
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
	span.SetAttributes(AttrErrorCode.String(code))
	if s.metrics != nil {
		s.metrics.RecordError(ctx, stage, code)
	}
}
