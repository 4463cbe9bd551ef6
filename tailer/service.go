package tailer

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/tailpipe/component"
	"github.com/kbukum/tailpipe/config"
	"github.com/kbukum/tailpipe/errors"
	"github.com/kbukum/tailpipe/logger"
	"github.com/kbukum/tailpipe/observability"
	"github.com/kbukum/tailpipe/output"
	"github.com/kbukum/tailpipe/pipeline"
)

// Service is the tail pipeline component.
type Service struct {
	cfg     config.PipelineConfig
	opener  *output.Opener
	metrics *observability.Metrics
	log     *logger.Logger

	mu     sync.Mutex
	input  *os.File
	tree   *tree
	source *pipeline.Source
	cancel func()
	done   chan struct{}
	err    error
	// run spans the Source's lifetime when the pipeline is instrumented.
	runCtx  context.Context
	runSpan trace.Span
}

// Option configures a Service.
type Option func(*Service)

// WithOpener sets the output opener. The Service closes it on Stop.
func WithOpener(o *output.Opener) Option {
	return func(s *Service) { s.opener = o }
}

// WithMetrics sets the instruments used when the pipeline is instrumented.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the Service logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New returns a Service for cfg. cfg should already be defaulted and
// validated.
func New(cfg config.PipelineConfig, opts ...Option) *Service {
	s := &Service{cfg: cfg, done: make(chan struct{})}
	for _, opt := range opts {
		opt(s)
	}
	if s.opener == nil {
		s.opener = output.NewOpener(nil)
	}
	if s.log == nil {
		s.log = logger.Get("tailer")
	}
	return s
}

func (s *Service) Name() string { return "tail-pipeline" }

// Start opens the input, builds the tree, and starts tailing. The pipeline
// keeps running after ctx ends; use Stop to end it.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source != nil {
		return errors.Conflict("tail pipeline already started")
	}

	f, err := os.Open(s.cfg.Input)
	if err != nil {
		return errors.IOFailure("source", err).WithDetail("path", s.cfg.Input)
	}
	runID := uuid.NewString()
	t, err := s.build(runID)
	if err != nil {
		f.Close()
		return err
	}

	runCtx := context.WithoutCancel(ctx)
	var runSpan trace.Span
	if s.cfg.Instrument {
		runCtx, runSpan = observability.StartSpan(runCtx, observability.SpanRun, trace.WithAttributes(
			observability.AttrRunID.String(runID),
			attribute.String(logger.FieldInput, s.cfg.Input),
		))
	}

	src := pipeline.NewSource(f, t.root,
		pipeline.WithPollInterval(s.cfg.PollInterval),
		pipeline.WithRunID(runID),
		pipeline.WithLogger(s.log.WithFields(logger.Fields(logger.FieldInput, s.cfg.Input))),
	)
	cancel, done := src.Start(runCtx)

	s.input, s.tree, s.source, s.cancel = f, t, src, cancel
	s.runCtx, s.runSpan = runCtx, runSpan
	go s.wait(done)
	return nil
}

func (s *Service) wait(done <-chan error) {
	err := <-done
	s.mu.Lock()
	s.err = err
	if cerr := s.input.Close(); cerr != nil {
		s.log.Warn("closing input", logger.ErrorFields("close", cerr))
	}
	if s.runSpan != nil {
		if err != nil {
			observability.SetSpanError(s.runCtx, err)
		}
		s.runSpan.End()
	}
	s.mu.Unlock()
	close(s.done)
}

// Stop cancels the Source, waits for the tree to close, and closes the
// outputs. A pipeline that already failed reports its error from Err, not
// from Stop.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return s.opener.Close()
	}

	cancel()
	select {
	case <-s.done:
	case <-ctx.Done():
		return errors.Timeout("tail pipeline stop").WithCause(ctx.Err())
	}
	return s.opener.Close()
}

func (s *Service) Health(ctx context.Context) component.Health {
	h := component.Health{Name: s.Name()}
	stats := s.Stats()
	switch {
	case s.Err() != nil:
		h.Status, h.Message = component.StatusUnhealthy, s.Err().Error()
	case stats.State == pipeline.StateRunning:
		h.Status, h.Message = component.StatusHealthy, "running"
	case s.Source() == nil:
		h.Status, h.Message = component.StatusUnhealthy, "not started"
	default:
		h.Status, h.Message = component.StatusDegraded, stats.State.String()
	}
	return h
}

func (s *Service) Describe() component.Description {
	return component.Description{
		Name:    "Tail pipeline",
		Type:    "pipeline",
		Details: fmt.Sprintf("%s routes=%d policy=%s", s.cfg.Input, len(s.cfg.Routes), s.cfg.Policy),
	}
}

// Done is closed when the pipeline has stopped for any reason.
func (s *Service) Done() <-chan struct{} { return s.done }

// Err returns the error that stopped the pipeline, or nil.
func (s *Service) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Source returns the running Source, or nil before Start.
func (s *Service) Source() *pipeline.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Stats returns the Source counters; the zero value before Start.
func (s *Service) Stats() pipeline.Stats {
	if src := s.Source(); src != nil {
		return src.Stats()
	}
	return pipeline.Stats{State: pipeline.StateBuilding}
}

// Routes returns the configured routes.
func (s *Service) Routes() []config.RouteConfig {
	return s.cfg.Routes
}

// InjectFault delivers err to the sink of route. Unless the sink absorbs it,
// the pipeline stops with an INJECTED_FAULT error.
func (s *Service) InjectFault(ctx context.Context, route string, err error) error {
	s.mu.Lock()
	src, t := s.source, s.tree
	s.mu.Unlock()
	if src == nil {
		return errors.Conflict("tail pipeline not started")
	}
	sink, ok := t.sinks[route]
	if !ok {
		return errors.NotFound("route", route)
	}
	return src.Inject(ctx, sink, err)
}
