package pipeline

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/tailpipe/errors"
	"github.com/kbukum/tailpipe/logger"
)

// DefaultPollInterval is how long the Source sleeps when no complete line is
// available.
const DefaultPollInterval = 100 * time.Millisecond

// State is the lifecycle position of a Source and the tree it drives.
type State int32

const (
	StateBuilding State = iota
	StateRunning
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Stats is a point-in-time view of a Source.
type Stats struct {
	RunID     string `json:"run_id"`
	State     State  `json:"state"`
	Offset    int64  `json:"offset"`
	Delivered int64  `json:"delivered"`
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithPollInterval sets the sleep between reads that find no complete line.
// Non-positive values select DefaultPollInterval.
func WithPollInterval(d time.Duration) SourceOption {
	return func(s *Source) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger sets the Source logger.
func WithLogger(l *logger.Logger) SourceOption {
	return func(s *Source) { s.log = l }
}

// WithRunID sets the identifier attached to the Source's logs and stats.
func WithRunID(id string) SourceOption {
	return func(s *Source) { s.runID = id }
}

type faultRequest struct {
	target Faultable
	err    error
}

// Source tails an append-only input and pushes each complete line, without
// its terminator, into the root Stage.
//
// The Source owns the root: it primes the tree before reading and closes it
// when reading stops. It does not own the input.
type Source struct {
	input    io.ReadSeeker
	root     Stage[string]
	interval time.Duration
	log      *logger.Logger
	runID    string

	started   atomic.Bool
	state     atomic.Int32
	offset    atomic.Int64
	delivered atomic.Int64
	faults    chan faultRequest
	stopped   chan struct{}
}

// NewSource returns a Source in the building state.
func NewSource(input io.ReadSeeker, root Stage[string], opts ...SourceOption) *Source {
	if input == nil || root == nil {
		panic("pipeline: source needs an input and a root stage")
	}
	s := &Source{
		input:    input,
		root:     root,
		interval: DefaultPollInterval,
		faults:   make(chan faultRequest),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get("source")
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	return s
}

// RunSource starts a Source over input and root in the background. cancel
// stops it; done yields nil after a cancellation, or the error that stopped
// the pipeline, once the tree is closed.
func RunSource(input io.ReadSeeker, root Stage[string], pollInterval time.Duration) (cancel func(), done <-chan error) {
	return NewSource(input, root, WithPollInterval(pollInterval)).Start(context.Background())
}

// Start runs the Source on its own goroutine. See RunSource.
func (s *Source) Start(ctx context.Context) (cancel func(), done <-chan error) {
	ctx, stop := context.WithCancel(ctx)
	ch := make(chan error, 1)
	go func() {
		defer stop()
		ch <- s.Run(ctx)
		close(ch)
	}()
	return stop, ch
}

// Run tails the input until ctx is canceled or a Stage fails. It returns nil
// on cancellation. The root is closed before Run returns in every case.
func (s *Source) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.Conflict("source already started")
	}
	defer close(s.stopped)

	log := s.log.WithFields(logger.Fields(logger.FieldRunID, s.runID))

	if err := s.root.Prime(); err != nil {
		return s.shutdown(log, err)
	}
	end, err := s.input.Seek(0, io.SeekEnd)
	if err != nil {
		return s.shutdown(log, errors.IOFailure("source", err))
	}
	s.offset.Store(end)
	s.state.Store(int32(StateRunning))
	log.Info("source running", logger.Fields(logger.FieldOffset, end))

	return s.shutdown(log, s.loop(ctx))
}

func (s *Source) loop(ctx context.Context) error {
	reader := bufio.NewReader(s.input)
	var partial []byte

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		select {
		case req := <-s.faults:
			if err := req.target.InjectFault(req.err); err != nil {
				return err
			}
		default:
		}

		chunk, rerr := reader.ReadBytes('\n')
		s.offset.Add(int64(len(chunk)))
		partial = append(partial, chunk...)

		switch {
		case rerr == nil:
			line := string(trimEOL(partial))
			partial = partial[:0]
			if err := s.root.Push(ctx, line); err != nil {
				return err
			}
			s.delivered.Add(1)
			continue
		case stderrors.Is(rerr, io.EOF):
			// Incomplete or no data: keep what we have and wait for more.
		default:
			return errors.IOFailure("source", rerr)
		}

		timer.Reset(s.interval)
		select {
		case <-ctx.Done():
			return nil
		case req := <-s.faults:
			if err := req.target.InjectFault(req.err); err != nil {
				return err
			}
		case <-timer.C:
		}
	}
}

func (s *Source) shutdown(log *logger.Logger, cause error) error {
	s.state.Store(int32(StateDraining))
	err := cause
	if cerr := s.root.Close(); cerr != nil {
		err = stderrors.Join(cause, cerr)
	}
	s.state.Store(int32(StateClosed))

	fields := logger.Fields(
		logger.FieldOffset, s.offset.Load(),
		logger.FieldDelivered, s.delivered.Load(),
	)
	if err != nil {
		log.WithError(err).Error("source stopped", fields)
		return err
	}
	log.Info("source stopped", fields)
	return nil
}

// Inject delivers err to target on the Source's goroutine, between pushes.
// If target does not absorb the fault the Source stops and done yields the
// resulting error.
func (s *Source) Inject(ctx context.Context, target Faultable, err error) error {
	if s.State() != StateRunning {
		return errors.Conflict("source is not running").
			WithDetail(logger.FieldState, s.State().String())
	}
	select {
	case s.faults <- faultRequest{target: target, err: err}:
		return nil
	case <-s.stopped:
		return errors.Conflict("source stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Run has returned.
func (s *Source) Done() <-chan struct{} { return s.stopped }

// RunID returns the run identifier.
func (s *Source) RunID() string { return s.runID }

// State returns the current state. Safe for concurrent use.
func (s *Source) State() State { return State(s.state.Load()) }

// Stats returns a snapshot of the Source counters. Safe for concurrent use.
func (s *Source) Stats() Stats {
	return Stats{
		RunID:     s.runID,
		State:     s.State(),
		Offset:    s.offset.Load(),
		Delivered: s.delivered.Load(),
	}
}

func trimEOL(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	return bytes.TrimSuffix(b, []byte("\r"))
}
