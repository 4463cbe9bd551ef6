package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/tailpipe/logger"
)

const (
	testPoll    = 5 * time.Millisecond
	waitFor     = 2 * time.Second
	pollEvery   = 2 * time.Millisecond
	settleDelay = 30 * time.Millisecond
)

// growingFile is an in-memory ReadSeeker that another goroutine appends to.
type growingFile struct {
	mu   sync.Mutex
	data []byte
	pos  int64
}

func (g *growingFile) Read(p []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pos >= int64(len(g.data)) {
		return 0, io.EOF
	}
	n := copy(p, g.data[g.pos:])
	g.pos += int64(n)
	return n, nil
}

func (g *growingFile) Seek(offset int64, whence int) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch whence {
	case io.SeekStart:
		g.pos = offset
	case io.SeekCurrent:
		g.pos += offset
	case io.SeekEnd:
		g.pos = int64(len(g.data)) + offset
	}
	return g.pos, nil
}

func (g *growingFile) Append(s string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.data = append(g.data, s...)
}

// syncBuffer lets the test read what a Sink wrote from another goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type seekFailer struct{ io.Reader }

func (seekFailer) Seek(int64, int) (int64, error) { return 0, errors.New("not seekable") }

func newTestSource(input io.ReadSeeker, root Stage[string]) *Source {
	return NewSource(input, root, WithPollInterval(testPoll), WithLogger(logger.NewNop()))
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(waitFor):
		t.Fatal("source did not stop")
		return nil
	}
}

func TestSource_SkipsExistingContentAndTails(t *testing.T) {
	in := &growingFile{data: []byte("old python line\n")}
	out := &syncBuffer{}
	src := newTestSource(in, NewSink[string](out))

	cancel, done := src.Start(context.Background())
	defer cancel()

	require.Eventually(t, func() bool { return src.State() == StateRunning }, waitFor, pollEvery)
	in.Append("first\nsecond\n")
	require.Eventually(t, func() bool { return src.Stats().Delivered == 2 }, waitFor, pollEvery)
	assert.Equal(t, "first\nsecond\n", out.String())

	stats := src.Stats()
	assert.Equal(t, int64(2), stats.Delivered)
	assert.Equal(t, int64(len("old python line\nfirst\nsecond\n")), stats.Offset)
	assert.NotEmpty(t, stats.RunID)

	cancel()
	assert.NoError(t, waitDone(t, done))
	assert.Equal(t, StateClosed, src.State())
}

func TestSource_BuffersPartialLines(t *testing.T) {
	in := &growingFile{}
	out := &syncBuffer{}
	src := newTestSource(in, NewSink[string](out))
	cancel, done := src.Start(context.Background())
	defer cancel()

	require.Eventually(t, func() bool { return src.State() == StateRunning }, waitFor, pollEvery)
	in.Append("hel")
	time.Sleep(settleDelay)
	assert.Empty(t, out.String(), "incomplete line must not be delivered")

	in.Append("lo\r\nworld")
	require.Eventually(t, func() bool { return out.String() == "hello\n" }, waitFor, pollEvery)

	cancel()
	require.NoError(t, waitDone(t, done))
	assert.Equal(t, "hello\n", out.String(), "trailing partial line is dropped on stop")
}

func TestSource_EmptyLinesAreItems(t *testing.T) {
	in := &growingFile{}
	out := &syncBuffer{}
	src := newTestSource(in, NewSink[string](out))
	cancel, done := src.Start(context.Background())
	defer cancel()

	require.Eventually(t, func() bool { return src.State() == StateRunning }, waitFor, pollEvery)
	in.Append("\n\n")
	require.Eventually(t, func() bool { return src.Stats().Delivered == 2 }, waitFor, pollEvery)
	assert.Equal(t, "\n\n", out.String())

	cancel()
	require.NoError(t, waitDone(t, done))
}

func TestSource_CancelClosesTree(t *testing.T) {
	var order []string
	var mu sync.Mutex
	hook := func(name string) Option {
		return OnClose(func() {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
		})
	}
	root := NewBroadcast([]Stage[string]{
		NewFilter(Contains("a"), NewDiscard[string](hook("sink")), hook("filter")),
	}, hook("broadcast"))

	cancel, done := RunSource(&growingFile{}, root, testPoll)
	cancel()
	require.NoError(t, waitDone(t, done))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"sink", "filter", "broadcast"}, order)
	assert.Equal(t, StatusClosed, root.Status())
}

func TestSource_CancelBeforeAnyInput(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := newTestSource(&growingFile{}, NewDiscard[string]())
	require.NoError(t, src.Run(ctx))
	assert.Equal(t, StateClosed, src.State())
}

func TestSource_SinkFailureStopsPipeline(t *testing.T) {
	in := &growingFile{}
	sink := NewSink[string](failWriter{err: errors.New("broken pipe")})
	src := newTestSource(in, NewFilter(Contains(""), sink))
	_, done := src.Start(context.Background())

	require.Eventually(t, func() bool { return src.State() == StateRunning }, waitFor, pollEvery)
	in.Append("x\n")

	err := waitDone(t, done)
	require.ErrorIs(t, err, ErrIO)
	assert.Equal(t, StateClosed, src.State())
	assert.Equal(t, StatusClosed, sink.Status())
}

func TestSource_SeekFailure(t *testing.T) {
	src := newTestSource(seekFailer{Reader: bytes.NewReader(nil)}, NewDiscard[string]())
	err := src.Run(context.Background())
	require.ErrorIs(t, err, ErrIO)
	assert.Equal(t, StateClosed, src.State())
}

func TestSource_PrimeFailure(t *testing.T) {
	root := NewDiscard[string]()
	require.NoError(t, root.Close())
	src := newTestSource(&growingFile{}, root)
	require.ErrorIs(t, src.Run(context.Background()), ErrStageClosed)
}

func TestSource_RunTwice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := newTestSource(&growingFile{}, NewDiscard[string]())
	require.NoError(t, src.Run(ctx))
	assert.Error(t, src.Run(ctx))
}

func TestSource_InjectFault(t *testing.T) {
	cause := errors.New("operator abort")
	var closed bool
	var mu sync.Mutex
	sink := NewDiscard[string](OnClose(func() {
		mu.Lock()
		closed = true
		mu.Unlock()
	}))
	src := newTestSource(&growingFile{}, NewFilter(Contains(""), sink))
	_, done := src.Start(context.Background())

	require.Eventually(t, func() bool { return src.State() == StateRunning }, waitFor, pollEvery)
	require.NoError(t, src.Inject(context.Background(), sink, cause))

	err := waitDone(t, done)
	require.ErrorIs(t, err, ErrInjectedFault)
	require.ErrorIs(t, err, cause)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, closed)

	assert.Error(t, src.Inject(context.Background(), sink, cause), "source is no longer running")
}

func TestSource_InjectAbsorbedKeepsRunning(t *testing.T) {
	in := &growingFile{}
	out := &syncBuffer{}
	sink := NewSink[string](out, WithFaultHandler(func(error) error { return nil }))
	src := newTestSource(in, sink)
	cancel, done := src.Start(context.Background())
	defer cancel()

	require.Eventually(t, func() bool { return src.State() == StateRunning }, waitFor, pollEvery)
	require.NoError(t, src.Inject(context.Background(), sink, errors.New("ignored")))

	in.Append("after\n")
	require.Eventually(t, func() bool { return out.String() == "after\n" }, waitFor, pollEvery)

	cancel()
	require.NoError(t, waitDone(t, done))
}

func TestSource_InjectBeforeStart(t *testing.T) {
	src := newTestSource(&growingFile{}, NewDiscard[string]())
	assert.Error(t, src.Inject(context.Background(), NewDiscard[string](), errors.New("x")))
}

func TestStateMarshalText(t *testing.T) {
	b, err := StateDraining.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "draining", string(b))
}

// The scenarios below follow a real file on disk, as the command does.

func appendFile(t *testing.T, path, s string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString(s)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func tailFile(t *testing.T, root Stage[string]) (path string, src *Source, cancel func(), done <-chan error) {
	t.Helper()
	path = filepath.Join(t.TempDir(), "access-log")
	require.NoError(t, os.WriteFile(path, []byte("existing python swig line\n"), 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	src = newTestSource(f, root)
	cancel, done = src.Start(context.Background())
	t.Cleanup(cancel)
	require.Eventually(t, func() bool { return src.State() == StateRunning }, waitFor, pollEvery)
	return path, src, cancel, done
}

func TestScenario_BroadcastToFilteredSinks(t *testing.T) {
	py, sw := &syncBuffer{}, &syncBuffer{}
	root := NewBroadcast([]Stage[string]{
		NewFilter(Contains("python"), NewSink[string](py)),
		NewFilter(Contains("swig"), NewSink[string](sw)),
	})
	path, _, cancel, done := tailFile(t, root)

	appendFile(t, path, "I like python\nswig and python\nnothing here\n")
	require.Eventually(t, func() bool {
		return py.String() == "I like python\nswig and python\n" && sw.String() == "swig and python\n"
	}, waitFor, pollEvery)

	cancel()
	require.NoError(t, waitDone(t, done))
}

func TestScenario_FailingSinkStopsEverything(t *testing.T) {
	py := &syncBuffer{}
	broken := NewSink[string](failWriter{err: errors.New("EPIPE")})
	root := NewBroadcast([]Stage[string]{
		NewFilter(Contains("swig"), broken),
		NewFilter(Contains("python"), NewSink[string](py)),
	})
	path, src, _, done := tailFile(t, root)

	appendFile(t, path, "swig and python\n")
	err := waitDone(t, done)
	require.ErrorIs(t, err, ErrIO)

	assert.Empty(t, py.String(), "fail-fast stops before later branches")
	assert.Equal(t, StateClosed, src.State())
	assert.Equal(t, StatusClosed, root.Status())
}

func TestScenario_FaultIntoSinkClosesTree(t *testing.T) {
	var mu sync.Mutex
	var hooks []string
	hook := func(name string) Option {
		return OnClose(func() {
			mu.Lock()
			defer mu.Unlock()
			hooks = append(hooks, name)
		})
	}
	out := &syncBuffer{}
	sink := NewSink[string](out, hook("sink"))
	root := NewBroadcast([]Stage[string]{NewFilter(Contains("python"), sink, hook("filter"))}, hook("broadcast"))
	path, src, _, done := tailFile(t, root)

	appendFile(t, path, "python one\n")
	require.Eventually(t, func() bool { return out.String() == "python one\n" }, waitFor, pollEvery)

	require.NoError(t, src.Inject(context.Background(), sink, errors.New("shutdown requested")))
	require.ErrorIs(t, waitDone(t, done), ErrInjectedFault)

	appendFile(t, path, "python two\n")
	time.Sleep(settleDelay)
	assert.Equal(t, "python one\n", out.String(), "nothing is delivered after the fault")
	assert.Equal(t, int64(1), src.Stats().Delivered)
	assert.Equal(t, StateClosed, src.State())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"sink", "filter", "broadcast"}, hooks)
}
