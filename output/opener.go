package output

import (
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/kbukum/tailpipe/errors"
)

// Opener hands out shared writers by target and owns the files it opens.
type Opener struct {
	Stdout io.Writer
	Stderr io.Writer
	// Publisher backs nats: targets. Opening one without it fails.
	Publisher Publisher

	mu      sync.Mutex
	handles map[string]*Synchronized
	files   []*os.File
}

// NewOpener returns an Opener over the process's standard streams.
func NewOpener(pub Publisher) *Opener {
	return &Opener{Stdout: os.Stdout, Stderr: os.Stderr, Publisher: pub}
}

// Open returns the writer for target, opening it on first use. Callers
// sharing a target get the same writer.
func (o *Opener) Open(target string) (io.Writer, error) {
	t, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	key := t.String()
	if h, ok := o.handles[key]; ok {
		return h, nil
	}

	w, err := o.open(t)
	if err != nil {
		return nil, err
	}
	if o.handles == nil {
		o.handles = make(map[string]*Synchronized)
	}
	h := NewSynchronized(w)
	o.handles[key] = h
	return h, nil
}

func (o *Opener) open(t Target) (io.Writer, error) {
	switch t.Kind {
	case KindStdout:
		return orDefault(o.Stdout, os.Stdout), nil
	case KindStderr:
		return orDefault(o.Stderr, os.Stderr), nil
	case KindNATS:
		if o.Publisher == nil {
			return nil, errors.InvalidInput("output", "target "+t.String()+" needs a NATS connection")
		}
		return NewNATSWriter(o.Publisher, t.Path), nil
	default:
		if dir := filepath.Dir(t.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.IOFailure("output", err).WithDetail("path", t.Path)
			}
		}
		f, err := os.OpenFile(t.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, errors.IOFailure("output", err).WithDetail("path", t.Path)
		}
		o.files = append(o.files, f)
		return f, nil
	}
}

// Close closes every file the Opener opened. Standard streams and the NATS
// connection belong to someone else.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	var errs []error
	for _, f := range o.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	o.files = nil
	o.handles = nil
	return stderrors.Join(errs...)
}

func orDefault(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
