package output

import (
	"io"
	"sync"
)

// Synchronized serializes writes to a shared writer.
type Synchronized struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSynchronized wraps w.
func NewSynchronized(w io.Writer) *Synchronized {
	return &Synchronized{w: w}
}

func (s *Synchronized) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Flush flushes the wrapped writer if it buffers.
func (s *Synchronized) Flush() error {
	f, ok := s.w.(interface{ Flush() error })
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return f.Flush()
}
