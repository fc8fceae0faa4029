package manager

import (
	"context"
	"errors"
	"sync"

	"chatd/pkg/types"
)

// Error kinds carried by terminal error frames.
const (
	KindCancelled    = "cancelled"
	KindBackpressure = "backpressure_overflow"
	KindGeneration   = "generation_error"
	KindTimeout      = "timeout"
)

// SessionState describes where a streaming session is in its lifetime.
type SessionState string

const (
	SessionOpen     SessionState = "open"
	SessionDraining SessionState = "draining"
	SessionClosed   SessionState = "closed"
)

var (
	errSessionClosed = errors.New("session closed")
	errOverflow      = errors.New("session buffer overflow")
)

// Session delivers a total order of events to one consumer: zero or more
// token frames with dense sequence numbers starting at 0, then exactly one
// terminal frame (done or error). The events channel is closed after the
// terminal frame.
type Session struct {
	id     string
	buf    int
	ch     chan types.StreamFrame
	cancel context.CancelFunc

	mu       sync.Mutex
	seq      uint64
	terminal bool
}

// newSession builds a session whose token buffer holds at most buf frames;
// one extra slot is reserved so the terminal frame can always be queued
// without blocking. cancel stops the underlying generation.
func newSession(id string, buf int, cancel context.CancelFunc) *Session {
	return &Session{
		id:     id,
		buf:    buf,
		ch:     make(chan types.StreamFrame, buf+1),
		cancel: cancel,
	}
}

// ID returns the session (correlation) id.
func (s *Session) ID() string { return s.id }

// Events is the consumer side of the session. It yields frames in order
// and is closed after the single terminal frame.
func (s *Session) Events() <-chan types.StreamFrame { return s.ch }

// State reports open until the terminal frame is queued, draining while
// buffered frames remain, and closed once the consumer has drained them.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.terminal {
		return SessionOpen
	}
	if len(s.ch) > 0 {
		return SessionDraining
	}
	return SessionClosed
}

// Cancel stops the session: the underlying generation is cancelled via the
// shared token and a terminal cancelled frame is emitted to any attached
// consumer. Cancel is idempotent.
func (s *Session) Cancel() {
	s.mu.Lock()
	s.terminalLocked(types.StreamFrame{Type: types.FrameError, Kind: KindCancelled})
	s.mu.Unlock()
	s.cancel()
}

// push appends one token frame. If the consumer has fallen behind the
// buffer ceiling the session is cancelled with a backpressure overflow
// frame instead of growing without bound.
func (s *Session) push(text string) error {
	s.mu.Lock()
	if s.terminal {
		s.mu.Unlock()
		return errSessionClosed
	}
	if len(s.ch) >= s.buf {
		s.terminalLocked(types.StreamFrame{Type: types.FrameError, Kind: KindBackpressure})
		s.mu.Unlock()
		s.cancel()
		return errOverflow
	}
	s.ch <- types.StreamFrame{Type: types.FrameToken, Sequence: s.seq, Text: text}
	s.seq++
	s.mu.Unlock()
	return nil
}

// finish emits the terminal done frame.
func (s *Session) finish(reason string) {
	if reason == "" {
		reason = "stop"
	}
	s.mu.Lock()
	s.terminalLocked(types.StreamFrame{Type: types.FrameDone, FinishReason: reason})
	s.mu.Unlock()
}

// fail emits a terminal error frame of the given kind.
func (s *Session) fail(kind string) {
	s.mu.Lock()
	s.terminalLocked(types.StreamFrame{Type: types.FrameError, Kind: kind})
	s.mu.Unlock()
}

// terminalLocked queues the terminal frame and closes the channel; later
// calls are no-ops so there is never more than one terminal frame. Caller
// holds s.mu. The frame carries the next sequence number so consumers can
// verify the token sequence had no gaps.
func (s *Session) terminalLocked(f types.StreamFrame) {
	if s.terminal {
		return
	}
	s.terminal = true
	f.Sequence = s.seq
	s.ch <- f
	close(s.ch)
}
