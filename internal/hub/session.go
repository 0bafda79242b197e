package hub

import (
	"sync"

	"github.com/google/uuid"
)

// Session is one subscriber's delivery handle: an opaque ID plus a
// bounded outbound frame queue. It lives only as long as the
// subscriber's connection.
type Session struct {
	id  string
	out chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

// sendResult is the outcome of one frame delivery attempt.
type sendResult int

const (
	sendOK sendResult = iota
	sendDropped
	sendClosed
)

func newSession(bufferSize int) *Session {
	return &Session{
		id:   uuid.NewString(),
		out:  make(chan []byte, bufferSize),
		done: make(chan struct{}),
	}
}

// ID returns the session's opaque identifier.
func (s *Session) ID() string {
	return s.id
}

// Frames returns the outbound delivery queue. The transport layer reads
// from it and writes each frame to the subscriber.
func (s *Session) Frames() <-chan []byte {
	return s.out
}

// Close marks the session broken. Idempotent; pending frames in the
// buffer are abandoned.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Done is closed once the session has been closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// send attempts a non-blocking delivery.
func (s *Session) send(frame []byte) sendResult {
	select {
	case <-s.done:
		return sendClosed
	default:
	}

	select {
	case s.out <- frame:
		return sendOK
	default:
		// Buffer full: drop this frame for this session only.
		return sendDropped
	}
}
