// Package progress provides the one-way pipe of human-readable progress
// frames emitted while a repository is analysed. Progress frames are lossy
// under back-pressure; the terminal complete or error frame is not.
package progress

import (
	"sync"

	"github.com/christikaes/macaroni-arch/internal/dsm"
)

// Kind represents the type of a progress frame.
type Kind string

const (
	// KindProgress carries a free-form status string.
	KindProgress Kind = "progress"
	// KindError signals a fatal error and terminates the stream.
	KindError Kind = "error"
	// KindComplete delivers the final payload and terminates the stream.
	KindComplete Kind = "complete"
)

// Frame is a single event on the progress stream.
type Frame struct {
	Kind    Kind         `json:"kind"`
	Message string       `json:"message,omitempty"`
	Payload *dsm.Payload `json:"payload,omitempty"`
}

// DefaultBuffer is the channel capacity before progress frames are dropped.
const DefaultBuffer = 64

// Sink is the writer half of the stream. All methods are safe for concurrent
// use. After Complete or Fail the sink is closed and further sends are no-ops.
type Sink struct {
	mu     sync.Mutex
	ch     chan Frame
	closed bool
	// dropped counts progress frames discarded under back-pressure
	dropped int
}

// New creates a sink with the given buffer capacity (DefaultBuffer when <= 0)
// and returns it together with the reader channel.
func New(buffer int) (*Sink, <-chan Frame) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	s := &Sink{ch: make(chan Frame, buffer)}
	return s, s.ch
}

// Send emits a progress string. It never blocks: when the reader cannot keep
// up the frame is dropped.
func (s *Sink) Send(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.ch <- Frame{Kind: KindProgress, Message: message}:
	default:
		s.dropped++
	}
}

// Complete delivers the final payload and closes the stream. The terminal
// frame is never dropped.
func (s *Sink) Complete(payload *dsm.Payload) {
	s.terminate(Frame{Kind: KindComplete, Payload: payload})
}

// Fail delivers a terminal error and closes the stream.
func (s *Sink) Fail(message string) {
	s.terminate(Frame{Kind: KindError, Message: message})
}

func (s *Sink) terminate(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	// Blocking send: the terminal frame must reach the reader. When the
	// buffer is full this waits for the reader, which drains until close.
	s.ch <- f
	close(s.ch)
}

// Dropped returns the number of progress frames discarded so far.
func (s *Sink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
