package wsserver

import (
	"sync"

	"github.com/google/uuid"

	"github.com/park285/Cheese-chess-server/internal/pvpchan"
	"github.com/park285/Cheese-chess-server/pkg/chessdto"
)

// session is the pvpchan.Session for one WebSocket connection. Send only
// enqueues; the connection's writer goroutine drains the queue.
type session struct {
	id     string
	remote string

	mu     sync.RWMutex
	closed bool
	out    chan *chessdto.ServerMessage

	// overflow is closed once a Send finds the queue full. The writer then
	// ends the connection rather than let the client miss a message.
	overflow     chan struct{}
	overflowOnce sync.Once
}

func newSession(remote string, buffer int) *session {
	if buffer <= 0 {
		buffer = 1
	}
	return &session{
		id:     uuid.NewString(),
		remote: remote,
		out:    make(chan *chessdto.ServerMessage, buffer),

		overflow: make(chan struct{}),
	}
}

func (s *session) ID() string { return s.id }

// Send never blocks. A full queue marks the session overflowed and every
// later Send fails.
func (s *session) Send(msg *chessdto.ServerMessage) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.overflowed() {
		return pvpchan.ErrSessionClosed
	}
	select {
	case s.out <- msg:
		return nil
	default:
		s.overflowOnce.Do(func() { close(s.overflow) })
		return pvpchan.ErrSessionClosed
	}
}

func (s *session) overflowed() bool {
	select {
	case <-s.overflow:
		return true
	default:
		return false
	}
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
}
