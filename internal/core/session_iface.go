package core

import (
	"sync"

	"github.com/dkeye/Sketch/internal/domain"
)

type SessionID string

// Session binds an authenticated user to its transport endpoint and tracks
// the rooms it joined. The connection is owned by the session: other
// components reach it only through Deliver and Close.
type Session struct {
	id   SessionID
	user *domain.User
	conn SignalConnection

	mu     sync.Mutex
	rooms  map[domain.RoomID]struct{}
	closed bool
}

func NewSession(id SessionID, user *domain.User, conn SignalConnection) *Session {
	return &Session{
		id:    id,
		user:  user,
		conn:  conn,
		rooms: make(map[domain.RoomID]struct{}),
	}
}

func (s *Session) ID() SessionID            { return s.id }
func (s *Session) User() *domain.User       { return s.user }
func (s *Session) Handle() SignalConnection { return s.conn }

// Deliver queues a frame on the session transport without blocking.
func (s *Session) Deliver(f Frame) error {
	return s.conn.TrySend(f)
}

// Close releases the transport. Safe to call more than once when the
// underlying connection is.
func (s *Session) Close() {
	s.conn.Close()
}

// Enter records room membership. apply runs under the session lock so the
// directory and the session never disagree; it is skipped for a terminated
// session.
func (s *Session) Enter(room domain.RoomID, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	apply()
	s.rooms[room] = struct{}{}
	return true
}

// Exit is the inverse of Enter. Leaving a room never joined still runs apply,
// which the directory treats as a no-op.
func (s *Session) Exit(room domain.RoomID, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	apply()
	delete(s.rooms, room)
	return true
}

// Terminate marks the session closed and calls leave for every joined room.
// Only the first call does any work.
func (s *Session) Terminate(leave func(domain.RoomID)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	for room := range s.rooms {
		leave(room)
	}
	clear(s.rooms)
	return true
}

func (s *Session) Joined(room domain.RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[room]
	return ok
}
