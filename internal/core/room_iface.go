package core

import (
	"github.com/dkeye/Sketch/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Skipped int
	Dropped []*Session
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	SessionID SessionID     `json:"sessionId"`
	UserID    domain.UserID `json:"userId"`
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	ID() domain.RoomID
	MemberCount() int
	MembersSnapshot() []MemberDTO

	AddMember(s *Session) bool
	RemoveMember(sid SessionID) bool
	Broadcast(from SessionID, data Frame) PublishResult
}

// RoomDirectory maps room ids to their member sets. Rooms are created on the
// first join and removed when the last member leaves.
type RoomDirectory interface {
	Join(room domain.RoomID, s *Session)
	Leave(room domain.RoomID, s *Session)
	Broadcast(room domain.RoomID, from *Session, data Frame) PublishResult
	Get(room domain.RoomID) (RoomService, bool)
	List() []domain.RoomInfo
}
