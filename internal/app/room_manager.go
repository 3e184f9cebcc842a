package app

import (
	"sync"

	"github.com/dkeye/Sketch/internal/core"
	"github.com/dkeye/Sketch/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomManager is the process-wide Room Directory. Join and Leave are
// serialized by mu; Broadcast only reads the table and then serializes on
// the room itself.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
}

func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[domain.RoomID]core.RoomService)}
}

func (m *RoomManager) Join(id domain.RoomID, s *core.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		room = core.NewRoomService(id)
		m.rooms[id] = room
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room opened")
	}
	room.AddMember(s)
}

func (m *RoomManager) Leave(id domain.RoomID, s *core.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return
	}
	room.RemoveMember(s.ID())
	if room.MemberCount() == 0 {
		delete(m.rooms, id)
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room closed")
	}
}

// Broadcast on a room that does not exist is a no-op.
func (m *RoomManager) Broadcast(id domain.RoomID, from *core.Session, data core.Frame) core.PublishResult {
	room, ok := m.Get(id)
	if !ok {
		return core.PublishResult{}
	}
	var sid core.SessionID
	if from != nil {
		sid = from.ID()
	}
	return room.Broadcast(sid, data)
}

func (m *RoomManager) Get(id domain.RoomID) (core.RoomService, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[id]
	return room, ok
}

func (m *RoomManager) List() []domain.RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.RoomInfo, 0, len(m.rooms))
	for id, r := range m.rooms {
		out = append(out, domain.RoomInfo{ID: id, MemberCount: r.MemberCount()})
	}
	return out
}

func (m *RoomManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
