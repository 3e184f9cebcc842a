package core

import (
	"errors"
	"sync"

	"github.com/dkeye/Sketch/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
//
// Broadcast holds the exclusive lock for the whole fan-out so that two
// broadcasts in the same room reach every recipient outbox in issue order.
type roomImpl struct {
	id    domain.RoomID
	mu    sync.Mutex
	bySID map[SessionID]*Session
}

func NewRoomService(id domain.RoomID) RoomService {
	return &roomImpl{
		id:    id,
		bySID: make(map[SessionID]*Session),
	}
}

func (r *roomImpl) ID() domain.RoomID { return r.id }

func (r *roomImpl) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bySID)
}

func (r *roomImpl) AddMember(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySID[s.ID()]; ok {
		return false
	}
	r.bySID[s.ID()] = s
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(s.ID())).Msg("member added")
	return true
}

func (r *roomImpl) RemoveMember(sid SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySID[sid]; !ok {
		return false
	}
	delete(r.bySID, sid)
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(sid)).Msg("member removed")
	return true
}

func (r *roomImpl) Broadcast(from SessionID, data Frame) PublishResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := PublishResult{}
	for sid, m := range r.bySID {
		if sid == from {
			continue
		}
		err := m.Deliver(data)
		switch {
		case err == nil:
			res.SendTo++
		case errors.Is(err, ErrBackpressure):
			res.Dropped = append(res.Dropped, m)
		default:
			// closed or failing transport: skip this peer only
			res.Skipped++
		}
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("from", string(from)).
		Int("sent_to", res.SendTo).Int("skipped", res.Skipped).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MemberDTO, 0, len(r.bySID))
	for sid, s := range r.bySID {
		out = append(out, MemberDTO{SessionID: sid, UserID: s.User().ID})
	}
	return out
}
