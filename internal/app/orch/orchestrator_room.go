package orch

import (
	"github.com/dkeye/Sketch/internal/app"
	"github.com/dkeye/Sketch/internal/core"
	"github.com/dkeye/Sketch/internal/domain"
	"github.com/dkeye/Sketch/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Join adds s to room. It is a no-op for a closed session and for a join
// over the per-user limit.
func (o *Orchestrator) Join(s *core.Session, room domain.RoomID) bool {
	if !o.Joins.Allow(s.User().ID) {
		log.Warn().Str("module", "orch").Str("sid", string(s.ID())).Str("room", string(room)).Msg("join rate limited")
		return false
	}
	ok := s.Enter(room, func() { o.Rooms.Join(room, s) })
	if ok {
		log.Info().Str("module", "orch").Str("sid", string(s.ID())).Str("room", string(room)).Msg("joined room")
	}
	return ok
}

func (o *Orchestrator) Leave(s *core.Session, room domain.RoomID) bool {
	ok := s.Exit(room, func() { o.Rooms.Leave(room, s) })
	if ok {
		log.Info().Str("module", "orch").Str("sid", string(s.ID())).Str("room", string(room)).Msg("left room")
	}
	return ok
}

// Draw relays a draw envelope to the other members of its room. The sender
// does not have to be a member, but only a member's draws are recorded.
func (o *Orchestrator) Draw(s *core.Session, env protocol.Envelope) {
	frame, err := protocol.EncodeDraw(env.RoomID, env.Shape, env.Data)
	if err != nil {
		log.Debug().Err(err).Str("module", "orch").Str("sid", string(s.ID())).Msg("draw not encodable")
		return
	}
	res := o.Rooms.Broadcast(env.RoomID, s, frame)
	if s.Joined(env.RoomID) {
		o.History.Record(env.RoomID, s.User().ID, env.Shape, env.Data)
	}
	o.applyPolicy(env.RoomID, res)
}

func (o *Orchestrator) applyPolicy(room domain.RoomID, res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("sid", string(slow.ID())).Str("room", string(room)).Msg("kicking slow member")
			o.Disconnect(slow)
		case app.DropFrame:
			log.Debug().Str("module", "orch").Str("sid", string(slow.ID())).Str("room", string(room)).Msg("frame dropped for slow member")
		case app.NoAction:
		}
	}
}
