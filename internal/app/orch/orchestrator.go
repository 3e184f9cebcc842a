// Package orch is the Relay Manager: it owns the Session Registry and the
// Room Directory for one relay instance and routes decoded envelopes to them.
package orch

import (
	"context"

	"github.com/dkeye/Sketch/internal/app"
	"github.com/dkeye/Sketch/internal/core"
	"github.com/dkeye/Sketch/internal/domain"
	"github.com/dkeye/Sketch/internal/history"
	"github.com/dkeye/Sketch/internal/protocol"
	"github.com/rs/zerolog/log"
)

type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomDirectory
	Policy   app.Policy
	Joins    *app.RoomRateLimiter
	History  *history.Recorder
}

// New returns an Orchestrator with empty tables, the kick policy, no join
// limit and no history.
func New() *Orchestrator {
	return &Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager(),
		Policy:   app.SimplePolicy{},
	}
}

// Connect registers an authenticated session. A duplicate handle leaves the
// existing session untouched and closes the newcomer.
func (o *Orchestrator) Connect(s *core.Session) error {
	if err := o.Registry.Register(s); err != nil {
		s.Close()
		return err
	}
	return nil
}

// Disconnect removes s from every room it joined and from the registry, then
// closes its transport. Only the first call per session does the cleanup;
// it reports whether this call was that one.
func (o *Orchestrator) Disconnect(s *core.Session) bool {
	first := s.Terminate(func(room domain.RoomID) {
		o.Rooms.Leave(room, s)
	})
	if !first {
		return false
	}
	o.Registry.Unregister(s)
	s.Close()
	log.Info().Str("module", "orch").Str("sid", string(s.ID())).Str("user", string(s.User().ID)).Msg("session closed")
	return true
}

// OnFrame is the Protocol Router. Frames of one session must be passed in
// arrival order from a single goroutine. Nothing is ever sent back to the
// sender.
func (o *Orchestrator) OnFrame(s *core.Session, data core.Frame) {
	env := protocol.Decode(data)
	switch env.Kind {
	case protocol.KindJoinRoom:
		o.Join(s, env.RoomID)
	case protocol.KindLeaveRoom:
		o.Leave(s, env.RoomID)
	case protocol.KindDraw:
		o.Draw(s, env)
	default:
		log.Debug().Err(env.Err).Str("module", "orch").Str("sid", string(s.ID())).Msg("frame dropped")
	}
}

// Shutdown disconnects every registered session.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	sessions := o.Registry.Snapshot()
	log.Info().Str("module", "orch").Int("sessions", len(sessions)).Msg("shutting down relay")
	for _, s := range sessions {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.Disconnect(s)
	}
	return nil
}
