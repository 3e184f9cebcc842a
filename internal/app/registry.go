package app

import (
	"errors"
	"sync"

	"github.com/dkeye/Sketch/internal/core"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// ErrDuplicateSession means a connection handle was registered twice.
var ErrDuplicateSession = errors.New("connection handle already registered")

// Registry holds every authenticated, connected session keyed by its
// connection handle. Handles must be comparable (pointer types).
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SignalConnection]*core.Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SignalConnection]*core.Session),
	}
}

func (r *Registry) Register(s *core.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[s.Handle()]; ok {
		log.Error().Str("module", "app.registry").Str("sid", string(s.ID())).
			Str("existing_sid", string(existing.ID())).Msg("duplicate registration")
		return ErrDuplicateSession
	}
	r.sessions[s.Handle()] = s
	log.Info().Str("module", "app.registry").Str("sid", string(s.ID())).Str("user", string(s.User().ID)).
		Int("sessions", len(r.sessions)).Msg("session registered")
	return nil
}

// Unregister removes s if it is the session bound to its handle.
func (r *Registry) Unregister(s *core.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.Handle()]; !ok || cur != s {
		return
	}
	delete(r.sessions, s.Handle())
	log.Info().Str("module", "app.registry").Str("sid", string(s.ID())).
		Int("sessions", len(r.sessions)).Msg("session unregistered")
}

func (r *Registry) Lookup(conn core.SignalConnection) (*core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[conn]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Snapshot() []*core.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.sessions)
}
