package history

import (
	"context"
	"sync"

	"github.com/dkeye/Sketch/internal/domain"
)

// MemoryStore keeps history in process memory; it is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID][]Record
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[domain.RoomID][]Record)}
}

func (s *MemoryStore) Append(ctx context.Context, rec Record) error {
	if err := validate(ctx, rec.RoomID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.rooms[rec.RoomID] = append(s.rooms[rec.RoomID], rec)
	return nil
}

func (s *MemoryStore) Fetch(ctx context.Context, room domain.RoomID, limit int) ([]Record, error) {
	if err := validate(ctx, room); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	all := s.rooms[room]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]Record, len(all))
	copy(out, all)
	return out, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
