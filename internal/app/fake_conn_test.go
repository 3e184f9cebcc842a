package app

import (
	"sync"

	"github.com/dkeye/Sketch/internal/core"
	"github.com/dkeye/Sketch/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []string
	err    error
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, string(f))
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.frames...)
}

func newSession(id string) (*core.Session, *fakeConn) {
	conn := &fakeConn{}
	return core.NewSession(core.SessionID(id), &domain.User{ID: domain.UserID("user-" + id)}, conn), conn
}
