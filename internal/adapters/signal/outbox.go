package signal

import (
	"sync"

	"github.com/dkeye/Sketch/internal/core"
)

// outbox is the FIFO of frames waiting for the writer goroutine. With
// limit 0 it grows without bound; a slow reader then costs memory, not
// delivery to other peers.
type outbox struct {
	limit int

	mu      sync.Mutex
	pending []core.Frame
	closed  bool

	notify chan struct{}
	done   chan struct{}
}

func newOutbox(limit int) *outbox {
	return &outbox{
		limit:  limit,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (o *outbox) push(f core.Frame) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return core.ErrConnClosed
	}
	if o.limit > 0 && len(o.pending) >= o.limit {
		return core.ErrBackpressure
	}
	o.pending = append(o.pending, f)
	select {
	case o.notify <- struct{}{}:
	default:
	}
	return nil
}

// take hands every queued frame to the writer in push order.
func (o *outbox) take() []core.Frame {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.pending
	o.pending = nil
	return out
}

func (o *outbox) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// close reports whether this call closed the outbox.
func (o *outbox) close() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	o.closed = true
	o.pending = nil
	close(o.done)
	return true
}
