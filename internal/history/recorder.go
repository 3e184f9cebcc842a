package history

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Sketch/internal/domain"
)

const writeTimeout = 5 * time.Second

// Recorder moves draw events from the relay to a Store on a single worker
// goroutine, so the relay never waits on storage. Records are appended in
// the order Record was called.
type Recorder struct {
	store Store
	queue chan Record
	now   func() time.Time

	mu      sync.RWMutex
	stopped bool
}

func NewRecorder(store Store, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Recorder{
		store: store,
		queue: make(chan Record, buffer),
		now:   time.Now,
	}
}

// Record enqueues a draw event. It never blocks: when the buffer is full or
// the recorder has stopped the event is not persisted and false is
// returned. A nil Recorder records nothing.
func (r *Recorder) Record(room domain.RoomID, user domain.UserID, shape, data json.RawMessage) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		log.Warn().Str("module", "history").Str("room", string(room)).Msg("recorder stopped, draw not persisted")
		return false
	}
	rec := Record{
		ID:     uuid.New(),
		RoomID: room,
		UserID: user,
		Shape:  shape,
		Data:   data,
		At:     r.now().UTC(),
	}
	select {
	case r.queue <- rec:
		return true
	default:
		log.Warn().Str("module", "history").Str("room", string(room)).Msg("recorder buffer full, draw not persisted")
		return false
	}
}

// Run appends queued records until ctx is done, then refuses new records
// and flushes whatever is still buffered. Cancelling ctx never aborts a
// write.
func (r *Recorder) Run(ctx context.Context) error {
	log.Info().Str("module", "history").Msg("recorder started")
	wctx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			r.stop()
			r.drain(wctx)
			log.Info().Str("module", "history").Msg("recorder stopped")
			return nil
		case rec := <-r.queue:
			r.write(wctx, rec)
		}
	}
}

func (r *Recorder) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
}

func (r *Recorder) drain(ctx context.Context) {
	for {
		select {
		case rec := <-r.queue:
			r.write(ctx, rec)
		default:
			return
		}
	}
}

func (r *Recorder) write(ctx context.Context, rec Record) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := r.store.Append(ctx, rec); err != nil {
		log.Error().Err(err).Str("module", "history").Str("room", string(rec.RoomID)).Msg("append failed")
	}
}
