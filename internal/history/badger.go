package history

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/dkeye/Sketch/internal/domain"
)

// BadgerStore keeps history in an embedded badger database.
type BadgerStore struct {
	db *badger.DB

	mu     sync.Mutex
	lastTS int64
}

// OpenBadger opens (or creates) a badger database in dir.
func OpenBadger(dir string) (*BadgerStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("badger: storage path is required")
	}
	db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", dir, err)
	}
	return NewBadgerStore(db), nil
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// roomPrefix hex-encodes the room id so ids containing ':' cannot collide.
func roomPrefix(room domain.RoomID) string {
	return "shape:" + hex.EncodeToString([]byte(room)) + ":"
}

// Append stores rec under "shape:{hex(room)}:{unixnano, 19 digits}:{uuid}".
// The zero padding keeps lexicographic order chronological, and timestamps
// are forced strictly increasing so records appended in the same
// nanosecond keep their append order.
func (s *BadgerStore) Append(ctx context.Context, rec Record) error {
	if err := validate(ctx, rec.RoomID); err != nil {
		return err
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	ts := rec.At.UnixNano()
	if ts <= s.lastTS {
		ts = s.lastTS + 1
	}
	s.lastTS = ts
	s.mu.Unlock()

	key := fmt.Sprintf("%s%019d:%s", roomPrefix(rec.RoomID), ts, rec.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Fetch walks the room prefix backwards from the newest key, then restores
// chronological order.
func (s *BadgerStore) Fetch(ctx context.Context, room domain.RoomID, limit int) ([]Record, error) {
	if err := validate(ctx, room); err != nil {
		return nil, err
	}
	var out []Record
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(roomPrefix(room))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) == limit {
				break
			}
			var rec Record
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
