// Package history persists relayed draw events per room so that clients can
// replay a room before subscribing to live updates.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dkeye/Sketch/internal/domain"
)

const (
	DriverNone   = "none"
	DriverMemory = "memory"
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

var (
	ErrInvalidRoom   = errors.New("room id is required")
	ErrUnknownDriver = errors.New("unknown history driver")
	ErrClosed        = errors.New("history store closed")
)

// Record is one relayed draw event. Shape and Data are stored exactly as
// they were relayed.
type Record struct {
	ID     uuid.UUID       `json:"id"`
	RoomID domain.RoomID   `json:"roomId"`
	UserID domain.UserID   `json:"userId"`
	Shape  json.RawMessage `json:"shape,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	At     time.Time       `json:"at"`
}

// Store is the Shape Store. Fetch returns at most limit of the newest
// records of a room, oldest first; limit <= 0 returns everything.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Fetch(ctx context.Context, room domain.RoomID, limit int) ([]Record, error)
	Close() error
}

// Open builds the store selected by driver. DriverNone yields a nil Store.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverNone, "":
		return nil, nil
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverBadger:
		store, err := OpenBadger(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverSQLite:
		store, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func validate(ctx context.Context, room domain.RoomID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if room == "" {
		return ErrInvalidRoom
	}
	return nil
}

func reverse(records []Record) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}
